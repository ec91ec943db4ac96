// Package media implements the message-attachment collaborator. The service
// layer only sees the domain.MediaStore interface; this local-disk
// implementation stands in for a hosted media service.
package media

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"pingup_go/internal/domain"
)

// LocalStore writes uploads under a per-owner directory and returns URLs
// served by the /api/uploads route.
type LocalStore struct {
	dir     string
	baseURL string
}

var _ domain.MediaStore = (*LocalStore)(nil)

func NewLocalStore(dir, baseURL string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating media dir: %w", err)
	}
	return &LocalStore{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (s *LocalStore) Store(ctx context.Context, ownerID, filename, contentType string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !strings.HasPrefix(contentType, "image/") {
		return "", fmt.Errorf("%w: unsupported content type %q", domain.ErrMediaUpload, contentType)
	}

	ext := filepath.Ext(filename)
	if ext == "" {
		ext = extensionFor(contentType)
	}

	ownerDir := filepath.Join(s.dir, filepath.Base(ownerID))
	if err := os.MkdirAll(ownerDir, 0o755); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrMediaUpload, err)
	}

	name := strconv.FormatInt(time.Now().UnixNano(), 10) + ext
	if err := os.WriteFile(filepath.Join(ownerDir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrMediaUpload, err)
	}

	return s.baseURL + "/" + filepath.Base(ownerID) + "/" + name, nil
}

func extensionFor(contentType string) string {
	switch contentType {
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ".jpg"
	}
}

// Dir exposes the storage root for the static file-serving route.
func (s *LocalStore) Dir() string {
	return s.dir
}
