package httpserver

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"pingup_go/internal/config"
	"pingup_go/internal/domain"
	"pingup_go/internal/live"
	"pingup_go/internal/media"
	"pingup_go/internal/security"
	"pingup_go/internal/service"
	"pingup_go/internal/store/sqlite"
)

// NewRouter constructs the main HTTP router and wires routes, services, and
// middleware.
func NewRouter(
	cfg *config.Config,
	db *sql.DB,
	registry *live.Registry,
	tokenSvc *security.TokenService,
	passwordHasher *security.PasswordHasher,
	mediaStore *media.LocalStore,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Repositories
	userRepo := sqlite.NewUserRepo(db)
	msgRepo := sqlite.NewMessageRepo(db)
	connRepo := sqlite.NewConnectionRepo(db)

	// Services
	authSvc := service.NewAuthService(userRepo, tokenSvc, passwordHasher)
	userSvc := service.NewUserService(userRepo, connRepo)
	msgSvc := service.NewMessageService(msgRepo, userRepo, mediaStore, registry, logger)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})

	// Long-lived streams stay outside the request-timeout group.
	r.Get("/api/messages/live/{userID}", live.SSEHandler(registry, logger))
	r.Get("/ws", live.WSHandler(registry, tokenSvc, userRepo, cfg.CORSOrigins, logger))

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))

		r.Route("/api", func(r chi.Router) {
			r.Route("/auth", func(r chi.Router) {
				r.Post("/register", handleRegister(authSvc))
				r.Post("/login", handleLogin(authSvc))
			})

			r.Group(func(r chi.Router) {
				r.Use(AuthMiddleware(tokenSvc, userRepo))

				r.Get("/auth/me", handleMe())

				r.Route("/messages", func(r chi.Router) {
					r.Post("/", handleSendMessage(msgSvc, cfg.MaxUploadBytes))
					r.Post("/history", handleHistory(msgSvc))
					r.Get("/recent", handleRecentConversations(msgSvc))
					r.Post("/seen", handleMarkSeen(msgSvc))
				})

				r.Route("/users", func(r chi.Router) {
					r.Get("/connections", handleListConnections(userSvc))
					r.Post("/connect", handleConnect(userSvc))
					r.Get("/{userID}", handleGetUser(userSvc))
				})
			})

			// Served media; URLs persisted on messages point here.
			r.Get("/uploads/{ownerID}/{filename}", handleServeUpload(mediaStore))
		})
	})

	return r
}

func handleServeUpload(store *media.LocalStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID := chi.URLParam(r, "ownerID")
		filename := chi.URLParam(r, "filename")
		// Reject anything that is not a bare file name.
		if ownerID == "" || filename == "" ||
			filepath.Base(ownerID) != ownerID || filepath.Base(filename) != filename {
			http.Error(w, "invalid path", http.StatusBadRequest)
			return
		}
		http.ServeFile(w, r, filepath.Join(store.Dir(), ownerID, filename))
	}
}

// decodeStrict decodes a JSON request body, rejecting unknown fields so a
// malformed or mistyped payload fails loudly instead of half-applying.
func decodeStrict(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// writeJSON is a small helper to send JSON responses.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// writeError maps domain sentinel errors to HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrMediaUpload):
		status = http.StatusBadRequest
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
