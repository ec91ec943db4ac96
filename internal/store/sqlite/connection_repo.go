package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"pingup_go/internal/domain"
)

type ConnectionRepo struct {
	db *sql.DB
}

func NewConnectionRepo(db *sql.DB) *ConnectionRepo {
	return &ConnectionRepo{db: db}
}

var _ domain.ConnectionRepository = (*ConnectionRepo)(nil)

// Connect stores the mutual connection as two rows so either side can list
// it without an OR scan.
func (r *ConnectionRepo) Connect(ctx context.Context, userID, otherID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, pair := range [][2]string{{userID, otherID}, {otherID, userID}} {
		if _, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO connections (user_id, connection_id)
			VALUES (?, ?)
		`, pair[0], pair[1]); err != nil {
			return fmt.Errorf("insert connection: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (r *ConnectionRepo) ListConnections(ctx context.Context, userID string) ([]*domain.User, error) {
	query := `
		SELECT u.id, u.username, u.email, u.full_name, u.bio, u.profile_picture, u.hashed_password, u.is_active, u.created_at, u.last_seen
		FROM users u
		JOIN connections c ON c.connection_id = u.id
		WHERE c.user_id = ?
		ORDER BY u.username ASC
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list connections: %w", err)
	}
	defer rows.Close()

	var res []*domain.User
	for rows.Next() {
		u := &domain.User{}
		if err := rows.Scan(
			&u.ID,
			&u.Username,
			&u.Email,
			&u.FullName,
			&u.Bio,
			&u.ProfilePicture,
			&u.HashedPassword,
			&u.IsActive,
			&u.CreatedAt,
			&u.LastSeen,
		); err != nil {
			return nil, fmt.Errorf("scan connection: %w", err)
		}
		res = append(res, u)
	}
	return res, rows.Err()
}

func (r *ConnectionRepo) AreConnected(ctx context.Context, userID, otherID string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, `
		SELECT 1 FROM connections WHERE user_id = ? AND connection_id = ?
	`, userID, otherID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check connection: %w", err)
	}
	return true, nil
}
