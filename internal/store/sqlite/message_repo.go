package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"pingup_go/internal/domain"
)

type MessageRepo struct {
	db *sql.DB
}

func NewMessageRepo(db *sql.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

var _ domain.MessageRepository = (*MessageRepo)(nil)

func (r *MessageRepo) Append(ctx context.Context, m *domain.Message) error {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	query := `
		INSERT INTO messages (from_user_id, to_user_id, text, media_url, message_type, seen, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	res, err := r.db.ExecContext(ctx, query,
		m.FromUserID,
		m.ToUserID,
		m.Text,
		m.MediaURL,
		string(m.Kind),
		m.Seen,
		m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	m.ID = id
	return nil
}

func (r *MessageRepo) HistoryBetween(ctx context.Context, userA, userB string, before int64, limit int) ([]*domain.Message, error) {
	// Newest first so the LIMIT keeps the most recent page; callers get
	// chronological order back after the reverse below. before <= 0 skips the
	// cursor predicate; LIMIT -1 means no limit in SQLite.
	query := `
		SELECT id, from_user_id, to_user_id, text, media_url, message_type, seen, created_at
		FROM messages
		WHERE ((from_user_id = ?1 AND to_user_id = ?2) OR (from_user_id = ?2 AND to_user_id = ?1))
		  AND (?3 <= 0 OR id < ?3)
		ORDER BY created_at DESC, id DESC
		LIMIT ?4
	`
	if limit <= 0 {
		limit = -1
	}

	rows, err := r.db.QueryContext(ctx, query, userA, userB, before, limit)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	var res []*domain.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}

	// Reverse to chronological order (query returns DESC).
	for i, j := 0, len(res)-1; i < j; i, j = i+1, j-1 {
		res[i], res[j] = res[j], res[i]
	}
	return res, nil
}

func (r *MessageRepo) MarkSeen(ctx context.Context, owner, partner string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE messages
		SET seen = 1
		WHERE to_user_id = ? AND from_user_id = ? AND seen = 0
	`, owner, partner)
	if err != nil {
		return 0, fmt.Errorf("mark seen: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

func (r *MessageRepo) RecentConversations(ctx context.Context, owner string) ([]*domain.ConversationRow, error) {
	// IDs are monotonic, so MAX(id) per partner is the message with the
	// greatest (created_at, id).
	query := `
		SELECT m.id, m.from_user_id, m.to_user_id, m.text, m.media_url, m.message_type, m.seen, m.created_at
		FROM messages m
		JOIN (
			SELECT CASE WHEN from_user_id = ?1 THEN to_user_id ELSE from_user_id END AS partner_id,
			       MAX(id) AS last_id
			FROM messages
			WHERE from_user_id = ?1 OR to_user_id = ?1
			GROUP BY partner_id
		) t ON t.last_id = m.id
		ORDER BY m.created_at DESC, m.id DESC
	`
	rows, err := r.db.QueryContext(ctx, query, owner)
	if err != nil {
		return nil, fmt.Errorf("recent conversations: %w", err)
	}
	defer rows.Close()

	var res []*domain.ConversationRow
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		partnerID := m.FromUserID
		if partnerID == owner {
			partnerID = m.ToUserID
		}
		res = append(res, &domain.ConversationRow{PartnerID: partnerID, LastMessage: m})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("recent conversations: %w", err)
	}

	unseen, err := r.unseenCounts(ctx, owner)
	if err != nil {
		return nil, err
	}
	for _, row := range res {
		row.UnseenCount = unseen[row.PartnerID]
	}
	return res, nil
}

func (r *MessageRepo) unseenCounts(ctx context.Context, owner string) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT from_user_id, COUNT(*)
		FROM messages
		WHERE to_user_id = ? AND seen = 0
		GROUP BY from_user_id
	`, owner)
	if err != nil {
		return nil, fmt.Errorf("count unseen: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var partner string
		var n int
		if err := rows.Scan(&partner, &n); err != nil {
			return nil, fmt.Errorf("scan unseen count: %w", err)
		}
		counts[partner] = n
	}
	return counts, rows.Err()
}

func scanMessage(rows *sql.Rows) (*domain.Message, error) {
	m := &domain.Message{}
	var kind string
	if err := rows.Scan(
		&m.ID,
		&m.FromUserID,
		&m.ToUserID,
		&m.Text,
		&m.MediaURL,
		&kind,
		&m.Seen,
		&m.CreatedAt,
	); err != nil {
		return nil, fmt.Errorf("scan message: %w", err)
	}
	m.Kind = domain.MessageKind(kind)
	return m, nil
}
