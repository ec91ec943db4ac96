package sqlite

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Open opens a SQLite database with the given DSN.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.Exec(`PRAGMA foreign_keys = ON;`); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	return db, nil
}

// Migrate applies the schema. Idempotent CREATE TABLE / CREATE INDEX
// statements, safe to run on every startup.
func Migrate(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id VARCHAR(36) PRIMARY KEY,
			username VARCHAR(50) UNIQUE NOT NULL,
			email VARCHAR(100) UNIQUE,
			full_name VARCHAR(100) NOT NULL DEFAULT '',
			bio TEXT NOT NULL DEFAULT '',
			profile_picture TEXT NOT NULL DEFAULT '',
			hashed_password VARCHAR(255) NOT NULL,
			is_active BOOLEAN DEFAULT TRUE,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			last_seen DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS messages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			from_user_id VARCHAR(36) NOT NULL,
			to_user_id VARCHAR(36) NOT NULL,
			text TEXT NOT NULL DEFAULT '',
			media_url TEXT NOT NULL DEFAULT '',
			message_type VARCHAR(16) NOT NULL DEFAULT 'text',
			seen BOOLEAN NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL,
			FOREIGN KEY (from_user_id) REFERENCES users(id),
			FOREIGN KEY (to_user_id) REFERENCES users(id)
		);`,
		`CREATE TABLE IF NOT EXISTS connections (
			user_id VARCHAR(36) NOT NULL,
			connection_id VARCHAR(36) NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (user_id, connection_id),
			FOREIGN KEY (user_id) REFERENCES users(id),
			FOREIGN KEY (connection_id) REFERENCES users(id)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_users_username ON users(username);`,
		`CREATE INDEX IF NOT EXISTS idx_messages_from_user ON messages(from_user_id);`,
		`CREATE INDEX IF NOT EXISTS idx_messages_to_user ON messages(to_user_id);`,
		`CREATE INDEX IF NOT EXISTS idx_messages_pair_created ON messages(from_user_id, to_user_id, created_at DESC);`,
		// unseen-count lookups: recipient + seen flag
		`CREATE INDEX IF NOT EXISTS idx_messages_to_unseen ON messages(to_user_id, seen);`,
		`CREATE INDEX IF NOT EXISTS idx_connections_user ON connections(user_id);`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	return nil
}
