package domain

import (
	"context"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	GetByIDs(ctx context.Context, ids []string) (map[string]*User, error)
	TouchLastSeen(ctx context.Context, id string) error
}

// MessageRepository is the durable message store: source of truth for
// history, ordering, and seen state.
type MessageRepository interface {
	// Append persists a new message and fills its server-assigned ID and
	// CreatedAt. Validation happens at the service boundary; the repository
	// assumes a well-formed message.
	Append(ctx context.Context, m *Message) error

	// HistoryBetween returns the messages exchanged between the two users,
	// oldest first. before > 0 restricts to messages with ID < before;
	// limit <= 0 returns the full history.
	HistoryBetween(ctx context.Context, userA, userB string, before int64, limit int) ([]*Message, error)

	// MarkSeen flips every unseen message sent by partner to owner and
	// returns the number of rows changed. Idempotent.
	MarkSeen(ctx context.Context, owner, partner string) (int64, error)

	// RecentConversations groups the owner's messages by partner and returns
	// one row per partner with the most recent message and the unseen count,
	// ordered by that message's creation time descending.
	RecentConversations(ctx context.Context, owner string) ([]*ConversationRow, error)
}

// ConnectionRepository tracks mutual connections between users.
type ConnectionRepository interface {
	Connect(ctx context.Context, userID, otherID string) error
	ListConnections(ctx context.Context, userID string) ([]*User, error)
	AreConnected(ctx context.Context, userID, otherID string) (bool, error)
}

// MediaStore is the external media collaborator boundary. The returned URL is
// what gets persisted on the message.
type MediaStore interface {
	Store(ctx context.Context, ownerID, filename, contentType string, data []byte) (string, error)
}
