package domain

import "time"

// MessageKind determines how Text/MediaURL are interpreted.
type MessageKind string

const (
	MessageKindText  MessageKind = "text"
	MessageKindImage MessageKind = "image"
)

// User represents an application user.
type User struct {
	ID             string    `db:"id" json:"id"`
	Username       string    `db:"username" json:"username"`
	Email          *string   `db:"email" json:"email,omitempty"`
	FullName       string    `db:"full_name" json:"full_name"`
	Bio            string    `db:"bio" json:"bio,omitempty"`
	ProfilePicture string    `db:"profile_picture" json:"profile_picture,omitempty"`
	HashedPassword string    `db:"hashed_password" json:"-"`
	IsActive       bool      `db:"is_active" json:"is_active"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	LastSeen       time.Time `db:"last_seen" json:"last_seen"`
}

// Summary returns the public profile fields safe to embed in API responses.
func (u *User) Summary() *UserSummary {
	if u == nil {
		return nil
	}
	return &UserSummary{
		ID:             u.ID,
		Username:       u.Username,
		FullName:       u.FullName,
		Bio:            u.Bio,
		ProfilePicture: u.ProfilePicture,
	}
}

// UserSummary is the public profile view attached to conversations.
type UserSummary struct {
	ID             string `json:"id"`
	Username       string `json:"username"`
	FullName       string `json:"full_name"`
	Bio            string `json:"bio,omitempty"`
	ProfilePicture string `json:"profile_picture,omitempty"`
}

// Message is a single direct message. Immutable once created, except for the
// Seen flag which only ever transitions false to true.
type Message struct {
	ID         int64       `db:"id" json:"id"`
	FromUserID string      `db:"from_user_id" json:"from_user_id"`
	ToUserID   string      `db:"to_user_id" json:"to_user_id"`
	Text       string      `db:"text" json:"text"`
	MediaURL   string      `db:"media_url" json:"media_url,omitempty"`
	Kind       MessageKind `db:"message_type" json:"message_type"`
	Seen       bool        `db:"seen" json:"seen"`
	CreatedAt  time.Time   `db:"created_at" json:"created_at"`
}

// Conversation is the derived per-partner view: the partner's profile, the
// most recent message exchanged, and how many of their messages the owner
// has not yet seen. Recomputed from the message store on every read; it has
// no lifecycle of its own.
type Conversation struct {
	Partner     *UserSummary `json:"partner"`
	LastMessage *Message     `json:"last_message"`
	UnseenCount int          `json:"unseen_count"`
}

// ConversationRow is the raw aggregation result before profile attachment.
type ConversationRow struct {
	PartnerID   string
	LastMessage *Message
	UnseenCount int
}
