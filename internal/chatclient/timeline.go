package chatclient

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"pingup_go/internal/domain"
)

// PendingMessage is an optimistic, not yet server-confirmed send. It carries
// a local ID so the confirmed message can replace it instead of duplicating
// it.
type PendingMessage struct {
	LocalID    string
	FromUserID string
	ToUserID   string
	Text       string
	CreatedAt  time.Time
	Failed     bool
}

// Entry is one timeline position: exactly one of Pending or Message is set.
type Entry struct {
	Pending *PendingMessage
	Message *domain.Message
}

// Timeline merges the fetched history, the caller's own optimistic sends,
// and live-pushed messages for one open conversation into a single ordered
// view without duplicates. Messages are identified by server ID; ordering is
// (CreatedAt, ID). Safe for use from the stream goroutine and the UI.
type Timeline struct {
	owner   string
	partner string

	mu        sync.Mutex
	confirmed map[int64]*domain.Message
	pending   []*PendingMessage
}

func NewTimeline(owner, partner string) *Timeline {
	return &Timeline{
		owner:     owner,
		partner:   partner,
		confirmed: make(map[int64]*domain.Message),
	}
}

// SetHistory loads a fresh history fetch. Messages outside this conversation
// are ignored; earlier confirmed entries are kept (the union is deduplicated
// by ID anyway).
func (t *Timeline) SetHistory(msgs []*domain.Message) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, m := range msgs {
		if t.belongs(m) {
			t.confirmed[m.ID] = m
		}
	}
}

// AppendPending records an optimistic send and returns its local ID.
func (t *Timeline) AppendPending(text string) string {
	p := &PendingMessage{
		LocalID:    uuid.NewString(),
		FromUserID: t.owner,
		ToUserID:   t.partner,
		Text:       text,
		CreatedAt:  time.Now(),
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pending = append(t.pending, p)
	return p.LocalID
}

// Confirm replaces the pending entry with the server-confirmed message from
// the send response. Unknown local IDs just add the message.
func (t *Timeline) Confirm(localID string, msg *domain.Message) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, p := range t.pending {
		if p.LocalID == localID {
			t.pending = append(t.pending[:i], t.pending[i+1:]...)
			break
		}
	}
	if t.belongs(msg) {
		t.confirmed[msg.ID] = msg
	}
}

// MarkFailed flags a pending entry whose send was rejected. It stays visible
// so the user can see the failure; no automatic retry.
func (t *Timeline) MarkFailed(localID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, p := range t.pending {
		if p.LocalID == localID {
			p.Failed = true
			return
		}
	}
}

// AddLive folds in a live-pushed message. Returns false when the message is
// for a different conversation or already present.
func (t *Timeline) AddLive(msg *domain.Message) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.belongs(msg) {
		return false
	}
	if _, exists := t.confirmed[msg.ID]; exists {
		return false
	}
	t.confirmed[msg.ID] = msg
	return true
}

// Entries returns the ordered timeline: confirmed messages by
// (CreatedAt, ID), then pending sends in submission order.
func (t *Timeline) Entries() []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()

	msgs := make([]*domain.Message, 0, len(t.confirmed))
	for _, m := range t.confirmed {
		msgs = append(msgs, m)
	}
	sort.Slice(msgs, func(i, j int) bool {
		if !msgs[i].CreatedAt.Equal(msgs[j].CreatedAt) {
			return msgs[i].CreatedAt.Before(msgs[j].CreatedAt)
		}
		return msgs[i].ID < msgs[j].ID
	})

	entries := make([]Entry, 0, len(msgs)+len(t.pending))
	for _, m := range msgs {
		entries = append(entries, Entry{Message: m})
	}
	for _, p := range t.pending {
		entries = append(entries, Entry{Pending: p})
	}
	return entries
}

func (t *Timeline) belongs(m *domain.Message) bool {
	return (m.FromUserID == t.owner && m.ToUserID == t.partner) ||
		(m.FromUserID == t.partner && m.ToUserID == t.owner)
}
