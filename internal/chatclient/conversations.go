package chatclient

import (
	"sort"
	"sync"

	"pingup_go/internal/domain"
)

// ConversationList is the client-side conversation index backing the sidebar
// and the unseen-count badge. It unions the server's recent-conversations
// aggregate with the user's connection list so a fresh connection with no
// history still appears, and it bumps unseen counts from live events for
// whichever conversation is not currently open.
type ConversationList struct {
	owner string

	mu   sync.Mutex
	byID map[string]*domain.Conversation
}

func NewConversationList(owner string) *ConversationList {
	return &ConversationList{
		owner: owner,
		byID:  make(map[string]*domain.Conversation),
	}
}

// Set replaces the list from a recent-conversations fetch plus the
// connections list. Connections without any message history get a nil last
// message and zero unseen.
func (l *ConversationList) Set(recent []*domain.Conversation, connections []*domain.UserSummary) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.byID = make(map[string]*domain.Conversation, len(recent)+len(connections))
	for _, c := range recent {
		l.byID[c.Partner.ID] = c
	}
	for _, u := range connections {
		if _, ok := l.byID[u.ID]; !ok {
			l.byID[u.ID] = &domain.Conversation{Partner: u}
		}
	}
}

// ApplyLive folds a live-pushed message into the list: it becomes the
// conversation's last message, and the unseen count grows unless the
// conversation is the one currently open (openPartnerID).
func (l *ConversationList) ApplyLive(msg *domain.Message, openPartnerID string) {
	if msg.ToUserID != l.owner {
		return
	}
	partnerID := msg.FromUserID

	l.mu.Lock()
	defer l.mu.Unlock()

	conv, ok := l.byID[partnerID]
	if !ok {
		conv = &domain.Conversation{Partner: &domain.UserSummary{ID: partnerID}}
		l.byID[partnerID] = conv
	}
	conv.LastMessage = msg
	if partnerID != openPartnerID {
		conv.UnseenCount++
	}
}

// ClearUnseen zeroes a conversation's unseen count, mirroring a mark-seen
// call to the server when that conversation is opened.
func (l *ConversationList) ClearUnseen(partnerID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if conv, ok := l.byID[partnerID]; ok {
		conv.UnseenCount = 0
	}
}

// TotalUnseen is the global badge value.
func (l *ConversationList) TotalUnseen() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	total := 0
	for _, c := range l.byID {
		total += c.UnseenCount
	}
	return total
}

// Ordered returns conversations most recently active first; conversations
// without messages sort last, by partner username.
func (l *ConversationList) Ordered() []*domain.Conversation {
	l.mu.Lock()
	defer l.mu.Unlock()

	res := make([]*domain.Conversation, 0, len(l.byID))
	for _, c := range l.byID {
		res = append(res, c)
	}
	sort.Slice(res, func(i, j int) bool {
		a, b := res[i], res[j]
		switch {
		case a.LastMessage == nil && b.LastMessage == nil:
			return a.Partner.Username < b.Partner.Username
		case a.LastMessage == nil:
			return false
		case b.LastMessage == nil:
			return true
		case !a.LastMessage.CreatedAt.Equal(b.LastMessage.CreatedAt):
			return a.LastMessage.CreatedAt.After(b.LastMessage.CreatedAt)
		default:
			return a.LastMessage.ID > b.LastMessage.ID
		}
	})
	return res
}
