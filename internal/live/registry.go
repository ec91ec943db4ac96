// Package live routes just-created messages to their recipient's open
// event channel. Delivery is best-effort and at-most-once: there is no queue
// and no retry, an offline recipient gets the message on their next history
// fetch.
package live

import (
	"log/slog"
	"sync"
)

// subscriptionBuffer bounds how many undelivered events a slow consumer may
// accumulate before the registry treats the channel as dead.
const subscriptionBuffer = 32

// Event is a named payload pushed to a subscriber.
type Event struct {
	Name string
	Data any
}

// Subscription is one user's live channel. C is closed when the subscription
// is replaced by a newer one or torn down by a failed write.
type Subscription struct {
	UserID string
	C      chan Event
}

// Registry is the process-local routing table from user ID to their single
// active subscription. A new registration for the same user replaces the
// prior one (newest connection wins).
type Registry struct {
	logger *slog.Logger

	mu   sync.Mutex
	subs map[string]*Subscription
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger: logger,
		subs:   make(map[string]*Subscription),
	}
}

// Register creates a subscription for the user, replacing and closing any
// existing one.
func (r *Registry) Register(userID string) *Subscription {
	sub := &Subscription{
		UserID: userID,
		C:      make(chan Event, subscriptionBuffer),
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.subs[userID]; ok {
		close(prev.C)
		r.logger.Debug("live: replaced subscription", "user_id", userID)
	}
	r.subs[userID] = sub
	return sub
}

// Unregister removes the subscription if it is still the current one for its
// user. A handler whose subscription was already replaced must not tear down
// its successor. Safe to call with a stale subscription; no-op then.
func (r *Registry) Unregister(sub *Subscription) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if current, ok := r.subs[sub.UserID]; ok && current == sub {
		delete(r.subs, sub.UserID)
		close(sub.C)
	}
}

// Push delivers the event to the user's subscription if one exists. Returns
// true only when the event was handed to the channel. A full channel means
// the consumer is dead or wedged; the subscription is dropped (implicit
// unregister) and the event discarded.
func (r *Registry) Push(userID string, ev Event) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub, ok := r.subs[userID]
	if !ok {
		return false
	}

	select {
	case sub.C <- ev:
		return true
	default:
		delete(r.subs, userID)
		close(sub.C)
		r.logger.Warn("live: dropped wedged subscription", "user_id", userID)
		return false
	}
}

// Connected reports whether the user currently has a subscription.
func (r *Registry) Connected(userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.subs[userID]
	return ok
}
