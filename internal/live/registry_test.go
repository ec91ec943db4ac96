package live

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry() *Registry {
	return NewRegistry(slog.Default())
}

func TestPushDeliversToRegisteredUser(t *testing.T) {
	r := newTestRegistry()
	sub := r.Register("alice")

	ok := r.Push("alice", Event{Name: EventNewMessage, Data: "hi"})
	require.True(t, ok)

	ev := <-sub.C
	assert.Equal(t, EventNewMessage, ev.Name)
	assert.Equal(t, "hi", ev.Data)
}

func TestPushToUnregisteredUserIsDropped(t *testing.T) {
	r := newTestRegistry()

	ok := r.Push("nobody", Event{Name: EventNewMessage})
	assert.False(t, ok)
}

func TestRegisterReplacesExistingSubscription(t *testing.T) {
	r := newTestRegistry()
	old := r.Register("alice")
	newer := r.Register("alice")

	// the replaced channel is closed so its handler exits
	_, open := <-old.C
	assert.False(t, open)

	ok := r.Push("alice", Event{Name: EventNewMessage, Data: "only-new"})
	require.True(t, ok)

	ev := <-newer.C
	assert.Equal(t, "only-new", ev.Data)
}

func TestUnregisterIsIdempotentAndScoped(t *testing.T) {
	r := newTestRegistry()
	sub := r.Register("alice")

	r.Unregister(sub)
	assert.False(t, r.Connected("alice"))

	// second unregister of the same subscription is a no-op
	r.Unregister(sub)

	// a stale handler must not tear down its replacement
	stale := r.Register("bob")
	current := r.Register("bob")
	r.Unregister(stale)
	assert.True(t, r.Connected("bob"))

	r.Unregister(current)
	assert.False(t, r.Connected("bob"))
}

func TestPushToWedgedSubscriberUnregisters(t *testing.T) {
	r := newTestRegistry()
	sub := r.Register("alice")

	// fill the buffer without consuming
	for i := 0; i < subscriptionBuffer; i++ {
		require.True(t, r.Push("alice", Event{Name: EventNewMessage, Data: i}))
	}

	// one more write fails and drops the subscription
	assert.False(t, r.Push("alice", Event{Name: EventNewMessage}))
	assert.False(t, r.Connected("alice"))

	// buffered events remain readable, then the channel closes
	for i := 0; i < subscriptionBuffer; i++ {
		ev, open := <-sub.C
		require.True(t, open)
		assert.Equal(t, i, ev.Data)
	}
	_, open := <-sub.C
	assert.False(t, open)
}
