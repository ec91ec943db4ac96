package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pingup_go/internal/domain"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, Migrate(db))
	return db
}

func seedUser(t *testing.T, db *sql.DB, username string) string {
	t.Helper()
	u := &domain.User{
		ID:             uuid.NewString(),
		Username:       username,
		HashedPassword: "x",
		IsActive:       true,
	}
	require.NoError(t, NewUserRepo(db).Create(context.Background(), u))
	return u.ID
}

func appendText(t *testing.T, repo *MessageRepo, from, to, text string, at time.Time) *domain.Message {
	t.Helper()
	m := &domain.Message{
		FromUserID: from,
		ToUserID:   to,
		Text:       text,
		Kind:       domain.MessageKindText,
		CreatedAt:  at,
	}
	require.NoError(t, repo.Append(context.Background(), m))
	return m
}

func TestAppendAndHistoryOrdering(t *testing.T) {
	db := openTestDB(t)
	repo := NewMessageRepo(db)
	ctx := context.Background()

	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	carol := seedUser(t, db, "carol")

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	m1 := appendText(t, repo, alice, bob, "hi", base)
	m2 := appendText(t, repo, bob, alice, "hello", base.Add(time.Minute))
	m3 := appendText(t, repo, alice, bob, "how are you", base.Add(2*time.Minute))
	// unrelated conversation must not leak in
	appendText(t, repo, alice, carol, "other thread", base.Add(3*time.Minute))

	assert.Positive(t, m1.ID)
	assert.Greater(t, m2.ID, m1.ID)

	history, err := repo.HistoryBetween(ctx, alice, bob, 0, 0)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, m1.ID, history[0].ID)
	assert.Equal(t, m2.ID, history[1].ID)
	assert.Equal(t, m3.ID, history[2].ID)
	assert.False(t, history[0].Seen)

	// symmetric: same history from either participant's side
	mirrored, err := repo.HistoryBetween(ctx, bob, alice, 0, 0)
	require.NoError(t, err)
	require.Len(t, mirrored, 3)
	assert.Equal(t, history[0].ID, mirrored[0].ID)
}

func TestHistoryPagination(t *testing.T) {
	db := openTestDB(t)
	repo := NewMessageRepo(db)
	ctx := context.Background()

	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	var all []*domain.Message
	for i := 0; i < 5; i++ {
		all = append(all, appendText(t, repo, alice, bob, "m", base.Add(time.Duration(i)*time.Minute)))
	}

	// limit keeps the newest page, still chronological
	page, err := repo.HistoryBetween(ctx, alice, bob, 0, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, all[3].ID, page[0].ID)
	assert.Equal(t, all[4].ID, page[1].ID)

	// cursor walks backwards
	older, err := repo.HistoryBetween(ctx, alice, bob, page[0].ID, 2)
	require.NoError(t, err)
	require.Len(t, older, 2)
	assert.Equal(t, all[1].ID, older[0].ID)
	assert.Equal(t, all[2].ID, older[1].ID)

	// cursor without a limit returns everything older
	rest, err := repo.HistoryBetween(ctx, alice, bob, all[3].ID, 0)
	require.NoError(t, err)
	require.Len(t, rest, 3)
	assert.Equal(t, all[0].ID, rest[0].ID)
	assert.Equal(t, all[2].ID, rest[2].ID)
}

func TestMarkSeenIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	repo := NewMessageRepo(db)
	ctx := context.Background()

	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	appendText(t, repo, alice, bob, "one", base)
	appendText(t, repo, alice, bob, "two", base.Add(time.Minute))
	// bob's own message must not be flipped by his mark-seen
	appendText(t, repo, bob, alice, "reply", base.Add(2*time.Minute))

	n, err := repo.MarkSeen(ctx, bob, alice)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	n, err = repo.MarkSeen(ctx, bob, alice)
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)

	history, err := repo.HistoryBetween(ctx, alice, bob, 0, 0)
	require.NoError(t, err)
	assert.True(t, history[0].Seen)
	assert.True(t, history[1].Seen)
	assert.False(t, history[2].Seen) // alice has not marked bob's reply
}

func TestRecentConversations(t *testing.T) {
	db := openTestDB(t)
	repo := NewMessageRepo(db)
	ctx := context.Background()

	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	carol := seedUser(t, db, "carol")

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	appendText(t, repo, bob, alice, "from bob 1", base)
	appendText(t, repo, bob, alice, "from bob 2", base.Add(time.Minute))
	lastCarol := appendText(t, repo, carol, alice, "from carol", base.Add(2*time.Minute))

	rows, err := repo.RecentConversations(ctx, alice)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	// most recently active first
	assert.Equal(t, carol, rows[0].PartnerID)
	assert.Equal(t, lastCarol.ID, rows[0].LastMessage.ID)
	assert.Equal(t, 1, rows[0].UnseenCount)

	assert.Equal(t, bob, rows[1].PartnerID)
	assert.Equal(t, "from bob 2", rows[1].LastMessage.Text)
	assert.Equal(t, 2, rows[1].UnseenCount)

	// sum of unseen equals all unseen messages addressed to alice
	total := rows[0].UnseenCount + rows[1].UnseenCount
	assert.Equal(t, 3, total)

	// marking bob's messages seen zeroes only his count
	_, err = repo.MarkSeen(ctx, alice, bob)
	require.NoError(t, err)
	rows, err = repo.RecentConversations(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, 1, rows[0].UnseenCount)
	assert.Equal(t, 0, rows[1].UnseenCount)
}

func TestRecentConversationsCountsOnlyInboundUnseen(t *testing.T) {
	db := openTestDB(t)
	repo := NewMessageRepo(db)
	ctx := context.Background()

	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	appendText(t, repo, alice, bob, "sent by owner", base)

	rows, err := repo.RecentConversations(ctx, alice)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, bob, rows[0].PartnerID)
	assert.Equal(t, 0, rows[0].UnseenCount)

	// but bob sees one unseen
	rows, err = repo.RecentConversations(ctx, bob)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 1, rows[0].UnseenCount)
}
