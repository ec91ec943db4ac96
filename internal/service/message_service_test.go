package service_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"pingup_go/internal/domain"
	"pingup_go/internal/live"
	"pingup_go/internal/service"
)

// Mocks

type MockMessageRepo struct {
	mock.Mock
}

func (m *MockMessageRepo) Append(ctx context.Context, msg *domain.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockMessageRepo) HistoryBetween(ctx context.Context, userA, userB string, before int64, limit int) ([]*domain.Message, error) {
	args := m.Called(ctx, userA, userB, before, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Message), args.Error(1)
}

func (m *MockMessageRepo) MarkSeen(ctx context.Context, owner, partner string) (int64, error) {
	args := m.Called(ctx, owner, partner)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockMessageRepo) RecentConversations(ctx context.Context, owner string) ([]*domain.ConversationRow, error) {
	args := m.Called(ctx, owner)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ConversationRow), args.Error(1)
}

type MockUserRepo struct {
	mock.Mock
}

func (m *MockUserRepo) Create(ctx context.Context, u *domain.User) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

func (m *MockUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepo) GetByIDs(ctx context.Context, ids []string) (map[string]*domain.User, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]*domain.User), args.Error(1)
}

func (m *MockUserRepo) TouchLastSeen(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockMediaStore struct {
	mock.Mock
}

func (m *MockMediaStore) Store(ctx context.Context, ownerID, filename, contentType string, data []byte) (string, error) {
	args := m.Called(ctx, ownerID, filename, contentType, data)
	return args.String(0), args.Error(1)
}

// fakePusher records pushes and reports a configurable delivery outcome.
type fakePusher struct {
	delivered bool
	pushes    []live.Event
	users     []string
}

func (f *fakePusher) Push(userID string, ev live.Event) bool {
	f.users = append(f.users, userID)
	f.pushes = append(f.pushes, ev)
	return f.delivered
}

func newService(msgs *MockMessageRepo, users *MockUserRepo, media *MockMediaStore, pusher *fakePusher) *service.MessageService {
	return service.NewMessageService(msgs, users, media, pusher, slog.Default())
}

func TestSend(t *testing.T) {
	ctx := context.Background()
	bob := &domain.User{ID: "bob", Username: "bob", IsActive: true}

	t.Run("PersistsAndPushes", func(t *testing.T) {
		msgs := new(MockMessageRepo)
		users := new(MockUserRepo)
		pusher := &fakePusher{delivered: true}
		svc := newService(msgs, users, new(MockMediaStore), pusher)

		users.On("GetByID", mock.Anything, "bob").Return(bob, nil)
		msgs.On("Append", mock.Anything, mock.MatchedBy(func(m *domain.Message) bool {
			return m.FromUserID == "alice" && m.ToUserID == "bob" && m.Text == "hi" && !m.Seen
		})).Run(func(args mock.Arguments) {
			args.Get(1).(*domain.Message).ID = 42
		}).Return(nil)

		msg, err := svc.Send(ctx, "alice", service.SendInput{ToUserID: "bob", Text: "hi"})
		require.NoError(t, err)
		assert.EqualValues(t, 42, msg.ID)
		assert.Equal(t, domain.MessageKindText, msg.Kind)

		require.Len(t, pusher.pushes, 1)
		assert.Equal(t, []string{"bob"}, pusher.users)
		assert.Equal(t, live.EventNewMessage, pusher.pushes[0].Name)
		assert.Same(t, msg, pusher.pushes[0].Data.(*domain.Message))
	})

	t.Run("PushFailureDoesNotFailSend", func(t *testing.T) {
		msgs := new(MockMessageRepo)
		users := new(MockUserRepo)
		pusher := &fakePusher{delivered: false}
		svc := newService(msgs, users, new(MockMediaStore), pusher)

		users.On("GetByID", mock.Anything, "bob").Return(bob, nil)
		msgs.On("Append", mock.Anything, mock.Anything).Return(nil)

		msg, err := svc.Send(ctx, "alice", service.SendInput{ToUserID: "bob", Text: "hi"})
		require.NoError(t, err)
		assert.NotNil(t, msg)
	})

	t.Run("RequiresTextOrMedia", func(t *testing.T) {
		svc := newService(new(MockMessageRepo), new(MockUserRepo), new(MockMediaStore), &fakePusher{})

		_, err := svc.Send(ctx, "alice", service.SendInput{ToUserID: "bob"})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("RequiresRecipient", func(t *testing.T) {
		svc := newService(new(MockMessageRepo), new(MockUserRepo), new(MockMediaStore), &fakePusher{})

		_, err := svc.Send(ctx, "alice", service.SendInput{Text: "hi"})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("RejectsSelfMessage", func(t *testing.T) {
		svc := newService(new(MockMessageRepo), new(MockUserRepo), new(MockMediaStore), &fakePusher{})

		_, err := svc.Send(ctx, "alice", service.SendInput{ToUserID: "alice", Text: "hi"})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("UnknownRecipientIsUnauthorized", func(t *testing.T) {
		msgs := new(MockMessageRepo)
		users := new(MockUserRepo)
		svc := newService(msgs, users, new(MockMediaStore), &fakePusher{})

		users.On("GetByID", mock.Anything, "ghost").Return(nil, nil)

		_, err := svc.Send(ctx, "alice", service.SendInput{ToUserID: "ghost", Text: "hi"})
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
		msgs.AssertNotCalled(t, "Append")
	})

	t.Run("MediaUploadFailureAbortsSend", func(t *testing.T) {
		msgs := new(MockMessageRepo)
		users := new(MockUserRepo)
		media := new(MockMediaStore)
		pusher := &fakePusher{}
		svc := newService(msgs, users, media, pusher)

		users.On("GetByID", mock.Anything, "bob").Return(bob, nil)
		media.On("Store", mock.Anything, "alice", "pic.jpg", "image/jpeg", mock.Anything).
			Return("", domain.ErrMediaUpload)

		_, err := svc.Send(ctx, "alice", service.SendInput{
			ToUserID: "bob",
			Media:    &service.MediaInput{Filename: "pic.jpg", ContentType: "image/jpeg", Data: []byte{1}},
		})
		assert.ErrorIs(t, err, domain.ErrMediaUpload)
		msgs.AssertNotCalled(t, "Append")
		assert.Empty(t, pusher.pushes)
	})

	t.Run("MediaSendGetsImageKindAndURL", func(t *testing.T) {
		msgs := new(MockMessageRepo)
		users := new(MockUserRepo)
		media := new(MockMediaStore)
		svc := newService(msgs, users, media, &fakePusher{delivered: true})

		users.On("GetByID", mock.Anything, "bob").Return(bob, nil)
		media.On("Store", mock.Anything, "alice", "pic.jpg", "image/jpeg", mock.Anything).
			Return("/api/uploads/alice/1.jpg", nil)
		msgs.On("Append", mock.Anything, mock.Anything).Return(nil)

		msg, err := svc.Send(ctx, "alice", service.SendInput{
			ToUserID: "bob",
			Media:    &service.MediaInput{Filename: "pic.jpg", ContentType: "image/jpeg", Data: []byte{1}},
		})
		require.NoError(t, err)
		assert.Equal(t, domain.MessageKindImage, msg.Kind)
		assert.Equal(t, "/api/uploads/alice/1.jpg", msg.MediaURL)
	})

	t.Run("StoreFailureIsStoreUnavailable", func(t *testing.T) {
		msgs := new(MockMessageRepo)
		users := new(MockUserRepo)
		svc := newService(msgs, users, new(MockMediaStore), &fakePusher{})

		users.On("GetByID", mock.Anything, "bob").Return(bob, nil)
		msgs.On("Append", mock.Anything, mock.Anything).Return(errors.New("disk on fire"))

		_, err := svc.Send(ctx, "alice", service.SendInput{ToUserID: "bob", Text: "hi"})
		assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
	})
}

func TestHistory(t *testing.T) {
	ctx := context.Background()
	bob := &domain.User{ID: "bob", Username: "bob", IsActive: true}

	t.Run("PassesThrough", func(t *testing.T) {
		msgs := new(MockMessageRepo)
		users := new(MockUserRepo)
		svc := newService(msgs, users, new(MockMediaStore), &fakePusher{})

		expected := []*domain.Message{{ID: 1, FromUserID: "alice", ToUserID: "bob", Text: "hi"}}
		users.On("GetByID", mock.Anything, "bob").Return(bob, nil)
		msgs.On("HistoryBetween", mock.Anything, "alice", "bob", int64(0), 0).Return(expected, nil)

		got, err := svc.History(ctx, "alice", "bob", 0, 0)
		require.NoError(t, err)
		assert.Equal(t, expected, got)
	})

	t.Run("UnknownPartnerIsUnauthorized", func(t *testing.T) {
		msgs := new(MockMessageRepo)
		users := new(MockUserRepo)
		svc := newService(msgs, users, new(MockMediaStore), &fakePusher{})

		users.On("GetByID", mock.Anything, "ghost").Return(nil, nil)

		_, err := svc.History(ctx, "alice", "ghost", 0, 0)
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})

	t.Run("MissingPartnerIsValidation", func(t *testing.T) {
		svc := newService(new(MockMessageRepo), new(MockUserRepo), new(MockMediaStore), &fakePusher{})

		_, err := svc.History(ctx, "alice", "", 0, 0)
		assert.ErrorIs(t, err, domain.ErrValidation)
	})
}

func TestRecentConversationsAttachesProfiles(t *testing.T) {
	ctx := context.Background()
	msgs := new(MockMessageRepo)
	users := new(MockUserRepo)
	svc := newService(msgs, users, new(MockMediaStore), &fakePusher{})

	now := time.Now()
	rows := []*domain.ConversationRow{
		{PartnerID: "bob", LastMessage: &domain.Message{ID: 2, CreatedAt: now}, UnseenCount: 1},
		{PartnerID: "gone", LastMessage: &domain.Message{ID: 1, CreatedAt: now.Add(-time.Hour)}},
	}
	msgs.On("RecentConversations", mock.Anything, "alice").Return(rows, nil)
	users.On("GetByIDs", mock.Anything, []string{"bob", "gone"}).Return(map[string]*domain.User{
		"bob": {ID: "bob", Username: "bob", FullName: "Bob B"},
	}, nil)

	convs, err := svc.RecentConversations(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, convs, 2)

	assert.Equal(t, "bob", convs[0].Partner.ID)
	assert.Equal(t, "Bob B", convs[0].Partner.FullName)
	assert.Equal(t, 1, convs[0].UnseenCount)

	// deleted account: conversation stays addressable with a bare summary
	assert.Equal(t, "gone", convs[1].Partner.ID)
	assert.Empty(t, convs[1].Partner.Username)
}

func TestMarkSeenPassesThrough(t *testing.T) {
	ctx := context.Background()
	msgs := new(MockMessageRepo)
	svc := newService(msgs, new(MockUserRepo), new(MockMediaStore), &fakePusher{})

	msgs.On("MarkSeen", mock.Anything, "alice", "bob").Return(int64(3), nil).Once()
	msgs.On("MarkSeen", mock.Anything, "alice", "bob").Return(int64(0), nil).Once()

	n, err := svc.MarkSeen(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	// idempotent: nothing left to flip
	n, err = svc.MarkSeen(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)
}
