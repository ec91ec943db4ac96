package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"

	"pingup_go/internal/domain"
	"pingup_go/internal/live"
)

// LivePusher is the delivery side of the live registry. Push reports whether
// the event reached an open channel; the service never acts on the outcome
// beyond logging it.
type LivePusher interface {
	Push(userID string, ev live.Event) bool
}

// MessageService ties the message store, the conversation aggregation, the
// media collaborator, and live delivery together.
type MessageService struct {
	messages domain.MessageRepository
	users    domain.UserRepository
	media    domain.MediaStore
	pusher   LivePusher
	validate *validator.Validate
	logger   *slog.Logger
}

func NewMessageService(
	messages domain.MessageRepository,
	users domain.UserRepository,
	media domain.MediaStore,
	pusher LivePusher,
	logger *slog.Logger,
) *MessageService {
	return &MessageService{
		messages: messages,
		users:    users,
		media:    media,
		pusher:   pusher,
		validate: validator.New(),
		logger:   logger,
	}
}

// MediaInput is an in-memory attachment received at the HTTP boundary.
type MediaInput struct {
	Filename    string
	ContentType string
	Data        []byte
}

// SendInput is the strict request schema for Send, validated once here
// regardless of which wire representation it arrived in.
type SendInput struct {
	ToUserID string `validate:"required"`
	Text     string `validate:"max=5000"`
	Media    *MediaInput
}

// Send validates the input, stores the attachment if any, persists the
// message, and attempts live delivery to the recipient. Push failure never
// fails the send; the persisted message is returned regardless.
func (s *MessageService) Send(ctx context.Context, fromUserID string, in SendInput) (*domain.Message, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	if in.Text == "" && in.Media == nil {
		return nil, fmt.Errorf("%w: message text or media is required", domain.ErrValidation)
	}
	if in.ToUserID == fromUserID {
		return nil, fmt.Errorf("%w: cannot message yourself", domain.ErrValidation)
	}

	recipient, err := s.users.GetByID(ctx, in.ToUserID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	if recipient == nil {
		return nil, fmt.Errorf("%w: unknown recipient", domain.ErrUnauthorized)
	}

	mediaURL := ""
	kind := domain.MessageKindText
	if in.Media != nil {
		mediaURL, err = s.media.Store(ctx, fromUserID, in.Media.Filename, in.Media.ContentType, in.Media.Data)
		if err != nil {
			// never persist a message missing its required media
			return nil, err
		}
		kind = domain.MessageKindImage
	}

	msg := &domain.Message{
		FromUserID: fromUserID,
		ToUserID:   in.ToUserID,
		Text:       in.Text,
		MediaURL:   mediaURL,
		Kind:       kind,
		Seen:       false,
	}
	if err := s.messages.Append(ctx, msg); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}

	delivered := s.pusher.Push(msg.ToUserID, live.Event{Name: live.EventNewMessage, Data: msg})
	s.logger.Debug("message sent",
		"message_id", msg.ID,
		"from", msg.FromUserID,
		"to", msg.ToUserID,
		"delivered_live", delivered,
	)

	return msg, nil
}

// History returns the conversation between the caller and partner, oldest
// first. The caller is always one side of the pair, so participation is
// implied; an unresolvable partner is an authorization failure.
func (s *MessageService) History(ctx context.Context, callerID, partnerID string, before int64, limit int) ([]*domain.Message, error) {
	if partnerID == "" {
		return nil, fmt.Errorf("%w: partner user id is required", domain.ErrValidation)
	}

	partner, err := s.users.GetByID(ctx, partnerID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	if partner == nil {
		return nil, fmt.Errorf("%w: unknown partner", domain.ErrUnauthorized)
	}

	msgs, err := s.messages.HistoryBetween(ctx, callerID, partnerID, before, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	return msgs, nil
}

// RecentConversations aggregates the owner's messages into per-partner
// conversations, most recently active first, with public profile summaries
// attached.
func (s *MessageService) RecentConversations(ctx context.Context, ownerID string) ([]*domain.Conversation, error) {
	rows, err := s.messages.RecentConversations(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}

	partnerIDs := lo.Map(rows, func(row *domain.ConversationRow, _ int) string {
		return row.PartnerID
	})
	profiles, err := s.users.GetByIDs(ctx, partnerIDs)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}

	return lo.Map(rows, func(row *domain.ConversationRow, _ int) *domain.Conversation {
		partner := profiles[row.PartnerID].Summary()
		if partner == nil {
			// deleted account; keep the conversation addressable
			partner = &domain.UserSummary{ID: row.PartnerID}
		}
		return &domain.Conversation{
			Partner:     partner,
			LastMessage: row.LastMessage,
			UnseenCount: row.UnseenCount,
		}
	}), nil
}

// MarkSeen flips all unseen messages from partner to owner and returns how
// many were changed. Calling it again without new messages changes nothing.
func (s *MessageService) MarkSeen(ctx context.Context, ownerID, partnerID string) (int64, error) {
	if partnerID == "" {
		return 0, fmt.Errorf("%w: partner user id is required", domain.ErrValidation)
	}
	n, err := s.messages.MarkSeen(ctx, ownerID, partnerID)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	return n, nil
}
