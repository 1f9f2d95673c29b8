package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pysend/pysend/internal/domain"
	"github.com/pysend/pysend/internal/repository"
	"github.com/pysend/pysend/pkg/validator"
)

// historyWindow bounds the fetched message window: newest-first truncation,
// reordered ascending by the repository.
const historyWindow = 50

// History is the message store adapter. One normalized fetch serves initial
// load, polling, and push-triggered fetch.
type History struct {
	messages   repository.MessageRepository
	members    repository.MembershipRepository
	moderation repository.ModerationRepository
	gate       *BanGate
}

func NewHistory(
	messages repository.MessageRepository,
	members repository.MembershipRepository,
	moderation repository.ModerationRepository,
	gate *BanGate,
) *History {
	return &History{
		messages:   messages,
		members:    members,
		moderation: moderation,
		gate:       gate,
	}
}

// Load returns the latest window of messages with each author's present
// effective role, so a demoted or promoted member's historical messages show
// the role they hold now.
func (h *History) Load(ctx context.Context, channel *domain.Channel) ([]domain.Message, error) {
	messages, err := h.messages.ListRecent(ctx, channel.ID, historyWindow)
	if err != nil {
		return nil, fmt.Errorf("loading history: %w", err)
	}

	roles, err := h.moderation.ListChannelRoles(ctx, channel.ID)
	if err != nil {
		return nil, fmt.Errorf("loading channel roles: %w", err)
	}
	byUser := make(map[uuid.UUID]*domain.ChannelRole, len(roles))
	for i := range roles {
		byUser[roles[i].UserID] = &roles[i]
	}

	for i := range messages {
		msg := &messages[i]
		msg.Role = EffectiveRole(msg.UserID, channel, msg.AuthorGlobalRole, byUser[msg.UserID])
	}
	return messages, nil
}

// Resolve hydrates a push-delivered row the same way Load does.
func (h *History) Resolve(ctx context.Context, channel *domain.Channel, id uuid.UUID) (*domain.Message, error) {
	msg, err := h.messages.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if msg == nil {
		return nil, nil
	}
	stored, err := h.moderation.GetChannelRole(ctx, channel.ID, msg.UserID)
	if err != nil {
		return nil, err
	}
	msg.Role = EffectiveRole(msg.UserID, channel, msg.AuthorGlobalRole, stored)
	return msg, nil
}

// Send re-runs the ban gate and membership bookkeeping, writes the row, and
// returns the persisted row so the sender renders from authoritative data
// rather than guessing the id.
func (h *History) Send(ctx context.Context, sender *domain.Profile, channel *domain.Channel, body string) (*domain.Message, error) {
	if errs := validator.ValidateMessageBody(body); errs.HasErrors() {
		return nil, &ValidationError{Fields: errs}
	}

	if err := h.gate.CheckSend(ctx, channel.ID, sender.ID); err != nil {
		return nil, err
	}

	if err := h.members.Upsert(ctx, domain.Membership{
		ChannelID: channel.ID,
		UserID:    sender.ID,
		LastSeen:  time.Now(),
	}); err != nil {
		return nil, fmt.Errorf("upserting membership: %w", err)
	}

	msg := &domain.Message{
		ID:        uuid.New(),
		ChannelID: channel.ID,
		UserID:    sender.ID,
		Body:      body,
		CreatedAt: time.Now(),
	}
	if err := h.messages.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("creating message: %w", err)
	}

	full, err := h.Resolve(ctx, channel, msg.ID)
	if err != nil {
		return nil, err
	}
	if full == nil {
		return nil, fmt.Errorf("message %s vanished after insert", msg.ID)
	}
	return full, nil
}
