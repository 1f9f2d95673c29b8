package chat

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/pysend/pysend/internal/domain"
	"github.com/pysend/pysend/internal/repository"
)

// BanGate checks channel-level and platform-level ban records before channel
// entry and message send. Both checks fail closed: a store error denies.
type BanGate struct {
	moderation repository.ModerationRepository
	now        func() time.Time
}

func NewBanGate(moderation repository.ModerationRepository) *BanGate {
	return &BanGate{moderation: moderation, now: time.Now}
}

// ActiveChannelBan returns the ban with the greatest banned_until still in
// the future, or nil. Expired bans remain as history and never block.
func (g *BanGate) ActiveChannelBan(ctx context.Context, channelID, userID uuid.UUID) (*domain.ChannelBan, error) {
	return g.moderation.ActiveChannelBan(ctx, channelID, userID, g.now())
}

func (g *BanGate) ActivePlatformBan(ctx context.Context, userID uuid.UUID) (*domain.PlatformBan, error) {
	return g.moderation.ActivePlatformBan(ctx, userID, g.now())
}

// CheckSend rejects a send when a channel ban is active, with the expiry in
// the error. Checked again at send time since a ban may have been applied
// after entry.
func (g *BanGate) CheckSend(ctx context.Context, channelID, userID uuid.UUID) error {
	ban, err := g.moderation.ActiveChannelBan(ctx, channelID, userID, g.now())
	if err != nil {
		return ErrAccessDenied
	}
	if ban != nil {
		return &BanError{Reason: ban.Reason, Until: ban.BannedUntil}
	}
	return nil
}
