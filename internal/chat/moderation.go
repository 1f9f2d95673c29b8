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

// Moderation implements the role-gated moderation actions. Every operation
// re-fetches the actor's authoritative role immediately before acting; a
// cached role is never trusted, since another actor can change it in the
// store mid-session.
type Moderation struct {
	moderation repository.ModerationRepository
	profiles   repository.ProfileRepository
	channels   repository.ChannelRepository
	now        func() time.Time
}

func NewModeration(
	moderation repository.ModerationRepository,
	profiles repository.ProfileRepository,
	channels repository.ChannelRepository,
) *Moderation {
	return &Moderation{
		moderation: moderation,
		profiles:   profiles,
		channels:   channels,
		now:        time.Now,
	}
}

// actorRole computes the actor's effective role from fresh store state.
// Fails closed: any read error denies.
func (m *Moderation) actorRole(ctx context.Context, actorID uuid.UUID, channel *domain.Channel) (domain.Role, error) {
	profile, err := m.profiles.GetByID(ctx, actorID)
	if err != nil || profile == nil {
		return domain.RoleUser, ErrAccessDenied
	}
	stored, err := m.moderation.GetChannelRole(ctx, channel.ID, actorID)
	if err != nil {
		return domain.RoleUser, ErrAccessDenied
	}
	return EffectiveRole(actorID, channel, profile.GlobalRole, stored), nil
}

// Warn issues a warning notice. Requires guardian or above; no ban side
// effect.
func (m *Moderation) Warn(ctx context.Context, actorID uuid.UUID, channel *domain.Channel, targetID uuid.UUID, reason string) error {
	role, err := m.actorRole(ctx, actorID, channel)
	if err != nil {
		return err
	}
	if !role.AtLeast(domain.RoleGuardian) {
		return ErrAccessDenied
	}
	if errs := validator.ValidateWarnReason(reason); errs.HasErrors() {
		return &ValidationError{Fields: errs}
	}

	channelID := channel.ID
	notice := &domain.ModerationNotice{
		ID:         uuid.New(),
		UserID:     targetID,
		IssuedBy:   actorID,
		ChannelID:  &channelID,
		NoticeType: domain.NoticeWarning,
		Reason:     reason,
		CreatedAt:  m.now(),
	}
	if err := m.moderation.CreateNotice(ctx, notice); err != nil {
		return fmt.Errorf("creating warning notice: %w", err)
	}
	return nil
}

// TempBan writes a ChannelBan and a matching notice. Duration floors depend
// on the actor: 5 minutes for a guardian, 1 minute for admin/creator; the
// cap is 1440 minutes. A new ban simply extends or overwrites the active
// window; expiry is implicit once now passes banned_until.
func (m *Moderation) TempBan(ctx context.Context, actorID uuid.UUID, channel *domain.Channel, targetID uuid.UUID, minutes int, reason string) error {
	role, err := m.actorRole(ctx, actorID, channel)
	if err != nil {
		return err
	}
	if !role.AtLeast(domain.RoleGuardian) {
		return ErrAccessDenied
	}
	if errs := validator.ValidateTempBan(role, minutes, reason); errs.HasErrors() {
		return &ValidationError{Fields: errs}
	}

	now := m.now()
	ban := &domain.ChannelBan{
		ID:          uuid.New(),
		ChannelID:   channel.ID,
		UserID:      targetID,
		BannedBy:    actorID,
		Reason:      reason,
		BannedUntil: now.Add(time.Duration(minutes) * time.Minute),
		CreatedAt:   now,
	}
	if err := m.moderation.CreateChannelBan(ctx, ban); err != nil {
		return fmt.Errorf("creating channel ban: %w", err)
	}

	channelID := channel.ID
	notice := &domain.ModerationNotice{
		ID:         uuid.New(),
		UserID:     targetID,
		IssuedBy:   actorID,
		ChannelID:  &channelID,
		NoticeType: domain.NoticeChannelBan,
		Reason:     reason,
		Details:    fmt.Sprintf("banned until %s", ban.BannedUntil.Format(time.RFC3339)),
		CreatedAt:  now,
	}
	if err := m.moderation.CreateNotice(ctx, notice); err != nil {
		return fmt.Errorf("creating ban notice: %w", err)
	}
	return nil
}

// RequestBanToAdmin is the guardian-only escalation. It writes a
// ModerationRequest and takes no enforcement action; adjudication happens
// elsewhere.
func (m *Moderation) RequestBanToAdmin(ctx context.Context, actorID uuid.UUID, channel *domain.Channel, targetID uuid.UUID, reason string) error {
	role, err := m.actorRole(ctx, actorID, channel)
	if err != nil {
		return err
	}
	if role != domain.RoleGuardian {
		return ErrAccessDenied
	}
	if errs := validator.ValidateWarnReason(reason); errs.HasErrors() {
		return &ValidationError{Fields: errs}
	}

	req := &domain.ModerationRequest{
		ID:          uuid.New(),
		ChannelID:   channel.ID,
		RequesterID: actorID,
		TargetID:    targetID,
		Reason:      reason,
		Status:      "open",
		CreatedAt:   m.now(),
	}
	if err := m.moderation.CreateRequest(ctx, req); err != nil {
		return fmt.Errorf("creating moderation request: %w", err)
	}
	return nil
}

// PromoteGuardian upserts a guardian role. Requires admin or creator, and is
// rejected once the channel already holds the guardian cap.
func (m *Moderation) PromoteGuardian(ctx context.Context, actorID uuid.UUID, channel *domain.Channel, targetID uuid.UUID) error {
	role, err := m.actorRole(ctx, actorID, channel)
	if err != nil {
		return err
	}
	if !role.AtLeast(domain.RoleAdmin) {
		return ErrAccessDenied
	}

	existing, err := m.moderation.GetChannelRole(ctx, channel.ID, targetID)
	if err != nil {
		return ErrAccessDenied
	}
	if existing == nil || existing.Role != domain.RoleGuardian {
		count, err := m.moderation.CountGuardians(ctx, channel.ID)
		if err != nil {
			return ErrAccessDenied
		}
		if count >= domain.MaxGuardians {
			errs := make(validator.ValidationErrors)
			errs.Add("role", "Channel already has the maximum number of guardians")
			return &ValidationError{Fields: errs}
		}
	}

	assignment := &domain.ChannelRole{
		ChannelID: channel.ID,
		UserID:    targetID,
		Role:      domain.RoleGuardian,
		GrantedBy: actorID,
		CreatedAt: m.now(),
	}
	if err := m.moderation.UpsertChannelRole(ctx, assignment); err != nil {
		return fmt.Errorf("upserting guardian role: %w", err)
	}
	return nil
}

// PlatformBan blocks session establishment platform-wide for 7 to 60 days.
// It does not retroactively terminate the target's current session.
func (m *Moderation) PlatformBan(ctx context.Context, actorID uuid.UUID, channel *domain.Channel, targetID uuid.UUID, days int, reason string) error {
	role, err := m.actorRole(ctx, actorID, channel)
	if err != nil {
		return err
	}
	if !role.AtLeast(domain.RoleAdmin) {
		return ErrAccessDenied
	}
	if errs := validator.ValidatePlatformBan(days, reason); errs.HasErrors() {
		return &ValidationError{Fields: errs}
	}

	now := m.now()
	ban := &domain.PlatformBan{
		ID:          uuid.New(),
		UserID:      targetID,
		BannedBy:    actorID,
		Reason:      reason,
		BannedUntil: now.Add(time.Duration(days) * 24 * time.Hour),
		CreatedAt:   now,
	}
	if err := m.moderation.CreatePlatformBan(ctx, ban); err != nil {
		return fmt.Errorf("creating platform ban: %w", err)
	}

	notice := &domain.ModerationNotice{
		ID:         uuid.New(),
		UserID:     targetID,
		IssuedBy:   actorID,
		NoticeType: domain.NoticePlatformBan,
		Reason:     reason,
		Details:    fmt.Sprintf("banned until %s", ban.BannedUntil.Format(time.RFC3339)),
		CreatedAt:  now,
	}
	if err := m.moderation.CreateNotice(ctx, notice); err != nil {
		return fmt.Errorf("creating ban notice: %w", err)
	}
	return nil
}

// DeleteChannel is irreversible. Requires admin or creator; the caller
// clears the active-channel view after the store confirms deletion.
func (m *Moderation) DeleteChannel(ctx context.Context, actorID uuid.UUID, channel *domain.Channel) error {
	role, err := m.actorRole(ctx, actorID, channel)
	if err != nil {
		return err
	}
	if !role.AtLeast(domain.RoleAdmin) {
		return ErrAccessDenied
	}
	if err := m.channels.Delete(ctx, channel.ID); err != nil {
		return fmt.Errorf("deleting channel: %w", err)
	}
	return nil
}
