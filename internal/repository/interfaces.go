package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/pysend/pysend/internal/domain"
)

type ProfileRepository interface {
	Create(ctx context.Context, profile *domain.Profile) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Profile, error)
	GetByEmail(ctx context.Context, email string) (*domain.Profile, error)
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Profile, error)
	UpdateDisplayName(ctx context.Context, id uuid.UUID, name string) error
	SetGlobalRole(ctx context.Context, id uuid.UUID, role domain.GlobalRole) error
}

type ChannelRepository interface {
	Create(ctx context.Context, channel *domain.Channel) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Channel, error)
	GetByDMPair(ctx context.Context, pair string) (*domain.Channel, error)
	ListPublic(ctx context.Context) ([]domain.Channel, error)
	ListDMsByMember(ctx context.Context, userID uuid.UUID) ([]domain.Channel, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type MembershipRepository interface {
	// Upsert creates the membership on first entry and refreshes last_seen on
	// every re-entry and heartbeat.
	Upsert(ctx context.Context, membership domain.Membership) error
	CountActive(ctx context.Context, channelID uuid.UUID, since time.Time) (int, error)
}

type MessageRepository interface {
	Create(ctx context.Context, msg *domain.Message) error
	// GetByID returns the row joined with the author's profile.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Message, error)
	// ListRecent returns the newest limit messages reordered ascending.
	ListRecent(ctx context.Context, channelID uuid.UUID, limit int) ([]domain.Message, error)
}

type ModerationRepository interface {
	// ActiveChannelBan returns the ban with the greatest banned_until still
	// after now, or nil. Expired rows stay as history.
	ActiveChannelBan(ctx context.Context, channelID, userID uuid.UUID, now time.Time) (*domain.ChannelBan, error)
	ActivePlatformBan(ctx context.Context, userID uuid.UUID, now time.Time) (*domain.PlatformBan, error)
	CreateChannelBan(ctx context.Context, ban *domain.ChannelBan) error
	CreatePlatformBan(ctx context.Context, ban *domain.PlatformBan) error
	CreateNotice(ctx context.Context, notice *domain.ModerationNotice) error
	ListUnseenNotices(ctx context.Context, userID uuid.UUID) ([]domain.ModerationNotice, error)
	MarkNoticesSeen(ctx context.Context, userID uuid.UUID) error
	CreateRequest(ctx context.Context, req *domain.ModerationRequest) error
	GetChannelRole(ctx context.Context, channelID, userID uuid.UUID) (*domain.ChannelRole, error)
	ListChannelRoles(ctx context.Context, channelID uuid.UUID) ([]domain.ChannelRole, error)
	UpsertChannelRole(ctx context.Context, role *domain.ChannelRole) error
	CountGuardians(ctx context.Context, channelID uuid.UUID) (int, error)
}

type FriendshipRepository interface {
	Upsert(ctx context.Context, friendship *domain.Friendship) error
	ListFriendIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
}

type FavoriteRepository interface {
	Add(ctx context.Context, favorite domain.Favorite) error
	Remove(ctx context.Context, userID, channelID uuid.UUID) error
	List(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
	Has(ctx context.Context, userID, channelID uuid.UUID) (bool, error)
}
