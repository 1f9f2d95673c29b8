package domain

import (
	"time"

	"github.com/google/uuid"
)

// Role is a user's effective authority within one channel.
type Role string

const (
	RoleUser     Role = "user"
	RoleGuardian Role = "guardian"
	RoleAdmin    Role = "admin"
	RoleCreator  Role = "creator"
)

// AtLeast reports whether r carries at least the authority of other.
func (r Role) AtLeast(other Role) bool {
	return r.rank() >= other.rank()
}

func (r Role) rank() int {
	switch r {
	case RoleCreator:
		return 3
	case RoleAdmin:
		return 2
	case RoleGuardian:
		return 1
	default:
		return 0
	}
}

// MaxGuardians caps the number of guardian rows per channel.
const MaxGuardians = 6

// ChannelRole is a stored per-channel role assignment. The channel creator is
// treated as admin without a row.
type ChannelRole struct {
	ChannelID uuid.UUID `json:"channel_id"`
	UserID    uuid.UUID `json:"user_id"`
	Role      Role      `json:"role"`
	GrantedBy uuid.UUID `json:"granted_by"`
	CreatedAt time.Time `json:"created_at"`
}

// ChannelBan rows are append-only history; only the row with the greatest
// banned_until still in the future is active.
type ChannelBan struct {
	ID          uuid.UUID `json:"id"`
	ChannelID   uuid.UUID `json:"channel_id"`
	UserID      uuid.UUID `json:"user_id"`
	BannedBy    uuid.UUID `json:"banned_by"`
	Reason      string    `json:"reason"`
	BannedUntil time.Time `json:"banned_until"`
	CreatedAt   time.Time `json:"created_at"`
}

type PlatformBan struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	BannedBy    uuid.UUID `json:"banned_by"`
	Reason      string    `json:"reason"`
	BannedUntil time.Time `json:"banned_until"`
	CreatedAt   time.Time `json:"created_at"`
}

type NoticeType string

const (
	NoticeWarning     NoticeType = "warning"
	NoticeChannelBan  NoticeType = "channel_ban"
	NoticePlatformBan NoticeType = "platform_ban"
)

// ModerationNotice is a durable inbox entry the user drains on session start.
type ModerationNotice struct {
	ID         uuid.UUID  `json:"id"`
	UserID     uuid.UUID  `json:"user_id"`
	IssuedBy   uuid.UUID  `json:"issued_by"`
	ChannelID  *uuid.UUID `json:"channel_id,omitempty"`
	NoticeType NoticeType `json:"notice_type"`
	Reason     string     `json:"reason"`
	Details    string     `json:"details,omitempty"`
	Seen       bool       `json:"seen"`
	CreatedAt  time.Time  `json:"created_at"`
}

// ModerationRequest is a guardian's escalation for an admin to act on.
// Adjudication happens outside the engine.
type ModerationRequest struct {
	ID          uuid.UUID `json:"id"`
	ChannelID   uuid.UUID `json:"channel_id"`
	RequesterID uuid.UUID `json:"requester_id"`
	TargetID    uuid.UUID `json:"target_id"`
	Reason      string    `json:"reason"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}
