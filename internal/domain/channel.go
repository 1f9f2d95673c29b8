package domain

import (
	"time"

	"github.com/google/uuid"
)

type Channel struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Icon        *string   `json:"icon,omitempty"`
	Description *string   `json:"description,omitempty"`
	Rules       *string   `json:"rules,omitempty"`
	CreatedBy   uuid.UUID `json:"created_by"`
	IsDM        bool      `json:"is_dm"`
	DMPair      *string   `json:"dm_pair,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Membership tracks that a user has entered a channel. last_seen doubles as
// the presence heartbeat stamp.
type Membership struct {
	ChannelID uuid.UUID `json:"channel_id"`
	UserID    uuid.UUID `json:"user_id"`
	LastSeen  time.Time `json:"last_seen"`
}

type Favorite struct {
	UserID    uuid.UUID `json:"user_id"`
	ChannelID uuid.UUID `json:"channel_id"`
	CreatedAt time.Time `json:"created_at"`
}

// DMPairKey builds the canonical key for a direct-message pair. The two ids
// are sorted so (A,B) and (B,A) map to the same channel.
func DMPairKey(a, b uuid.UUID) string {
	as, bs := a.String(), b.String()
	if bs < as {
		as, bs = bs, as
	}
	return as + "|" + bs
}
