package chat

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/pysend/pysend/internal/domain"
	"github.com/pysend/pysend/internal/repository"
)

const (
	heartbeatInterval = 30 * time.Second
	// livenessWindow is the trailing interval within which a heartbeat counts
	// a member as online. Coarse and eventually consistent, not connection
	// tracking.
	livenessWindow = 5 * time.Minute
)

// Presence stamps the current user's last-active time in the open channel
// and derives per-channel online counts from the liveness window.
type Presence struct {
	members repository.MembershipRepository
	now     func() time.Time
}

func NewPresence(members repository.MembershipRepository) *Presence {
	return &Presence{members: members, now: time.Now}
}

// Heartbeat upserts the membership row with last_seen = now. Called on
// channel entry and every heartbeat interval while the channel stays open.
func (p *Presence) Heartbeat(ctx context.Context, channelID, userID uuid.UUID) error {
	return p.members.Upsert(ctx, domain.Membership{
		ChannelID: channelID,
		UserID:    userID,
		LastSeen:  p.now(),
	})
}

// OnlineCount counts memberships with last_seen inside the liveness window.
// Recomputed on sidebar refresh and channel selection, not continuously.
func (p *Presence) OnlineCount(ctx context.Context, channelID uuid.UUID) (int, error) {
	return p.members.CountActive(ctx, channelID, p.now().Add(-livenessWindow))
}
