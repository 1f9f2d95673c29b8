package chat

import (
	"sync"

	"github.com/google/uuid"

	"github.com/pysend/pysend/internal/domain"
	"github.com/pysend/pysend/internal/notify"
)

const excerptLen = 80

// Unread aggregates per-channel unread counters and dispatches notifications.
// The reconciler guarantees at most one Record call per message id.
type Unread struct {
	mu     sync.Mutex
	counts map[uuid.UUID]int

	notifier notify.Notifier
	// channelName resolves a channel id for toast titles.
	channelName func(uuid.UUID) string
}

func NewUnread(notifier notify.Notifier, channelName func(uuid.UUID) string) *Unread {
	return &Unread{
		counts:      make(map[uuid.UUID]int),
		notifier:    notifier,
		channelName: channelName,
	}
}

// Record counts one unread message and fires the toast, the OS notification
// (permission-gated by the notifier), and the incoming cue.
func (u *Unread) Record(msg domain.Message) {
	u.mu.Lock()
	u.counts[msg.ChannelID]++
	total := u.total()
	u.mu.Unlock()

	u.notifier.SetBadge(total)

	title := u.channelName(msg.ChannelID)
	body := msg.Author + ": " + excerpt(msg.Body)
	u.notifier.Toast(title, body)
	u.notifier.OSNotify(title, body)
	u.notifier.PlayCue(notify.CueIncoming)
}

// Clear zeroes a channel's counter, on selection, and republishes the badge.
func (u *Unread) Clear(channelID uuid.UUID) {
	u.mu.Lock()
	changed := u.counts[channelID] != 0
	delete(u.counts, channelID)
	total := u.total()
	u.mu.Unlock()

	if changed {
		u.notifier.SetBadge(total)
	}
}

func (u *Unread) Count(channelID uuid.UUID) int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.counts[channelID]
}

// Total is the process-wide badge value: the sum of all channel counters.
func (u *Unread) Total() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.total()
}

func (u *Unread) total() int {
	sum := 0
	for _, n := range u.counts {
		sum += n
	}
	return sum
}

func excerpt(body string) string {
	runes := []rune(body)
	if len(runes) <= excerptLen {
		return body
	}
	return string(runes[:excerptLen]) + "…"
}
