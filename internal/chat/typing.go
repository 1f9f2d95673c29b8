package chat

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pysend/pysend/internal/realtime"
)

const (
	// typingDebounce is a leading-edge debounce: it suppresses a flood of
	// broadcasts during continuous typing but still announces promptly.
	typingDebounce = 1200 * time.Millisecond
	// typingStaleAfter evicts peers that disconnect without a stop signal.
	typingStaleAfter    = 3500 * time.Millisecond
	typingSweepEvery    = 3 * time.Second
	typingMaxNamesShown = 2
)

// TypingTransport is the ephemeral broadcast channel for typing state.
type TypingTransport interface {
	SendTyping(ev realtime.TypingEvent)
}

type typingEntry struct {
	name      string
	updatedAt time.Time
}

// Typing coordinates the debounced broadcast of local typing state and the
// time-bounded aggregation of remote typing state for the active channel.
type Typing struct {
	transport TypingTransport
	selfID    uuid.UUID
	selfName  string
	now       func() time.Time

	mu        sync.Mutex
	channelID uuid.UUID
	lastSent  time.Time
	sentStart bool
	remote    map[uuid.UUID]typingEntry
}

func NewTyping(transport TypingTransport, selfID uuid.UUID, selfName string) *Typing {
	return &Typing{
		transport: transport,
		selfID:    selfID,
		selfName:  selfName,
		now:       time.Now,
		remote:    make(map[uuid.UUID]typingEntry),
	}
}

// Attach points the coordinator at a channel and clears remote state. The
// indicator is cleared whenever the channel is switched.
func (t *Typing) Attach(channelID uuid.UUID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.channelID = channelID
	t.lastSent = time.Time{}
	t.sentStart = false
	t.remote = make(map[uuid.UUID]typingEntry)
}

// InputChanged reacts to composer input. Non-empty input broadcasts a start
// at most once per debounce interval; emptying the composer broadcasts a
// stop immediately.
func (t *Typing) InputChanged(body string) {
	t.mu.Lock()
	channelID := t.channelID
	if channelID == uuid.Nil {
		t.mu.Unlock()
		return
	}

	if body == "" {
		t.sentStart = false
		t.mu.Unlock()
		t.sendStop(channelID)
		return
	}

	now := t.now()
	if now.Sub(t.lastSent) < typingDebounce {
		t.mu.Unlock()
		return
	}
	t.lastSent = now
	t.sentStart = true
	t.mu.Unlock()

	t.transport.SendTyping(realtime.TypingEvent{
		ChannelID:   channelID,
		UserID:      t.selfID,
		DisplayName: t.selfName,
		IsTyping:    true,
	})
}

// Blur broadcasts a stop immediately when the composer loses focus.
func (t *Typing) Blur() {
	t.mu.Lock()
	channelID := t.channelID
	t.sentStart = false
	t.mu.Unlock()
	if channelID != uuid.Nil {
		t.sendStop(channelID)
	}
}

func (t *Typing) sendStop(channelID uuid.UUID) {
	t.transport.SendTyping(realtime.TypingEvent{
		ChannelID: channelID,
		UserID:    t.selfID,
		IsTyping:  false,
	})
}

// Receive updates remote typing state for the active channel. Broadcasts for
// other channels and for the local user are ignored.
func (t *Typing) Receive(ev realtime.TypingEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if ev.ChannelID != t.channelID || ev.UserID == t.selfID {
		return
	}
	if ev.IsTyping {
		t.remote[ev.UserID] = typingEntry{name: ev.DisplayName, updatedAt: t.now()}
	} else {
		delete(t.remote, ev.UserID)
	}
}

// Sweep evicts entries older than the staleness bound. Run on a timer.
func (t *Typing) Sweep() {
	t.mu.Lock()
	defer t.mu.Unlock()
	cutoff := t.now().Add(-typingStaleAfter)
	for id, entry := range t.remote {
		if entry.updatedAt.Before(cutoff) {
			delete(t.remote, id)
		}
	}
}

// Indicator renders the typing line: up to two names, three or more
// collapse to a generic phrasing. Empty string when nobody is typing.
func (t *Typing) Indicator() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	names := make([]string, 0, len(t.remote))
	for _, entry := range t.remote {
		names = append(names, entry.name)
	}

	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0] + " is typing…"
	case typingMaxNamesShown:
		return names[0] + " and " + names[1] + " are typing…"
	default:
		return "Several people are typing…"
	}
}
