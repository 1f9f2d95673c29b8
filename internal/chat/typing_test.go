package chat

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pysend/pysend/internal/realtime"
)

type typingFixture struct {
	typing    *Typing
	transport *recordTransport
	selfID    uuid.UUID
	channelID uuid.UUID
	now       time.Time
}

func newTypingFixture(t *testing.T) *typingFixture {
	t.Helper()
	f := &typingFixture{
		transport: &recordTransport{},
		selfID:    uuid.New(),
		channelID: uuid.New(),
		now:       time.Now(),
	}
	f.typing = NewTyping(f.transport, f.selfID, "Ivy")
	f.typing.now = func() time.Time { return f.now }
	f.typing.Attach(f.channelID)
	return f
}

func (f *typingFixture) advance(d time.Duration) { f.now = f.now.Add(d) }

func TestTypingDebouncesStartBroadcasts(t *testing.T) {
	t.Parallel()

	f := newTypingFixture(t)

	// Continuous typing: one start per debounce interval.
	f.typing.InputChanged("h")
	f.advance(200 * time.Millisecond)
	f.typing.InputChanged("he")
	f.advance(200 * time.Millisecond)
	f.typing.InputChanged("hel")

	sent := f.transport.events()
	require.Len(t, sent, 1)
	assert.True(t, sent[0].IsTyping)
	assert.Equal(t, "Ivy", sent[0].DisplayName)
	assert.Equal(t, f.channelID, sent[0].ChannelID)

	f.advance(typingDebounce)
	f.typing.InputChanged("hell")
	assert.Len(t, f.transport.events(), 2)
}

func TestTypingEmptyInputStopsImmediately(t *testing.T) {
	t.Parallel()

	f := newTypingFixture(t)

	f.typing.InputChanged("hello")
	f.typing.InputChanged("")

	sent := f.transport.events()
	require.Len(t, sent, 2)
	assert.True(t, sent[0].IsTyping)
	assert.False(t, sent[1].IsTyping)
}

func TestTypingBlurStops(t *testing.T) {
	t.Parallel()

	f := newTypingFixture(t)
	f.typing.InputChanged("hello")
	f.typing.Blur()

	sent := f.transport.events()
	require.Len(t, sent, 2)
	assert.False(t, sent[1].IsTyping)
}

func TestTypingNoBroadcastWithoutChannel(t *testing.T) {
	t.Parallel()

	f := newTypingFixture(t)
	f.typing.Attach(uuid.Nil)
	f.typing.InputChanged("hello")
	assert.Empty(t, f.transport.events())
}

func TestTypingReceiveFiltersChannelAndSelf(t *testing.T) {
	t.Parallel()

	f := newTypingFixture(t)

	f.typing.Receive(realtime.TypingEvent{ChannelID: uuid.New(), UserID: uuid.New(), DisplayName: "Mia", IsTyping: true})
	assert.Empty(t, f.typing.Indicator())

	f.typing.Receive(realtime.TypingEvent{ChannelID: f.channelID, UserID: f.selfID, DisplayName: "Ivy", IsTyping: true})
	assert.Empty(t, f.typing.Indicator())

	f.typing.Receive(realtime.TypingEvent{ChannelID: f.channelID, UserID: uuid.New(), DisplayName: "Mia", IsTyping: true})
	assert.Equal(t, "Mia is typing…", f.typing.Indicator())
}

func TestTypingStopClearsIndicator(t *testing.T) {
	t.Parallel()

	f := newTypingFixture(t)
	peer := uuid.New()

	f.typing.Receive(realtime.TypingEvent{ChannelID: f.channelID, UserID: peer, DisplayName: "Mia", IsTyping: true})
	require.NotEmpty(t, f.typing.Indicator())

	f.typing.Receive(realtime.TypingEvent{ChannelID: f.channelID, UserID: peer, IsTyping: false})
	assert.Empty(t, f.typing.Indicator())
}

func TestTypingSweepEvictsStalePeers(t *testing.T) {
	t.Parallel()

	f := newTypingFixture(t)
	stale := uuid.New()
	fresh := uuid.New()

	f.typing.Receive(realtime.TypingEvent{ChannelID: f.channelID, UserID: stale, DisplayName: "Mia", IsTyping: true})
	f.advance(typingStaleAfter + time.Second)
	f.typing.Receive(realtime.TypingEvent{ChannelID: f.channelID, UserID: fresh, DisplayName: "Theo", IsTyping: true})

	// A peer that disconnected without a stop signal ages out.
	f.typing.Sweep()
	assert.Equal(t, "Theo is typing…", f.typing.Indicator())
}

func TestTypingIndicatorCollapsesCrowd(t *testing.T) {
	t.Parallel()

	f := newTypingFixture(t)
	names := []string{"Mia", "Theo", "Sasha"}

	f.typing.Receive(realtime.TypingEvent{ChannelID: f.channelID, UserID: uuid.New(), DisplayName: names[0], IsTyping: true})
	f.typing.Receive(realtime.TypingEvent{ChannelID: f.channelID, UserID: uuid.New(), DisplayName: names[1], IsTyping: true})
	assert.Contains(t, f.typing.Indicator(), " are typing…")

	f.typing.Receive(realtime.TypingEvent{ChannelID: f.channelID, UserID: uuid.New(), DisplayName: names[2], IsTyping: true})
	assert.Equal(t, "Several people are typing…", f.typing.Indicator())
}

func TestTypingAttachResetsState(t *testing.T) {
	t.Parallel()

	f := newTypingFixture(t)
	f.typing.Receive(realtime.TypingEvent{ChannelID: f.channelID, UserID: uuid.New(), DisplayName: "Mia", IsTyping: true})
	require.NotEmpty(t, f.typing.Indicator())

	f.typing.Attach(uuid.New())
	assert.Empty(t, f.typing.Indicator())
}
