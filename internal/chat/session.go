package chat

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pysend/pysend/internal/auth"
	"github.com/pysend/pysend/internal/domain"
	"github.com/pysend/pysend/internal/notify"
	"github.com/pysend/pysend/internal/realtime"
	"github.com/pysend/pysend/internal/repository"
)

const (
	pollInterval           = 2500 * time.Millisecond
	sidebarRefreshInterval = 60 * time.Second
)

// PushHandle releases a push subscription.
type PushHandle interface {
	Close()
}

// PushSource is the durable row-insert subscription collaborator. Delivery
// is at-least-once, possibly duplicated, possibly delayed.
type PushSource interface {
	SubscribeChannel(channelID uuid.UUID, fn func(realtime.MessageEvent)) PushHandle
	SubscribeInbox(fn func(realtime.MessageEvent)) PushHandle
}

// ListenerPush adapts realtime.Listener to PushSource.
type ListenerPush struct {
	Listener *realtime.Listener
}

func (p ListenerPush) SubscribeChannel(channelID uuid.UUID, fn func(realtime.MessageEvent)) PushHandle {
	return p.Listener.SubscribeChannel(channelID, fn)
}

func (p ListenerPush) SubscribeInbox(fn func(realtime.MessageEvent)) PushHandle {
	return p.Listener.SubscribeInbox(fn)
}

// noopTyping stands in when no broadcast relay is configured.
type noopTyping struct{}

func (noopTyping) SendTyping(realtime.TypingEvent) {}

// Deps are the collaborators and repositories a session runs against.
type Deps struct {
	Auth     auth.Authenticator
	Push     PushSource
	Typing   TypingTransport
	Notifier notify.Notifier

	Profiles   repository.ProfileRepository
	Channels   repository.ChannelRepository
	Members    repository.MembershipRepository
	Messages   repository.MessageRepository
	Moderation repository.ModerationRepository
	Friends    repository.FriendshipRepository
	Favorites  repository.FavoriteRepository

	CreatorEmails []string
}

// activeChannel is the per-channel context torn down on every switch.
type activeChannel struct {
	channel *domain.Channel
	role    domain.Role
	ban     *domain.ChannelBan
	epoch   uint64
	cancel  context.CancelFunc
	pushSub PushHandle
}

// Session owns the live projections for one signed-in user: the open
// channel, its timeline, typing state, and unread counters. All projections
// are rebuilt on channel switch and dropped on sign-out.
type Session struct {
	deps Deps
	user domain.User

	gate       *BanGate
	history    *History
	presence   *Presence
	moderation *Moderation
	sidebar    *Sidebar
	unread     *Unread
	rec        *Reconciler
	typing     *Typing

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	profile *domain.Profile
	active  *activeChannel
	names   map[uuid.UUID]string
	inbox   PushHandle
	closed  bool
}

// Start establishes a session for an authenticated user. A platform ban
// found here forces sign-out and aborts initialization before any channel
// data loads.
func Start(ctx context.Context, deps Deps, user domain.User, displayName string) (*Session, error) {
	if deps.Typing == nil {
		deps.Typing = noopTyping{}
	}

	gate := NewBanGate(deps.Moderation)

	ban, err := gate.ActivePlatformBan(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("checking platform ban: %w", err)
	}
	if ban != nil {
		_ = deps.Auth.SignOut(ctx)
		return nil, &BanError{Reason: ban.Reason, Until: ban.BannedUntil, Platform: true}
	}

	profile, err := EnsureProfile(ctx, deps.Profiles, user, displayName, deps.CreatorEmails)
	if err != nil {
		return nil, err
	}

	sctx, cancel := context.WithCancel(ctx)
	s := &Session{
		deps:    deps,
		user:    user,
		gate:    gate,
		ctx:     sctx,
		cancel:  cancel,
		profile: profile,
		names:   make(map[uuid.UUID]string),
	}

	s.unread = NewUnread(deps.Notifier, s.channelName)
	s.rec = NewReconciler(user.ID, s.unread)
	s.typing = NewTyping(deps.Typing, user.ID, profile.DisplayName)
	s.presence = NewPresence(deps.Members)
	s.history = NewHistory(deps.Messages, deps.Members, deps.Moderation, gate)
	s.moderation = NewModeration(deps.Moderation, deps.Profiles, deps.Channels)
	s.sidebar = NewSidebar(deps.Channels, deps.Members, deps.Profiles, deps.Friends, deps.Favorites, s.presence, s.unread)

	s.drainNotices(ctx)

	s.inbox = deps.Push.SubscribeInbox(s.onInboxEvent)
	deps.Auth.OnSessionChange(s.onSessionChange)

	go s.sidebarLoop(sctx)

	return s, nil
}

func (s *Session) Profile() *domain.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profile
}

func (s *Session) Sidebar() *Sidebar       { return s.sidebar }
func (s *Session) Moderation() *Moderation { return s.moderation }
func (s *Session) Typing() *Typing         { return s.typing }
func (s *Session) Unread() *Unread         { return s.unread }
func (s *Session) Timeline() []domain.Message {
	return s.rec.Timeline()
}

// OnAppend registers the render hook for open-timeline appends.
func (s *Session) OnAppend(fn func(domain.Message)) {
	s.rec.OnAppend(fn)
}

// ActiveChannel returns the open channel, the viewer's role in it, and the
// active channel ban if the view is read-only.
func (s *Session) ActiveChannel() (*domain.Channel, domain.Role, *domain.ChannelBan) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return nil, domain.RoleUser, nil
	}
	return s.active.channel, s.active.role, s.active.ban
}

// Select opens a channel: ban gate, role resolution, presence heartbeat,
// history load, then push and poll sources. The previous channel's timers
// and subscription are released first.
func (s *Session) Select(ctx context.Context, channelID uuid.UUID) error {
	channel, err := s.deps.Channels.GetByID(ctx, channelID)
	if err != nil {
		return fmt.Errorf("loading channel: %w", err)
	}
	if channel == nil {
		return ErrChannelNotFound
	}

	s.teardownActive()

	// Fail closed on the gate, but an active ban still shows the channel
	// read-only with history visible.
	ban, err := s.gate.ActiveChannelBan(ctx, channelID, s.user.ID)
	if err != nil {
		return ErrAccessDenied
	}

	profile, err := loadProfile(ctx, s.deps.Profiles, s.user.ID)
	if err != nil {
		return err
	}
	stored, err := s.deps.Moderation.GetChannelRole(ctx, channelID, s.user.ID)
	if err != nil {
		return ErrAccessDenied
	}
	role := EffectiveRole(s.user.ID, channel, profile.GlobalRole, stored)

	if err := s.presence.Heartbeat(ctx, channelID, s.user.ID); err != nil {
		log.Printf("session: presence heartbeat: %v", err)
	}

	epoch := s.rec.Reset(channelID)
	s.typing.Attach(channelID)

	messages, err := s.history.Load(ctx, channel)
	if err != nil {
		// Fail open for display: an empty timeline, healed by the next poll.
		log.Printf("session: loading history: %v", err)
	}
	for _, msg := range messages {
		s.rec.Ingest(epoch, msg)
	}

	cctx, cancel := context.WithCancel(s.ctx)
	sub := s.deps.Push.SubscribeChannel(channelID, func(ev realtime.MessageEvent) {
		s.onChannelEvent(cctx, channel, epoch, ev)
	})

	go s.pollLoop(cctx, channel, epoch)
	go s.heartbeatLoop(cctx, channelID)
	go s.typingSweepLoop(cctx)

	s.mu.Lock()
	s.names[channelID] = channel.Name
	s.active = &activeChannel{
		channel: channel,
		role:    role,
		ban:     ban,
		epoch:   epoch,
		cancel:  cancel,
		pushSub: sub,
	}
	s.mu.Unlock()

	// Cleared last: an inbox push landing mid-switch increments the counter
	// for the channel being opened, and those increments must not survive the
	// selection. The reconciler routes the same row to the timeline exactly
	// once regardless.
	s.unread.Clear(channelID)

	return nil
}

// Send writes a message to the open channel. The ban gate and membership
// check run again here; a ban applied after entry rejects the send with its
// expiry.
func (s *Session) Send(ctx context.Context, body string) (*domain.Message, error) {
	s.mu.Lock()
	active := s.active
	profile := s.profile
	s.mu.Unlock()

	if profile == nil || s.closed {
		return nil, ErrSessionInvalid
	}
	if active == nil {
		return nil, ErrChannelNotFound
	}

	msg, err := s.history.Send(ctx, profile, active.channel, body)
	if err != nil {
		return nil, err
	}

	// Render from the authoritative row; the push and poll copies become
	// no-ops in the reconciler.
	s.rec.Ingest(active.epoch, *msg)
	s.typing.InputChanged("")
	s.deps.Notifier.PlayCue(notify.CueSent)
	return msg, nil
}

// RefreshSidebar recomputes the directory and refreshes the channel-name
// cache used for unread toasts.
func (s *Session) RefreshSidebar(ctx context.Context) *Directory {
	dir := s.sidebar.Refresh(ctx, s.user.ID)
	s.mu.Lock()
	for _, entry := range dir.Channels {
		s.names[entry.Channel.ID] = entry.Channel.Name
	}
	s.mu.Unlock()
	return dir
}

// SignOut tears down every timer and subscription, then releases the
// identity.
func (s *Session) SignOut(ctx context.Context) error {
	s.Close()
	return s.deps.Auth.SignOut(ctx)
}

// Close releases all session resources. Safe to call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	inbox := s.inbox
	s.mu.Unlock()

	s.teardownActive()
	if inbox != nil {
		inbox.Close()
	}
	s.cancel()
}

func (s *Session) teardownActive() {
	s.mu.Lock()
	active := s.active
	s.active = nil
	s.mu.Unlock()

	if active == nil {
		return
	}
	active.cancel()
	active.pushSub.Close()
	s.typing.Attach(uuid.Nil)
	s.rec.Reset(uuid.Nil)
}

// onChannelEvent hydrates a push-delivered row and feeds it to the
// reconciler under the epoch captured at subscribe time, so a late callback
// after teardown is a guaranteed no-op.
func (s *Session) onChannelEvent(ctx context.Context, channel *domain.Channel, epoch uint64, ev realtime.MessageEvent) {
	if epoch != s.rec.Epoch() {
		return
	}
	msg, err := s.history.Resolve(ctx, channel, ev.ID)
	if err != nil || msg == nil {
		// Fall back to the raw event; the next poll supplies author data.
		s.rec.Ingest(epoch, domain.Message{
			ID:        ev.ID,
			ChannelID: ev.ChannelID,
			UserID:    ev.UserID,
			Body:      ev.Body,
			CreatedAt: ev.CreatedAt,
		})
		return
	}
	s.rec.Ingest(epoch, *msg)
}

// onInboxEvent routes messages for channels other than the open one into
// the unread aggregator. Self-authored messages are never incoming.
func (s *Session) onInboxEvent(ev realtime.MessageEvent) {
	if ev.UserID == s.user.ID {
		return
	}
	s.mu.Lock()
	open := s.active != nil && s.active.channel.ID == ev.ChannelID
	closed := s.closed
	s.mu.Unlock()
	if open || closed {
		// The per-channel subscription owns the open timeline path.
		return
	}

	msg := domain.Message{
		ID:        ev.ID,
		ChannelID: ev.ChannelID,
		UserID:    ev.UserID,
		Body:      ev.Body,
		CreatedAt: ev.CreatedAt,
	}
	if author, err := s.deps.Profiles.GetByID(s.ctx, ev.UserID); err == nil && author != nil {
		msg.Author = author.DisplayName
		msg.AuthorEmail = author.Email
	}
	s.rec.IngestLatest(msg)
}

// onSessionChange re-validates platform-ban state on every session change.
// An active ban signs the user out before any further data loads.
func (s *Session) onSessionChange(session *auth.Session) {
	if session == nil {
		s.Close()
		return
	}
	ban, err := s.gate.ActivePlatformBan(s.ctx, session.User.ID)
	if err != nil {
		log.Printf("session: platform ban check: %v", err)
		return
	}
	if ban != nil {
		banErr := &BanError{Reason: ban.Reason, Until: ban.BannedUntil, Platform: true}
		s.deps.Notifier.Toast("Signed out", banErr.Error())
		s.Close()
		if err := s.deps.Auth.SignOut(s.ctx); err != nil {
			log.Printf("session: sign-out: %v", err)
		}
	}
}

// drainNotices surfaces the durable moderation inbox on session start.
func (s *Session) drainNotices(ctx context.Context) {
	notices, err := s.deps.Moderation.ListUnseenNotices(ctx, s.user.ID)
	if err != nil {
		log.Printf("session: listing notices: %v", err)
		return
	}
	for _, n := range notices {
		s.deps.Notifier.Toast("Moderation notice", string(n.NoticeType)+": "+n.Reason)
	}
	if len(notices) > 0 {
		if err := s.deps.Moderation.MarkNoticesSeen(ctx, s.user.ID); err != nil {
			log.Printf("session: marking notices seen: %v", err)
		}
	}
}

func (s *Session) channelName(id uuid.UUID) string {
	s.mu.Lock()
	if name, ok := s.names[id]; ok {
		s.mu.Unlock()
		return name
	}
	s.mu.Unlock()

	ch, err := s.deps.Channels.GetByID(s.ctx, id)
	if err != nil || ch == nil {
		return "channel"
	}
	s.mu.Lock()
	s.names[id] = ch.Name
	s.mu.Unlock()
	return ch.Name
}

func (s *Session) pollLoop(ctx context.Context, channel *domain.Channel, epoch uint64) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			messages, err := s.history.Load(ctx, channel)
			if err != nil {
				log.Printf("session: poll: %v", err)
				continue
			}
			for _, msg := range messages {
				s.rec.Ingest(epoch, msg)
			}
		}
	}
}

func (s *Session) heartbeatLoop(ctx context.Context, channelID uuid.UUID) {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.presence.Heartbeat(ctx, channelID, s.user.ID); err != nil {
				log.Printf("session: heartbeat: %v", err)
			}
		}
	}
}

func (s *Session) typingSweepLoop(ctx context.Context) {
	ticker := time.NewTicker(typingSweepEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.typing.Sweep()
		}
	}
}

func (s *Session) sidebarLoop(ctx context.Context) {
	ticker := time.NewTicker(sidebarRefreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RefreshSidebar(ctx)
		}
	}
}
