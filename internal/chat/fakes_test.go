package chat

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pysend/pysend/internal/auth"
	"github.com/pysend/pysend/internal/domain"
	"github.com/pysend/pysend/internal/notify"
	"github.com/pysend/pysend/internal/realtime"
)

// In-memory fakes for the repository interfaces and collaborators.

type memProfileRepo struct {
	mu       sync.Mutex
	profiles map[uuid.UUID]domain.Profile
}

func newMemProfileRepo() *memProfileRepo {
	return &memProfileRepo{profiles: make(map[uuid.UUID]domain.Profile)}
}

func (r *memProfileRepo) Create(_ context.Context, p *domain.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.profiles[p.ID] = *p
	return nil
}

func (r *memProfileRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.profiles[id]; ok {
		return &p, nil
	}
	return nil, nil
}

func (r *memProfileRepo) GetByEmail(_ context.Context, email string) (*domain.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.profiles {
		if p.Email == email {
			cp := p
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memProfileRepo) ListByIDs(_ context.Context, ids []uuid.UUID) ([]domain.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Profile
	for _, id := range ids {
		if p, ok := r.profiles[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *memProfileRepo) UpdateDisplayName(_ context.Context, id uuid.UUID, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.profiles[id]
	p.DisplayName = name
	r.profiles[id] = p
	return nil
}

func (r *memProfileRepo) SetGlobalRole(_ context.Context, id uuid.UUID, role domain.GlobalRole) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.profiles[id]
	p.GlobalRole = role
	r.profiles[id] = p
	return nil
}

type memMembershipRepo struct {
	mu      sync.Mutex
	entries map[uuid.UUID]map[uuid.UUID]time.Time
}

func newMemMembershipRepo() *memMembershipRepo {
	return &memMembershipRepo{entries: make(map[uuid.UUID]map[uuid.UUID]time.Time)}
}

func (r *memMembershipRepo) Upsert(_ context.Context, m domain.Membership) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.entries[m.ChannelID] == nil {
		r.entries[m.ChannelID] = make(map[uuid.UUID]time.Time)
	}
	r.entries[m.ChannelID][m.UserID] = m.LastSeen
	return nil
}

func (r *memMembershipRepo) CountActive(_ context.Context, channelID uuid.UUID, since time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, seen := range r.entries[channelID] {
		if !seen.Before(since) {
			count++
		}
	}
	return count, nil
}

func (r *memMembershipRepo) isMember(channelID, userID uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.entries[channelID][userID]
	return ok
}

type memChannelRepo struct {
	mu       sync.Mutex
	channels map[uuid.UUID]domain.Channel
	members  *memMembershipRepo
}

func newMemChannelRepo(members *memMembershipRepo) *memChannelRepo {
	return &memChannelRepo{channels: make(map[uuid.UUID]domain.Channel), members: members}
}

func (r *memChannelRepo) Create(_ context.Context, ch *domain.Channel) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ch.DMPair != nil {
		for _, existing := range r.channels {
			if existing.DMPair != nil && *existing.DMPair == *ch.DMPair {
				return errors.New("duplicate key value violates unique constraint (SQLSTATE 23505)")
			}
		}
	}
	r.channels[ch.ID] = *ch
	return nil
}

func (r *memChannelRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Channel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ch, ok := r.channels[id]; ok {
		return &ch, nil
	}
	return nil, nil
}

func (r *memChannelRepo) GetByDMPair(_ context.Context, pair string) (*domain.Channel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ch := range r.channels {
		if ch.DMPair != nil && *ch.DMPair == pair {
			cp := ch
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memChannelRepo) ListPublic(_ context.Context) ([]domain.Channel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Channel
	for _, ch := range r.channels {
		if !ch.IsDM {
			out = append(out, ch)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *memChannelRepo) ListDMsByMember(_ context.Context, userID uuid.UUID) ([]domain.Channel, error) {
	r.mu.Lock()
	channels := make([]domain.Channel, 0, len(r.channels))
	for _, ch := range r.channels {
		channels = append(channels, ch)
	}
	r.mu.Unlock()

	var out []domain.Channel
	for _, ch := range channels {
		if ch.IsDM && r.members.isMember(ch.ID, userID) {
			out = append(out, ch)
		}
	}
	return out, nil
}

func (r *memChannelRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.channels, id)
	return nil
}

type memMessageRepo struct {
	mu       sync.Mutex
	messages []domain.Message
	profiles *memProfileRepo
}

func newMemMessageRepo(profiles *memProfileRepo) *memMessageRepo {
	return &memMessageRepo{profiles: profiles}
}

func (r *memMessageRepo) join(msg domain.Message) domain.Message {
	if p, _ := r.profiles.GetByID(context.Background(), msg.UserID); p != nil {
		msg.Author = p.DisplayName
		msg.AuthorEmail = p.Email
		msg.AuthorGlobalRole = p.GlobalRole
	}
	return msg
}

func (r *memMessageRepo) Create(_ context.Context, msg *domain.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, *msg)
	return nil
}

func (r *memMessageRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, msg := range r.messages {
		if msg.ID == id {
			joined := r.join(msg)
			return &joined, nil
		}
	}
	return nil, nil
}

func (r *memMessageRepo) ListRecent(_ context.Context, channelID uuid.UUID, limit int) ([]domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Message
	for _, msg := range r.messages {
		if msg.ChannelID == channelID {
			out = append(out, r.join(msg))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

type memModerationRepo struct {
	mu           sync.Mutex
	channelBans  []domain.ChannelBan
	platformBans []domain.PlatformBan
	notices      []domain.ModerationNotice
	requests     []domain.ModerationRequest
	roles        map[uuid.UUID]map[uuid.UUID]domain.ChannelRole
	failReads    bool
}

func newMemModerationRepo() *memModerationRepo {
	return &memModerationRepo{roles: make(map[uuid.UUID]map[uuid.UUID]domain.ChannelRole)}
}

var errStoreDown = errors.New("store unavailable")

func (r *memModerationRepo) ActiveChannelBan(_ context.Context, channelID, userID uuid.UUID, now time.Time) (*domain.ChannelBan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failReads {
		return nil, errStoreDown
	}
	var active *domain.ChannelBan
	for i := range r.channelBans {
		ban := r.channelBans[i]
		if ban.ChannelID == channelID && ban.UserID == userID && ban.BannedUntil.After(now) {
			if active == nil || ban.BannedUntil.After(active.BannedUntil) {
				cp := ban
				active = &cp
			}
		}
	}
	return active, nil
}

func (r *memModerationRepo) ActivePlatformBan(_ context.Context, userID uuid.UUID, now time.Time) (*domain.PlatformBan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failReads {
		return nil, errStoreDown
	}
	var active *domain.PlatformBan
	for i := range r.platformBans {
		ban := r.platformBans[i]
		if ban.UserID == userID && ban.BannedUntil.After(now) {
			if active == nil || ban.BannedUntil.After(active.BannedUntil) {
				cp := ban
				active = &cp
			}
		}
	}
	return active, nil
}

func (r *memModerationRepo) CreateChannelBan(_ context.Context, ban *domain.ChannelBan) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.channelBans = append(r.channelBans, *ban)
	return nil
}

func (r *memModerationRepo) CreatePlatformBan(_ context.Context, ban *domain.PlatformBan) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.platformBans = append(r.platformBans, *ban)
	return nil
}

func (r *memModerationRepo) CreateNotice(_ context.Context, n *domain.ModerationNotice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, *n)
	return nil
}

func (r *memModerationRepo) ListUnseenNotices(_ context.Context, userID uuid.UUID) ([]domain.ModerationNotice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.ModerationNotice
	for _, n := range r.notices {
		if n.UserID == userID && !n.Seen {
			out = append(out, n)
		}
	}
	return out, nil
}

func (r *memModerationRepo) MarkNoticesSeen(_ context.Context, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.notices {
		if r.notices[i].UserID == userID {
			r.notices[i].Seen = true
		}
	}
	return nil
}

func (r *memModerationRepo) CreateRequest(_ context.Context, req *domain.ModerationRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = append(r.requests, *req)
	return nil
}

func (r *memModerationRepo) GetChannelRole(_ context.Context, channelID, userID uuid.UUID) (*domain.ChannelRole, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failReads {
		return nil, errStoreDown
	}
	if role, ok := r.roles[channelID][userID]; ok {
		return &role, nil
	}
	return nil, nil
}

func (r *memModerationRepo) ListChannelRoles(_ context.Context, channelID uuid.UUID) ([]domain.ChannelRole, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.ChannelRole
	for _, role := range r.roles[channelID] {
		out = append(out, role)
	}
	return out, nil
}

func (r *memModerationRepo) UpsertChannelRole(_ context.Context, role *domain.ChannelRole) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.roles[role.ChannelID] == nil {
		r.roles[role.ChannelID] = make(map[uuid.UUID]domain.ChannelRole)
	}
	r.roles[role.ChannelID][role.UserID] = *role
	return nil
}

func (r *memModerationRepo) CountGuardians(_ context.Context, channelID uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, role := range r.roles[channelID] {
		if role.Role == domain.RoleGuardian {
			count++
		}
	}
	return count, nil
}

// hookedModeration injects a side effect before each role read, to model
// events arriving while a store call is in flight.
type hookedModeration struct {
	*memModerationRepo
	beforeGetChannelRole func()
}

func (r *hookedModeration) GetChannelRole(ctx context.Context, channelID, userID uuid.UUID) (*domain.ChannelRole, error) {
	if r.beforeGetChannelRole != nil {
		r.beforeGetChannelRole()
	}
	return r.memModerationRepo.GetChannelRole(ctx, channelID, userID)
}

type memFriendshipRepo struct {
	mu      sync.Mutex
	entries map[uuid.UUID]map[uuid.UUID]domain.FriendStatus
}

func newMemFriendshipRepo() *memFriendshipRepo {
	return &memFriendshipRepo{entries: make(map[uuid.UUID]map[uuid.UUID]domain.FriendStatus)}
}

func (r *memFriendshipRepo) Upsert(_ context.Context, f *domain.Friendship) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.entries[f.UserID] == nil {
		r.entries[f.UserID] = make(map[uuid.UUID]domain.FriendStatus)
	}
	r.entries[f.UserID][f.FriendID] = f.Status
	return nil
}

func (r *memFriendshipRepo) ListFriendIDs(_ context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []uuid.UUID
	for id, status := range r.entries[userID] {
		if status == domain.FriendAccepted {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

type memFavoriteRepo struct {
	mu      sync.Mutex
	entries map[uuid.UUID]map[uuid.UUID]struct{}
}

func newMemFavoriteRepo() *memFavoriteRepo {
	return &memFavoriteRepo{entries: make(map[uuid.UUID]map[uuid.UUID]struct{})}
}

func (r *memFavoriteRepo) Add(_ context.Context, fav domain.Favorite) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.entries[fav.UserID] == nil {
		r.entries[fav.UserID] = make(map[uuid.UUID]struct{})
	}
	r.entries[fav.UserID][fav.ChannelID] = struct{}{}
	return nil
}

func (r *memFavoriteRepo) Remove(_ context.Context, userID, channelID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries[userID], channelID)
	return nil
}

func (r *memFavoriteRepo) List(_ context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []uuid.UUID
	for id := range r.entries[userID] {
		ids = append(ids, id)
	}
	return ids, nil
}

func (r *memFavoriteRepo) Has(_ context.Context, userID, channelID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.entries[userID][channelID]
	return ok, nil
}

// recordNotifier captures notification dispatch for assertions.
type recordNotifier struct {
	mu     sync.Mutex
	toasts []string
	os     []string
	cues   []notify.Cue
	badges []int
}

func (n *recordNotifier) Toast(title, body string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.toasts = append(n.toasts, title+": "+body)
}

func (n *recordNotifier) OSNotify(title, body string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.os = append(n.os, title+": "+body)
}

func (n *recordNotifier) PlayCue(cue notify.Cue) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.cues = append(n.cues, cue)
}

func (n *recordNotifier) SetBadge(count int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.badges = append(n.badges, count)
}

func (n *recordNotifier) lastBadge() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.badges) == 0 {
		return 0
	}
	return n.badges[len(n.badges)-1]
}

// recordTransport captures outbound typing broadcasts.
type recordTransport struct {
	mu   sync.Mutex
	sent []realtime.TypingEvent
}

func (t *recordTransport) SendTyping(ev realtime.TypingEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sent = append(t.sent, ev)
}

func (t *recordTransport) events() []realtime.TypingEvent {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]realtime.TypingEvent, len(t.sent))
	copy(out, t.sent)
	return out
}

// fakePush is a synchronous in-process PushSource.
type fakePush struct {
	mu   sync.Mutex
	subs map[int]*fakeSub
	next int
}

type fakeSub struct {
	push      *fakePush
	id        int
	channelID uuid.UUID
	fn        func(realtime.MessageEvent)
}

func (s *fakeSub) Close() {
	s.push.mu.Lock()
	defer s.push.mu.Unlock()
	delete(s.push.subs, s.id)
}

func newFakePush() *fakePush {
	return &fakePush{subs: make(map[int]*fakeSub)}
}

func (p *fakePush) SubscribeChannel(channelID uuid.UUID, fn func(realtime.MessageEvent)) PushHandle {
	return p.subscribe(channelID, fn)
}

func (p *fakePush) SubscribeInbox(fn func(realtime.MessageEvent)) PushHandle {
	return p.subscribe(uuid.Nil, fn)
}

func (p *fakePush) subscribe(channelID uuid.UUID, fn func(realtime.MessageEvent)) PushHandle {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.next++
	sub := &fakeSub{push: p, id: p.next, channelID: channelID, fn: fn}
	p.subs[sub.id] = sub
	return sub
}

// Emit delivers an event to all matching subscribers, like the trigger does.
func (p *fakePush) Emit(ev realtime.MessageEvent) {
	p.mu.Lock()
	var fns []func(realtime.MessageEvent)
	for _, sub := range p.subs {
		if sub.channelID == uuid.Nil || sub.channelID == ev.ChannelID {
			fns = append(fns, sub.fn)
		}
	}
	p.mu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}

// fakeAuth satisfies auth.Authenticator for session tests.
type fakeAuth struct {
	mu       sync.Mutex
	session  *auth.Session
	watchers []func(*auth.Session)
	signouts int
}

func (a *fakeAuth) CurrentSession(context.Context) (*auth.Session, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.session, nil
}

func (a *fakeAuth) OnSessionChange(fn func(*auth.Session)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.watchers = append(a.watchers, fn)
}

func (a *fakeAuth) SignOut(context.Context) error {
	a.mu.Lock()
	a.session = nil
	a.signouts++
	watchers := make([]func(*auth.Session), len(a.watchers))
	copy(watchers, a.watchers)
	a.mu.Unlock()
	for _, fn := range watchers {
		fn(nil)
	}
	return nil
}

func (a *fakeAuth) signOutCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.signouts
}

func (a *fakeAuth) publish(session *auth.Session) {
	a.mu.Lock()
	a.session = session
	watchers := make([]func(*auth.Session), len(a.watchers))
	copy(watchers, a.watchers)
	a.mu.Unlock()
	for _, fn := range watchers {
		fn(session)
	}
}

// env bundles the fakes a session test wires together.
type env struct {
	auth     *fakeAuth
	push     *fakePush
	typing   *recordTransport
	notifier *recordNotifier

	profiles   *memProfileRepo
	channels   *memChannelRepo
	members    *memMembershipRepo
	messages   *memMessageRepo
	moderation *memModerationRepo
	friends    *memFriendshipRepo
	favorites  *memFavoriteRepo
}

func newEnv() *env {
	profiles := newMemProfileRepo()
	members := newMemMembershipRepo()
	return &env{
		auth:       &fakeAuth{},
		push:       newFakePush(),
		typing:     &recordTransport{},
		notifier:   &recordNotifier{},
		profiles:   profiles,
		channels:   newMemChannelRepo(members),
		members:    members,
		messages:   newMemMessageRepo(profiles),
		moderation: newMemModerationRepo(),
		friends:    newMemFriendshipRepo(),
		favorites:  newMemFavoriteRepo(),
	}
}

func (e *env) deps() Deps {
	return Deps{
		Auth:       e.auth,
		Push:       e.push,
		Typing:     e.typing,
		Notifier:   e.notifier,
		Profiles:   e.profiles,
		Channels:   e.channels,
		Members:    e.members,
		Messages:   e.messages,
		Moderation: e.moderation,
		Friends:    e.friends,
		Favorites:  e.favorites,
	}
}

func (e *env) addProfile(email, name string) domain.Profile {
	p := domain.Profile{
		ID:          uuid.New(),
		Email:       email,
		DisplayName: name,
		GlobalRole:  domain.GlobalRoleUser,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	_ = e.profiles.Create(context.Background(), &p)
	return p
}

func (e *env) addChannel(name string, createdBy uuid.UUID) domain.Channel {
	ch := domain.Channel{
		ID:        uuid.New(),
		Name:      name,
		CreatedBy: createdBy,
		CreatedAt: time.Now(),
	}
	_ = e.channels.Create(context.Background(), &ch)
	return ch
}
