package chat

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pysend/pysend/internal/domain"
	"github.com/pysend/pysend/internal/repository"
	"github.com/pysend/pysend/pkg/validator"
)

// Sidebar assembles the member's visible channel set, DM channels, friends,
// and favorites. It touches channel metadata only, never message bodies.
type Sidebar struct {
	channels  repository.ChannelRepository
	members   repository.MembershipRepository
	profiles  repository.ProfileRepository
	friends   repository.FriendshipRepository
	favorites repository.FavoriteRepository
	presence  *Presence
	unread    *Unread
}

func NewSidebar(
	channels repository.ChannelRepository,
	members repository.MembershipRepository,
	profiles repository.ProfileRepository,
	friends repository.FriendshipRepository,
	favorites repository.FavoriteRepository,
	presence *Presence,
	unread *Unread,
) *Sidebar {
	return &Sidebar{
		channels:  channels,
		members:   members,
		profiles:  profiles,
		friends:   friends,
		favorites: favorites,
		presence:  presence,
		unread:    unread,
	}
}

type ChannelEntry struct {
	Channel  domain.Channel
	Favorite bool
	Online   int
	Unread   int
}

type FriendEntry struct {
	ID    uuid.UUID
	Label string
}

type Directory struct {
	Channels []ChannelEntry
	Friends  []FriendEntry
}

// Refresh builds the directory. Display reads fail open: a store error
// degrades that section to empty rather than blocking the sidebar.
func (s *Sidebar) Refresh(ctx context.Context, userID uuid.UUID) *Directory {
	dir := &Directory{}

	public, err := s.channels.ListPublic(ctx)
	if err != nil {
		log.Printf("sidebar: listing public channels: %v", err)
	}
	dms, err := s.channels.ListDMsByMember(ctx, userID)
	if err != nil {
		log.Printf("sidebar: listing dm channels: %v", err)
	}

	favs := make(map[uuid.UUID]struct{})
	favIDs, err := s.favorites.List(ctx, userID)
	if err != nil {
		log.Printf("sidebar: listing favorites: %v", err)
	}
	for _, id := range favIDs {
		favs[id] = struct{}{}
	}

	for _, ch := range append(public, dms...) {
		online, err := s.presence.OnlineCount(ctx, ch.ID)
		if err != nil {
			online = 0
		}
		_, fav := favs[ch.ID]
		dir.Channels = append(dir.Channels, ChannelEntry{
			Channel:  ch,
			Favorite: fav,
			Online:   online,
			Unread:   s.unread.Count(ch.ID),
		})
	}

	dir.Friends = s.listFriends(ctx, userID)
	return dir
}

func (s *Sidebar) listFriends(ctx context.Context, userID uuid.UUID) []FriendEntry {
	ids, err := s.friends.ListFriendIDs(ctx, userID)
	if err != nil {
		log.Printf("sidebar: listing friends: %v", err)
		return nil
	}
	if len(ids) == 0 {
		return nil
	}
	profiles, err := s.profiles.ListByIDs(ctx, ids)
	if err != nil {
		log.Printf("sidebar: loading friend profiles: %v", err)
		return nil
	}

	entries := make([]FriendEntry, 0, len(profiles))
	for _, p := range profiles {
		label := p.DisplayName
		if label == "" {
			label = p.Email
		}
		entries = append(entries, FriendEntry{ID: p.ID, Label: label})
	}
	return entries
}

// CreateChannel creates a public channel and adds the creator as a member.
func (s *Sidebar) CreateChannel(ctx context.Context, userID uuid.UUID, name string) (*domain.Channel, error) {
	if errs := validator.ValidateChannelName(name); errs.HasErrors() {
		return nil, &ValidationError{Fields: errs}
	}

	ch := &domain.Channel{
		ID:        uuid.New(),
		Name:      strings.TrimSpace(name),
		CreatedBy: userID,
		CreatedAt: time.Now(),
	}
	if err := s.channels.Create(ctx, ch); err != nil {
		return nil, fmt.Errorf("creating channel: %w", err)
	}
	if err := s.members.Upsert(ctx, domain.Membership{
		ChannelID: ch.ID,
		UserID:    userID,
		LastSeen:  time.Now(),
	}); err != nil {
		return nil, fmt.Errorf("adding creator membership: %w", err)
	}
	return ch, nil
}

// OpenDM resolves the channel for an unordered user pair via the canonical
// dm_pair key, creating it on first use. A second call never creates a
// duplicate.
func (s *Sidebar) OpenDM(ctx context.Context, self *domain.Profile, friendID uuid.UUID) (*domain.Channel, error) {
	pair := domain.DMPairKey(self.ID, friendID)

	ch, err := s.channels.GetByDMPair(ctx, pair)
	if err != nil {
		return nil, err
	}
	if ch == nil {
		friend, err := loadProfile(ctx, s.profiles, friendID)
		if err != nil {
			return nil, err
		}
		ch = &domain.Channel{
			ID:        uuid.New(),
			Name:      "DM: " + friend.DisplayName,
			CreatedBy: self.ID,
			IsDM:      true,
			DMPair:    &pair,
			CreatedAt: time.Now(),
		}
		if err := s.channels.Create(ctx, ch); err != nil {
			// Lost a creation race; the unique dm_pair row wins.
			existing, getErr := s.channels.GetByDMPair(ctx, pair)
			if getErr == nil && existing != nil {
				ch = existing
			} else {
				return nil, fmt.Errorf("creating dm channel: %w", err)
			}
		}
	}

	now := time.Now()
	if err := s.members.Upsert(ctx, domain.Membership{ChannelID: ch.ID, UserID: self.ID, LastSeen: now}); err != nil {
		return nil, err
	}
	if err := s.members.Upsert(ctx, domain.Membership{ChannelID: ch.ID, UserID: friendID, LastSeen: now}); err != nil {
		return nil, err
	}
	return ch, nil
}

// AddFriendByEmail records an accepted friendship in both directions.
func (s *Sidebar) AddFriendByEmail(ctx context.Context, userID uuid.UUID, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		errs := make(validator.ValidationErrors)
		errs.Add("email", "Email is required")
		return &ValidationError{Fields: errs}
	}

	friend, err := s.profiles.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if friend == nil {
		return ErrUserNotFound
	}
	if friend.ID == userID {
		return ErrSelfFriend
	}

	now := time.Now()
	forward := &domain.Friendship{UserID: userID, FriendID: friend.ID, Status: domain.FriendAccepted, CreatedAt: now}
	if err := s.friends.Upsert(ctx, forward); err != nil {
		return fmt.Errorf("saving friendship: %w", err)
	}
	backward := &domain.Friendship{UserID: friend.ID, FriendID: userID, Status: domain.FriendAccepted, CreatedAt: now}
	if err := s.friends.Upsert(ctx, backward); err != nil {
		return fmt.Errorf("saving reverse friendship: %w", err)
	}
	return nil
}

// ToggleFavorite flips the favorite star and reports the new state.
func (s *Sidebar) ToggleFavorite(ctx context.Context, userID, channelID uuid.UUID) (bool, error) {
	has, err := s.favorites.Has(ctx, userID, channelID)
	if err != nil {
		return false, err
	}
	if has {
		return false, s.favorites.Remove(ctx, userID, channelID)
	}
	return true, s.favorites.Add(ctx, domain.Favorite{
		UserID:    userID,
		ChannelID: channelID,
		CreatedAt: time.Now(),
	})
}
