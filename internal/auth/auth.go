// Package auth implements the identity collaborator: session tokens, local
// sign-in/sign-up against the profile table, and session-change fanout.
package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pysend/pysend/internal/domain"
	"github.com/pysend/pysend/internal/repository"
)

var (
	ErrEmailTaken   = errors.New("email already taken")
	ErrInvalidCreds = errors.New("invalid email or password")
	ErrNoSession    = errors.New("no active session")
)

// Session is the identity handed to the chat engine. The engine treats it as
// authoritative and re-validates ban state on every change.
type Session struct {
	User        domain.User
	AccessToken string
}

// Authenticator supplies identity only; everything else is the engine's job.
type Authenticator interface {
	CurrentSession(ctx context.Context) (*Session, error)
	OnSessionChange(fn func(*Session))
	SignOut(ctx context.Context) error
}

// LocalAuth authenticates against the profiles table with argon2id password
// hashes and HS256 session tokens.
type LocalAuth struct {
	profiles repository.ProfileRepository
	secret   []byte

	mu       sync.Mutex
	session  *Session
	watchers []func(*Session)
}

func NewLocalAuth(profiles repository.ProfileRepository, jwtSecret string) *LocalAuth {
	return &LocalAuth{
		profiles: profiles,
		secret:   []byte(jwtSecret),
	}
}

func (a *LocalAuth) SignUp(ctx context.Context, email, password, displayName string) (*Session, error) {
	existing, err := a.profiles.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	hash, err := hashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	if displayName == "" {
		displayName = domain.DefaultDisplayName(email)
	}

	now := time.Now()
	profile := &domain.Profile{
		ID:           uuid.New(),
		Email:        email,
		DisplayName:  displayName,
		GlobalRole:   domain.GlobalRoleUser,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := a.profiles.Create(ctx, profile); err != nil {
		return nil, fmt.Errorf("creating profile: %w", err)
	}

	return a.establish(profile)
}

func (a *LocalAuth) SignIn(ctx context.Context, email, password string) (*Session, error) {
	profile, err := a.profiles.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, ErrInvalidCreds
	}
	if !verifyPassword(password, profile.PasswordHash) {
		return nil, ErrInvalidCreds
	}

	return a.establish(profile)
}

// Resume restores a session from a previously issued token.
func (a *LocalAuth) Resume(ctx context.Context, token string) (*Session, error) {
	userID, err := ParseToken(token, a.secret)
	if err != nil {
		return nil, err
	}
	profile, err := a.profiles.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, ErrInvalidCreds
	}

	session := &Session{
		User:        domain.User{ID: profile.ID, Email: profile.Email},
		AccessToken: token,
	}
	a.publish(session)
	return session, nil
}

func (a *LocalAuth) establish(profile *domain.Profile) (*Session, error) {
	token, err := GenerateToken(profile.ID, a.secret, 24*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("generating token: %w", err)
	}
	session := &Session{
		User:        domain.User{ID: profile.ID, Email: profile.Email},
		AccessToken: token,
	}
	a.publish(session)
	return session, nil
}

func (a *LocalAuth) CurrentSession(ctx context.Context) (*Session, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.session, nil
}

func (a *LocalAuth) OnSessionChange(fn func(*Session)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.watchers = append(a.watchers, fn)
}

func (a *LocalAuth) SignOut(ctx context.Context) error {
	a.publish(nil)
	return nil
}

func (a *LocalAuth) publish(session *Session) {
	a.mu.Lock()
	a.session = session
	watchers := make([]func(*Session), len(a.watchers))
	copy(watchers, a.watchers)
	a.mu.Unlock()

	for _, fn := range watchers {
		fn(session)
	}
}
