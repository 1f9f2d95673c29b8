package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pysend/pysend/internal/domain"
	"github.com/pysend/pysend/internal/repository"
)

// EnsureProfile lazily creates a profile on first session and applies the
// configured creator-email promotion. Both paths are idempotent.
func EnsureProfile(ctx context.Context, profiles repository.ProfileRepository, user domain.User, displayName string, creatorEmails []string) (*domain.Profile, error) {
	profile, err := profiles.GetByID(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	if profile == nil {
		if displayName == "" {
			displayName = domain.DefaultDisplayName(user.Email)
		}
		now := time.Now()
		profile = &domain.Profile{
			ID:          user.ID,
			Email:       user.Email,
			DisplayName: displayName,
			GlobalRole:  domain.GlobalRoleUser,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := profiles.Create(ctx, profile); err != nil {
			return nil, fmt.Errorf("creating profile: %w", err)
		}
	} else if displayName != "" && profile.DisplayName != displayName {
		if err := profiles.UpdateDisplayName(ctx, user.ID, displayName); err != nil {
			return nil, err
		}
		profile.DisplayName = displayName
	}

	if profile.GlobalRole != domain.GlobalRoleCreator && isCreatorEmail(user.Email, creatorEmails) {
		if err := profiles.SetGlobalRole(ctx, user.ID, domain.GlobalRoleCreator); err != nil {
			return nil, err
		}
		profile.GlobalRole = domain.GlobalRoleCreator
	}

	return profile, nil
}

func isCreatorEmail(email string, creatorEmails []string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	for _, creator := range creatorEmails {
		if email != "" && email == creator {
			return true
		}
	}
	return false
}

// loadProfile is the authoritative-role fetch used before moderation checks.
func loadProfile(ctx context.Context, profiles repository.ProfileRepository, id uuid.UUID) (*domain.Profile, error) {
	profile, err := profiles.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, ErrUserNotFound
	}
	return profile, nil
}
