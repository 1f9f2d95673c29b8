package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// GlobalRole is the platform-wide role stored on a profile.
type GlobalRole string

const (
	GlobalRoleUser    GlobalRole = "user"
	GlobalRoleCreator GlobalRole = "creator"
)

// User is the identity supplied by the auth collaborator. The engine never
// creates users itself.
type User struct {
	ID          uuid.UUID `json:"id"`
	Email       string    `json:"email,omitempty"`
	IsAnonymous bool      `json:"is_anonymous"`
}

type Profile struct {
	ID           uuid.UUID  `json:"id"`
	Email        string     `json:"email"`
	DisplayName  string     `json:"display_name"`
	AvatarURL    *string    `json:"avatar_url,omitempty"`
	Bio          *string    `json:"bio,omitempty"`
	GlobalRole   GlobalRole `json:"global_role"`
	PasswordHash string     `json:"-"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// DefaultDisplayName falls back to the local part of the email address.
func DefaultDisplayName(email string) string {
	if local, _, ok := strings.Cut(email, "@"); ok && local != "" {
		return local
	}
	return "Pixel"
}
