package domain

import (
	"time"

	"github.com/google/uuid"
)

// Message is immutable once created; the engine never edits or deletes rows.
type Message struct {
	ID        uuid.UUID `json:"id"`
	ChannelID uuid.UUID `json:"channel_id"`
	UserID    uuid.UUID `json:"user_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
	// Joined fields
	Author           string     `json:"author,omitempty"`
	AuthorEmail      string     `json:"author_email,omitempty"`
	AuthorGlobalRole GlobalRole `json:"author_global_role,omitempty"`
	// Role is the author's present effective role in the channel, resolved at
	// fetch time rather than stored with the row.
	Role Role `json:"role,omitempty"`
}

type Friendship struct {
	UserID    uuid.UUID    `json:"user_id"`
	FriendID  uuid.UUID    `json:"friend_id"`
	Status    FriendStatus `json:"status"`
	CreatedAt time.Time    `json:"created_at"`
}

type FriendStatus string

const (
	FriendPending  FriendStatus = "pending"
	FriendAccepted FriendStatus = "accepted"
)
