// Package chat is the messaging, presence, and moderation coordination
// engine: channel selection, message delivery with de-duplication, ephemeral
// typing state, unread aggregation, and role-derived moderation actions.
package chat

import (
	"errors"
	"fmt"
	"time"

	"github.com/pysend/pysend/pkg/validator"
)

var (
	// ErrAccessDenied covers insufficient role. Ban and moderation checks
	// fail closed: any error reading role or ban state denies.
	ErrAccessDenied = errors.New("access denied")
	// ErrSessionInvalid means no session at action time. The action is not
	// queued.
	ErrSessionInvalid  = errors.New("no active session")
	ErrChannelNotFound = errors.New("channel not found")
	ErrUserNotFound    = errors.New("user not found")
	ErrSelfFriend      = errors.New("cannot add yourself as a friend")
)

// ValidationError aborts an operation with no partial write.
type ValidationError struct {
	Fields validator.ValidationErrors
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %v", map[string]string(e.Fields))
}

// BanError reports an active ban together with its expiry.
type BanError struct {
	Reason   string
	Until    time.Time
	Platform bool
}

func (e *BanError) Error() string {
	scope := "channel"
	if e.Platform {
		scope = "platform"
	}
	return fmt.Sprintf("%s ban active until %s: %s", scope, e.Until.Format(time.RFC3339), e.Reason)
}
