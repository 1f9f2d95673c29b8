package chat

import (
	"github.com/google/uuid"

	"github.com/pysend/pysend/internal/domain"
)

// EffectiveRole resolves a user's authority in a channel. Precedence, highest
// wins: global creator, channel ownership (admin), stored per-channel role,
// default user. Pure, so it can be recomputed on every render and every
// moderation check; it is never cached across role mutations.
func EffectiveRole(userID uuid.UUID, channel *domain.Channel, globalRole domain.GlobalRole, stored *domain.ChannelRole) domain.Role {
	if globalRole == domain.GlobalRoleCreator {
		return domain.RoleCreator
	}
	if channel != nil && channel.CreatedBy == userID {
		return domain.RoleAdmin
	}
	if stored != nil {
		return sanitizeRole(stored.Role)
	}
	return domain.RoleUser
}

// sanitizeRole collapses anything outside {guardian, admin} to user. A
// malformed role record degrades, never errors.
func sanitizeRole(role domain.Role) domain.Role {
	switch role {
	case domain.RoleGuardian, domain.RoleAdmin:
		return role
	default:
		return domain.RoleUser
	}
}
