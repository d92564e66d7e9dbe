package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/heraldbot/herald/internal/models"
)

// Capability is one named action a role may perform.
type Capability string

const (
	CapManageRoles    Capability = "manage_roles"
	CapManageChannels Capability = "manage_channels"
	CapCreatePost     Capability = "create_post"
	CapEditPost       Capability = "edit_post"
	CapDeletePost     Capability = "delete_post"
	CapPublishPost    Capability = "publish_post"
	CapListPosts      Capability = "list_posts"
)

// roleCapabilities is the fixed role to capability table. Administrator
// is a superset of ContentManager.
var roleCapabilities = map[models.Role]map[Capability]struct{}{
	models.RoleContentManager: capSet(
		CapCreatePost,
		CapEditPost,
		CapListPosts,
		CapPublishPost,
	),
	models.RoleAdministrator: capSet(
		CapManageRoles,
		CapManageChannels,
		CapCreatePost,
		CapEditPost,
		CapDeletePost,
		CapPublishPost,
		CapListPosts,
	),
}

func capSet(caps ...Capability) map[Capability]struct{} {
	set := make(map[Capability]struct{}, len(caps))
	for _, c := range caps {
		set[c] = struct{}{}
	}
	return set
}

// RoleChecker resolves the roles a principal currently holds.
type RoleChecker interface {
	ListActiveRoles(ctx context.Context, principalID int64) ([]models.Role, error)
}

// Guard gates every inbound action. It denies by default: a principal
// with no matching active role is rejected, including principals never
// seen before. The bootstrap administrator from config bypasses the
// role store entirely.
type Guard struct {
	roles       RoleChecker
	bootstrapID int64
	logger      *zap.Logger
}

func NewGuard(roles RoleChecker, bootstrapID int64, logger *zap.Logger) *Guard {
	return &Guard{
		roles:       roles,
		bootstrapID: bootstrapID,
		logger:      logger,
	}
}

// Authorize reports whether the principal may perform the capability.
// Lookup failures deny rather than propagate: fail closed.
func (g *Guard) Authorize(ctx context.Context, principalID int64, capability Capability) bool {
	if principalID == g.bootstrapID {
		return true
	}

	roles, err := g.roles.ListActiveRoles(ctx, principalID)
	if err != nil {
		g.logger.Error("Role lookup failed, denying",
			zap.Int64("principal_id", principalID),
			zap.String("capability", string(capability)),
			zap.Error(err))
		return false
	}

	for _, role := range roles {
		if _, ok := roleCapabilities[role][capability]; ok {
			return true
		}
	}

	g.logger.Warn("Action denied",
		zap.Int64("principal_id", principalID),
		zap.String("capability", string(capability)))
	return false
}

// RoleHasCapability exposes the lookup table for listings.
func RoleHasCapability(role models.Role, capability Capability) bool {
	_, ok := roleCapabilities[role][capability]
	return ok
}
