package auth

import "github.com/artpar/berth/internal/core/domain"

// =============================================================================
// Service Authorization
// =============================================================================

// CanManageService checks if the caller can start or reconfigure a service.
// Services belong to a team; any authenticated member of that team can manage them.
func CanManageService(ctx Context, svc domain.Service) bool {
	return ctx.Authenticated && ctx.TeamID != "" && svc.TeamID == ctx.TeamID
}

// CanManageApplication checks if the caller can change an application's domain.
func CanManageApplication(ctx Context, app domain.Application) bool {
	return ctx.Authenticated && ctx.TeamID != "" && app.TeamID == ctx.TeamID
}
