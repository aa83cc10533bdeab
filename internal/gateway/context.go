package gateway

import (
	"context"
	"log/slog"

	"github.com/user/campuschat/internal/campus"
	ctxengine "github.com/user/campuschat/internal/context"
	"github.com/user/campuschat/internal/types"
	"github.com/user/campuschat/pkg/assistant"
)

// ContextSource supplies what a coordinator needs about its user.
type ContextSource interface {
	// Profile returns the user's portal profile, or nil when unavailable.
	Profile(ctx context.Context, user *types.User) *campus.Profile
	// Context returns a freshly assembled request context.
	Context(ctx context.Context, user *types.User) assistant.RequestContext
}

// PortalContext assembles request contexts from live portal data.
type PortalContext struct {
	Campus    *campus.Client
	Assembler *ctxengine.Assembler
}

func (p *PortalContext) Profile(ctx context.Context, user *types.User) *campus.Profile {
	if p.Campus == nil || !p.Campus.Authenticated() || types.RoleOf(user) == types.RoleGuest {
		return nil
	}
	profile, err := p.Campus.Profile(ctx)
	if err != nil {
		slog.Warn("context fetch failed", "endpoint", campus.ProfilePath, "error", err)
		return nil
	}
	return profile
}

// Payload assembles the full context payload for user.
func (p *PortalContext) Payload(ctx context.Context, user *types.User) ctxengine.Payload {
	var bundle *campus.Bundle
	if p.Campus != nil {
		bundle = p.Campus.FetchBundle(ctx, types.RoleOf(user))
	}
	return p.Assembler.Assemble(user, bundle)
}

func (p *PortalContext) Context(ctx context.Context, user *types.User) assistant.RequestContext {
	payload := p.Payload(ctx, user)
	return payload.Wire()
}
