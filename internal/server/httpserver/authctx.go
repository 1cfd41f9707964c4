package httpserver

import (
	"context"

	"github.com/Nguyentram30/activity-portal/internal/service"
)

type ctxKey string

const actorKey ctxKey = "portal.actor"

// WithActor stores the authenticated caller in context.
func WithActor(ctx context.Context, a service.Actor) context.Context {
	return context.WithValue(ctx, actorKey, a)
}

// ActorFromCtx fetches the caller stored by the auth middleware.
func ActorFromCtx(ctx context.Context) (service.Actor, bool) {
	a, ok := ctx.Value(actorKey).(service.Actor)
	return a, ok
}
