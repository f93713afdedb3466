// Package tenantctx carries the acting tenant through request contexts. Every
// repository call re-checks the tenant id explicitly; the context value only
// transports it from the HTTP layer.
package tenantctx

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

type keyType string

const (
	tenantIDKey keyType = "tenant_id"
	actorKey    keyType = "actor"
)

func WithTenantID(ctx context.Context, id snowflake.ID) context.Context {
	return context.WithValue(ctx, tenantIDKey, id)
}

func TenantID(ctx context.Context) (snowflake.ID, bool) {
	id, ok := ctx.Value(tenantIDKey).(snowflake.ID)
	if !ok || id == 0 {
		return 0, false
	}
	return id, true
}

func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

func Actor(ctx context.Context) string {
	actor, _ := ctx.Value(actorKey).(string)
	return actor
}
