// Package remote implements the repositories on top of the backend client. Reads go
// through the query cache scoped to the calling principal; successful writes
// invalidate the collections they affect.
package remote

import (
	"context"
	"log/slog"

	"docarchive/internal/cache"
	"docarchive/internal/session"
)

const pkg = "repository/remote/"

// anonymousScope keys cache entries of calls made without an identity.
const anonymousScope = "-"

// scoped prefixes key with the caller so that entries are never shared between principals.
func scoped(ctx context.Context, key string) string {
	p, ok := session.PrincipalFrom(ctx)
	if !ok {
		return anonymousScope + "|" + key
	}
	return p.String() + "|" + key
}

// invalidate drops the given collections. The write already succeeded, so a
// failure here only costs freshness until the entries go stale.
func invalidate(ctx context.Context, c *cache.Cache, log *slog.Logger, op string, collections ...string) {
	if err := c.Invalidate(ctx, collections...); err != nil {
		log.Warn("cache invalidation failed",
			slog.String("op", op),
			slog.Any("collections", collections),
			slog.String("error", err.Error()),
		)
	}
}
