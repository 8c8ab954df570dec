package web

import (
	"context"
	"net/http"

	"github.com/JonMunkholm/dartsearch/internal/core"
)

// withRequestMetadata makes sure the client address reaches history events.
// TrustedRealIP normally stores it already; the fallback covers routers
// built without that middleware.
func withRequestMetadata(ctx context.Context, r *http.Request) context.Context {
	if core.ClientIPFromContext(ctx) != "" {
		return ctx
	}
	return core.ContextWithClientIP(ctx, r.RemoteAddr)
}
