package web

import (
	"context"
	"net/http"

	"github.com/JonMunkholm/roster/internal/core"
	mw "github.com/JonMunkholm/roster/internal/web/middleware"
)

// withRequestMetadata adds IP and User-Agent to ctx for the import audit log.
func withRequestMetadata(ctx context.Context, r *http.Request) context.Context {
	ctx = core.ContextWithIPAddress(ctx, mw.ClientIP(r))
	ctx = core.ContextWithUserAgent(ctx, r.UserAgent())
	return ctx
}
