// Package kit holds the transport-neutral endpoint shape shared by the HTTP
// and MCP surfaces of axquery.
package kit

import (
	"context"
	"log/slog"
	"time"

	"github.com/hazyhaar/axquery/idgen"
)

// Endpoint is a transport-neutral request handler.
type Endpoint func(ctx context.Context, req any) (any, error)

// Middleware wraps an Endpoint.
type Middleware func(Endpoint) Endpoint

// Chain composes middlewares so the first one is the outermost.
func Chain(mws ...Middleware) Middleware {
	return func(next Endpoint) Endpoint {
		for i := len(mws) - 1; i >= 0; i-- {
			next = mws[i](next)
		}
		return next
	}
}

// RequestID assigns a request id when the context carries none.
func RequestID(gen idgen.Generator) Middleware {
	return func(next Endpoint) Endpoint {
		return func(ctx context.Context, req any) (any, error) {
			if GetRequestID(ctx) == "" {
				ctx = WithRequestID(ctx, gen())
			}
			return next(ctx, req)
		}
	}
}

// Logging logs each call at Debug and failures at Warn.
func Logging(logger *slog.Logger, name string) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next Endpoint) Endpoint {
		return func(ctx context.Context, req any) (any, error) {
			start := time.Now()
			resp, err := next(ctx, req)
			attrs := []any{
				"endpoint", name,
				"transport", GetTransport(ctx),
				"request_id", GetRequestID(ctx),
				"duration", time.Since(start),
			}
			if err != nil {
				logger.Warn("kit: endpoint failed", append(attrs, "error", err)...)
			} else {
				logger.Debug("kit: endpoint", attrs...)
			}
			return resp, err
		}
	}
}
