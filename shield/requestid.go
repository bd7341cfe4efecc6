package shield

import (
	"context"
	"log/slog"
	"net/http"
	"regexp"

	"github.com/hazyhaar/axquery/idgen"
	"github.com/hazyhaar/axquery/kit"
)

type contextKey string

// LoggerKey is the context key for the per-request structured logger.
const LoggerKey contextKey = "shield_logger"

// HeaderRequestID carries the request id in both directions.
const HeaderRequestID = "X-Request-ID"

var acceptedID = regexp.MustCompile(`^[A-Za-z0-9._-]{1,64}$`)

// RequestID reuses a well-formed incoming X-Request-ID or generates one,
// stores it under kit.RequestIDKey, echoes it in the response and attaches a
// request-scoped logger.
func RequestID(logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	gen := idgen.Prefixed("req_", idgen.Default)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(HeaderRequestID)
			if !acceptedID.MatchString(id) {
				id = gen()
			}
			w.Header().Set(HeaderRequestID, id)

			l := logger.With(
				"request_id", id,
				"method", r.Method,
				"path", r.URL.Path,
			)
			ctx := kit.WithRequestID(r.Context(), id)
			ctx = kit.WithTransport(ctx, "http")
			ctx = context.WithValue(ctx, LoggerKey, l)
			l.Debug("shield: request", "remote_addr", r.RemoteAddr)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetLogger returns the per-request logger, slog.Default() when unset.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(LoggerKey).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}
