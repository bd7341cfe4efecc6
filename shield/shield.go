// Package shield holds the HTTP middleware in front of the axquery API:
// security headers, HEAD handling and per-request ids with a request logger.
//
// Usage:
//
//	r := chi.NewRouter()
//	for _, mw := range shield.APIStack(logger) {
//	    r.Use(mw)
//	}
package shield

import (
	"log/slog"
	"net/http"
)

// APIStack returns the middleware stack for a JSON API.
// Order: HeadToGet → SecurityHeaders → RequestID.
func APIStack(logger *slog.Logger) []func(http.Handler) http.Handler {
	return []func(http.Handler) http.Handler{
		HeadToGet,
		SecurityHeaders(APIHeaders()),
		RequestID(logger),
	}
}
