// CLAUDE:SUMMARY HTTP surface (chi): /health, POST /api/query, GET /api/handlers, GET /api/runs.
package axquery

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hazyhaar/axquery/queryhandler"
	"github.com/hazyhaar/axquery/shield"
)

// maxBody bounds POST bodies (inline HTML included).
const maxBody = 8 << 20

// Router returns the HTTP routes of the service.
func (s *Service) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	for _, mw := range shield.APIStack(s.logger) {
		r.Use(mw)
	}
	s.RegisterHTTP(r)
	return r
}

// RegisterHTTP mounts the service endpoints on r.
func (s *Service) RegisterHTTP(r chi.Router) {
	query := s.queryEndpoint()
	handlers := s.handlersEndpoint()
	runs := s.runsEndpoint()

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/api/query", func(w http.ResponseWriter, r *http.Request) {
		var req QueryRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, errors.New("invalid request body"))
			return
		}
		resp, err := query(r.Context(), &req)
		if err != nil {
			shield.GetLogger(r.Context()).Debug("axquery: query rejected", "error", err)
			writeError(w, statusOf(err), err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	})

	r.Get("/api/handlers", func(w http.ResponseWriter, r *http.Request) {
		resp, _ := handlers(r.Context(), nil)
		writeJSON(w, http.StatusOK, resp)
	})

	r.Get("/api/runs", func(w http.ResponseWriter, r *http.Request) {
		resp, err := runs(r.Context(), queryInt(r, "limit", 50))
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	})
}

// statusOf maps endpoint errors to HTTP status codes.
func statusOf(err error) int {
	var unknown *queryhandler.ErrUnknownHandler
	switch {
	case errors.Is(err, ErrBadRequest), errors.As(err, &unknown):
		return http.StatusBadRequest
	default:
		return http.StatusBadGateway
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func queryInt(r *http.Request, key string, def int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
