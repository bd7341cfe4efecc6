package axquery

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hazyhaar/axquery/idgen"
	"github.com/hazyhaar/axquery/internal/journal"
	"github.com/hazyhaar/axquery/jshandle"
	"github.com/hazyhaar/axquery/kit"
)

// ErrBadRequest marks query requests rejected before any page is opened.
var ErrBadRequest = errors.New("axquery: bad request")

// QueryRequest is the input of the query endpoint (HTTP and MCP).
type QueryRequest struct {
	URL      string `json:"url,omitempty"`
	HTML     string `json:"html,omitempty"`
	Selector string `json:"selector"`
	Op       string `json:"op,omitempty"` // one | all | count; default all
}

// QueryResponse is the output of the query endpoint.
type QueryResponse struct {
	URL      string    `json:"url,omitempty"`
	Selector string    `json:"selector"`
	Op       string    `json:"op"`
	Count    int       `json:"count"`
	Elements []Element `json:"elements,omitempty"`
}

// HandlersResponse lists the registered dialects.
type HandlersResponse struct {
	Default  string   `json:"default"`
	Handlers []string `json:"handlers"`
}

// RunsResponse lists recent journal entries.
type RunsResponse struct {
	Runs []journal.Run `json:"runs"`
}

func (r *QueryRequest) validate() error {
	if strings.TrimSpace(r.Selector) == "" {
		return fmt.Errorf("%w: selector is required", ErrBadRequest)
	}
	if r.URL == "" && r.HTML == "" {
		return fmt.Errorf("%w: url or html is required", ErrBadRequest)
	}
	if r.URL != "" && r.HTML != "" {
		return fmt.Errorf("%w: url and html are exclusive", ErrBadRequest)
	}
	if r.Op == "" {
		r.Op = OpAll
	}
	switch r.Op {
	case OpOne, OpAll, OpCount:
		return nil
	}
	return fmt.Errorf("%w: unknown op %q", ErrBadRequest, r.Op)
}

// Query opens the requested page, runs one query and closes the page.
func (s *Service) Query(ctx context.Context, req QueryRequest) (*QueryResponse, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	page, err := s.OpenSource(ctx, Source{URL: req.URL, HTML: req.HTML})
	if err != nil {
		return nil, err
	}
	defer page.Close()

	resp := &QueryResponse{URL: req.URL, Selector: req.Selector, Op: req.Op}
	switch req.Op {
	case OpCount:
		resp.Count, err = page.Count(ctx, req.Selector)
		return resp, err

	case OpOne:
		el, err := page.QueryOne(ctx, req.Selector)
		if err != nil || el == nil {
			return resp, err
		}
		defer el.Release(context.WithoutCancel(ctx))
		resp.Count = 1
		resp.Elements, err = page.Describe(ctx, []*jshandle.ElementHandle{el})
		return resp, err

	default:
		els, err := page.QueryAll(ctx, req.Selector)
		if err != nil {
			return resp, err
		}
		defer jshandle.ReleaseAll(context.WithoutCancel(ctx), els)
		resp.Count = len(els)
		resp.Elements, err = page.Describe(ctx, els)
		return resp, err
	}
}

// Handlers lists the dialects of the service registry.
func (s *Service) Handlers() HandlersResponse {
	return HandlersResponse{Default: "css", Handlers: s.registry.Names()}
}

// Runs returns the latest journal entries. Empty when the journal is off.
func (s *Service) Runs(ctx context.Context, limit int) (*RunsResponse, error) {
	if s.journal == nil {
		return &RunsResponse{Runs: []journal.Run{}}, nil
	}
	runs, err := s.journal.Recent(ctx, limit)
	if err != nil {
		return nil, err
	}
	return &RunsResponse{Runs: runs}, nil
}

// endpointMiddleware is shared by the HTTP and MCP transports.
func (s *Service) endpointMiddleware(name string) kit.Middleware {
	return kit.Chain(
		kit.RequestID(idgen.Prefixed("req_", idgen.Default)),
		kit.Logging(s.logger, name),
	)
}

func (s *Service) queryEndpoint() kit.Endpoint {
	return s.endpointMiddleware("query")(func(ctx context.Context, req any) (any, error) {
		return s.Query(ctx, *req.(*QueryRequest))
	})
}

func (s *Service) handlersEndpoint() kit.Endpoint {
	return s.endpointMiddleware("handlers")(func(context.Context, any) (any, error) {
		return s.Handlers(), nil
	})
}

func (s *Service) runsEndpoint() kit.Endpoint {
	return s.endpointMiddleware("runs")(func(ctx context.Context, req any) (any, error) {
		return s.Runs(ctx, req.(int))
	})
}
