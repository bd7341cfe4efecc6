// CLAUDE:SUMMARY Accessibility query handler: one queryAXTree per call, concurrent ordered adoption, aggregated array handle.
package aria

import (
	"context"
	"errors"
	"log/slog"

	"github.com/go-rod/rod/lib/proto"
	"golang.org/x/sync/errgroup"

	"github.com/hazyhaar/axquery/jshandle"
	"github.com/hazyhaar/axquery/queryhandler"
)

// ErrWaitUnsupported is returned by WaitFor for every input. The accessibility
// query is a one-shot snapshot; callers that need to wait must use another
// dialect.
var ErrWaitUnsupported = errors.New("aria: waitForSelector is not supported for aria selectors")

// DefaultAdoptLimit bounds concurrent node adoptions in QueryAll.
const DefaultAdoptLimit = 64

// Handler is the aria query dialect. The zero value is not usable; call New.
type Handler struct {
	adoptLimit int
	logger     *slog.Logger
}

var (
	_ queryhandler.QueryHandler = (*Handler)(nil)
	_ queryhandler.WaitRefuser  = (*Handler)(nil)
)

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the logger for debug traces.
func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) { h.logger = l }
}

// WithAdoptLimit bounds the number of in-flight adoptions. n <= 0 removes the
// bound.
func WithAdoptLimit(n int) Option {
	return func(h *Handler) { h.adoptLimit = n }
}

// New creates an aria Handler.
func New(opts ...Option) *Handler {
	h := &Handler{adoptLimit: DefaultAdoptLimit, logger: slog.Default()}
	for _, o := range opts {
		o(h)
	}
	return h
}

// QueryOne adopts the first matching node. It returns (nil, nil) when nothing
// matches.
func (h *Handler) QueryOne(ctx context.Context, root *jshandle.ElementHandle, selector string) (*jshandle.ElementHandle, error) {
	if root == nil {
		return nil, queryhandler.ErrNoRoot
	}
	ec := root.ExecutionContext()
	sel := ParseSelector(selector)

	nodes, err := queryAXTree(ctx, ec, root, sel)
	if err != nil {
		return nil, err
	}
	h.logger.DebugContext(ctx, "aria: query one", "selector", selector, "matches", len(nodes))
	if len(nodes) == 0 {
		return nil, nil
	}
	return ec.AdoptBackendNode(ctx, nodes[0].BackendDOMNodeID)
}

// QueryAll adopts every matching node. Adoptions run concurrently; the result
// keeps the provider's order. If any adoption fails the handles already
// adopted are released and the error is returned.
func (h *Handler) QueryAll(ctx context.Context, root *jshandle.ElementHandle, selector string) ([]*jshandle.ElementHandle, error) {
	if root == nil {
		return nil, queryhandler.ErrNoRoot
	}
	ec := root.ExecutionContext()
	sel := ParseSelector(selector)

	nodes, err := queryAXTree(ctx, ec, root, sel)
	if err != nil {
		return nil, err
	}
	h.logger.DebugContext(ctx, "aria: query all", "selector", selector, "matches", len(nodes))

	return h.adoptAll(ctx, ec, nodes)
}

func (h *Handler) adoptAll(ctx context.Context, ec *jshandle.ExecutionContext, nodes []*proto.AccessibilityAXNode) ([]*jshandle.ElementHandle, error) {
	handles := make([]*jshandle.ElementHandle, len(nodes))

	g, gctx := errgroup.WithContext(ctx)
	if h.adoptLimit > 0 {
		g.SetLimit(h.adoptLimit)
	}
	for i, n := range nodes {
		g.Go(func() error {
			el, err := ec.AdoptBackendNode(gctx, n.BackendDOMNodeID)
			if err != nil {
				return err
			}
			handles[i] = el
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		// gctx is cancelled by now; release on the caller's context.
		_ = jshandle.ReleaseAll(context.WithoutCancel(ctx), handles)
		return nil, err
	}
	return handles, nil
}

// QueryAllArray resolves every match like QueryAll and gathers the elements
// into one remote array, in the same order.
func (h *Handler) QueryAllArray(ctx context.Context, root *jshandle.ElementHandle, selector string) (*jshandle.JSHandle, error) {
	handles, err := h.QueryAll(ctx, root, selector)
	if err != nil {
		return nil, err
	}
	// The array keeps the elements alive; the per-element handles are ours.
	defer jshandle.ReleaseAll(context.WithoutCancel(ctx), handles)

	args := make([]*jshandle.JSHandle, len(handles))
	for i, el := range handles {
		args[i] = el.Handle()
	}

	ec := root.ExecutionContext()
	obj, err := ec.CallFunctionOn(ctx, root.Handle(), "function(...elements) { return elements; }", false, args...)
	if err != nil {
		return nil, err
	}
	return jshandle.NewHandle(ec, obj), nil
}

// WaitError reports ErrWaitUnsupported; Handler never waits.
func (h *Handler) WaitError() error { return ErrWaitUnsupported }

// WaitFor always fails with ErrWaitUnsupported.
func (h *Handler) WaitFor(context.Context, *jshandle.ElementHandle, string, queryhandler.WaitOptions) (*jshandle.ElementHandle, error) {
	return nil, ErrWaitUnsupported
}
