// CLAUDE:SUMMARY QueryHandler capability interface shared by every selector dialect, plus wait options.
// Package queryhandler routes prefixed selectors ("aria/Submit&button") to the
// selector dialect that understands them.
//
//	reg := queryhandler.NewRegistry(queryhandler.NewCSS())
//	reg.RegisterBuiltin("aria", aria.New())
//
//	h, sel, err := reg.Resolve("aria/Submit&button")
//	el, err := h.QueryOne(ctx, root, sel)
//
// Selectors without a known-looking prefix go to the default dialect
// unchanged.
package queryhandler

import (
	"context"
	"time"

	"github.com/hazyhaar/axquery/jshandle"
)

// QueryHandler is the fixed capability set of a selector dialect.
//
// QueryOne returns (nil, nil) when nothing matches; an error always means the
// query itself failed. QueryAll returns matches in document or provider order.
type QueryHandler interface {
	QueryOne(ctx context.Context, root *jshandle.ElementHandle, selector string) (*jshandle.ElementHandle, error)
	QueryAll(ctx context.Context, root *jshandle.ElementHandle, selector string) ([]*jshandle.ElementHandle, error)
	QueryAllArray(ctx context.Context, root *jshandle.ElementHandle, selector string) (*jshandle.JSHandle, error)
	WaitFor(ctx context.Context, root *jshandle.ElementHandle, selector string, opts WaitOptions) (*jshandle.ElementHandle, error)
}

// WaitRefuser is implemented by dialects whose WaitFor fails for every input.
// WaitError returns that fixed error, so callers can report it without first
// fetching a root from the page.
type WaitRefuser interface {
	WaitError() error
}

// WaitOptions controls WaitFor polling.
type WaitOptions struct {
	// Timeout bounds the wait. Zero means the dialect default.
	Timeout time.Duration
	// Interval between polls. Zero means the dialect default.
	Interval time.Duration
}
