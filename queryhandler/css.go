// CLAUDE:SUMMARY Default CSS selector dialect: querySelector/querySelectorAll on the root element, polling WaitFor.
package queryhandler

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-rod/rod/lib/proto"

	"github.com/hazyhaar/axquery/jshandle"
)

// CSS is the default dialect. It evaluates querySelector / querySelectorAll
// with the root element as the scope.
type CSS struct {
	// PollInterval is the WaitFor poll interval. Default: 100ms.
	PollInterval time.Duration
	// WaitTimeout is the WaitFor timeout when WaitOptions leaves it unset.
	// Default: 30s.
	WaitTimeout time.Duration
}

var _ QueryHandler = (*CSS)(nil)

// NewCSS returns a CSS handler with default polling settings.
func NewCSS() *CSS {
	return &CSS{PollInterval: 100 * time.Millisecond, WaitTimeout: 30 * time.Second}
}

// QueryOne returns the first element matching selector under root.
func (c *CSS) QueryOne(ctx context.Context, root *jshandle.ElementHandle, selector string) (*jshandle.ElementHandle, error) {
	if root == nil {
		return nil, ErrNoRoot
	}
	lit, err := jsString(selector)
	if err != nil {
		return nil, err
	}
	ec := root.ExecutionContext()
	obj, err := ec.CallFunctionOn(ctx, root.Handle(),
		fmt.Sprintf("function() { return this.querySelector(%s); }", lit), false)
	if err != nil {
		return nil, fmt.Errorf("queryhandler: css query one: %w", err)
	}
	if obj.Subtype == proto.RuntimeRemoteObjectSubtypeNull || obj.ObjectID == "" {
		return nil, nil
	}
	el := jshandle.NewHandle(ec, obj).AsElement()
	if el == nil {
		_ = jshandle.NewHandle(ec, obj).Release(ctx)
		return nil, nil
	}
	return el, nil
}

// QueryAll returns every element matching selector under root, in document
// order.
func (c *CSS) QueryAll(ctx context.Context, root *jshandle.ElementHandle, selector string) ([]*jshandle.ElementHandle, error) {
	arr, err := c.QueryAllArray(ctx, root, selector)
	if err != nil {
		return nil, err
	}
	defer arr.Release(ctx)

	els, err := arr.Elements(ctx)
	if err != nil {
		return nil, fmt.Errorf("queryhandler: css query all: %w", err)
	}
	return els, nil
}

// QueryAllArray returns one remote array holding every match.
func (c *CSS) QueryAllArray(ctx context.Context, root *jshandle.ElementHandle, selector string) (*jshandle.JSHandle, error) {
	if root == nil {
		return nil, ErrNoRoot
	}
	lit, err := jsString(selector)
	if err != nil {
		return nil, err
	}
	ec := root.ExecutionContext()
	obj, err := ec.CallFunctionOn(ctx, root.Handle(),
		fmt.Sprintf("function() { return Array.from(this.querySelectorAll(%s)); }", lit), false)
	if err != nil {
		return nil, fmt.Errorf("queryhandler: css query all: %w", err)
	}
	return jshandle.NewHandle(ec, obj), nil
}

// WaitFor polls QueryOne until an element matches, the timeout elapses or ctx
// is done.
func (c *CSS) WaitFor(ctx context.Context, root *jshandle.ElementHandle, selector string, opts WaitOptions) (*jshandle.ElementHandle, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = c.WaitTimeout
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	interval := opts.Interval
	if interval <= 0 {
		interval = c.PollInterval
	}
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		el, err := c.QueryOne(ctx, root, selector)
		if err != nil {
			return nil, err
		}
		if el != nil {
			return el, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline.C:
			return nil, &ErrWaitTimeout{Selector: selector, Timeout: timeout}
		case <-ticker.C:
		}
	}
}

// jsString renders s as a JavaScript string literal.
func jsString(s string) (string, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("queryhandler: encode selector: %w", err)
	}
	return string(b), nil
}
