// CLAUDE:SUMMARY Page API over one document: registry-routed QueryOne/QueryAll/EvalAll/WaitFor/Count plus element summaries and journal recording.
package axquery

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod/lib/proto"
	"github.com/ysmood/gson"

	"github.com/hazyhaar/axquery/internal/journal"
	"github.com/hazyhaar/axquery/jshandle"
	"github.com/hazyhaar/axquery/queryhandler"
)

// Query operation names, as recorded in the journal and accepted by the
// query endpoint.
const (
	OpOne   = "one"
	OpAll   = "all"
	OpCount = "count"
	OpEval  = "eval"
	OpWait  = "wait"
)

// recorder is the subset of *journal.Journal a Page writes to.
type recorder interface {
	Record(ctx context.Context, r journal.Run) (journal.Run, error)
}

// Page runs selector queries against one document.
type Page struct {
	id       string
	url      string
	ec       *jshandle.ExecutionContext
	document func(context.Context) (*jshandle.ElementHandle, error)
	registry *queryhandler.Registry
	journal  recorder
	logger   *slog.Logger
	wait     queryhandler.WaitOptions

	closeOnce sync.Once
	closeFn   func() error
	closeErr  error
}

// PageOption configures a Page built with NewPage.
type PageOption func(*Page)

// WithRegistry sets the dialect registry. Default: NewRegistry with default
// query settings.
func WithRegistry(r *queryhandler.Registry) PageOption {
	return func(p *Page) { p.registry = r }
}

// WithPageLogger sets the logger. Default: slog.Default().
func WithPageLogger(l *slog.Logger) PageOption {
	return func(p *Page) { p.logger = l }
}

// WithPageURL sets the URL reported for the page.
func WithPageURL(u string) PageOption {
	return func(p *Page) { p.url = u }
}

// WithWaitOptions sets the WaitFor defaults of the page.
func WithWaitOptions(o queryhandler.WaitOptions) PageOption {
	return func(p *Page) { p.wait = o }
}

func withJournal(r recorder) PageOption {
	return func(p *Page) { p.journal = r }
}

func withCloser(fn func() error) PageOption {
	return func(p *Page) { p.closeFn = fn }
}

func withDocument(fn func(context.Context) (*jshandle.ElementHandle, error)) PageOption {
	return func(p *Page) { p.document = fn }
}

// NewPage builds a Page over any CDP client bound to a page session, such as
// a *rod.Page. Queries run in the default execution context.
func NewPage(client proto.Client, opts ...PageOption) *Page {
	p := &Page{logger: slog.Default()}
	for _, o := range opts {
		o(p)
	}
	p.ec = jshandle.New(client, 0, jshandle.WithLogger(p.logger))
	if p.document == nil {
		p.document = p.ec.Document
	}
	if p.registry == nil {
		p.registry = NewRegistry(defaultQuery(), p.logger)
	}
	return p
}

// ID returns the page id ("" for pages built with NewPage).
func (p *Page) ID() string { return p.id }

// URL returns the URL the page was opened on.
func (p *Page) URL() string { return p.url }

// ExecutionContext returns the realm queries run in.
func (p *Page) ExecutionContext() *jshandle.ExecutionContext { return p.ec }

// Document returns a handle to the document node. The caller releases it.
func (p *Page) Document(ctx context.Context) (*jshandle.ElementHandle, error) {
	return p.document(ctx)
}

// resolve picks the dialect for selector and takes a document handle. release
// drops the document handle.
func (p *Page) resolve(ctx context.Context, selector string) (h queryhandler.QueryHandler, sel string, root *jshandle.ElementHandle, release func(), err error) {
	h, sel, err = p.registry.Resolve(selector)
	if err != nil {
		return nil, "", nil, nil, err
	}
	root, release, err = p.root(ctx)
	if err != nil {
		return nil, "", nil, nil, err
	}
	return h, sel, root, release, nil
}

// root fetches the document handle queries run against.
func (p *Page) root(ctx context.Context) (*jshandle.ElementHandle, func(), error) {
	root, err := p.document(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("axquery: document: %w", err)
	}
	return root, func() { _ = root.Release(context.WithoutCancel(ctx)) }, nil
}

// QueryOne returns the first element matching selector, or nil when nothing
// matches.
func (p *Page) QueryOne(ctx context.Context, selector string) (el *jshandle.ElementHandle, err error) {
	start := time.Now()
	defer func() {
		n := 0
		if el != nil {
			n = 1
		}
		p.record(ctx, selector, OpOne, n, err, start)
	}()

	h, sel, root, release, err := p.resolve(ctx, selector)
	if err != nil {
		return nil, err
	}
	defer release()
	return h.QueryOne(ctx, root, sel)
}

// QueryAll returns every element matching selector.
func (p *Page) QueryAll(ctx context.Context, selector string) (els []*jshandle.ElementHandle, err error) {
	start := time.Now()
	defer func() { p.record(ctx, selector, OpAll, len(els), err, start) }()

	h, sel, root, release, err := p.resolve(ctx, selector)
	if err != nil {
		return nil, err
	}
	defer release()
	return h.QueryAll(ctx, root, sel)
}

// Count returns how many elements match selector. No handle outlives the
// call.
func (p *Page) Count(ctx context.Context, selector string) (n int, err error) {
	start := time.Now()
	defer func() { p.record(ctx, selector, OpCount, n, err, start) }()

	h, sel, root, release, err := p.resolve(ctx, selector)
	if err != nil {
		return 0, err
	}
	defer release()

	els, err := h.QueryAll(ctx, root, sel)
	if err != nil {
		return 0, err
	}
	n = len(els)
	_ = jshandle.ReleaseAll(context.WithoutCancel(ctx), els)
	return n, nil
}

// EvalAll collects every match into one array and calls fn with that array as
// its only argument, returning the JSON result:
//
//	v, err := page.EvalAll(ctx, "aria/&link", `els => els.map(e => e.href)`)
func (p *Page) EvalAll(ctx context.Context, selector, fn string) (v gson.JSON, err error) {
	start := time.Now()
	defer func() { p.record(ctx, selector, OpEval, -1, err, start) }()

	h, sel, root, release, err := p.resolve(ctx, selector)
	if err != nil {
		return gson.New(nil), err
	}
	defer release()

	arr, err := h.QueryAllArray(ctx, root, sel)
	if err != nil {
		return gson.New(nil), err
	}
	defer arr.Release(context.WithoutCancel(ctx))

	v, err = arr.Evaluate(ctx, fn)
	if err != nil {
		return gson.New(nil), fmt.Errorf("axquery: eval: %w", err)
	}
	return v, nil
}

// WaitFor waits for selector to match. Zero fields of opts fall back to the
// page defaults. Dialects that cannot wait (aria) fail immediately.
func (p *Page) WaitFor(ctx context.Context, selector string, opts queryhandler.WaitOptions) (el *jshandle.ElementHandle, err error) {
	start := time.Now()
	defer func() {
		n := 0
		if el != nil {
			n = 1
		}
		p.record(ctx, selector, OpWait, n, err, start)
	}()

	if opts.Timeout <= 0 {
		opts.Timeout = p.wait.Timeout
	}
	if opts.Interval <= 0 {
		opts.Interval = p.wait.Interval
	}

	h, sel, err := p.registry.Resolve(selector)
	if err != nil {
		return nil, err
	}
	if r, ok := h.(queryhandler.WaitRefuser); ok {
		return nil, r.WaitError()
	}

	root, release, err := p.root(ctx)
	if err != nil {
		return nil, err
	}
	defer release()
	return h.WaitFor(ctx, root, sel, opts)
}

// Element summarises a matched element for output.
type Element struct {
	BackendNodeID int    `json:"backend_node_id,omitempty"`
	Tag           string `json:"tag"`
	ID            string `json:"id,omitempty"`
	Role          string `json:"role,omitempty"`
	Label         string `json:"label,omitempty"`
	Text          string `json:"text,omitempty"`
}

const describeFn = `el => ({
	tag: (el.nodeName || "").toLowerCase(),
	id: el.id || "",
	role: (el.getAttribute && el.getAttribute("role")) || "",
	label: (el.getAttribute && el.getAttribute("aria-label")) || "",
	text: (el.textContent || "").trim().replace(/\s+/g, " ").slice(0, 200),
})`

// Describe summarises each handle, in order.
func (p *Page) Describe(ctx context.Context, handles []*jshandle.ElementHandle) ([]Element, error) {
	out := make([]Element, 0, len(handles))
	for i, h := range handles {
		v, err := h.Evaluate(ctx, describeFn)
		if err != nil {
			return nil, fmt.Errorf("axquery: describe %d: %w", i, err)
		}
		var el Element
		if err := decodeJSON(v, &el); err != nil {
			return nil, fmt.Errorf("axquery: describe %d: %w", i, err)
		}
		el.BackendNodeID = int(h.BackendNodeID())
		out = append(out, el)
	}
	return out, nil
}

// Close closes the underlying tab, if any. Safe to call more than once.
func (p *Page) Close() error {
	p.closeOnce.Do(func() {
		if p.closeFn != nil {
			p.closeErr = p.closeFn()
		}
	})
	return p.closeErr
}

func (p *Page) record(ctx context.Context, selector, op string, matches int, err error, start time.Time) {
	dur := time.Since(start)
	if err == nil {
		p.logger.Debug("axquery: query", "page", p.id, "selector", selector, "op", op, "matches", matches, "duration", dur)
	}
	if p.journal == nil {
		return
	}
	run := journal.Run{
		PageURL:  p.url,
		Selector: selector,
		Op:       op,
		Matches:  max(matches, 0),
		Duration: dur,
	}
	if err != nil {
		run.Error = err.Error()
	}
	if _, jerr := p.journal.Record(context.WithoutCancel(ctx), run); jerr != nil {
		p.logger.Warn("axquery: journal record failed", "selector", selector, "error", jerr)
	}
}

func decodeJSON(v gson.JSON, dst any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, dst)
}
