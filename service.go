// CLAUDE:SUMMARY Service orchestrator: browser manager, dialect registry (css default + aria), query journal, page lifecycle.
// Package axquery resolves accessibility selectors ("aria/Submit&button")
// and CSS selectors against live pages driven over the Chrome DevTools
// Protocol.
//
// Usage:
//
//	svc := axquery.New(axquery.DefaultConfig(), logger)
//	if err := svc.Start(ctx); err != nil { ... }
//	defer svc.Stop()
//
//	page, err := svc.Open(ctx, "https://example.com")
//	defer page.Close()
//	el, err := page.QueryOne(ctx, "aria/More information...&link")
//
// Pages can also wrap an existing *rod.Page with NewPage.
package axquery

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-rod/rod/lib/proto"

	"github.com/hazyhaar/axquery/aria"
	"github.com/hazyhaar/axquery/idgen"
	"github.com/hazyhaar/axquery/internal/browser"
	"github.com/hazyhaar/axquery/internal/config"
	"github.com/hazyhaar/axquery/internal/journal"
	"github.com/hazyhaar/axquery/jshandle"
	"github.com/hazyhaar/axquery/queryhandler"
)

// Config is the service configuration.
type Config = config.Config

// LoadConfig reads a YAML configuration file.
func LoadConfig(path string) (*Config, error) { return config.LoadFile(path) }

// DefaultConfig returns a configuration with every default applied.
func DefaultConfig() *Config { return config.Default() }

func defaultQuery() config.QueryConfig { return config.Default().Query }

// NewRegistry returns a registry with CSS as the default dialect and aria
// registered as a built-in.
func NewRegistry(q config.QueryConfig, logger *slog.Logger) *queryhandler.Registry {
	if logger == nil {
		logger = slog.Default()
	}
	css := queryhandler.NewCSS()
	if q.WaitPollInterval > 0 {
		css.PollInterval = q.WaitPollInterval
	}
	if q.WaitTimeout > 0 {
		css.WaitTimeout = q.WaitTimeout
	}
	reg := queryhandler.NewRegistry(css, queryhandler.WithRegistryLogger(logger))
	// Fixed valid name on an empty registry.
	_ = reg.RegisterBuiltin("aria", aria.New(aria.WithAdoptLimit(q.AdoptLimit), aria.WithLogger(logger)))
	return reg
}

// Source is what a page is opened on: a URL or raw HTML.
type Source struct {
	URL  string
	HTML string
}

// Opener opens a page for a Source.
type Opener func(ctx context.Context, src Source) (*Page, error)

// Service owns the browser, the dialect registry and the query journal.
type Service struct {
	cfg      *Config
	logger   *slog.Logger
	mgr      *browser.Manager
	registry *queryhandler.Registry
	journal  *journal.Journal
	newTabID idgen.Generator
	opener   Opener
	custom   bool

	mu    sync.Mutex
	pages map[string]*Page
}

// Option configures a Service.
type Option func(*Service)

// WithOpener replaces the browser-backed page opener.
func WithOpener(fn Opener) Option {
	return func(s *Service) { s.opener, s.custom = fn, true }
}

// WithJournal sets an already opened journal. It takes precedence over
// cfg.Journal.Path.
func WithJournal(j *journal.Journal) Option {
	return func(s *Service) { s.journal = j }
}

// New creates a Service. Call Start before opening pages.
func New(cfg *Config, logger *slog.Logger, opts ...Option) *Service {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		cfg:    cfg,
		logger: logger,
		mgr: browser.NewManager(browser.Config{
			RemoteURL:         cfg.Browser.Remote,
			Bin:               cfg.Browser.Bin,
			Mode:              browser.ParseMode(cfg.Browser.Mode),
			Stealth:           cfg.Browser.Stealth,
			MemoryLimit:       cfg.Browser.MemoryLimit,
			RecycleInterval:   cfg.Browser.RecycleInterval,
			ResourceBlocking:  cfg.Browser.ResourceBlocking,
			NavigationTimeout: cfg.Browser.NavigationTimeout,
			XvfbDisplay:       cfg.Browser.XvfbDisplay,
			Logger:            logger,
		}),
		registry: NewRegistry(cfg.Query, logger),
		newTabID: idgen.Prefixed("tab_", idgen.Default),
		pages:    make(map[string]*Page),
	}
	for _, o := range opts {
		o(s)
	}
	if s.opener == nil {
		s.opener = s.openTab
	}
	s.mgr.OnRecycle(s.dropPages)
	return s
}

// Registry returns the dialect registry. Custom dialects registered on it are
// visible to every page of the service.
func (s *Service) Registry() *queryhandler.Registry { return s.registry }

// Journal returns the query journal, nil when disabled.
func (s *Service) Journal() *journal.Journal { return s.journal }

// Start opens the journal and launches (or connects to) Chrome. With a custom
// opener no browser is started.
func (s *Service) Start(ctx context.Context) error {
	if s.journal == nil && s.cfg.Journal.Path != "" {
		j, err := journal.Open(s.cfg.Journal.Path)
		if err != nil {
			return fmt.Errorf("axquery: %w", err)
		}
		s.journal = j
	}
	if s.custom {
		return nil
	}
	if _, err := s.mgr.Start(ctx); err != nil {
		return fmt.Errorf("axquery: start browser: %w", err)
	}
	s.logger.Info("axquery: started", "mode", s.cfg.Browser.Mode, "remote", s.cfg.Browser.Remote != "")
	return nil
}

// Stop closes every open page, Chrome and the journal.
func (s *Service) Stop() error {
	s.mu.Lock()
	pages := make([]*Page, 0, len(s.pages))
	for _, p := range s.pages {
		pages = append(pages, p)
	}
	s.mu.Unlock()
	for _, p := range pages {
		_ = p.Close()
	}

	if err := s.mgr.Close(); err != nil {
		s.logger.Warn("axquery: close browser", "error", err)
	}
	if s.journal != nil {
		return s.journal.Close()
	}
	return nil
}

// Open opens pageURL in a new tab.
func (s *Service) Open(ctx context.Context, pageURL string) (*Page, error) {
	if pageURL == "" {
		return nil, fmt.Errorf("axquery: open: empty url")
	}
	return s.opener(ctx, Source{URL: pageURL})
}

// OpenHTML opens a blank tab and sets its document to html.
func (s *Service) OpenHTML(ctx context.Context, html string) (*Page, error) {
	return s.opener(ctx, Source{HTML: html})
}

// OpenSource opens a URL when set, raw HTML otherwise.
func (s *Service) OpenSource(ctx context.Context, src Source) (*Page, error) {
	if src.URL != "" {
		return s.Open(ctx, src.URL)
	}
	return s.OpenHTML(ctx, src.HTML)
}

// Pages returns the number of open pages.
func (s *Service) Pages() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pages)
}

func (s *Service) openTab(ctx context.Context, src Source) (*Page, error) {
	id := s.newTabID()
	tab, err := browser.OpenTab(ctx, s.mgr, src.URL, id)
	if err != nil {
		return nil, fmt.Errorf("axquery: %w", err)
	}
	if src.URL == "" {
		if err := tab.SetContent(ctx, src.HTML); err != nil {
			_ = tab.Close()
			return nil, fmt.Errorf("axquery: %w", err)
		}
	}

	p := s.attach(id, src.URL, tab.Page, tab.Document, tab.Close)
	s.logger.Debug("axquery: page opened", "page", id, "url", src.URL)
	return p, nil
}

// Attach wraps a CDP client bound to a page session (a *rod.Page, or any
// proto.Client) as a Page sharing the service registry and journal.
func (s *Service) Attach(client proto.Client, pageURL string) *Page {
	return s.attach(s.newTabID(), pageURL, client, nil, nil)
}

func (s *Service) attach(id, pageURL string, client proto.Client, doc func(context.Context) (*jshandle.ElementHandle, error), closeFn func() error) *Page {
	opts := []PageOption{
		WithRegistry(s.registry),
		WithPageLogger(s.logger),
		WithPageURL(pageURL),
		WithWaitOptions(queryhandler.WaitOptions{
			Timeout:  s.cfg.Query.WaitTimeout,
			Interval: s.cfg.Query.WaitPollInterval,
		}),
		withCloser(func() error {
			s.forget(id)
			if closeFn != nil {
				return closeFn()
			}
			return nil
		}),
	}
	if doc != nil {
		opts = append(opts, withDocument(doc))
	}
	if s.journal != nil {
		opts = append(opts, withJournal(s.journal))
	}

	p := NewPage(client, opts...)
	p.id = id

	s.mu.Lock()
	s.pages[id] = p
	s.mu.Unlock()
	return p
}

func (s *Service) forget(id string) {
	s.mu.Lock()
	delete(s.pages, id)
	s.mu.Unlock()
}

// dropPages forgets every page after Chrome was recycled: their tabs are gone.
func (s *Service) dropPages() {
	s.mu.Lock()
	n := len(s.pages)
	s.pages = make(map[string]*Page)
	s.mu.Unlock()
	if n > 0 {
		s.logger.Warn("axquery: pages lost to browser recycle", "count", n)
	}
}
