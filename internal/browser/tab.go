package browser

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/hazyhaar/axquery/jshandle"
)

// Tab wraps a Rod page with stealth, resource blocking and the execution
// context queries run in.
type Tab struct {
	Page    *rod.Page
	PageURL string
	TabID   string

	router *rod.HijackRouter
	ec     *jshandle.ExecutionContext
	logger *slog.Logger
}

// OpenTab creates a tab and navigates it to pageURL. An empty URL leaves the
// tab on about:blank.
func OpenTab(ctx context.Context, mgr *Manager, pageURL, tabID string) (*Tab, error) {
	b := mgr.Browser()
	if b == nil {
		return nil, fmt.Errorf("browser: no active browser")
	}
	cfg := mgr.Config()

	var page *rod.Page
	var err error
	if cfg.Stealth {
		page, err = stealth.Page(b)
	} else {
		page, err = b.Page(proto.TargetCreateTarget{URL: "about:blank"})
	}
	if err != nil {
		return nil, fmt.Errorf("browser: create tab: %w", err)
	}

	t := &Tab{
		Page:    page,
		PageURL: pageURL,
		TabID:   tabID,
		router:  applyResourceBlocking(page, cfg.ResourceBlocking),
		ec:      jshandle.New(page, 0, jshandle.WithLogger(cfg.Logger)),
		logger:  cfg.Logger,
	}

	if pageURL == "" {
		return t, nil
	}

	navCtx, cancel := context.WithTimeout(ctx, cfg.NavigationTimeout)
	defer cancel()

	if err := page.Context(navCtx).Navigate(pageURL); err != nil {
		t.Close()
		return nil, fmt.Errorf("browser: navigate %s: %w", pageURL, err)
	}
	if err := page.Context(navCtx).WaitLoad(); err != nil {
		cfg.Logger.Warn("browser: wait load timeout", "url", pageURL, "error", err)
	}
	return t, nil
}

// SetContent replaces the document with html.
func (t *Tab) SetContent(ctx context.Context, html string) error {
	if err := t.Page.Context(ctx).SetDocumentContent(html); err != nil {
		return fmt.Errorf("browser: set content: %w", err)
	}
	return nil
}

// ExecutionContext returns the main-world realm of the tab.
func (t *Tab) ExecutionContext() *jshandle.ExecutionContext { return t.ec }

// Document returns a handle to the current document node. Handles are tied
// to the document: after navigation a new one must be taken.
func (t *Tab) Document(ctx context.Context) (*jshandle.ElementHandle, error) {
	doc, err := t.ec.Document(ctx)
	if err != nil {
		return nil, fmt.Errorf("browser: %s: %w", t.TabID, err)
	}
	return doc, nil
}

// Close stops request interception and closes the tab.
func (t *Tab) Close() error {
	if t.router != nil {
		if err := t.router.Stop(); err != nil {
			t.logger.Debug("browser: stop hijack router", "tab", t.TabID, "error", err)
		}
	}
	if t.Page != nil {
		return t.Page.Close()
	}
	return nil
}
