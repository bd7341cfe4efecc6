// CLAUDE:SUMMARY Manages the Chrome process behind query sessions: launch or connect, time/heap based recycling, Xvfb for headful mode.
// Package browser manages the Chrome instance query sessions run against:
// launch a local Chrome through the Rod launcher or connect to a remote
// DevTools endpoint, recycle it on age or heap size, and open tabs on it.
package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
)

// ErrClosed is returned once Close has been called.
var ErrClosed = errors.New("browser: manager is closed")

// Mode controls how Chrome is run.
type Mode int

const (
	ModeHeadless Mode = iota // Rod headless + stealth
	ModeHeadful              // Rod headful under Xvfb + stealth
)

// ParseMode maps a config string to a Mode. Unknown values are headless.
func ParseMode(s string) Mode {
	if s == "headful" {
		return ModeHeadful
	}
	return ModeHeadless
}

func (m Mode) String() string {
	if m == ModeHeadful {
		return "headful"
	}
	return "headless"
}

// Config configures the browser manager.
type Config struct {
	// RemoteURL is the WebSocket URL of an external Chrome instance.
	// Empty = launch a local Chrome via launcher.
	RemoteURL string

	// Bin overrides the Chrome binary used by the launcher.
	Bin string

	Mode Mode

	// Stealth applies go-rod/stealth evasions to new tabs.
	Stealth bool

	// MemoryLimit in bytes. Recycle Chrome when exceeded. Default: 1GB.
	MemoryLimit int64

	// RecycleInterval is the maximum lifetime of a Chrome process. Default: 4h.
	RecycleInterval time.Duration

	// ResourceBlocking lists resource types to block (images, fonts, media, stylesheets).
	ResourceBlocking []string

	// NavigationTimeout bounds Navigate + WaitLoad. Default: 30s.
	NavigationTimeout time.Duration

	// XvfbDisplay for headful mode. Default: ":99".
	XvfbDisplay string

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.MemoryLimit <= 0 {
		c.MemoryLimit = 1 << 30
	}
	if c.RecycleInterval <= 0 {
		c.RecycleInterval = 4 * time.Hour
	}
	if c.NavigationTimeout <= 0 {
		c.NavigationTimeout = 30 * time.Second
	}
	if c.XvfbDisplay == "" {
		c.XvfbDisplay = ":99"
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Manager owns one Chrome process (or remote connection).
type Manager struct {
	cfg       Config
	mu        sync.RWMutex
	browser   *rod.Browser
	lnch      *launcher.Launcher
	xvfb      *xvfbProc
	startAt   time.Time
	closed    bool
	onRecycle func()
}

// NewManager creates a browser Manager. Call Start to launch Chrome.
func NewManager(cfg Config) *Manager {
	cfg.defaults()
	return &Manager{cfg: cfg}
}

// Config returns the effective configuration.
func (m *Manager) Config() Config { return m.cfg }

// OnRecycle registers fn to run after Chrome has been replaced. Tabs and
// handles from the old process are dead at that point.
func (m *Manager) OnRecycle(fn func()) {
	m.mu.Lock()
	m.onRecycle = fn
	m.mu.Unlock()
}

// Start launches Chrome (or connects to a remote instance) and starts the
// recycle monitor. The monitor stops when ctx is done.
func (m *Manager) Start(ctx context.Context) (*rod.Browser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrClosed
	}

	b, err := m.launch()
	if err != nil {
		return nil, err
	}
	m.browser = b
	m.startAt = time.Now()

	go m.monitorLoop(ctx)

	return b, nil
}

// Browser returns the current Rod browser handle. Thread-safe.
func (m *Manager) Browser() *rod.Browser {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.browser
}

// Recycle kills Chrome and starts a fresh one.
func (m *Manager) Recycle() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	err := m.recycleLocked()
	cb := m.onRecycle
	m.mu.Unlock()

	if err == nil && cb != nil {
		cb()
	}
	return err
}

// Close shuts down Chrome and Xvfb.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.cleanup()
	return nil
}

func (m *Manager) launch() (*rod.Browser, error) {
	log := m.cfg.Logger

	if m.cfg.Mode == ModeHeadful {
		if err := m.startXvfb(); err != nil {
			return nil, fmt.Errorf("browser: xvfb: %w", err)
		}
	}

	wsURL := m.cfg.RemoteURL
	if wsURL != "" {
		log.Info("browser: connecting to remote", "url", wsURL)
	} else {
		l := launcher.New()
		if m.cfg.Bin != "" {
			l = l.Bin(m.cfg.Bin)
		}
		if m.cfg.Mode == ModeHeadful {
			l = l.Headless(false).Env("DISPLAY=" + m.cfg.XvfbDisplay)
		} else {
			l = l.Headless(true)
		}
		// Keep the accessibility tree populated for every page.
		l = l.Set("force-renderer-accessibility")
		l = l.Set("disable-blink-features", "AutomationControlled")

		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("browser: launch: %w", err)
		}
		wsURL = u
		m.lnch = l
		log.Info("browser: launched local chrome", "url", wsURL, "mode", m.cfg.Mode)
	}

	b := rod.New().ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("browser: connect: %w", err)
	}
	if err := b.IgnoreCertErrors(true); err != nil {
		log.Warn("browser: ignore cert errors failed", "error", err)
	}
	return b, nil
}

func (m *Manager) recycleLocked() error {
	log := m.cfg.Logger
	log.Info("browser: recycling", "uptime", time.Since(m.startAt))

	m.cleanup()

	b, err := m.launch()
	if err != nil {
		return fmt.Errorf("browser: relaunch: %w", err)
	}
	m.browser = b
	m.startAt = time.Now()

	log.Info("browser: recycled")
	return nil
}

func (m *Manager) cleanup() {
	if m.browser != nil {
		_ = m.browser.Close()
		m.browser = nil
	}
	if m.lnch != nil {
		m.lnch.Cleanup()
		m.lnch = nil
	}
	m.stopXvfb()
}

func (m *Manager) monitorLoop(ctx context.Context) {
	log := m.cfg.Logger
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.mu.RLock()
			if m.closed || m.browser == nil {
				m.mu.RUnlock()
				return
			}
			b, startAt := m.browser, m.startAt
			m.mu.RUnlock()

			if time.Since(startAt) > m.cfg.RecycleInterval {
				log.Info("browser: recycle interval reached")
				if err := m.Recycle(); err != nil {
					log.Error("browser: recycle failed", "error", err)
				}
				continue
			}

			used, err := jsHeapUsage(b)
			if err != nil {
				log.Debug("browser: heap check failed", "error", err)
				continue
			}
			if used > m.cfg.MemoryLimit {
				log.Info("browser: memory limit exceeded", "used", used, "limit", m.cfg.MemoryLimit)
				if err := m.Recycle(); err != nil {
					log.Error("browser: recycle failed", "error", err)
				}
			}
		}
	}
}

// jsHeapUsage sums the JS heap of every open page.
func jsHeapUsage(b *rod.Browser) (int64, error) {
	pages, err := b.Pages()
	if err != nil {
		return 0, err
	}
	var total int64
	for _, p := range pages {
		res, err := p.Eval(`() => performance.memory ? performance.memory.usedJSHeapSize : 0`)
		if err != nil {
			continue
		}
		total += int64(res.Value.Int())
	}
	return total, nil
}
