// CLAUDE:SUMMARY CLI entry point for axquery: one-shot selector queries, HTTP server, or MCP over stdio.
// Command axquery runs accessibility and CSS selector queries against pages.
//
// Usage:
//
//	axquery -url https://example.com -selector 'aria/More information...&link'
//	axquery -html page.html -selector 'aria/&button' -op count
//	axquery -config axquery.yaml -serve :8080      # HTTP API
//	axquery -config axquery.yaml -mcp              # MCP tools on stdio
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hazyhaar/axquery"
	"github.com/hazyhaar/axquery/kit"
)

var version = "dev"

type options struct {
	configPath string
	remote     string
	url        string
	htmlFile   string
	selector   string
	op         string
	serve      string
	mcp        bool
}

func main() {
	var o options
	flag.StringVar(&o.configPath, "config", "", "path to axquery.yaml config file")
	flag.StringVar(&o.remote, "remote", "", "DevTools WebSocket URL of an existing Chrome")
	flag.StringVar(&o.url, "url", "", "page URL to query")
	flag.StringVar(&o.htmlFile, "html", "", "HTML file to load instead of a URL")
	flag.StringVar(&o.selector, "selector", "", "selector, e.g. 'aria/Submit&button' or 'button.primary'")
	flag.StringVar(&o.op, "op", axquery.OpAll, "one | all | count")
	flag.StringVar(&o.serve, "serve", "", "serve the HTTP API on this address (overrides server.addr)")
	flag.BoolVar(&o.mcp, "mcp", false, "serve MCP tools on stdin/stdout")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, o); err != nil {
		logger.Error("axquery: fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, o options) error {
	cfg := axquery.DefaultConfig()
	if o.configPath != "" {
		var err error
		if cfg, err = axquery.LoadConfig(o.configPath); err != nil {
			return fmt.Errorf("load config: %w", err)
		}
	}
	if o.remote != "" {
		cfg.Browser.Remote = o.remote
	}
	if o.serve != "" {
		cfg.Server.Addr = o.serve
	}

	switch {
	case o.mcp:
		return runMCP(ctx, logger, cfg)
	case o.serve != "" || (o.selector == "" && o.configPath != ""):
		return runServer(ctx, logger, cfg)
	case o.selector != "":
		return runQuery(ctx, logger, cfg, o)
	}

	fmt.Fprintln(os.Stderr, "usage: axquery -selector <sel> (-url <url> | -html <file>) | -serve <addr> | -mcp")
	os.Exit(2)
	return nil
}

func runQuery(ctx context.Context, logger *slog.Logger, cfg *axquery.Config, o options) error {
	req := axquery.QueryRequest{URL: o.url, Selector: o.selector, Op: o.op}
	if o.htmlFile != "" {
		data, err := os.ReadFile(o.htmlFile)
		if err != nil {
			return fmt.Errorf("read html: %w", err)
		}
		req.HTML = string(data)
	}

	svc := axquery.New(cfg, logger)
	if err := svc.Start(ctx); err != nil {
		return err
	}
	defer svc.Stop()

	resp, err := svc.Query(kit.WithTransport(ctx, "cli"), req)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}

func runServer(ctx context.Context, logger *slog.Logger, cfg *axquery.Config) error {
	svc := axquery.New(cfg, logger)
	if err := svc.Start(ctx); err != nil {
		return err
	}
	defer svc.Stop()

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           svc.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("axquery: listening", "addr", cfg.Server.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func runMCP(ctx context.Context, logger *slog.Logger, cfg *axquery.Config) error {
	svc := axquery.New(cfg, logger)
	if err := svc.Start(ctx); err != nil {
		return err
	}
	defer svc.Stop()

	return svc.ServeMCPStdio(ctx, version)
}
