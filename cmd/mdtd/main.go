// Mdtd is the markdown-ticket daemon. It serves the project API over
// HTTP for the web frontend and, with --mcp, over the Model Context
// Protocol on stdio for agent integrations. Both transports call the
// same project facade the mdt CLI uses.
//
// Usage:
//
//	# Serve HTTP on the configured address (default localhost:7070)
//	mdtd
//
//	# Serve MCP on stdio
//	mdtd --mcp
//
// Configuration is read from ~/.config/mdt/config.toml with MDT_*
// environment overrides.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/markdown-ticket/mdt/internal/cache"
	"github.com/markdown-ticket/mdt/internal/config"
	"github.com/markdown-ticket/mdt/internal/discovery"
	"github.com/markdown-ticket/mdt/internal/guard"
	"github.com/markdown-ticket/mdt/internal/logging"
	"github.com/markdown-ticket/mdt/internal/mcp"
	"github.com/markdown-ticket/mdt/internal/service"
	"github.com/markdown-ticket/mdt/internal/store"
	"github.com/markdown-ticket/mdt/internal/web"
)

const shutdownTimeout = 10 * time.Second

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
)

func main() {
	configPath := flag.String("config", "", "config file (default ~/.config/mdt/config.toml)")
	mcpMode := flag.Bool("mcp", false, "serve MCP on stdio instead of HTTP")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("mdtd %s (%s)\n", version, gitCommit)
		os.Exit(0)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("received signal %v, shutting down", sig)
		cancel()
	}()

	if err := run(ctx, *configPath, *mcpMode); err != nil {
		log.Fatalf("mdtd: %v", err)
	}
}

// run wires the full service stack and blocks until ctx is cancelled.
func run(ctx context.Context, configPath string, mcpMode bool) error {
	if err := config.EnsureDirs(); err != nil {
		return err
	}

	cfgSvc, err := config.NewService(configPath)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	cfg := cfgSvc.Current()

	logCfg := cfg.Logging
	if mcpMode {
		// Stdio carries the protocol; anything else on it corrupts
		// framing, so logs must be structured JSON on stderr.
		logCfg.Format = "json"
	}
	logger, err := logging.New(logCfg)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	projectsDir, err := config.ProjectsDir()
	if err != nil {
		return err
	}

	st := store.New(projectsDir, logger)
	projects := service.New(
		cfgSvc,
		st,
		discovery.New(st, logger),
		cache.New(cache.DefaultTTL, logger, cache.NewMetrics()),
		guard.New(),
		logger,
	)

	watcher, err := config.NewWatcher(cfgSvc, logger)
	if err != nil {
		// The daemon still works without the watcher; edits are picked
		// up when the cache TTL expires.
		logger.Warn("config watcher disabled", zap.Error(err))
	} else {
		defer watcher.Close()
	}

	if mcpMode {
		return runMCP(ctx, projects, logger)
	}
	return runHTTP(ctx, projects, logger, &web.Config{
		Host: cfg.Server.Host,
		Port: cfg.Server.Port,
	})
}

func runHTTP(ctx context.Context, projects *service.Service, logger *logging.Logger, cfg *web.Config) error {
	srv, err := web.NewServer(projects, logger, cfg)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}

func runMCP(ctx context.Context, projects *service.Service, logger *logging.Logger) error {
	srv, err := mcp.NewServer(&mcp.Config{Name: "mdt", Version: version}, projects, logger)
	if err != nil {
		return err
	}
	return srv.Run(ctx)
}
