// Package main implements the mdt CLI for managing markdown-ticket
// project configuration.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/markdown-ticket/mdt/internal/cache"
	"github.com/markdown-ticket/mdt/internal/config"
	"github.com/markdown-ticket/mdt/internal/discovery"
	"github.com/markdown-ticket/mdt/internal/guard"
	"github.com/markdown-ticket/mdt/internal/logging"
	"github.com/markdown-ticket/mdt/internal/service"
	"github.com/markdown-ticket/mdt/internal/store"
)

const (
	exitOK         = 0
	exitGeneral    = 1
	exitValidation = 2
	exitNotFound   = 3
	exitCancelled  = 6
)

var (
	configPath string
	jsonOutput bool
	// version is set at build time via -ldflags.
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		for _, s := range service.Suggestions(err) {
			fmt.Fprintf(os.Stderr, "  did you mean %s?\n", s)
		}
		os.Exit(exitCode(err))
	}
}

var rootCmd = &cobra.Command{
	Use:   "mdt",
	Short: "Manage markdown-ticket projects",
	Long: `mdt manages project registration and configuration for
markdown-ticket. Projects are stored globally, per-project, or
auto-discovered, and all commands operate on the same merged view the
web and MCP interfaces see.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.config/mdt/config.toml)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "emit JSON instead of text")
}

// exitCode maps the shared error taxonomy onto process exit codes.
func exitCode(err error) int {
	switch service.ErrorKind(err) {
	case "":
		return exitOK
	case service.KindValidation, service.KindPath:
		return exitValidation
	case service.KindNotFound:
		return exitNotFound
	case service.KindCancelled:
		return exitCancelled
	default:
		return exitGeneral
	}
}

// app holds the wired facade for one CLI invocation.
type app struct {
	cfg      *config.Service
	projects *service.Service
	logger   *logging.Logger
}

// newApp wires the service stack the same way the daemon does, minus
// the watcher: a CLI invocation is one-shot, so file changes between
// invocations are picked up by the fresh load.
func newApp() (*app, error) {
	if err := config.EnsureDirs(); err != nil {
		return nil, err
	}

	cfgSvc, err := config.NewService(configPath)
	if err != nil {
		return nil, err
	}

	logCfg := cfgSvc.Current().Logging
	logger, err := logging.New(logCfg)
	if err != nil {
		return nil, err
	}

	projectsDir, err := config.ProjectsDir()
	if err != nil {
		return nil, err
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

	return &app{cfg: cfgSvc, projects: projects, logger: logger}, nil
}
