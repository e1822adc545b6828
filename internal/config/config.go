// Package config loads and owns the global mdt configuration: the
// discovery settings from ~/.config/mdt/config.toml, with MDT_*
// environment overrides, plus daemon-facing logging and server knobs.
//
// The loaded configuration is held by an explicitly constructed Service
// passed by reference to consumers; there is no package-level singleton.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/markdown-ticket/mdt/internal/logging"
)

// DiscoveryMaxDepth is how many levels below a search path the scanner
// descends. Fixed, not configurable.
const DiscoveryMaxDepth = 3

// Discovery holds the [discovery] table of the global config.
type Discovery struct {
	// AutoDiscover enables filesystem scanning of SearchPaths.
	AutoDiscover bool `koanf:"autoDiscover"`

	// SearchPaths are the roots scanned for undeclared projects. Tilde,
	// absolute, and relative entries are accepted; they are normalized at
	// use, not at load.
	SearchPaths []string `koanf:"searchPaths"`

	// MaxDepth is always DiscoveryMaxDepth. It is carried on the struct
	// so consumers see one value, but it is never read from the file.
	MaxDepth int `koanf:"-"`
}

// Server holds the [server] table used by the mdtd daemon.
type Server struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port"`
}

// Config is the full global configuration.
type Config struct {
	Discovery Discovery      `koanf:"discovery"`
	Logging   logging.Config `koanf:"logging"`
	Server    Server         `koanf:"server"`
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if err := c.Logging.Validate(); err != nil {
		return err
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be 1-65535, got %d", c.Server.Port)
	}
	for _, sp := range c.Discovery.SearchPaths {
		if sp == "" {
			return fmt.Errorf("discovery search paths must not contain empty entries")
		}
	}
	return nil
}

func applyDefaults(cfg *Config) {
	cfg.Discovery.MaxDepth = DiscoveryMaxDepth
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "console"
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 7070
	}
}

// Dir returns the mdt config directory, ~/.config/mdt.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".config", "mdt"), nil
}

// File returns the global config file path, ~/.config/mdt/config.toml.
func File() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ProjectsDir returns the global registry directory,
// ~/.config/mdt/projects.
func ProjectsDir() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "projects"), nil
}

// EnsureDirs creates the config and registry directories if missing,
// owner-only.
func EnsureDirs() error {
	projects, err := ProjectsDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(projects, 0o700); err != nil {
		return fmt.Errorf("failed to create config directory %s: %w", projects, err)
	}
	return nil
}
