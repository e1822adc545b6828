package config

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	ktoml "github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const maxConfigFileSize = 1 << 20 // 1MB

// envPrefix is stripped from environment overrides.
const envPrefix = "MDT_"

// envKeys maps MDT_* environment variables to config keys. Search paths
// are handled separately (colon-separated list, see Load).
var envKeys = map[string]string{
	"MDT_DISCOVERY_AUTO_DISCOVER": "discovery.autoDiscover",
	"MDT_LOG_LEVEL":               "logging.level",
	"MDT_LOG_FORMAT":              "logging.format",
	"MDT_SERVER_HOST":             "server.host",
	"MDT_SERVER_PORT":             "server.port",
}

// envSearchPaths overrides discovery.searchPaths with a colon-separated
// list when set.
const envSearchPaths = "MDT_DISCOVERY_SEARCH_PATHS"

// Load reads the global config file, overlays MDT_* environment
// variables, applies defaults, and validates.
//
// Precedence, highest first: environment, config file, defaults. If
// configPath is empty the default ~/.config/mdt/config.toml is used. A
// missing file is not an error; the defaults apply.
//
// The file must be regular, at most 1MB, and not group/world-writable.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if configPath == "" {
		var err error
		configPath, err = File()
		if err != nil {
			return nil, err
		}
	}

	if _, err := os.Stat(configPath); err == nil {
		// Open once and validate via the descriptor so the checked file
		// is the file read.
		f, err := os.Open(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open config file: %w", err)
		}
		defer f.Close()

		info, err := f.Stat()
		if err != nil {
			return nil, fmt.Errorf("failed to stat config file: %w", err)
		}
		if err := checkFileProperties(info); err != nil {
			return nil, fmt.Errorf("config file %s: %w", configPath, err)
		}

		content, err := io.ReadAll(f)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := k.Load(rawbytes.Provider(content), ktoml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		if key, ok := envKeys[s]; ok {
			return key
		}
		// Unknown MDT_ variables are dropped rather than guessed at.
		return ""
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment overrides: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if raw := os.Getenv(envSearchPaths); raw != "" {
		var sp []string
		for _, p := range strings.Split(raw, ":") {
			if p != "" {
				sp = append(sp, p)
			}
		}
		cfg.Discovery.SearchPaths = sp
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// checkFileProperties rejects oversized or loosely-permissioned config
// files. Permission checks are skipped on Windows.
func checkFileProperties(info os.FileInfo) error {
	if !info.Mode().IsRegular() {
		return fmt.Errorf("not a regular file")
	}
	if info.Size() > maxConfigFileSize {
		return fmt.Errorf("file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
	}
	if runtime.GOOS != "windows" {
		if perm := info.Mode().Perm(); perm&0o022 != 0 {
			return fmt.Errorf("insecure permissions %v: must not be group/world-writable", perm)
		}
	}
	return nil
}
