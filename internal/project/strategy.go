package project

import (
	"fmt"

	"github.com/markdown-ticket/mdt/internal/paths"
)

// Strategy selects which of the three mutually exclusive storage layouts
// holds a project's configuration.
type Strategy int

const (
	// StrategyProjectFirst stores a complete local config in the project
	// directory plus a minimal pointer entry in the global registry.
	StrategyProjectFirst Strategy = iota

	// StrategyGlobalOnly stores the complete record in the global
	// registry and writes nothing into the project directory.
	StrategyGlobalOnly

	// StrategyAutoDiscovery stores only a complete local config; the
	// project is found by scanning configured search paths and is never
	// registered globally.
	StrategyAutoDiscovery
)

var strategyNames = map[Strategy]string{
	StrategyProjectFirst:  "project-first",
	StrategyGlobalOnly:    "global-only",
	StrategyAutoDiscovery: "auto-discovery",
}

func (s Strategy) String() string {
	if name, ok := strategyNames[s]; ok {
		return name
	}
	return fmt.Sprintf("strategy(%d)", int(s))
}

// MarshalText implements encoding.TextMarshaler for TOML and JSON.
func (s Strategy) MarshalText() ([]byte, error) {
	name, ok := strategyNames[s]
	if !ok {
		return nil, fmt.Errorf("unknown strategy %d", int(s))
	}
	return []byte(name), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Strategy) UnmarshalText(text []byte) error {
	for strat, name := range strategyNames {
		if name == string(text) {
			*s = strat
			return nil
		}
	}
	return fmt.Errorf("unknown strategy %q", string(text))
}

// DecideStrategy picks the storage strategy for a project path.
//
// The order is a fixed tie-break: an explicit globalOnly flag always wins;
// otherwise a path equal to or nested under any configured search path is
// auto-discovered; everything else is project-first. Search paths are
// tilde-expanded and slash-normalized before comparison; entries that fail
// to expand are ignored.
func DecideStrategy(path string, globalOnly bool, searchPaths []string) Strategy {
	if globalOnly {
		return StrategyGlobalOnly
	}
	for _, sp := range searchPaths {
		root, err := paths.Normalize(sp)
		if err != nil {
			continue
		}
		if paths.Contains(root, path) {
			return StrategyAutoDiscovery
		}
	}
	return StrategyProjectFirst
}
