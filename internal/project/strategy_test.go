package project

import (
	"path/filepath"
	"testing"
)

func TestDecideStrategy(t *testing.T) {
	search := t.TempDir()
	inside := filepath.Join(search, "myproject")
	outside := t.TempDir()

	tests := []struct {
		name        string
		path        string
		globalOnly  bool
		searchPaths []string
		want        Strategy
	}{
		{"flag wins over search path", inside, true, []string{search}, StrategyGlobalOnly},
		{"under search path", inside, false, []string{search}, StrategyAutoDiscovery},
		{"search path itself", search, false, []string{search}, StrategyAutoDiscovery},
		{"outside search paths", outside, false, []string{search}, StrategyProjectFirst},
		{"no search paths", inside, false, nil, StrategyProjectFirst},
		{"bad search path ignored", outside, false, []string{""}, StrategyProjectFirst},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DecideStrategy(tt.path, tt.globalOnly, tt.searchPaths)
			if got != tt.want {
				t.Errorf("DecideStrategy(%q, %v, %v) = %v, want %v",
					tt.path, tt.globalOnly, tt.searchPaths, got, tt.want)
			}
		})
	}
}

func TestStrategyTextRoundTrip(t *testing.T) {
	for _, s := range []Strategy{StrategyProjectFirst, StrategyGlobalOnly, StrategyAutoDiscovery} {
		text, err := s.MarshalText()
		if err != nil {
			t.Fatalf("MarshalText(%v) failed: %v", s, err)
		}
		var back Strategy
		if err := back.UnmarshalText(text); err != nil {
			t.Fatalf("UnmarshalText(%q) failed: %v", text, err)
		}
		if back != s {
			t.Errorf("round trip %v -> %q -> %v", s, text, back)
		}
	}

	var s Strategy
	if err := s.UnmarshalText([]byte("nonsense")); err == nil {
		t.Error("UnmarshalText accepted unknown strategy")
	}
}
