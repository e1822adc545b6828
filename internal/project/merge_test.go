package project

import (
	"errors"
	"testing"
	"time"
)

func TestMergeGlobalOnly(t *testing.T) {
	registered := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	entry := &GlobalEntry{
		Path:           "/home/user/work/billing",
		Active:         true,
		DateRegistered: registered,
		Complete: &Record{
			Code:        "BIL",
			Name:        "Billing",
			Path:        "/home/user/work/billing",
			TicketsPath: "docs/CRs",
		},
	}

	rec, err := GlobalOnly(entry).Merge()
	if err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	if rec.ID != "billing" {
		t.Errorf("ID = %q, want %q", rec.ID, "billing")
	}
	if rec.Strategy != StrategyGlobalOnly {
		t.Errorf("Strategy = %v, want global-only", rec.Strategy)
	}
	if !rec.Active || !rec.DateRegistered.Equal(registered) {
		t.Errorf("entry fields not carried: active=%t registered=%v", rec.Active, rec.DateRegistered)
	}

	// Mutating the merged record must not touch the entry.
	rec.Name = "changed"
	if entry.Complete.Name != "Billing" {
		t.Error("Merge returned a shared record instead of a clone")
	}
}

func TestMergeGlobalOnlyWithoutRecord(t *testing.T) {
	_, err := GlobalOnly(&GlobalEntry{Path: "/p/x"}).Merge()
	if err == nil {
		t.Fatal("expected error for complete entry without record data")
	}
}

func TestMergeProjectFirstLocalWins(t *testing.T) {
	registered := time.Date(2024, 11, 5, 9, 30, 0, 0, time.UTC)
	global := &GlobalEntry{
		Path:           "/home/user/work/api",
		Active:         true,
		DateRegistered: registered,
	}
	local := &Record{
		Code:        "API",
		Name:        "API Server",
		Path:        "/home/user/work/api",
		TicketsPath: "tickets",
		Description: "local description",
		Active:      false,
		Version:     42,
	}

	rec, err := ProjectFirst(global, local).Merge()
	if err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	if rec.Name != "API Server" || rec.TicketsPath != "tickets" || rec.Description != "local description" {
		t.Errorf("local fields did not win: %+v", rec)
	}
	if rec.Active {
		t.Error("local active=false should win over global active=true")
	}
	if !rec.DateRegistered.Equal(registered) {
		t.Errorf("DateRegistered = %v, want global %v", rec.DateRegistered, registered)
	}
	if rec.Strategy != StrategyProjectFirst {
		t.Errorf("Strategy = %v, want project-first", rec.Strategy)
	}
	if rec.Version != 42 {
		t.Errorf("Version = %d, want local 42", rec.Version)
	}
}

func TestMergeProjectFirstPathMismatch(t *testing.T) {
	global := &GlobalEntry{Path: "/home/user/work/api"}
	local := &Record{Path: "/home/user/clones/api-copy"}

	_, err := ProjectFirst(global, local).Merge()
	if !errors.Is(err, ErrInconsistentConfig) {
		t.Fatalf("Merge error = %v, want ErrInconsistentConfig", err)
	}

	var ice *InconsistentConfigError
	if !errors.As(err, &ice) {
		t.Fatalf("error type = %T, want *InconsistentConfigError", err)
	}
	if ice.Field != "path" {
		t.Errorf("Field = %q, want %q", ice.Field, "path")
	}
}

func TestMergeAutoDiscovered(t *testing.T) {
	local := &Record{
		Code:           "SIDE",
		Name:           "Side Project",
		Path:           "/home/user/hack/side",
		TicketsPath:    "docs/CRs",
		DateRegistered: time.Now(),
	}

	rec, err := AutoDiscovered(local).Merge()
	if err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	if rec.Strategy != StrategyAutoDiscovery {
		t.Errorf("Strategy = %v, want auto-discovery", rec.Strategy)
	}
	if !rec.DateRegistered.IsZero() {
		t.Error("auto-discovered projects must not carry a registration date")
	}
	if rec.ID != "side" {
		t.Errorf("ID = %q, want %q", rec.ID, "side")
	}
}
