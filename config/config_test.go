package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") = %v", err)
	}
	if cfg.Tick.DT <= 0 {
		t.Errorf("default dt = %v, want positive", cfg.Tick.DT)
	}
	if cfg.Stream.Capacity < 1 {
		t.Errorf("default stream capacity = %d, want at least 1", cfg.Stream.Capacity)
	}
	if cfg.Solver.CorrectionPercent <= 0 || cfg.Solver.CorrectionPercent > 1 {
		t.Errorf("default correction percent = %v, want in (0, 1]", cfg.Solver.CorrectionPercent)
	}
}

func TestLoadOverridesMergeWithDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "override.yaml")
	data := []byte("tree:\n  fat_margin: 0.5\nsolver:\n  slop: 0.01\n")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load(%q) = %v", path, err)
	}
	if cfg.Tree.FatMargin != 0.5 {
		t.Errorf("fat margin = %v, want overridden 0.5", cfg.Tree.FatMargin)
	}
	if cfg.Solver.Slop != 0.01 {
		t.Errorf("slop = %v, want overridden 0.01", cfg.Solver.Slop)
	}
	// Untouched fields keep their defaults.
	if cfg.Stream.Capacity != 1024 {
		t.Errorf("stream capacity = %d, want default 1024", cfg.Stream.Capacity)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}
