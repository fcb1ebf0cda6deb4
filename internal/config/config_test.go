package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	def := Default()
	if cfg.BurstThreshold != def.BurstThreshold {
		t.Errorf("BurstThreshold = %d, want %d", cfg.BurstThreshold, def.BurstThreshold)
	}
	if cfg.BaseInterval != def.BaseInterval {
		t.Errorf("BaseInterval = %v, want %v", cfg.BaseInterval, def.BaseInterval)
	}
	if len(cfg.Backoff) != len(def.Backoff) {
		t.Errorf("Backoff = %v, want %v", cfg.Backoff, def.Backoff)
	}
}

func TestLoad_FileOverrides(t *testing.T) {
	dir := t.TempDir()
	content := "burst_threshold: 50\nbase_interval: 2m\nbackoff: [1s, 10s]\nindex_path: mirror.db\n"
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.BurstThreshold != 50 {
		t.Errorf("BurstThreshold = %d, want 50", cfg.BurstThreshold)
	}
	if cfg.BaseInterval != 2*time.Minute {
		t.Errorf("BaseInterval = %v, want 2m", cfg.BaseInterval)
	}
	if len(cfg.Backoff) != 2 || cfg.Backoff[1] != 10*time.Second {
		t.Errorf("Backoff = %v, want [1s 10s]", cfg.Backoff)
	}
	// Unmentioned keys keep their defaults.
	if cfg.FastPathDelay != Default().FastPathDelay {
		t.Errorf("FastPathDelay = %v, want default", cfg.FastPathDelay)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("TASKNEST_BURST_THRESHOLD", "7")
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.BurstThreshold != 7 {
		t.Errorf("BurstThreshold = %d, want env override 7", cfg.BurstThreshold)
	}
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte("base_interval: 0s\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(dir); err == nil {
		t.Error("zero base_interval accepted")
	}
}

func TestResolveIndexPath(t *testing.T) {
	cfg := Default()
	got := cfg.ResolveIndexPath("/vault")
	want := filepath.Join("/vault", ".tasknest", "index.db")
	if got != want {
		t.Errorf("ResolveIndexPath = %s, want %s", got, want)
	}

	cfg.IndexPath = "/elsewhere/index.db"
	if got := cfg.ResolveIndexPath("/vault"); got != "/elsewhere/index.db" {
		t.Errorf("absolute path not respected: %s", got)
	}
}

func TestWriteSkeleton(t *testing.T) {
	dir := t.TempDir()
	if err := WriteSkeleton(dir); err != nil {
		t.Fatalf("WriteSkeleton failed: %v", err)
	}

	// The skeleton is all comments; loading it must give pure defaults.
	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load of skeleton failed: %v", err)
	}
	if cfg.BurstThreshold != Default().BurstThreshold {
		t.Error("skeleton changed a default")
	}

	if err := WriteSkeleton(dir); err == nil {
		t.Error("second WriteSkeleton clobbered existing config")
	}
}
