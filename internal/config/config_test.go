package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shpitdev/founder-scout/internal/config"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("SEARCH_PROXY_URL", "https://proxy.test/search")
	t.Setenv("DATASET_API_TOKEN", "dataset-token")
	t.Setenv("GEMINI_API_KEY", "gemini-key")

	// Clear optional overrides that may leak in from the host environment.
	for _, name := range []string{"GEMINI_MODEL", "GEMINI_BASE_URL", "DATASET_TRIGGER_URL", "DATASET_SNAPSHOT_URL", "RUN_WINDOW", "BATCH_SIZE"} {
		t.Setenv(name, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.TargetDomain != "x.com" || cfg.ExcludeDomain != "t.co" {
		t.Fatalf("unexpected domains: %#v", cfg.Settings)
	}
	if cfg.BatchSize != 5 || cfg.RunWindow != 100 {
		t.Fatalf("unexpected batch defaults: %#v", cfg.Settings)
	}
	if cfg.PreResolveDelay.Std() != 2*time.Second || cfg.InterBatchDelay.Std() != 4*time.Second {
		t.Fatalf("unexpected delay defaults: %#v", cfg.Settings)
	}
	if cfg.FetchMaxAttempts != 5 || cfg.FetchBackoffInit.Std() != 2*time.Second || cfg.FetchBackoffMax.Std() != 30*time.Second {
		t.Fatalf("unexpected fetch defaults: %#v", cfg.Settings)
	}
	if cfg.SnapshotPollInterval.Std() != 5*time.Second || cfg.SnapshotMaxPolls != 10 {
		t.Fatalf("unexpected snapshot defaults: %#v", cfg.Settings)
	}
	if !cfg.AssumeDMOpen() {
		t.Fatal("expected optimistic DM policy by default")
	}
	if cfg.GeminiModel != "gemini-2.0-flash" {
		t.Fatalf("unexpected model default: %q", cfg.GeminiModel)
	}
	if !strings.Contains(cfg.DatasetTriggerURL, "brightdata.com") {
		t.Fatalf("unexpected trigger URL: %q", cfg.DatasetTriggerURL)
	}
}

func TestLoad_MissingCredentials(t *testing.T) {
	t.Setenv("SEARCH_PROXY_URL", "")
	t.Setenv("DATASET_API_TOKEN", "dataset-token")
	t.Setenv("GEMINI_API_KEY", "")

	_, err := config.Load("")
	if err == nil {
		t.Fatal("expected error for missing credentials")
	}
	for _, name := range []string{"SEARCH_PROXY_URL", "GEMINI_API_KEY"} {
		if !strings.Contains(err.Error(), name) {
			t.Fatalf("error should name %s: %v", name, err)
		}
	}
	if strings.Contains(err.Error(), "DATASET_API_TOKEN") {
		t.Fatalf("error should not name present variables: %v", err)
	}
}

func TestLoad_SettingsFile(t *testing.T) {
	setRequiredEnv(t)

	path := filepath.Join(t.TempDir(), "settings.yaml")
	content := strings.Join([]string{
		"target_domain: example.social",
		"batch_size: 3",
		"pre_resolve_delay: 500ms",
		"assume_dm_open_on_failure: false",
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write settings: %v", err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.TargetDomain != "example.social" || cfg.BatchSize != 3 {
		t.Fatalf("settings file not applied: %#v", cfg.Settings)
	}
	if cfg.PreResolveDelay.Std() != 500*time.Millisecond {
		t.Fatalf("duration string not parsed: %v", cfg.PreResolveDelay.Std())
	}
	if cfg.AssumeDMOpen() {
		t.Fatal("expected pessimistic policy from settings file")
	}
	// Unset fields keep their defaults.
	if cfg.RunWindow != 100 || cfg.ExcludeDomain != "t.co" {
		t.Fatalf("defaults not merged: %#v", cfg.Settings)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("RUN_WINDOW", "25")
	t.Setenv("BATCH_SIZE", "2")
	t.Setenv("GEMINI_MODEL", "gemini-custom")

	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.RunWindow != 25 || cfg.BatchSize != 2 {
		t.Fatalf("env overrides not applied: %#v", cfg.Settings)
	}
	if cfg.GeminiModel != "gemini-custom" {
		t.Fatalf("unexpected model: %q", cfg.GeminiModel)
	}
}

func TestLoad_InvalidEnvInt(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("RUN_WINDOW", "lots")

	if _, err := config.Load(""); err == nil {
		t.Fatal("expected error for non-numeric RUN_WINDOW")
	}
}

func TestLoad_MissingSettingsFile(t *testing.T) {
	setRequiredEnv(t)

	if _, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for unreadable settings file")
	}
}
