// Package config loads credentials from the environment (with .env support)
// and pipeline tuning from an optional YAML settings file. Precedence:
// flags > environment > settings file > defaults.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from YAML either as a Go
// duration string ("2s", "1m30s") or as integer nanoseconds.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var n int64
	if err := value.Decode(&n); err == nil {
		*d = Duration(n)
		return nil
	}
	var raw string
	if err := value.Decode(&raw); err != nil {
		return fmt.Errorf("invalid duration: %w", err)
	}
	parsed, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the standard-library representation.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Settings is the YAML-tunable part of the configuration.
type Settings struct {
	TargetDomain  string `yaml:"target_domain"`
	ExcludeDomain string `yaml:"exclude_domain"`

	BatchSize       int      `yaml:"batch_size"`
	RunWindow       int      `yaml:"run_window"`
	PreResolveDelay Duration `yaml:"pre_resolve_delay"`
	InterBatchDelay Duration `yaml:"inter_batch_delay"`

	FetchMaxAttempts   int      `yaml:"fetch_max_attempts"`
	FetchBackoffInit   Duration `yaml:"fetch_backoff_initial"`
	FetchBackoffFactor float64  `yaml:"fetch_backoff_factor"`
	FetchBackoffMax    Duration `yaml:"fetch_backoff_max"`
	FetchRateLimitRPS  float64  `yaml:"fetch_rate_limit_rps"`

	SnapshotPollInterval Duration `yaml:"snapshot_poll_interval"`
	SnapshotMaxPolls     int      `yaml:"snapshot_max_polls"`

	// AssumeDMOpenOnFailure keeps the optimistic-DM default on resolution
	// failures. Defaults to true; set false to treat unknown DM status as closed.
	AssumeDMOpenOnFailure *bool `yaml:"assume_dm_open_on_failure"`

	OutputDir      string `yaml:"output_dir"`
	CheckpointPath string `yaml:"checkpoint_path"`
}

// Config is the fully resolved runtime configuration.
type Config struct {
	Settings

	SearchProxyURL string

	DatasetToken       string
	DatasetTriggerURL  string
	DatasetSnapshotURL string

	GeminiAPIKey  string
	GeminiModel   string
	GeminiBaseURL string
}

// AssumeDMOpen resolves the optimistic-DM policy flag (default true).
func (c Config) AssumeDMOpen() bool {
	if c.AssumeDMOpenOnFailure == nil {
		return true
	}
	return *c.AssumeDMOpenOnFailure
}

// Load resolves configuration. A .env file in the working directory is
// honored when present; required credentials missing from the environment are
// a fatal startup error, reported before any record is processed.
func Load(settingsPath string) (Config, error) {
	_ = godotenv.Load()

	cfg := Config{Settings: defaultSettings()}

	if strings.TrimSpace(settingsPath) != "" {
		b, err := os.ReadFile(settingsPath)
		if err != nil {
			return Config{}, fmt.Errorf("read settings file: %w", err)
		}
		if err := yaml.Unmarshal(b, &cfg.Settings); err != nil {
			return Config{}, fmt.Errorf("parse settings file: %w", err)
		}
		cfg.Settings = mergeDefaults(cfg.Settings)
	}

	cfg.SearchProxyURL = strings.TrimSpace(os.Getenv("SEARCH_PROXY_URL"))
	cfg.DatasetToken = strings.TrimSpace(os.Getenv("DATASET_API_TOKEN"))
	cfg.DatasetTriggerURL = envOr("DATASET_TRIGGER_URL", "https://api.brightdata.com/datasets/v3/trigger")
	cfg.DatasetSnapshotURL = envOr("DATASET_SNAPSHOT_URL", "https://api.brightdata.com/datasets/v3/snapshot")
	cfg.GeminiAPIKey = strings.TrimSpace(os.Getenv("GEMINI_API_KEY"))
	cfg.GeminiModel = envOr("GEMINI_MODEL", "gemini-2.0-flash")
	cfg.GeminiBaseURL = strings.TrimSpace(os.Getenv("GEMINI_BASE_URL"))

	var err error
	if cfg.RunWindow, err = envInt("RUN_WINDOW", cfg.RunWindow); err != nil {
		return Config{}, err
	}
	if cfg.BatchSize, err = envInt("BATCH_SIZE", cfg.BatchSize); err != nil {
		return Config{}, err
	}

	var missing []string
	if cfg.SearchProxyURL == "" {
		missing = append(missing, "SEARCH_PROXY_URL")
	}
	if cfg.DatasetToken == "" {
		missing = append(missing, "DATASET_API_TOKEN")
	}
	if cfg.GeminiAPIKey == "" {
		missing = append(missing, "GEMINI_API_KEY")
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	return cfg, nil
}

func defaultSettings() Settings {
	return Settings{
		TargetDomain:         "x.com",
		ExcludeDomain:        "t.co",
		BatchSize:            5,
		RunWindow:            100,
		PreResolveDelay:      Duration(2 * time.Second),
		InterBatchDelay:      Duration(4 * time.Second),
		FetchMaxAttempts:     5,
		FetchBackoffInit:     Duration(2 * time.Second),
		FetchBackoffFactor:   1.5,
		FetchBackoffMax:      Duration(30 * time.Second),
		SnapshotPollInterval: Duration(5 * time.Second),
		SnapshotMaxPolls:     10,
		OutputDir:            "output",
		CheckpointPath:       "checkpoint.json",
	}
}

// mergeDefaults fills zero values left by a sparse settings file.
func mergeDefaults(s Settings) Settings {
	d := defaultSettings()
	if s.TargetDomain == "" {
		s.TargetDomain = d.TargetDomain
	}
	if s.ExcludeDomain == "" {
		s.ExcludeDomain = d.ExcludeDomain
	}
	if s.BatchSize <= 0 {
		s.BatchSize = d.BatchSize
	}
	if s.RunWindow <= 0 {
		s.RunWindow = d.RunWindow
	}
	if s.PreResolveDelay <= 0 {
		s.PreResolveDelay = d.PreResolveDelay
	}
	if s.InterBatchDelay <= 0 {
		s.InterBatchDelay = d.InterBatchDelay
	}
	if s.FetchMaxAttempts <= 0 {
		s.FetchMaxAttempts = d.FetchMaxAttempts
	}
	if s.FetchBackoffInit <= 0 {
		s.FetchBackoffInit = d.FetchBackoffInit
	}
	if s.FetchBackoffFactor <= 0 {
		s.FetchBackoffFactor = d.FetchBackoffFactor
	}
	if s.FetchBackoffMax <= 0 {
		s.FetchBackoffMax = d.FetchBackoffMax
	}
	if s.SnapshotPollInterval <= 0 {
		s.SnapshotPollInterval = d.SnapshotPollInterval
	}
	if s.SnapshotMaxPolls <= 0 {
		s.SnapshotMaxPolls = d.SnapshotMaxPolls
	}
	if s.OutputDir == "" {
		s.OutputDir = d.OutputDir
	}
	if s.CheckpointPath == "" {
		s.CheckpointPath = d.CheckpointPath
	}
	return s
}

func envOr(name, fallback string) string {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return fallback
	}
	return v
}

func envInt(name string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return fallback, nil
	}
	out, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s=%q: %w", name, v, err)
	}
	return out, nil
}
