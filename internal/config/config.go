// Package config defines engine configuration and its loading rules.
package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// Config contains process configuration for the corroboration engine.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// DBPath is the SQLite database path. ":memory:" is accepted for tests.
	DBPath string `koanf:"db_path"`

	// LookbackDays bounds the candidate window for both private and public events.
	LookbackDays int `koanf:"lookback_days"`

	// MinMatchScore is the threshold below which a scored pair is discarded.
	MinMatchScore float64 `koanf:"min_match_score"`

	// Workers bounds concurrent pair scoring during candidate generation.
	Workers int `koanf:"workers"`

	// ScoreRatePerSec throttles store reads during the scoring phase.
	// Zero disables throttling.
	ScoreRatePerSec int `koanf:"score_rate_per_sec"`

	// FailAfterDays is the horizon after which an uncorroborated private
	// signal counts against its source. Zero disables the expiry sweep.
	FailAfterDays int `koanf:"fail_after_days"`

	// MetricsAddr, when set, exposes Prometheus metrics during batch runs,
	// e.g. ":9187".
	MetricsAddr string `koanf:"metrics_addr"`

	// DefaultUser scopes source queries when no --user flag is given.
	DefaultUser string `koanf:"default_user"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:        "info",
		DBPath:          defaultDBPath(),
		LookbackDays:    90,
		MinMatchScore:   0.75,
		Workers:         runtime.NumCPU(),
		ScoreRatePerSec: 0,
		FailAfterDays:   180,
		MetricsAddr:     "",
		DefaultUser:     "",
	}
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "dealsense.db"
	}
	return filepath.Join(home, ".dealsense", "dealsense.db")
}
