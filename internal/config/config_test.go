package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := New()
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 90, cfg.LookbackDays)
	assert.InDelta(t, 0.75, cfg.MinMatchScore, 1e-9)
	assert.Greater(t, cfg.Workers, 0)
	assert.Equal(t, 180, cfg.FailAfterDays)
	assert.NotEmpty(t, cfg.DBPath)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("DEALSENSE_CONFIG", "")
	t.Setenv("DEALSENSE_DB_PATH", "/tmp/override.db")
	t.Setenv("DEALSENSE_LOOKBACK_DAYS", "30")
	t.Setenv("DEALSENSE_MIN_MATCH_SCORE", "0.8")
	t.Setenv("DEALSENSE_LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/override.db", cfg.DBPath)
	assert.Equal(t, 30, cfg.LookbackDays)
	assert.InDelta(t, 0.8, cfg.MinMatchScore, 1e-9)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dealsense.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"lookback_days: 45\nmin_match_score: 0.7\ndefault_user: u1\n"), 0644))
	t.Setenv("DEALSENSE_CONFIG", path)
	// Env still wins over the file.
	t.Setenv("DEALSENSE_LOOKBACK_DAYS", "60")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 60, cfg.LookbackDays)
	assert.InDelta(t, 0.7, cfg.MinMatchScore, 1e-9)
	assert.Equal(t, "u1", cfg.DefaultUser)
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Setenv("DEALSENSE_CONFIG", "")
	t.Setenv("DEALSENSE_MIN_MATCH_SCORE", "1.5")
	_, err := Load()
	assert.Error(t, err)
}
