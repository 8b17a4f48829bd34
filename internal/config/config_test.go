package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "Exam Scoring Engine", cfg.AppName)
	require.Equal(t, "development", cfg.AppEnv)
	require.Equal(t, "info", cfg.LogLevel)
	require.Equal(t, "file::memory:?cache=shared", cfg.DatabaseURL)
	require.Equal(t, 60.0, cfg.DefaultPassMark)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("EXAM_APP_ENV", "production")
	t.Setenv("EXAM_LOG_LEVEL", "warn")
	t.Setenv("EXAM_DEFAULT_PASS_MARK", "70")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "production", cfg.AppEnv)
	require.Equal(t, "warn", cfg.LogLevel)
	require.Equal(t, 70.0, cfg.DefaultPassMark)
}

func TestLoadRejectsInvalidPassMark(t *testing.T) {
	t.Setenv("EXAM_DEFAULT_PASS_MARK", "140")

	_, err := Load()
	require.Error(t, err)
}
