package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("testdata/absent.env")
	require.NoError(t, err)

	assert.Equal(t, "Tracklet", cfg.App.Name)
	assert.Equal(t, "local", cfg.App.Env)
	assert.True(t, cfg.App.Debug)
	assert.Equal(t, "8000", cfg.App.Port)
	assert.Equal(t, "./site", cfg.App.SiteDir)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 50, cfg.Store.HistoryLimit)
	assert.True(t, cfg.Store.Persist)
	assert.Equal(t, "./data", cfg.Store.DataDir)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("APP_NAME", "Tracklet Test")
	t.Setenv("APP_ENV", "testing")
	t.Setenv("APP_DEBUG", "false")
	t.Setenv("APP_PORT", "9999")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("STORE_HISTORY_LIMIT", "10")
	t.Setenv("STORE_PERSIST", "false")

	cfg, err := Load("testdata/absent.env")
	require.NoError(t, err)

	assert.Equal(t, "Tracklet Test", cfg.App.Name)
	assert.Equal(t, "testing", cfg.App.Env)
	assert.False(t, cfg.App.Debug)
	assert.Equal(t, "9999", cfg.App.Port)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 10, cfg.Store.HistoryLimit)
	assert.False(t, cfg.Store.Persist)
}

func TestEnvironmentPredicates(t *testing.T) {
	assert.True(t, (&Config{App: AppConfig{Env: "local"}}).IsLocal())
	assert.True(t, (&Config{App: AppConfig{Env: "production"}}).IsProduction())
	assert.True(t, (&Config{App: AppConfig{Env: "testing"}}).IsTesting())
	assert.False(t, (&Config{App: AppConfig{Env: "local"}}).IsProduction())
}
