package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "./data/depenses.db", cfg.DBPath)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 30*24*time.Hour, cfg.SessionTTL)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("ADDR", ":9000")
	t.Setenv("DB_PATH", "/tmp/test.db")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("SESSION_TTL", "1h")

	cfg := Load()

	assert.Equal(t, ":9000", cfg.Addr)
	assert.Equal(t, "/tmp/test.db", cfg.DBPath)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, time.Hour, cfg.SessionTTL)
}

func TestLoadIgnoresMalformedDuration(t *testing.T) {
	t.Setenv("SESSION_TTL", "soon")
	cfg := Load()
	assert.Equal(t, 30*24*time.Hour, cfg.SessionTTL)
}

func TestValidate(t *testing.T) {
	cfg := Load()
	cfg.DBPath = ""
	cfg.LogLevel = "loud"
	cfg.SessionTTL = time.Second

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database path")
	assert.Contains(t, err.Error(), "log level")
	assert.Contains(t, err.Error(), "session TTL")
}

func TestSlogLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"WARN":  slog.LevelWarn,
		"error": slog.LevelError,
	}
	for in, want := range cases {
		cfg := &Config{LogLevel: in}
		level, err := cfg.SlogLevel()
		require.NoError(t, err, "level %q", in)
		assert.Equal(t, want, level)
	}

	_, err := (&Config{LogLevel: "silent"}).SlogLevel()
	assert.Error(t, err)
}
