package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8000", cfg.Port)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, "global_lobby", cfg.LobbyPointerKey)
	assert.Equal(t, "lobby_results", cfg.ResultsQueue)
	assert.True(t, cfg.DevMode)
	assert.Zero(t, cfg.TokenTTL)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.AllowedOrigins)
	assert.Equal(t, 500*time.Millisecond, cfg.HistorianFlushDelay())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("REDIS_DB", "3")
	t.Setenv("DEV_MODE", "false")
	t.Setenv("GLOBAL_LOBBY_KEY", "bingo:current")
	t.Setenv("TOKEN_EXPIRE_TIME", "72h")
	t.Setenv("ALLOWED_ORIGINS", "https://bingo.example,https://admin.example")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.RedisDB)
	assert.False(t, cfg.DevMode)
	assert.Equal(t, "bingo:current", cfg.LobbyPointerKey)
	assert.Equal(t, 72*time.Hour, cfg.TokenTTL)
	assert.Equal(t, []string{"https://bingo.example", "https://admin.example"}, cfg.AllowedOrigins)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("REDIS_DB", "not-an-int")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse env:")

	t.Setenv("REDIS_DB", "0")
	t.Setenv("HISTORIAN_BATCH_SIZE", "0")
	_, err = Load()
	require.Error(t, err)
}
