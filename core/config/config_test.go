package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.App.Port)
	assert.Equal(t, 100*time.Millisecond, cfg.Funnel.StepEntryDelay)
	assert.Equal(t, 2*time.Hour, cfg.Funnel.SessionIdleTTL)
	assert.Equal(t, 10000, cfg.Funnel.MaxSessions)
	assert.Equal(t, []string{"http://localhost:3000", "http://localhost:5173"}, cfg.App.CorsAllowedOrigins)
	assert.False(t, cfg.Valkey.Enabled)
	assert.Empty(t, cfg.App.BasicAuth)
}

func TestLoadConfig_FromEnvironment(t *testing.T) {
	t.Setenv("APP_PORT", "8080")
	t.Setenv("APP_BASIC_AUTH", "admin:secret, ops:pw")
	t.Setenv("FUNNEL_STEP_ENTRY_DELAY_MS", "0")
	t.Setenv("FUNNEL_SESSION_IDLE_TTL", "30m")
	t.Setenv("MESSAGE_WORKER_POOL_SIZE", "3")

	cfg, err := LoadConfig(nil)
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.App.Port)
	assert.Equal(t, []string{"admin:secret", "ops:pw"}, cfg.App.BasicAuth)
	assert.Equal(t, time.Duration(0), cfg.Funnel.StepEntryDelay)
	assert.Equal(t, 30*time.Minute, cfg.Funnel.SessionIdleTTL)
	assert.Equal(t, 3, cfg.WorkerPool.Size)
}

func TestLoadConfig_RejectsInvalidValues(t *testing.T) {
	v := viper.New()
	v.Set("app_port", "not-a-port")
	v.Set("funnel_max_sessions", 0)

	_, err := LoadConfig(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "app")
	assert.Contains(t, err.Error(), "funnel")
}

func TestLoadConfig_ValkeyNeedsAddress(t *testing.T) {
	v := viper.New()
	v.Set("valkey_enabled", true)
	v.Set("valkey_address", "")

	_, err := LoadConfig(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "valkey")
}

func TestGetAllSettings(t *testing.T) {
	orig := Global
	t.Cleanup(func() { Global = orig })

	Global = nil
	assert.Empty(t, GetAllSettings())

	cfg, err := LoadConfig(viper.New())
	require.NoError(t, err)
	Global = cfg
	settings := GetAllSettings()
	assert.Equal(t, int64(100), settings["funnel_step_entry_delay_ms"])
	assert.NotContains(t, settings, "valkey_password")
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitList(" a, ,b "))
	assert.Nil(t, splitList(""))
}
