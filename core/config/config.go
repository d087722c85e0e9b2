package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration in a structured way.
type Config struct {
	App        AppConfig
	Funnel     FunnelConfig
	Valkey     ValkeyConfig
	WorkerPool WorkerPoolConfig
	Paths      PathsConfig
}

type AppConfig struct {
	Version            string
	Port               string
	Debug              bool
	Environment        string
	BasicAuth          []string
	BasePath           string
	TrustedProxies     []string
	BaseUrl            string
	CorsAllowedOrigins []string
	ServerID           string
	RateLimitPerMinute int
}

// FunnelConfig tunes how conversation sessions are hosted.
type FunnelConfig struct {
	StepEntryDelay  time.Duration
	SessionIdleTTL  time.Duration
	CleanupInterval time.Duration
	MaxSessions     int
	EventTimeout    time.Duration
	MonitorBuffer   int
	MonitorTTL      time.Duration
}

type ValkeyConfig struct {
	Enabled   bool
	Address   string
	Password  string
	DB        int
	KeyPrefix string
}

type WorkerPoolConfig struct {
	Size      int
	QueueSize int
}

type PathsConfig struct {
	Storages string
}

// Global provides access to the loaded configuration globally.
var Global *Config

func setDefaults(v *viper.Viper) {
	v.SetDefault("app_version", "v1.0.0")
	v.SetDefault("app_port", "3000")
	v.SetDefault("app_debug", false)
	v.SetDefault("app_env", "development")
	v.SetDefault("app_base_path", "")
	v.SetDefault("app_base_url", "http://localhost:3000")
	v.SetDefault("app_cors_allowed_origins", "http://localhost:3000,http://localhost:5173")
	v.SetDefault("app_rate_limit_per_minute", 600)
	v.SetDefault("server_id", "")

	v.SetDefault("funnel_step_entry_delay_ms", 100)
	v.SetDefault("funnel_session_idle_ttl", "2h")
	v.SetDefault("funnel_cleanup_interval", "1m")
	v.SetDefault("funnel_max_sessions", 10000)
	v.SetDefault("funnel_event_timeout", "5s")
	v.SetDefault("funnel_monitor_buffer", 200)
	v.SetDefault("funnel_monitor_ttl", "0s")

	v.SetDefault("valkey_enabled", false)
	v.SetDefault("valkey_address", "localhost:6379")
	v.SetDefault("valkey_db", 0)
	v.SetDefault("valkey_key_prefix", "azfunnel:")

	v.SetDefault("message_worker_pool_size", 8)
	v.SetDefault("message_worker_queue_size", 256)

	v.SetDefault("path_storages", "storages")
}

// LoadConfig reads configuration from the environment, falling back to
// defaults. Pass nil to use a fresh viper instance bound to the environment.
func LoadConfig(v *viper.Viper) (*Config, error) {
	if v == nil {
		v = viper.New()
		v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
		v.AutomaticEnv()
	}
	setDefaults(v)

	cfg := &Config{
		App: AppConfig{
			Version:            v.GetString("app_version"),
			Port:               v.GetString("app_port"),
			Debug:              v.GetBool("app_debug"),
			Environment:        v.GetString("app_env"),
			BasicAuth:          splitList(v.GetString("app_basic_auth")),
			BasePath:           strings.TrimSuffix(v.GetString("app_base_path"), "/"),
			TrustedProxies:     splitList(v.GetString("app_trusted_proxies")),
			BaseUrl:            v.GetString("app_base_url"),
			CorsAllowedOrigins: splitList(v.GetString("app_cors_allowed_origins")),
			ServerID:           v.GetString("server_id"),
			RateLimitPerMinute: v.GetInt("app_rate_limit_per_minute"),
		},
		Funnel: FunnelConfig{
			StepEntryDelay:  time.Duration(v.GetInt("funnel_step_entry_delay_ms")) * time.Millisecond,
			SessionIdleTTL:  v.GetDuration("funnel_session_idle_ttl"),
			CleanupInterval: v.GetDuration("funnel_cleanup_interval"),
			MaxSessions:     v.GetInt("funnel_max_sessions"),
			EventTimeout:    v.GetDuration("funnel_event_timeout"),
			MonitorBuffer:   v.GetInt("funnel_monitor_buffer"),
			MonitorTTL:      v.GetDuration("funnel_monitor_ttl"),
		},
		Valkey: ValkeyConfig{
			Enabled:   v.GetBool("valkey_enabled"),
			Address:   v.GetString("valkey_address"),
			Password:  v.GetString("valkey_password"),
			DB:        v.GetInt("valkey_db"),
			KeyPrefix: v.GetString("valkey_key_prefix"),
		},
		WorkerPool: WorkerPoolConfig{
			Size:      v.GetInt("message_worker_pool_size"),
			QueueSize: v.GetInt("message_worker_queue_size"),
		},
		Paths: PathsConfig{
			Storages: v.GetString("path_storages"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
