package config

import (
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	err := validation.Errors{
		"app": validation.ValidateStruct(&c.App,
			validation.Field(&c.App.Port, validation.Required, is.Port),
			validation.Field(&c.App.RateLimitPerMinute, validation.Min(0)),
		),
		"funnel": validation.ValidateStruct(&c.Funnel,
			validation.Field(&c.Funnel.StepEntryDelay, validation.Min(0)),
			validation.Field(&c.Funnel.SessionIdleTTL, validation.Required),
			validation.Field(&c.Funnel.CleanupInterval, validation.Required),
			validation.Field(&c.Funnel.MaxSessions, validation.Required, validation.Min(1)),
			validation.Field(&c.Funnel.EventTimeout, validation.Required),
			validation.Field(&c.Funnel.MonitorBuffer, validation.Min(0)),
		),
		"valkey": validation.ValidateStruct(&c.Valkey,
			validation.Field(&c.Valkey.Address, validation.When(c.Valkey.Enabled, validation.Required)),
		),
		"worker_pool": validation.ValidateStruct(&c.WorkerPool,
			validation.Field(&c.WorkerPool.Size, validation.Min(1)),
			validation.Field(&c.WorkerPool.QueueSize, validation.Min(1)),
		),
	}.Filter()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// GetAllSettings returns the non-secret settings currently loaded.
func GetAllSettings() map[string]any {
	if Global == nil {
		return map[string]any{}
	}
	return map[string]any{
		"app_version":                Global.App.Version,
		"app_debug":                  Global.App.Debug,
		"app_env":                    Global.App.Environment,
		"funnel_step_entry_delay_ms": Global.Funnel.StepEntryDelay.Milliseconds(),
		"funnel_session_idle_ttl":    Global.Funnel.SessionIdleTTL.String(),
		"funnel_max_sessions":        Global.Funnel.MaxSessions,
		"funnel_event_timeout":       Global.Funnel.EventTimeout.String(),
		"valkey_enabled":             Global.Valkey.Enabled,
		"message_worker_pool_size":   Global.WorkerPool.Size,
		"message_worker_queue_size":  Global.WorkerPool.QueueSize,
	}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
