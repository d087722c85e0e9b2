package rest

import (
	"strings"
	"time"

	"github.com/AzielCF/az-funnel/infrastructure/valkey"
	"github.com/AzielCF/az-funnel/pkg/utils"
	"github.com/dustin/go-humanize"
	"github.com/gofiber/fiber/v2"
)

type HealthStatus struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	ServerID      string `json:"server_id"`
	StartedAt     string `json:"started_at"`
	Uptime        string `json:"uptime"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	Valkey        string `json:"valkey"`
}

type Health struct {
	Version   string
	ServerID  string
	StartedAt time.Time
	Valkey    *valkey.Client

	now func() time.Time
}

func InitRestHealth(app fiber.Router, version, serverID string, vk *valkey.Client) Health {
	handler := Health{
		Version:   version,
		ServerID:  serverID,
		StartedAt: time.Now(),
		Valkey:    vk,
		now:       time.Now,
	}
	app.Get("/health", handler.GetStatus)
	return handler
}

func (h *Health) GetStatus(c *fiber.Ctx) error {
	now := time.Now()
	if h.now != nil {
		now = h.now()
	}

	status := HealthStatus{
		Status:        "ok",
		Version:       h.Version,
		ServerID:      h.ServerID,
		StartedAt:     h.StartedAt.UTC().Format(time.RFC3339),
		Uptime:        strings.TrimSpace(humanize.RelTime(h.StartedAt, now, "", "")),
		UptimeSeconds: int64(now.Sub(h.StartedAt).Seconds()),
		Valkey:        "disabled",
	}

	if h.Valkey != nil {
		status.Valkey = "connected"
		if !h.Valkey.IsConnected() {
			// Sessions are local; a lost broker only degrades cross-instance websocket fan-out.
			status.Valkey = "unreachable"
			status.Status = "degraded"
		}
	}

	return c.JSON(utils.ResponseData{
		Status:  fiber.StatusOK,
		Code:    "SUCCESS",
		Message: "Health status retrieved",
		Results: status,
	})
}
