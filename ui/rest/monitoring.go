package rest

import (
	"github.com/AzielCF/az-funnel/pkg/sessionmonitor"
	"github.com/AzielCF/az-funnel/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

type MonitoringHandler struct {
	monitor *sessionmonitor.Monitor
}

// InitRestMonitoring exposes the live session event feed.
func InitRestMonitoring(app fiber.Router, monitor *sessionmonitor.Monitor) MonitoringHandler {
	h := MonitoringHandler{monitor: monitor}

	g := app.Group("/monitoring")
	g.Get("/events", h.GetRecentEvents)
	return h
}

func (h *MonitoringHandler) GetRecentEvents(c *fiber.Ctx) error {
	stats := h.monitor.GetStats()

	// ?kind=text narrows the feed to one event kind.
	if kind := c.Query("kind"); kind != "" {
		filtered := stats.RecentEvents[:0:0]
		for _, e := range stats.RecentEvents {
			if e.Kind == kind {
				filtered = append(filtered, e)
			}
		}
		stats.RecentEvents = filtered
	}

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Recent session events",
		Results: stats,
	})
}
