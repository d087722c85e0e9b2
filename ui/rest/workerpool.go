package rest

import (
	"github.com/AzielCF/az-funnel/pkg/msgworker"
	"github.com/AzielCF/az-funnel/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

type WorkerPool struct {
	Pool *msgworker.EventWorkerPool
}

func InitRestWorkerPool(app fiber.Router, pool *msgworker.EventWorkerPool) WorkerPool {
	handler := WorkerPool{Pool: pool}
	app.Get("/worker-pool/stats", handler.GetStats)
	return handler
}

// GetStats returns real-time event worker pool statistics
func (h *WorkerPool) GetStats(c *fiber.Ctx) error {
	if h.Pool == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(utils.ResponseData{
			Status:  fiber.StatusServiceUnavailable,
			Code:    "SERVICE_UNAVAILABLE",
			Message: "Event worker pool not initialized",
		})
	}

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Worker pool statistics",
		Results: h.Pool.GetStats(),
	})
}
