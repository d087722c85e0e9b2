package rest

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// InitRestMetrics exposes the default Prometheus registry.
func InitRestMetrics(app fiber.Router, path string) {
	app.Get(path, adaptor.HTTPHandler(promhttp.Handler()))
}
