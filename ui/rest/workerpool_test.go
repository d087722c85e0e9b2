package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/AzielCF/az-funnel/pkg/msgworker"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkerPoolStats_Uninitialized(t *testing.T) {
	app := fiber.New()
	InitRestWorkerPool(app, nil)

	resp, env := doRequest(t, app, http.MethodGet, "/worker-pool/stats", "")

	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "SERVICE_UNAVAILABLE", env.Code)
}

func TestWorkerPoolStats_Initialized(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	pool := msgworker.NewEventWorkerPool(2, 10)
	pool.Start(ctx)
	t.Cleanup(func() {
		cancel()
		pool.Stop()
	})

	app := fiber.New()
	InitRestWorkerPool(app, pool)

	resp, env := doRequest(t, app, http.MethodGet, "/worker-pool/stats", "")

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var stats msgworker.PoolStats
	require.NoError(t, json.Unmarshal(env.Results, &stats))
	assert.Equal(t, 2, stats.NumWorkers)
	assert.Len(t, stats.WorkerStats, 2)
}
