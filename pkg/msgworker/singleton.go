package msgworker

import (
	"context"
	"sync"

	coreconfig "github.com/AzielCF/az-funnel/core/config"
	"github.com/sirupsen/logrus"
)

var (
	globalPool     *EventWorkerPool
	globalPoolOnce sync.Once
	globalCancel   context.CancelFunc
)

// GetGlobalPool returns the process-wide pool, sized from coreconfig.Global.
func GetGlobalPool() *EventWorkerPool {
	globalPoolOnce.Do(func() {
		var ctx context.Context
		ctx, globalCancel = context.WithCancel(context.Background())

		size, queue := 0, 0
		if coreconfig.Global != nil {
			size = coreconfig.Global.WorkerPool.Size
			queue = coreconfig.Global.WorkerPool.QueueSize
		}
		globalPool = NewEventWorkerPool(size, queue)
		globalPool.Start(ctx)
		logrus.Infof("[MSG_WORKER_POOL] Global instance ready (%d workers, queue %d)", globalPool.numWorkers, globalPool.queueSize)
	})
	return globalPool
}

// StopGlobalPool drains and stops the process-wide pool.
func StopGlobalPool() {
	if globalPool != nil {
		globalPool.Stop()
	}
	if globalCancel != nil {
		globalCancel()
	}
}
