// Package msgworker serialises session events on a fixed set of workers.
// Every event of a session hashes to the same worker, so events of one
// session run in arrival order while different sessions run in parallel.
package msgworker

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

var (
	ErrQueueFull   = errors.New("event queue full")
	ErrPoolStopped = errors.New("event worker pool stopped")
	ErrJobPanicked = errors.New("event handler panicked")
)

// EventJob is one unit of work for a session.
type EventJob struct {
	SessionID string
	Kind      string
	Handler   func(ctx context.Context) error
}

// PoolStats is a point-in-time view of the pool.
type PoolStats struct {
	NumWorkers      int            `json:"num_workers"`
	QueueSize       int            `json:"queue_size"`
	ActiveWorkers   int            `json:"active_workers"`
	TotalDispatched int64          `json:"total_dispatched"`
	TotalProcessed  int64          `json:"total_processed"`
	TotalDropped    int64          `json:"total_dropped"`
	TotalErrors     int64          `json:"total_errors"`
	UptimeSeconds   int64          `json:"uptime_seconds"`
	WorkerStats     []WorkerStats  `json:"worker_stats"`
	ActiveSessions  map[string]int `json:"active_sessions"` // sessionID -> worker_id
}

type WorkerStats struct {
	WorkerID      int   `json:"worker_id"`
	QueueDepth    int   `json:"queue_depth"`
	IsProcessing  bool  `json:"is_processing"`
	JobsProcessed int64 `json:"jobs_processed"`
}

type activeEntry struct {
	workerID  int
	updatedAt time.Time
}

// activeTTL is how long a session stays listed in stats after its last job.
const activeTTL = 2 * time.Second

type EventWorkerPool struct {
	numWorkers int
	queueSize  int
	workers    []*worker
	wg         sync.WaitGroup
	stopOnce   sync.Once
	stopped    int32
	stopCh     chan struct{}
	startTime  time.Time

	totalDispatched int64
	totalProcessed  int64
	totalDropped    int64
	totalErrors     int64

	activeMu sync.Mutex
	active   map[string]activeEntry

	// Optional hooks for external monitoring.
	OnJobStart func(workerID int, job EventJob)
	OnJobEnd   func(workerID int, job EventJob, err error)
}

type worker struct {
	id            int
	jobs          chan EventJob
	ctx           context.Context
	cancel        context.CancelFunc
	isProcessing  int32
	jobsProcessed int64
	pool          *EventWorkerPool
}

func NewEventWorkerPool(numWorkers, queueSize int) *EventWorkerPool {
	if numWorkers <= 0 {
		numWorkers = 8
	}
	if queueSize <= 0 {
		queueSize = 256
	}
	return &EventWorkerPool{
		numWorkers: numWorkers,
		queueSize:  queueSize,
		workers:    make([]*worker, numWorkers),
		active:     make(map[string]activeEntry),
		stopCh:     make(chan struct{}),
		startTime:  time.Now(),
	}
}

// Start launches the workers. Cancelling ctx drains the queues.
func (p *EventWorkerPool) Start(ctx context.Context) {
	for i := 0; i < p.numWorkers; i++ {
		workerCtx, cancel := context.WithCancel(ctx)
		w := &worker{
			id:     i,
			jobs:   make(chan EventJob, p.queueSize),
			ctx:    workerCtx,
			cancel: cancel,
			pool:   p,
		}
		p.workers[i] = w
		p.wg.Add(1)
		go w.run(&p.wg)
	}
	logrus.Infof("[MSG_WORKER_POOL] Started with %d workers, queue size: %d", p.numWorkers, p.queueSize)
}

// TryDispatch enqueues job without blocking and reports whether it was
// accepted. A false return means back-pressure: the worker queue is full or
// the pool is stopping.
func (p *EventWorkerPool) TryDispatch(job EventJob) bool {
	if atomic.LoadInt32(&p.stopped) == 1 {
		atomic.AddInt64(&p.totalDropped, 1)
		return false
	}

	shard := p.shardFor(job.SessionID)
	atomic.AddInt64(&p.totalDispatched, 1)

	sent := func() (ok bool) {
		// Stop closes the queues; a send racing with it must not crash the caller.
		defer func() {
			if recover() != nil {
				ok = false
			}
		}()
		select {
		case p.workers[shard].jobs <- job:
			return true
		default:
			return false
		}
	}()
	if !sent {
		atomic.AddInt64(&p.totalDropped, 1)
		logrus.Warnf("[MSG_WORKER_POOL] Worker %d queue full (or stopped), dropping %s for session %s",
			shard, job.Kind, job.SessionID)
		return false
	}

	p.activeMu.Lock()
	p.active[job.SessionID] = activeEntry{workerID: shard, updatedAt: time.Now()}
	p.activeMu.Unlock()
	return true
}

// Run enqueues fn for sessionID and waits for it to finish. It returns
// ErrQueueFull under back-pressure and ctx.Err() if ctx ends first; in the
// latter case fn may still run later.
func (p *EventWorkerPool) Run(ctx context.Context, sessionID, kind string, fn func(ctx context.Context) error) error {
	done := make(chan error, 1)
	job := EventJob{
		SessionID: sessionID,
		Kind:      kind,
		Handler: func(jobCtx context.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("%w: %v", ErrJobPanicked, r)
					logrus.Errorf("[MSG_WORKER_POOL] %s panicked for session %s: %v", kind, sessionID, r)
				}
				done <- err
			}()
			return fn(jobCtx)
		},
	}
	if !p.TryDispatch(job) {
		if atomic.LoadInt32(&p.stopped) == 1 {
			return ErrPoolStopped
		}
		return ErrQueueFull
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("waiting for %s on session %s: %w", kind, sessionID, ctx.Err())
	}
}

// Stop shuts the pool down after in-flight and queued jobs complete.
func (p *EventWorkerPool) Stop() {
	p.stopOnce.Do(func() {
		atomic.StoreInt32(&p.stopped, 1)
		close(p.stopCh)
		logrus.Info("[MSG_WORKER_POOL] Stopping workers...")
		for _, w := range p.workers {
			if w == nil {
				continue
			}
			close(w.jobs)
		}
		p.wg.Wait()
		for _, w := range p.workers {
			if w != nil {
				w.cancel()
			}
		}
		logrus.Info("[MSG_WORKER_POOL] All workers stopped")
	})
}

func (p *EventWorkerPool) shardFor(sessionID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(sessionID))
	return int(h.Sum32() % uint32(p.numWorkers))
}

func (p *EventWorkerPool) GetStats() PoolStats {
	workerStats := make([]WorkerStats, 0, len(p.workers))
	activeWorkers := 0
	for _, w := range p.workers {
		if w == nil {
			continue
		}
		processing := atomic.LoadInt32(&w.isProcessing) == 1
		if processing {
			activeWorkers++
		}
		workerStats = append(workerStats, WorkerStats{
			WorkerID:      w.id,
			QueueDepth:    len(w.jobs),
			IsProcessing:  processing,
			JobsProcessed: atomic.LoadInt64(&w.jobsProcessed),
		})
	}

	now := time.Now()
	p.activeMu.Lock()
	active := make(map[string]int, len(p.active))
	for id, entry := range p.active {
		if now.Sub(entry.updatedAt) > activeTTL {
			delete(p.active, id)
			continue
		}
		active[id] = entry.workerID
	}
	p.activeMu.Unlock()

	return PoolStats{
		NumWorkers:      p.numWorkers,
		QueueSize:       p.queueSize,
		ActiveWorkers:   activeWorkers,
		TotalDispatched: atomic.LoadInt64(&p.totalDispatched),
		TotalProcessed:  atomic.LoadInt64(&p.totalProcessed),
		TotalDropped:    atomic.LoadInt64(&p.totalDropped),
		TotalErrors:     atomic.LoadInt64(&p.totalErrors),
		UptimeSeconds:   int64(now.Sub(p.startTime).Seconds()),
		WorkerStats:     workerStats,
		ActiveSessions:  active,
	}
}

func (w *worker) run(wg *sync.WaitGroup) {
	defer wg.Done()
	logrus.Debugf("[MSG_WORKER_POOL] Worker %d started", w.id)

	for {
		select {
		case job, ok := <-w.jobs:
			if !ok {
				logrus.Debugf("[MSG_WORKER_POOL] Worker %d shutting down", w.id)
				return
			}
			w.process(job)
		case <-w.ctx.Done():
			logrus.Debugf("[MSG_WORKER_POOL] Worker %d context cancelled, draining queue...", w.id)
			w.drain()
			return
		}
	}
}

func (w *worker) process(job EventJob) {
	var err error
	if w.pool.OnJobStart != nil {
		w.pool.OnJobStart(w.id, job)
	}
	atomic.StoreInt32(&w.isProcessing, 1)
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
			logrus.Errorf("[MSG_WORKER_POOL] Worker %d panic on %s for session %s: %v", w.id, job.Kind, job.SessionID, r)
		}
		if err != nil {
			atomic.AddInt64(&w.pool.totalErrors, 1)
		}
		if w.pool.OnJobEnd != nil {
			w.pool.OnJobEnd(w.id, job, err)
		}
		atomic.StoreInt32(&w.isProcessing, 0)
		atomic.AddInt64(&w.jobsProcessed, 1)
		atomic.AddInt64(&w.pool.totalProcessed, 1)
	}()

	err = job.Handler(w.ctx)
	if err != nil {
		logrus.WithError(err).Debugf("[MSG_WORKER_POOL] Worker %d %s failed for session %s", w.id, job.Kind, job.SessionID)
	}
}

func (w *worker) drain() {
	for {
		select {
		case job, ok := <-w.jobs:
			if !ok {
				return
			}
			w.process(job)
		default:
			return
		}
	}
}
