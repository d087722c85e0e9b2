package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/AzielCF/az-funnel/conversation"
	"github.com/AzielCF/az-funnel/conversation/domain"
	"github.com/AzielCF/az-funnel/conversation/script"
	coreconfig "github.com/AzielCF/az-funnel/core/config"
	domainSession "github.com/AzielCF/az-funnel/domains/session"
	pkgError "github.com/AzielCF/az-funnel/pkg/error"
	"github.com/AzielCF/az-funnel/pkg/metrics"
	"github.com/AzielCF/az-funnel/pkg/msgworker"
	"github.com/AzielCF/az-funnel/pkg/sessionmonitor"
	"github.com/AzielCF/az-funnel/validations"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// hostedSession pairs an engine with its bookkeeping.
type hostedSession struct {
	engine    *conversation.Session
	createdAt time.Time

	mu       sync.Mutex
	lastSeen time.Time
	counted  int // transcript length already reported to metrics
}

func (h *hostedSession) touch(now time.Time) {
	h.mu.Lock()
	if now.After(h.lastSeen) {
		h.lastSeen = now
	}
	h.mu.Unlock()
}

func (h *hostedSession) idleSince() time.Time {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lastSeen
}

type SessionServiceOption func(*serviceSession)

// WithEngineOptions appends options to every session the service creates.
func WithEngineOptions(opts ...conversation.Option) SessionServiceOption {
	return func(s *serviceSession) { s.engineOpts = append(s.engineOpts, opts...) }
}

// WithMonitor records session events into m instead of a private monitor.
func WithMonitor(m *sessionmonitor.Monitor) SessionServiceOption {
	return func(s *serviceSession) { s.monitor = m }
}

// WithServiceClock replaces the clock used for idle tracking.
func WithServiceClock(now func() time.Time) SessionServiceOption {
	return func(s *serviceSession) { s.now = now }
}

type serviceSession struct {
	script     *script.Script
	pool       *msgworker.EventWorkerPool
	cfg        coreconfig.FunnelConfig
	engineOpts []conversation.Option
	monitor    *sessionmonitor.Monitor
	now        func() time.Time

	mu       sync.RWMutex
	sessions map[string]*hostedSession

	hooksMu sync.RWMutex
	hooks   []domainSession.SnapshotHook

	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewSessionService hosts conversation sessions in memory. Events for one
// session are serialised through pool. A background loop closes sessions
// idle for longer than cfg.SessionIdleTTL.
func NewSessionService(sc *script.Script, pool *msgworker.EventWorkerPool, cfg coreconfig.FunnelConfig, opts ...SessionServiceOption) domainSession.ISessionUsecase {
	svc := &serviceSession{
		script:   sc,
		pool:     pool,
		cfg:      cfg,
		now:      time.Now,
		sessions: make(map[string]*hostedSession),
		stopCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.monitor == nil {
		svc.monitor = sessionmonitor.New(0, 0)
	}
	if svc.cfg.CleanupInterval > 0 && svc.cfg.SessionIdleTTL > 0 {
		go svc.cleanupLoop()
	}
	return svc
}

func (service *serviceSession) Create(ctx context.Context) (response domainSession.SessionResponse, err error) {
	id := uuid.NewString()
	now := service.now()
	hosted := &hostedSession{createdAt: now, lastSeen: now}

	opts := []conversation.Option{
		conversation.WithStepEntryDelay(service.cfg.StepEntryDelay),
		conversation.WithLogger(logrus.WithField("session_id", id)),
		conversation.WithListener(func(snap domain.Snapshot) { service.observe(hosted, snap) }),
	}
	hosted.engine = conversation.NewSession(id, service.script, append(opts, service.engineOpts...)...)

	service.mu.Lock()
	if service.cfg.MaxSessions > 0 && len(service.sessions) >= service.cfg.MaxSessions {
		service.mu.Unlock()
		metrics.SessionsRejected.Inc()
		service.monitor.Record(sessionmonitor.Event{SessionID: id, Kind: "created", Status: sessionmonitor.StatusFailed, Error: "session limit reached"})
		logrus.Warnf("[SESSION] refusing new session, limit of %d reached", service.cfg.MaxSessions)
		return response, pkgError.ServiceUnavailableError("session limit reached, try again later")
	}
	service.sessions[id] = hosted
	service.mu.Unlock()

	metrics.SessionsCreated.Inc()
	metrics.SessionsActive.Inc()
	logrus.Infof("[SESSION] Started %s", id)

	hosted.engine.Start()
	service.monitor.Record(sessionmonitor.Event{SessionID: id, Kind: "created", Step: domain.StepIntro.String(), Status: sessionmonitor.StatusAccepted})
	return service.response(hosted), nil
}

func (service *serviceSession) Get(ctx context.Context, request domainSession.SessionRequest) (response domainSession.SessionResponse, err error) {
	if err = validations.ValidateSessionRequest(ctx, request); err != nil {
		return response, err
	}
	hosted, err := service.lookup(request.SessionID)
	if err != nil {
		return response, err
	}
	hosted.touch(service.now())
	return service.response(hosted), nil
}

func (service *serviceSession) List(ctx context.Context) (response []domainSession.SessionSummary, err error) {
	service.mu.RLock()
	hosted := make([]*hostedSession, 0, len(service.sessions))
	for _, h := range service.sessions {
		hosted = append(hosted, h)
	}
	service.mu.RUnlock()

	now := service.now()
	response = make([]domainSession.SessionSummary, 0, len(hosted))
	for _, h := range hosted {
		snap := h.engine.Snapshot()
		last := h.idleSince()
		response = append(response, domainSession.SessionSummary{
			SessionID:    snap.SessionID,
			Step:         snap.Step,
			Phase:        snap.Phase,
			Messages:     len(snap.Messages),
			CreatedAt:    h.createdAt,
			LastActivity: last,
			Age:          humanize.RelTime(h.createdAt, now, "ago", "from now"),
			Idle:         strings.TrimSpace(humanize.RelTime(last, now, "", "")),
		})
	}
	sort.Slice(response, func(i, j int) bool { return response[i].CreatedAt.Before(response[j].CreatedAt) })
	return response, nil
}

func (service *serviceSession) Close(ctx context.Context, request domainSession.SessionRequest) (err error) {
	if err = validations.ValidateSessionRequest(ctx, request); err != nil {
		return err
	}
	service.mu.Lock()
	hosted, ok := service.sessions[request.SessionID]
	delete(service.sessions, request.SessionID)
	service.mu.Unlock()
	if !ok {
		return pkgError.NotFoundError(fmt.Sprintf("session %s not found", request.SessionID))
	}
	service.teardown(hosted, "closed")
	return nil
}

func (service *serviceSession) SubmitText(ctx context.Context, request domainSession.SubmitTextRequest) (response domainSession.EventResponse, err error) {
	if err = validations.ValidateSubmitText(ctx, request); err != nil {
		return response, err
	}
	return service.dispatch(ctx, request.SessionID, "text", func(engine *conversation.Session) bool {
		return engine.SubmitUserText(request.Text)
	})
}

func (service *serviceSession) SubmitChoice(ctx context.Context, request domainSession.SubmitChoiceRequest) (response domainSession.EventResponse, err error) {
	if err = validations.ValidateSubmitChoice(ctx, request); err != nil {
		return response, err
	}
	return service.dispatch(ctx, request.SessionID, "choice", func(engine *conversation.Session) bool {
		return engine.SubmitUserChoice(request.Label)
	})
}

func (service *serviceSession) MediaEnded(ctx context.Context, request domainSession.SessionRequest) (response domainSession.EventResponse, err error) {
	if err = validations.ValidateSessionRequest(ctx, request); err != nil {
		return response, err
	}
	return service.dispatch(ctx, request.SessionID, "media_ended", func(engine *conversation.Session) bool {
		return engine.NotifyMediaEnded()
	})
}

func (service *serviceSession) OnSnapshot(hook domainSession.SnapshotHook) {
	if hook == nil {
		return
	}
	service.hooksMu.Lock()
	service.hooks = append(service.hooks, hook)
	service.hooksMu.Unlock()
}

// Shutdown stops the cleanup loop and closes every hosted session.
func (service *serviceSession) Shutdown() {
	service.stopOnce.Do(func() {
		close(service.stopCh)

		service.mu.Lock()
		hosted := service.sessions
		service.sessions = make(map[string]*hostedSession)
		service.mu.Unlock()

		for _, h := range hosted {
			service.teardown(h, "shutdown")
		}
		logrus.Infof("[SESSION] Shutdown closed %d sessions", len(hosted))
	})
}

func (service *serviceSession) dispatch(ctx context.Context, sessionID, event string, apply func(*conversation.Session) bool) (response domainSession.EventResponse, err error) {
	hosted, err := service.lookup(sessionID)
	if err != nil {
		return response, err
	}
	if service.cfg.EventTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, service.cfg.EventTimeout)
		defer cancel()
	}

	started := service.now()
	accepted := make(chan bool, 1)
	err = service.pool.Run(ctx, sessionID, event, func(context.Context) error {
		accepted <- apply(hosted.engine)
		return nil
	})
	if err != nil {
		metrics.Events.WithLabelValues(event, metrics.OutcomeFailed).Inc()
		service.monitor.Record(sessionmonitor.Event{
			SessionID:  sessionID,
			Kind:       event,
			Status:     sessionmonitor.StatusFailed,
			Error:      err.Error(),
			DurationMs: service.now().Sub(started).Milliseconds(),
		})
		if errors.Is(err, msgworker.ErrQueueFull) || errors.Is(err, msgworker.ErrPoolStopped) {
			return response, pkgError.ServiceUnavailableError(err.Error())
		}
		return response, pkgError.InternalServerError(err.Error())
	}

	hosted.touch(service.now())
	response.Accepted = <-accepted
	metrics.ObserveEvent(event, response.Accepted)
	response.Snapshot = hosted.engine.Snapshot()
	service.monitor.Record(sessionmonitor.Event{
		SessionID:  sessionID,
		Kind:       event,
		Step:       response.Step.String(),
		Status:     sessionmonitor.StatusOf(response.Accepted),
		DurationMs: service.now().Sub(started).Milliseconds(),
	})
	return response, nil
}

func (service *serviceSession) lookup(sessionID string) (*hostedSession, error) {
	service.mu.RLock()
	hosted, ok := service.sessions[sessionID]
	service.mu.RUnlock()
	if !ok {
		return nil, pkgError.NotFoundError(fmt.Sprintf("session %s not found", sessionID))
	}
	return hosted, nil
}

func (service *serviceSession) response(hosted *hostedSession) domainSession.SessionResponse {
	return domainSession.SessionResponse{
		Persona:  service.script.Persona,
		Snapshot: hosted.engine.Snapshot(),
	}
}

// observe runs for every snapshot of a session, serialised per session.
func (service *serviceSession) observe(hosted *hostedSession, snap domain.Snapshot) {
	hosted.mu.Lock()
	if hosted.counted < len(snap.Messages) {
		for _, m := range snap.Messages[hosted.counted:] {
			metrics.MessagesEmitted.WithLabelValues(string(m.Sender), string(m.Kind)).Inc()
		}
		hosted.counted = len(snap.Messages)
	}
	hosted.mu.Unlock()

	service.hooksMu.RLock()
	hooks := append([]domainSession.SnapshotHook(nil), service.hooks...)
	service.hooksMu.RUnlock()
	for _, hook := range hooks {
		hook(snap)
	}
}

func (service *serviceSession) teardown(hosted *hostedSession, reason string) {
	hosted.engine.Close()
	service.monitor.Record(sessionmonitor.Event{
		SessionID: hosted.engine.ID(),
		Kind:      reason,
		Step:      hosted.engine.Step().String(),
		Status:    sessionmonitor.StatusAccepted,
	})
	metrics.SessionsClosed.WithLabelValues(reason).Inc()
	metrics.SessionsActive.Dec()
	logrus.Debugf("[SESSION] %s %s", reason, hosted.engine.ID())
}

func (service *serviceSession) cleanupLoop() {
	ticker := time.NewTicker(service.cfg.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-service.stopCh:
			return
		case <-ticker.C:
			if n := service.expireIdle(); n > 0 {
				logrus.Infof("[SESSION] Expired %d idle sessions", n)
			}
		}
	}
}

// expireIdle closes sessions without activity for longer than the idle TTL.
func (service *serviceSession) expireIdle() int {
	cutoff := service.now().Add(-service.cfg.SessionIdleTTL)

	service.mu.Lock()
	var expired []*hostedSession
	for id, h := range service.sessions {
		if h.idleSince().Before(cutoff) {
			expired = append(expired, h)
			delete(service.sessions, id)
		}
	}
	service.mu.Unlock()

	for _, h := range expired {
		service.teardown(h, "expired")
	}
	return len(expired)
}
