package session

import (
	"context"
	"time"

	"github.com/AzielCF/az-funnel/conversation/domain"
	"github.com/AzielCF/az-funnel/conversation/script"
)

// SnapshotHook observes every state change of every hosted session.
type SnapshotHook func(snap domain.Snapshot)

type ISessionUsecase interface {
	Create(ctx context.Context) (response SessionResponse, err error)
	Get(ctx context.Context, request SessionRequest) (response SessionResponse, err error)
	List(ctx context.Context) (response []SessionSummary, err error)
	Close(ctx context.Context, request SessionRequest) (err error)
	SubmitText(ctx context.Context, request SubmitTextRequest) (response EventResponse, err error)
	SubmitChoice(ctx context.Context, request SubmitChoiceRequest) (response EventResponse, err error)
	MediaEnded(ctx context.Context, request SessionRequest) (response EventResponse, err error)
	OnSnapshot(hook SnapshotHook)
	Shutdown()
}

type SessionRequest struct {
	SessionID string `json:"session_id" uri:"session_id"`
}

type SubmitTextRequest struct {
	SessionID string `json:"session_id" uri:"session_id"`
	Text      string `json:"text" form:"text"`
}

type SubmitChoiceRequest struct {
	SessionID string `json:"session_id" uri:"session_id"`
	Label     string `json:"label" form:"label"`
}

type SessionResponse struct {
	Persona script.Persona `json:"persona"`
	domain.Snapshot
}

type EventResponse struct {
	Accepted bool `json:"accepted"`
	domain.Snapshot
}

type SessionSummary struct {
	SessionID    string       `json:"session_id"`
	Step         domain.Step  `json:"step"`
	Phase        domain.Phase `json:"phase"`
	Messages     int          `json:"messages"`
	CreatedAt    time.Time    `json:"created_at"`
	LastActivity time.Time    `json:"last_activity"`
	Age          string       `json:"age"`
	Idle         string       `json:"idle"`
}
