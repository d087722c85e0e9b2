package rest

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/AzielCF/az-funnel/conversation/domain"
	domainSession "github.com/AzielCF/az-funnel/domains/session"
	pkgError "github.com/AzielCF/az-funnel/pkg/error"
	"github.com/AzielCF/az-funnel/pkg/utils"
	"github.com/AzielCF/az-funnel/ui/rest/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testSessionID = "3f2b8c1e-4d5a-4b6c-8d7e-9f0a1b2c3d4e"

type mockSessionService struct {
	mock.Mock
}

func (m *mockSessionService) Create(ctx context.Context) (domainSession.SessionResponse, error) {
	args := m.Called(ctx)
	return args.Get(0).(domainSession.SessionResponse), args.Error(1)
}

func (m *mockSessionService) Get(ctx context.Context, request domainSession.SessionRequest) (domainSession.SessionResponse, error) {
	args := m.Called(ctx, request)
	return args.Get(0).(domainSession.SessionResponse), args.Error(1)
}

func (m *mockSessionService) List(ctx context.Context) ([]domainSession.SessionSummary, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domainSession.SessionSummary), args.Error(1)
}

func (m *mockSessionService) Close(ctx context.Context, request domainSession.SessionRequest) error {
	return m.Called(ctx, request).Error(0)
}

func (m *mockSessionService) SubmitText(ctx context.Context, request domainSession.SubmitTextRequest) (domainSession.EventResponse, error) {
	args := m.Called(ctx, request)
	return args.Get(0).(domainSession.EventResponse), args.Error(1)
}

func (m *mockSessionService) SubmitChoice(ctx context.Context, request domainSession.SubmitChoiceRequest) (domainSession.EventResponse, error) {
	args := m.Called(ctx, request)
	return args.Get(0).(domainSession.EventResponse), args.Error(1)
}

func (m *mockSessionService) MediaEnded(ctx context.Context, request domainSession.SessionRequest) (domainSession.EventResponse, error) {
	args := m.Called(ctx, request)
	return args.Get(0).(domainSession.EventResponse), args.Error(1)
}

func (m *mockSessionService) OnSnapshot(hook domainSession.SnapshotHook) { m.Called(hook) }

func (m *mockSessionService) Shutdown() { m.Called() }

func newSessionApp(svc domainSession.ISessionUsecase) *fiber.App {
	app := fiber.New()
	app.Use(middleware.Recovery())
	api := app.Group("/api")
	InitRestSession(api, svc)
	InitRestSessionAdmin(api.Group("/admin"), svc)
	return app
}

type envelope struct {
	Status  int             `json:"status"`
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Results json.RawMessage `json:"results"`
}

func doRequest(t *testing.T, app *fiber.App, method, path, body string) (*http.Response, envelope) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &env), string(raw))
	return resp, env
}

func TestSessionREST_Create(t *testing.T) {
	svc := new(mockSessionService)
	snap := domain.Snapshot{SessionID: testSessionID, Step: domain.StepIntro, Phase: domain.PhaseEmitting}
	svc.On("Create", mock.Anything).Return(domainSession.SessionResponse{Snapshot: snap}, nil)

	resp, env := doRequest(t, newSessionApp(svc), http.MethodPost, "/api/sessions", "")

	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "SUCCESS", env.Code)

	var got domainSession.SessionResponse
	require.NoError(t, json.Unmarshal(env.Results, &got))
	assert.Equal(t, testSessionID, got.SessionID)
	assert.Equal(t, domain.StepIntro, got.Step)
	svc.AssertExpectations(t)
}

func TestSessionREST_CreateAtCapacity(t *testing.T) {
	svc := new(mockSessionService)
	svc.On("Create", mock.Anything).
		Return(domainSession.SessionResponse{}, pkgError.ServiceUnavailableError("session limit reached, try again later"))

	resp, env := doRequest(t, newSessionApp(svc), http.MethodPost, "/api/sessions", "")

	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "SERVICE_UNAVAILABLE", env.Code)
}

func TestSessionREST_GetNotFound(t *testing.T) {
	svc := new(mockSessionService)
	svc.On("Get", mock.Anything, domainSession.SessionRequest{SessionID: testSessionID}).
		Return(domainSession.SessionResponse{}, pkgError.NotFoundError("session not found"))

	resp, env := doRequest(t, newSessionApp(svc), http.MethodGet, "/api/sessions/"+testSessionID, "")

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND_ERROR", env.Code)
	assert.Equal(t, "session not found", env.Message)
}

func TestSessionREST_SubmitText(t *testing.T) {
	svc := new(mockSessionService)
	request := domainSession.SubmitTextRequest{SessionID: testSessionID, Text: "Ana"}
	svc.On("SubmitText", mock.Anything, request).
		Return(domainSession.EventResponse{Accepted: true, Snapshot: domain.Snapshot{Step: domain.StepAskAge}}, nil)

	resp, env := doRequest(t, newSessionApp(svc), http.MethodPost, "/api/sessions/"+testSessionID+"/text", `{"text":"Ana"}`)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Event applied", env.Message)

	var got domainSession.EventResponse
	require.NoError(t, json.Unmarshal(env.Results, &got))
	assert.True(t, got.Accepted)
	assert.Equal(t, domain.StepAskAge, got.Step)
	svc.AssertExpectations(t)
}

func TestSessionREST_SubmitTextMalformedBody(t *testing.T) {
	svc := new(mockSessionService)

	resp, env := doRequest(t, newSessionApp(svc), http.MethodPost, "/api/sessions/"+testSessionID+"/text", `{"text":`)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "BAD_REQUEST", env.Code)
	svc.AssertNotCalled(t, "SubmitText", mock.Anything, mock.Anything)
}

func TestSessionREST_SubmitChoiceIgnored(t *testing.T) {
	svc := new(mockSessionService)
	request := domainSession.SubmitChoiceRequest{SessionID: testSessionID, Label: "Talvez"}
	svc.On("SubmitChoice", mock.Anything, request).Return(domainSession.EventResponse{Accepted: false}, nil)

	resp, env := doRequest(t, newSessionApp(svc), http.MethodPost, "/api/sessions/"+testSessionID+"/choice", `{"label":"Talvez"}`)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Event ignored in current state", env.Message)
}

func TestSessionREST_ValidationError(t *testing.T) {
	svc := new(mockSessionService)
	svc.On("MediaEnded", mock.Anything, domainSession.SessionRequest{SessionID: "nope"}).
		Return(domainSession.EventResponse{}, pkgError.ValidationError("session_id: must be a valid UUID."))

	resp, env := doRequest(t, newSessionApp(svc), http.MethodPost, "/api/sessions/nope/media-ended", "")

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION_ERROR", env.Code)
}

func TestSessionREST_Close(t *testing.T) {
	svc := new(mockSessionService)
	svc.On("Close", mock.Anything, domainSession.SessionRequest{SessionID: testSessionID}).Return(nil)

	resp, env := doRequest(t, newSessionApp(svc), http.MethodDelete, "/api/sessions/"+testSessionID, "")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Session closed", env.Message)
	svc.AssertExpectations(t)
}

func TestSessionREST_AdminList(t *testing.T) {
	svc := new(mockSessionService)
	svc.On("List", mock.Anything).Return([]domainSession.SessionSummary{
		{SessionID: testSessionID, Step: domain.StepWaitSymptoms, Messages: 12},
	}, nil)

	resp, env := doRequest(t, newSessionApp(svc), http.MethodGet, "/api/admin/sessions", "")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var got []domainSession.SessionSummary
	require.NoError(t, json.Unmarshal(env.Results, &got))
	require.Len(t, got, 1)
	assert.Equal(t, domain.StepWaitSymptoms, got[0].Step)
}

func TestRecovery_UnknownPanicIsInternal(t *testing.T) {
	app := fiber.New()
	app.Use(middleware.Recovery())
	app.Get("/boom", func(c *fiber.Ctx) error {
		utils.PanicIfNeeded("unexpected")
		return nil
	})

	resp, env := doRequest(t, app, http.MethodGet, "/boom", "")

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "INTERNAL_SERVER_ERROR", env.Code)
	assert.Equal(t, "unexpected", env.Message)
}
