package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	domainLanding "github.com/AzielCF/az-funnel/domains/landing"
	"github.com/AzielCF/az-funnel/ui/rest/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubLanding struct{}

func (stubLanding) GetPage(ctx context.Context) (domainLanding.PageResponse, error) {
	return domainLanding.PageResponse{Headline: "headline", CTARevealAfterMs: 180000}, nil
}

func (stubLanding) NextNotification(ctx context.Context) (domainLanding.NotificationResponse, error) {
	return domainLanding.NotificationResponse{
		Buyer:   domainLanding.Buyer{Name: "Sandra M.", City: "Campinas"},
		Message: "Sandra M. de Campinas recebeu o PROTOCOLO",
	}, nil
}

func TestLandingREST(t *testing.T) {
	app := fiber.New()
	app.Use(middleware.Recovery())
	InitRestLanding(app.Group("/api"), stubLanding{})

	resp, env := doRequest(t, app, http.MethodGet, "/api/landing", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var page domainLanding.PageResponse
	require.NoError(t, json.Unmarshal(env.Results, &page))
	assert.Equal(t, int64(180000), page.CTARevealAfterMs)

	resp, env = doRequest(t, app, http.MethodGet, "/api/landing/notification", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Sandra M. de Campinas recebeu o PROTOCOLO", env.Message)
	var note domainLanding.NotificationResponse
	require.NoError(t, json.Unmarshal(env.Results, &note))
	assert.Equal(t, "Campinas", note.City)
}
