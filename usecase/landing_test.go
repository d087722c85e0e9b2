package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLandingService_GetPage(t *testing.T) {
	svc := &serviceLanding{
		now:  func() time.Time { return time.Date(2025, 7, 6, 15, 0, 0, 0, time.UTC) },
		pick: func(int) int { return 0 },
	}

	page, err := svc.GetPage(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "ATENÇÃO: Devido a alta demanda essa página ira sair do ar no dia 06/07/2025", page.Banner)
	assert.Equal(t, "QUERO MINHA CONSULTA GRATUITA", page.CTALabel)
	assert.Equal(t, int64(180000), page.CTARevealAfterMs)
	assert.Equal(t, int64(2000), page.Notifications.FirstAfterMs)
	assert.Equal(t, int64(12000), page.Notifications.EveryMs)
	assert.Equal(t, int64(4000), page.Notifications.VisibleMs)
	assert.Len(t, page.Buyers, 12)
}

func TestLandingService_BannerUsesBrazilianDate(t *testing.T) {
	svc := &serviceLanding{
		// 01:30 UTC is still the previous evening in São Paulo.
		now:  func() time.Time { return time.Date(2025, 7, 7, 1, 30, 0, 0, time.UTC) },
		pick: func(int) int { return 0 },
	}
	page, err := svc.GetPage(context.Background())
	require.NoError(t, err)
	assert.Contains(t, page.Banner, "06/07/2025")
}

func TestLandingService_NextNotification(t *testing.T) {
	svc := &serviceLanding{now: time.Now, pick: func(n int) int { return n - 1 }}

	note, err := svc.NextNotification(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Ricardo B.", note.Name)
	assert.Equal(t, "Manaus", note.City)
	assert.Equal(t, "Ricardo B. de Manaus recebeu o PROTOCOLO", note.Message)
}

func TestLandingService_DefaultPickerStaysInRange(t *testing.T) {
	svc := NewLandingService()
	for i := 0; i < 50; i++ {
		note, err := svc.NextNotification(context.Background())
		require.NoError(t, err)
		assert.NotEmpty(t, note.City)
	}
}
