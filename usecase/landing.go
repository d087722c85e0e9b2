package usecase

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	domainLanding "github.com/AzielCF/az-funnel/domains/landing"
)

const (
	landingHeadline    = "ESSE TRUQUE DO ABACATE ESTÁ MELHORANDO A DIABETES TIPO 2 DA POPULAÇÃO"
	landingSubheadline = "E o melhor de tudo totalmente natural sem química"
	landingBanner      = "ATENÇÃO: Devido a alta demanda essa página ira sair do ar no dia %s"
	landingVideoURL    = "https://scripts.converteai.net/fd7cffcf-a128-4cf6-8573-7102145d7c17/players/6963b277a0bc9c70579d8187/v4/embed.html"
	landingPlayerSDK   = "https://scripts.converteai.net/lib/js/smartplayer-wc/v4/sdk.js"
	landingCTALabel    = "QUERO MINHA CONSULTA GRATUITA"
	landingCTAReveal   = 180 * time.Second
	notifyFirstAfter   = 2 * time.Second
	notifyEvery        = 12 * time.Second
	notifyVisible      = 4 * time.Second
)

var landingBuyers = []domainLanding.Buyer{
	{Name: "Maria Silva", City: "São Paulo"},
	{Name: "João Santos", City: "Rio de Janeiro"},
	{Name: "Ana Costa", City: "Belo Horizonte"},
	{Name: "Pedro Oliveira", City: "Curitiba"},
	{Name: "Lúcia Ferreira", City: "Porto Alegre"},
	{Name: "Carlos Souza", City: "Salvador"},
	{Name: "Fernanda Lima", City: "Recife"},
	{Name: "Antônio Rodrigues", City: "Fortaleza"},
	{Name: "Patricia Gomes", City: "Brasília"},
	{Name: "Roberto Alves", City: "Goiânia"},
	{Name: "Sandra M.", City: "Campinas"},
	{Name: "Ricardo B.", City: "Manaus"},
}

type serviceLanding struct {
	now  func() time.Time
	pick func(n int) int
}

func NewLandingService() domainLanding.ILandingUsecase {
	return &serviceLanding{now: time.Now, pick: rand.IntN}
}

func (service *serviceLanding) GetPage(ctx context.Context) (response domainLanding.PageResponse, err error) {
	// The deadline shown is always today, in Brazilian date format.
	today := service.now().In(saoPaulo()).Format("02/01/2006")

	response = domainLanding.PageResponse{
		Banner:           fmt.Sprintf(landingBanner, today),
		Headline:         landingHeadline,
		Subheadline:      landingSubheadline,
		VideoEmbedURL:    landingVideoURL,
		PlayerSDKURL:     landingPlayerSDK,
		CTALabel:         landingCTALabel,
		CTARevealAfterMs: landingCTAReveal.Milliseconds(),
		Notifications: domainLanding.NotificationSchedule{
			FirstAfterMs: notifyFirstAfter.Milliseconds(),
			EveryMs:      notifyEvery.Milliseconds(),
			VisibleMs:    notifyVisible.Milliseconds(),
		},
		Buyers: append([]domainLanding.Buyer(nil), landingBuyers...),
	}
	return response, nil
}

func (service *serviceLanding) NextNotification(ctx context.Context) (response domainLanding.NotificationResponse, err error) {
	buyer := landingBuyers[service.pick(len(landingBuyers))]
	response.Buyer = buyer
	response.Message = fmt.Sprintf("%s de %s recebeu o PROTOCOLO", buyer.Name, buyer.City)
	return response, nil
}

func saoPaulo() *time.Location {
	if loc, err := time.LoadLocation("America/Sao_Paulo"); err == nil {
		return loc
	}
	return time.FixedZone("BRT", -3*60*60)
}
