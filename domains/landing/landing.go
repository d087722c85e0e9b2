package landing

import "context"

type ILandingUsecase interface {
	GetPage(ctx context.Context) (response PageResponse, err error)
	NextNotification(ctx context.Context) (response NotificationResponse, err error)
}

type Buyer struct {
	Name string `json:"name"`
	City string `json:"city"`
}

// NotificationSchedule drives the client-side social-proof toasts.
type NotificationSchedule struct {
	FirstAfterMs int64 `json:"first_after_ms"`
	EveryMs      int64 `json:"every_ms"`
	VisibleMs    int64 `json:"visible_ms"`
}

type PageResponse struct {
	Banner           string               `json:"banner"`
	Headline         string               `json:"headline"`
	Subheadline      string               `json:"subheadline"`
	VideoEmbedURL    string               `json:"video_embed_url"`
	PlayerSDKURL     string               `json:"player_sdk_url"`
	CTALabel         string               `json:"cta_label"`
	CTARevealAfterMs int64                `json:"cta_reveal_after_ms"`
	Notifications    NotificationSchedule `json:"notifications"`
	Buyers           []Buyer              `json:"buyers"`
}

type NotificationResponse struct {
	Buyer
	Message string `json:"message"`
}
