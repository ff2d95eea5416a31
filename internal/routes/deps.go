package routes

import (
	"github.com/Codingbot456/trendwear/internal/handler/api"
	"github.com/Codingbot456/trendwear/internal/handler/webhook"
)

// APIDeps contains handlers for the storefront-facing JSON API
type APIDeps struct {
	OrderHandler   *api.OrderHandler
	PaymentHandler *api.PaymentHandler
}

// WebhookDeps contains handlers for gateway-facing callback routes
type WebhookDeps struct {
	MpesaHandler *webhook.MpesaHandler
}
