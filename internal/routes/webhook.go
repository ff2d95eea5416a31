package routes

import (
	"github.com/Codingbot456/trendwear/internal/router"
)

// RegisterWebhookRoutes registers routes called by the payment gateway.
//
// Daraja does not sign callbacks, so the handler trusts only fields it
// can match against state it wrote itself (the checkout request id
// recorded at initiation).
func RegisterWebhookRoutes(r *router.Router, deps WebhookDeps) {
	r.Post("/api/mpesa/callback", deps.MpesaHandler.HandleCallback)
}
