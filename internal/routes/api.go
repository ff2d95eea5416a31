package routes

import (
	"github.com/Codingbot456/trendwear/internal/router"
)

// RegisterAPIRoutes registers the JSON API consumed by the storefront.
func RegisterAPIRoutes(r *router.Router, deps APIDeps) {
	// Orders
	r.Post("/api/orders", deps.OrderHandler.Create)
	r.Get("/api/orders", deps.OrderHandler.List)
	r.Get("/api/orders/user-orders", deps.OrderHandler.ListUserOrders)
	r.Put("/api/orders/status", deps.OrderHandler.UpdateStatus)
	r.Get("/api/orders/counties", deps.OrderHandler.ListCounties)

	// M-Pesa
	r.Post("/api/mpesa/stkpush", deps.PaymentHandler.STKPush)
	r.Get("/api/mpesa/access_token", deps.PaymentHandler.AccessToken)
	r.Get("/api/mpesa/registerurl", deps.PaymentHandler.RegisterURLs)
}
