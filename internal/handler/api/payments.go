package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/Codingbot456/trendwear/internal/domain"
	"github.com/Codingbot456/trendwear/internal/handler"
)

// PaymentHandler serves the M-Pesa endpoints under /api/mpesa.
type PaymentHandler struct {
	service domain.PaymentService
	logger  *slog.Logger
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(service domain.PaymentService, logger *slog.Logger) *PaymentHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PaymentHandler{
		service: service,
		logger:  logger,
	}
}

type stkPushRequest struct {
	OrderID     int64  `json:"orderId"`
	PhoneNumber string `json:"phoneNumber"`
	Amount      int64  `json:"amount"`
}

// STKPush handles POST /api/mpesa/stkpush. Success means the payment
// prompt was dispatched, not that the order is paid; the outcome arrives
// later on the callback endpoint.
func (h *PaymentHandler) STKPush(w http.ResponseWriter, r *http.Request) {
	var req stkPushRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handler.ErrorResponse(w, r, domain.Invalid("payment.stkpush", "invalid JSON body"))
		return
	}

	result, err := h.service.InitiateSTKPush(r.Context(), domain.STKPushParams{
		OrderID:     req.OrderID,
		PhoneNumber: req.PhoneNumber,
		Amount:      req.Amount,
	})
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	h.logger.Info("payment prompt dispatched",
		"order_id", req.OrderID,
		"checkout_request_id", result.CheckoutRequestID,
	)
	handler.RespondJSON(w, http.StatusOK, map[string]string{
		"message":             "STK push initiated successfully",
		"merchant_request_id": result.MerchantRequestID,
		"checkout_request_id": result.CheckoutRequestID,
		"customer_message":    result.CustomerMessage,
	})
}

// AccessToken handles GET /api/mpesa/access_token. Diagnostic endpoint
// that surfaces the gateway credential exchange.
func (h *PaymentHandler) AccessToken(w http.ResponseWriter, r *http.Request) {
	token, err := h.service.AccessToken(r.Context())
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.RespondJSON(w, http.StatusOK, map[string]string{
		"access_token": token,
	})
}

// RegisterURLs handles GET /api/mpesa/registerurl.
func (h *PaymentHandler) RegisterURLs(w http.ResponseWriter, r *http.Request) {
	if err := h.service.RegisterC2BURLs(r.Context()); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.RespondJSON(w, http.StatusOK, map[string]string{
		"message": "C2B URLs registered successfully",
	})
}
