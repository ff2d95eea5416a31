package webhook

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/Codingbot456/trendwear/internal/domain"
	"github.com/Codingbot456/trendwear/internal/handler"
	"github.com/Codingbot456/trendwear/internal/mpesa"
)

// MpesaHandler receives asynchronous STK push result callbacks from the
// Daraja gateway.
type MpesaHandler struct {
	payments domain.PaymentService
	logger   *slog.Logger
}

// NewMpesaHandler creates a new M-Pesa callback handler
func NewMpesaHandler(payments domain.PaymentService, logger *slog.Logger) *MpesaHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &MpesaHandler{
		payments: payments,
		logger:   logger,
	}
}

// HandleCallback processes POST /api/mpesa/callback.
//
// The gateway retries on non-2xx responses, so every callback that was
// durably processed is acknowledged with 200, including callbacks that
// match no order. Only a storage failure returns 500, which makes the
// gateway redeliver; redelivery is safe because applying a callback is
// idempotent.
func (h *MpesaHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		h.logger.Error("failed to read callback body", "error", err)
		handler.ErrorResponse(w, r, domain.Invalid("payment.callback", "error reading request body"))
		return
	}

	h.logger.Debug("callback received", "payload", string(payload))

	var envelope mpesa.CallbackEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		// Not a retryable condition; acknowledge so the gateway
		// stops redelivering a body we can never parse.
		h.logger.Error("unparseable callback payload", "error", err, "payload", string(payload))
		ack(w)
		return
	}

	cb := envelope.Body.StkCallback.Event()
	h.logger.Info("stk callback",
		"checkout_request_id", cb.CheckoutRequestID,
		"result_code", cb.ResultCode,
		"result_desc", cb.ResultDesc,
	)

	if err := h.payments.ApplyCallback(r.Context(), cb); err != nil {
		h.logger.Error("callback not applied",
			"checkout_request_id", cb.CheckoutRequestID,
			"error", err,
		)
		handler.ErrorResponse(w, r, err)
		return
	}

	ack(w)
}

// ack sends the acknowledgement body Daraja expects.
func ack(w http.ResponseWriter) {
	handler.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"ResultCode": 0,
		"ResultDesc": "Accepted",
	})
}
