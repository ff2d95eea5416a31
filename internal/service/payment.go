package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Codingbot456/trendwear/internal/domain"
	"github.com/Codingbot456/trendwear/internal/mpesa"
	"github.com/Codingbot456/trendwear/internal/telemetry"
)

// PaymentStore is the slice of the order store the payment flow writes:
// the correlation id at initiation, the payment fields at reconciliation.
type PaymentStore interface {
	// SetPaymentReference records the gateway correlation id on an order.
	SetPaymentReference(ctx context.Context, orderID int64, reference string) error

	// ApplyPaymentResult writes the callback outcome onto the order
	// matched by payment_reference. Returns false when nothing matched.
	ApplyPaymentResult(ctx context.Context, cb domain.PaymentCallback, paidAt time.Time) (bool, error)
}

// Gateway abstracts the Daraja client for testing.
type Gateway interface {
	AccessToken(ctx context.Context) (string, error)
	STKPush(ctx context.Context, token, phoneNumber string, amount int64) (*mpesa.STKPushResponse, error)
	RegisterC2BURLs(ctx context.Context, token string) error
}

// PaymentService composes the gateway client and the order store into
// the initiation + reconciliation protocol. Initiation persists the
// correlation id before returning; reconciliation is idempotent and
// tolerates callbacks that match nothing.
type PaymentService struct {
	store   PaymentStore
	gateway Gateway
	logger  *slog.Logger

	now func() time.Time
}

// Compile-time check that PaymentService implements domain.PaymentService.
var _ domain.PaymentService = (*PaymentService)(nil)

// NewPaymentService creates a payment service.
func NewPaymentService(store PaymentStore, gateway Gateway, logger *slog.Logger) *PaymentService {
	if logger == nil {
		logger = slog.Default()
	}
	return &PaymentService{
		store:   store,
		gateway: gateway,
		logger:  logger,
		now:     time.Now,
	}
}

// AccessToken exchanges gateway credentials for a bearer token.
func (s *PaymentService) AccessToken(ctx context.Context) (string, error) {
	token, err := s.gateway.AccessToken(ctx)
	if err != nil {
		return "", mapGatewayError(err, "payment.access_token")
	}
	return token, nil
}

// InitiateSTKPush dispatches a payment prompt for the order and persists
// the returned CheckoutRequestID as the order's payment_reference. The
// reference must land before the asynchronous callback can be matched,
// so a persistence failure here is surfaced as an error even though the
// prompt was already dispatched.
func (s *PaymentService) InitiateSTKPush(ctx context.Context, params domain.STKPushParams) (*domain.STKPushResult, error) {
	if params.OrderID <= 0 {
		return nil, domain.Invalid("payment.stkpush", "order id is required")
	}
	if params.PhoneNumber == "" {
		return nil, domain.Invalid("payment.stkpush", "phone number is required")
	}
	if params.Amount <= 0 {
		return nil, domain.Invalid("payment.stkpush", "amount must be positive")
	}

	token, err := s.gateway.AccessToken(ctx)
	if err != nil {
		if telemetry.Business != nil {
			telemetry.Business.PaymentInitFailed.WithLabelValues("auth").Inc()
		}
		return nil, mapGatewayError(err, "payment.stkpush")
	}

	resp, err := s.gateway.STKPush(ctx, token, params.PhoneNumber, params.Amount)
	if err != nil {
		if telemetry.Business != nil {
			telemetry.Business.PaymentInitFailed.WithLabelValues("gateway").Inc()
		}
		return nil, mapGatewayError(err, "payment.stkpush")
	}

	if err := s.store.SetPaymentReference(ctx, params.OrderID, resp.CheckoutRequestID); err != nil {
		// The prompt is already on the payer's device but the callback
		// will never match. Needs manual reconciliation.
		s.logger.Error("payment reference not persisted after prompt dispatch",
			"order_id", params.OrderID,
			"checkout_request_id", resp.CheckoutRequestID,
			"error", err,
		)
		if telemetry.Business != nil {
			telemetry.Business.PaymentInitFailed.WithLabelValues("store").Inc()
		}
		return nil, err
	}

	s.logger.Info("payment prompt dispatched",
		"order_id", params.OrderID,
		"checkout_request_id", resp.CheckoutRequestID,
		"amount", params.Amount,
	)
	if telemetry.Business != nil {
		telemetry.Business.PaymentsInitiated.Inc()
	}

	return &domain.STKPushResult{
		MerchantRequestID: resp.MerchantRequestID,
		CheckoutRequestID: resp.CheckoutRequestID,
		ResponseCode:      resp.ResponseCode,
		CustomerMessage:   resp.CustomerMessage,
	}, nil
}

// RegisterC2BURLs registers the callback URLs with the gateway.
func (s *PaymentService) RegisterC2BURLs(ctx context.Context) error {
	token, err := s.gateway.AccessToken(ctx)
	if err != nil {
		return mapGatewayError(err, "payment.register_urls")
	}
	if err := s.gateway.RegisterC2BURLs(ctx, token); err != nil {
		return mapGatewayError(err, "payment.register_urls")
	}
	return nil
}

// ApplyCallback reconciles an asynchronous gateway result with the order
// it correlates to. Replays are harmless: the update sets fields by
// value, so applying the same event twice leaves the same final state.
// An event matching no order is logged as an anomaly and swallowed; the
// gateway must still be acknowledged or it will retry a callback that
// can never match.
func (s *PaymentService) ApplyCallback(ctx context.Context, cb domain.PaymentCallback) error {
	if telemetry.Business != nil {
		telemetry.Business.CallbacksReceived.Inc()
	}

	matched, err := s.store.ApplyPaymentResult(ctx, cb, s.now())
	if err != nil {
		return err
	}

	if !matched {
		s.logger.Warn("payment callback matched no order",
			"checkout_request_id", cb.CheckoutRequestID,
			"result_code", cb.ResultCode,
			"result_desc", cb.ResultDesc,
		)
		if telemetry.Business != nil {
			telemetry.Business.CallbacksUnmatched.Inc()
		}
		return nil
	}

	status := domain.PaymentStatusFromResultCode(cb.ResultCode)
	s.logger.Info("payment callback applied",
		"checkout_request_id", cb.CheckoutRequestID,
		"payment_status", string(status),
		"receipt", cb.MpesaReceiptNumber,
	)
	if telemetry.Business != nil {
		if status == domain.PaymentStatusPaid {
			telemetry.Business.PaymentsSucceeded.Inc()
		} else {
			telemetry.Business.PaymentsFailed.Inc()
		}
	}

	return nil
}

// mapGatewayError converts mpesa client errors into domain errors so
// handlers can pick the right HTTP status.
func mapGatewayError(err error, op string) error {
	switch {
	case errors.Is(err, mpesa.ErrAuthFailed):
		return domain.WrapError(err, domain.EPAYMENT, op, "payment gateway authentication failed")
	case errors.Is(err, mpesa.ErrRequestFailed):
		return domain.WrapError(err, domain.EPAYMENT, op, "payment request was not accepted")
	default:
		return domain.Internal(err, op, "payment gateway call failed")
	}
}
