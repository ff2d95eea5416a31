package service

import (
	"context"
	"testing"
	"time"

	"github.com/Codingbot456/trendwear/internal/domain"
	"github.com/Codingbot456/trendwear/internal/mpesa"
	"github.com/stretchr/testify/assert"
)

// fakeStore records payment writes in memory.
type fakeStore struct {
	references map[int64]string
	applied    []domain.PaymentCallback
	refErr     error
	matched    bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{references: make(map[int64]string), matched: true}
}

func (f *fakeStore) SetPaymentReference(ctx context.Context, orderID int64, reference string) error {
	if f.refErr != nil {
		return f.refErr
	}
	f.references[orderID] = reference
	return nil
}

func (f *fakeStore) ApplyPaymentResult(ctx context.Context, cb domain.PaymentCallback, paidAt time.Time) (bool, error) {
	f.applied = append(f.applied, cb)
	return f.matched, nil
}

// fakeGateway returns canned gateway responses.
type fakeGateway struct {
	tokenErr error
	pushErr  error
	pushed   []int64
}

func (f *fakeGateway) AccessToken(ctx context.Context) (string, error) {
	if f.tokenErr != nil {
		return "", f.tokenErr
	}
	return "token-123", nil
}

func (f *fakeGateway) STKPush(ctx context.Context, token, phoneNumber string, amount int64) (*mpesa.STKPushResponse, error) {
	if f.pushErr != nil {
		return nil, f.pushErr
	}
	f.pushed = append(f.pushed, amount)
	return &mpesa.STKPushResponse{
		MerchantRequestID: "mr-1",
		CheckoutRequestID: "ws_CO_ABC123",
		ResponseCode:      "0",
		CustomerMessage:   "Success. Request accepted for processing",
	}, nil
}

func (f *fakeGateway) RegisterC2BURLs(ctx context.Context, token string) error {
	return nil
}

func TestInitiateSTKPush_PersistsReference(t *testing.T) {
	store := newFakeStore()
	svc := NewPaymentService(store, &fakeGateway{}, nil)

	result, err := svc.InitiateSTKPush(context.Background(), domain.STKPushParams{
		OrderID:     42,
		PhoneNumber: "254712345678",
		Amount:      1500,
	})
	assert.NoError(t, err)
	assert.Equal(t, "ws_CO_ABC123", result.CheckoutRequestID)

	// The correlation id must be on the order before the callback fires.
	assert.Equal(t, "ws_CO_ABC123", store.references[42])
}

func TestInitiateSTKPush_Validation(t *testing.T) {
	svc := NewPaymentService(newFakeStore(), &fakeGateway{}, nil)

	cases := []domain.STKPushParams{
		{OrderID: 0, PhoneNumber: "254712345678", Amount: 100},
		{OrderID: 1, PhoneNumber: "", Amount: 100},
		{OrderID: 1, PhoneNumber: "254712345678", Amount: 0},
	}
	for _, params := range cases {
		_, err := svc.InitiateSTKPush(context.Background(), params)
		assert.Equal(t, domain.EINVALID, domain.ErrorCode(err), "params %+v", params)
	}
}

func TestInitiateSTKPush_AuthFailure(t *testing.T) {
	store := newFakeStore()
	svc := NewPaymentService(store, &fakeGateway{tokenErr: mpesa.ErrAuthFailed}, nil)

	_, err := svc.InitiateSTKPush(context.Background(), domain.STKPushParams{
		OrderID: 1, PhoneNumber: "254712345678", Amount: 100,
	})
	assert.Equal(t, domain.EPAYMENT, domain.ErrorCode(err))
	assert.Empty(t, store.references)
}

func TestInitiateSTKPush_GatewayFailure(t *testing.T) {
	store := newFakeStore()
	svc := NewPaymentService(store, &fakeGateway{pushErr: mpesa.ErrRequestFailed}, nil)

	_, err := svc.InitiateSTKPush(context.Background(), domain.STKPushParams{
		OrderID: 1, PhoneNumber: "254712345678", Amount: 100,
	})
	assert.Equal(t, domain.EPAYMENT, domain.ErrorCode(err))
	assert.Empty(t, store.references)
}

func TestInitiateSTKPush_ReferencePersistFailure(t *testing.T) {
	store := newFakeStore()
	store.refErr = domain.NotFound("order.set_payment_reference", "order", "1")
	svc := NewPaymentService(store, &fakeGateway{}, nil)

	_, err := svc.InitiateSTKPush(context.Background(), domain.STKPushParams{
		OrderID: 1, PhoneNumber: "254712345678", Amount: 100,
	})
	assert.Error(t, err)
	assert.Equal(t, domain.ENOTFOUND, domain.ErrorCode(err))
}

func TestApplyCallback_Matched(t *testing.T) {
	store := newFakeStore()
	svc := NewPaymentService(store, &fakeGateway{}, nil)

	cb := domain.PaymentCallback{
		CheckoutRequestID:  "ws_CO_ABC123",
		ResultCode:         0,
		MpesaReceiptNumber: "R1",
	}
	assert.NoError(t, svc.ApplyCallback(context.Background(), cb))
	assert.Len(t, store.applied, 1)
	assert.Equal(t, cb, store.applied[0])
}

func TestApplyCallback_Replay(t *testing.T) {
	store := newFakeStore()
	svc := NewPaymentService(store, &fakeGateway{}, nil)

	cb := domain.PaymentCallback{CheckoutRequestID: "ws_CO_ABC123", ResultCode: 0}

	// Gateways may deliver the same event more than once; both
	// applications must succeed and carry identical values.
	assert.NoError(t, svc.ApplyCallback(context.Background(), cb))
	assert.NoError(t, svc.ApplyCallback(context.Background(), cb))
	assert.Len(t, store.applied, 2)
	assert.Equal(t, store.applied[0], store.applied[1])
}

func TestApplyCallback_UnmatchedIsNotAnError(t *testing.T) {
	store := newFakeStore()
	store.matched = false
	svc := NewPaymentService(store, &fakeGateway{}, nil)

	err := svc.ApplyCallback(context.Background(), domain.PaymentCallback{
		CheckoutRequestID: "ws_CO_UNKNOWN",
		ResultCode:        0,
	})
	assert.NoError(t, err)
}
