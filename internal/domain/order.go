package domain

import (
	"context"
	"time"
)

// OrderStatus is the fulfillment stage of an order, distinct from its
// payment status. Transitions are strictly linear:
//
//	pending -> in_transit -> shipped -> delivered
//
// delivered is terminal.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusInTransit OrderStatus = "in_transit"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
)

// ParseOrderStatus validates a client-supplied status string.
func ParseOrderStatus(s string) (OrderStatus, error) {
	switch OrderStatus(s) {
	case OrderStatusPending, OrderStatusInTransit, OrderStatusShipped, OrderStatusDelivered:
		return OrderStatus(s), nil
	}
	return "", Errorf(EINVALID, "order.status", "invalid status: %q", s)
}

// Next returns the single legal successor of s. The second return is
// false for delivered (terminal) and unknown statuses.
func (s OrderStatus) Next() (OrderStatus, bool) {
	switch s {
	case OrderStatusPending:
		return OrderStatusInTransit, true
	case OrderStatusInTransit:
		return OrderStatusShipped, true
	case OrderStatusShipped:
		return OrderStatusDelivered, true
	}
	return "", false
}

// CanTransitionTo reports whether target is the one legal successor of s.
// Skipping ahead, moving backward, and re-applying the current status are
// all illegal.
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	next, ok := s.Next()
	return ok && next == target
}

// PaymentStatus is the payment outcome recorded by the gateway callback.
type PaymentStatus string

const (
	PaymentStatusPaid   PaymentStatus = "paid"
	PaymentStatusFailed PaymentStatus = "failed"
)

// PaymentStatusFromResultCode maps a Daraja result code to a payment
// status. Zero means the payer completed the prompt; everything else
// (cancelled, timed out, insufficient funds) is a failure.
func PaymentStatusFromResultCode(code int) PaymentStatus {
	if code == 0 {
		return PaymentStatusPaid
	}
	return PaymentStatusFailed
}

// County is reference data mapping a shipping region to a flat fee.
// Managed externally; read-only here.
type County struct {
	ID          int32  `json:"id"`
	Name        string `json:"name"`
	ShippingFee int64  `json:"shipping_fee"`
}

// Order is the order header: buyer fields, the authoritative total and
// the two independent status fields. Amounts are whole Kenyan shillings.
type Order struct {
	ID          int64       `json:"id"`
	UserID      *int64      `json:"user_id,omitempty"`
	UserName    string      `json:"user_name"`
	Email       string      `json:"email"`
	PhoneNumber string      `json:"phone_number"`
	Address     string      `json:"address"`
	City        string      `json:"city"`
	State       string      `json:"state"`
	ZipCode     string      `json:"zip_code"`
	CountyID    int32       `json:"county_id"`
	TotalPrice  int64       `json:"total_price"`
	OrderDate   time.Time   `json:"order_date"`
	Status      OrderStatus `json:"current_status"`

	PaymentStatus      *PaymentStatus `json:"payment_status,omitempty"`
	PaymentDate        *time.Time     `json:"payment_date,omitempty"`
	PaymentReference   *string        `json:"payment_reference,omitempty"`
	MpesaReceiptNumber *string        `json:"mpesa_receipt_number,omitempty"`
	TransactionDate    *string        `json:"transaction_date,omitempty"`
	PayerPhoneNumber   *string        `json:"payer_phone_number,omitempty"`
}

// OrderItem is a point-in-time snapshot of one product line, decoupled
// from later catalog edits. Immutable once written.
type OrderItem struct {
	ID            int64    `json:"-"`
	OrderID       int64    `json:"-"`
	ProductID     int64    `json:"product_id"`
	Name          string   `json:"name"`
	Price         int64    `json:"price"`
	Quantity      int32    `json:"quantity"`
	SubtotalPrice int64    `json:"subtotal_price"`
	SelectedColor *string  `json:"selected_color,omitempty"`
	SelectedSizes []string `json:"selected_sizes,omitempty"`
	ImageURL      *string  `json:"image_url,omitempty"`
}

// OrderDetail is the nested view the query service reconstructs from the
// flat order/item/county join.
type OrderDetail struct {
	Order
	County      string      `json:"county"`
	ShippingFee int64       `json:"shipping_fee"`
	Items       []OrderItem `json:"items"`
}

// NewOrder are the caller-supplied fields for order creation. The total
// is computed server-side from the items plus the county shipping fee;
// any client-submitted total is ignored.
type NewOrder struct {
	UserID      *int64
	UserName    string
	Email       string
	PhoneNumber string
	Address     string
	City        string
	State       string
	ZipCode     string
	CountyID    int32
	OrderDate   time.Time
	Items       []NewOrderItem
}

// NewOrderItem is one submitted line. Subtotal must equal Price*Quantity;
// mismatches are rejected rather than trusted.
type NewOrderItem struct {
	ProductID     int64
	Name          string
	Price         int64
	Quantity      int32
	Subtotal      int64
	SelectedColor *string
	SelectedSizes []string
	ImageURL      *string
}

// OrderService is the order lifecycle: creation, queries, and the status
// machine.
type OrderService interface {
	// CreateOrder persists the header and all items atomically and
	// returns the new order id.
	CreateOrder(ctx context.Context, order NewOrder) (int64, error)

	// ListOrders returns every order with its items and county.
	ListOrders(ctx context.Context) ([]OrderDetail, error)

	// ListUserOrders returns orders belonging to one user.
	ListUserOrders(ctx context.Context, userID int64) ([]OrderDetail, error)

	// UpdateStatus advances an order to newStatus if that is the one
	// legal successor of its current status.
	UpdateStatus(ctx context.Context, orderID int64, newStatus OrderStatus) error

	// ListCounties returns the shipping-region reference data.
	ListCounties(ctx context.Context) ([]County, error)
}

// PaymentCallback is the asynchronous gateway notification applied as a
// state transition on the order it correlates to. Not persisted itself.
type PaymentCallback struct {
	MerchantRequestID  string
	CheckoutRequestID  string
	ResultCode         int
	ResultDesc         string
	Amount             int64
	MpesaReceiptNumber string
	TransactionDate    string
	PhoneNumber        string
}

// STKPushParams identifies the order being paid for and where to send
// the payment prompt.
type STKPushParams struct {
	OrderID     int64
	PhoneNumber string
	Amount      int64
}

// STKPushResult is the synchronous gateway acknowledgement. It confirms
// only that the prompt was dispatched; the payment outcome arrives later
// via the callback.
type STKPushResult struct {
	MerchantRequestID string
	CheckoutRequestID string
	ResponseCode      string
	CustomerMessage   string
}

// PaymentService initiates gateway payments and reconciles their
// asynchronous results.
type PaymentService interface {
	// AccessToken exchanges gateway credentials for a bearer token.
	AccessToken(ctx context.Context) (string, error)

	// InitiateSTKPush dispatches a payment prompt and records the
	// gateway correlation id on the order so the callback can match.
	InitiateSTKPush(ctx context.Context, params STKPushParams) (*STKPushResult, error)

	// RegisterC2BURLs registers confirmation/validation URLs with the
	// gateway (sandbox convenience).
	RegisterC2BURLs(ctx context.Context) error

	// ApplyCallback updates the matched order's payment fields. A
	// callback matching no order is logged as an anomaly, not an error.
	ApplyCallback(ctx context.Context, cb PaymentCallback) error
}
