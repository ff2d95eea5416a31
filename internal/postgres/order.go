package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Codingbot456/trendwear/internal/domain"
	"github.com/Codingbot456/trendwear/internal/pricing"
	"github.com/Codingbot456/trendwear/internal/telemetry"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of pgxpool.Pool the store needs. Injected explicitly;
// there is no package-level connection handle.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// OrderService implements domain.OrderService on PostgreSQL. It is the
// order-of-record: the header and its line items are written in one
// transaction, and status changes go through the transition rules.
type OrderService struct {
	db     DB
	pricer *pricing.Calculator
}

// Compile-time check that OrderService implements domain.OrderService.
var _ domain.OrderService = (*OrderService)(nil)

// NewOrderService creates a PostgreSQL-backed order service. The pricing
// calculator reads shipping fees from the counties table.
func NewOrderService(db DB) *OrderService {
	s := &OrderService{db: db}
	s.pricer = pricing.NewCalculator(countyFees{db: db})
	return s
}

// countyFees implements pricing.FeeLookup against the counties table.
type countyFees struct {
	db DB
}

func (f countyFees) ShippingFee(ctx context.Context, countyID int32) (int64, error) {
	var fee int64
	err := f.db.QueryRow(ctx, `SELECT shipping_fee FROM counties WHERE id = $1`, countyID).Scan(&fee)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, domain.Invalid("order.shipping_fee", fmt.Sprintf("invalid county id: %d", countyID))
		}
		return 0, domain.Internal(err, "order.shipping_fee", "failed to look up shipping fee")
	}
	return fee, nil
}

// CreateOrder computes the authoritative total and inserts the header
// plus every line item in a single transaction. Partial orders are never
// observable: if any item insert fails the header insert rolls back too.
func (s *OrderService) CreateOrder(ctx context.Context, order domain.NewOrder) (int64, error) {
	// Validates items and resolves the county before any write.
	total, err := s.pricer.Total(ctx, order.CountyID, order.Items)
	if err != nil {
		return 0, err
	}

	orderDate := order.OrderDate
	if orderDate.IsZero() {
		orderDate = time.Now()
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return 0, domain.Internal(err, "order.create", "failed to create order")
	}
	defer tx.Rollback(ctx)

	var orderID int64
	err = tx.QueryRow(ctx, `
		INSERT INTO orders (
			user_id, user_name, email, phone_number, address, city, state,
			zip_code, county_id, total_price, order_date, current_status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id`,
		order.UserID, order.UserName, order.Email, order.PhoneNumber,
		order.Address, order.City, order.State, order.ZipCode,
		order.CountyID, total, orderDate, domain.OrderStatusPending,
	).Scan(&orderID)
	if err != nil {
		return 0, domain.Internal(err, "order.create", "failed to create order")
	}

	for _, item := range order.Items {
		var sizes []byte
		if len(item.SelectedSizes) > 0 {
			sizes, err = json.Marshal(item.SelectedSizes)
			if err != nil {
				return 0, domain.Internal(err, "order.create", "failed to encode selected sizes")
			}
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO order_items (
				order_id, product_id, name, price, quantity, subtotal_price,
				selected_color, selected_sizes, image_url
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			orderID, item.ProductID, item.Name, item.Price, item.Quantity,
			item.Subtotal, item.SelectedColor, sizes, item.ImageURL,
		)
		if err != nil {
			return 0, domain.Internal(err, "order.create", "failed to create order")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		if telemetry.Business != nil {
			telemetry.Business.OrderCreationFailed.Inc()
		}
		return 0, domain.Internal(err, "order.create", "failed to create order")
	}

	if telemetry.Business != nil {
		telemetry.Business.OrdersCreated.Inc()
		telemetry.Business.OrderValue.Observe(float64(total))
		telemetry.Business.OrderItemCount.Observe(float64(len(order.Items)))
	}

	return orderID, nil
}

// UpdateStatus advances the order's fulfillment status. The current
// status is read under a row lock so concurrent updates serialize; a
// zero-row update after the read is treated as not-found rather than a
// crash (the order vanished between read and write).
func (s *OrderService) UpdateStatus(ctx context.Context, orderID int64, newStatus domain.OrderStatus) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return domain.Internal(err, "order.update_status", "failed to update order status")
	}
	defer tx.Rollback(ctx)

	var current domain.OrderStatus
	err = tx.QueryRow(ctx,
		`SELECT current_status FROM orders WHERE id = $1 FOR UPDATE`, orderID,
	).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.NotFound("order.update_status", "order", fmt.Sprintf("%d", orderID))
		}
		return domain.Internal(err, "order.update_status", "failed to read order status")
	}

	if !current.CanTransitionTo(newStatus) {
		if telemetry.Business != nil {
			telemetry.Business.IllegalTransitions.Inc()
		}
		return domain.Errorf(domain.EINVALID, "order.update_status",
			"illegal status transition from %s to %s", current, newStatus)
	}

	tag, err := tx.Exec(ctx,
		`UPDATE orders SET current_status = $1 WHERE id = $2`, newStatus, orderID)
	if err != nil {
		return domain.Internal(err, "order.update_status", "failed to update order status")
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFound("order.update_status", "order", fmt.Sprintf("%d", orderID))
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Internal(err, "order.update_status", "failed to update order status")
	}

	if telemetry.Business != nil {
		telemetry.Business.StatusTransitions.WithLabelValues(string(newStatus)).Inc()
	}

	return nil
}

const orderJoinQuery = `
	SELECT
		o.id, o.user_id, o.user_name, o.email, o.phone_number, o.address,
		o.city, o.state, o.zip_code, o.county_id, o.total_price,
		o.order_date, o.current_status, o.payment_status, o.payment_date,
		o.payment_reference, o.mpesa_receipt_number, o.transaction_date,
		o.payer_phone_number,
		c.name, c.shipping_fee,
		oi.id, oi.product_id, oi.name, oi.price, oi.quantity,
		oi.subtotal_price, oi.selected_color, oi.selected_sizes, oi.image_url
	FROM orders o
	LEFT JOIN counties c ON o.county_id = c.id
	LEFT JOIN order_items oi ON oi.order_id = o.id`

// ListOrders returns every order with its items and county, grouped from
// one flat join.
func (s *OrderService) ListOrders(ctx context.Context) ([]domain.OrderDetail, error) {
	rows, err := s.db.Query(ctx, orderJoinQuery+` ORDER BY o.id`)
	if err != nil {
		return nil, domain.Internal(err, "order.list", "failed to list orders")
	}
	defer rows.Close()

	return collectOrderRows(rows, "order.list")
}

// ListUserOrders returns orders scoped to one user, same shape as ListOrders.
func (s *OrderService) ListUserOrders(ctx context.Context, userID int64) ([]domain.OrderDetail, error) {
	rows, err := s.db.Query(ctx, orderJoinQuery+` WHERE o.user_id = $1 ORDER BY o.id`, userID)
	if err != nil {
		return nil, domain.Internal(err, "order.list_user", "failed to list user orders")
	}
	defer rows.Close()

	return collectOrderRows(rows, "order.list_user")
}

func collectOrderRows(rows pgx.Rows, op string) ([]domain.OrderDetail, error) {
	var flat []orderRow
	for rows.Next() {
		var r orderRow
		err := rows.Scan(
			&r.ID, &r.UserID, &r.UserName, &r.Email, &r.PhoneNumber, &r.Address,
			&r.City, &r.State, &r.ZipCode, &r.CountyID, &r.TotalPrice,
			&r.OrderDate, &r.Status, &r.PaymentStatus, &r.PaymentDate,
			&r.PaymentReference, &r.MpesaReceiptNumber, &r.TransactionDate,
			&r.PayerPhoneNumber,
			&r.CountyName, &r.ShippingFee,
			&r.ItemID, &r.ItemProductID, &r.ItemName, &r.ItemPrice, &r.ItemQuantity,
			&r.ItemSubtotal, &r.ItemColor, &r.ItemSizes, &r.ItemImageURL,
		)
		if err != nil {
			return nil, domain.Internal(err, op, "failed to scan order row")
		}
		flat = append(flat, r)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Internal(err, op, "failed to read order rows")
	}

	return groupOrderRows(flat)
}

// ListCounties returns the shipping-region reference data.
func (s *OrderService) ListCounties(ctx context.Context) ([]domain.County, error) {
	rows, err := s.db.Query(ctx, `SELECT id, name, shipping_fee FROM counties ORDER BY name`)
	if err != nil {
		return nil, domain.Internal(err, "county.list", "failed to list counties")
	}
	defer rows.Close()

	var counties []domain.County
	for rows.Next() {
		var c domain.County
		if err := rows.Scan(&c.ID, &c.Name, &c.ShippingFee); err != nil {
			return nil, domain.Internal(err, "county.list", "failed to scan county")
		}
		counties = append(counties, c)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Internal(err, "county.list", "failed to read counties")
	}

	return counties, nil
}

// SetPaymentReference records the gateway correlation id assigned at
// payment initiation. The callback reconciler matches on this value, so
// it must land before the callback can be applied.
func (s *OrderService) SetPaymentReference(ctx context.Context, orderID int64, reference string) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE orders SET payment_reference = $1 WHERE id = $2`, reference, orderID)
	if err != nil {
		return domain.Internal(err, "order.set_payment_reference", "failed to set payment reference")
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFound("order.set_payment_reference", "order", fmt.Sprintf("%d", orderID))
	}
	return nil
}

// ApplyPaymentResult writes the callback outcome onto the order matched
// by payment_reference. The write sets fields by value, so replaying the
// same callback leaves the order unchanged. Returns false when no order
// matches the correlation id.
func (s *OrderService) ApplyPaymentResult(ctx context.Context, cb domain.PaymentCallback, paidAt time.Time) (bool, error) {
	status := domain.PaymentStatusFromResultCode(cb.ResultCode)

	tag, err := s.db.Exec(ctx, `
		UPDATE orders
		SET payment_status = $1,
		    payment_date = $2,
		    mpesa_receipt_number = NULLIF($3, ''),
		    transaction_date = NULLIF($4, ''),
		    payer_phone_number = NULLIF($5, '')
		WHERE payment_reference = $6`,
		status, paidAt, cb.MpesaReceiptNumber, cb.TransactionDate,
		cb.PhoneNumber, cb.CheckoutRequestID,
	)
	if err != nil {
		return false, domain.Internal(err, "order.apply_payment", "failed to apply payment result")
	}

	return tag.RowsAffected() > 0, nil
}
