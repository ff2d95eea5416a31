package pricing

import (
	"context"
	"fmt"

	"github.com/Codingbot456/trendwear/internal/domain"
)

// FeeLookup resolves a county id to its flat shipping fee.
// Backed by the counties table in production.
type FeeLookup interface {
	// ShippingFee returns the fee for the county, or an EINVALID domain
	// error when the county does not resolve.
	ShippingFee(ctx context.Context, countyID int32) (int64, error)
}

// Calculator computes the authoritative order total: the sum of
// server-recomputed line subtotals plus the county shipping fee.
// Client-submitted subtotals are checked, never trusted.
type Calculator struct {
	fees FeeLookup
}

// NewCalculator creates a pricing calculator backed by the given fee lookup.
func NewCalculator(fees FeeLookup) *Calculator {
	return &Calculator{fees: fees}
}

// Ceilings on a single line. Far above any real catalog entry, low
// enough that price*quantity summed over any plausible item count stays
// clear of int64 overflow.
const (
	MaxUnitPrice = 10_000_000 // KES
	MaxQuantity  = 10_000
)

// Total validates the submitted line items and returns base + shipping.
// Each line's subtotal must equal price * quantity; a mismatch means the
// client tampered with or miscomputed the line and the whole order is
// rejected before any write.
func (c *Calculator) Total(ctx context.Context, countyID int32, items []domain.NewOrderItem) (int64, error) {
	if len(items) == 0 {
		return 0, domain.Invalid("pricing.total", "order must contain at least one item")
	}

	var base int64
	for i, item := range items {
		if item.Quantity <= 0 {
			return 0, domain.Errorf(domain.EINVALID, "pricing.total",
				"item %d: quantity must be positive", i)
		}
		if item.Quantity > MaxQuantity {
			return 0, domain.Errorf(domain.EINVALID, "pricing.total",
				"item %d: quantity exceeds limit of %d", i, MaxQuantity)
		}
		if item.Price < 0 {
			return 0, domain.Errorf(domain.EINVALID, "pricing.total",
				"item %d: price must not be negative", i)
		}
		if item.Price > MaxUnitPrice {
			return 0, domain.Errorf(domain.EINVALID, "pricing.total",
				"item %d: price exceeds limit of %d", i, MaxUnitPrice)
		}

		expected := item.Price * int64(item.Quantity)
		if item.Subtotal != expected {
			return 0, domain.Errorf(domain.EINVALID, "pricing.total",
				"item %d: subtotal %d does not match price %d x quantity %d",
				i, item.Subtotal, item.Price, item.Quantity)
		}
		base += expected
	}

	fee, err := c.fees.ShippingFee(ctx, countyID)
	if err != nil {
		return 0, err
	}

	return base + fee, nil
}

// StaticFees is an in-memory FeeLookup keyed by county id. Used in tests
// and local development without a database.
type StaticFees map[int32]int64

func (f StaticFees) ShippingFee(ctx context.Context, countyID int32) (int64, error) {
	fee, ok := f[countyID]
	if !ok {
		return 0, domain.Invalid("pricing.shipping_fee", fmt.Sprintf("invalid county id: %d", countyID))
	}
	return fee, nil
}
