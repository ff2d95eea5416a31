package postgres

import (
	"encoding/json"
	"time"

	"github.com/Codingbot456/trendwear/internal/domain"
)

// orderRow is one flat row of the orders/counties/order_items left join.
// Item columns are pointers: an order with no line items still produces
// one row, with every item column NULL.
type orderRow struct {
	ID                 int64
	UserID             *int64
	UserName           string
	Email              string
	PhoneNumber        string
	Address            string
	City               string
	State              string
	ZipCode            string
	CountyID           int32
	TotalPrice         int64
	OrderDate          time.Time
	Status             domain.OrderStatus
	PaymentStatus      *domain.PaymentStatus
	PaymentDate        *time.Time
	PaymentReference   *string
	MpesaReceiptNumber *string
	TransactionDate    *string
	PayerPhoneNumber   *string

	CountyName  *string
	ShippingFee *int64

	ItemID        *int64
	ItemProductID *int64
	ItemName      *string
	ItemPrice     *int64
	ItemQuantity  *int32
	ItemSubtotal  *int64
	ItemColor     *string
	ItemSizes     []byte
	ItemImageURL  *string
}

// groupOrderRows folds the flat join back into one nested record per
// order. Grouping keys strictly on order id, so the result does not
// depend on row arrival order; orders with zero line items keep an empty
// items slice rather than being dropped.
func groupOrderRows(rows []orderRow) ([]domain.OrderDetail, error) {
	byID := make(map[int64]*domain.OrderDetail)
	var ordered []*domain.OrderDetail

	for _, r := range rows {
		detail, ok := byID[r.ID]
		if !ok {
			detail = &domain.OrderDetail{
				Order: domain.Order{
					ID:                 r.ID,
					UserID:             r.UserID,
					UserName:           r.UserName,
					Email:              r.Email,
					PhoneNumber:        r.PhoneNumber,
					Address:            r.Address,
					City:               r.City,
					State:              r.State,
					ZipCode:            r.ZipCode,
					CountyID:           r.CountyID,
					TotalPrice:         r.TotalPrice,
					OrderDate:          r.OrderDate,
					Status:             r.Status,
					PaymentStatus:      r.PaymentStatus,
					PaymentDate:        r.PaymentDate,
					PaymentReference:   r.PaymentReference,
					MpesaReceiptNumber: r.MpesaReceiptNumber,
					TransactionDate:    r.TransactionDate,
					PayerPhoneNumber:   r.PayerPhoneNumber,
				},
				Items: make([]domain.OrderItem, 0),
			}
			if r.CountyName != nil {
				detail.County = *r.CountyName
			}
			if r.ShippingFee != nil {
				detail.ShippingFee = *r.ShippingFee
			}
			byID[r.ID] = detail
			ordered = append(ordered, detail)
		}

		// NULL item columns mean the left join found no line item.
		if r.ItemID == nil {
			continue
		}

		item := domain.OrderItem{
			ID:            *r.ItemID,
			OrderID:       r.ID,
			ProductID:     derefInt64(r.ItemProductID),
			Name:          derefString(r.ItemName),
			Price:         derefInt64(r.ItemPrice),
			Quantity:      derefInt32(r.ItemQuantity),
			SubtotalPrice: derefInt64(r.ItemSubtotal),
			SelectedColor: r.ItemColor,
			ImageURL:      r.ItemImageURL,
		}
		if len(r.ItemSizes) > 0 {
			if err := json.Unmarshal(r.ItemSizes, &item.SelectedSizes); err != nil {
				return nil, domain.Internal(err, "order.group", "failed to decode selected sizes")
			}
		}
		detail.Items = append(detail.Items, item)
	}

	result := make([]domain.OrderDetail, len(ordered))
	for i, d := range ordered {
		result[i] = *d
	}
	return result, nil
}

func derefInt64(p *int64) int64 {
	if p == nil {
		return 0
	}
	return *p
}

func derefInt32(p *int32) int32 {
	if p == nil {
		return 0
	}
	return *p
}

func derefString(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
