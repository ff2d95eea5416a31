package postgres

import (
	"testing"
	"time"

	"github.com/Codingbot456/trendwear/internal/domain"
)

func strPtr(s string) *string { return &s }
func i64Ptr(v int64) *int64 { return &v }
func i32Ptr(v int32) *int32 { return &v }

func headerRow(orderID int64) orderRow {
	return orderRow{
		ID:          orderID,
		UserName:    "Wanjiku",
		Email:       "wanjiku@example.com",
		PhoneNumber: "254700000001",
		Address:     "Moi Avenue",
		City:        "Nairobi",
		State:       "Nairobi",
		ZipCode:     "00100",
		CountyID:    1,
		TotalPrice:  1500,
		OrderDate:   time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
		Status:      domain.OrderStatusPending,
		CountyName:  strPtr("Nairobi"),
		ShippingFee: i64Ptr(500),
	}
}

func itemRow(orderID, itemID, productID int64, name string, price int64, qty int32) orderRow {
	r := headerRow(orderID)
	r.ItemID = i64Ptr(itemID)
	r.ItemProductID = i64Ptr(productID)
	r.ItemName = strPtr(name)
	r.ItemPrice = i64Ptr(price)
	r.ItemQuantity = i32Ptr(qty)
	r.ItemSubtotal = i64Ptr(price * int64(qty))
	return r
}

func TestGroupOrderRows_Nests(t *testing.T) {
	rows := []orderRow{
		itemRow(1, 10, 100, "Denim Jacket", 1000, 1),
		itemRow(1, 11, 101, "Sneakers", 2500, 2),
		itemRow(2, 12, 102, "Hoodie", 1800, 1),
	}

	orders, err := groupOrderRows(rows)
	if err != nil {
		t.Fatalf("groupOrderRows failed: %v", err)
	}

	if len(orders) != 2 {
		t.Fatalf("got %d orders, want 2", len(orders))
	}
	if len(orders[0].Items) != 2 {
		t.Errorf("order 1: got %d items, want 2", len(orders[0].Items))
	}
	if len(orders[1].Items) != 1 {
		t.Errorf("order 2: got %d items, want 1", len(orders[1].Items))
	}
	if orders[0].County != "Nairobi" || orders[0].ShippingFee != 500 {
		t.Errorf("county not carried: %q fee %d", orders[0].County, orders[0].ShippingFee)
	}
	if orders[0].Items[1].SubtotalPrice != 5000 {
		t.Errorf("item subtotal = %d, want 5000", orders[0].Items[1].SubtotalPrice)
	}
}

func TestGroupOrderRows_RowOrderIndependent(t *testing.T) {
	// Interleave rows of two orders; grouping must key on order id only.
	rows := []orderRow{
		itemRow(2, 12, 102, "Hoodie", 1800, 1),
		itemRow(1, 10, 100, "Denim Jacket", 1000, 1),
		itemRow(2, 13, 103, "Cap", 600, 1),
		itemRow(1, 11, 101, "Sneakers", 2500, 2),
	}

	orders, err := groupOrderRows(rows)
	if err != nil {
		t.Fatalf("groupOrderRows failed: %v", err)
	}

	if len(orders) != 2 {
		t.Fatalf("got %d orders, want 2", len(orders))
	}
	for _, o := range orders {
		if len(o.Items) != 2 {
			t.Errorf("order %d: got %d items, want 2", o.ID, len(o.Items))
		}
	}
}

func TestGroupOrderRows_ZeroItemOrderKept(t *testing.T) {
	// A left-join row with NULL item columns: the order must appear with
	// an empty items collection, not be omitted.
	rows := []orderRow{
		headerRow(7),
		itemRow(8, 20, 200, "Scarf", 400, 1),
	}

	orders, err := groupOrderRows(rows)
	if err != nil {
		t.Fatalf("groupOrderRows failed: %v", err)
	}

	if len(orders) != 2 {
		t.Fatalf("got %d orders, want 2", len(orders))
	}

	var empty *domain.OrderDetail
	for i := range orders {
		if orders[i].ID == 7 {
			empty = &orders[i]
		}
	}
	if empty == nil {
		t.Fatal("zero-item order was omitted")
	}
	if empty.Items == nil {
		t.Error("items should be an empty slice, not nil")
	}
	if len(empty.Items) != 0 {
		t.Errorf("got %d items, want 0", len(empty.Items))
	}
}

func TestGroupOrderRows_SelectedSizes(t *testing.T) {
	r := itemRow(1, 10, 100, "Denim Jacket", 1000, 1)
	r.ItemSizes = []byte(`["M","L"]`)
	r.ItemColor = strPtr("indigo")

	orders, err := groupOrderRows([]orderRow{r})
	if err != nil {
		t.Fatalf("groupOrderRows failed: %v", err)
	}

	item := orders[0].Items[0]
	if len(item.SelectedSizes) != 2 || item.SelectedSizes[0] != "M" {
		t.Errorf("selected sizes = %v, want [M L]", item.SelectedSizes)
	}
	if item.SelectedColor == nil || *item.SelectedColor != "indigo" {
		t.Error("selected color not carried")
	}
}

func TestGroupOrderRows_Empty(t *testing.T) {
	orders, err := groupOrderRows(nil)
	if err != nil {
		t.Fatalf("groupOrderRows failed: %v", err)
	}
	if len(orders) != 0 {
		t.Errorf("got %d orders, want 0", len(orders))
	}
}
