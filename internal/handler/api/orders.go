package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Codingbot456/trendwear/internal/domain"
	"github.com/Codingbot456/trendwear/internal/handler"
)

// OrderHandler serves the order lifecycle endpoints under /api/orders.
type OrderHandler struct {
	service domain.OrderService
	logger  *slog.Logger
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(service domain.OrderService, logger *slog.Logger) *OrderHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &OrderHandler{
		service: service,
		logger:  logger,
	}
}

type createOrderItemRequest struct {
	ProductID     int64    `json:"product_id"`
	Name          string   `json:"name"`
	Price         int64    `json:"price"`
	Quantity      int32    `json:"quantity"`
	SubtotalPrice int64    `json:"subtotal_price"`
	SelectedColor *string  `json:"selected_color"`
	SelectedSizes []string `json:"selected_sizes"`
	ImageURL      *string  `json:"image_url"`
}

type createOrderRequest struct {
	UserID      *int64                   `json:"user_id"`
	UserName    string                   `json:"user_name"`
	Email       string                   `json:"email"`
	PhoneNumber string                   `json:"phone_number"`
	Address     string                   `json:"address"`
	City        string                   `json:"city"`
	State       string                   `json:"state"`
	ZipCode     string                   `json:"zip_code"`
	CountyID    int32                    `json:"county_id"`
	OrderDate   *time.Time               `json:"order_date"`
	Items       []createOrderItemRequest `json:"items"`
}

func (req *createOrderRequest) validate() error {
	var err error
	if req.UserName == "" {
		err = appendFieldError(err, "user_name", "user_name is required")
	}
	if req.Email == "" {
		err = appendFieldError(err, "email", "email is required")
	}
	if req.PhoneNumber == "" {
		err = appendFieldError(err, "phone_number", "phone_number is required")
	}
	if req.Address == "" {
		err = appendFieldError(err, "address", "address is required")
	}
	if req.CountyID <= 0 {
		err = appendFieldError(err, "county_id", "county_id is required")
	}
	if len(req.Items) == 0 {
		err = appendFieldError(err, "items", "at least one item is required")
	}
	return err
}

func appendFieldError(err error, field, message string) error {
	if err == nil {
		return domain.NewValidationError("order.create", field, message)
	}
	return domain.AddFieldError(err, field, message)
}

// Create handles POST /api/orders. The total is recomputed server-side;
// a client-submitted total_price is ignored.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handler.ErrorResponse(w, r, domain.Invalid("order.create", "invalid JSON body"))
		return
	}

	if err := req.validate(); err != nil {
		handler.ValidationErrorResponse(w, r, err)
		return
	}

	orderDate := time.Now().UTC()
	if req.OrderDate != nil {
		orderDate = *req.OrderDate
	}

	order := domain.NewOrder{
		UserID:      req.UserID,
		UserName:    req.UserName,
		Email:       req.Email,
		PhoneNumber: req.PhoneNumber,
		Address:     req.Address,
		City:        req.City,
		State:       req.State,
		ZipCode:     req.ZipCode,
		CountyID:    req.CountyID,
		OrderDate:   orderDate,
	}
	for _, item := range req.Items {
		order.Items = append(order.Items, domain.NewOrderItem{
			ProductID:     item.ProductID,
			Name:          item.Name,
			Price:         item.Price,
			Quantity:      item.Quantity,
			Subtotal:      item.SubtotalPrice,
			SelectedColor: item.SelectedColor,
			SelectedSizes: item.SelectedSizes,
			ImageURL:      item.ImageURL,
		})
	}

	orderID, err := h.service.CreateOrder(r.Context(), order)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	h.logger.Info("order created", "order_id", orderID, "items", len(order.Items))
	handler.RespondJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "Order created successfully",
		"orderId": orderID,
	})
}

// List handles GET /api/orders.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	orders, err := h.service.ListOrders(r.Context())
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.RespondJSON(w, http.StatusOK, orders)
}

// ListUserOrders handles GET /api/orders/user-orders?userId=N.
func (h *OrderHandler) ListUserOrders(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("userId")
	userID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || userID <= 0 {
		handler.ErrorResponse(w, r, domain.Invalid("order.list_user", "userId must be a positive integer"))
		return
	}

	orders, err := h.service.ListUserOrders(r.Context(), userID)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.RespondJSON(w, http.StatusOK, orders)
}

type updateStatusRequest struct {
	OrderID   int64  `json:"order_id"`
	NewStatus string `json:"new_status"`
}

// UpdateStatus handles PUT /api/orders/status.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handler.ErrorResponse(w, r, domain.Invalid("order.update_status", "invalid JSON body"))
		return
	}
	if req.OrderID <= 0 {
		handler.ErrorResponse(w, r, domain.Invalid("order.update_status", "order_id must be a positive integer"))
		return
	}

	status, err := domain.ParseOrderStatus(req.NewStatus)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	if err := h.service.UpdateStatus(r.Context(), req.OrderID, status); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	h.logger.Info("order status updated", "order_id", req.OrderID, "new_status", status)
	handler.RespondJSON(w, http.StatusOK, map[string]string{
		"message": "Order status updated successfully",
	})
}

// ListCounties handles GET /api/orders/counties.
func (h *OrderHandler) ListCounties(w http.ResponseWriter, r *http.Request) {
	counties, err := h.service.ListCounties(r.Context())
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.RespondJSON(w, http.StatusOK, counties)
}
