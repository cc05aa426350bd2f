package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/teranga-kitchen/api/internal/domain"
	"github.com/teranga-kitchen/api/internal/platform/httpx"
	"github.com/teranga-kitchen/api/internal/services"
)

const maxSubmitOrderBodySize = 64 * 1024

// Stable machine-readable error codes surfaced by the order endpoints.
const (
	errorCodeValidationFailed   = "ValidationFailed"
	errorCodeCartRejected       = "CartRejected"
	errorCodePersistenceFailed  = "PersistenceFailed"
	errorCodeOrderNotFound      = "NotFound"
	errorCodeIllegalTransition  = "IllegalTransition"
	errorCodeOrderConflict      = "Conflict"
	errorCodeRateLimited        = "rate_limited"
	errorCodeInvalidRequest     = "invalid_request"
	errorCodeServiceUnavailable = "order_service_unavailable"
)

// OrderHandlers exposes the storefront order endpoints: submission and the
// confirmation-page lookup.
type OrderHandlers struct {
	orders  services.OrderService
	limiter rateLimiter
}

// OrderHandlersOption customises order handler construction.
type OrderHandlersOption func(*OrderHandlers)

// WithOrderRateLimiter throttles order submission per client address.
func WithOrderRateLimiter(limiter rateLimiter) OrderHandlersOption {
	return func(h *OrderHandlers) {
		h.limiter = limiter
	}
}

// WithOrderRateLimit throttles order submission to limit requests per window
// for each client address. A non-positive limit disables throttling.
func WithOrderRateLimit(limit int, window time.Duration) OrderHandlersOption {
	return func(h *OrderHandlers) {
		h.limiter = newSimpleRateLimiter(limit, window, time.Now)
	}
}

// NewOrderHandlers constructs a new OrderHandlers instance.
func NewOrderHandlers(orders services.OrderService, opts ...OrderHandlersOption) *OrderHandlers {
	h := &OrderHandlers{orders: orders}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Routes registers the /orders endpoints.
func (h *OrderHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/", h.submitOrder)
	r.Get("/{orderID}", h.getOrder)
}

type submitOrderRequest struct {
	CustomerName    string                 `json:"customerName"`
	CustomerPhone   string                 `json:"customerPhone"`
	CustomerEmail   string                 `json:"customerEmail"`
	OrderType       string                 `json:"orderType"`
	DeliveryAddress string                 `json:"deliveryAddress"`
	DeliveryZone    string                 `json:"deliveryZone"`
	PaymentMethod   string                 `json:"paymentMethod"`
	Notes           string                 `json:"notes"`
	Items           []submitOrderLineInput `json:"items"`
}

type submitOrderLineInput struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	Quantity int    `json:"quantity"`
}

func (h *OrderHandlers) submitOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError(errorCodeServiceUnavailable, "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	if h.limiter != nil && !h.limiter.Allow(clientKey(r)) {
		httpx.WriteError(ctx, w, httpx.NewError(errorCodeRateLimited, "too many requests, retry later", http.StatusTooManyRequests))
		return
	}

	body, err := readLimitedBody(r, maxSubmitOrderBodySize)
	if err != nil {
		switch {
		case errors.Is(err, errBodyTooLarge):
			httpx.WriteError(ctx, w, httpx.NewError("payload_too_large", "request body exceeds allowed size", http.StatusRequestEntityTooLarge))
		default:
			httpx.WriteError(ctx, w, httpx.NewError(errorCodeInvalidRequest, "request body is required", http.StatusBadRequest))
		}
		return
	}

	var req submitOrderRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError(errorCodeInvalidRequest, "invalid JSON body", http.StatusBadRequest))
		return
	}

	lines := make([]services.CartLine, 0, len(req.Items))
	for _, item := range req.Items {
		lines = append(lines, services.CartLine{
			CatalogID:     strings.TrimSpace(item.ID),
			ItemType:      domain.CatalogItemType(strings.TrimSpace(item.Type)),
			DeclaredName:  strings.TrimSpace(item.Name),
			DeclaredPrice: item.Price,
			Quantity:      item.Quantity,
		})
	}

	order, err := h.orders.SubmitOrder(ctx, services.SubmitOrderCommand{
		CustomerName:    req.CustomerName,
		CustomerPhone:   req.CustomerPhone,
		CustomerEmail:   req.CustomerEmail,
		OrderType:       req.OrderType,
		DeliveryAddress: req.DeliveryAddress,
		DeliveryZone:    req.DeliveryZone,
		PaymentMethod:   req.PaymentMethod,
		Notes:           req.Notes,
		Lines:           lines,
	})
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusCreated, orderResponse{Order: buildOrderPayload(order)})
}

func (h *OrderHandlers) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError(errorCodeServiceUnavailable, "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	if orderID == "" {
		httpx.WriteError(ctx, w, httpx.NewError(errorCodeInvalidRequest, "order id is required", http.StatusBadRequest))
		return
	}

	order, err := h.orders.GetOrder(ctx, orderID)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, orderResponse{Order: buildOrderPayload(order)})
}

type orderResponse struct {
	Order orderPayload `json:"order"`
}

type orderPayload struct {
	ID              string             `json:"id"`
	OrderNumber     string             `json:"orderNumber"`
	CustomerName    string             `json:"customerName"`
	CustomerPhone   string             `json:"customerPhone"`
	CustomerEmail   string             `json:"customerEmail,omitempty"`
	OrderType       string             `json:"orderType"`
	DeliveryAddress string             `json:"deliveryAddress,omitempty"`
	DeliveryZone    string             `json:"deliveryZone,omitempty"`
	PaymentMethod   string             `json:"paymentMethod"`
	Status          string             `json:"status"`
	Subtotal        int64              `json:"subtotal"`
	DeliveryFee     int64              `json:"deliveryFee"`
	TotalAmount     int64              `json:"totalAmount"`
	Notes           string             `json:"notes,omitempty"`
	Items           []orderLinePayload `json:"items"`
	CreatedAt       string             `json:"createdAt"`
	UpdatedAt       string             `json:"updatedAt,omitempty"`
}

type orderLinePayload struct {
	ID        string `json:"id"`
	ItemType  string `json:"itemType"`
	ItemID    string `json:"itemId"`
	ItemName  string `json:"itemName"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unitPrice"`
	Subtotal  int64  `json:"subtotal"`
}

func buildOrderPayload(order services.Order) orderPayload {
	payload := orderPayload{
		ID:              order.ID,
		OrderNumber:     order.OrderNumber,
		CustomerName:    order.CustomerName,
		CustomerPhone:   order.CustomerPhone,
		CustomerEmail:   order.CustomerEmail,
		OrderType:       string(order.OrderType),
		DeliveryAddress: order.DeliveryAddress,
		DeliveryZone:    string(order.DeliveryZone),
		PaymentMethod:   string(order.PaymentMethod),
		Status:          string(order.Status),
		Subtotal:        order.Subtotal,
		DeliveryFee:     order.DeliveryFee,
		TotalAmount:     order.TotalAmount,
		Notes:           order.Notes,
		Items:           make([]orderLinePayload, 0, len(order.Lines)),
		CreatedAt:       formatTime(order.CreatedAt),
		UpdatedAt:       formatTime(order.UpdatedAt),
	}

	for _, line := range order.Lines {
		payload.Items = append(payload.Items, orderLinePayload{
			ID:        line.ID,
			ItemType:  string(line.ItemType),
			ItemID:    line.ItemID,
			ItemName:  line.ItemName,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
			Subtotal:  line.Subtotal,
		})
	}

	return payload
}

func writeOrderError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}

	var validationErr *services.ValidationError
	if errors.As(err, &validationErr) {
		fields := make(map[string]any, len(validationErr.Fields))
		for field, message := range validationErr.Fields {
			fields[field] = message
		}
		httpx.WriteError(ctx, w, httpx.NewError(errorCodeValidationFailed, "order validation failed", http.StatusUnprocessableEntity).
			WithDetails(map[string]any{"fields": fields}))
		return
	}

	var rejection *services.CartRejectionError
	if errors.As(err, &rejection) {
		details := map[string]any{"reason": rejection.Reason}
		if rejection.ItemID != "" {
			details["itemId"] = rejection.ItemID
		}
		httpx.WriteError(ctx, w, httpx.NewError(errorCodeCartRejected, "cart was rejected", http.StatusUnprocessableEntity).
			WithDetails(details))
		return
	}

	switch {
	case errors.Is(err, services.ErrOrderInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError(errorCodeInvalidRequest, err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrOrderNotFound):
		httpx.WriteError(ctx, w, httpx.NewError(errorCodeOrderNotFound, "order not found", http.StatusNotFound))
	case errors.Is(err, services.ErrOrderInvalidState):
		httpx.WriteError(ctx, w, httpx.NewError(errorCodeIllegalTransition, err.Error(), http.StatusConflict))
	case errors.Is(err, services.ErrOrderConflict):
		httpx.WriteError(ctx, w, httpx.NewError(errorCodeOrderConflict, err.Error(), http.StatusConflict))
	case errors.Is(err, services.ErrOrderPersistence):
		httpx.WriteError(ctx, w, httpx.NewError(errorCodePersistenceFailed, "order could not be saved", http.StatusInternalServerError))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("order_error", "failed to process order request", http.StatusInternalServerError))
	}
}

func clientKey(r *http.Request) string {
	if r == nil {
		return ""
	}
	host := strings.TrimSpace(r.RemoteAddr)
	if idx := strings.LastIndex(host, ":"); idx > 0 {
		host = host[:idx]
	}
	return host
}
