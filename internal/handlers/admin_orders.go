package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/teranga-kitchen/api/internal/domain"
	"github.com/teranga-kitchen/api/internal/platform/auth"
	"github.com/teranga-kitchen/api/internal/platform/httpx"
	"github.com/teranga-kitchen/api/internal/platform/pagination"
	"github.com/teranga-kitchen/api/internal/services"
)

const (
	defaultOrderPageSize    = 20
	maxOrderPageSize        = 100
	maxStatusUpdateBodySize = 4 * 1024
	maxAdminCancelBodySize  = 4 * 1024
)

var knownStatusFilters = map[string]struct{}{
	string(domain.OrderStatusPending):   {},
	string(domain.OrderStatusConfirmed): {},
	string(domain.OrderStatusPreparing): {},
	string(domain.OrderStatusReady):     {},
	string(domain.OrderStatusDelivered): {},
	string(domain.OrderStatusCancelled): {},
}

type updateOrderStatusRequest struct {
	Status         string `json:"status"`
	Reason         string `json:"reason"`
	ExpectedStatus string `json:"expectedStatus"`
}

type cancelOrderRequest struct {
	Reason         string `json:"reason"`
	ExpectedStatus string `json:"expectedStatus"`
}

// AdminOrderHandlers exposes the staff console endpoints: listing orders and
// driving the status lifecycle.
type AdminOrderHandlers struct {
	authn  *auth.Authenticator
	orders services.OrderService
}

// NewAdminOrderHandlers constructs a new AdminOrderHandlers instance.
func NewAdminOrderHandlers(authn *auth.Authenticator, orders services.OrderService) *AdminOrderHandlers {
	return &AdminOrderHandlers{
		authn:  authn,
		orders: orders,
	}
}

// Routes registers the /admin/orders endpoints.
func (h *AdminOrderHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireAdminAuth(auth.RoleStaff, auth.RoleAdmin))
	}
	r.Route("/orders", func(group chi.Router) {
		group.Get("/", h.listOrders)
		group.Get("/{orderID}", h.getOrder)
		group.Patch("/{orderID}/status", h.updateStatus)
		group.Post("/{orderID}:cancel", h.cancelOrder)
	})
}

func (h *AdminOrderHandlers) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError(errorCodeServiceUnavailable, "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	query := r.URL.Query()
	statusFilters := parseFilterValues(query["status"])
	for _, status := range statusFilters {
		if _, ok := knownStatusFilters[status]; !ok {
			httpx.WriteError(ctx, w, httpx.NewError(errorCodeInvalidRequest, "status filter must be a valid order status", http.StatusBadRequest))
			return
		}
	}

	var dateRange domain.RangeQuery[time.Time]
	if raw := strings.TrimSpace(query.Get("created_after")); raw != "" {
		ts, err := parseTimeParam(raw)
		if err != nil {
			httpx.WriteError(ctx, w, httpx.NewError(errorCodeInvalidRequest, "created_after must be a valid RFC3339 timestamp", http.StatusBadRequest))
			return
		}
		dateRange.From = &ts
	}
	if raw := strings.TrimSpace(query.Get("created_before")); raw != "" {
		ts, err := parseTimeParam(raw)
		if err != nil {
			httpx.WriteError(ctx, w, httpx.NewError(errorCodeInvalidRequest, "created_before must be a valid RFC3339 timestamp", http.StatusBadRequest))
			return
		}
		dateRange.To = &ts
	}

	pageParams, err := pagination.FromRequest(r, pagination.Options{
		DefaultPageSize: defaultOrderPageSize,
		MaxPageSize:     maxOrderPageSize,
	})
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError(errorCodeInvalidRequest, paginationErrorMessage(err), http.StatusBadRequest))
		return
	}

	filter := services.OrderListFilter{
		Status:    statusFilters,
		DateRange: dateRange,
		Pagination: domain.Pagination{
			PageSize:  pageParams.PageSize,
			PageToken: pageParams.PageToken,
		},
	}

	page, err := h.orders.ListOrders(ctx, filter)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	items := make([]orderPayload, 0, len(page.Items))
	for _, order := range page.Items {
		items = append(items, buildOrderPayload(order))
	}

	writeJSONResponse(w, http.StatusOK, orderListResponse{
		Items:         items,
		NextPageToken: strings.TrimSpace(page.NextPageToken),
	})
}

func (h *AdminOrderHandlers) getOrder(w http.ResponseWriter, r *http.Request) {
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

func (h *AdminOrderHandlers) updateStatus(w http.ResponseWriter, r *http.Request) {
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

	body, err := readLimitedBody(r, maxStatusUpdateBodySize)
	if err != nil {
		writeBodyError(w, r, err)
		return
	}

	var req updateOrderStatusRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError(errorCodeInvalidRequest, "invalid JSON body", http.StatusBadRequest))
		return
	}

	target, ok := parseOrderStatus(req.Status)
	if !ok {
		httpx.WriteError(ctx, w, httpx.NewError(errorCodeInvalidRequest, "status must be a valid order status", http.StatusBadRequest))
		return
	}

	cmd := services.OrderStatusTransitionCommand{
		OrderID:      orderID,
		TargetStatus: target,
		Reason:       strings.TrimSpace(req.Reason),
	}
	if raw := strings.TrimSpace(req.ExpectedStatus); raw != "" {
		expected, ok := parseOrderStatus(raw)
		if !ok {
			httpx.WriteError(ctx, w, httpx.NewError(errorCodeInvalidRequest, "expectedStatus must be a valid order status", http.StatusBadRequest))
			return
		}
		cmd.ExpectedStatus = &expected
	}

	updated, err := h.orders.TransitionStatus(ctx, cmd)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, orderResponse{Order: buildOrderPayload(updated)})
}

func (h *AdminOrderHandlers) cancelOrder(w http.ResponseWriter, r *http.Request) {
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

	var req cancelOrderRequest
	body, err := readLimitedBody(r, maxAdminCancelBodySize)
	if err != nil && !errors.Is(err, errEmptyBody) {
		writeBodyError(w, r, err)
		return
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			httpx.WriteError(ctx, w, httpx.NewError(errorCodeInvalidRequest, "invalid JSON body", http.StatusBadRequest))
			return
		}
	}

	cmd := services.CancelOrderCommand{
		OrderID: orderID,
		Reason:  strings.TrimSpace(req.Reason),
	}
	if raw := strings.TrimSpace(req.ExpectedStatus); raw != "" {
		expected, ok := parseOrderStatus(raw)
		if !ok {
			httpx.WriteError(ctx, w, httpx.NewError(errorCodeInvalidRequest, "expectedStatus must be a valid order status", http.StatusBadRequest))
			return
		}
		cmd.ExpectedStatus = &expected
	}

	cancelled, err := h.orders.Cancel(ctx, cmd)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, orderResponse{Order: buildOrderPayload(cancelled)})
}

type orderListResponse struct {
	Items         []orderPayload `json:"items"`
	NextPageToken string         `json:"nextPageToken,omitempty"`
}

func parseOrderStatus(raw string) (services.OrderStatus, bool) {
	status := strings.ToLower(strings.TrimSpace(raw))
	if _, ok := knownStatusFilters[status]; !ok {
		return "", false
	}
	return services.OrderStatus(status), true
}

func writeBodyError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	switch {
	case errors.Is(err, errBodyTooLarge):
		httpx.WriteError(ctx, w, httpx.NewError("payload_too_large", "request body exceeds allowed size", http.StatusRequestEntityTooLarge))
	default:
		httpx.WriteError(ctx, w, httpx.NewError(errorCodeInvalidRequest, "request body is required", http.StatusBadRequest))
	}
}
