package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	domain "github.com/teranga-kitchen/api/internal/domain"
	"github.com/teranga-kitchen/api/internal/platform/httpx"
	"github.com/teranga-kitchen/api/internal/platform/pagination"
	"github.com/teranga-kitchen/api/internal/services"
)

const (
	defaultMenuPageSize = 50
	maxMenuPageSize     = 100
)

// MenuHandlers exposes the public catalog endpoints consumed by the
// storefront: the permanent menu and the rotating daily specials. Only
// available items are served; content management lives elsewhere.
type MenuHandlers struct {
	catalog services.CatalogService
}

// NewMenuHandlers constructs a new MenuHandlers instance.
func NewMenuHandlers(catalog services.CatalogService) *MenuHandlers {
	return &MenuHandlers{catalog: catalog}
}

// MenuRoutes registers the /menu endpoints.
func (h *MenuHandlers) MenuRoutes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.listMenuItems)
	r.Get("/{itemID}", h.getMenuItem)
}

// SpecialsRoutes registers the /specials endpoints.
func (h *MenuHandlers) SpecialsRoutes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.listDailySpecials)
}

func (h *MenuHandlers) listMenuItems(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_service_unavailable", "catalog service unavailable", http.StatusServiceUnavailable))
		return
	}

	query := r.URL.Query()
	filter := services.MenuItemFilter{
		AvailableOnly: true,
	}
	if category := strings.TrimSpace(query.Get("category")); category != "" {
		filter.Category = &category
	}

	pageParams, err := pagination.FromRequest(r, pagination.Options{
		DefaultPageSize: defaultMenuPageSize,
		MaxPageSize:     maxMenuPageSize,
	})
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError(errorCodeInvalidRequest, paginationErrorMessage(err), http.StatusBadRequest))
		return
	}
	filter.Pagination = domain.Pagination{
		PageSize:  pageParams.PageSize,
		PageToken: pageParams.PageToken,
	}

	page, err := h.catalog.ListMenuItems(ctx, filter)
	if err != nil {
		writeCatalogError(w, r, err)
		return
	}

	items := make([]menuItemPayload, 0, len(page.Items))
	for _, item := range page.Items {
		items = append(items, buildMenuItemPayload(item))
	}

	writeJSONResponse(w, http.StatusOK, menuListResponse{
		Items:         items,
		NextPageToken: strings.TrimSpace(page.NextPageToken),
	})
}

func (h *MenuHandlers) getMenuItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_service_unavailable", "catalog service unavailable", http.StatusServiceUnavailable))
		return
	}

	itemID := strings.TrimSpace(chi.URLParam(r, "itemID"))
	if itemID == "" {
		httpx.WriteError(ctx, w, httpx.NewError(errorCodeInvalidRequest, "item id is required", http.StatusBadRequest))
		return
	}

	item, err := h.catalog.GetMenuItem(ctx, itemID)
	if err != nil {
		writeCatalogError(w, r, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, menuItemResponse{Item: buildMenuItemPayload(item)})
}

func (h *MenuHandlers) listDailySpecials(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_service_unavailable", "catalog service unavailable", http.StatusServiceUnavailable))
		return
	}

	query := r.URL.Query()
	filter := services.DailySpecialFilter{
		AvailableOnly: true,
	}
	if raw := strings.TrimSpace(query.Get("date")); raw != "" {
		ts, err := parseTimeParam(raw)
		if err != nil {
			httpx.WriteError(ctx, w, httpx.NewError(errorCodeInvalidRequest, "date must be a valid RFC3339 timestamp", http.StatusBadRequest))
			return
		}
		day := services.SpecialDate(ts)
		filter.Date = &day
	}

	pageParams, err := pagination.FromRequest(r, pagination.Options{
		DefaultPageSize: defaultMenuPageSize,
		MaxPageSize:     maxMenuPageSize,
	})
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError(errorCodeInvalidRequest, paginationErrorMessage(err), http.StatusBadRequest))
		return
	}
	filter.Pagination = domain.Pagination{
		PageSize:  pageParams.PageSize,
		PageToken: pageParams.PageToken,
	}

	page, err := h.catalog.ListDailySpecials(ctx, filter)
	if err != nil {
		writeCatalogError(w, r, err)
		return
	}

	items := make([]dailySpecialPayload, 0, len(page.Items))
	for _, special := range page.Items {
		items = append(items, buildDailySpecialPayload(special))
	}

	writeJSONResponse(w, http.StatusOK, specialsListResponse{
		Items:         items,
		NextPageToken: strings.TrimSpace(page.NextPageToken),
	})
}

type menuListResponse struct {
	Items         []menuItemPayload `json:"items"`
	NextPageToken string            `json:"nextPageToken,omitempty"`
}

type menuItemResponse struct {
	Item menuItemPayload `json:"item"`
}

type specialsListResponse struct {
	Items         []dailySpecialPayload `json:"items"`
	NextPageToken string                `json:"nextPageToken,omitempty"`
}

type menuItemPayload struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Description   string `json:"description,omitempty"`
	Price         int64  `json:"price"`
	Category      string `json:"category,omitempty"`
	ImageURL      string `json:"imageUrl,omitempty"`
	IsAvailable   bool   `json:"isAvailable"`
	StockQuantity *int   `json:"stockQuantity,omitempty"`
}

type dailySpecialPayload struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Description   string `json:"description,omitempty"`
	Price         int64  `json:"price"`
	ImageURL      string `json:"imageUrl,omitempty"`
	IsAvailable   bool   `json:"isAvailable"`
	StockQuantity *int   `json:"stockQuantity,omitempty"`
	AvailableDate string `json:"availableDate"`
}

func buildMenuItemPayload(item services.MenuItem) menuItemPayload {
	return menuItemPayload{
		ID:            item.ID,
		Name:          item.Name,
		Description:   item.Description,
		Price:         item.Price,
		Category:      item.Category,
		ImageURL:      item.ImageURL,
		IsAvailable:   item.IsAvailable,
		StockQuantity: item.StockQuantity,
	}
}

func buildDailySpecialPayload(special services.DailySpecial) dailySpecialPayload {
	return dailySpecialPayload{
		ID:            special.ID,
		Name:          special.Name,
		Description:   special.Description,
		Price:         special.Price,
		ImageURL:      special.ImageURL,
		IsAvailable:   special.IsAvailable,
		StockQuantity: special.StockQuantity,
		AvailableDate: formatTime(special.AvailableDate),
	}
}

func writeCatalogError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	switch {
	case errors.Is(err, services.ErrCatalogItemNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("item_not_found", "catalog item not found", http.StatusNotFound))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("catalog_error", "failed to read catalog", http.StatusInternalServerError))
	}
}
