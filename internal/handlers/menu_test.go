package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/teranga-kitchen/api/internal/domain"
	"github.com/teranga-kitchen/api/internal/services"
)

type stubCatalogService struct {
	listMenuFn     func(context.Context, services.MenuItemFilter) (domain.CursorPage[services.MenuItem], error)
	listSpecialsFn func(context.Context, services.DailySpecialFilter) (domain.CursorPage[services.DailySpecial], error)
	getMenuFn      func(context.Context, string) (services.MenuItem, error)
}

func (s *stubCatalogService) ListMenuItems(ctx context.Context, filter services.MenuItemFilter) (domain.CursorPage[services.MenuItem], error) {
	if s.listMenuFn != nil {
		return s.listMenuFn(ctx, filter)
	}
	return domain.CursorPage[services.MenuItem]{}, nil
}

func (s *stubCatalogService) ListDailySpecials(ctx context.Context, filter services.DailySpecialFilter) (domain.CursorPage[services.DailySpecial], error) {
	if s.listSpecialsFn != nil {
		return s.listSpecialsFn(ctx, filter)
	}
	return domain.CursorPage[services.DailySpecial]{}, nil
}

func (s *stubCatalogService) GetMenuItem(ctx context.Context, itemID string) (services.MenuItem, error) {
	if s.getMenuFn != nil {
		return s.getMenuFn(ctx, itemID)
	}
	return services.MenuItem{}, nil
}

var _ services.CatalogService = (*stubCatalogService)(nil)

func sampleMenuItem() services.MenuItem {
	return services.MenuItem{
		ID:          "thieb-poisson",
		Name:        "Thiéboudienne",
		Description: "Riz au poisson, légumes du marché",
		Price:       3500,
		Category:    "plats",
		IsAvailable: true,
	}
}

func newMenuRouter(svc services.CatalogService) chi.Router {
	handlers := NewMenuHandlers(svc)
	r := chi.NewRouter()
	r.Route("/menu", handlers.MenuRoutes)
	r.Route("/specials", handlers.SpecialsRoutes)
	return r
}

func TestListMenuItemsForwardsCategory(t *testing.T) {
	var captured services.MenuItemFilter
	svc := &stubCatalogService{
		listMenuFn: func(_ context.Context, filter services.MenuItemFilter) (domain.CursorPage[services.MenuItem], error) {
			captured = filter
			return domain.CursorPage[services.MenuItem]{Items: []services.MenuItem{sampleMenuItem()}}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/menu/?category=plats&page_size=5", nil)
	rr := httptest.NewRecorder()
	newMenuRouter(svc).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if captured.Category == nil || *captured.Category != "plats" {
		t.Fatalf("expected category forwarded, got %v", captured.Category)
	}
	if !captured.AvailableOnly {
		t.Fatalf("expected available-only filter")
	}
	if captured.Pagination.PageSize != 5 {
		t.Fatalf("expected page size 5, got %d", captured.Pagination.PageSize)
	}

	var body struct {
		Items []struct {
			ID    string `json:"id"`
			Price int64  `json:"price"`
		} `json:"items"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if len(body.Items) != 1 || body.Items[0].ID != "thieb-poisson" || body.Items[0].Price != 3500 {
		t.Fatalf("expected menu item payload, got %+v", body.Items)
	}
}

func TestGetMenuItemNotFound(t *testing.T) {
	svc := &stubCatalogService{
		getMenuFn: func(context.Context, string) (services.MenuItem, error) {
			return services.MenuItem{}, services.ErrCatalogItemNotFound
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/menu/unknown", nil)
	rr := httptest.NewRecorder()
	newMenuRouter(svc).ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}
}

func TestListDailySpecialsForwardsDate(t *testing.T) {
	var captured services.DailySpecialFilter
	svc := &stubCatalogService{
		listSpecialsFn: func(_ context.Context, filter services.DailySpecialFilter) (domain.CursorPage[services.DailySpecial], error) {
			captured = filter
			return domain.CursorPage[services.DailySpecial]{Items: []services.DailySpecial{{
				ID:            "special-1",
				Name:          "Mafé du jour",
				Price:         4000,
				IsAvailable:   true,
				AvailableDate: time.Date(2025, 6, 12, 0, 0, 0, 0, time.UTC),
			}}}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/specials/?date=2025-06-12T14:30:00Z", nil)
	rr := httptest.NewRecorder()
	newMenuRouter(svc).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if captured.Date == nil || !captured.Date.Equal(time.Date(2025, 6, 12, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected date truncated to day, got %v", captured.Date)
	}
	if !captured.AvailableOnly {
		t.Fatalf("expected available-only filter")
	}

	var body struct {
		Items []struct {
			Name          string `json:"name"`
			AvailableDate string `json:"availableDate"`
		} `json:"items"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if len(body.Items) != 1 || body.Items[0].Name != "Mafé du jour" {
		t.Fatalf("expected daily special payload, got %+v", body.Items)
	}
}

func TestListDailySpecialsRejectsBadDate(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/specials/?date=tomorrow", nil)
	rr := httptest.NewRecorder()
	newMenuRouter(&stubCatalogService{}).ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}
