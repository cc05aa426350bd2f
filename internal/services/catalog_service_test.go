package services

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "github.com/teranga-kitchen/api/internal/domain"
	"github.com/teranga-kitchen/api/internal/repositories"
)

type stubCatalogStore struct {
	stubCatalogRepo

	listMenuFn     func(context.Context, repositories.MenuItemFilter) (domain.CursorPage[domain.MenuItem], error)
	listSpecialsFn func(context.Context, repositories.DailySpecialFilter) (domain.CursorPage[domain.DailySpecial], error)
	getMenuFn      func(context.Context, string) (domain.MenuItem, error)
}

func (s *stubCatalogStore) ListMenuItems(ctx context.Context, filter repositories.MenuItemFilter) (domain.CursorPage[domain.MenuItem], error) {
	if s.listMenuFn != nil {
		return s.listMenuFn(ctx, filter)
	}
	return domain.CursorPage[domain.MenuItem]{}, nil
}

func (s *stubCatalogStore) ListDailySpecials(ctx context.Context, filter repositories.DailySpecialFilter) (domain.CursorPage[domain.DailySpecial], error) {
	if s.listSpecialsFn != nil {
		return s.listSpecialsFn(ctx, filter)
	}
	return domain.CursorPage[domain.DailySpecial]{}, nil
}

func (s *stubCatalogStore) GetMenuItem(ctx context.Context, itemID string) (domain.MenuItem, error) {
	if s.getMenuFn != nil {
		return s.getMenuFn(ctx, itemID)
	}
	return domain.MenuItem{}, errors.New("not implemented")
}

func TestCatalogServiceListMenuItemsNormalizesFilter(t *testing.T) {
	ctx := context.Background()
	category := "  plats  "

	store := &stubCatalogStore{
		listMenuFn: func(_ context.Context, filter repositories.MenuItemFilter) (domain.CursorPage[domain.MenuItem], error) {
			if filter.Category == nil || *filter.Category != "plats" {
				t.Fatalf("category not normalized: %+v", filter.Category)
			}
			if !filter.AvailableOnly {
				t.Fatalf("expected available-only filter")
			}
			return domain.CursorPage[domain.MenuItem]{Items: []domain.MenuItem{{ID: "burger-1"}}}, nil
		},
	}

	svc, err := NewCatalogService(CatalogServiceDeps{Catalog: store})
	if err != nil {
		t.Fatalf("new catalog service: %v", err)
	}

	page, err := svc.ListMenuItems(ctx, MenuItemFilter{Category: &category, AvailableOnly: true})
	if err != nil {
		t.Fatalf("list menu items: %v", err)
	}
	if len(page.Items) != 1 {
		t.Fatalf("unexpected page %+v", page)
	}
}

func TestCatalogServiceListDailySpecialsDefaultsToToday(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 5, 1, 18, 45, 0, 0, time.UTC)

	store := &stubCatalogStore{
		listSpecialsFn: func(_ context.Context, filter repositories.DailySpecialFilter) (domain.CursorPage[domain.DailySpecial], error) {
			want := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
			if filter.Date == nil || !filter.Date.Equal(want) {
				t.Fatalf("expected today's date, got %v", filter.Date)
			}
			return domain.CursorPage[domain.DailySpecial]{}, nil
		},
	}

	svc, err := NewCatalogService(CatalogServiceDeps{
		Catalog: store,
		Clock:   func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("new catalog service: %v", err)
	}

	if _, err := svc.ListDailySpecials(ctx, DailySpecialFilter{}); err != nil {
		t.Fatalf("list daily specials: %v", err)
	}
}

func TestCatalogServiceGetMenuItemNotFound(t *testing.T) {
	ctx := context.Background()
	store := &stubCatalogStore{
		getMenuFn: func(context.Context, string) (domain.MenuItem, error) {
			return domain.MenuItem{}, repoError{notFound: true}
		},
	}

	svc, err := NewCatalogService(CatalogServiceDeps{Catalog: store})
	if err != nil {
		t.Fatalf("new catalog service: %v", err)
	}

	_, err = svc.GetMenuItem(ctx, "ghost")
	if !errors.Is(err, ErrCatalogItemNotFound) {
		t.Fatalf("expected not found got %v", err)
	}
}
