package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	domain "github.com/teranga-kitchen/api/internal/domain"
	"github.com/teranga-kitchen/api/internal/repositories"
)

var (
	// ErrCatalogRepositoryMissing indicates the repository dependency is absent.
	ErrCatalogRepositoryMissing = errors.New("catalog service: repository is not configured")
	// ErrCatalogItemNotFound indicates no published catalog item matches the id.
	ErrCatalogItemNotFound = errors.New("catalog service: item not found")
)

// CatalogServiceDeps bundles constructor inputs for the catalog service.
type CatalogServiceDeps struct {
	Catalog repositories.CatalogRepository
	Clock   func() time.Time
}

type catalogService struct {
	repo  repositories.CatalogRepository
	clock func() time.Time
}

// NewCatalogService constructs the catalog service with the supplied dependencies.
func NewCatalogService(deps CatalogServiceDeps) (CatalogService, error) {
	if deps.Catalog == nil {
		return nil, fmt.Errorf("catalog service: catalog repository is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &catalogService{
		repo:  deps.Catalog,
		clock: func() time.Time { return clock().UTC() },
	}, nil
}

func (s *catalogService) ListMenuItems(ctx context.Context, filter MenuItemFilter) (domain.CursorPage[MenuItem], error) {
	repoFilter := repositories.MenuItemFilter{
		Category:      normalizeFilterPointer(filter.Category),
		AvailableOnly: filter.AvailableOnly,
		Pagination: domain.Pagination{
			PageSize:  filter.Pagination.PageSize,
			PageToken: strings.TrimSpace(filter.Pagination.PageToken),
		},
	}

	page, err := s.repo.ListMenuItems(ctx, repoFilter)
	if err != nil {
		return domain.CursorPage[MenuItem]{}, s.mapRepositoryError(err)
	}
	return page, nil
}

func (s *catalogService) ListDailySpecials(ctx context.Context, filter DailySpecialFilter) (domain.CursorPage[DailySpecial], error) {
	repoFilter := repositories.DailySpecialFilter{
		Date:          filter.Date,
		AvailableOnly: filter.AvailableOnly,
		Pagination: domain.Pagination{
			PageSize:  filter.Pagination.PageSize,
			PageToken: strings.TrimSpace(filter.Pagination.PageToken),
		},
	}
	if repoFilter.Date == nil {
		today := SpecialDate(s.clock())
		repoFilter.Date = &today
	}

	page, err := s.repo.ListDailySpecials(ctx, repoFilter)
	if err != nil {
		return domain.CursorPage[DailySpecial]{}, s.mapRepositoryError(err)
	}
	return page, nil
}

func (s *catalogService) GetMenuItem(ctx context.Context, itemID string) (MenuItem, error) {
	itemID = strings.TrimSpace(itemID)
	if itemID == "" {
		return MenuItem{}, errors.New("catalog service: item id is required")
	}
	item, err := s.repo.GetMenuItem(ctx, itemID)
	if err != nil {
		return MenuItem{}, s.mapRepositoryError(err)
	}
	return item, nil
}

func (s *catalogService) mapRepositoryError(err error) error {
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) && repoErr.IsNotFound() {
		return fmt.Errorf("%w: %v", ErrCatalogItemNotFound, err)
	}
	return err
}

func normalizeFilterPointer(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
