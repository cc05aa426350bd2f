package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	domain "github.com/teranga-kitchen/api/internal/domain"
	pfirestore "github.com/teranga-kitchen/api/internal/platform/firestore"
	"github.com/teranga-kitchen/api/internal/platform/pagination"
	"github.com/teranga-kitchen/api/internal/repositories"
)

const (
	menuItemsCollection     = "menu_items"
	dailySpecialsCollection = "daily_specials"

	defaultCatalogPageSize = 50
	maxCatalogPageSize     = 100
)

type menuItemDocument struct {
	Name          string    `firestore:"name"`
	Description   string    `firestore:"description,omitempty"`
	Price         int64     `firestore:"price"`
	Category      string    `firestore:"category"`
	ImageURL      string    `firestore:"imageUrl,omitempty"`
	IsAvailable   bool      `firestore:"isAvailable"`
	StockQuantity *int      `firestore:"stockQuantity,omitempty"`
	CreatedAt     time.Time `firestore:"createdAt"`
	UpdatedAt     time.Time `firestore:"updatedAt"`
}

type dailySpecialDocument struct {
	Name          string    `firestore:"name"`
	Description   string    `firestore:"description,omitempty"`
	Price         int64     `firestore:"price"`
	ImageURL      string    `firestore:"imageUrl,omitempty"`
	IsAvailable   bool      `firestore:"isAvailable"`
	StockQuantity *int      `firestore:"stockQuantity,omitempty"`
	AvailableDate time.Time `firestore:"availableDate"`
	CreatedAt     time.Time `firestore:"createdAt"`
	UpdatedAt     time.Time `firestore:"updatedAt"`
}

// CatalogRepository reads menu items and daily specials from Firestore.
type CatalogRepository struct {
	menu     *pfirestore.BaseRepository[menuItemDocument]
	specials *pfirestore.BaseRepository[dailySpecialDocument]
}

// NewCatalogRepository constructs a Firestore-backed catalog repository.
func NewCatalogRepository(provider *pfirestore.Provider) (*CatalogRepository, error) {
	if provider == nil {
		return nil, errors.New("catalog repository requires firestore provider")
	}
	return &CatalogRepository{
		menu:     pfirestore.NewBaseRepository[menuItemDocument](provider, menuItemsCollection, nil, nil),
		specials: pfirestore.NewBaseRepository[dailySpecialDocument](provider, dailySpecialsCollection, nil, nil),
	}, nil
}

// GetCatalogItem resolves the pricing view for either catalog collection.
func (r *CatalogRepository) GetCatalogItem(ctx context.Context, itemType domain.CatalogItemType, itemID string) (domain.CatalogItem, error) {
	if r == nil {
		return domain.CatalogItem{}, errors.New("catalog repository not initialised")
	}

	switch itemType {
	case domain.CatalogItemTypeMenu:
		item, err := r.GetMenuItem(ctx, itemID)
		if err != nil {
			return domain.CatalogItem{}, err
		}
		return domain.CatalogItem{
			ID:            item.ID,
			Type:          domain.CatalogItemTypeMenu,
			Name:          item.Name,
			Price:         item.Price,
			IsAvailable:   item.IsAvailable,
			StockQuantity: item.StockQuantity,
		}, nil
	case domain.CatalogItemTypeSpecial:
		special, err := r.GetDailySpecial(ctx, itemID)
		if err != nil {
			return domain.CatalogItem{}, err
		}
		return domain.CatalogItem{
			ID:            special.ID,
			Type:          domain.CatalogItemTypeSpecial,
			Name:          special.Name,
			Price:         special.Price,
			IsAvailable:   special.IsAvailable,
			StockQuantity: special.StockQuantity,
		}, nil
	default:
		return domain.CatalogItem{}, pfirestore.WrapError("catalog.get",
			status.Errorf(codes.NotFound, "unknown catalog item type %q", itemType))
	}
}

// GetMenuItem loads a single permanent menu entry.
func (r *CatalogRepository) GetMenuItem(ctx context.Context, itemID string) (domain.MenuItem, error) {
	if r == nil || r.menu == nil {
		return domain.MenuItem{}, errors.New("catalog repository not initialised")
	}
	doc, err := r.menu.Get(ctx, strings.TrimSpace(itemID))
	if err != nil {
		return domain.MenuItem{}, err
	}
	return decodeMenuItem(doc.ID, doc.Data), nil
}

// GetDailySpecial loads a single daily special.
func (r *CatalogRepository) GetDailySpecial(ctx context.Context, specialID string) (domain.DailySpecial, error) {
	if r == nil || r.specials == nil {
		return domain.DailySpecial{}, errors.New("catalog repository not initialised")
	}
	doc, err := r.specials.Get(ctx, strings.TrimSpace(specialID))
	if err != nil {
		return domain.DailySpecial{}, err
	}
	return decodeDailySpecial(doc.ID, doc.Data), nil
}

// ListMenuItems returns menu entries ordered by category then name.
func (r *CatalogRepository) ListMenuItems(ctx context.Context, filter repositories.MenuItemFilter) (domain.CursorPage[domain.MenuItem], error) {
	if r == nil || r.menu == nil {
		return domain.CursorPage[domain.MenuItem]{}, errors.New("catalog repository not initialised")
	}

	pageSize := clampCatalogPageSize(filter.Pagination.PageSize)
	cursor, err := pagination.DecodeToken(filter.Pagination.PageToken)
	if err != nil {
		return domain.CursorPage[domain.MenuItem]{}, err
	}

	docs, err := r.menu.Query(ctx, func(query firestore.Query) firestore.Query {
		if filter.Category != nil {
			query = query.Where("category", "==", *filter.Category)
		}
		if filter.AvailableOnly {
			query = query.Where("isAvailable", "==", true)
		}
		query = query.
			OrderBy("category", firestore.Asc).
			OrderBy("name", firestore.Asc).
			OrderBy(firestore.DocumentID, firestore.Asc)
		if len(cursor.StartAfter) > 0 {
			query = query.StartAfter(cursor.StartAfter...)
		}
		return query.Limit(pageSize + 1)
	})
	if err != nil {
		return domain.CursorPage[domain.MenuItem]{}, err
	}

	hasMore := len(docs) > pageSize
	if hasMore {
		docs = docs[:pageSize]
	}

	page := domain.CursorPage[domain.MenuItem]{Items: make([]domain.MenuItem, 0, len(docs))}
	for _, doc := range docs {
		page.Items = append(page.Items, decodeMenuItem(doc.ID, doc.Data))
	}
	if hasMore && len(docs) > 0 {
		last := docs[len(docs)-1]
		token, err := pagination.EncodeToken(pagination.Cursor{
			StartAfter: []any{last.Data.Category, last.Data.Name, last.ID},
		})
		if err != nil {
			return domain.CursorPage[domain.MenuItem]{}, err
		}
		page.NextPageToken = token
	}
	return page, nil
}

// ListDailySpecials returns specials for the filtered date, newest first.
func (r *CatalogRepository) ListDailySpecials(ctx context.Context, filter repositories.DailySpecialFilter) (domain.CursorPage[domain.DailySpecial], error) {
	if r == nil || r.specials == nil {
		return domain.CursorPage[domain.DailySpecial]{}, errors.New("catalog repository not initialised")
	}

	pageSize := clampCatalogPageSize(filter.Pagination.PageSize)
	cursor, err := pagination.DecodeToken(filter.Pagination.PageToken)
	if err != nil {
		return domain.CursorPage[domain.DailySpecial]{}, err
	}

	docs, err := r.specials.Query(ctx, func(query firestore.Query) firestore.Query {
		if filter.Date != nil {
			day := filter.Date.UTC().Truncate(24 * time.Hour)
			query = query.
				Where("availableDate", ">=", day).
				Where("availableDate", "<", day.Add(24*time.Hour))
		}
		if filter.AvailableOnly {
			query = query.Where("isAvailable", "==", true)
		}
		query = query.
			OrderBy("availableDate", firestore.Desc).
			OrderBy(firestore.DocumentID, firestore.Asc)
		if len(cursor.StartAfter) > 0 {
			query = query.StartAfter(cursor.StartAfter...)
		}
		return query.Limit(pageSize + 1)
	})
	if err != nil {
		return domain.CursorPage[domain.DailySpecial]{}, err
	}

	hasMore := len(docs) > pageSize
	if hasMore {
		docs = docs[:pageSize]
	}

	page := domain.CursorPage[domain.DailySpecial]{Items: make([]domain.DailySpecial, 0, len(docs))}
	for _, doc := range docs {
		page.Items = append(page.Items, decodeDailySpecial(doc.ID, doc.Data))
	}
	if hasMore && len(docs) > 0 {
		last := docs[len(docs)-1]
		token, err := pagination.EncodeToken(pagination.Cursor{
			StartAfter: []any{last.Data.AvailableDate, last.ID},
		})
		if err != nil {
			return domain.CursorPage[domain.DailySpecial]{}, err
		}
		page.NextPageToken = token
	}
	return page, nil
}

func clampCatalogPageSize(pageSize int) int {
	if pageSize <= 0 {
		return defaultCatalogPageSize
	}
	if pageSize > maxCatalogPageSize {
		return maxCatalogPageSize
	}
	return pageSize
}

func decodeMenuItem(id string, doc menuItemDocument) domain.MenuItem {
	return domain.MenuItem{
		ID:            id,
		Name:          doc.Name,
		Description:   doc.Description,
		Price:         doc.Price,
		Category:      doc.Category,
		ImageURL:      doc.ImageURL,
		IsAvailable:   doc.IsAvailable,
		StockQuantity: doc.StockQuantity,
		CreatedAt:     doc.CreatedAt,
		UpdatedAt:     doc.UpdatedAt,
	}
}

func decodeDailySpecial(id string, doc dailySpecialDocument) domain.DailySpecial {
	return domain.DailySpecial{
		ID:            id,
		Name:          doc.Name,
		Description:   doc.Description,
		Price:         doc.Price,
		ImageURL:      doc.ImageURL,
		IsAvailable:   doc.IsAvailable,
		StockQuantity: doc.StockQuantity,
		AvailableDate: doc.AvailableDate,
		CreatedAt:     doc.CreatedAt,
		UpdatedAt:     doc.UpdatedAt,
	}
}

var _ repositories.CatalogRepository = (*CatalogRepository)(nil)
