package repositories

import (
	"context"
	"time"

	domain "github.com/teranga-kitchen/api/internal/domain"
)

// Registry exposes typed repository accessors and lifecycle hooks for dependency injection.
type Registry interface {
	Close(ctx context.Context) error

	Orders() OrderRepository
	Catalog() CatalogRepository
	Counters() CounterRepository
	Health() HealthRepository
	UnitOfWork
}

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// UnitOfWork allows grouping repository operations in a transactional boundary when supported.
type UnitOfWork interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// OrderRepository persists order headers and their owned line items. Lines are
// always written after the header they reference; Delete removes the header
// together with any lines already written so a failed line write can be
// compensated.
type OrderRepository interface {
	Insert(ctx context.Context, order domain.Order) error
	InsertLines(ctx context.Context, orderID string, lines []domain.OrderLine) error
	Delete(ctx context.Context, orderID string) error
	FindByID(ctx context.Context, orderID string) (domain.Order, error)
	UpdateStatus(ctx context.Context, orderID string, update OrderStatusUpdate) (domain.Order, error)
	List(ctx context.Context, filter OrderListFilter) (domain.CursorPage[domain.Order], error)
}

// OrderStatusUpdate carries the target status for a transition. When
// ExpectedStatus is set the repository must reject the write with a conflict
// if the stored status differs, so concurrent transitions cannot silently
// overwrite each other.
type OrderStatusUpdate struct {
	Status         domain.OrderStatus
	ExpectedStatus *domain.OrderStatus
	UpdatedAt      time.Time
}

// CatalogRepository reads menu items and daily specials. The ordering core
// never writes to the catalog; content management lives elsewhere.
type CatalogRepository interface {
	GetCatalogItem(ctx context.Context, itemType domain.CatalogItemType, itemID string) (domain.CatalogItem, error)
	GetMenuItem(ctx context.Context, itemID string) (domain.MenuItem, error)
	GetDailySpecial(ctx context.Context, specialID string) (domain.DailySpecial, error)
	ListMenuItems(ctx context.Context, filter MenuItemFilter) (domain.CursorPage[domain.MenuItem], error)
	ListDailySpecials(ctx context.Context, filter DailySpecialFilter) (domain.CursorPage[domain.DailySpecial], error)
}

// CounterRepository provides transaction-safe sequence numbers.
type CounterRepository interface {
	Next(ctx context.Context, counterID string, step int64) (int64, error)
	Configure(ctx context.Context, counterID string, cfg CounterConfig) error
}

// HealthRepository exposes status of downstream dependencies for health checks.
type HealthRepository interface {
	Collect(ctx context.Context) (domain.SystemHealthReport, error)
}

// Filter DTOs shared across repositories ------------------------------------

type OrderListFilter struct {
	Status     []string
	DateRange  domain.RangeQuery[time.Time]
	Pagination domain.Pagination
}

type MenuItemFilter struct {
	Category      *string
	AvailableOnly bool
	Pagination    domain.Pagination
}

type DailySpecialFilter struct {
	Date          *time.Time
	AvailableOnly bool
	Pagination    domain.Pagination
}

// CounterConfig customises increment behaviour and bounds for a counter.
type CounterConfig struct {
	Step         int64
	MaxValue     *int64
	InitialValue *int64
}
