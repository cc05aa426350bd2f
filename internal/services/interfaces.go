package services

import (
	"context"
	"time"

	domain "github.com/teranga-kitchen/api/internal/domain"
	"github.com/teranga-kitchen/api/internal/repositories"
)

// Type aliases expose domain models to the services package without reversing dependency direction.
type (
	Pagination         = domain.Pagination
	SortOrder          = domain.SortOrder
	Order              = domain.Order
	OrderLine          = domain.OrderLine
	OrderStatus        = domain.OrderStatus
	OrderType          = domain.OrderType
	PaymentMethod      = domain.PaymentMethod
	DeliveryZone       = domain.DeliveryZone
	CartLine           = domain.CartLine
	PricedLine         = domain.PricedLine
	PricingBreakdown   = domain.PricingBreakdown
	CatalogItem        = domain.CatalogItem
	CatalogItemType    = domain.CatalogItemType
	MenuItem           = domain.MenuItem
	DailySpecial       = domain.DailySpecial
	FieldErrors        = domain.FieldErrors
	SystemHealthReport = domain.SystemHealthReport
)

// OrderService encapsulates the order lifecycle: submission with server-side
// pricing, reads for the storefront and admin console, and status transitions.
type OrderService interface {
	SubmitOrder(ctx context.Context, cmd SubmitOrderCommand) (Order, error)
	GetOrder(ctx context.Context, orderID string) (Order, error)
	ListOrders(ctx context.Context, filter OrderListFilter) (domain.CursorPage[Order], error)
	TransitionStatus(ctx context.Context, cmd OrderStatusTransitionCommand) (Order, error)
	Cancel(ctx context.Context, cmd CancelOrderCommand) (Order, error)
}

// CartPricer turns client cart lines into trusted priced lines using the
// catalog as the only pricing source.
type CartPricer interface {
	PriceCart(ctx context.Context, cmd PriceCartCommand) (PricingBreakdown, error)
}

// CatalogService serves storefront catalog reads.
type CatalogService interface {
	ListMenuItems(ctx context.Context, filter MenuItemFilter) (domain.CursorPage[MenuItem], error)
	ListDailySpecials(ctx context.Context, filter DailySpecialFilter) (domain.CursorPage[DailySpecial], error)
	GetMenuItem(ctx context.Context, itemID string) (MenuItem, error)
}

// OrderNotifier dispatches human-readable order messages to staff. A returned
// error means no recipient could be reached; callers treat any error as
// log-only and never fail the surrounding operation because of it.
type OrderNotifier interface {
	NotifyOrderCreated(ctx context.Context, order Order) error
	NotifyOrderStatus(ctx context.Context, order Order, previous OrderStatus) error
}

// OrderEventPublisher publishes order domain events for downstream consumers.
type OrderEventPublisher interface {
	PublishOrderEvent(ctx context.Context, event OrderEvent) error
}

// OrderEvent captures metadata for emitted order domain events.
type OrderEvent struct {
	Type           string
	OrderID        string
	OrderNumber    string
	PreviousStatus string
	CurrentStatus  string
	TotalAmount    int64
	OccurredAt     time.Time
	Metadata       map[string]any
}

// SystemService aggregates utility endpoints (health checks, counters).
type SystemService interface {
	HealthReport(ctx context.Context) (SystemHealthReport, error)
	NextCounterValue(ctx context.Context, cmd CounterCommand) (int64, error)
}

// TransitionPolicy selects how strictly status changes follow the lifecycle
// graph.
type TransitionPolicy string

const (
	// TransitionPolicyStrict only allows moves along the lifecycle graph:
	// pending, confirmed, preparing, ready, delivered, with cancellation
	// available from any non-terminal state.
	TransitionPolicyStrict TransitionPolicy = "strict"
	// TransitionPolicyPermissive allows any move between non-terminal
	// statuses; terminal statuses still reject every transition.
	TransitionPolicyPermissive TransitionPolicy = "permissive"
)

// Command and DTO definitions ------------------------------------------------

// SubmitOrderCommand carries raw storefront input prior to validation.
// Declared line prices are display-only and never used for totals.
type SubmitOrderCommand struct {
	CustomerName    string
	CustomerPhone   string
	CustomerEmail   string
	OrderType       string
	DeliveryAddress string
	DeliveryZone    string
	PaymentMethod   string
	Notes           string
	Lines           []CartLine
}

type OrderListFilter = repositories.OrderListFilter

type MenuItemFilter = repositories.MenuItemFilter

type DailySpecialFilter = repositories.DailySpecialFilter

type OrderStatusTransitionCommand struct {
	OrderID        string
	TargetStatus   OrderStatus
	Reason         string
	ExpectedStatus *OrderStatus
}

type CancelOrderCommand struct {
	OrderID        string
	Reason         string
	ExpectedStatus *OrderStatus
}

// PriceCartCommand packages the validated inputs the pricing engine needs.
type PriceCartCommand struct {
	Lines        []CartLine
	OrderType    OrderType
	DeliveryZone DeliveryZone
}

type CounterCommand struct {
	CounterID string
	Step      int64
}
