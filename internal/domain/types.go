package domain

import (
	"time"
)

// Pagination defines standard cursor-based paging inputs for list operations.
type Pagination struct {
	PageSize  int
	PageToken string
}

// SortOrder indicates ascending or descending ordering for list queries.
type SortOrder string

const (
	// SortAsc sorts results in ascending order.
	SortAsc SortOrder = "asc"
	// SortDesc sorts results in descending order.
	SortDesc SortOrder = "desc"
)

// RangeQuery represents inclusive range filters for numeric or timestamp fields.
type RangeQuery[T comparable] struct {
	From *T
	To   *T
}

// OrderStatus enumerates valid lifecycle states for orders.
type OrderStatus string

const (
	// OrderStatusPending indicates the order has been submitted and awaits staff confirmation.
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusConfirmed indicates staff accepted the order.
	OrderStatusConfirmed OrderStatus = "confirmed"
	// OrderStatusPreparing indicates the kitchen is working on the order.
	OrderStatusPreparing OrderStatus = "preparing"
	// OrderStatusReady indicates the order is ready for pickup or out for delivery.
	OrderStatusReady OrderStatus = "ready"
	// OrderStatusDelivered indicates the order reached the customer. Terminal.
	OrderStatusDelivered OrderStatus = "delivered"
	// OrderStatusCancelled indicates the order was cancelled by staff. Terminal.
	OrderStatusCancelled OrderStatus = "cancelled"
)

// OrderType distinguishes pickup orders from delivered ones.
type OrderType string

const (
	// OrderTypePickup indicates the customer collects the order at the restaurant.
	OrderTypePickup OrderType = "pickup"
	// OrderTypeDelivery indicates the order is delivered to a customer address.
	OrderTypeDelivery OrderType = "delivery"
)

// PaymentMethod enumerates how the customer intends to pay.
type PaymentMethod string

const (
	// PaymentMethodPayNow indicates the customer pays online at submission time.
	PaymentMethodPayNow PaymentMethod = "pay_now"
	// PaymentMethodPayAtArrival indicates the customer pays on pickup or delivery.
	PaymentMethodPayAtArrival PaymentMethod = "pay_at_arrival"
)

// Order captures the persisted order header returned to handlers/services.
// All monetary fields are whole FCFA.
type Order struct {
	ID              string
	OrderNumber     string
	CustomerName    string
	CustomerPhone   string
	CustomerEmail   string
	OrderType       OrderType
	DeliveryAddress string
	DeliveryZone    DeliveryZone
	PaymentMethod   PaymentMethod
	Status          OrderStatus
	Subtotal        int64
	DeliveryFee     int64
	TotalAmount     int64
	Notes           string
	Lines           []OrderLine
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// OrderLine mirrors one priced cart line at the time of submission. Owned by
// its order: never written before the header exists, removed with it when a
// partial write is rolled back.
type OrderLine struct {
	ID        string
	OrderID   string
	ItemType  CatalogItemType
	ItemID    string
	ItemName  string
	Quantity  int
	UnitPrice int64
	Subtotal  int64
}

// CatalogItemType tags which catalog collection a cart line refers to.
type CatalogItemType string

const (
	// CatalogItemTypeMenu refers to the permanent menu.
	CatalogItemTypeMenu CatalogItemType = "menu_item"
	// CatalogItemTypeSpecial refers to the rotating daily specials.
	CatalogItemTypeSpecial CatalogItemType = "daily_special"
)

// MenuItem represents a permanent menu entry served by public endpoints and
// consulted as the pricing source of truth at submission time.
type MenuItem struct {
	ID            string
	Name          string
	Description   string
	Price         int64
	Category      string
	ImageURL      string
	IsAvailable   bool
	StockQuantity *int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// DailySpecial represents a rotating special offered on a given date.
type DailySpecial struct {
	ID            string
	Name          string
	Description   string
	Price         int64
	ImageURL      string
	IsAvailable   bool
	StockQuantity *int
	AvailableDate time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// CatalogItem is the pricing view of a menu item or daily special consumed by
// the submission flow. Price and availability here are authoritative.
type CatalogItem struct {
	ID            string
	Type          CatalogItemType
	Name          string
	Price         int64
	IsAvailable   bool
	StockQuantity *int
}

// FieldErrors maps input field names to user-displayable messages. Keys are
// stable identifiers the storefront binds to form fields; messages are
// presentation copy.
type FieldErrors map[string]string

// Add records a message for a field, keeping the first message when a field
// is reported twice.
func (f FieldErrors) Add(field, message string) {
	if _, ok := f[field]; !ok {
		f[field] = message
	}
}

const (
	// HealthStatusOK indicates all dependencies are healthy.
	HealthStatusOK = "ok"
	// HealthStatusDegraded indicates at least one dependency is degraded but service remains running.
	HealthStatusDegraded = "degraded"
	// HealthStatusError indicates the service or a critical dependency is unavailable.
	HealthStatusError = "error"
)

// SystemHealthCheck describes the outcome of an individual dependency probe.
type SystemHealthCheck struct {
	Status    string
	Detail    string
	Error     string
	Latency   time.Duration
	CheckedAt time.Time
}

// SystemHealthReport aggregates dependency status for health endpoints.
type SystemHealthReport struct {
	Status      string
	Checks      map[string]SystemHealthCheck
	Version     string
	CommitSHA   string
	Environment string
	Uptime      time.Duration
	GeneratedAt time.Time
}

// CursorPage packages list results with an encoded next token.
type CursorPage[T any] struct {
	Items         []T
	NextPageToken string
}
