package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	domain "github.com/teranga-kitchen/api/internal/domain"
	pfirestore "github.com/teranga-kitchen/api/internal/platform/firestore"
	"github.com/teranga-kitchen/api/internal/platform/pagination"
	"github.com/teranga-kitchen/api/internal/repositories"
)

const (
	ordersCollection     = "orders"
	orderLinesCollection = "lines"

	defaultOrderPageSize = 50
	maxOrderPageSize     = 100
)

type orderDocument struct {
	OrderNumber     string    `firestore:"orderNumber"`
	CustomerName    string    `firestore:"customerName"`
	CustomerPhone   string    `firestore:"customerPhone"`
	CustomerEmail   string    `firestore:"customerEmail,omitempty"`
	OrderType       string    `firestore:"orderType"`
	DeliveryAddress string    `firestore:"deliveryAddress,omitempty"`
	DeliveryZone    string    `firestore:"deliveryZone,omitempty"`
	PaymentMethod   string    `firestore:"paymentMethod"`
	Status          string    `firestore:"status"`
	Subtotal        int64     `firestore:"subtotal"`
	DeliveryFee     int64     `firestore:"deliveryFee"`
	TotalAmount     int64     `firestore:"totalAmount"`
	Notes           string    `firestore:"notes,omitempty"`
	CreatedAt       time.Time `firestore:"createdAt"`
	UpdatedAt       time.Time `firestore:"updatedAt"`
}

type orderLineDocument struct {
	ItemType  string `firestore:"itemType"`
	ItemID    string `firestore:"itemId"`
	ItemName  string `firestore:"itemName"`
	Quantity  int    `firestore:"quantity"`
	UnitPrice int64  `firestore:"unitPrice"`
	Subtotal  int64  `firestore:"subtotal"`
	Position  int    `firestore:"position"`
}

// OrderRepository persists order headers with their line items in a Firestore
// subcollection.
type OrderRepository struct {
	provider *pfirestore.Provider
	base     *pfirestore.BaseRepository[orderDocument]
}

// NewOrderRepository constructs a Firestore-backed order repository.
func NewOrderRepository(provider *pfirestore.Provider) (*OrderRepository, error) {
	if provider == nil {
		return nil, errors.New("order repository requires firestore provider")
	}
	base := pfirestore.NewBaseRepository[orderDocument](provider, ordersCollection, nil, nil)
	return &OrderRepository{
		provider: provider,
		base:     base,
	}, nil
}

// Insert creates the order header document. It fails when a document with the
// same ID already exists.
func (r *OrderRepository) Insert(ctx context.Context, order domain.Order) error {
	if r == nil || r.base == nil {
		return errors.New("order repository not initialised")
	}
	id := strings.TrimSpace(order.ID)
	if id == "" {
		return errors.New("order repository: order id is required")
	}

	ref, err := r.base.DocumentRef(ctx, id)
	if err != nil {
		return err
	}
	if err := createDocument(ctx, ref, encodeOrder(order)); err != nil {
		return pfirestore.WrapError("orders.insert", err)
	}
	return nil
}

// InsertLines writes line documents under the order header. Line positions
// preserve the submitted cart order.
func (r *OrderRepository) InsertLines(ctx context.Context, orderID string, lines []domain.OrderLine) error {
	if r == nil || r.base == nil {
		return errors.New("order repository not initialised")
	}
	id := strings.TrimSpace(orderID)
	if id == "" {
		return errors.New("order repository: order id is required")
	}
	if len(lines) == 0 {
		return errors.New("order repository: at least one line is required")
	}

	ref, err := r.base.DocumentRef(ctx, id)
	if err != nil {
		return err
	}

	for i, line := range lines {
		lineID := strings.TrimSpace(line.ID)
		if lineID == "" {
			return fmt.Errorf("order repository: line %d is missing an id", i)
		}
		doc := orderLineDocument{
			ItemType:  string(line.ItemType),
			ItemID:    line.ItemID,
			ItemName:  line.ItemName,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
			Subtotal:  line.Subtotal,
			Position:  i,
		}
		if err := createDocument(ctx, ref.Collection(orderLinesCollection).Doc(lineID), doc); err != nil {
			return pfirestore.WrapError("orders.insert_lines", err)
		}
	}
	return nil
}

// Delete removes the order header together with any lines already written.
func (r *OrderRepository) Delete(ctx context.Context, orderID string) error {
	if r == nil || r.base == nil {
		return errors.New("order repository not initialised")
	}
	ref, err := r.base.DocumentRef(ctx, strings.TrimSpace(orderID))
	if err != nil {
		return err
	}

	iter := ref.Collection(orderLinesCollection).Documents(ctx)
	defer iter.Stop()
	for {
		snapshot, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return pfirestore.WrapError("orders.delete", err)
		}
		if _, err := snapshot.Ref.Delete(ctx); err != nil {
			return pfirestore.WrapError("orders.delete", err)
		}
	}

	if _, err := ref.Delete(ctx); err != nil {
		return pfirestore.WrapError("orders.delete", err)
	}
	return nil
}

// FindByID loads the order header and its lines.
func (r *OrderRepository) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	if r == nil || r.base == nil {
		return domain.Order{}, errors.New("order repository not initialised")
	}

	doc, err := r.base.Get(ctx, strings.TrimSpace(orderID))
	if err != nil {
		return domain.Order{}, err
	}

	order := decodeOrder(doc.ID, doc.Data)
	lines, err := r.loadLines(ctx, doc.ID)
	if err != nil {
		return domain.Order{}, err
	}
	order.Lines = lines
	return order, nil
}

// UpdateStatus writes the new status inside a transaction. When the update
// carries an expected status and the stored document no longer matches, the
// write is rejected as a conflict.
func (r *OrderRepository) UpdateStatus(ctx context.Context, orderID string, update repositories.OrderStatusUpdate) (domain.Order, error) {
	if r == nil || r.provider == nil {
		return domain.Order{}, errors.New("order repository not initialised")
	}
	id := strings.TrimSpace(orderID)
	if id == "" {
		return domain.Order{}, errors.New("order repository: order id is required")
	}

	updatedAt := update.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}

	var saved domain.Order
	err := r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		ref, err := r.base.DocumentRef(ctx, id)
		if err != nil {
			return err
		}

		snapshot, err := tx.Get(ref)
		if err != nil {
			return err
		}

		var doc orderDocument
		if err := snapshot.DataTo(&doc); err != nil {
			return fmt.Errorf("firestore orders decode %s: %w", id, err)
		}

		if update.ExpectedStatus != nil && doc.Status != string(*update.ExpectedStatus) {
			return status.Errorf(codes.FailedPrecondition, "order %s status is %s, expected %s", id, doc.Status, *update.ExpectedStatus)
		}

		doc.Status = string(update.Status)
		doc.UpdatedAt = updatedAt
		if err := tx.Set(ref, doc); err != nil {
			return err
		}
		saved = decodeOrder(id, doc)
		return nil
	})
	if err != nil {
		return domain.Order{}, pfirestore.WrapError("orders.update_status", err)
	}

	lines, err := r.loadLines(ctx, id)
	if err != nil {
		return domain.Order{}, err
	}
	saved.Lines = lines
	return saved, nil
}

// List returns orders newest first with their line items, with optional
// status and date filtering. Page tokens carry the creation timestamp and ID
// of the last returned order.
func (r *OrderRepository) List(ctx context.Context, filter repositories.OrderListFilter) (domain.CursorPage[domain.Order], error) {
	if r == nil || r.base == nil {
		return domain.CursorPage[domain.Order]{}, errors.New("order repository not initialised")
	}

	pageSize := filter.Pagination.PageSize
	if pageSize <= 0 {
		pageSize = defaultOrderPageSize
	}
	if pageSize > maxOrderPageSize {
		pageSize = maxOrderPageSize
	}

	cursor, err := pagination.DecodeToken(filter.Pagination.PageToken)
	if err != nil {
		return domain.CursorPage[domain.Order]{}, err
	}

	docs, err := r.base.Query(ctx, func(query firestore.Query) firestore.Query {
		if len(filter.Status) > 0 {
			query = query.Where("status", "in", filter.Status)
		}
		if filter.DateRange.From != nil {
			query = query.Where("createdAt", ">=", filter.DateRange.From.UTC())
		}
		if filter.DateRange.To != nil {
			query = query.Where("createdAt", "<", filter.DateRange.To.UTC())
		}
		query = query.
			OrderBy("createdAt", firestore.Desc).
			OrderBy(firestore.DocumentID, firestore.Desc)
		if len(cursor.StartAfter) > 0 {
			query = query.StartAfter(cursor.StartAfter...)
		}
		return query.Limit(pageSize + 1)
	})
	if err != nil {
		return domain.CursorPage[domain.Order]{}, err
	}

	hasMore := len(docs) > pageSize
	if hasMore {
		docs = docs[:pageSize]
	}

	page := domain.CursorPage[domain.Order]{Items: make([]domain.Order, 0, len(docs))}
	for _, doc := range docs {
		order := decodeOrder(doc.ID, doc.Data)
		lines, err := r.loadLines(ctx, doc.ID)
		if err != nil {
			return domain.CursorPage[domain.Order]{}, err
		}
		order.Lines = lines
		page.Items = append(page.Items, order)
	}

	if hasMore && len(docs) > 0 {
		last := docs[len(docs)-1]
		token, err := pagination.EncodeToken(pagination.Cursor{
			StartAfter: []any{last.Data.CreatedAt, last.ID},
		})
		if err != nil {
			return domain.CursorPage[domain.Order]{}, err
		}
		page.NextPageToken = token
	}
	return page, nil
}

// createDocument joins the surrounding transaction when one is attached to
// the context, otherwise it commits the write directly.
func createDocument(ctx context.Context, ref *firestore.DocumentRef, doc any) error {
	if tx, ok := pfirestore.TxFromContext(ctx); ok {
		return tx.Create(ref, doc)
	}
	_, err := ref.Create(ctx, doc)
	return err
}

func (r *OrderRepository) loadLines(ctx context.Context, orderID string) ([]domain.OrderLine, error) {
	ref, err := r.base.DocumentRef(ctx, orderID)
	if err != nil {
		return nil, err
	}

	iter := ref.Collection(orderLinesCollection).OrderBy("position", firestore.Asc).Documents(ctx)
	defer iter.Stop()

	var lines []domain.OrderLine
	for {
		snapshot, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, pfirestore.WrapError("orders.lines", err)
		}
		var doc orderLineDocument
		if err := snapshot.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("firestore order lines decode %s: %w", snapshot.Ref.ID, err)
		}
		lines = append(lines, domain.OrderLine{
			ID:        snapshot.Ref.ID,
			OrderID:   orderID,
			ItemType:  domain.CatalogItemType(doc.ItemType),
			ItemID:    doc.ItemID,
			ItemName:  doc.ItemName,
			Quantity:  doc.Quantity,
			UnitPrice: doc.UnitPrice,
			Subtotal:  doc.Subtotal,
		})
	}
	return lines, nil
}

func encodeOrder(order domain.Order) orderDocument {
	return orderDocument{
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
		CreatedAt:       order.CreatedAt.UTC(),
		UpdatedAt:       order.UpdatedAt.UTC(),
	}
}

func decodeOrder(id string, doc orderDocument) domain.Order {
	return domain.Order{
		ID:              id,
		OrderNumber:     doc.OrderNumber,
		CustomerName:    doc.CustomerName,
		CustomerPhone:   doc.CustomerPhone,
		CustomerEmail:   doc.CustomerEmail,
		OrderType:       domain.OrderType(doc.OrderType),
		DeliveryAddress: doc.DeliveryAddress,
		DeliveryZone:    domain.DeliveryZone(doc.DeliveryZone),
		PaymentMethod:   domain.PaymentMethod(doc.PaymentMethod),
		Status:          domain.OrderStatus(doc.Status),
		Subtotal:        doc.Subtotal,
		DeliveryFee:     doc.DeliveryFee,
		TotalAmount:     doc.TotalAmount,
		Notes:           doc.Notes,
		Lines:           []domain.OrderLine{},
		CreatedAt:       doc.CreatedAt,
		UpdatedAt:       doc.UpdatedAt,
	}
}

var _ repositories.OrderRepository = (*OrderRepository)(nil)
