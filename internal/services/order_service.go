package services

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/teranga-kitchen/api/internal/domain"
	"github.com/teranga-kitchen/api/internal/repositories"
)

const (
	orderEventCreated       = "order.created"
	orderEventStatusChanged = "order.status.changed"

	orderIDPrefix     = "ord_"
	orderLineIDPrefix = "oli_"
)

var orderStateTransitions = map[domain.OrderStatus][]domain.OrderStatus{
	domain.OrderStatusPending:   {domain.OrderStatusConfirmed, domain.OrderStatusCancelled},
	domain.OrderStatusConfirmed: {domain.OrderStatusPreparing, domain.OrderStatusCancelled},
	domain.OrderStatusPreparing: {domain.OrderStatusReady, domain.OrderStatusCancelled},
	domain.OrderStatusReady:     {domain.OrderStatusDelivered, domain.OrderStatusCancelled},
}

var knownOrderStatuses = []domain.OrderStatus{
	domain.OrderStatusPending,
	domain.OrderStatusConfirmed,
	domain.OrderStatusPreparing,
	domain.OrderStatusReady,
	domain.OrderStatusDelivered,
	domain.OrderStatusCancelled,
}

var terminalOrderStatuses = []domain.OrderStatus{
	domain.OrderStatusDelivered,
	domain.OrderStatusCancelled,
}

// OrderServiceDeps bundles collaborators required to construct the order service.
type OrderServiceDeps struct {
	Orders      repositories.OrderRepository
	Counters    repositories.CounterRepository
	Pricer      CartPricer
	UnitOfWork  repositories.UnitOfWork
	Policy      TransitionPolicy
	Clock       func() time.Time
	IDGenerator func() string
	Events      OrderEventPublisher
	Notifier    OrderNotifier
	Logger      func(ctx context.Context, event string, fields map[string]any)
}

type orderService struct {
	orders     repositories.OrderRepository
	counters   repositories.CounterRepository
	pricer     CartPricer
	unitOfWork repositories.UnitOfWork
	policy     TransitionPolicy
	clock      func() time.Time
	newID      func() string
	events     OrderEventPublisher
	notifier   OrderNotifier
	logger     func(context.Context, string, map[string]any)
}

// NewOrderService wires dependencies into a concrete OrderService implementation.
func NewOrderService(deps OrderServiceDeps) (OrderService, error) {
	if deps.Orders == nil {
		return nil, errors.New("order service: order repository is required")
	}
	if deps.Counters == nil {
		return nil, errors.New("order service: counter repository is required")
	}
	if deps.Pricer == nil {
		return nil, errors.New("order service: cart pricer is required")
	}

	policy := deps.Policy
	switch policy {
	case "":
		policy = TransitionPolicyStrict
	case TransitionPolicyStrict, TransitionPolicyPermissive:
	default:
		return nil, fmt.Errorf("order service: unknown transition policy %q", policy)
	}

	unit := deps.UnitOfWork
	if unit == nil {
		unit = noopUnitOfWork{}
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string {
			return ulid.Make().String()
		}
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &orderService{
		orders:     deps.Orders,
		counters:   deps.Counters,
		pricer:     deps.Pricer,
		unitOfWork: unit,
		policy:     policy,
		clock: func() time.Time {
			return clock().UTC()
		},
		newID:    idGen,
		events:   deps.Events,
		notifier: deps.Notifier,
		logger:   logger,
	}, nil
}

func (s *orderService) SubmitOrder(ctx context.Context, cmd SubmitOrderCommand) (Order, error) {
	validated, fields := validateSubmitOrder(cmd)
	if len(fields) > 0 {
		return Order{}, &ValidationError{Fields: fields}
	}

	breakdown, err := s.pricer.PriceCart(ctx, PriceCartCommand{
		Lines:        validated.Lines,
		OrderType:    validated.OrderType,
		DeliveryZone: validated.DeliveryZone,
	})
	if err != nil {
		return Order{}, err
	}

	now := s.now()
	order := Order{
		ID:              s.nextOrderID(),
		CustomerName:    validated.CustomerName,
		CustomerPhone:   validated.CustomerPhone,
		CustomerEmail:   validated.CustomerEmail,
		OrderType:       validated.OrderType,
		DeliveryAddress: validated.DeliveryAddress,
		DeliveryZone:    validated.DeliveryZone,
		PaymentMethod:   validated.PaymentMethod,
		Status:          domain.OrderStatusPending,
		Subtotal:        breakdown.Subtotal,
		DeliveryFee:     breakdown.DeliveryFee,
		TotalAmount:     breakdown.Total,
		Notes:           validated.Notes,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	number, err := s.generateOrderNumber(ctx, now)
	if err != nil {
		return Order{}, fmt.Errorf("%w: %v", ErrOrderPersistence, err)
	}
	order.OrderNumber = number
	order.Lines = s.buildOrderLines(order.ID, breakdown.Lines)

	if err := s.persistOrder(ctx, order); err != nil {
		return Order{}, err
	}

	s.publishEvent(ctx, OrderEvent{
		Type:          orderEventCreated,
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		CurrentStatus: string(order.Status),
		TotalAmount:   order.TotalAmount,
		OccurredAt:    now,
	})
	s.notifyCreated(ctx, order)

	return order, nil
}

// persistOrder writes the header then the lines. The two writes share a
// transaction when the unit of work provides one; without one, a failed line
// write triggers a compensating delete of the header so no order is ever
// readable without its lines.
func (s *orderService) persistOrder(ctx context.Context, order Order) error {
	headerInserted := false

	err := s.runInTx(ctx, func(txCtx context.Context) error {
		if err := s.orders.Insert(txCtx, order); err != nil {
			return s.mapRepositoryError(err)
		}
		headerInserted = true
		if err := s.orders.InsertLines(txCtx, order.ID, order.Lines); err != nil {
			return s.mapRepositoryError(err)
		}
		return nil
	})
	if err == nil {
		return nil
	}

	if headerInserted {
		if delErr := s.orders.Delete(ctx, order.ID); delErr != nil {
			s.logger(ctx, "order.compensation.failed", map[string]any{
				"order": order.ID,
				"error": delErr.Error(),
			})
		}
	}

	if errors.Is(err, ErrOrderConflict) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrOrderPersistence, err)
}

func (s *orderService) GetOrder(ctx context.Context, orderID string) (Order, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return Order{}, s.mapRepositoryError(err)
	}
	return order, nil
}

func (s *orderService) ListOrders(ctx context.Context, filter OrderListFilter) (domain.CursorPage[Order], error) {
	page, err := s.orders.List(ctx, filter)
	if err != nil {
		return domain.CursorPage[Order]{}, s.mapRepositoryError(err)
	}
	return page, nil
}

func (s *orderService) TransitionStatus(ctx context.Context, cmd OrderStatusTransitionCommand) (Order, error) {
	orderID := strings.TrimSpace(cmd.OrderID)
	target := domain.OrderStatus(strings.TrimSpace(string(cmd.TargetStatus)))

	if orderID == "" {
		return Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}
	if target == "" {
		return Order{}, fmt.Errorf("%w: target status is required", ErrOrderInvalidInput)
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return Order{}, s.mapRepositoryError(err)
	}

	if cmd.ExpectedStatus != nil && order.Status != *cmd.ExpectedStatus {
		return Order{}, fmt.Errorf("%w: expected status %q but was %q", ErrOrderConflict, *cmd.ExpectedStatus, order.Status)
	}

	if !s.canTransition(order.Status, target) {
		return Order{}, fmt.Errorf("%w: %s to %s", ErrOrderInvalidState, order.Status, target)
	}

	now := s.now()
	prev := order.Status

	update := repositories.OrderStatusUpdate{
		Status:         target,
		ExpectedStatus: &prev,
		UpdatedAt:      now,
	}
	updated, err := s.orders.UpdateStatus(ctx, orderID, update)
	if err != nil {
		return Order{}, s.mapRepositoryError(err)
	}
	updated.Lines = order.Lines

	metadata := map[string]any{}
	if reason := strings.TrimSpace(cmd.Reason); reason != "" {
		metadata["reason"] = reason
	}

	s.publishEvent(ctx, OrderEvent{
		Type:           orderEventStatusChanged,
		OrderID:        updated.ID,
		OrderNumber:    updated.OrderNumber,
		PreviousStatus: string(prev),
		CurrentStatus:  string(updated.Status),
		TotalAmount:    updated.TotalAmount,
		OccurredAt:     now,
		Metadata:       metadata,
	})
	s.notifyStatus(ctx, updated, prev)

	return updated, nil
}

func (s *orderService) Cancel(ctx context.Context, cmd CancelOrderCommand) (Order, error) {
	return s.TransitionStatus(ctx, OrderStatusTransitionCommand{
		OrderID:        cmd.OrderID,
		TargetStatus:   domain.OrderStatusCancelled,
		Reason:         cmd.Reason,
		ExpectedStatus: cmd.ExpectedStatus,
	})
}

// canTransition applies the configured policy. Terminal statuses never accept
// a transition under either policy, and the target must be a known status
// different from the current one.
func (s *orderService) canTransition(current, target domain.OrderStatus) bool {
	if slices.Contains(terminalOrderStatuses, current) {
		return false
	}
	if !slices.Contains(knownOrderStatuses, target) {
		return false
	}
	if current == target {
		return false
	}
	if s.policy == TransitionPolicyPermissive {
		return true
	}
	return slices.Contains(orderStateTransitions[current], target)
}

func (s *orderService) buildOrderLines(orderID string, priced []PricedLine) []OrderLine {
	lines := make([]OrderLine, 0, len(priced))
	for _, line := range priced {
		lines = append(lines, OrderLine{
			ID:        orderLineIDPrefix + s.newID(),
			OrderID:   orderID,
			ItemType:  line.ItemType,
			ItemID:    line.CatalogID,
			ItemName:  line.ItemName,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
			Subtotal:  line.Subtotal,
		})
	}
	return lines
}

func (s *orderService) mapRepositoryError(err error) error {
	if err == nil {
		return nil
	}

	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return fmt.Errorf("%w: %v", ErrOrderNotFound, err)
		case repoErr.IsConflict():
			return fmt.Errorf("%w: %v", ErrOrderConflict, err)
		case repoErr.IsUnavailable():
			return fmt.Errorf("order: repository unavailable: %w", err)
		}
	}

	return err
}

// generateOrderNumber draws the next sequence value from a per-year counter
// document, so numbering restarts at 000001 each January.
func (s *orderService) generateOrderNumber(ctx context.Context, now time.Time) (string, error) {
	year := now.UTC().Year()
	seq, err := s.counters.Next(ctx, fmt.Sprintf("orders-%d", year), 1)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("TK-%04d-%06d", year, seq), nil
}

func (s *orderService) runInTx(ctx context.Context, fn func(context.Context) error) error {
	if s.unitOfWork == nil {
		return fn(ctx)
	}
	return s.unitOfWork.RunInTx(ctx, fn)
}

func (s *orderService) now() time.Time {
	return s.clock()
}

func (s *orderService) nextOrderID() string {
	return orderIDPrefix + s.newID()
}

func (s *orderService) publishEvent(ctx context.Context, event OrderEvent) {
	if s.events == nil {
		return
	}
	if event.Metadata != nil {
		event.Metadata = maps.Clone(event.Metadata)
	}
	if err := s.events.PublishOrderEvent(ctx, event); err != nil {
		s.logger(ctx, "order.event.publish.failed", map[string]any{
			"type":   event.Type,
			"order":  event.OrderID,
			"error":  err.Error(),
			"status": event.CurrentStatus,
		})
	}
}

func (s *orderService) notifyCreated(ctx context.Context, order Order) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.NotifyOrderCreated(ctx, order); err != nil {
		s.logger(ctx, "order.notify.failed", map[string]any{
			"order": order.ID,
			"kind":  "created",
			"error": err.Error(),
		})
	}
}

func (s *orderService) notifyStatus(ctx context.Context, order Order, prev domain.OrderStatus) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.NotifyOrderStatus(ctx, order, prev); err != nil {
		s.logger(ctx, "order.notify.failed", map[string]any{
			"order": order.ID,
			"kind":  "status",
			"error": err.Error(),
		})
	}
}

type noopUnitOfWork struct{}

func (noopUnitOfWork) RunInTx(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}
