package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	domain "github.com/teranga-kitchen/api/internal/domain"
	"github.com/teranga-kitchen/api/internal/repositories"
)

type stubOrderRepo struct {
	insertFn       func(context.Context, domain.Order) error
	insertLinesFn  func(context.Context, string, []domain.OrderLine) error
	deleteFn       func(context.Context, string) error
	findFn         func(context.Context, string) (domain.Order, error)
	updateStatusFn func(context.Context, string, repositories.OrderStatusUpdate) (domain.Order, error)
	listFn         func(context.Context, repositories.OrderListFilter) (domain.CursorPage[domain.Order], error)
}

func (s *stubOrderRepo) Insert(ctx context.Context, order domain.Order) error {
	if s.insertFn != nil {
		return s.insertFn(ctx, order)
	}
	return nil
}

func (s *stubOrderRepo) InsertLines(ctx context.Context, orderID string, lines []domain.OrderLine) error {
	if s.insertLinesFn != nil {
		return s.insertLinesFn(ctx, orderID, lines)
	}
	return nil
}

func (s *stubOrderRepo) Delete(ctx context.Context, orderID string) error {
	if s.deleteFn != nil {
		return s.deleteFn(ctx, orderID)
	}
	return nil
}

func (s *stubOrderRepo) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	if s.findFn != nil {
		return s.findFn(ctx, orderID)
	}
	return domain.Order{}, errors.New("not implemented")
}

func (s *stubOrderRepo) UpdateStatus(ctx context.Context, orderID string, update repositories.OrderStatusUpdate) (domain.Order, error) {
	if s.updateStatusFn != nil {
		return s.updateStatusFn(ctx, orderID, update)
	}
	return domain.Order{}, errors.New("not implemented")
}

func (s *stubOrderRepo) List(ctx context.Context, filter repositories.OrderListFilter) (domain.CursorPage[domain.Order], error) {
	if s.listFn != nil {
		return s.listFn(ctx, filter)
	}
	return domain.CursorPage[domain.Order]{}, nil
}

type stubCounterRepo struct {
	nextFn func(context.Context, string, int64) (int64, error)
}

func (s *stubCounterRepo) Next(ctx context.Context, counterID string, step int64) (int64, error) {
	if s.nextFn != nil {
		return s.nextFn(ctx, counterID, step)
	}
	return 42, nil
}

func (s *stubCounterRepo) Configure(context.Context, string, repositories.CounterConfig) error {
	return nil
}

type stubCatalogRepo struct {
	items map[string]domain.CatalogItem
}

func (s *stubCatalogRepo) GetCatalogItem(_ context.Context, itemType domain.CatalogItemType, itemID string) (domain.CatalogItem, error) {
	item, ok := s.items[itemID]
	if !ok || item.Type != itemType {
		return domain.CatalogItem{}, repoError{notFound: true}
	}
	return item, nil
}

func (s *stubCatalogRepo) GetMenuItem(context.Context, string) (domain.MenuItem, error) {
	return domain.MenuItem{}, errors.New("not implemented")
}

func (s *stubCatalogRepo) GetDailySpecial(context.Context, string) (domain.DailySpecial, error) {
	return domain.DailySpecial{}, errors.New("not implemented")
}

func (s *stubCatalogRepo) ListMenuItems(context.Context, repositories.MenuItemFilter) (domain.CursorPage[domain.MenuItem], error) {
	return domain.CursorPage[domain.MenuItem]{}, errors.New("not implemented")
}

func (s *stubCatalogRepo) ListDailySpecials(context.Context, repositories.DailySpecialFilter) (domain.CursorPage[domain.DailySpecial], error) {
	return domain.CursorPage[domain.DailySpecial]{}, errors.New("not implemented")
}

type repoError struct {
	notFound    bool
	conflict    bool
	unavailable bool
}

func (e repoError) Error() string       { return "repo error" }
func (e repoError) IsNotFound() bool    { return e.notFound }
func (e repoError) IsConflict() bool    { return e.conflict }
func (e repoError) IsUnavailable() bool { return e.unavailable }

type captureOrderEvents struct {
	events []OrderEvent
}

func (c *captureOrderEvents) PublishOrderEvent(_ context.Context, event OrderEvent) error {
	c.events = append(c.events, event)
	return nil
}

type stubNotifier struct {
	createdFn func(context.Context, Order) error
	statusFn  func(context.Context, Order, OrderStatus) error

	created []Order
	status  []Order
}

func (s *stubNotifier) NotifyOrderCreated(ctx context.Context, order Order) error {
	s.created = append(s.created, order)
	if s.createdFn != nil {
		return s.createdFn(ctx, order)
	}
	return nil
}

func (s *stubNotifier) NotifyOrderStatus(ctx context.Context, order Order, prev OrderStatus) error {
	s.status = append(s.status, order)
	if s.statusFn != nil {
		return s.statusFn(ctx, order, prev)
	}
	return nil
}

type stubUnitOfWork struct {
	runFn func(context.Context, func(context.Context) error) error
}

func (s *stubUnitOfWork) RunInTx(ctx context.Context, fn func(context.Context) error) error {
	if s.runFn != nil {
		return s.runFn(ctx, fn)
	}
	return fn(ctx)
}

func testCatalog() *stubCatalogRepo {
	stock := 3
	return &stubCatalogRepo{items: map[string]domain.CatalogItem{
		"burger-1": {ID: "burger-1", Type: domain.CatalogItemTypeMenu, Name: "Burger Teranga", Price: 2500, IsAvailable: true},
		"thiof-1":  {ID: "thiof-1", Type: domain.CatalogItemTypeSpecial, Name: "Thiof braisé", Price: 4000, IsAvailable: true, StockQuantity: &stock},
		"mafe-1":   {ID: "mafe-1", Type: domain.CatalogItemTypeMenu, Name: "Mafé", Price: 3000, IsAvailable: false},
	}}
}

func testPricer(t *testing.T) CartPricer {
	t.Helper()
	pricer, err := NewCartPricingEngine(CartPricingEngineDeps{Catalog: testCatalog()})
	if err != nil {
		t.Fatalf("new pricing engine: %v", err)
	}
	return pricer
}

func pickupCommand(lines ...CartLine) SubmitOrderCommand {
	return SubmitOrderCommand{
		CustomerName:  "Awa Diop",
		CustomerPhone: "+221771234567",
		OrderType:     "pickup",
		PaymentMethod: "pay_at_arrival",
		Lines:         lines,
	}
}

func TestOrderServiceSubmitOrderPickup(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 5, 1, 9, 30, 0, 0, time.UTC)
	events := &captureOrderEvents{}
	notifier := &stubNotifier{}

	inserted := make([]domain.Order, 0, 1)
	var insertedLines []domain.OrderLine
	orderRepo := &stubOrderRepo{
		insertFn: func(_ context.Context, order domain.Order) error {
			inserted = append(inserted, order)
			return nil
		},
		insertLinesFn: func(_ context.Context, orderID string, lines []domain.OrderLine) error {
			if orderID != "ord_000TEST" {
				t.Fatalf("unexpected order id for lines %s", orderID)
			}
			insertedLines = lines
			return nil
		},
	}

	svc, err := NewOrderService(OrderServiceDeps{
		Orders:      orderRepo,
		Counters:    &stubCounterRepo{},
		Pricer:      testPricer(t),
		Clock:       func() time.Time { return now },
		IDGenerator: func() string { return "000TEST" },
		Events:      events,
		Notifier:    notifier,
	})
	if err != nil {
		t.Fatalf("new order service: %v", err)
	}

	// The declared price is deliberately wrong; the catalog price must win.
	order, err := svc.SubmitOrder(ctx, pickupCommand(CartLine{
		CatalogID:     "burger-1",
		ItemType:      domain.CatalogItemTypeMenu,
		DeclaredPrice: 1,
		Quantity:      2,
	}))
	if err != nil {
		t.Fatalf("submit order: %v", err)
	}

	if order.ID != "ord_000TEST" {
		t.Fatalf("unexpected order id %s", order.ID)
	}
	if order.Status != domain.OrderStatusPending {
		t.Fatalf("expected status pending got %s", order.Status)
	}
	if order.OrderNumber != "TK-2025-000042" {
		t.Fatalf("unexpected order number %s", order.OrderNumber)
	}
	if order.TotalAmount != 5000 || order.Subtotal != 5000 || order.DeliveryFee != 0 {
		t.Fatalf("unexpected totals %d/%d/%d", order.Subtotal, order.DeliveryFee, order.TotalAmount)
	}
	if len(inserted) != 1 {
		t.Fatalf("expected 1 inserted header got %d", len(inserted))
	}
	if len(insertedLines) != 1 {
		t.Fatalf("expected 1 inserted line got %d", len(insertedLines))
	}
	if insertedLines[0].UnitPrice != 2500 || insertedLines[0].Subtotal != 5000 {
		t.Fatalf("line priced from client payload: %+v", insertedLines[0])
	}
	if insertedLines[0].ItemName != "Burger Teranga" {
		t.Fatalf("unexpected line name %s", insertedLines[0].ItemName)
	}
	if len(events.events) != 1 || events.events[0].Type != orderEventCreated {
		t.Fatalf("unexpected events %+v", events.events)
	}
	if len(notifier.created) != 1 {
		t.Fatalf("expected 1 creation notification got %d", len(notifier.created))
	}
}

func TestOrderServiceSubmitOrderDelivery(t *testing.T) {
	ctx := context.Background()
	orderRepo := &stubOrderRepo{}

	svc, err := NewOrderService(OrderServiceDeps{
		Orders:   orderRepo,
		Counters: &stubCounterRepo{},
		Pricer:   testPricer(t),
	})
	if err != nil {
		t.Fatalf("new order service: %v", err)
	}

	cmd := pickupCommand(CartLine{CatalogID: "burger-1", ItemType: domain.CatalogItemTypeMenu, Quantity: 2})
	cmd.OrderType = "delivery"
	cmd.DeliveryZone = "yoff"
	cmd.DeliveryAddress = "123 Rue Test, Dakar"

	order, err := svc.SubmitOrder(ctx, cmd)
	if err != nil {
		t.Fatalf("submit order: %v", err)
	}
	if order.DeliveryFee != 2000 {
		t.Fatalf("expected fee 2000 got %d", order.DeliveryFee)
	}
	if order.TotalAmount != 7000 {
		t.Fatalf("expected total 7000 got %d", order.TotalAmount)
	}
	if order.DeliveryZone != domain.ZoneYoff {
		t.Fatalf("unexpected zone %s", order.DeliveryZone)
	}
}

func TestOrderServiceSubmitOrderInvalidPhone(t *testing.T) {
	ctx := context.Background()
	orderRepo := &stubOrderRepo{
		insertFn: func(context.Context, domain.Order) error {
			t.Fatal("insert must not be called for invalid input")
			return nil
		},
	}

	svc, err := NewOrderService(OrderServiceDeps{
		Orders:   orderRepo,
		Counters: &stubCounterRepo{},
		Pricer:   testPricer(t),
	})
	if err != nil {
		t.Fatalf("new order service: %v", err)
	}

	cmd := pickupCommand(CartLine{CatalogID: "burger-1", ItemType: domain.CatalogItemTypeMenu, Quantity: 1})
	cmd.CustomerPhone = "123"

	_, err = svc.SubmitOrder(ctx, cmd)
	if !errors.Is(err, ErrOrderValidation) {
		t.Fatalf("expected validation error got %v", err)
	}
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected *ValidationError got %T", err)
	}
	if _, ok := vErr.Fields["customerPhone"]; !ok {
		t.Fatalf("expected customerPhone field error, got %v", vErr.Fields)
	}
}

func TestOrderServiceSubmitOrderDeliveryFieldErrors(t *testing.T) {
	ctx := context.Background()
	svc, err := NewOrderService(OrderServiceDeps{
		Orders:   &stubOrderRepo{},
		Counters: &stubCounterRepo{},
		Pricer:   testPricer(t),
	})
	if err != nil {
		t.Fatalf("new order service: %v", err)
	}

	cmd := pickupCommand(CartLine{CatalogID: "burger-1", ItemType: domain.CatalogItemTypeMenu, Quantity: 1})
	cmd.OrderType = "delivery"

	_, err = svc.SubmitOrder(ctx, cmd)
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected validation error got %v", err)
	}
	if _, ok := vErr.Fields["deliveryAddress"]; !ok {
		t.Fatalf("expected deliveryAddress field error, got %v", vErr.Fields)
	}
	if _, ok := vErr.Fields["deliveryZone"]; !ok {
		t.Fatalf("expected deliveryZone field error, got %v", vErr.Fields)
	}

	// Pickup never requires either field.
	if _, err := svc.SubmitOrder(ctx, pickupCommand(CartLine{CatalogID: "burger-1", ItemType: domain.CatalogItemTypeMenu, Quantity: 1})); err != nil {
		t.Fatalf("pickup submit: %v", err)
	}
}

func TestOrderServiceSubmitOrderCartBounds(t *testing.T) {
	ctx := context.Background()
	svc, err := NewOrderService(OrderServiceDeps{
		Orders:   &stubOrderRepo{},
		Counters: &stubCounterRepo{},
		Pricer:   testPricer(t),
	})
	if err != nil {
		t.Fatalf("new order service: %v", err)
	}

	_, err = svc.SubmitOrder(ctx, pickupCommand())
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected validation error for empty cart got %v", err)
	}
	if _, ok := vErr.Fields["items"]; !ok {
		t.Fatalf("expected items field error, got %v", vErr.Fields)
	}

	build := func(n int) []CartLine {
		lines := make([]CartLine, 0, n)
		for i := 0; i < n; i++ {
			lines = append(lines, CartLine{CatalogID: "burger-1", ItemType: domain.CatalogItemTypeMenu, Quantity: 1})
		}
		return lines
	}

	if _, err := svc.SubmitOrder(ctx, pickupCommand(build(50)...)); err != nil {
		t.Fatalf("50 lines must be accepted: %v", err)
	}

	_, err = svc.SubmitOrder(ctx, pickupCommand(build(51)...))
	if !errors.Is(err, ErrCartRejected) {
		t.Fatalf("expected cart rejection for 51 lines got %v", err)
	}
	var cErr *CartRejectionError
	if !errors.As(err, &cErr) || cErr.Reason != CartRejectTooLarge {
		t.Fatalf("expected cart_too_large got %v", err)
	}
}

func TestOrderServiceSubmitOrderCompensatesFailedLines(t *testing.T) {
	ctx := context.Background()
	deleted := make([]string, 0, 1)

	orderRepo := &stubOrderRepo{
		insertLinesFn: func(context.Context, string, []domain.OrderLine) error {
			return repoError{unavailable: true}
		},
		deleteFn: func(_ context.Context, orderID string) error {
			deleted = append(deleted, orderID)
			return nil
		},
	}

	notifier := &stubNotifier{}
	svc, err := NewOrderService(OrderServiceDeps{
		Orders:      orderRepo,
		Counters:    &stubCounterRepo{},
		Pricer:      testPricer(t),
		IDGenerator: func() string { return "000TEST" },
		Notifier:    notifier,
	})
	if err != nil {
		t.Fatalf("new order service: %v", err)
	}

	_, err = svc.SubmitOrder(ctx, pickupCommand(CartLine{CatalogID: "burger-1", ItemType: domain.CatalogItemTypeMenu, Quantity: 1}))
	if !errors.Is(err, ErrOrderPersistence) {
		t.Fatalf("expected persistence error got %v", err)
	}
	if len(deleted) != 1 || deleted[0] != "ord_000TEST" {
		t.Fatalf("expected compensating delete of ord_000TEST, got %v", deleted)
	}
	if len(notifier.created) != 0 {
		t.Fatalf("no notification expected for failed submit")
	}
}

func TestOrderServiceSubmitOrderHeaderFailureSkipsCompensation(t *testing.T) {
	ctx := context.Background()
	orderRepo := &stubOrderRepo{
		insertFn: func(context.Context, domain.Order) error {
			return repoError{unavailable: true}
		},
		deleteFn: func(context.Context, string) error {
			t.Fatal("delete must not run when the header never committed")
			return nil
		},
	}

	svc, err := NewOrderService(OrderServiceDeps{
		Orders:   orderRepo,
		Counters: &stubCounterRepo{},
		Pricer:   testPricer(t),
	})
	if err != nil {
		t.Fatalf("new order service: %v", err)
	}

	_, err = svc.SubmitOrder(ctx, pickupCommand(CartLine{CatalogID: "burger-1", ItemType: domain.CatalogItemTypeMenu, Quantity: 1}))
	if !errors.Is(err, ErrOrderPersistence) {
		t.Fatalf("expected persistence error got %v", err)
	}
}

func TestOrderServiceSubmitOrderNotifierFailureIsSwallowed(t *testing.T) {
	ctx := context.Background()
	logged := make([]string, 0, 1)

	notifier := &stubNotifier{
		createdFn: func(context.Context, Order) error {
			return errors.New("whatsapp down")
		},
	}

	svc, err := NewOrderService(OrderServiceDeps{
		Orders:   &stubOrderRepo{},
		Counters: &stubCounterRepo{},
		Pricer:   testPricer(t),
		Notifier: notifier,
		Logger: func(_ context.Context, event string, _ map[string]any) {
			logged = append(logged, event)
		},
	})
	if err != nil {
		t.Fatalf("new order service: %v", err)
	}

	order, err := svc.SubmitOrder(ctx, pickupCommand(CartLine{CatalogID: "burger-1", ItemType: domain.CatalogItemTypeMenu, Quantity: 1}))
	if err != nil {
		t.Fatalf("submit must succeed despite notifier failure: %v", err)
	}
	if order.Status != domain.OrderStatusPending {
		t.Fatalf("unexpected status %s", order.Status)
	}
	found := false
	for _, event := range logged {
		if event == "order.notify.failed" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected order.notify.failed log, got %v", logged)
	}
}

func transitionFixture(status domain.OrderStatus) domain.Order {
	return domain.Order{
		ID:            "ord_1",
		OrderNumber:   "TK-2025-000001",
		CustomerName:  "Awa Diop",
		CustomerPhone: "+221771234567",
		OrderType:     domain.OrderTypePickup,
		PaymentMethod: domain.PaymentMethodPayAtArrival,
		Status:        status,
		TotalAmount:   5000,
	}
}

func newTransitionService(t *testing.T, repo *stubOrderRepo, policy TransitionPolicy, notifier *stubNotifier, events *captureOrderEvents) OrderService {
	t.Helper()
	deps := OrderServiceDeps{
		Orders:   repo,
		Counters: &stubCounterRepo{},
		Pricer:   testPricer(t),
		Policy:   policy,
	}
	if notifier != nil {
		deps.Notifier = notifier
	}
	if events != nil {
		deps.Events = events
	}
	svc, err := NewOrderService(deps)
	if err != nil {
		t.Fatalf("new order service: %v", err)
	}
	return svc
}

func TestOrderServiceTransitionToCancelled(t *testing.T) {
	ctx := context.Background()
	events := &captureOrderEvents{}
	notifier := &stubNotifier{}

	repo := &stubOrderRepo{
		findFn: func(_ context.Context, orderID string) (domain.Order, error) {
			return transitionFixture(domain.OrderStatusPending), nil
		},
		updateStatusFn: func(_ context.Context, orderID string, update repositories.OrderStatusUpdate) (domain.Order, error) {
			if update.Status != domain.OrderStatusCancelled {
				t.Fatalf("unexpected target %s", update.Status)
			}
			if update.ExpectedStatus == nil || *update.ExpectedStatus != domain.OrderStatusPending {
				t.Fatalf("expected optimistic check against pending")
			}
			order := transitionFixture(update.Status)
			order.UpdatedAt = update.UpdatedAt
			return order, nil
		},
	}

	svc := newTransitionService(t, repo, TransitionPolicyStrict, notifier, events)

	order, err := svc.TransitionStatus(ctx, OrderStatusTransitionCommand{
		OrderID:      "ord_1",
		TargetStatus: domain.OrderStatusCancelled,
		Reason:       "client a annulé",
	})
	if err != nil {
		t.Fatalf("transition: %v", err)
	}
	if order.Status != domain.OrderStatusCancelled {
		t.Fatalf("unexpected status %s", order.Status)
	}
	if len(notifier.status) != 1 {
		t.Fatalf("expected exactly one notification got %d", len(notifier.status))
	}
	if len(events.events) != 1 || events.events[0].PreviousStatus != string(domain.OrderStatusPending) {
		t.Fatalf("unexpected events %+v", events.events)
	}
	if events.events[0].Metadata["reason"] != "client a annulé" {
		t.Fatalf("expected reason in event metadata")
	}
}

func TestOrderServiceTransitionTerminalStates(t *testing.T) {
	ctx := context.Background()

	for _, terminal := range []domain.OrderStatus{domain.OrderStatusDelivered, domain.OrderStatusCancelled} {
		repo := &stubOrderRepo{
			findFn: func(context.Context, string) (domain.Order, error) {
				return transitionFixture(terminal), nil
			},
			updateStatusFn: func(context.Context, string, repositories.OrderStatusUpdate) (domain.Order, error) {
				t.Fatalf("terminal status %s must never be written", terminal)
				return domain.Order{}, nil
			},
		}
		notifier := &stubNotifier{}
		svc := newTransitionService(t, repo, TransitionPolicyStrict, notifier, nil)

		for _, target := range []domain.OrderStatus{domain.OrderStatusPending, domain.OrderStatusConfirmed, domain.OrderStatusCancelled, domain.OrderStatusDelivered} {
			_, err := svc.TransitionStatus(ctx, OrderStatusTransitionCommand{OrderID: "ord_1", TargetStatus: target})
			if !errors.Is(err, ErrOrderInvalidState) {
				t.Fatalf("%s to %s: expected invalid state got %v", terminal, target, err)
			}
		}
		if len(notifier.status) != 0 {
			t.Fatalf("no notification expected for rejected transitions")
		}
	}
}

func TestOrderServiceTransitionStrictPolicy(t *testing.T) {
	ctx := context.Background()
	repo := &stubOrderRepo{
		findFn: func(context.Context, string) (domain.Order, error) {
			return transitionFixture(domain.OrderStatusPending), nil
		},
		updateStatusFn: func(_ context.Context, _ string, update repositories.OrderStatusUpdate) (domain.Order, error) {
			return transitionFixture(update.Status), nil
		},
	}
	svc := newTransitionService(t, repo, TransitionPolicyStrict, nil, nil)

	if _, err := svc.TransitionStatus(ctx, OrderStatusTransitionCommand{OrderID: "ord_1", TargetStatus: domain.OrderStatusReady}); !errors.Is(err, ErrOrderInvalidState) {
		t.Fatalf("strict policy must reject pending to ready, got %v", err)
	}
	if _, err := svc.TransitionStatus(ctx, OrderStatusTransitionCommand{OrderID: "ord_1", TargetStatus: domain.OrderStatusConfirmed}); err != nil {
		t.Fatalf("pending to confirmed: %v", err)
	}
}

func TestOrderServiceTransitionPermissivePolicy(t *testing.T) {
	ctx := context.Background()
	repo := &stubOrderRepo{
		findFn: func(context.Context, string) (domain.Order, error) {
			return transitionFixture(domain.OrderStatusPending), nil
		},
		updateStatusFn: func(_ context.Context, _ string, update repositories.OrderStatusUpdate) (domain.Order, error) {
			return transitionFixture(update.Status), nil
		},
	}
	svc := newTransitionService(t, repo, TransitionPolicyPermissive, nil, nil)

	if _, err := svc.TransitionStatus(ctx, OrderStatusTransitionCommand{OrderID: "ord_1", TargetStatus: domain.OrderStatusReady}); err != nil {
		t.Fatalf("permissive policy must allow pending to ready: %v", err)
	}
	if _, err := svc.TransitionStatus(ctx, OrderStatusTransitionCommand{OrderID: "ord_1", TargetStatus: "unknown"}); !errors.Is(err, ErrOrderInvalidState) {
		t.Fatalf("unknown status must be rejected, got %v", err)
	}
}

func TestOrderServiceTransitionExpectedStatusMismatch(t *testing.T) {
	ctx := context.Background()
	repo := &stubOrderRepo{
		findFn: func(context.Context, string) (domain.Order, error) {
			return transitionFixture(domain.OrderStatusPending), nil
		},
	}
	svc := newTransitionService(t, repo, TransitionPolicyStrict, nil, nil)

	expected := domain.OrderStatusConfirmed
	_, err := svc.TransitionStatus(ctx, OrderStatusTransitionCommand{
		OrderID:        "ord_1",
		TargetStatus:   domain.OrderStatusPreparing,
		ExpectedStatus: &expected,
	})
	if !errors.Is(err, ErrOrderConflict) {
		t.Fatalf("expected conflict got %v", err)
	}
}

func TestOrderServiceTransitionNotFound(t *testing.T) {
	ctx := context.Background()
	repo := &stubOrderRepo{
		findFn: func(context.Context, string) (domain.Order, error) {
			return domain.Order{}, repoError{notFound: true}
		},
	}
	svc := newTransitionService(t, repo, TransitionPolicyStrict, nil, nil)

	_, err := svc.TransitionStatus(ctx, OrderStatusTransitionCommand{OrderID: "missing", TargetStatus: domain.OrderStatusConfirmed})
	if !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected not found got %v", err)
	}
}

func TestOrderServiceCancelDelegatesToTransition(t *testing.T) {
	ctx := context.Background()
	notifier := &stubNotifier{}
	repo := &stubOrderRepo{
		findFn: func(context.Context, string) (domain.Order, error) {
			return transitionFixture(domain.OrderStatusPreparing), nil
		},
		updateStatusFn: func(_ context.Context, _ string, update repositories.OrderStatusUpdate) (domain.Order, error) {
			return transitionFixture(update.Status), nil
		},
	}
	svc := newTransitionService(t, repo, TransitionPolicyStrict, notifier, nil)

	order, err := svc.Cancel(ctx, CancelOrderCommand{OrderID: "ord_1", Reason: "rupture de stock"})
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if order.Status != domain.OrderStatusCancelled {
		t.Fatalf("unexpected status %s", order.Status)
	}
	if len(notifier.status) != 1 {
		t.Fatalf("expected exactly one notification got %d", len(notifier.status))
	}
}

func TestOrderServiceListOrders(t *testing.T) {
	ctx := context.Background()
	repo := &stubOrderRepo{
		listFn: func(_ context.Context, filter repositories.OrderListFilter) (domain.CursorPage[domain.Order], error) {
			if len(filter.Status) != 1 || filter.Status[0] != "pending" {
				t.Fatalf("unexpected filter %+v", filter)
			}
			return domain.CursorPage[domain.Order]{
				Items:         []domain.Order{transitionFixture(domain.OrderStatusPending)},
				NextPageToken: "next",
			}, nil
		},
	}
	svc := newTransitionService(t, repo, TransitionPolicyStrict, nil, nil)

	page, err := svc.ListOrders(ctx, OrderListFilter{Status: []string{"pending"}})
	if err != nil {
		t.Fatalf("list orders: %v", err)
	}
	if len(page.Items) != 1 || page.NextPageToken != "next" {
		t.Fatalf("unexpected page %+v", page)
	}
}

func TestOrderServiceOrderNumberSequence(t *testing.T) {
	ctx := context.Background()
	seq := int64(0)
	counters := &stubCounterRepo{
		nextFn: func(_ context.Context, counterID string, step int64) (int64, error) {
			if counterID != "orders-2025" || step != 1 {
				t.Fatalf("unexpected counter call %s/%d", counterID, step)
			}
			seq++
			return seq, nil
		},
	}

	svc, err := NewOrderService(OrderServiceDeps{
		Orders:   &stubOrderRepo{},
		Counters: counters,
		Pricer:   testPricer(t),
		Clock:    func() time.Time { return time.Date(2025, 5, 1, 9, 30, 0, 0, time.UTC) },
	})
	if err != nil {
		t.Fatalf("new order service: %v", err)
	}

	for i := 1; i <= 2; i++ {
		order, err := svc.SubmitOrder(ctx, pickupCommand(CartLine{CatalogID: "burger-1", ItemType: domain.CatalogItemTypeMenu, Quantity: 1}))
		if err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
		want := fmt.Sprintf("TK-2025-%06d", i)
		if order.OrderNumber != want {
			t.Fatalf("expected %s got %s", want, order.OrderNumber)
		}
	}
}

func TestOrderServiceOrderNumberRestartsEachYear(t *testing.T) {
	ctx := context.Background()
	sequences := map[string]int64{}
	counters := &stubCounterRepo{
		nextFn: func(_ context.Context, counterID string, step int64) (int64, error) {
			if step != 1 {
				t.Fatalf("unexpected step %d", step)
			}
			sequences[counterID]++
			return sequences[counterID], nil
		},
	}

	now := time.Date(2025, 12, 31, 23, 55, 0, 0, time.UTC)
	svc, err := NewOrderService(OrderServiceDeps{
		Orders:   &stubOrderRepo{},
		Counters: counters,
		Pricer:   testPricer(t),
		Clock:    func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("new order service: %v", err)
	}

	order, err := svc.SubmitOrder(ctx, pickupCommand(CartLine{CatalogID: "burger-1", ItemType: domain.CatalogItemTypeMenu, Quantity: 1}))
	if err != nil {
		t.Fatalf("submit before midnight: %v", err)
	}
	if order.OrderNumber != "TK-2025-000001" {
		t.Fatalf("expected TK-2025-000001, got %s", order.OrderNumber)
	}

	now = time.Date(2026, 1, 1, 0, 5, 0, 0, time.UTC)
	order, err = svc.SubmitOrder(ctx, pickupCommand(CartLine{CatalogID: "burger-1", ItemType: domain.CatalogItemTypeMenu, Quantity: 1}))
	if err != nil {
		t.Fatalf("submit after midnight: %v", err)
	}
	if order.OrderNumber != "TK-2026-000001" {
		t.Fatalf("expected yearly sequence to restart, got %s", order.OrderNumber)
	}

	if sequences["orders-2025"] != 1 || sequences["orders-2026"] != 1 {
		t.Fatalf("expected one draw per yearly counter, got %v", sequences)
	}
}
