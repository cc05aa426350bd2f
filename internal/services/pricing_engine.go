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

// maxCartLines bounds how many distinct lines one order may carry. Oversized
// carts are refused wholesale before any catalog lookup or write.
const maxCartLines = 50

// CartPricingEngine re-derives every line's unit price from the catalog and
// rolls up the order totals. Client-declared prices are never consulted.
type CartPricingEngine struct {
	catalog repositories.CatalogRepository
	logger  func(context.Context, string, map[string]any)
}

type CartPricingEngineDeps struct {
	Catalog repositories.CatalogRepository
	Logger  func(context.Context, string, map[string]any)
}

func NewCartPricingEngine(deps CartPricingEngineDeps) (*CartPricingEngine, error) {
	if deps.Catalog == nil {
		return nil, errors.New("cart pricing engine: catalog repository is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &CartPricingEngine{
		catalog: deps.Catalog,
		logger:  logger,
	}, nil
}

// PriceCart verifies and prices every line, then adds the zone fee when the
// order is a delivery. Any single bad line rejects the whole cart; no order
// is ever priced partially.
func (e *CartPricingEngine) PriceCart(ctx context.Context, cmd PriceCartCommand) (PricingBreakdown, error) {
	if len(cmd.Lines) == 0 {
		return PricingBreakdown{}, fmt.Errorf("%w: cart must contain at least one line", ErrOrderInvalidInput)
	}
	if len(cmd.Lines) > maxCartLines {
		return PricingBreakdown{}, &CartRejectionError{Reason: CartRejectTooLarge}
	}

	priced := make([]PricedLine, 0, len(cmd.Lines))
	var subtotal int64

	for _, line := range cmd.Lines {
		if line.Quantity < 1 {
			return PricingBreakdown{}, fmt.Errorf("%w: quantity must be a positive integer", ErrOrderInvalidInput)
		}

		item, err := e.lookupItem(ctx, line)
		if err != nil {
			return PricingBreakdown{}, err
		}

		if !item.IsAvailable {
			return PricingBreakdown{}, &CartRejectionError{Reason: CartRejectItemUnavailable, ItemID: item.ID}
		}
		if item.StockQuantity != nil && *item.StockQuantity < line.Quantity {
			return PricingBreakdown{}, &CartRejectionError{Reason: CartRejectOutOfStock, ItemID: item.ID}
		}

		if line.DeclaredPrice != 0 && line.DeclaredPrice != item.Price {
			e.logger(ctx, "cart.price.mismatch", map[string]any{
				"item":     item.ID,
				"declared": line.DeclaredPrice,
				"catalog":  item.Price,
			})
		}

		lineSubtotal := item.Price * int64(line.Quantity)
		priced = append(priced, PricedLine{
			CatalogID: item.ID,
			ItemType:  item.Type,
			ItemName:  item.Name,
			Quantity:  line.Quantity,
			UnitPrice: item.Price,
			Subtotal:  lineSubtotal,
		})
		subtotal += lineSubtotal
	}

	var fee int64
	if cmd.OrderType == domain.OrderTypeDelivery {
		fee = domain.DeliveryFee(cmd.DeliveryZone)
	}

	return PricingBreakdown{
		Subtotal:    subtotal,
		DeliveryFee: fee,
		Total:       subtotal + fee,
		Lines:       priced,
	}, nil
}

func (e *CartPricingEngine) lookupItem(ctx context.Context, line CartLine) (CatalogItem, error) {
	itemID := strings.TrimSpace(line.CatalogID)
	if itemID == "" {
		return CatalogItem{}, fmt.Errorf("%w: catalog id is required", ErrOrderInvalidInput)
	}

	item, err := e.catalog.GetCatalogItem(ctx, line.ItemType, itemID)
	if err != nil {
		var repoErr repositories.RepositoryError
		if errors.As(err, &repoErr) && repoErr.IsNotFound() {
			return CatalogItem{}, &CartRejectionError{Reason: CartRejectItemNotFound, ItemID: itemID}
		}
		return CatalogItem{}, err
	}
	return item, nil
}

// SpecialDate truncates a timestamp to the calendar day daily specials are
// keyed by.
func SpecialDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
