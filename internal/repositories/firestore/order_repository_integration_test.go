//go:build integration

package firestore

import (
	"context"
	"fmt"
	"os/exec"
	"testing"
	"time"

	domain "github.com/teranga-kitchen/api/internal/domain"
	pconfig "github.com/teranga-kitchen/api/internal/platform/config"
	pfirestore "github.com/teranga-kitchen/api/internal/platform/firestore"
	"github.com/teranga-kitchen/api/internal/repositories"
)

func TestOrderRepositoryListIncludesLines(t *testing.T) {
	if testing.Short() {
		t.Skip("integration test skipped in short mode")
	}

	if _, err := exec.LookPath("docker"); err != nil {
		t.Skip("docker not available: " + err.Error())
	}

	ensureDockerDaemon(t)

	port := freePort(t)
	endpoint := fmt.Sprintf("127.0.0.1:%d", port)
	containerID := startFirestoreEmulator(t, port)
	t.Cleanup(func() { stopContainer(containerID) })

	waitForEndpoint(t, endpoint, 30*time.Second)

	cfg := pconfig.FirestoreConfig{
		ProjectID:    "order-test",
		EmulatorHost: endpoint,
	}

	provider := pfirestore.NewProvider(cfg)
	t.Cleanup(func() {
		_ = provider.Close(context.Background())
	})

	repo, err := NewOrderRepository(provider)
	if err != nil {
		t.Fatalf("new order repository: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	base := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	orders := []domain.Order{
		{
			ID:            "ord_list_1",
			OrderNumber:   "TK-2025-000001",
			CustomerName:  "Awa Diop",
			CustomerPhone: "+221771234567",
			OrderType:     domain.OrderTypePickup,
			PaymentMethod: domain.PaymentMethodPayAtArrival,
			Status:        domain.OrderStatusPending,
			Subtotal:      7000,
			TotalAmount:   7000,
			CreatedAt:     base,
			UpdatedAt:     base,
		},
		{
			ID:              "ord_list_2",
			OrderNumber:     "TK-2025-000002",
			CustomerName:    "Moussa Ndiaye",
			CustomerPhone:   "+221781112233",
			OrderType:       domain.OrderTypeDelivery,
			DeliveryAddress: "Route de la Corniche, Ouakam, Dakar",
			DeliveryZone:    domain.ZoneOuakam,
			PaymentMethod:   domain.PaymentMethodPayNow,
			Status:          domain.OrderStatusConfirmed,
			Subtotal:        5500,
			DeliveryFee:     1000,
			TotalAmount:     6500,
			CreatedAt:       base.Add(time.Hour),
			UpdatedAt:       base.Add(time.Hour),
		},
	}
	linesByOrder := map[string][]domain.OrderLine{
		"ord_list_1": {
			{ID: "oli_1a", OrderID: "ord_list_1", ItemType: domain.CatalogItemTypeMenu, ItemID: "thieb-poisson", ItemName: "Thiéboudienne", Quantity: 2, UnitPrice: 3500, Subtotal: 7000},
		},
		"ord_list_2": {
			{ID: "oli_2a", OrderID: "ord_list_2", ItemType: domain.CatalogItemTypeMenu, ItemID: "yassa-poulet", ItemName: "Yassa Poulet", Quantity: 1, UnitPrice: 3000, Subtotal: 3000},
			{ID: "oli_2b", OrderID: "ord_list_2", ItemType: domain.CatalogItemTypeSpecial, ItemID: "mafe-special", ItemName: "Mafé du jour", Quantity: 1, UnitPrice: 2500, Subtotal: 2500},
		},
	}

	for _, order := range orders {
		if err := repo.Insert(ctx, order); err != nil {
			t.Fatalf("insert %s: %v", order.ID, err)
		}
		if err := repo.InsertLines(ctx, order.ID, linesByOrder[order.ID]); err != nil {
			t.Fatalf("insert lines %s: %v", order.ID, err)
		}
	}

	page, err := repo.List(ctx, repositories.OrderListFilter{})
	if err != nil {
		t.Fatalf("list orders: %v", err)
	}
	if len(page.Items) != 2 {
		t.Fatalf("expected 2 orders, got %d", len(page.Items))
	}
	if page.Items[0].ID != "ord_list_2" || page.Items[1].ID != "ord_list_1" {
		t.Fatalf("expected newest first, got %s then %s", page.Items[0].ID, page.Items[1].ID)
	}

	for _, item := range page.Items {
		want := linesByOrder[item.ID]
		if len(item.Lines) != len(want) {
			t.Fatalf("order %s: expected %d lines, got %d", item.ID, len(want), len(item.Lines))
		}
		for i, line := range item.Lines {
			if line.ID != want[i].ID {
				t.Fatalf("order %s line %d: expected %s, got %s", item.ID, i, want[i].ID, line.ID)
			}
			if line.OrderID != item.ID {
				t.Fatalf("order %s line %d: wrong order id %s", item.ID, i, line.OrderID)
			}
			if line.ItemName != want[i].ItemName || line.Quantity != want[i].Quantity || line.UnitPrice != want[i].UnitPrice {
				t.Fatalf("order %s line %d: decoded %+v, want %+v", item.ID, i, line, want[i])
			}
		}
	}

	single, err := repo.FindByID(ctx, "ord_list_2")
	if err != nil {
		t.Fatalf("find by id: %v", err)
	}
	if len(single.Lines) != len(page.Items[0].Lines) {
		t.Fatalf("expected FindByID and List to agree on lines, got %d vs %d", len(single.Lines), len(page.Items[0].Lines))
	}
}
