package notifications

import (
	"strings"
	"testing"

	domain "github.com/teranga-kitchen/api/internal/domain"
)

func TestStatusLabel(t *testing.T) {
	cases := map[domain.OrderStatus]string{
		domain.OrderStatusPending:   "En Attente",
		domain.OrderStatusConfirmed: "Commande Confirmée",
		domain.OrderStatusPreparing: "En Préparation",
		domain.OrderStatusReady:     "Prête",
		domain.OrderStatusDelivered: "Livrée",
		domain.OrderStatusCancelled: "Annulée",
	}
	for status, want := range cases {
		if got := StatusLabel(status); got != want {
			t.Fatalf("label for %s: got %q want %q", status, got, want)
		}
	}
	if got := StatusLabel(domain.OrderStatus("archived")); got != "archived" {
		t.Fatalf("unknown status should fall back to its raw value, got %q", got)
	}
}

func TestFormatAmountGroupsDigits(t *testing.T) {
	got := FormatAmount(12500)
	if !strings.HasPrefix(got, "12") || !strings.HasSuffix(got, "500 FCFA") {
		t.Fatalf("unexpected formatting %q", got)
	}
	if FormatAmount(0) != "0 FCFA" {
		t.Fatalf("unexpected zero formatting %q", FormatAmount(0))
	}
}

func TestFormatOrderCreatedDelivery(t *testing.T) {
	order := domain.Order{
		OrderNumber:     "TK-2025-000042",
		CustomerName:    "Awa Diop",
		CustomerPhone:   "+221771234567",
		OrderType:       domain.OrderTypeDelivery,
		DeliveryAddress: "12 Rue de Ouakam, Dakar",
		DeliveryZone:    domain.ZoneYoff,
		PaymentMethod:   domain.PaymentMethodPayAtArrival,
		Status:          domain.OrderStatusPending,
		Subtotal:        5000,
		DeliveryFee:     2000,
		TotalAmount:     7000,
		Notes:           "Sans piment",
		Lines: []domain.OrderLine{
			{ItemName: "Burger Teranga", Quantity: 2, UnitPrice: 2500, Subtotal: 5000},
		},
	}

	msg := FormatOrderCreated(order)

	for _, fragment := range []string{
		"🍽 Nouvelle commande !",
		"Commande: TK-2025-000042",
		"Client: Awa Diop",
		"Type: Livraison",
		"Zone: Yoff",
		"Adresse: 12 Rue de Ouakam, Dakar",
		"Paiement: À l'arrivée",
		"2x Burger Teranga",
		"Livraison: " + FormatAmount(2000),
		"Total: " + FormatAmount(7000),
		"Notes: Sans piment",
	} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("message missing %q:\n%s", fragment, msg)
		}
	}
}

func TestFormatOrderCreatedPickupOmitsDeliveryFields(t *testing.T) {
	order := domain.Order{
		OrderNumber:   "TK-2025-000001",
		CustomerName:  "Moussa Ndiaye",
		CustomerPhone: "+221770000000",
		OrderType:     domain.OrderTypePickup,
		PaymentMethod: domain.PaymentMethodPayNow,
		Status:        domain.OrderStatusPending,
		TotalAmount:   3000,
	}

	msg := FormatOrderCreated(order)

	if !strings.Contains(msg, "Type: À emporter") {
		t.Fatalf("pickup type missing:\n%s", msg)
	}
	if !strings.Contains(msg, "Paiement: En ligne") {
		t.Fatalf("payment copy missing:\n%s", msg)
	}
	if strings.Contains(msg, "Zone:") || strings.Contains(msg, "Adresse:") || strings.Contains(msg, "Livraison:") {
		t.Fatalf("pickup message must not carry delivery fields:\n%s", msg)
	}
	if strings.Contains(msg, "Notes:") {
		t.Fatalf("empty notes must be omitted:\n%s", msg)
	}
}

func TestFormatOrderStatusHeader(t *testing.T) {
	order := domain.Order{
		OrderNumber:   "TK-2025-000042",
		CustomerName:  "Awa Diop",
		CustomerPhone: "+221771234567",
		OrderType:     domain.OrderTypePickup,
		PaymentMethod: domain.PaymentMethodPayAtArrival,
		Status:        domain.OrderStatusReady,
		TotalAmount:   5000,
	}

	msg := FormatOrderStatus(order, domain.OrderStatusPreparing)

	if !strings.HasPrefix(msg, "📋 Prête") {
		t.Fatalf("status header missing:\n%s", msg)
	}
	if !strings.Contains(msg, "Statut: En Préparation → Prête") {
		t.Fatalf("transition line missing:\n%s", msg)
	}
	if !strings.Contains(msg, "Commande: TK-2025-000042") {
		t.Fatalf("order summary missing:\n%s", msg)
	}
}

func TestFormatOrderStatusOmitsTransitionWithoutPrevious(t *testing.T) {
	order := domain.Order{
		OrderNumber:   "TK-2025-000043",
		CustomerName:  "Moussa Ndiaye",
		CustomerPhone: "+221781112233",
		OrderType:     domain.OrderTypePickup,
		PaymentMethod: domain.PaymentMethodPayNow,
		Status:        domain.OrderStatusConfirmed,
		TotalAmount:   3000,
	}

	msg := FormatOrderStatus(order, "")

	if strings.Contains(msg, "Statut:") {
		t.Fatalf("transition line must be omitted without a previous status:\n%s", msg)
	}
}
