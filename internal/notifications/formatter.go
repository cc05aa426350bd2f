package notifications

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	domain "github.com/teranga-kitchen/api/internal/domain"
)

// statusLabels maps lifecycle states to the French copy staff see on WhatsApp.
var statusLabels = map[domain.OrderStatus]string{
	domain.OrderStatusPending:   "En Attente",
	domain.OrderStatusConfirmed: "Commande Confirmée",
	domain.OrderStatusPreparing: "En Préparation",
	domain.OrderStatusReady:     "Prête",
	domain.OrderStatusDelivered: "Livrée",
	domain.OrderStatusCancelled: "Annulée",
}

var (
	frenchPrinter = message.NewPrinter(language.French)
	zoneTitler    = cases.Title(language.French)
)

// StatusLabel returns the human label for a status, falling back to the raw
// value for statuses without dedicated copy.
func StatusLabel(status domain.OrderStatus) string {
	if label, ok := statusLabels[status]; ok {
		return label
	}
	return string(status)
}

// FormatAmount renders a whole-FCFA amount with French digit grouping.
func FormatAmount(amount int64) string {
	return frenchPrinter.Sprintf("%d FCFA", amount)
}

// FormatOrderCreated renders the new-order message sent to staff.
func FormatOrderCreated(order domain.Order) string {
	var b strings.Builder

	b.WriteString("🍽 Nouvelle commande !\n\n")
	writeOrderSummary(&b, order)
	return b.String()
}

// FormatOrderStatus renders the status-change message sent to staff,
// including the transition the order just made.
func FormatOrderStatus(order domain.Order, previous domain.OrderStatus) string {
	var b strings.Builder

	fmt.Fprintf(&b, "📋 %s\n", StatusLabel(order.Status))
	if previous != "" && previous != order.Status {
		fmt.Fprintf(&b, "Statut: %s → %s\n", StatusLabel(previous), StatusLabel(order.Status))
	}
	b.WriteString("\n")
	writeOrderSummary(&b, order)
	return b.String()
}

func writeOrderSummary(b *strings.Builder, order domain.Order) {
	fmt.Fprintf(b, "Commande: %s\n", order.OrderNumber)
	fmt.Fprintf(b, "Client: %s\n", order.CustomerName)
	fmt.Fprintf(b, "Téléphone: %s\n", order.CustomerPhone)

	if order.OrderType == domain.OrderTypeDelivery {
		b.WriteString("Type: Livraison\n")
		fmt.Fprintf(b, "Zone: %s\n", zoneTitler.String(string(order.DeliveryZone)))
		fmt.Fprintf(b, "Adresse: %s\n", order.DeliveryAddress)
	} else {
		b.WriteString("Type: À emporter\n")
	}

	switch order.PaymentMethod {
	case domain.PaymentMethodPayNow:
		b.WriteString("Paiement: En ligne\n")
	case domain.PaymentMethodPayAtArrival:
		b.WriteString("Paiement: À l'arrivée\n")
	}

	if len(order.Lines) > 0 {
		b.WriteString("\n")
		for _, line := range order.Lines {
			fmt.Fprintf(b, "%dx %s - %s\n", line.Quantity, line.ItemName, FormatAmount(line.Subtotal))
		}
	}

	if order.DeliveryFee > 0 {
		fmt.Fprintf(b, "Livraison: %s\n", FormatAmount(order.DeliveryFee))
	}
	fmt.Fprintf(b, "\nTotal: %s\n", FormatAmount(order.TotalAmount))

	if notes := strings.TrimSpace(order.Notes); notes != "" {
		fmt.Fprintf(b, "\nNotes: %s\n", notes)
	}
}
