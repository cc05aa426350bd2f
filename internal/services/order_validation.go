package services

import (
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	domain "github.com/teranga-kitchen/api/internal/domain"
)

var (
	phonePattern = regexp.MustCompile(`^\+?[0-9]{8,15}$`)
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

	phoneStripper = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "", ".", "")

	// notesPolicy strips any markup from free-text order notes before they are
	// persisted or rendered into notifications.
	notesPolicy = bluemonday.StrictPolicy()
)

// validatedOrder is the normalized command produced once every field check
// passed. Lines still carry client values; pricing verifies them next.
type validatedOrder struct {
	CustomerName    string
	CustomerPhone   string
	CustomerEmail   string
	OrderType       domain.OrderType
	DeliveryAddress string
	DeliveryZone    domain.DeliveryZone
	PaymentMethod   domain.PaymentMethod
	Notes           string
	Lines           []CartLine
}

// validateSubmitOrder checks every rule independently and reports every
// violation at once, so the storefront can highlight all bad fields in a
// single round trip.
func validateSubmitOrder(cmd SubmitOrderCommand) (validatedOrder, FieldErrors) {
	fields := FieldErrors{}

	name := strings.TrimSpace(cmd.CustomerName)
	if len([]rune(name)) < 2 {
		fields.Add("customerName", "Le nom doit contenir au moins 2 caractères")
	}

	phone := phoneStripper.Replace(strings.TrimSpace(cmd.CustomerPhone))
	if !phonePattern.MatchString(phone) {
		fields.Add("customerPhone", "Numéro de téléphone invalide")
	}

	email := strings.TrimSpace(cmd.CustomerEmail)
	if email != "" && !emailPattern.MatchString(email) {
		fields.Add("customerEmail", "Adresse email invalide")
	}

	orderType := domain.OrderType(strings.TrimSpace(cmd.OrderType))
	if orderType != domain.OrderTypePickup && orderType != domain.OrderTypeDelivery {
		fields.Add("orderType", "Type de commande invalide")
	}

	address := strings.TrimSpace(cmd.DeliveryAddress)
	zone := domain.DeliveryZone(strings.ToLower(strings.TrimSpace(cmd.DeliveryZone)))
	if orderType == domain.OrderTypeDelivery {
		if len([]rune(address)) < 10 {
			fields.Add("deliveryAddress", "L'adresse de livraison doit contenir au moins 10 caractères")
		}
		if !domain.KnownZone(zone) {
			fields.Add("deliveryZone", "Veuillez choisir une zone de livraison")
		}
	} else {
		address = ""
		zone = ""
	}

	payment := domain.PaymentMethod(strings.TrimSpace(cmd.PaymentMethod))
	if payment != domain.PaymentMethodPayNow && payment != domain.PaymentMethodPayAtArrival {
		fields.Add("paymentMethod", "Mode de paiement invalide")
	}

	if len(cmd.Lines) == 0 {
		fields.Add("items", "Le panier est vide")
	}
	for _, line := range cmd.Lines {
		if strings.TrimSpace(line.CatalogID) == "" {
			fields.Add("items", "Article invalide")
			continue
		}
		if line.ItemType != domain.CatalogItemTypeMenu && line.ItemType != domain.CatalogItemTypeSpecial {
			fields.Add("items", "Article invalide")
			continue
		}
		if line.Quantity < 1 {
			fields.Add("items", "Quantité invalide")
		}
	}

	if len(fields) > 0 {
		return validatedOrder{}, fields
	}

	return validatedOrder{
		CustomerName:    name,
		CustomerPhone:   phone,
		CustomerEmail:   email,
		OrderType:       orderType,
		DeliveryAddress: address,
		DeliveryZone:    zone,
		PaymentMethod:   payment,
		Notes:           strings.TrimSpace(notesPolicy.Sanitize(cmd.Notes)),
		Lines:           cmd.Lines,
	}, nil
}
