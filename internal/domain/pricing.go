package domain

// CartLine is one client-submitted (item, quantity) pair. DeclaredName and
// DeclaredPrice are advisory display values from the storefront; pricing
// always re-derives from the catalog.
type CartLine struct {
	CatalogID     string
	ItemType      CatalogItemType
	DeclaredName  string
	DeclaredPrice int64
	Quantity      int
}

// PricedLine is a cart line after catalog verification, carrying the trusted
// unit price used for totals.
type PricedLine struct {
	CatalogID string
	ItemType  CatalogItemType
	ItemName  string
	Quantity  int
	UnitPrice int64
	Subtotal  int64
}

// PricingBreakdown captures the aggregated monetary results of pricing a cart.
type PricingBreakdown struct {
	Subtotal    int64
	DeliveryFee int64
	Total       int64
	Lines       []PricedLine
}

// DeliveryZone names an area the restaurant delivers to.
type DeliveryZone string

const (
	// ZoneOuakam covers the Ouakam neighbourhood.
	ZoneOuakam DeliveryZone = "ouakam"
	// ZoneYoff covers the Yoff neighbourhood.
	ZoneYoff DeliveryZone = "yoff"
	// ZoneVille covers central Dakar.
	ZoneVille DeliveryZone = "ville"
	// ZoneAlmadie covers Les Almadies.
	ZoneAlmadie DeliveryZone = "almadie"
)

// deliveryFees is the flat per-zone fee table in FCFA.
var deliveryFees = map[DeliveryZone]int64{
	ZoneOuakam:  1000,
	ZoneYoff:    2000,
	ZoneVille:   2000,
	ZoneAlmadie: 1500,
}

// DeliveryFee resolves the flat fee for a zone. Unknown zones (and the empty
// zone used by pickup orders) resolve to 0; rejecting an unknown zone on a
// delivery order is the validator's job, not this table's.
func DeliveryFee(zone DeliveryZone) int64 {
	return deliveryFees[zone]
}

// KnownZone reports whether zone is one of the configured delivery areas.
func KnownZone(zone DeliveryZone) bool {
	_, ok := deliveryFees[zone]
	return ok
}

// DeliveryZones lists the configured zones in a stable order.
func DeliveryZones() []DeliveryZone {
	return []DeliveryZone{ZoneOuakam, ZoneYoff, ZoneVille, ZoneAlmadie}
}
