package services

// Product maps a RevenueCat product id to its credit grant. ExpectedPriceUSD
// is used for price-mismatch auditing only, never as a validation gate.
type Product struct {
	ID               string
	Credits          int
	ExpectedPriceUSD float64
}

// Catalog is the static product table loaded at startup. Adding a product
// is a data change, unknown ids fall through to the single NotFound branch.
type Catalog struct {
	products map[string]Product
}

func NewCatalog(products ...Product) *Catalog {
	c := &Catalog{products: make(map[string]Product, len(products))}
	for _, p := range products {
		c.products[p.ID] = p
	}
	return c
}

// DefaultCatalog returns the live credit packs. Credit amounts use the
// v1.2.0 10x multiplier so variable per-search costs can be expressed
// (name search 10 credits, phone 2, image 4).
func DefaultCatalog() *Catalog {
	return NewCatalog(
		Product{ID: "pink_flag_3_searches", Credits: 30, ExpectedPriceUSD: 1.99},
		Product{ID: "pink_flag_10_searches", Credits: 100, ExpectedPriceUSD: 4.99},
		Product{ID: "pink_flag_25_searches", Credits: 250, ExpectedPriceUSD: 9.99},
	)
}

func (c *Catalog) Lookup(productID string) (Product, bool) {
	p, ok := c.products[productID]
	return p, ok
}

// purchaseEventTypes are the RevenueCat event types that credit a balance.
// Everything else (cancellations, billing issues, transfers) is acknowledged
// and ignored so the provider does not redeliver.
var purchaseEventTypes = map[string]struct{}{
	"INITIAL_PURCHASE":      {},
	"RENEWAL":               {},
	"NON_RENEWING_PURCHASE": {},
}

func IsPurchaseEvent(eventType string) bool {
	_, ok := purchaseEventTypes[eventType]
	return ok
}

var searchCosts = map[string]int{
	"name":  10,
	"phone": 2,
	"image": 4,
}

// SearchCost returns the credit cost of a search type, false for unknown types.
func SearchCost(searchType string) (int, bool) {
	cost, ok := searchCosts[searchType]
	return cost, ok
}
