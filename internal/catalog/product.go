// Package catalog holds the product model and its Postgres store.
package catalog

import "time"

// Product is a sellable phone case.
//
// Stock bookkeeping carries three fields: Stock is the legacy display count,
// RemainingStock is the authoritative available count once a reservation has
// touched the product, and InitialStock freezes the count at first
// reservation. RemainingStock and InitialStock are nil until then.
type Product struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	Price         int64     `json:"price"` // smallest currency unit
	Currency      string    `json:"currency"`
	ImageURL      string    `json:"imageUrl"`
	Compatibility []string  `json:"compatibility"` // e.g. ["iPhone 15", "Galaxy S24"]
	Stock         int       `json:"stock"`
	Category      string    `json:"category"`

	DiscountApplied string `json:"discountApplied"` // "Y" or "N"
	DiscountRate    int    `json:"discountRate"`
	// DiscountedPrice is nil until a sweep or a catalog write has reconciled
	// the row. A stored 0 is a real sale price (100% discount), not absence.
	DiscountedPrice   *int64 `json:"discountedPrice,omitempty"`
	DiscountStartDate string `json:"discountStartDate,omitempty"`
	DiscountEndDate   string `json:"discountEndDate,omitempty"`

	InitialStock   *int `json:"initialStock,omitempty"`
	RemainingStock *int `json:"remainingStock,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Available returns the sellable count: RemainingStock once initialized,
// the legacy Stock field before that.
func (p *Product) Available() int {
	if p.RemainingStock != nil {
		return *p.RemainingStock
	}
	return p.Stock
}
