package discount

import (
	"time"

	"github.com/caseloft/store-service/internal/catalog"
)

// Normalize enforces the discount invariants on a product before it is
// written by catalog management or rendered to the storefront. applied=N
// clears the rate, the window and the sale price; applied=Y recomputes the
// sale price from the current window state. The periodic sweep keeps the
// stored state honest afterwards.
func Normalize(p *catalog.Product, now time.Time) {
	switch p.DiscountApplied {
	case "Y":
		res := Evaluate(p.Price, p.DiscountApplied, p.DiscountRate, p.DiscountStartDate, p.DiscountEndDate, now)
		p.DiscountedPrice = &res.EffectivePrice
	default:
		price := p.Price
		p.DiscountApplied = "N"
		p.DiscountRate = 0
		p.DiscountedPrice = &price
		p.DiscountStartDate = ""
		p.DiscountEndDate = ""
	}
}
