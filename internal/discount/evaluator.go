// Package discount implements discount-window evaluation and the periodic
// sweep that reconciles advertised sale prices against their windows.
package discount

import "time"

// Result is the outcome of evaluating a product's discount state at an instant.
type Result struct {
	// Active reports whether the discount is in effect.
	Active bool
	// EffectivePrice is the price to advertise: the discounted price while the
	// window is active, the base price otherwise.
	EffectivePrice int64
}

// timestampLayouts are the accepted formats for discount window bounds, tried
// in order. Bounds come in as ISO strings written by the admin console.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseBound parses a window bound. An empty or unparseable bound is reported
// as absent: a bad date widens the window rather than silently disabling the
// discount.
func parseBound(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Evaluate decides whether a discount is active at the given instant and what
// the effective sale price is. It is a total function: malformed inputs never
// produce an error, and it is safe for concurrent use.
//
// The window is a closed interval. A bound equal to now counts as active.
func Evaluate(price int64, applied string, rate int, startDate, endDate string, now time.Time) Result {
	if applied != "Y" || rate <= 0 {
		return Result{Active: false, EffectivePrice: price}
	}

	start, hasStart := parseBound(startDate)
	end, hasEnd := parseBound(endDate)

	active := false
	switch {
	case hasStart && hasEnd:
		active = !now.Before(start) && !now.After(end)
	case hasStart:
		active = !now.Before(start)
	case hasEnd:
		active = !now.After(end)
	default:
		active = true
	}

	if !active {
		return Result{Active: false, EffectivePrice: price}
	}

	return Result{Active: true, EffectivePrice: discountedPrice(price, rate)}
}

// discountedPrice computes round(price * (1 - rate/100)) with half-up
// rounding, in integer arithmetic so no float precision leaks into prices.
func discountedPrice(price int64, rate int) int64 {
	if rate >= 100 {
		return 0
	}
	return (price*int64(100-rate) + 50) / 100
}
