package domain

import "time"

// PricePoint represents one daily closing price for a symbol.
// Providers may return series most-recent-first or chronological;
// consumers must normalize to ascending date order before computing returns.
// Invariant: Price > 0.
type PricePoint struct {
	Date  time.Time // trading day (UTC)
	Price float64   // closing price
}
