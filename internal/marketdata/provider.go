// Package marketdata provides access to historical daily price series.
package marketdata

import (
	"context"
	"fmt"

	"portfolio-risk-lab/internal/domain"
)

// HistoricalProvider supplies ordered daily closing prices for a symbol.
type HistoricalProvider interface {
	// GetHistoricalData returns up to `days` daily closing prices for symbol.
	// The returned series is in ascending date order. Returns *ProviderError
	// when the upstream source fails or the symbol is unknown.
	GetHistoricalData(ctx context.Context, symbol string, days int) ([]domain.PricePoint, error)
}

// ProviderError indicates an upstream data-source failure.
type ProviderError struct {
	Symbol string
	Err    error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	return fmt.Sprintf("market data provider failed for %s: %v", e.Symbol, e.Err)
}

// Unwrap returns the underlying error.
func (e *ProviderError) Unwrap() error {
	return e.Err
}
