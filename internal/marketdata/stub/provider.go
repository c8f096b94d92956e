// Package stub provides an in-memory HistoricalProvider for testing.
package stub

import (
	"context"
	"fmt"
	"time"

	"portfolio-risk-lab/internal/domain"
	"portfolio-risk-lab/internal/marketdata"
)

// dayN returns a fixed base date advanced by n days, for synthetic series.
func dayN(n int) time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

// Provider implements marketdata.HistoricalProvider from fixed series.
type Provider struct {
	Series map[string][]domain.PricePoint // keyed by symbol
	Errs   map[string]error               // per-symbol forced failures
}

// NewProvider creates a new stub provider.
func NewProvider() *Provider {
	return &Provider{
		Series: make(map[string][]domain.PricePoint),
		Errs:   make(map[string]error),
	}
}

// Compile-time interface check.
var _ marketdata.HistoricalProvider = (*Provider)(nil)

// GetHistoricalData returns the configured series for symbol, truncated to
// the last `days` points.
func (p *Provider) GetHistoricalData(_ context.Context, symbol string, days int) ([]domain.PricePoint, error) {
	if err, ok := p.Errs[symbol]; ok {
		return nil, &marketdata.ProviderError{Symbol: symbol, Err: err}
	}

	series, ok := p.Series[symbol]
	if !ok {
		return nil, &marketdata.ProviderError{Symbol: symbol, Err: fmt.Errorf("unknown symbol")}
	}

	if days > 0 && days < len(series) {
		series = series[len(series)-days:]
	}

	out := make([]domain.PricePoint, len(series))
	copy(out, series)
	return out, nil
}

// SetConstantSeries configures a flat price series of n points for symbol.
func (p *Provider) SetConstantSeries(symbol string, price float64, n int) {
	points := make([]domain.PricePoint, n)
	for i := range points {
		points[i] = domain.PricePoint{Date: dayN(i), Price: price}
	}
	p.Series[symbol] = points
}

// SetSeries configures an ascending-date series from raw closes.
func (p *Provider) SetSeries(symbol string, closes []float64) {
	points := make([]domain.PricePoint, len(closes))
	for i, c := range closes {
		points[i] = domain.PricePoint{Date: dayN(i), Price: c}
	}
	p.Series[symbol] = points
}
