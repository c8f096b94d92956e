package risk

import (
	"math"
	"sort"

	"portfolio-risk-lab/internal/domain"
)

// DailyReturns converts a price series into fractional daily returns.
//
// Convention: the series is normalized to ascending date order and
// return[t] = (price[t] - price[t-1]) / price[t-1]. The same convention is
// applied to every asset and to the benchmark series, since covariance and
// beta are sensitive to sign/lag consistency.
//
// Returns ErrInsufficientData when fewer than 2 usable points are present.
func DailyReturns(prices []domain.PricePoint) ([]float64, error) {
	if len(prices) < 2 {
		return nil, ErrInsufficientData
	}

	// Normalize to chronological order. Providers may hand back series
	// most-recent-first; sorting makes the convention explicit.
	ordered := make([]domain.PricePoint, len(prices))
	copy(ordered, prices)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Date.Before(ordered[j].Date)
	})

	returns := make([]float64, 0, len(ordered)-1)
	for t := 1; t < len(ordered); t++ {
		prev := ordered[t-1].Price
		cur := ordered[t].Price
		if prev <= 0 || cur <= 0 {
			return nil, ErrInsufficientData
		}
		r := (cur - prev) / prev
		if math.IsNaN(r) || math.IsInf(r, 0) {
			return nil, ErrInsufficientData
		}
		returns = append(returns, r)
	}
	return returns, nil
}

// meanOf computes the arithmetic mean over the full series.
func meanOf(series []float64) float64 {
	if len(series) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range series {
		sum += v
	}
	return sum / float64(len(series))
}
