package risk

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// PortfolioStats holds portfolio-level daily mean and dispersion.
type PortfolioStats struct {
	Mean     float64 // daily portfolio mean return
	Variance float64 // daily portfolio variance, clamped at zero
	Std      float64 // sqrt(Variance)
	Clamped  bool    // true when floating-point error drove variance negative
}

// ComputePortfolioStats combines per-asset means, weights and the covariance
// matrix into portfolio mean and variance.
//
// Mean = sum_i w_i * m_i. Variance is the full double sum
// sum_i sum_j w_i * w_j * cov[i][j], evaluated as the quadratic form w' C w.
// A variance driven negative by floating-point error is clamped to zero and
// reported via ErrNegativeVariance alongside the clamped stats, so callers
// get a flag instead of a NaN standard deviation.
func ComputePortfolioStats(means, weights []float64, cov [][]float64) (PortfolioStats, error) {
	n := len(weights)
	if n == 0 || len(means) != n || len(cov) != n {
		return PortfolioStats{}, ErrInvalidPortfolio
	}

	mean := 0.0
	for i := 0; i < n; i++ {
		mean += weights[i] * means[i]
	}

	flat := make([]float64, 0, n*n)
	for i := 0; i < n; i++ {
		if len(cov[i]) != n {
			return PortfolioStats{}, ErrInvalidPortfolio
		}
		flat = append(flat, cov[i]...)
	}
	w := mat.NewVecDense(n, weights)
	variance := mat.Inner(w, mat.NewDense(n, n, flat), w)

	stats := PortfolioStats{Mean: mean, Variance: variance}
	if variance < 0 {
		stats.Variance = 0
		stats.Std = 0
		stats.Clamped = true
		return stats, ErrNegativeVariance
	}
	stats.Std = math.Sqrt(variance)
	return stats, nil
}

// Weights derives portfolio weights from holding values.
// Total value must be positive; individual values must be non-negative.
func Weights(values []float64) ([]float64, error) {
	total := 0.0
	for _, v := range values {
		if v < 0 {
			return nil, ErrInvalidPortfolio
		}
		total += v
	}
	if len(values) == 0 || total <= 0 {
		return nil, ErrInvalidPortfolio
	}

	weights := make([]float64, len(values))
	for i, v := range values {
		weights[i] = v / total
	}
	return weights, nil
}
