package risk

import (
	"fmt"
	"math"

	"portfolio-risk-lab/internal/domain"
)

// varianceEpsilon is the threshold below which a variance or volatility is
// treated as zero when it feeds a ratio.
const varianceEpsilon = 1e-12

// Beta computes the portfolio's sensitivity to the benchmark:
// cov(portfolioReturns, marketReturns) / var(marketReturns).
// The covariance uses the same estimator as the covariance matrix (cross
// term over the overlapping window, full-length means). Returns
// ErrDegenerateSeries when the market variance is ~0.
func Beta(portfolioReturns, marketReturns []float64) (float64, error) {
	if len(portfolioReturns) < 2 || len(marketReturns) < 2 {
		return 0, ErrDegenerateSeries
	}

	marketVariance, err := sampleVariance(marketReturns)
	if err != nil {
		return 0, err
	}
	if math.Abs(marketVariance) < varianceEpsilon {
		return 0, fmt.Errorf("%w: benchmark variance is zero", ErrDegenerateSeries)
	}

	cov, err := pairCovariance(portfolioReturns, marketReturns, meanOf(portfolioReturns), meanOf(marketReturns))
	if err != nil {
		return 0, err
	}
	return cov / marketVariance, nil
}

// SharpeRatio computes (annualizedMean - riskFreeRate) / annualizedVolatility
// with the fixed 2% risk-free rate.
//
// When annualized volatility is ~0 the ratio is undefined; this
// implementation returns an infinity sentinel carrying the sign of the excess
// return (and 0 when the excess return is itself 0), rather than an error.
func SharpeRatio(annualizedMean, annualizedVolatility float64) float64 {
	excess := annualizedMean - domain.RiskFreeRate
	if annualizedVolatility < varianceEpsilon {
		if excess > 0 {
			return math.Inf(1)
		}
		if excess < 0 {
			return math.Inf(-1)
		}
		return 0
	}
	return excess / annualizedVolatility
}

// DiversificationScore scores sector spread and concentration on an
// approximate 0-100 scale.
//
// sectorScore = distinctSectors / max(holdingCount, 10);
// concentrationScore = 1 - HHI where HHI is the sum of squared weights;
// score = (sectorScore + concentrationScore) * 50.
// The scale is not strictly bounded: more than 10 distinct sectors can push
// the score past 100.
func DiversificationScore(holdings []domain.Holding) (float64, error) {
	if len(holdings) == 0 {
		return 0, ErrInvalidPortfolio
	}

	values := make([]float64, len(holdings))
	for i, h := range holdings {
		values[i] = h.Value
	}
	weights, err := Weights(values)
	if err != nil {
		return 0, err
	}

	sectors := make(map[string]struct{}, len(holdings))
	for _, h := range holdings {
		sectors[h.Sector] = struct{}{}
	}

	denom := len(holdings)
	if denom < 10 {
		denom = 10
	}
	sectorScore := float64(len(sectors)) / float64(denom)

	hhi := 0.0
	for _, w := range weights {
		hhi += w * w
	}
	concentrationScore := 1 - hhi

	return (sectorScore + concentrationScore) * 50, nil
}
