package risk

import "errors"

// Risk engine errors. Any of these aborts the whole analysis request;
// there are no partial results.
var (
	// ErrInsufficientData is returned when a price series has fewer than 2 points.
	ErrInsufficientData = errors.New("insufficient data: need at least 2 price points")

	// ErrDegenerateSeries is returned when a zero-variance or too-short series
	// feeds a ratio (covariance overlap < 2, or benchmark variance ~ 0).
	ErrDegenerateSeries = errors.New("degenerate series")

	// ErrNegativeVariance flags a portfolio variance driven negative by
	// floating-point error. The value is clamped to zero, not propagated as NaN.
	ErrNegativeVariance = errors.New("negative variance clamped to zero")

	// ErrInvalidPortfolio is returned for an empty holdings set or zero total value.
	ErrInvalidPortfolio = errors.New("invalid portfolio: empty holdings or zero total value")
)
