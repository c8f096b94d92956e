package risk

// CovarianceMatrix builds the sample covariance matrix across return series.
//
// For each pair (i, j) the cross term runs over the first
// n = min(len(series_i), len(series_j)) observations with Bessel's correction
// (n-1 denominator), while each mean is computed over that series' own full
// length. The full-length means reproduce the reference behavior exactly; for
// equal-length series this is the standard sample covariance, for truncated
// series the estimate is biased (see DESIGN.md).
//
// The upper triangle is computed and mirrored, so matrix[i][j] == matrix[j][i]
// holds by construction. Returns ErrDegenerateSeries when any pairwise
// overlap is shorter than 2.
func CovarianceMatrix(series [][]float64) ([][]float64, error) {
	n := len(series)
	if n == 0 {
		return nil, ErrDegenerateSeries
	}

	means := make([]float64, n)
	for i, s := range series {
		if len(s) < 2 {
			return nil, ErrDegenerateSeries
		}
		means[i] = meanOf(s)
	}

	matrix := make([][]float64, n)
	for i := range matrix {
		matrix[i] = make([]float64, n)
	}

	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			cov, err := pairCovariance(series[i], series[j], means[i], means[j])
			if err != nil {
				return nil, err
			}
			matrix[i][j] = cov
			matrix[j][i] = cov
		}
	}
	return matrix, nil
}

// pairCovariance computes the cross term over the overlapping window using
// the supplied (full-length) means.
func pairCovariance(x, y []float64, meanX, meanY float64) (float64, error) {
	n := len(x)
	if len(y) < n {
		n = len(y)
	}
	if n < 2 {
		return 0, ErrDegenerateSeries
	}

	sum := 0.0
	for t := 0; t < n; t++ {
		sum += (x[t] - meanX) * (y[t] - meanY)
	}
	return sum / float64(n-1), nil
}

// sampleVariance computes sample variance (n-1 denominator) of one series.
func sampleVariance(series []float64) (float64, error) {
	return pairCovariance(series, series, meanOf(series), meanOf(series))
}
