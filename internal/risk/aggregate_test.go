package risk

import (
	"errors"
	"math"
	"testing"

	"portfolio-risk-lab/internal/domain"
)

func TestBeta_MatchesMarket(t *testing.T) {
	// A portfolio whose returns equal the market's has beta 1.
	market := []float64{0.01, -0.02, 0.015, 0.005, -0.01}
	portfolio := append([]float64(nil), market...)

	beta, err := Beta(portfolio, market)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(beta-1.0) > 1e-12 {
		t.Errorf("expected beta 1.0, got %f", beta)
	}
}

func TestBeta_ScaledMarket(t *testing.T) {
	market := []float64{0.01, -0.02, 0.015, 0.005, -0.01}
	portfolio := make([]float64, len(market))
	for i, r := range market {
		portfolio[i] = 2 * r
	}

	beta, err := Beta(portfolio, market)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(beta-2.0) > 1e-12 {
		t.Errorf("expected beta 2.0, got %f", beta)
	}
}

func TestBeta_DegenerateMarket(t *testing.T) {
	flat := []float64{0.01, 0.01, 0.01, 0.01}
	portfolio := []float64{0.02, -0.01, 0.005, 0.0}

	if _, err := Beta(portfolio, flat); !errors.Is(err, ErrDegenerateSeries) {
		t.Errorf("expected ErrDegenerateSeries for zero-variance market, got %v", err)
	}
}

func TestSharpeRatio(t *testing.T) {
	// (0.12 - 0.02) / 0.20 = 0.5
	if got := SharpeRatio(0.12, 0.20); math.Abs(got-0.5) > 1e-12 {
		t.Errorf("expected 0.5, got %f", got)
	}
}

func TestSharpeRatio_ZeroVolatilitySentinels(t *testing.T) {
	if got := SharpeRatio(0.10, 0); !math.IsInf(got, 1) {
		t.Errorf("positive excess with zero vol: expected +Inf, got %f", got)
	}
	if got := SharpeRatio(-0.10, 0); !math.IsInf(got, -1) {
		t.Errorf("negative excess with zero vol: expected -Inf, got %f", got)
	}
	if got := SharpeRatio(domain.RiskFreeRate, 0); got != 0 {
		t.Errorf("zero excess with zero vol: expected 0, got %f", got)
	}
}

func TestDiversificationScore_SingleHolding(t *testing.T) {
	// One holding, one sector: (1/10 + 0) * 50 = 5.
	score, err := DiversificationScore([]domain.Holding{
		{Symbol: "A", Value: 1000, Sector: "Tech"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(score-5.0) > 1e-12 {
		t.Errorf("expected score 5, got %f", score)
	}
}

func TestDiversificationScore_TwoSectors(t *testing.T) {
	// sectorScore = 2/10; HHI = 0.36 + 0.16 = 0.52; score = (0.2 + 0.48)*50 = 34.
	score, err := DiversificationScore([]domain.Holding{
		{Symbol: "A", Value: 600, Sector: "Tech"},
		{Symbol: "B", Value: 400, Sector: "Energy"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(score-34.0) > 1e-12 {
		t.Errorf("expected score 34, got %f", score)
	}
}

func TestDiversificationScore_EmptyPortfolio(t *testing.T) {
	if _, err := DiversificationScore(nil); !errors.Is(err, ErrInvalidPortfolio) {
		t.Errorf("expected ErrInvalidPortfolio, got %v", err)
	}
}
