package domain

import (
	"encoding/json"
	"math"
)

// Risk model constants. Annualization multipliers are tied to the 252
// trading-day convention, not to the simulation horizon.
const (
	TradingDaysPerYear = 252
	RiskFreeRate       = 0.02

	DefaultTrials      = 1000
	DefaultHorizonDays = 252
)

// RiskMetrics is the output of one risk analysis run. Pure value object,
// recomputed on each request; MeanReturn and Volatility are annualized.
type RiskMetrics struct {
	MeanReturn           float64 // annualized expected portfolio return
	Volatility           float64 // annualized portfolio volatility
	VaR95                float64 // value at risk, 95% confidence
	VaR99                float64 // value at risk, 99% confidence
	WorstCase            float64 // loss at the worst simulated terminal value
	BestCase             float64 // gain at the best simulated terminal value
	Beta                 float64 // sensitivity to the benchmark
	SharpeRatio          float64 // excess return per unit of volatility
	DiversificationScore float64 // approximate 0-100 scale, can exceed 100
}

// FiniteOrNil returns a pointer to v, or nil when v is NaN or infinite.
// JSON has no encoding for non-finite numbers, so encoders emit null
// for them instead.
func FiniteOrNil(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// MarshalJSON encodes a non-finite Sharpe ratio as null. A zero-volatility
// portfolio yields the ±Inf sentinel, which encoding/json rejects.
func (m RiskMetrics) MarshalJSON() ([]byte, error) {
	type plain RiskMetrics
	return json.Marshal(struct {
		plain
		SharpeRatio *float64
	}{plain(m), FiniteOrNil(m.SharpeRatio)})
}

// RiskAnalysisRecord is a persisted snapshot of one analysis run.
// Corresponds to the risk_analyses table in ClickHouse.
type RiskAnalysisRecord struct {
	AnalysisID  string // PRIMARY KEY, deterministic hash
	PortfolioID string // analyzed portfolio
	Metrics     RiskMetrics
	Trials      int   // simulation trial count used
	HorizonDays int   // simulation horizon used
	AnalyzedAt  int64 // Unix timestamp in milliseconds
}
