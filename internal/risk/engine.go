package risk

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"time"

	"golang.org/x/sync/errgroup"

	"portfolio-risk-lab/internal/domain"
	"portfolio-risk-lab/internal/marketdata"
	"portfolio-risk-lab/internal/observability"
)

// Default engine configuration.
const (
	DefaultBenchmarkSymbol = "^NSEI" // NIFTY 50 market proxy
	DefaultLookbackDays    = 365
	DefaultFetchTimeout    = 30 * time.Second
)

// Engine composes the full risk analysis:
// fetch -> returns -> covariance/statistics -> simulation -> aggregation.
// A run is a pure, stateless function over its inputs; nothing is cached
// across requests.
type Engine struct {
	provider        marketdata.HistoricalProvider
	simulator       *Simulator
	benchmarkSymbol string
	lookbackDays    int
	fetchTimeout    time.Duration
	trials          int
	horizonDays     int
	seed            int64 // 0 means time-seeded
	logger          *log.Logger
	metrics         *observability.Metrics
}

// EngineOptions contains configuration for creating an Engine.
type EngineOptions struct {
	Provider        marketdata.HistoricalProvider // required
	BenchmarkSymbol string                        // default ^NSEI
	LookbackDays    int                           // default 365
	FetchTimeout    time.Duration                 // default 30s, bounds the fan-out
	Trials          int                           // default 1000
	HorizonDays     int                           // default 252
	Seed            int64                         // fixed seed for reproducible runs; 0 = time-seeded
	Workers         int                           // simulation workers, default NumCPU
	Logger          *log.Logger                   // optional
	Metrics         *observability.Metrics        // optional
}

// NewEngine creates a risk analysis engine.
func NewEngine(opts EngineOptions) (*Engine, error) {
	if opts.Provider == nil {
		return nil, fmt.Errorf("risk engine: provider is required")
	}

	e := &Engine{
		provider:        opts.Provider,
		simulator:       NewSimulator(WithWorkers(opts.Workers)),
		benchmarkSymbol: opts.BenchmarkSymbol,
		lookbackDays:    opts.LookbackDays,
		fetchTimeout:    opts.FetchTimeout,
		trials:          opts.Trials,
		horizonDays:     opts.HorizonDays,
		seed:            opts.Seed,
		logger:          opts.Logger,
		metrics:         opts.Metrics,
	}
	if e.benchmarkSymbol == "" {
		e.benchmarkSymbol = DefaultBenchmarkSymbol
	}
	if e.lookbackDays <= 0 {
		e.lookbackDays = DefaultLookbackDays
	}
	if e.fetchTimeout <= 0 {
		e.fetchTimeout = DefaultFetchTimeout
	}
	if e.trials <= 0 {
		e.trials = domain.DefaultTrials
	}
	if e.horizonDays <= 0 {
		e.horizonDays = domain.DefaultHorizonDays
	}
	return e, nil
}

// CalculateRiskMetrics runs one full analysis over the holdings. This is the
// sole public operation of the engine.
//
// All historical fetches (holdings plus benchmark) run concurrently and are
// joined before any statistics are computed; a single failed fetch or
// computation aborts the whole request with one descriptive error. There are
// no partial results and no automatic retries.
func (e *Engine) CalculateRiskMetrics(ctx context.Context, holdings []domain.Holding) (*domain.RiskMetrics, error) {
	started := time.Now()
	if e.metrics != nil {
		e.metrics.AnalysesStarted.Inc()
	}

	metrics, err := e.calculate(ctx, holdings)
	if err != nil {
		if e.metrics != nil {
			e.metrics.AnalysesFailed.WithLabelValues(errorKind(err)).Inc()
		}
		return nil, err
	}

	if e.metrics != nil {
		e.metrics.AnalysesCompleted.Inc()
		e.metrics.AnalysisDuration.Observe(time.Since(started).Seconds())
	}
	return metrics, nil
}

func (e *Engine) calculate(ctx context.Context, holdings []domain.Holding) (*domain.RiskMetrics, error) {
	totalValue := 0.0
	for _, h := range holdings {
		if h.Value < 0 {
			return nil, fmt.Errorf("%w: negative value for %s", ErrInvalidPortfolio, h.Symbol)
		}
		totalValue += h.Value
	}
	if len(holdings) == 0 || totalValue <= 0 {
		return nil, ErrInvalidPortfolio
	}

	// Fan-out: independent fetches for every holding plus the benchmark,
	// joined before covariance computation. Bounded by the fetch timeout.
	fetchCtx, cancel := context.WithTimeout(ctx, e.fetchTimeout)
	defer cancel()

	assetReturns := make([][]float64, len(holdings))
	var benchmarkReturns []float64

	g, gctx := errgroup.WithContext(fetchCtx)
	for i, h := range holdings {
		g.Go(func() error {
			returns, err := e.fetchReturns(gctx, h.Symbol)
			if err != nil {
				return err
			}
			assetReturns[i] = returns
			return nil
		})
	}
	g.Go(func() error {
		returns, err := e.fetchReturns(gctx, e.benchmarkSymbol)
		if err != nil {
			return err
		}
		benchmarkReturns = returns
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	cov, err := CovarianceMatrix(assetReturns)
	if err != nil {
		return nil, err
	}

	// Per-asset means over each series' own full length, matching the
	// covariance estimator.
	means := make([]float64, len(assetReturns))
	for i, series := range assetReturns {
		means[i] = meanOf(series)
	}

	values := make([]float64, len(holdings))
	for i, h := range holdings {
		values[i] = h.Value
	}
	weights, err := Weights(values)
	if err != nil {
		return nil, err
	}

	stats, err := ComputePortfolioStats(means, weights, cov)
	if err != nil {
		if !errors.Is(err, ErrNegativeVariance) {
			return nil, err
		}
		// Clamped to zero variance; continue with the flagged stats.
		e.logf("portfolio variance clamped to zero (floating-point underflow)")
	}

	rng := rand.New(rand.NewSource(e.currentSeed()))
	simStarted := time.Now()
	result, err := e.simulator.Simulate(ctx, SimulationParams{
		PortfolioValue: totalValue,
		Trials:         e.trials,
		HorizonDays:    e.horizonDays,
		Mean:           stats.Mean,
		Std:            stats.Std,
	}, rng)
	if err != nil {
		return nil, err
	}
	if e.metrics != nil {
		e.metrics.SimulationTrials.Add(float64(e.trials))
		e.metrics.SimulationDuration.Observe(time.Since(simStarted).Seconds())
	}

	beta, err := Beta(result.Returns(), benchmarkReturns)
	if err != nil {
		return nil, fmt.Errorf("beta against %s: %w", e.benchmarkSymbol, err)
	}

	diversification, err := DiversificationScore(holdings)
	if err != nil {
		return nil, err
	}

	annualMean := result.AnnualizedMean()
	annualVol := result.AnnualizedVolatility()

	return &domain.RiskMetrics{
		MeanReturn:           annualMean,
		Volatility:           annualVol,
		VaR95:                result.ValueAtRisk(0.95),
		VaR99:                result.ValueAtRisk(0.99),
		WorstCase:            result.WorstCase(),
		BestCase:             result.BestCase(),
		Beta:                 beta,
		SharpeRatio:          SharpeRatio(annualMean, annualVol),
		DiversificationScore: diversification,
	}, nil
}

// fetchReturns fetches one symbol's history and converts it to daily returns.
func (e *Engine) fetchReturns(ctx context.Context, symbol string) ([]float64, error) {
	started := time.Now()
	prices, err := e.provider.GetHistoricalData(ctx, symbol, e.lookbackDays)
	if e.metrics != nil {
		e.metrics.HistoricalFetches.WithLabelValues(symbol).Inc()
		e.metrics.FetchLatency.WithLabelValues("historical").Observe(time.Since(started).Seconds())
		if err != nil {
			e.metrics.HistoricalFetchErrors.WithLabelValues(symbol).Inc()
		}
	}
	if err != nil {
		return nil, err
	}

	returns, err := DailyReturns(prices)
	if err != nil {
		return nil, fmt.Errorf("returns for %s: %w", symbol, err)
	}
	return returns, nil
}

// Defaults reports the trial count and horizon the engine runs with, for
// callers that record them alongside results.
func (e *Engine) Defaults() (trials, horizonDays int) {
	return e.trials, e.horizonDays
}

// currentSeed returns the configured fixed seed, or a time-based one.
func (e *Engine) currentSeed() int64 {
	if e.seed != 0 {
		return e.seed
	}
	return time.Now().UnixNano()
}

func (e *Engine) logf(format string, args ...any) {
	if e.logger != nil {
		e.logger.Printf(format, args...)
	}
}

// errorKind maps an error to a metric label.
func errorKind(err error) string {
	var provErr *marketdata.ProviderError
	switch {
	case errors.As(err, &provErr):
		return "provider"
	case errors.Is(err, ErrInsufficientData):
		return "insufficient_data"
	case errors.Is(err, ErrDegenerateSeries):
		return "degenerate_series"
	case errors.Is(err, ErrInvalidPortfolio):
		return "invalid_portfolio"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "internal"
	}
}
