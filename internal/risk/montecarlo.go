package risk

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"sort"
	"sync"

	"portfolio-risk-lab/internal/domain"
)

// SimulationParams are the inputs to one Monte Carlo run.
type SimulationParams struct {
	PortfolioValue float64 // starting value, > 0
	Trials         int     // 0 means domain.DefaultTrials
	HorizonDays    int     // 0 means domain.DefaultHorizonDays
	Mean           float64 // daily portfolio mean return
	Std            float64 // daily portfolio standard deviation, >= 0
}

// SimulationResult holds simulated terminal portfolio values, sorted
// ascending for percentile extraction. Derived fully from the run's
// parameters; no state survives the call.
type SimulationResult struct {
	Terminals      []float64 // sorted ascending, len == Trials
	PortfolioValue float64
	Mean           float64 // daily mean used
	Std            float64 // daily std used
}

// Simulator runs correlated-day Monte Carlo simulations. Each simulated day
// is a single portfolio-level normal draw, not per-asset correlated draws;
// that approximation is part of the model and kept as-is.
type Simulator struct {
	workers int
}

// SimulatorOption configures Simulator.
type SimulatorOption func(*Simulator)

// WithWorkers sets the number of parallel trial workers.
func WithWorkers(n int) SimulatorOption {
	return func(s *Simulator) {
		if n > 0 {
			s.workers = n
		}
	}
}

// NewSimulator creates a Simulator defaulting to one worker per CPU.
func NewSimulator(opts ...SimulatorOption) *Simulator {
	s := &Simulator{workers: runtime.NumCPU()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Simulate runs the Monte Carlo simulation.
//
// Per trial: start at PortfolioValue and compound HorizonDays daily returns
// mean + std*z, z drawn via the Box-Muller transform. Trials are mutually
// independent and run across workers; the day loop inside a trial is strictly
// sequential since each day compounds the prior day's value.
//
// rng is the caller-injected random source; pass a seeded source for
// reproducible runs. Worker sub-sources are derived from rng up front, so a
// given (seed, worker count) pair always produces the same terminals.
func (s *Simulator) Simulate(ctx context.Context, params SimulationParams, rng *rand.Rand) (*SimulationResult, error) {
	if params.Trials == 0 {
		params.Trials = domain.DefaultTrials
	}
	if params.HorizonDays == 0 {
		params.HorizonDays = domain.DefaultHorizonDays
	}
	if err := validateParams(params); err != nil {
		return nil, err
	}
	if rng == nil {
		return nil, fmt.Errorf("simulate: nil random source")
	}

	workers := s.workers
	if workers > params.Trials {
		workers = params.Trials
	}
	if workers < 1 {
		workers = 1
	}

	// Derive per-worker sources before launching anything; *rand.Rand is not
	// safe for concurrent use.
	sources := make([]*rand.Rand, workers)
	for i := range sources {
		sources[i] = rand.New(rand.NewSource(rng.Int63()))
	}

	terminals := make([]float64, params.Trials)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		start := w * params.Trials / workers
		end := (w + 1) * params.Trials / workers
		wg.Add(1)
		go func(sub *rand.Rand, start, end int) {
			defer wg.Done()
			for trial := start; trial < end; trial++ {
				if ctx.Err() != nil {
					return
				}
				terminals[trial] = runTrial(params, sub)
			}
		}(sources[w], start, end)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sort.Float64s(terminals)
	return &SimulationResult{
		Terminals:      terminals,
		PortfolioValue: params.PortfolioValue,
		Mean:           params.Mean,
		Std:            params.Std,
	}, nil
}

// runTrial compounds one full horizon and returns the terminal value.
func runTrial(params SimulationParams, rng *rand.Rand) float64 {
	value := params.PortfolioValue
	for day := 0; day < params.HorizonDays; day++ {
		z := boxMuller(rng)
		dailyReturn := params.Mean + params.Std*z
		value *= 1 + dailyReturn
	}
	return value
}

// boxMuller draws one standard-normal variate from two uniform draws in (0,1).
// Either draw being exactly 0 is resampled to avoid log(0).
func boxMuller(rng *rand.Rand) float64 {
	u1 := rng.Float64()
	for u1 == 0 {
		u1 = rng.Float64()
	}
	u2 := rng.Float64()
	for u2 == 0 {
		u2 = rng.Float64()
	}
	return math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)
}

func validateParams(params SimulationParams) error {
	if params.PortfolioValue <= 0 {
		return fmt.Errorf("%w: portfolio value must be positive", ErrInvalidPortfolio)
	}
	if params.Trials < 1 {
		return fmt.Errorf("simulate: trial count must be >= 1, got %d", params.Trials)
	}
	if params.HorizonDays < 1 {
		return fmt.Errorf("simulate: horizon must be >= 1 day, got %d", params.HorizonDays)
	}
	if params.Std < 0 {
		return fmt.Errorf("simulate: std must be >= 0, got %f", params.Std)
	}
	if math.IsNaN(params.Mean) || math.IsInf(params.Mean, 0) || math.IsNaN(params.Std) || math.IsInf(params.Std, 0) {
		return fmt.Errorf("simulate: mean/std must be finite")
	}
	return nil
}

// ValueAtRisk extracts VaR at the given confidence level using the
// floor-index percentile of the sorted terminals:
// VaR = portfolioValue - terminals[floor((1-confidence) * trials)].
func (r *SimulationResult) ValueAtRisk(confidence float64) float64 {
	n := len(r.Terminals)
	if n == 0 {
		return 0
	}
	idx := int(math.Floor((1 - confidence) * float64(n)))
	if idx >= n {
		idx = n - 1
	}
	if idx < 0 {
		idx = 0
	}
	return r.PortfolioValue - r.Terminals[idx]
}

// WorstCase is the loss at the minimum simulated terminal value.
func (r *SimulationResult) WorstCase() float64 {
	if len(r.Terminals) == 0 {
		return 0
	}
	return r.PortfolioValue - r.Terminals[0]
}

// BestCase is the gain at the maximum simulated terminal value.
func (r *SimulationResult) BestCase() float64 {
	if len(r.Terminals) == 0 {
		return 0
	}
	return r.Terminals[len(r.Terminals)-1] - r.PortfolioValue
}

// AnnualizedMean scales the daily mean by the 252 trading-day convention.
// The multiplier is a fixed constant, not derived from the horizon.
func (r *SimulationResult) AnnualizedMean() float64 {
	return r.Mean * domain.TradingDaysPerYear
}

// AnnualizedVolatility scales the daily std by sqrt(252).
func (r *SimulationResult) AnnualizedVolatility() float64 {
	return r.Std * math.Sqrt(domain.TradingDaysPerYear)
}

// Returns derives per-trial fractional returns (terminal - start) / start,
// in the sorted order of the terminals.
func (r *SimulationResult) Returns() []float64 {
	out := make([]float64, len(r.Terminals))
	for i, t := range r.Terminals {
		out[i] = (t - r.PortfolioValue) / r.PortfolioValue
	}
	return out
}
