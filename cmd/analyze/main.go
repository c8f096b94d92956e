// Package main provides a one-shot portfolio risk analysis CLI.
// Holdings come from a JSON file or an inline spec; the result prints as
// text or JSON and can optionally be persisted to ClickHouse.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"portfolio-risk-lab/internal/domain"
	"portfolio-risk-lab/internal/idhash"
	"portfolio-risk-lab/internal/marketdata"
	"portfolio-risk-lab/internal/risk"
	"portfolio-risk-lab/internal/storage"
	chstore "portfolio-risk-lab/internal/storage/clickhouse"
	"portfolio-risk-lab/internal/storage/memory"
	"portfolio-risk-lab/internal/storage/migrations"
)

func main() {
	// Input
	holdingsFile := flag.String("holdings", "", "Path to holdings JSON file: [{\"symbol\":...,\"value\":...,\"sector\":...}]")
	inline := flag.String("inline", "", "Inline holdings spec: SYMBOL:VALUE:SECTOR,SYMBOL:VALUE:SECTOR,...")

	// Engine parameters
	benchmark := flag.String("benchmark", risk.DefaultBenchmarkSymbol, "Benchmark symbol for beta")
	lookbackDays := flag.Int("lookback-days", 365, "Historical lookback window in days")
	trials := flag.Int("trials", 0, "Monte Carlo trials (0 = default)")
	horizonDays := flag.Int("horizon-days", 0, "Simulation horizon in days (0 = default)")
	seed := flag.Int64("seed", 0, "Fixed RNG seed for a reproducible run (0 = time-seeded)")

	// Output
	outputJSON := flag.Bool("json", false, "Output as JSON")
	persistResult := flag.Bool("persist", false, "Persist the analysis record to storage")
	portfolioID := flag.String("portfolio-id", "adhoc", "Portfolio ID to record when persisting")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string for --persist")

	flag.Parse()

	logger := log.New(os.Stderr, "[analyze] ", log.LstdFlags)

	holdings, err := loadHoldings(*holdingsFile, *inline)
	if err != nil {
		logger.Fatalf("load holdings: %v", err)
	}
	if len(holdings) == 0 {
		logger.Fatal("no holdings given: use --holdings or --inline")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, shutting down...", sig)
		cancel()
	}()

	engine, err := risk.NewEngine(risk.EngineOptions{
		Provider:        marketdata.NewYahooClient(),
		BenchmarkSymbol: *benchmark,
		LookbackDays:    *lookbackDays,
		Trials:          *trials,
		HorizonDays:     *horizonDays,
		Seed:            *seed,
		Logger:          logger,
	})
	if err != nil {
		logger.Fatalf("create engine: %v", err)
	}

	logger.Printf("Analyzing %d holdings against %s...", len(holdings), *benchmark)
	metrics, err := engine.CalculateRiskMetrics(ctx, holdings)
	if err != nil {
		logger.Fatalf("analysis failed: %v", err)
	}

	runTrials, runHorizon := engine.Defaults()
	record := &domain.RiskAnalysisRecord{
		AnalysisID:  idhash.ComputeAnalysisID(*portfolioID, runTrials, runHorizon, time.Now().UnixMilli()),
		PortfolioID: *portfolioID,
		Metrics:     *metrics,
		Trials:      runTrials,
		HorizonDays: runHorizon,
		AnalyzedAt:  time.Now().UnixMilli(),
	}

	if *persistResult {
		store, cleanup, err := createAnalysisStore(ctx, *clickhouseDSN)
		if err != nil {
			logger.Fatalf("create store: %v", err)
		}
		defer cleanup()

		if err := store.Insert(ctx, record); err != nil {
			logger.Fatalf("persist analysis: %v", err)
		}
		logger.Printf("Persisted analysis %s", record.AnalysisID)
	}

	if *outputJSON {
		output, err := json.MarshalIndent(record, "", "  ")
		if err != nil {
			logger.Fatalf("encode result: %v", err)
		}
		fmt.Println(string(output))
	} else {
		printRecord(record, holdings)
	}
}

// loadHoldings reads holdings from a JSON file or an inline spec. Exactly
// one of the two must be set.
func loadHoldings(file, inline string) ([]domain.Holding, error) {
	if file != "" && inline != "" {
		return nil, fmt.Errorf("--holdings and --inline are mutually exclusive")
	}

	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", file, err)
		}
		var payload []struct {
			Symbol string  `json:"symbol"`
			Value  float64 `json:"value"`
			Sector string  `json:"sector"`
		}
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, fmt.Errorf("parse %s: %w", file, err)
		}
		holdings := make([]domain.Holding, len(payload))
		for i, h := range payload {
			holdings[i] = domain.Holding{Symbol: h.Symbol, Value: h.Value, Sector: h.Sector}
		}
		return holdings, nil
	}

	if inline == "" {
		return nil, nil
	}

	var holdings []domain.Holding
	for _, part := range strings.Split(inline, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		fields := strings.Split(part, ":")
		if len(fields) < 2 || len(fields) > 3 {
			return nil, fmt.Errorf("invalid holding spec %q, want SYMBOL:VALUE[:SECTOR]", part)
		}
		value, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid value in %q: %w", part, err)
		}
		h := domain.Holding{Symbol: fields[0], Value: value}
		if len(fields) == 3 {
			h.Sector = fields[2]
		}
		holdings = append(holdings, h)
	}
	return holdings, nil
}

// createAnalysisStore connects to ClickHouse for persistence, or falls
// back to memory when no DSN is set (useful for dry runs).
func createAnalysisStore(ctx context.Context, clickhouseDSN string) (storage.RiskAnalysisStore, func(), error) {
	if clickhouseDSN == "" {
		return memory.NewRiskAnalysisStore(), func() {}, nil
	}

	conn, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
	}
	return chstore.NewRiskAnalysisStore(conn), func() { conn.Close() }, nil
}

// printRecord outputs a human-readable analysis summary.
func printRecord(r *domain.RiskAnalysisRecord, holdings []domain.Holding) {
	total := 0.0
	for _, h := range holdings {
		total += h.Value
	}

	fmt.Println()
	fmt.Println("=== Risk Analysis ===")
	fmt.Printf("Analysis ID:       %s\n", r.AnalysisID)
	fmt.Printf("Portfolio value:   %.2f (%d holdings)\n", total, len(holdings))
	fmt.Printf("Trials / horizon:  %d / %d days\n", r.Trials, r.HorizonDays)
	fmt.Println()
	fmt.Printf("Expected return:   %8.4f (annualized)\n", r.Metrics.MeanReturn)
	fmt.Printf("Volatility:        %8.4f (annualized)\n", r.Metrics.Volatility)
	fmt.Printf("VaR 95%%:           %12.2f\n", r.Metrics.VaR95)
	fmt.Printf("VaR 99%%:           %12.2f\n", r.Metrics.VaR99)
	fmt.Printf("Worst case loss:   %12.2f\n", r.Metrics.WorstCase)
	fmt.Printf("Best case gain:    %12.2f\n", r.Metrics.BestCase)
	fmt.Printf("Beta:              %8.4f\n", r.Metrics.Beta)
	fmt.Printf("Sharpe ratio:      %8.4f\n", r.Metrics.SharpeRatio)
	fmt.Printf("Diversification:   %8.1f\n", r.Metrics.DiversificationScore)
}
