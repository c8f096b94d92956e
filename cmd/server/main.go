// Package main provides the portfolio risk analysis HTTP service:
// portfolio CRUD, on-demand Monte Carlo risk analysis with persisted
// history, and news sentiment scoring.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"portfolio-risk-lab/internal/marketdata"
	"portfolio-risk-lab/internal/observability"
	"portfolio-risk-lab/internal/risk"
	"portfolio-risk-lab/internal/sentiment"
	"portfolio-risk-lab/internal/storage"
	chstore "portfolio-risk-lab/internal/storage/clickhouse"
	"portfolio-risk-lab/internal/storage/memory"
	"portfolio-risk-lab/internal/storage/migrations"
	pgstore "portfolio-risk-lab/internal/storage/postgres"
)

// allStores holds all storage implementations.
type allStores struct {
	portfolioStore storage.PortfolioStore
	stockStore     storage.StockStore
	analysisStore  storage.RiskAnalysisStore
	sentimentStore storage.SentimentRecordStore
}

func main() {
	// Load .env file if exists
	loadEnvFile()

	// Parse flags (env vars as defaults)
	addr := flag.String("addr", envOr("SERVER_ADDR", ":8080"), "HTTP listen address")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL/ClickHouse")
	benchmark := flag.String("benchmark", envOr("BENCHMARK_SYMBOL", risk.DefaultBenchmarkSymbol), "Benchmark symbol for beta")
	lookbackDays := flag.Int("lookback-days", 365, "Historical lookback window in days")
	trials := flag.Int("trials", 0, "Default Monte Carlo trials (0 = built-in default)")
	horizonDays := flag.Int("horizon-days", 0, "Default simulation horizon in days (0 = built-in default)")
	seed := flag.Int64("seed", 0, "Fixed RNG seed for reproducible analyses (0 = time-seeded)")
	openaiKey := flag.String("openai-api-key", os.Getenv("OPENAI_API_KEY"), "OpenAI API key for sentiment (optional)")
	shutdownTimeout := flag.Duration("shutdown-timeout", 30*time.Second, "Graceful shutdown timeout")

	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	if !*useMemory && (*postgresDSN == "" || *clickhouseDSN == "") {
		logger.Fatal("--postgres-dsn and --clickhouse-dsn are required (use --use-memory for in-memory storage)")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metrics := observability.NewMetrics("")

	stores, cleanup, err := createStores(ctx, *postgresDSN, *clickhouseDSN, *useMemory, metrics)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	provider := marketdata.NewYahooClient()
	engine, err := risk.NewEngine(risk.EngineOptions{
		Provider:        provider,
		BenchmarkSymbol: *benchmark,
		LookbackDays:    *lookbackDays,
		Trials:          *trials,
		HorizonDays:     *horizonDays,
		Seed:            *seed,
		Logger:          log.New(os.Stdout, "[risk] ", log.LstdFlags),
		Metrics:         metrics,
	})
	if err != nil {
		logger.Fatalf("Failed to create risk engine: %v", err)
	}

	sentimentSource := createSentimentSource(*openaiKey, metrics, logger)

	server := &Server{
		stores:    stores,
		engine:    engine,
		sentiment: sentimentSource,
		logger:    logger,
	}

	httpServer := &http.Server{
		Addr:    *addr,
		Handler: server.routes(),
	}

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), *shutdownTimeout)
		defer shutdownCancel()
		go func() {
			// Second signal forces immediate exit
			sig := <-sigCh
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		}()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Printf("Graceful shutdown failed: %v", err)
		}
		cancel()
		close(done)
	}()

	logger.Printf("Listening on %s", *addr)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("HTTP server error: %v", err)
	}

	<-done
	logger.Println("Shutdown complete")
}

// createStores creates all required stores and applies migrations.
func createStores(ctx context.Context, postgresDSN, clickhouseDSN string, useMemory bool, metrics *observability.Metrics) (*allStores, func(), error) {
	if useMemory {
		stores := &allStores{
			portfolioStore: memory.NewPortfolioStore(),
			stockStore:     memory.NewStockStore(),
			analysisStore:  memory.NewRiskAnalysisStore(),
			sentimentStore: memory.NewSentimentRecordStore(),
		}
		return stores, func() {}, nil
	}

	// PostgreSQL: relational data
	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("postgres migrations: %w", err)
	}
	pool.SetMetrics(metrics)

	// ClickHouse: append-only analytics
	chConn, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
	}
	chConn.SetMetrics(metrics)

	stores := &allStores{
		portfolioStore: pgstore.NewPortfolioStore(pool),
		stockStore:     pgstore.NewStockStore(pool),
		analysisStore:  chstore.NewRiskAnalysisStore(chConn),
		sentimentStore: chstore.NewSentimentRecordStore(chConn),
	}

	cleanup := func() {
		chConn.Close()
		pool.Close()
	}

	return stores, cleanup, nil
}

// createSentimentSource builds the two-tier sentiment policy. Without an
// API key only the lexicon tier runs.
func createSentimentSource(openaiKey string, metrics *observability.Metrics, logger *log.Logger) sentiment.Source {
	lexicon := sentiment.NewLexiconSource()
	if openaiKey == "" {
		logger.Println("OPENAI_API_KEY not set, sentiment runs on the lexicon tier only")
		return lexicon
	}
	return sentiment.NewTieredSource(
		sentiment.NewOpenAISource(openaiKey),
		lexicon,
		sentiment.WithLogger(log.New(os.Stdout, "[sentiment] ", log.LstdFlags)),
		sentiment.WithMetrics(metrics),
	)
}

// envOr returns the environment variable value or a fallback.
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// loadEnvFile loads environment variables from .env file if it exists.
func loadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return // File doesn't exist, use system env vars
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Don't override existing env vars
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
