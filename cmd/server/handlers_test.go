package main

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"

	"portfolio-risk-lab/internal/marketdata/stub"
	"portfolio-risk-lab/internal/risk"
	"portfolio-risk-lab/internal/sentiment"
	"portfolio-risk-lab/internal/storage/memory"
)

// newTestServer wires the API against in-memory stores, a stub market data
// provider and the lexicon sentiment tier.
func newTestServer(t *testing.T) (*Server, http.Handler) {
	t.Helper()

	provider := stub.NewProvider()
	closes := make([]float64, 40)
	bench := make([]float64, 40)
	price := 100.0
	for i := range closes {
		if i%2 == 0 {
			price *= 1.01
		} else {
			price *= 0.995
		}
		closes[i] = price
		bench[i] = 200 + float64(i)
	}
	provider.SetSeries("AAPL", closes)
	provider.SetSeries("XOM", closes)
	provider.SetSeries("BENCH", bench)
	provider.SetConstantSeries("KO", 60, 40)
	provider.SetConstantSeries("PG", 150, 40)

	engine, err := risk.NewEngine(risk.EngineOptions{
		Provider:        provider,
		BenchmarkSymbol: "BENCH",
		Trials:          200,
		HorizonDays:     30,
		Seed:            42,
		Workers:         2,
	})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	srv := &Server{
		stores: &allStores{
			portfolioStore: memory.NewPortfolioStore(),
			stockStore:     memory.NewStockStore(),
			analysisStore:  memory.NewRiskAnalysisStore(),
			sentimentStore: memory.NewSentimentRecordStore(),
		},
		engine:    engine,
		sentiment: sentiment.NewLexiconSource(),
		logger:    log.New(io.Discard, "", 0),
	}
	return srv, srv.routes()
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return v
}

func createTestPortfolio(t *testing.T, h http.Handler) portfolioPayload {
	t.Helper()
	rec := doJSON(t, h, "POST", "/api/v1/portfolios", portfolioPayload{
		Name:    "Growth",
		OwnerID: "user-1",
		Holdings: []holdingPayload{
			{Symbol: "AAPL", Value: 600, Sector: "Technology"},
			{Symbol: "XOM", Value: 400, Sector: "Energy"},
		},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create portfolio: status %d, body %s", rec.Code, rec.Body.String())
	}
	return decode[portfolioPayload](t, rec)
}

func TestHealthEndpoint(t *testing.T) {
	_, h := newTestServer(t)
	rec := doJSON(t, h, "GET", "/health", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("health: status %d", rec.Code)
	}
}

func TestPortfolioLifecycle(t *testing.T) {
	_, h := newTestServer(t)

	created := createTestPortfolio(t, h)
	if created.PortfolioID == "" {
		t.Fatal("created portfolio has no ID")
	}
	if len(created.Holdings) != 2 {
		t.Fatalf("created holdings: got %d", len(created.Holdings))
	}

	// Get
	rec := doJSON(t, h, "GET", "/api/v1/portfolios/"+created.PortfolioID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get: status %d", rec.Code)
	}
	got := decode[portfolioPayload](t, rec)
	if got.Name != "Growth" || got.OwnerID != "user-1" {
		t.Errorf("get: unexpected payload %+v", got)
	}

	// List by owner
	rec = doJSON(t, h, "GET", "/api/v1/portfolios?owner_id=user-1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list: status %d", rec.Code)
	}
	list := decode[[]portfolioPayload](t, rec)
	if len(list) != 1 {
		t.Errorf("list: got %d portfolios", len(list))
	}

	// Update
	rec = doJSON(t, h, "PUT", "/api/v1/portfolios/"+created.PortfolioID, portfolioPayload{
		Name:     "Renamed",
		Holdings: []holdingPayload{{Symbol: "MSFT", Value: 1000, Sector: "Technology"}},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update: status %d, body %s", rec.Code, rec.Body.String())
	}
	updated := decode[portfolioPayload](t, rec)
	if updated.Name != "Renamed" || len(updated.Holdings) != 1 {
		t.Errorf("update: unexpected payload %+v", updated)
	}

	// Delete
	rec = doJSON(t, h, "DELETE", "/api/v1/portfolios/"+created.PortfolioID, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete: status %d", rec.Code)
	}
	rec = doJSON(t, h, "GET", "/api/v1/portfolios/"+created.PortfolioID, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("get after delete: status %d", rec.Code)
	}
}

func TestCreatePortfolioValidation(t *testing.T) {
	_, h := newTestServer(t)

	rec := doJSON(t, h, "POST", "/api/v1/portfolios", portfolioPayload{Name: "NoOwner"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing owner_id: status %d", rec.Code)
	}
}

func TestRunRiskAnalysisAndHistory(t *testing.T) {
	_, h := newTestServer(t)
	created := createTestPortfolio(t, h)

	rec := doJSON(t, h, "POST", "/api/v1/portfolios/"+created.PortfolioID+"/risk", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("run analysis: status %d, body %s", rec.Code, rec.Body.String())
	}
	result := decode[riskAnalysisPayload](t, rec)
	if result.AnalysisID == "" {
		t.Error("analysis has no ID")
	}
	if result.Trials != 200 || result.HorizonDays != 30 {
		t.Errorf("analysis params: trials %d horizon %d", result.Trials, result.HorizonDays)
	}
	if result.Volatility <= 0 {
		t.Errorf("volatility = %v, want > 0 for a volatile series", result.Volatility)
	}
	if result.VaR99 < result.VaR95 {
		t.Errorf("var99 %v < var95 %v", result.VaR99, result.VaR95)
	}

	// Latest matches the run we just made
	rec = doJSON(t, h, "GET", "/api/v1/portfolios/"+created.PortfolioID+"/risk/latest", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("latest: status %d", rec.Code)
	}
	latest := decode[riskAnalysisPayload](t, rec)
	if latest.AnalysisID != result.AnalysisID {
		t.Errorf("latest ID %s != run ID %s", latest.AnalysisID, result.AnalysisID)
	}

	// History contains it
	rec = doJSON(t, h, "GET", "/api/v1/portfolios/"+created.PortfolioID+"/risk/history", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("history: status %d", rec.Code)
	}
	history := decode[[]riskAnalysisPayload](t, rec)
	if len(history) != 1 {
		t.Errorf("history: got %d records", len(history))
	}
}

func TestRunRiskAnalysisFlatPrices(t *testing.T) {
	_, h := newTestServer(t)

	rec := doJSON(t, h, "POST", "/api/v1/portfolios", portfolioPayload{
		Name:    "Defensive",
		OwnerID: "user-1",
		Holdings: []holdingPayload{
			{Symbol: "KO", Value: 600, Sector: "Consumer Staples"},
			{Symbol: "PG", Value: 400, Sector: "Consumer Goods"},
		},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create portfolio: status %d, body %s", rec.Code, rec.Body.String())
	}
	created := decode[portfolioPayload](t, rec)

	// Flat price history gives zero volatility, so the Sharpe ratio is
	// the -Inf sentinel and must reach the client as null, not break
	// the response body.
	rec = doJSON(t, h, "POST", "/api/v1/portfolios/"+created.PortfolioID+"/risk", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("run analysis: status %d, body %s", rec.Code, rec.Body.String())
	}
	if rec.Body.Len() == 0 {
		t.Fatal("analysis response has an empty body")
	}
	result := decode[riskAnalysisPayload](t, rec)
	if result.SharpeRatio != nil {
		t.Errorf("sharpe_ratio = %v, want null for zero volatility", *result.SharpeRatio)
	}
	if result.Volatility != 0 {
		t.Errorf("volatility = %v, want 0 for flat prices", result.Volatility)
	}
	if result.VaR95 != 0 || result.VaR99 != 0 {
		t.Errorf("VaR = (%v, %v), want zero for flat prices", result.VaR95, result.VaR99)
	}
	if result.WorstCase != 0 || result.BestCase != 0 {
		t.Errorf("worst/best = (%v, %v), want zero for flat prices", result.WorstCase, result.BestCase)
	}

	// The persisted record survives the same boundary on reads.
	rec = doJSON(t, h, "GET", "/api/v1/portfolios/"+created.PortfolioID+"/risk/latest", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("latest: status %d, body %s", rec.Code, rec.Body.String())
	}
	latest := decode[riskAnalysisPayload](t, rec)
	if latest.SharpeRatio != nil {
		t.Errorf("latest sharpe_ratio = %v, want null", *latest.SharpeRatio)
	}
}

func TestCompareRisk(t *testing.T) {
	_, h := newTestServer(t)
	first := createTestPortfolio(t, h)

	rec := doJSON(t, h, "POST", "/api/v1/portfolios", portfolioPayload{
		Name:    "Defensive",
		OwnerID: "user-1",
		Holdings: []holdingPayload{
			{Symbol: "KO", Value: 500, Sector: "Consumer Staples"},
			{Symbol: "PG", Value: 500, Sector: "Consumer Goods"},
		},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create portfolio: status %d", rec.Code)
	}
	second := decode[portfolioPayload](t, rec)

	// No analyses yet: nothing to compare.
	rec = doJSON(t, h, "GET", "/api/v1/risk/compare?portfolio_ids="+first.PortfolioID+","+second.PortfolioID, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("compare without analyses: status %d", rec.Code)
	}

	for _, id := range []string{first.PortfolioID, second.PortfolioID} {
		rec = doJSON(t, h, "POST", "/api/v1/portfolios/"+id+"/risk", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("run analysis for %s: status %d, body %s", id, rec.Code, rec.Body.String())
		}
	}

	rec = doJSON(t, h, "GET", "/api/v1/risk/compare?portfolio_ids="+first.PortfolioID+","+second.PortfolioID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("compare: status %d, body %s", rec.Code, rec.Body.String())
	}
	comparison := decode[map[string]riskComparisonEntry](t, rec)
	if len(comparison) != 2 {
		t.Fatalf("compare: got %d entries, want 2", len(comparison))
	}
	if got := comparison[first.PortfolioID].PortfolioName; got != "Growth" {
		t.Errorf("first portfolio name = %q", got)
	}
	if comparison[first.PortfolioID].Volatility <= 0 {
		t.Errorf("volatile portfolio has volatility %v", comparison[first.PortfolioID].Volatility)
	}
	if comparison[second.PortfolioID].SharpeRatio != nil {
		t.Errorf("flat portfolio sharpe = %v, want null", *comparison[second.PortfolioID].SharpeRatio)
	}

	// Fewer than two IDs is rejected.
	rec = doJSON(t, h, "GET", "/api/v1/risk/compare?portfolio_ids="+first.PortfolioID, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("single id: status %d", rec.Code)
	}

	// Any unknown portfolio fails the whole comparison.
	rec = doJSON(t, h, "GET", "/api/v1/risk/compare?portfolio_ids="+first.PortfolioID+",nonexistent", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown portfolio: status %d", rec.Code)
	}
}

func TestRunRiskAnalysisUnknownPortfolio(t *testing.T) {
	_, h := newTestServer(t)

	rec := doJSON(t, h, "POST", "/api/v1/portfolios/nonexistent/risk", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown portfolio: status %d", rec.Code)
	}
}

func TestRiskLatestNotFound(t *testing.T) {
	_, h := newTestServer(t)
	created := createTestPortfolio(t, h)

	rec := doJSON(t, h, "GET", "/api/v1/portfolios/"+created.PortfolioID+"/risk/latest", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("no analyses yet: status %d", rec.Code)
	}
}

func TestSentimentAnalyzeAndHistory(t *testing.T) {
	_, h := newTestServer(t)

	rec := doJSON(t, h, "POST", "/api/v1/sentiment", sentimentRequest{
		Symbol: "AAPL",
		Text:   "Record profit and strong growth after earnings beat",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("analyze: status %d, body %s", rec.Code, rec.Body.String())
	}
	result := decode[sentimentPayload](t, rec)
	if result.Label != "positive" {
		t.Errorf("label = %q, want positive", result.Label)
	}
	if result.RecordID == "" || result.AnalyzedAt == 0 {
		t.Errorf("record not fully populated: %+v", result)
	}

	rec = doJSON(t, h, "GET", "/api/v1/sentiment/AAPL", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("history: status %d", rec.Code)
	}
	history := decode[[]sentimentPayload](t, rec)
	if len(history) != 1 || history[0].RecordID != result.RecordID {
		t.Errorf("history: %+v", history)
	}
}

func TestSentimentEmptyText(t *testing.T) {
	_, h := newTestServer(t)

	rec := doJSON(t, h, "POST", "/api/v1/sentiment", sentimentRequest{Symbol: "AAPL"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty text: status %d", rec.Code)
	}
}

func TestStockEndpoints(t *testing.T) {
	_, h := newTestServer(t)

	sector := "Technology"
	rec := doJSON(t, h, "POST", "/api/v1/stocks", stockPayload{
		Symbol: "AAPL",
		Name:   "Apple Inc.",
		Sector: &sector,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create stock: status %d, body %s", rec.Code, rec.Body.String())
	}

	// Duplicate -> conflict
	rec = doJSON(t, h, "POST", "/api/v1/stocks", stockPayload{Symbol: "AAPL", Name: "Apple Inc."})
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate stock: status %d", rec.Code)
	}

	rec = doJSON(t, h, "GET", "/api/v1/stocks/AAPL", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get stock: status %d", rec.Code)
	}
	got := decode[stockPayload](t, rec)
	if got.Sector == nil || *got.Sector != "Technology" {
		t.Errorf("stock sector: %+v", got.Sector)
	}

	rec = doJSON(t, h, "GET", "/api/v1/stocks?q=apple", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("search: status %d", rec.Code)
	}
	results := decode[[]stockPayload](t, rec)
	if len(results) != 1 {
		t.Errorf("search: got %d results", len(results))
	}

	rec = doJSON(t, h, "GET", "/api/v1/sectors", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("sectors: status %d", rec.Code)
	}
	sectors := decode[[]string](t, rec)
	if len(sectors) != 1 || sectors[0] != "Technology" {
		t.Errorf("sectors: %v", sectors)
	}
}
