package memory

import (
	"context"
	"errors"
	"testing"

	"portfolio-risk-lab/internal/domain"
	"portfolio-risk-lab/internal/storage"
)

func testAnalysis(id, portfolioID string, analyzedAt int64) *domain.RiskAnalysisRecord {
	return &domain.RiskAnalysisRecord{
		AnalysisID:  id,
		PortfolioID: portfolioID,
		Metrics: domain.RiskMetrics{
			MeanReturn: 0.08,
			Volatility: 0.16,
			VaR95:      120.5,
			VaR99:      210.0,
		},
		Trials:      1000,
		HorizonDays: 252,
		AnalyzedAt:  analyzedAt,
	}
}

func TestRiskAnalysisStore_InsertAndGetLatest(t *testing.T) {
	store := NewRiskAnalysisStore()
	ctx := context.Background()

	older := testAnalysis("a-1", "pf-1", 1704067200000)
	newer := testAnalysis("a-2", "pf-1", 1704153600000)

	if err := store.Insert(ctx, newer); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := store.Insert(ctx, older); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := store.GetLatest(ctx, "pf-1")
	if err != nil {
		t.Fatalf("GetLatest failed: %v", err)
	}
	if got.AnalysisID != "a-2" {
		t.Errorf("GetLatest: got %s, want a-2", got.AnalysisID)
	}
	if got.Metrics.VaR95 != 120.5 {
		t.Errorf("VaR95 mismatch: got %v", got.Metrics.VaR95)
	}
}

func TestRiskAnalysisStore_DuplicateKey(t *testing.T) {
	store := NewRiskAnalysisStore()
	ctx := context.Background()

	r := testAnalysis("a-1", "pf-1", 1704067200000)
	if err := store.Insert(ctx, r); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}
	if err := store.Insert(ctx, r); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestRiskAnalysisStore_HistoryOrdered(t *testing.T) {
	store := NewRiskAnalysisStore()
	ctx := context.Background()

	for _, r := range []*domain.RiskAnalysisRecord{
		testAnalysis("a-3", "pf-1", 1704240000000),
		testAnalysis("a-1", "pf-1", 1704067200000),
		testAnalysis("a-2", "pf-1", 1704153600000),
		testAnalysis("b-1", "pf-2", 1704067200000),
	} {
		if err := store.Insert(ctx, r); err != nil {
			t.Fatalf("Insert %s failed: %v", r.AnalysisID, err)
		}
	}

	got, err := store.GetByPortfolio(ctx, "pf-1")
	if err != nil {
		t.Fatalf("GetByPortfolio failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Expected 3 records, got %d", len(got))
	}
	for i, want := range []string{"a-1", "a-2", "a-3"} {
		if got[i].AnalysisID != want {
			t.Errorf("Record[%d]: got %s, want %s", i, got[i].AnalysisID, want)
		}
	}
}

func TestRiskAnalysisStore_GetLatestNotFound(t *testing.T) {
	store := NewRiskAnalysisStore()
	ctx := context.Background()

	if _, err := store.GetLatest(ctx, "nonexistent"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}
