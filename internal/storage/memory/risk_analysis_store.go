package memory

import (
	"context"
	"sort"
	"sync"

	"portfolio-risk-lab/internal/domain"
	"portfolio-risk-lab/internal/storage"
)

// RiskAnalysisStore is an in-memory implementation of storage.RiskAnalysisStore.
type RiskAnalysisStore struct {
	mu   sync.RWMutex
	data map[string]*domain.RiskAnalysisRecord // keyed by analysis_id
}

// NewRiskAnalysisStore creates a new in-memory risk analysis store.
func NewRiskAnalysisStore() *RiskAnalysisStore {
	return &RiskAnalysisStore{
		data: make(map[string]*domain.RiskAnalysisRecord),
	}
}

// Insert adds a new analysis record. Returns ErrDuplicateKey if analysis_id exists.
func (s *RiskAnalysisStore) Insert(_ context.Context, r *domain.RiskAnalysisRecord) error {
	if r == nil || r.AnalysisID == "" || r.PortfolioID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[r.AnalysisID]; exists {
		return storage.ErrDuplicateKey
	}

	recordCopy := *r
	s.data[r.AnalysisID] = &recordCopy
	return nil
}

// GetByPortfolio retrieves all records for a portfolio, ordered by analyzed_at ASC.
func (s *RiskAnalysisStore) GetByPortfolio(_ context.Context, portfolioID string) ([]*domain.RiskAnalysisRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.RiskAnalysisRecord
	for _, r := range s.data {
		if r.PortfolioID == portfolioID {
			recordCopy := *r
			result = append(result, &recordCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].AnalyzedAt != result[j].AnalyzedAt {
			return result[i].AnalyzedAt < result[j].AnalyzedAt
		}
		return result[i].AnalysisID < result[j].AnalysisID
	})

	return result, nil
}

// GetLatest retrieves the most recent record for a portfolio. Returns ErrNotFound if none.
func (s *RiskAnalysisStore) GetLatest(ctx context.Context, portfolioID string) (*domain.RiskAnalysisRecord, error) {
	records, err := s.GetByPortfolio(ctx, portfolioID)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, storage.ErrNotFound
	}
	return records[len(records)-1], nil
}

// Verify interface compliance at compile time.
var _ storage.RiskAnalysisStore = (*RiskAnalysisStore)(nil)
