package memory

import (
	"context"
	"sort"
	"sync"

	"portfolio-risk-lab/internal/domain"
	"portfolio-risk-lab/internal/storage"
)

// SentimentRecordStore is an in-memory implementation of storage.SentimentRecordStore.
type SentimentRecordStore struct {
	mu   sync.RWMutex
	data map[string]*domain.SentimentRecord // keyed by record_id
}

// NewSentimentRecordStore creates a new in-memory sentiment record store.
func NewSentimentRecordStore() *SentimentRecordStore {
	return &SentimentRecordStore{
		data: make(map[string]*domain.SentimentRecord),
	}
}

// Insert adds a new sentiment record. Returns ErrDuplicateKey if record_id exists.
func (s *SentimentRecordStore) Insert(_ context.Context, r *domain.SentimentRecord) error {
	if r == nil || r.RecordID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[r.RecordID]; exists {
		return storage.ErrDuplicateKey
	}

	recordCopy := *r
	s.data[r.RecordID] = &recordCopy
	return nil
}

// GetBySymbolSince retrieves records for a symbol with analyzed_at >= since,
// ordered by analyzed_at ASC.
func (s *SentimentRecordStore) GetBySymbolSince(_ context.Context, symbol string, since int64) ([]*domain.SentimentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.SentimentRecord
	for _, r := range s.data {
		if r.Symbol == symbol && r.AnalyzedAt >= since {
			recordCopy := *r
			result = append(result, &recordCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].AnalyzedAt != result[j].AnalyzedAt {
			return result[i].AnalyzedAt < result[j].AnalyzedAt
		}
		return result[i].RecordID < result[j].RecordID
	})

	return result, nil
}

// Verify interface compliance at compile time.
var _ storage.SentimentRecordStore = (*SentimentRecordStore)(nil)
