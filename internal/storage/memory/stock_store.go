package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"portfolio-risk-lab/internal/domain"
	"portfolio-risk-lab/internal/storage"
)

// StockStore is an in-memory implementation of storage.StockStore.
type StockStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Stock // keyed by symbol
}

// NewStockStore creates a new in-memory stock store.
func NewStockStore() *StockStore {
	return &StockStore{
		data: make(map[string]*domain.Stock),
	}
}

// Insert adds a new stock. Returns ErrDuplicateKey if symbol exists.
func (s *StockStore) Insert(_ context.Context, st *domain.Stock) error {
	if st == nil || st.Symbol == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[st.Symbol]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[st.Symbol] = copyStock(st)
	return nil
}

// GetBySymbol retrieves a stock by ticker. Returns ErrNotFound if not exists.
func (s *StockStore) GetBySymbol(_ context.Context, symbol string) (*domain.Stock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, exists := s.data[symbol]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return copyStock(st), nil
}

// Search retrieves stocks whose symbol or name contains the query
// (case-insensitive), ordered by symbol ASC, up to limit rows.
func (s *StockStore) Search(_ context.Context, query string, limit int) ([]*domain.Stock, error) {
	if limit <= 0 {
		return nil, nil
	}
	q := strings.ToLower(query)

	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Stock
	for _, st := range s.data {
		if strings.Contains(strings.ToLower(st.Symbol), q) ||
			strings.Contains(strings.ToLower(st.Name), q) {
			result = append(result, copyStock(st))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Symbol < result[j].Symbol
	})
	if len(result) > limit {
		result = result[:limit]
	}

	return result, nil
}

// ListSectors retrieves the distinct non-null sectors, ordered ASC.
func (s *StockStore) ListSectors(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, st := range s.data {
		if st.Sector != nil && *st.Sector != "" {
			seen[*st.Sector] = struct{}{}
		}
	}

	sectors := make([]string, 0, len(seen))
	for sector := range seen {
		sectors = append(sectors, sector)
	}
	sort.Strings(sectors)

	return sectors, nil
}

// copyStock copies a stock including its nullable fields.
func copyStock(st *domain.Stock) *domain.Stock {
	cp := *st
	if st.Sector != nil {
		v := *st.Sector
		cp.Sector = &v
	}
	if st.Industry != nil {
		v := *st.Industry
		cp.Industry = &v
	}
	if st.CurrentPrice != nil {
		v := *st.CurrentPrice
		cp.CurrentPrice = &v
	}
	if st.LastUpdated != nil {
		v := *st.LastUpdated
		cp.LastUpdated = &v
	}
	return &cp
}

// Verify interface compliance at compile time.
var _ storage.StockStore = (*StockStore)(nil)
