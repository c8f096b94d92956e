// Package memory provides in-memory store implementations for development
// and tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"portfolio-risk-lab/internal/domain"
	"portfolio-risk-lab/internal/storage"
)

// PortfolioStore is an in-memory implementation of storage.PortfolioStore.
type PortfolioStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Portfolio // keyed by portfolio_id
}

// NewPortfolioStore creates a new in-memory portfolio store.
func NewPortfolioStore() *PortfolioStore {
	return &PortfolioStore{
		data: make(map[string]*domain.Portfolio),
	}
}

// Insert adds a new portfolio. Returns ErrDuplicateKey if portfolio_id exists.
func (s *PortfolioStore) Insert(_ context.Context, p *domain.Portfolio) error {
	if p == nil || p.PortfolioID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[p.PortfolioID]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[p.PortfolioID] = copyPortfolio(p)
	return nil
}

// GetByID retrieves a portfolio with its holdings. Returns ErrNotFound if not exists.
func (s *PortfolioStore) GetByID(_ context.Context, portfolioID string) (*domain.Portfolio, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, exists := s.data[portfolioID]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return copyPortfolio(p), nil
}

// GetByOwner retrieves all portfolios for an owner, ordered by created_at ASC.
func (s *PortfolioStore) GetByOwner(_ context.Context, ownerID string) ([]*domain.Portfolio, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Portfolio
	for _, p := range s.data {
		if p.OwnerID == ownerID {
			result = append(result, copyPortfolio(p))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt != result[j].CreatedAt {
			return result[i].CreatedAt < result[j].CreatedAt
		}
		return result[i].PortfolioID < result[j].PortfolioID
	})

	return result, nil
}

// Update replaces name, description and holdings. Returns ErrNotFound if not exists.
func (s *PortfolioStore) Update(_ context.Context, p *domain.Portfolio) error {
	if p == nil || p.PortfolioID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.data[p.PortfolioID]
	if !exists {
		return storage.ErrNotFound
	}

	updated := copyPortfolio(p)
	updated.OwnerID = existing.OwnerID
	updated.CreatedAt = existing.CreatedAt
	s.data[p.PortfolioID] = updated
	return nil
}

// Delete removes a portfolio and its holdings. Returns ErrNotFound if not exists.
func (s *PortfolioStore) Delete(_ context.Context, portfolioID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[portfolioID]; !exists {
		return storage.ErrNotFound
	}
	delete(s.data, portfolioID)
	return nil
}

// copyPortfolio deep-copies a portfolio to prevent external mutation.
func copyPortfolio(p *domain.Portfolio) *domain.Portfolio {
	cp := *p
	if p.Description != nil {
		desc := *p.Description
		cp.Description = &desc
	}
	cp.Holdings = make([]domain.Holding, len(p.Holdings))
	copy(cp.Holdings, p.Holdings)
	return &cp
}

// Verify interface compliance at compile time.
var _ storage.PortfolioStore = (*PortfolioStore)(nil)
