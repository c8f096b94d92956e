package storage

import (
	"context"

	"portfolio-risk-lab/internal/domain"
)

// PortfolioStore provides access to portfolios storage.
type PortfolioStore interface {
	// Insert adds a new portfolio. Returns ErrDuplicateKey if portfolio_id exists.
	Insert(ctx context.Context, p *domain.Portfolio) error

	// GetByID retrieves a portfolio with its holdings. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, portfolioID string) (*domain.Portfolio, error)

	// GetByOwner retrieves all portfolios for an owner, ordered by created_at ASC.
	GetByOwner(ctx context.Context, ownerID string) ([]*domain.Portfolio, error)

	// Update replaces name, description and holdings. Returns ErrNotFound if not exists.
	Update(ctx context.Context, p *domain.Portfolio) error

	// Delete removes a portfolio and its holdings. Returns ErrNotFound if not exists.
	Delete(ctx context.Context, portfolioID string) error
}

// StockStore provides access to stocks storage.
type StockStore interface {
	// Insert adds a new stock. Returns ErrDuplicateKey if symbol exists.
	Insert(ctx context.Context, st *domain.Stock) error

	// GetBySymbol retrieves a stock by ticker. Returns ErrNotFound if not exists.
	GetBySymbol(ctx context.Context, symbol string) (*domain.Stock, error)

	// Search retrieves stocks whose symbol or name contains the query
	// (case-insensitive), ordered by symbol ASC, up to limit rows.
	Search(ctx context.Context, query string, limit int) ([]*domain.Stock, error)

	// ListSectors retrieves the distinct non-null sectors, ordered ASC.
	ListSectors(ctx context.Context) ([]string, error)
}

// RiskAnalysisStore provides access to risk_analyses storage. Append-only:
// each analysis run produces a new immutable row.
type RiskAnalysisStore interface {
	// Insert adds a new analysis record. Returns ErrDuplicateKey if analysis_id exists.
	Insert(ctx context.Context, r *domain.RiskAnalysisRecord) error

	// GetByPortfolio retrieves all records for a portfolio, ordered by analyzed_at ASC.
	GetByPortfolio(ctx context.Context, portfolioID string) ([]*domain.RiskAnalysisRecord, error)

	// GetLatest retrieves the most recent record for a portfolio. Returns ErrNotFound if none.
	GetLatest(ctx context.Context, portfolioID string) (*domain.RiskAnalysisRecord, error)
}

// SentimentRecordStore provides access to sentiment_records storage. Append-only.
type SentimentRecordStore interface {
	// Insert adds a new sentiment record. Returns ErrDuplicateKey if record_id exists.
	Insert(ctx context.Context, r *domain.SentimentRecord) error

	// GetBySymbolSince retrieves records for a symbol with analyzed_at >= since,
	// ordered by analyzed_at ASC.
	GetBySymbolSince(ctx context.Context, symbol string, since int64) ([]*domain.SentimentRecord, error)
}
