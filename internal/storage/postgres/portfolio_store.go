package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"portfolio-risk-lab/internal/domain"
	"portfolio-risk-lab/internal/storage"
)

// PortfolioStore implements storage.PortfolioStore using PostgreSQL.
// Holdings live in a child table and are written in the same transaction
// as the portfolio row.
type PortfolioStore struct {
	pool *Pool
}

// NewPortfolioStore creates a new PortfolioStore.
func NewPortfolioStore(pool *Pool) *PortfolioStore {
	return &PortfolioStore{pool: pool}
}

// Compile-time interface check.
var _ storage.PortfolioStore = (*PortfolioStore)(nil)

// Insert adds a new portfolio. Returns ErrDuplicateKey if portfolio_id exists.
func (s *PortfolioStore) Insert(ctx context.Context, p *domain.Portfolio) error {
	if p == nil || p.PortfolioID == "" {
		return storage.ErrInvalidInput
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin insert portfolio: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO portfolios (
			portfolio_id, name, description, owner_id, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = tx.Exec(ctx, query,
		p.PortfolioID,
		p.Name,
		p.Description,
		p.OwnerID,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert portfolio: %w", err)
	}

	if err := insertHoldings(ctx, tx, p.PortfolioID, p.Holdings); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit insert portfolio: %w", err)
	}
	return nil
}

// GetByID retrieves a portfolio with its holdings. Returns ErrNotFound if not exists.
func (s *PortfolioStore) GetByID(ctx context.Context, portfolioID string) (*domain.Portfolio, error) {
	query := `
		SELECT portfolio_id, name, description, owner_id, created_at, updated_at
		FROM portfolios
		WHERE portfolio_id = $1
	`

	row := s.pool.QueryRow(ctx, query, portfolioID)
	p, err := scanPortfolio(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get portfolio by id: %w", err)
	}

	p.Holdings, err = s.getHoldings(ctx, portfolioID)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// GetByOwner retrieves all portfolios for an owner, ordered by created_at ASC.
func (s *PortfolioStore) GetByOwner(ctx context.Context, ownerID string) ([]*domain.Portfolio, error) {
	query := `
		SELECT portfolio_id, name, description, owner_id, created_at, updated_at
		FROM portfolios
		WHERE owner_id = $1
		ORDER BY created_at ASC, portfolio_id ASC
	`

	rows, err := s.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("get portfolios by owner: %w", err)
	}
	defer rows.Close()

	portfolios, err := scanPortfolios(rows)
	if err != nil {
		return nil, err
	}

	for _, p := range portfolios {
		p.Holdings, err = s.getHoldings(ctx, p.PortfolioID)
		if err != nil {
			return nil, err
		}
	}
	return portfolios, nil
}

// Update replaces name, description and holdings. Returns ErrNotFound if not exists.
func (s *PortfolioStore) Update(ctx context.Context, p *domain.Portfolio) error {
	if p == nil || p.PortfolioID == "" {
		return storage.ErrInvalidInput
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin update portfolio: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		UPDATE portfolios
		SET name = $2, description = $3, updated_at = $4
		WHERE portfolio_id = $1
	`
	tag, err := tx.Exec(ctx, query, p.PortfolioID, p.Name, p.Description, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update portfolio: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}

	if _, err := tx.Exec(ctx, `DELETE FROM portfolio_holdings WHERE portfolio_id = $1`, p.PortfolioID); err != nil {
		return fmt.Errorf("clear holdings: %w", err)
	}
	if err := insertHoldings(ctx, tx, p.PortfolioID, p.Holdings); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit update portfolio: %w", err)
	}
	return nil
}

// Delete removes a portfolio and its holdings. Returns ErrNotFound if not exists.
func (s *PortfolioStore) Delete(ctx context.Context, portfolioID string) error {
	// Holdings rows go with the parent via ON DELETE CASCADE.
	tag, err := s.pool.Exec(ctx, `DELETE FROM portfolios WHERE portfolio_id = $1`, portfolioID)
	if err != nil {
		return fmt.Errorf("delete portfolio: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// insertHoldings writes holdings rows inside the caller's transaction.
func insertHoldings(ctx context.Context, tx pgx.Tx, portfolioID string, holdings []domain.Holding) error {
	query := `
		INSERT INTO portfolio_holdings (portfolio_id, symbol, value, sector)
		VALUES ($1, $2, $3, $4)
	`
	for _, h := range holdings {
		if _, err := tx.Exec(ctx, query, portfolioID, h.Symbol, h.Value, h.Sector); err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert holding %s: %w", h.Symbol, err)
		}
	}
	return nil
}

// getHoldings loads all holdings for a portfolio, ordered by symbol.
func (s *PortfolioStore) getHoldings(ctx context.Context, portfolioID string) ([]domain.Holding, error) {
	query := `
		SELECT symbol, value, sector
		FROM portfolio_holdings
		WHERE portfolio_id = $1
		ORDER BY symbol ASC
	`

	rows, err := s.pool.Query(ctx, query, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("get holdings: %w", err)
	}
	defer rows.Close()

	var holdings []domain.Holding
	for rows.Next() {
		var h domain.Holding
		if err := rows.Scan(&h.Symbol, &h.Value, &h.Sector); err != nil {
			return nil, fmt.Errorf("scan holding row: %w", err)
		}
		holdings = append(holdings, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate holding rows: %w", err)
	}

	return holdings, nil
}

// scanPortfolio scans a single row into a Portfolio (without holdings).
func scanPortfolio(row pgx.Row) (*domain.Portfolio, error) {
	var p domain.Portfolio
	err := row.Scan(
		&p.PortfolioID,
		&p.Name,
		&p.Description,
		&p.OwnerID,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// scanPortfolios scans multiple rows into a slice of Portfolio (without holdings).
func scanPortfolios(rows pgx.Rows) ([]*domain.Portfolio, error) {
	var portfolios []*domain.Portfolio

	for rows.Next() {
		var p domain.Portfolio
		err := rows.Scan(
			&p.PortfolioID,
			&p.Name,
			&p.Description,
			&p.OwnerID,
			&p.CreatedAt,
			&p.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan portfolio row: %w", err)
		}
		portfolios = append(portfolios, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate portfolio rows: %w", err)
	}

	return portfolios, nil
}
