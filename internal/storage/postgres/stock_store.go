package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"portfolio-risk-lab/internal/domain"
	"portfolio-risk-lab/internal/storage"
)

// StockStore implements storage.StockStore using PostgreSQL.
type StockStore struct {
	pool *Pool
}

// NewStockStore creates a new StockStore.
func NewStockStore(pool *Pool) *StockStore {
	return &StockStore{pool: pool}
}

// Compile-time interface check.
var _ storage.StockStore = (*StockStore)(nil)

// Insert adds a new stock. Returns ErrDuplicateKey if symbol exists.
func (s *StockStore) Insert(ctx context.Context, st *domain.Stock) error {
	if st == nil || st.Symbol == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO stocks (
			symbol, name, sector, industry, current_price, last_updated, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := s.pool.Exec(ctx, query,
		st.Symbol,
		st.Name,
		st.Sector,
		st.Industry,
		st.CurrentPrice,
		st.LastUpdated,
		st.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert stock: %w", err)
	}
	return nil
}

// GetBySymbol retrieves a stock by ticker. Returns ErrNotFound if not exists.
func (s *StockStore) GetBySymbol(ctx context.Context, symbol string) (*domain.Stock, error) {
	query := `
		SELECT symbol, name, sector, industry, current_price, last_updated, created_at
		FROM stocks
		WHERE symbol = $1
	`

	row := s.pool.QueryRow(ctx, query, symbol)
	st, err := scanStock(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get stock by symbol: %w", err)
	}
	return st, nil
}

// Search retrieves stocks whose symbol or name contains the query
// (case-insensitive), ordered by symbol ASC, up to limit rows.
func (s *StockStore) Search(ctx context.Context, query string, limit int) ([]*domain.Stock, error) {
	if limit <= 0 {
		return nil, nil
	}

	sql := `
		SELECT symbol, name, sector, industry, current_price, last_updated, created_at
		FROM stocks
		WHERE symbol ILIKE '%' || $1 || '%' OR name ILIKE '%' || $1 || '%'
		ORDER BY symbol ASC
		LIMIT $2
	`

	rows, err := s.pool.Query(ctx, sql, query, limit)
	if err != nil {
		return nil, fmt.Errorf("search stocks: %w", err)
	}
	defer rows.Close()

	return scanStocks(rows)
}

// ListSectors retrieves the distinct non-null sectors, ordered ASC.
func (s *StockStore) ListSectors(ctx context.Context) ([]string, error) {
	query := `
		SELECT DISTINCT sector
		FROM stocks
		WHERE sector IS NOT NULL AND sector <> ''
		ORDER BY sector ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list sectors: %w", err)
	}
	defer rows.Close()

	var sectors []string
	for rows.Next() {
		var sector string
		if err := rows.Scan(&sector); err != nil {
			return nil, fmt.Errorf("scan sector row: %w", err)
		}
		sectors = append(sectors, sector)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sector rows: %w", err)
	}

	return sectors, nil
}

// scanStock scans a single row into a Stock.
func scanStock(row pgx.Row) (*domain.Stock, error) {
	var st domain.Stock
	err := row.Scan(
		&st.Symbol,
		&st.Name,
		&st.Sector,
		&st.Industry,
		&st.CurrentPrice,
		&st.LastUpdated,
		&st.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// scanStocks scans multiple rows into a slice of Stock.
func scanStocks(rows pgx.Rows) ([]*domain.Stock, error) {
	var stocks []*domain.Stock

	for rows.Next() {
		var st domain.Stock
		err := rows.Scan(
			&st.Symbol,
			&st.Name,
			&st.Sector,
			&st.Industry,
			&st.CurrentPrice,
			&st.LastUpdated,
			&st.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan stock row: %w", err)
		}
		stocks = append(stocks, &st)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stock rows: %w", err)
	}

	return stocks, nil
}
