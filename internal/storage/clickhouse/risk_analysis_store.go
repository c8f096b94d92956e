package clickhouse

import (
	"context"
	"fmt"

	"portfolio-risk-lab/internal/domain"
	"portfolio-risk-lab/internal/storage"
)

// RiskAnalysisStore implements storage.RiskAnalysisStore using ClickHouse.
// Rows are immutable: MergeTree does not enforce uniqueness, so duplicates
// are rejected with an explicit existence check before insert.
type RiskAnalysisStore struct {
	conn *Conn
}

// NewRiskAnalysisStore creates a new RiskAnalysisStore.
func NewRiskAnalysisStore(conn *Conn) *RiskAnalysisStore {
	return &RiskAnalysisStore{conn: conn}
}

// Compile-time interface check.
var _ storage.RiskAnalysisStore = (*RiskAnalysisStore)(nil)

const riskAnalysisColumns = `
	analysis_id, portfolio_id,
	mean_return, volatility, var_95, var_99, worst_case, best_case,
	beta, sharpe_ratio, diversification_score,
	trials, horizon_days, analyzed_at
`

// Insert adds a new analysis record. Returns ErrDuplicateKey if analysis_id exists.
func (s *RiskAnalysisStore) Insert(ctx context.Context, r *domain.RiskAnalysisRecord) error {
	if r == nil || r.AnalysisID == "" || r.PortfolioID == "" {
		return storage.ErrInvalidInput
	}

	exists, err := s.exists(ctx, r.AnalysisID)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if exists {
		return storage.ErrDuplicateKey
	}

	query := `
		INSERT INTO risk_analyses (` + riskAnalysisColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	err = s.conn.Exec(ctx, query,
		r.AnalysisID, r.PortfolioID,
		r.Metrics.MeanReturn, r.Metrics.Volatility,
		r.Metrics.VaR95, r.Metrics.VaR99,
		r.Metrics.WorstCase, r.Metrics.BestCase,
		r.Metrics.Beta, r.Metrics.SharpeRatio, r.Metrics.DiversificationScore,
		uint32(r.Trials), uint32(r.HorizonDays), uint64(r.AnalyzedAt),
	)
	if err != nil {
		return fmt.Errorf("insert risk analysis: %w", err)
	}
	return nil
}

// GetByPortfolio retrieves all records for a portfolio, ordered by analyzed_at ASC.
func (s *RiskAnalysisStore) GetByPortfolio(ctx context.Context, portfolioID string) ([]*domain.RiskAnalysisRecord, error) {
	query := `
		SELECT ` + riskAnalysisColumns + `
		FROM risk_analyses
		WHERE portfolio_id = ?
		ORDER BY analyzed_at ASC, analysis_id ASC
	`

	rows, err := s.conn.Query(ctx, query, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("query by portfolio: %w", err)
	}
	defer rows.Close()

	return scanRiskAnalyses(rows)
}

// GetLatest retrieves the most recent record for a portfolio. Returns ErrNotFound if none.
func (s *RiskAnalysisStore) GetLatest(ctx context.Context, portfolioID string) (*domain.RiskAnalysisRecord, error) {
	query := `
		SELECT ` + riskAnalysisColumns + `
		FROM risk_analyses
		WHERE portfolio_id = ?
		ORDER BY analyzed_at DESC, analysis_id DESC
		LIMIT 1
	`

	rows, err := s.conn.Query(ctx, query, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("query latest: %w", err)
	}
	defer rows.Close()

	records, err := scanRiskAnalyses(rows)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, storage.ErrNotFound
	}
	return records[0], nil
}

// exists checks if a record with the given analysis_id exists.
func (s *RiskAnalysisStore) exists(ctx context.Context, analysisID string) (bool, error) {
	var count uint64
	err := s.conn.QueryRow(ctx,
		`SELECT count(*) FROM risk_analyses WHERE analysis_id = ?`, analysisID,
	).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// scanRiskAnalyses scans multiple rows.
func scanRiskAnalyses(rows chRows) ([]*domain.RiskAnalysisRecord, error) {
	var records []*domain.RiskAnalysisRecord

	for rows.Next() {
		var r domain.RiskAnalysisRecord
		var trials, horizonDays uint32
		var analyzedAt uint64

		err := rows.Scan(
			&r.AnalysisID, &r.PortfolioID,
			&r.Metrics.MeanReturn, &r.Metrics.Volatility,
			&r.Metrics.VaR95, &r.Metrics.VaR99,
			&r.Metrics.WorstCase, &r.Metrics.BestCase,
			&r.Metrics.Beta, &r.Metrics.SharpeRatio, &r.Metrics.DiversificationScore,
			&trials, &horizonDays, &analyzedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan risk analysis row: %w", err)
		}

		r.Trials = int(trials)
		r.HorizonDays = int(horizonDays)
		r.AnalyzedAt = int64(analyzedAt)
		records = append(records, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate risk analysis rows: %w", err)
	}

	return records, nil
}
