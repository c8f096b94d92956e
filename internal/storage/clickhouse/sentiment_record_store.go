package clickhouse

import (
	"context"
	"fmt"

	"portfolio-risk-lab/internal/domain"
	"portfolio-risk-lab/internal/storage"
)

// SentimentRecordStore implements storage.SentimentRecordStore using ClickHouse.
type SentimentRecordStore struct {
	conn *Conn
}

// NewSentimentRecordStore creates a new SentimentRecordStore.
func NewSentimentRecordStore(conn *Conn) *SentimentRecordStore {
	return &SentimentRecordStore{conn: conn}
}

// Compile-time interface check.
var _ storage.SentimentRecordStore = (*SentimentRecordStore)(nil)

const sentimentColumns = `
	record_id, symbol, source, score, confidence, label, snippet, analyzed_at
`

// Insert adds a new sentiment record. Returns ErrDuplicateKey if record_id exists.
func (s *SentimentRecordStore) Insert(ctx context.Context, r *domain.SentimentRecord) error {
	if r == nil || r.RecordID == "" {
		return storage.ErrInvalidInput
	}

	exists, err := s.exists(ctx, r.RecordID)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if exists {
		return storage.ErrDuplicateKey
	}

	query := `
		INSERT INTO sentiment_records (` + sentimentColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	err = s.conn.Exec(ctx, query,
		r.RecordID, r.Symbol, r.Source,
		r.Score, r.Confidence, r.Label, r.Snippet,
		uint64(r.AnalyzedAt),
	)
	if err != nil {
		return fmt.Errorf("insert sentiment record: %w", err)
	}
	return nil
}

// GetBySymbolSince retrieves records for a symbol with analyzed_at >= since,
// ordered by analyzed_at ASC.
func (s *SentimentRecordStore) GetBySymbolSince(ctx context.Context, symbol string, since int64) ([]*domain.SentimentRecord, error) {
	query := `
		SELECT ` + sentimentColumns + `
		FROM sentiment_records
		WHERE symbol = ? AND analyzed_at >= ?
		ORDER BY analyzed_at ASC, record_id ASC
	`

	rows, err := s.conn.Query(ctx, query, symbol, uint64(since))
	if err != nil {
		return nil, fmt.Errorf("query by symbol since: %w", err)
	}
	defer rows.Close()

	return scanSentimentRecords(rows)
}

// exists checks if a record with the given record_id exists.
func (s *SentimentRecordStore) exists(ctx context.Context, recordID string) (bool, error) {
	var count uint64
	err := s.conn.QueryRow(ctx,
		`SELECT count(*) FROM sentiment_records WHERE record_id = ?`, recordID,
	).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// scanSentimentRecords scans multiple rows.
func scanSentimentRecords(rows chRows) ([]*domain.SentimentRecord, error) {
	var records []*domain.SentimentRecord

	for rows.Next() {
		var r domain.SentimentRecord
		var analyzedAt uint64

		err := rows.Scan(
			&r.RecordID, &r.Symbol, &r.Source,
			&r.Score, &r.Confidence, &r.Label, &r.Snippet,
			&analyzedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan sentiment record row: %w", err)
		}

		r.AnalyzedAt = int64(analyzedAt)
		records = append(records, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sentiment record rows: %w", err)
	}

	return records, nil
}
