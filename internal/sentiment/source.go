// Package sentiment scores financial article text on a -1..+1 scale.
package sentiment

import (
	"context"
	"errors"

	"portfolio-risk-lab/internal/domain"
)

// Errors returned by sentiment sources.
var (
	// ErrEmptyText is returned when there is nothing to analyze.
	ErrEmptyText = errors.New("empty text")

	// ErrUnavailable is returned when a source cannot answer (upstream
	// failure, missing credentials). TieredSource treats it as a signal to
	// fall back.
	ErrUnavailable = errors.New("sentiment source unavailable")
)

// Source scores one piece of text. Implementations must be safe for
// concurrent use.
type Source interface {
	// Analyze scores text and returns a record with Score, Confidence,
	// Label and Snippet populated. Symbol, RecordID and AnalyzedAt are
	// left to the caller.
	Analyze(ctx context.Context, text string) (*domain.SentimentRecord, error)

	// Name identifies the source tier, recorded on each result.
	Name() string
}

// snippetLimit caps the stored text excerpt.
const snippetLimit = 500

func snippet(text string) string {
	if len(text) > snippetLimit {
		return text[:snippetLimit]
	}
	return text
}

// labelForScore maps a compound score to a discrete label.
func labelForScore(score float64) string {
	switch {
	case score > 0.05:
		return domain.SentimentPositive
	case score < -0.05:
		return domain.SentimentNegative
	default:
		return domain.SentimentNeutral
	}
}
