package sentiment

import (
	"context"
	"errors"
	"log"

	"portfolio-risk-lab/internal/domain"
	"portfolio-risk-lab/internal/observability"
)

// TieredSource tries a primary source and falls back to a secondary one
// when the primary is unavailable. Hard input errors (empty text,
// canceled context) are not retried on the fallback.
type TieredSource struct {
	primary  Source
	fallback Source
	logger   *log.Logger
	metrics  *observability.Metrics
}

// TieredOption configures a TieredSource.
type TieredOption func(*TieredSource)

// WithLogger sets the logger used for fallback notices.
func WithLogger(l *log.Logger) TieredOption {
	return func(t *TieredSource) {
		t.logger = l
	}
}

// WithMetrics wires request and fallback counters.
func WithMetrics(m *observability.Metrics) TieredOption {
	return func(t *TieredSource) {
		t.metrics = m
	}
}

// NewTieredSource builds the two-tier policy. Both sources are required.
func NewTieredSource(primary, fallback Source, opts ...TieredOption) *TieredSource {
	t := &TieredSource{
		primary:  primary,
		fallback: fallback,
		logger:   log.New(log.Writer(), "[sentiment] ", log.LstdFlags),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *TieredSource) Name() string { return "tiered" }

// Analyze answers from the primary source when it can, otherwise from the
// fallback. The returned record's Source names the tier that answered.
func (t *TieredSource) Analyze(ctx context.Context, text string) (*domain.SentimentRecord, error) {
	rec, err := t.primary.Analyze(ctx, text)
	if err == nil {
		t.count(t.primary.Name(), "ok")
		return rec, nil
	}
	if !errors.Is(err, ErrUnavailable) {
		t.count(t.primary.Name(), "error")
		return nil, err
	}
	if ctx.Err() != nil {
		t.count(t.primary.Name(), "error")
		return nil, ctx.Err()
	}

	t.count(t.primary.Name(), "unavailable")
	if t.metrics != nil {
		t.metrics.SentimentFallbacks.Inc()
	}
	t.logger.Printf("primary source %s unavailable, falling back to %s: %v",
		t.primary.Name(), t.fallback.Name(), err)

	rec, err = t.fallback.Analyze(ctx, text)
	if err != nil {
		t.count(t.fallback.Name(), "error")
		return nil, err
	}
	t.count(t.fallback.Name(), "ok")
	return rec, nil
}

func (t *TieredSource) count(source, status string) {
	if t.metrics != nil {
		t.metrics.SentimentRequests.WithLabelValues(source, status).Inc()
	}
}
