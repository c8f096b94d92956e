package sentiment

import (
	"context"
	"math"
	"strings"

	"portfolio-risk-lab/internal/domain"
)

// lexiconScores maps lowercase financial terms to polarity weights. The
// list is small on purpose: the lexicon tier only needs to give a rough
// direction when the model tier is down.
var lexiconScores = map[string]float64{
	"beat":          1.5,
	"beats":         1.5,
	"growth":        1.2,
	"profit":        1.2,
	"profits":       1.2,
	"record":        1.0,
	"strong":        1.0,
	"surge":         1.5,
	"surged":        1.5,
	"rally":         1.3,
	"rallied":       1.3,
	"gain":          1.0,
	"gains":         1.0,
	"upgrade":       1.4,
	"upgraded":      1.4,
	"bullish":       1.6,
	"outperform":    1.3,
	"dividend":      0.6,
	"buyback":       0.8,
	"expansion":     0.8,
	"miss":          -1.5,
	"missed":        -1.5,
	"loss":          -1.2,
	"losses":        -1.2,
	"decline":       -1.0,
	"declined":      -1.0,
	"drop":          -1.0,
	"dropped":       -1.0,
	"plunge":        -1.6,
	"plunged":       -1.6,
	"crash":         -1.8,
	"downgrade":     -1.4,
	"downgraded":    -1.4,
	"bearish":       -1.6,
	"underperform":  -1.3,
	"lawsuit":       -1.1,
	"fraud":         -1.8,
	"bankruptcy":    -2.0,
	"layoff":        -1.2,
	"layoffs":       -1.2,
	"recession":     -1.4,
	"default":       -1.5,
	"investigation": -1.0,
	"weak":          -1.0,
	"slump":         -1.3,
}

// negations flip the sign of the word that follows them.
var negations = map[string]bool{
	"not": true, "no": true, "never": true, "without": true,
}

// LexiconSource scores text with a fixed financial word list. No network,
// no credentials, always available.
type LexiconSource struct{}

// NewLexiconSource creates the fallback lexicon scorer.
func NewLexiconSource() *LexiconSource { return &LexiconSource{} }

func (s *LexiconSource) Name() string { return "lexicon" }

// Analyze sums polarity weights over the tokens, flips signs after
// negations, and normalizes the total into [-1, 1].
func (s *LexiconSource) Analyze(_ context.Context, text string) (*domain.SentimentRecord, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}

	tokens := tokenize(text)
	var total float64
	hits := 0
	negate := false
	for _, tok := range tokens {
		if negations[tok] {
			negate = true
			continue
		}
		w, ok := lexiconScores[tok]
		if ok {
			if negate {
				w = -w
			}
			total += w
			hits++
		}
		negate = false
	}

	// Sigmoid-style normalization keeps one strong word from saturating.
	score := total / math.Sqrt(total*total+15)
	confidence := 0.3
	if hits > 0 {
		confidence = math.Min(0.3+0.1*float64(hits), 0.8)
	}

	return &domain.SentimentRecord{
		Source:     s.Name(),
		Score:      score,
		Confidence: confidence,
		Label:      labelForScore(score),
		Snippet:    snippet(text),
	}, nil
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9')
	})
}
