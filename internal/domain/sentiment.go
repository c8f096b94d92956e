package domain

// Sentiment label constants.
const (
	SentimentPositive = "positive"
	SentimentNeutral  = "neutral"
	SentimentNegative = "negative"
)

// SentimentRecord is the result of scoring one piece of article text.
// Corresponds to the sentiment_records table in ClickHouse.
type SentimentRecord struct {
	RecordID   string  // PRIMARY KEY, deterministic hash
	Symbol     string  // related ticker symbol, may be empty
	Source     string  // which analyzer tier produced the score
	Score      float64 // -1 (negative) .. +1 (positive)
	Confidence float64 // 0..1
	Label      string  // positive | neutral | negative
	Snippet    string  // first 500 chars of the analyzed text
	AnalyzedAt int64   // Unix timestamp in milliseconds
}
