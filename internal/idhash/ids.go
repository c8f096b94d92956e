// Package idhash computes deterministic record identifiers.
package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// ComputePortfolioID computes a deterministic portfolio_id using SHA256.
// Formula: SHA256(owner_id|name|created_at)
// Returns hex-encoded hash (64 characters).
func ComputePortfolioID(ownerID, name string, createdAt int64) string {
	data := fmt.Sprintf("%s|%s|%d", ownerID, name, createdAt)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// ComputeAnalysisID computes a deterministic analysis_id using SHA256.
// Formula: SHA256(portfolio_id|trials|horizon_days|analyzed_at)
// Returns hex-encoded hash (64 characters).
func ComputeAnalysisID(portfolioID string, trials, horizonDays int, analyzedAt int64) string {
	data := fmt.Sprintf("%s|%d|%d|%d", portfolioID, trials, horizonDays, analyzedAt)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// ComputeSentimentRecordID computes a deterministic record_id using SHA256.
// Formula: SHA256(symbol|source|analyzed_at|snippet)
// The snippet participates so that distinct texts scored in the same
// millisecond still get distinct IDs.
func ComputeSentimentRecordID(symbol, source string, analyzedAt int64, snippet string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s|%s|%d|%s", symbol, source, analyzedAt, snippet)
	hash := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(hash[:])
}
