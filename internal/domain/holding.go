package domain

// Holding represents one position in a portfolio.
// Value is the current market value of the position; portfolio weights are
// Value / sum(Values), so a portfolio must be non-empty with total value > 0.
type Holding struct {
	Symbol string  // ticker symbol
	Value  float64 // current market value, >= 0
	Sector string  // sector classification, used for diversification scoring
}

// Portfolio represents a named set of holdings.
// Corresponds to the portfolios table in PostgreSQL.
type Portfolio struct {
	PortfolioID string    // PRIMARY KEY, deterministic hash
	Name        string    // display name
	Description *string   // optional description (nullable)
	OwnerID     string    // owning user identifier
	Holdings    []Holding // current positions
	CreatedAt   int64     // record creation timestamp (ms)
	UpdatedAt   int64     // last update timestamp (ms)
}
