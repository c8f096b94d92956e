package domain

// Stock represents a listed instrument tracked by the system.
// Corresponds to the stocks table in PostgreSQL.
type Stock struct {
	Symbol       string   // PRIMARY KEY, ticker symbol
	Name         string   // company name
	Sector       *string  // sector classification (nullable)
	Industry     *string  // industry classification (nullable)
	CurrentPrice *float64 // last known price (nullable)
	LastUpdated  *int64   // when the price was last refreshed (ms, nullable)
	CreatedAt    int64    // record creation timestamp (ms)
}
