package memory

import (
	"context"
	"errors"
	"testing"

	"portfolio-risk-lab/internal/domain"
	"portfolio-risk-lab/internal/storage"
)

func testStock(symbol, name, sector string) *domain.Stock {
	return &domain.Stock{
		Symbol:    symbol,
		Name:      name,
		Sector:    &sector,
		CreatedAt: 1704067200000,
	}
}

func TestStockStore_InsertAndGet(t *testing.T) {
	store := NewStockStore()
	ctx := context.Background()

	st := testStock("AAPL", "Apple Inc.", "Technology")
	price := 182.5
	st.CurrentPrice = &price

	if err := store.Insert(ctx, st); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := store.GetBySymbol(ctx, "AAPL")
	if err != nil {
		t.Fatalf("GetBySymbol failed: %v", err)
	}
	if got.Name != "Apple Inc." {
		t.Errorf("Name mismatch: got %s", got.Name)
	}
	if got.CurrentPrice == nil || *got.CurrentPrice != 182.5 {
		t.Errorf("CurrentPrice mismatch: got %v", got.CurrentPrice)
	}
}

func TestStockStore_DuplicateKey(t *testing.T) {
	store := NewStockStore()
	ctx := context.Background()

	st := testStock("AAPL", "Apple Inc.", "Technology")
	if err := store.Insert(ctx, st); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}
	if err := store.Insert(ctx, st); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestStockStore_NotFound(t *testing.T) {
	store := NewStockStore()
	ctx := context.Background()

	if _, err := store.GetBySymbol(ctx, "ZZZZ"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestStockStore_Search(t *testing.T) {
	store := NewStockStore()
	ctx := context.Background()

	stocks := []*domain.Stock{
		testStock("AAPL", "Apple Inc.", "Technology"),
		testStock("MSFT", "Microsoft Corporation", "Technology"),
		testStock("XOM", "Exxon Mobil", "Energy"),
	}
	for _, st := range stocks {
		if err := store.Insert(ctx, st); err != nil {
			t.Fatalf("Insert %s failed: %v", st.Symbol, err)
		}
	}

	// Matches name, case-insensitive
	got, err := store.Search(ctx, "micro", 10)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(got) != 1 || got[0].Symbol != "MSFT" {
		t.Errorf("Search micro: got %+v", got)
	}

	// Matches symbol substring across several rows, ordered by symbol
	got, err = store.Search(ctx, "o", 10)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Search o: expected 3 rows, got %d", len(got))
	}
	if got[0].Symbol != "AAPL" || got[2].Symbol != "XOM" {
		t.Errorf("Search order wrong: %s .. %s", got[0].Symbol, got[2].Symbol)
	}

	// Limit applies after ordering
	got, err = store.Search(ctx, "o", 2)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("Search with limit: expected 2 rows, got %d", len(got))
	}
}

func TestStockStore_ListSectors(t *testing.T) {
	store := NewStockStore()
	ctx := context.Background()

	for _, st := range []*domain.Stock{
		testStock("AAPL", "Apple Inc.", "Technology"),
		testStock("MSFT", "Microsoft Corporation", "Technology"),
		testStock("XOM", "Exxon Mobil", "Energy"),
		{Symbol: "ZZZ", Name: "No Sector Corp", CreatedAt: 1704067200000},
	} {
		if err := store.Insert(ctx, st); err != nil {
			t.Fatalf("Insert %s failed: %v", st.Symbol, err)
		}
	}

	sectors, err := store.ListSectors(ctx)
	if err != nil {
		t.Fatalf("ListSectors failed: %v", err)
	}
	want := []string{"Energy", "Technology"}
	if len(sectors) != len(want) {
		t.Fatalf("Sectors: got %v, want %v", sectors, want)
	}
	for i := range want {
		if sectors[i] != want[i] {
			t.Errorf("Sector[%d]: got %s, want %s", i, sectors[i], want[i])
		}
	}
}
