package collector

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/vaskrneup/NepseTools/internal/model"
	"github.com/vaskrneup/NepseTools/internal/store"
)

func day(symbol, date string, close float64) model.PriceObservation {
	return model.PriceObservation{Symbol: symbol, Date: date, Close: close, Time: "00:00:00"}
}

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse(model.DateLayout, s)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func TestBackfill_WalksFromLastStoredDate(t *testing.T) {
	st := store.NewCSVStore(filepath.Join(t.TempDir(), "prices.csv"), zerolog.Nop())
	if _, err := st.Append([]model.PriceObservation{day("GBIME", "2024-01-01", 300)}); err != nil {
		t.Fatal(err)
	}

	// 2024-01-02 is a holiday (no sheet); 03 and 04 are published.
	fetcher := &MockFetcher{Days: map[string][]model.PriceObservation{
		"2024-01-01": {day("GBIME", "2024-01-01", 300)}, // already stored, must not be re-requested
		"2024-01-03": {day("GBIME", "2024-01-03", 305), day("NMB", "2024-01-03", 210)},
		"2024-01-04": {day("GBIME", "2024-01-04", 307)},
	}}

	bf := NewBackfiller(st, fetcher, 400, zerolog.Nop())
	added, err := bf.Run(context.Background(), mustDate(t, "2024-01-04"))
	if err != nil {
		t.Fatalf("backfill: %v", err)
	}
	if added != 3 {
		t.Errorf("added = %d, want 3", added)
	}

	last, err := st.LastDate()
	if err != nil {
		t.Fatal(err)
	}
	if last != "2024-01-04" {
		t.Errorf("last date = %q, want 2024-01-04", last)
	}

	series, err := st.Series("GBIME", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(series) != 3 {
		t.Errorf("GBIME series length = %d, want 3", len(series))
	}
}

func TestBackfill_EmptyStoreUsesLookback(t *testing.T) {
	st := store.NewCSVStore(filepath.Join(t.TempDir(), "prices.csv"), zerolog.Nop())
	fetcher := &MockFetcher{Days: map[string][]model.PriceObservation{
		"2024-01-08": {day("GBIME", "2024-01-08", 300)},
		"2024-01-10": {day("GBIME", "2024-01-10", 304)},
	}}

	bf := NewBackfiller(st, fetcher, 5, zerolog.Nop())
	added, err := bf.Run(context.Background(), mustDate(t, "2024-01-10"))
	if err != nil {
		t.Fatalf("backfill: %v", err)
	}
	if added != 2 {
		t.Errorf("added = %d, want 2", added)
	}
}

func TestBackfill_FetchErrorAborts(t *testing.T) {
	st := store.NewCSVStore(filepath.Join(t.TempDir(), "prices.csv"), zerolog.Nop())
	fetcher := &MockFetcher{Err: errors.New("upstream down")}

	bf := NewBackfiller(st, fetcher, 5, zerolog.Nop())
	if _, err := bf.Run(context.Background(), mustDate(t, "2024-01-10")); err == nil {
		t.Fatal("expected error when every fetch fails")
	}

	// Nothing was appended, so the next run resumes from the same point.
	last, err := st.LastDate()
	if err != nil {
		t.Fatal(err)
	}
	if last != "" {
		t.Errorf("store should be untouched, last date = %q", last)
	}
}

func TestSnapshot_IndexesBySymbol(t *testing.T) {
	fetcher := &MockFetcher{Days: map[string][]model.PriceObservation{
		"2024-01-10": {day("GBIME", "2024-01-10", 304), day("NMB", "2024-01-10", 211)},
	}}

	snap, err := Snapshot(context.Background(), fetcher, mustDate(t, "2024-01-10"))
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(snap) != 2 {
		t.Fatalf("snapshot size = %d, want 2", len(snap))
	}
	if snap["GBIME"].Close != 304 {
		t.Errorf("GBIME close = %v, want 304", snap["GBIME"].Close)
	}

	// Non-trading day: empty map, no error.
	empty, err := Snapshot(context.Background(), fetcher, mustDate(t, "2024-01-11"))
	if err != nil {
		t.Fatalf("snapshot holiday: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("expected empty snapshot on a holiday, got %d rows", len(empty))
	}
}
