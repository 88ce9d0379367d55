package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/gocarina/gocsv"
	"github.com/rs/zerolog"

	"github.com/vaskrneup/NepseTools/internal/model"
)

// PriceStore is the tabular read/append boundary consumed by the indicator
// and collector layers.
type PriceStore interface {
	// Series returns one symbol's observations, date ascending, optionally
	// limited to the trailing tail rows. A symbol with no rows yields an
	// empty series, not an error.
	Series(symbol string, tail int) (model.PriceSeries, error)
	// Append merges new observations into the table, deduplicating on the
	// (symbol, date) key. Existing rows win; re-scrapes only fill gaps.
	// Returns the number of rows actually added.
	Append(rows []model.PriceObservation) (int, error)
	// LastDate returns the most recent session date in the table, or ""
	// when the table is empty.
	LastDate() (string, error)
	// Symbols returns the distinct symbols seen in the trailing tail rows.
	Symbols(tail int) ([]string, error)
}

// CSVStore persists the accumulated price history as a single CSV file,
// the same shape the scraper writes.
type CSVStore struct {
	path string
	log  zerolog.Logger
}

// NewCSVStore creates a store over the given CSV path. The file does not
// need to exist yet; a missing file reads as an empty table.
func NewCSVStore(path string, log zerolog.Logger) *CSVStore {
	return &CSVStore{path: path, log: log.With().Str("component", "csv_store").Logger()}
}

// Load reads the full table, date ascending. A missing file is an empty
// table: short or absent history is routine, not exceptional.
func (s *CSVStore) Load() ([]model.PriceObservation, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open price csv: %w", err)
	}
	defer f.Close()

	var rows []model.PriceObservation
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		return nil, fmt.Errorf("parse price csv %s: %w", s.path, err)
	}
	sortRows(rows)
	return rows, nil
}

func (s *CSVStore) Series(symbol string, tail int) (model.PriceSeries, error) {
	rows, err := s.Load()
	if err != nil {
		return nil, err
	}
	filtered := ApplyFilters(rows, SymbolFilter{Symbol: symbol}, TailFilter{N: tail})
	return model.PriceSeries(filtered), nil
}

func (s *CSVStore) Append(rows []model.PriceObservation) (int, error) {
	existing, err := s.Load()
	if err != nil {
		return 0, err
	}

	seen := make(map[string]struct{}, len(existing))
	for _, r := range existing {
		seen[r.Key()] = struct{}{}
	}

	added := 0
	merged := existing
	for _, r := range rows {
		if _, ok := seen[r.Key()]; ok {
			continue
		}
		seen[r.Key()] = struct{}{}
		merged = append(merged, r)
		added++
	}
	if added == 0 {
		return 0, nil
	}
	sortRows(merged)

	if err := s.write(merged); err != nil {
		return 0, err
	}
	s.log.Info().Int("added", added).Int("total", len(merged)).Msg("price table updated")
	return added, nil
}

func (s *CSVStore) LastDate() (string, error) {
	rows, err := s.Load()
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "", nil
	}
	return rows[len(rows)-1].Date, nil
}

func (s *CSVStore) Symbols(tail int) ([]string, error) {
	rows, err := s.Load()
	if err != nil {
		return nil, err
	}
	rows = ApplyFilters(rows, TailFilter{N: tail})

	set := make(map[string]struct{})
	for _, r := range rows {
		set[r.Symbol] = struct{}{}
	}
	symbols := make([]string, 0, len(set))
	for sym := range set {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)
	return symbols, nil
}

// write replaces the CSV atomically so a crash mid-write cannot corrupt the
// accumulated history.
func (s *CSVStore) write(rows []model.PriceObservation) error {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create store dir: %w", err)
		}
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".prices-*.csv")
	if err != nil {
		return fmt.Errorf("create temp csv: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := gocsv.MarshalFile(&rows, tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("write price csv: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp csv: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace price csv: %w", err)
	}
	return nil
}

// sortRows orders by session date, then serial number, then symbol, matching
// the daily sheet's natural order.
func sortRows(rows []model.PriceObservation) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Date != rows[j].Date {
			return rows[i].Date < rows[j].Date
		}
		if rows[i].SNo != rows[j].SNo {
			return rows[i].SNo < rows[j].SNo
		}
		return rows[i].Symbol < rows[j].Symbol
	})
}
