// Package collector fetches daily share-price sheets from the market-data
// endpoint and keeps the local price history current.
package collector

import (
	"context"
	"time"

	"github.com/vaskrneup/NepseTools/internal/model"
)

// Fetcher retrieves the published price sheet for a session date. A
// non-trading day (or a sheet not yet published) returns an empty slice,
// not an error: "no data for today" is routine.
type Fetcher interface {
	FetchDay(ctx context.Context, date time.Time) ([]model.PriceObservation, error)
	Name() string
}

// Snapshot fetches today's sheet once and indexes it by symbol, so a run
// with many jobs shares a single fetch.
func Snapshot(ctx context.Context, f Fetcher, today time.Time) (map[string]model.PriceObservation, error) {
	rows, err := f.FetchDay(ctx, today)
	if err != nil {
		return nil, err
	}
	bySymbol := make(map[string]model.PriceObservation, len(rows))
	for _, r := range rows {
		bySymbol[r.Symbol] = r
	}
	return bySymbol, nil
}
