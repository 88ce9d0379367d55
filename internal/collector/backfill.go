package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/vaskrneup/NepseTools/internal/model"
	"github.com/vaskrneup/NepseTools/internal/store"
)

// Backfiller walks the calendar from the last stored session date up to
// today, fetching each day's sheet and merging it into the price store.
type Backfiller struct {
	Store    store.PriceStore
	Fetcher  Fetcher
	Lookback int // calendar days to seed from when the store is empty
	log      zerolog.Logger
}

// NewBackfiller creates a backfiller over the given store and fetcher.
func NewBackfiller(st store.PriceStore, f Fetcher, lookback int, log zerolog.Logger) *Backfiller {
	if lookback <= 0 {
		lookback = 400
	}
	return &Backfiller{
		Store:    st,
		Fetcher:  f,
		Lookback: lookback,
		log:      log.With().Str("component", "backfill").Logger(),
	}
}

// Run scrapes every missing day through today and appends the merged rows.
// Returns the number of rows added. Days with no published sheet are
// skipped; a fetch error aborts the walk so the next run resumes from the
// same last stored date.
func (b *Backfiller) Run(ctx context.Context, today time.Time) (int, error) {
	start, err := b.startDate(today)
	if err != nil {
		return 0, err
	}

	var scraped []model.PriceObservation
	for date := start; !date.After(today); date = date.AddDate(0, 0, 1) {
		rows, err := b.Fetcher.FetchDay(ctx, date)
		if err != nil {
			return 0, fmt.Errorf("scrape %s: %w", date.Format(model.DateLayout), err)
		}
		if len(rows) == 0 {
			b.log.Debug().Str("date", date.Format(model.DateLayout)).Msg("no sheet published")
			continue
		}
		b.log.Info().Str("date", date.Format(model.DateLayout)).Int("rows", len(rows)).Msg("scraped session")
		scraped = append(scraped, rows...)
	}
	if len(scraped) == 0 {
		return 0, nil
	}

	added, err := b.Store.Append(scraped)
	if err != nil {
		return 0, fmt.Errorf("append scraped rows: %w", err)
	}
	return added, nil
}

// startDate resolves where the walk begins: the day after the last stored
// session, or a lookback window when the store is empty.
func (b *Backfiller) startDate(today time.Time) (time.Time, error) {
	last, err := b.Store.LastDate()
	if err != nil {
		return time.Time{}, err
	}
	if last == "" {
		return today.AddDate(0, 0, -b.Lookback), nil
	}
	lastDate, err := time.Parse(model.DateLayout, last)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse last stored date %q: %w", last, err)
	}
	return lastDate.AddDate(0, 0, 1), nil
}
