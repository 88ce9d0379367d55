package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/vaskrneup/NepseTools/internal/collector"
	"github.com/vaskrneup/NepseTools/internal/notifier"
	"github.com/vaskrneup/NepseTools/internal/recorder"
)

// Scheduler runs the daily pipeline on a cron schedule: scrape the missing
// sessions into the store, then run the crossover dispatch.
type Scheduler struct {
	cron       *cron.Cron
	backfiller *collector.Backfiller
	dispatcher *notifier.Dispatcher
	recorder   recorder.Recorder
	ctx        context.Context
	log        zerolog.Logger
}

// NewScheduler creates a scheduler bound to the given context.
func NewScheduler(ctx context.Context, bf *collector.Backfiller, d *notifier.Dispatcher, rec recorder.Recorder, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:       cron.New(cron.WithSeconds()),
		backfiller: bf,
		dispatcher: d,
		recorder:   rec,
		ctx:        ctx,
		log:        log.With().Str("component", "scheduler").Logger(),
	}
}

// Register installs the daily task.
func (s *Scheduler) Register(dailyCron string) error {
	if _, err := s.cron.AddFunc(dailyCron, s.dailyTask); err != nil {
		return fmt.Errorf("register daily task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Msg("scheduler started")
}

// Stop stops the cron scheduler gracefully.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	s.log.Info().Msg("scheduler stopped")
}

// RunNow executes the daily task immediately (manual trigger).
func (s *Scheduler) RunNow() error {
	return s.run()
}

func (s *Scheduler) dailyTask() {
	if err := s.run(); err != nil {
		s.log.Error().Err(err).Msg("daily run failed")
	}
}

func (s *Scheduler) run() error {
	s.log.Info().Msg("running daily pipeline")

	runID := uuid.NewString()
	start := time.Now()
	added, err := s.backfiller.Run(s.ctx, start)
	if err != nil {
		return fmt.Errorf("backfill: %w", err)
	}
	last, _ := s.backfiller.Store.LastDate()
	if err := s.recorder.RecordScrape(&recorder.ScrapeRun{
		RunID:      runID,
		RowsAdded:  added,
		LastDate:   last,
		DurationMS: time.Since(start).Milliseconds(),
	}); err != nil {
		s.log.Error().Err(err).Msg("record scrape run")
	}
	s.log.Info().Int("rows_added", added).Str("last_date", last).Msg("backfill complete")

	if err := s.dispatcher.Run(s.ctx); err != nil {
		return fmt.Errorf("dispatch: %w", err)
	}
	return nil
}
