package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/vaskrneup/NepseTools/internal/collector"
	"github.com/vaskrneup/NepseTools/internal/config"
	"github.com/vaskrneup/NepseTools/internal/indicator"
	"github.com/vaskrneup/NepseTools/internal/logging"
	"github.com/vaskrneup/NepseTools/internal/mail"
	"github.com/vaskrneup/NepseTools/internal/notifier"
	"github.com/vaskrneup/NepseTools/internal/recorder"
	"github.com/vaskrneup/NepseTools/internal/scheduler"
	"github.com/vaskrneup/NepseTools/internal/store"
)

var cfgPath string

func main() {
	rootCmd := &cobra.Command{
		Use:   "nepsewatch",
		Short: "NEPSE moving-average crossover watcher",
		Long: `nepsewatch keeps a local history of NEPSE daily share prices, watches
configured instruments for moving-average crossovers, and emails the
interested recipients when two averages cross.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "configs/config.yaml", "config file path")

	rootCmd.AddCommand(serveCmd(), notifyCmd(), scrapeCmd(), chartCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app bundles the wired components shared by the subcommands.
type app struct {
	cfg        *config.Config
	log        zerolog.Logger
	store      *store.CSVStore
	fetcher    collector.Fetcher
	backfiller *collector.Backfiller
	dispatcher *notifier.Dispatcher
	charts     *notifier.ChartRenderer
	recorder   recorder.Recorder
}

func loadApp(needMail bool) (*app, error) {
	// .env first so its values are visible as overrides during Load.
	_ = godotenv.Load()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if needMail {
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("config validation: %w", err)
		}
	}

	log := logging.New(cfg.Log)

	st := store.NewCSVStore(cfg.Store.CSVPath, log)
	fetcher := collector.NewPriceAPIFetcher(
		cfg.DataSource.BaseURL,
		cfg.DataSource.APIKey,
		cfg.Proxy,
		time.Duration(cfg.DataSource.TimeoutSeconds)*time.Second,
	)
	backfiller := collector.NewBackfiller(st, fetcher, cfg.Store.LookbackDays, log)
	charts := notifier.NewChartRenderer(cfg.Chart.OutputDir)

	var rec recorder.Recorder
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath, log)
		if err != nil {
			log.Warn().Err(err).Msg("sqlite recorder unavailable, using noop")
			rec = recorder.NewNoopRecorder()
		} else {
			rec = sr
		}
	} else {
		rec = recorder.NewNoopRecorder()
	}

	a := &app{
		cfg:        cfg,
		log:        log,
		store:      st,
		fetcher:    fetcher,
		backfiller: backfiller,
		charts:     charts,
		recorder:   rec,
	}

	if needMail {
		renderer, err := notifier.NewRenderer()
		if err != nil {
			return nil, err
		}
		mailer := mail.NewSMTPMailer(
			cfg.Mail.SMTPHost,
			cfg.Mail.SMTPPort,
			cfg.Mail.Sender,
			cfg.Mail.Password,
			time.Duration(cfg.Mail.DialTimeout)*time.Second,
		)
		dispatcher := notifier.NewDispatcher(fetcher, mailer, rec, log)
		for _, jc := range cfg.Jobs {
			job := notifier.Job{
				Name:        jc.Name,
				BigWindow:   jc.BigWindow,
				SmallWindow: jc.SmallWindow,
				Symbols:     jc.Symbols,
				Recipients:  jc.Recipients,
			}
			n, err := notifier.NewMACrossNotifier(job, st, renderer, charts, cfg.Chart.TailSessions, log)
			if err != nil {
				return nil, err
			}
			dispatcher.AddJobs(n)
		}
		a.dispatcher = dispatcher
	}

	return a, nil
}

func (a *app) close() {
	if err := a.recorder.Close(); err != nil {
		a.log.Error().Err(err).Msg("close recorder")
	}
}

func serveCmd() *cobra.Command {
	var runOnStart bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the daily scrape-and-notify pipeline on a cron schedule",
		RunE: func(_ *cobra.Command, _ []string) error {
			a, err := loadApp(true)
			if err != nil {
				return err
			}
			defer a.close()

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			sched := scheduler.NewScheduler(ctx, a.backfiller, a.dispatcher, a.recorder, a.log)
			if err := sched.Register(a.cfg.Schedule.DailyCron); err != nil {
				return err
			}
			sched.Start()
			defer sched.Stop()

			if runOnStart {
				a.log.Info().Msg("run-on-start enabled, executing daily pipeline now")
				if err := sched.RunNow(); err != nil {
					a.log.Error().Err(err).Msg("initial run failed")
				}
			}

			a.log.Info().Str("cron", a.cfg.Schedule.DailyCron).Msg("nepsewatch is running")
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			<-sigCh
			a.log.Info().Msg("shutdown signal received, stopping")
			return nil
		},
	}
	cmd.Flags().BoolVar(&runOnStart, "run-on-start", false, "execute the pipeline immediately on startup")
	return cmd
}

func notifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "notify",
		Short: "Run one scrape-and-notify pass and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(true)
			if err != nil {
				return err
			}
			defer a.close()

			sched := scheduler.NewScheduler(cmd.Context(), a.backfiller, a.dispatcher, a.recorder, a.log)
			return sched.RunNow()
		},
	}
}

func scrapeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scrape",
		Short: "Backfill the price history through today and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(false)
			if err != nil {
				return err
			}
			defer a.close()

			added, err := a.backfiller.Run(cmd.Context(), time.Now())
			if err != nil {
				return err
			}
			a.log.Info().Int("rows_added", added).Msg("scrape complete")
			return nil
		},
	}
}

func chartCmd() *cobra.Command {
	var (
		symbol  string
		windows []int
		tail    int
	)
	cmd := &cobra.Command{
		Use:   "chart",
		Short: "Render a price/volume chart with moving averages for a symbol",
		RunE: func(_ *cobra.Command, _ []string) error {
			if symbol == "" {
				return fmt.Errorf("--symbol is required")
			}
			a, err := loadApp(false)
			if err != nil {
				return err
			}
			defer a.close()

			series, err := a.store.Series(symbol, tail)
			if err != nil {
				return err
			}
			if len(series) == 0 {
				return fmt.Errorf("no stored history for %s", symbol)
			}
			ws := make([]indicator.Window, 0, len(windows))
			for _, w := range windows {
				ws = append(ws, indicator.NewWindow(w))
			}
			path, err := a.charts.Render(series, ws...)
			if err != nil {
				return err
			}
			fmt.Println(path)
			return nil
		},
	}
	cmd.Flags().StringVar(&symbol, "symbol", "", "instrument symbol")
	cmd.Flags().IntSliceVar(&windows, "windows", []int{5, 20}, "moving average window sizes")
	cmd.Flags().IntVar(&tail, "tail", 180, "trailing sessions to draw")
	return cmd
}
