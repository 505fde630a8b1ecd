package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/gridlab/quant/internal/data"
	"github.com/gridlab/quant/internal/scheduler"
	"github.com/gridlab/quant/pkg/database"
	"github.com/gridlab/quant/pkg/httputil"
)

func newSchedulerCmd() *cobra.Command {
	var (
		symbols   []string
		timeframe string
		spec      string
		backfill  int
	)

	cmd := &cobra.Command{
		Use:   "scheduler",
		Short: "Run the nightly candle-sync scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := database.New(cfg)
			if err != nil {
				return fmt.Errorf("connect database: %w", err)
			}
			defer db.Close()

			client := httputil.New(log, cfg.MarketData.RequestsPerSec).
				WithRetry(cfg.MarketData.MaxRetries, cfg.MarketData.RetryBaseDelay, cfg.MarketData.RetryMaxDelay)
			fetcher := data.NewFetcher(client, cfg.MarketData.BaseURL, log)
			repo := data.NewCandleRepository(db, log)

			job := data.NewSyncJob(fetcher, repo, symbols, timeframe,
				time.Duration(backfill)*24*time.Hour, log)

			sched := scheduler.New(log)
			if err := sched.AddJob(spec, job); err != nil {
				return fmt.Errorf("schedule %s: %w", job.Name(), err)
			}
			sched.Start()

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
			<-stop

			sched.Stop()
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&symbols, "symbol", []string{"BTCUSDT", "ETHUSDT"}, "symbols to sync")
	cmd.Flags().StringVar(&timeframe, "timeframe", "1d", "candle timeframe")
	cmd.Flags().StringVar(&spec, "cron", "5 0 * * *", "cron schedule (UTC)")
	cmd.Flags().IntVar(&backfill, "backfill-days", 365, "history to fetch for empty symbols")

	return cmd
}
