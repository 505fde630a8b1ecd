package data

import (
	"context"
	"fmt"
	"time"

	"github.com/gridlab/quant/pkg/logger"
)

// SyncJob incrementally pulls new candles for a set of symbols into
// the repository. It implements scheduler.Job.
type SyncJob struct {
	fetcher   *Fetcher
	repo      *CandleRepository
	symbols   []string
	timeframe string
	backfill  time.Duration // history to fetch when a symbol is empty
	logger    *logger.Logger
}

// NewSyncJob creates a SyncJob.
func NewSyncJob(fetcher *Fetcher, repo *CandleRepository, symbols []string, timeframe string, backfill time.Duration, log *logger.Logger) *SyncJob {
	return &SyncJob{
		fetcher:   fetcher,
		repo:      repo,
		symbols:   symbols,
		timeframe: timeframe,
		backfill:  backfill,
		logger:    log,
	}
}

// Name implements scheduler.Job.
func (j *SyncJob) Name() string { return "candle-sync" }

// Run fetches everything newer than the latest stored candle for each
// symbol. A symbol failure aborts the run so the scheduler can retry.
func (j *SyncJob) Run(ctx context.Context) error {
	now := time.Now().UTC()

	for _, symbol := range j.symbols {
		latest, err := j.repo.LatestTimestamp(ctx, symbol, j.timeframe)
		if err != nil {
			return fmt.Errorf("latest timestamp for %s: %w", symbol, err)
		}

		start := latest.Add(time.Millisecond)
		if latest.IsZero() {
			start = now.Add(-j.backfill)
		}
		if !start.Before(now) {
			continue
		}

		candles, err := j.fetcher.Fetch(ctx, symbol, j.timeframe, start, now)
		if err != nil {
			return fmt.Errorf("fetch %s: %w", symbol, err)
		}

		saved, err := j.repo.SaveCandles(ctx, candles)
		if err != nil {
			return fmt.Errorf("save %s: %w", symbol, err)
		}

		j.logger.WithFields(map[string]interface{}{
			"symbol": symbol,
			"saved":  saved,
		}).Info("Symbol synced")
	}

	return nil
}
