package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/gridlab/quant/internal/data"
	"github.com/gridlab/quant/pkg/database"
	"github.com/gridlab/quant/pkg/httputil"
)

func newFetchCmd() *cobra.Command {
	var (
		symbols   []string
		timeframe string
		days      int
	)

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Download klines and store them as candles",
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

			end := time.Now().UTC()
			start := end.AddDate(0, 0, -days)

			for _, symbol := range symbols {
				candles, err := fetcher.Fetch(cmd.Context(), symbol, timeframe, start, end)
				if err != nil {
					return fmt.Errorf("fetch %s: %w", symbol, err)
				}
				saved, err := repo.SaveCandles(cmd.Context(), candles)
				if err != nil {
					return fmt.Errorf("save %s: %w", symbol, err)
				}
				fmt.Printf("%s: %d candles saved\n", symbol, saved)
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&symbols, "symbol", []string{"BTCUSDT"}, "symbols to fetch")
	cmd.Flags().StringVar(&timeframe, "timeframe", "1d", "candle timeframe")
	cmd.Flags().IntVar(&days, "days", 365, "days of history to fetch")

	return cmd
}
