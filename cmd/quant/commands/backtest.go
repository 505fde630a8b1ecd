package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/gridlab/quant/internal/backtest"
	"github.com/gridlab/quant/internal/contracts"
	"github.com/gridlab/quant/internal/data"
	"github.com/gridlab/quant/internal/report"
	"github.com/gridlab/quant/internal/strategies"
	"github.com/gridlab/quant/pkg/database"
)

func newBacktestCmd() *cobra.Command {
	var (
		symbol    string
		timeframe string
		fromStr   string
		toStr     string

		fast []int
		slow []int

		rsiPeriods    []int
		rsiThresholds []float64

		slStop float64
		tsStop float64
		tpStop float64

		lookback  int
		side      string
		signals   bool
		plot      bool
		htmlPath  string
		cscvNBins int

		initialCapital float64
		commission     float64
		slippage       float64
	)

	cmd := &cobra.Command{
		Use:   "backtest",
		Short: "Run a parameter-sweep backtest over stored candles",
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := time.Parse(time.RFC3339, fromStr)
			if err != nil {
				return fmt.Errorf("parse --from: %w", err)
			}
			to := time.Now().UTC()
			if toStr != "" {
				if to, err = time.Parse(time.RFC3339, toStr); err != nil {
					return fmt.Errorf("parse --to: %w", err)
				}
			}

			db, err := database.New(cfg)
			if err != nil {
				return fmt.Errorf("connect database: %w", err)
			}
			defer db.Close()

			repo := data.NewCandleRepository(db, log)
			prices, err := repo.LoadFrame(cmd.Context(), symbol, timeframe, from, to)
			if err != nil {
				return err
			}
			if prices.Len() == 0 {
				return fmt.Errorf("no candles stored for %s %s in range", symbol, timeframe)
			}

			variables := contracts.NewParameterSpec().
				Sweep("fast", intValues(fast)...).
				Sweep("slow", intValues(slow)...)
			if slStop > 0 {
				variables.Set("sl_stop", slStop)
			}
			if tsStop > 0 {
				variables.Set("ts_stop", tsStop)
			}
			if tpStop > 0 {
				variables.Set("tp_stop", tpStop)
			}

			opts := backtest.Options{
				Variables: variables,
				Lookback:  lookback,
				Side:      side,
				Signals:   signals,
				Plot:      plot,
				HTML:      htmlPath,
				CSCVNBins: cscvNBins,
			}
			if len(rsiPeriods) > 0 {
				filter := strategies.RSIFilter()
				spec := contracts.NewParameterSpec().Sweep("period", intValues(rsiPeriods)...)
				if len(rsiThresholds) > 0 {
					spec.Sweep("threshold", floatValues(rsiThresholds)...)
				} else {
					spec.Set("threshold", 70.0)
				}
				filter.Spec = spec
				opts.Filters = map[string]backtest.FilterComponent{"rsi": filter}
			}

			simulator := backtest.NewSimulator(log, initialCapital, commission, slippage)
			orchestrator := backtest.NewOrchestrator(log, simulator, report.NewWriter(log))

			result, err := orchestrator.Run(prices, strategies.SMACross(), opts)
			if err != nil {
				return err
			}

			if signals {
				fmt.Printf("signals only: %d columns over %d bars\n",
					result.Entries.Width(), result.Entries.Len())
				return nil
			}

			printSummary(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&symbol, "symbol", "BTCUSDT", "symbol to backtest")
	cmd.Flags().StringVar(&timeframe, "timeframe", "1d", "candle timeframe")
	cmd.Flags().StringVar(&fromStr, "from", "", "range start (RFC3339)")
	cmd.Flags().StringVar(&toStr, "to", "", "range end (RFC3339), default now")
	cmd.Flags().IntSliceVar(&fast, "fast", []int{10}, "fast SMA sweep values")
	cmd.Flags().IntSliceVar(&slow, "slow", []int{30}, "slow SMA sweep values")
	cmd.Flags().IntSliceVar(&rsiPeriods, "rsi-period", nil, "RSI filter period sweep values")
	cmd.Flags().Float64SliceVar(&rsiThresholds, "rsi-threshold", nil, "RSI filter threshold sweep values")
	cmd.Flags().Float64Var(&slStop, "sl-stop", 0, "stop-loss fraction")
	cmd.Flags().Float64Var(&tsStop, "ts-stop", 0, "trailing-stop fraction")
	cmd.Flags().Float64Var(&tpStop, "tp-stop", 0, "take-profit fraction")
	cmd.Flags().IntVar(&lookback, "lookback", 0, "use only the most recent N bars")
	cmd.Flags().StringVar(&side, "side", "long", "trade side (only long is supported)")
	cmd.Flags().BoolVar(&signals, "signals", false, "stop after signal generation")
	cmd.Flags().BoolVar(&plot, "plot", false, "build chart output and the overfitting estimate")
	cmd.Flags().StringVar(&htmlPath, "html", "", "write a self-contained HTML report to this path")
	cmd.Flags().IntVar(&cscvNBins, "cscv-nbins", 10, "CSCV bin count")
	cmd.Flags().Float64Var(&initialCapital, "capital", 10000, "initial capital")
	cmd.Flags().Float64Var(&commission, "commission", 0.001, "commission fraction per fill")
	cmd.Flags().Float64Var(&slippage, "slippage", 0.0005, "slippage fraction per fill")
	_ = cmd.MarkFlagRequired("from")

	return cmd
}

func printSummary(result *backtest.Result) {
	fmt.Printf("%-40s %12s %8s %8s %8s %7s\n", "variant", "return", "sharpe", "maxdd", "winrate", "trades")
	for _, v := range result.Portfolio.Variants {
		fmt.Printf("%-40s %11.2f%% %8.2f %7.2f%% %7.1f%% %7d\n",
			v.Label, 100*v.TotalReturn, v.SharpeRatio, 100*v.MaxDrawdown, 100*v.WinRate, v.NumTrades)
	}
	if best := result.Portfolio.Best(); best != nil {
		fmt.Printf("\nbest: %s (%.2f%%)\n", best.Label, 100*best.TotalReturn)
	}
	if result.Overfit != nil {
		fmt.Printf("probability of backtest overfitting: %.2f (%d splits)\n",
			result.Overfit.PBO, result.Overfit.Combinations)
	}
	if result.ReportPath != "" {
		fmt.Printf("report written to %s\n", result.ReportPath)
	}
}

func intValues(xs []int) []interface{} {
	out := make([]interface{}, len(xs))
	for i, x := range xs {
		out[i] = x
	}
	return out
}

func floatValues(xs []float64) []interface{} {
	out := make([]interface{}, len(xs))
	for i, x := range xs {
		out[i] = x
	}
	return out
}
