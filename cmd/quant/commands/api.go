package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/gridlab/quant/internal/api"
	"github.com/gridlab/quant/internal/backtest"
	"github.com/gridlab/quant/internal/data"
	"github.com/gridlab/quant/internal/report"
	"github.com/gridlab/quant/pkg/database"
)

func newAPICmd() *cobra.Command {
	var (
		initialCapital float64
		commission     float64
		slippage       float64
	)

	cmd := &cobra.Command{
		Use:   "api",
		Short: "Serve the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := database.New(cfg)
			if err != nil {
				return fmt.Errorf("connect database: %w", err)
			}
			defer db.Close()

			repo := data.NewCandleRepository(db, log)
			simulator := backtest.NewSimulator(log, initialCapital, commission, slippage)
			orchestrator := backtest.NewOrchestrator(log, simulator, report.NewWriter(log))

			server := api.NewServer(cfg, log, repo, orchestrator)

			errCh := make(chan error, 1)
			go func() {
				errCh <- server.Start()
			}()

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

			select {
			case err := <-errCh:
				return err
			case <-stop:
				log.Info("Shutting down")
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return server.Shutdown(ctx)
			}
		},
	}

	cmd.Flags().Float64Var(&initialCapital, "capital", 10000, "initial capital")
	cmd.Flags().Float64Var(&commission, "commission", 0.001, "commission fraction per fill")
	cmd.Flags().Float64Var(&slippage, "slippage", 0.0005, "slippage fraction per fill")

	return cmd
}
