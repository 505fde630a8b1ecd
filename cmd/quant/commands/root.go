// Package commands wires the quant CLI.
package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gridlab/quant/pkg/config"
	"github.com/gridlab/quant/pkg/logger"
)

var (
	cfg *config.Config
	log *logger.Logger
)

var rootCmd = &cobra.Command{
	Use:   "quant",
	Short: "Parameter-sweep backtesting for trading signals",
	Long: `quant sweeps parameter grids over trading signal functions,
composes strategies with filters, overlays stop rules and simulates
the resulting portfolios.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		log = logger.New(cfg)
		return nil
	},
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(newBacktestCmd())
	rootCmd.AddCommand(newFetchCmd())
	rootCmd.AddCommand(newAPICmd())
	rootCmd.AddCommand(newSchedulerCmd())
}
