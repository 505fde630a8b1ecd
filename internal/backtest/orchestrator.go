package backtest

import (
	"fmt"
	"sort"

	"github.com/gridlab/quant/internal/compose"
	"github.com/gridlab/quant/internal/contracts"
	"github.com/gridlab/quant/internal/overfit"
	"github.com/gridlab/quant/internal/stops"
	"github.com/gridlab/quant/internal/sweep"
	"github.com/gridlab/quant/pkg/logger"
)

// Stop parameter keys recognized inside variables.
const (
	keyStopLoss     = "sl_stop"
	keyTrailingStop = "ts_stop"
	keyTakeProfit   = "tp_stop"
)

// StrategyComponent is a user strategy with its default parameters.
type StrategyComponent struct {
	Defaults contracts.Assignment
	Fn       sweep.StrategyFunc
}

// FilterComponent is a named filter with its own parameter sweep.
type FilterComponent struct {
	Spec     *contracts.ParameterSpec
	Defaults contracts.Assignment
	Fn       sweep.FilterFunc
}

// Options configures one backtest run.
type Options struct {
	Variables *contracts.ParameterSpec
	Filters   map[string]FilterComponent

	Lookback int  // truncate history to the most recent N rows; 0 = full
	Plot     bool // build chart output and, with >1 variant, the CSCV report
	Signals  bool // short-circuit: return entries/exits without simulating
	Side     string

	CSCVNBins     int
	CSCVObjective overfit.Objective

	HTML string // write a self-contained HTML report to this path
}

// Result is what a run produces. With Signals set only the signal
// fields are populated; otherwise Portfolio (and, when applicable,
// Overfit and ReportPath) are set too.
type Result struct {
	Entries     *contracts.SignalTable
	Exits       *contracts.SignalTable
	Diagnostics contracts.Diagnostics

	Portfolio  *Portfolio
	Overfit    *overfit.Report
	ReportPath string
}

// Reporter renders chart output for a finished run.
type Reporter interface {
	Render(prices *contracts.PriceFrame, portfolio *Portfolio, diags contracts.Diagnostics, htmlPath string) (string, error)
}

// Orchestrator sequences enumeration, variant runs, composition, the
// stop overlay and the simulator for one sweep.
type Orchestrator struct {
	logger    *logger.Logger
	runner    *sweep.Runner
	simulator *Simulator
	reporter  Reporter
}

// NewOrchestrator creates an Orchestrator. reporter may be nil when no
// chart output is needed.
func NewOrchestrator(log *logger.Logger, simulator *Simulator, reporter Reporter) *Orchestrator {
	return &Orchestrator{
		logger:    log,
		runner:    sweep.NewRunner(log),
		simulator: simulator,
		reporter:  reporter,
	}
}

// Run executes the full pipeline over prices for one strategy.
func (o *Orchestrator) Run(prices *contracts.PriceFrame, strategy StrategyComponent, opts Options) (*Result, error) {
	if err := validateSide(opts.Side); err != nil {
		return nil, err
	}
	if err := prices.Validate(); err != nil {
		return nil, err
	}

	if opts.Lookback > 0 {
		prices = prices.Tail(opts.Lookback)
		o.logger.WithField("rows", prices.Len()).Debug("Lookback applied")
	}

	stopParams, variables, err := SplitStops(opts.Variables)
	if err != nil {
		return nil, err
	}

	o.logger.WithFields(map[string]interface{}{
		"symbol":  prices.Symbol,
		"rows":    prices.Len(),
		"filters": len(opts.Filters),
	}).Info("Backtest run started")

	entries, exits, diags, err := o.runner.RunStrategy(prices, variables, strategy.Defaults, strategy.Fn)
	if err != nil {
		return nil, fmt.Errorf("strategy sweep: %w", err)
	}

	sources, err := o.runFilters(prices, opts.Filters)
	if err != nil {
		return nil, err
	}

	entries, exits, diags, err = compose.Compose(entries, exits, diags, sources)
	if err != nil {
		return nil, fmt.Errorf("composition: %w", err)
	}
	o.logger.WithField("columns", entries.Width()).Info("Composition complete")

	entries, exits, err = stops.Apply(prices, entries, exits, stopParams)
	if err != nil {
		return nil, fmt.Errorf("stop overlay: %w", err)
	}

	result := &Result{Entries: entries, Exits: exits, Diagnostics: diags}
	if opts.Signals {
		return result, nil
	}

	portfolio, err := o.simulator.Run(prices, entries, exits)
	if err != nil {
		return nil, fmt.Errorf("simulation: %w", err)
	}
	result.Portfolio = portfolio

	if opts.Plot && len(portfolio.Variants) > 1 {
		nbins := opts.CSCVNBins
		if nbins == 0 {
			nbins = 10
		}
		report, err := overfit.Estimate(portfolio.ReturnsMatrix(), nbins, opts.CSCVObjective)
		if err != nil {
			return nil, fmt.Errorf("overfitting estimate: %w", err)
		}
		result.Overfit = report
		o.logger.WithField("pbo", report.PBO).Info("Overfitting estimate complete")
	}

	if (opts.Plot || opts.HTML != "") && o.reporter != nil {
		path, err := o.reporter.Render(prices, portfolio, diags, opts.HTML)
		if err != nil {
			return nil, fmt.Errorf("report: %w", err)
		}
		result.ReportPath = path
	}

	return result, nil
}

// runFilters sweeps every filter. Filter names are sorted so a run is
// deterministic regardless of map iteration order; the resulting column
// multiset does not depend on the order anyway.
func (o *Orchestrator) runFilters(prices *contracts.PriceFrame, filters map[string]FilterComponent) ([]compose.Source, error) {
	names := make([]string, 0, len(filters))
	for name := range filters {
		names = append(names, name)
	}
	sort.Strings(names)

	sources := make([]compose.Source, 0, len(names))
	for _, name := range names {
		f := filters[name]
		table, diags, err := o.runner.RunFilter(prices, f.Spec, f.Defaults, f.Fn)
		if err != nil {
			return nil, fmt.Errorf("filter %q sweep: %w", name, err)
		}
		sources = append(sources, compose.Source{Name: name, Table: table, Diagnostics: diags})
	}
	return sources, nil
}

// SplitStops extracts the recognized stop keys from variables and
// returns them with the remaining spec. Stops are per-run scalars, not
// sweep dimensions: a swept stop key is rejected so the composed column
// count stays the product of the signal sweeps.
func SplitStops(variables *contracts.ParameterSpec) (contracts.StopParams, *contracts.ParameterSpec, error) {
	var stopParams contracts.StopParams
	if variables.Len() == 0 {
		return stopParams, variables, nil
	}

	rest := contracts.NewParameterSpec()
	for _, p := range variables.Params() {
		switch p.Name {
		case keyStopLoss, keyTrailingStop, keyTakeProfit:
			if p.Swept {
				return stopParams, nil, fmt.Errorf("%w: stop parameter %q cannot be swept",
					contracts.ErrInvalidArgument, p.Name)
			}
			value, ok := asFloat(p.Values[0])
			if !ok {
				return stopParams, nil, fmt.Errorf("%w: stop parameter %q must be a number",
					contracts.ErrInvalidArgument, p.Name)
			}
			switch p.Name {
			case keyStopLoss:
				stopParams.StopLoss = value
			case keyTrailingStop:
				stopParams.TrailingStop = value
			case keyTakeProfit:
				stopParams.TakeProfit = value
			}
		default:
			if p.Swept {
				rest.Sweep(p.Name, p.Values...)
			} else {
				rest.Set(p.Name, p.Values[0])
			}
		}
	}

	if err := stopParams.Validate(); err != nil {
		return stopParams, nil, err
	}
	return stopParams, rest, nil
}

func validateSide(side string) error {
	switch side {
	case "", "long":
		return nil
	case "short":
		return fmt.Errorf("%w: side=short", contracts.ErrUnsupportedSide)
	default:
		return fmt.Errorf("%w: unknown side %q", contracts.ErrInvalidArgument, side)
	}
}

func asFloat(v interface{}) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	default:
		return 0, false
	}
}
