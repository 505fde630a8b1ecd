package sweep

import (
	"fmt"

	"github.com/gridlab/quant/internal/contracts"
	"github.com/gridlab/quant/pkg/logger"
)

// FilterFunc is a user filter: one boolean column per assignment plus
// optional diagnostics. The active assignment is passed explicitly;
// signal functions must not keep parameter state between calls.
type FilterFunc func(prices *contracts.PriceFrame, params contracts.Assignment) ([]bool, contracts.Diagnostics, error)

// StrategyFunc is a user strategy: entries, exits and optional
// diagnostics per assignment.
type StrategyFunc func(prices *contracts.PriceFrame, params contracts.Assignment) (entries, exits []bool, diags contracts.Diagnostics, err error)

// Runner executes a signal function once per assignment and collects
// the outputs into signal tables keyed by the encoded assignment.
// A Runner holds no per-sweep state and may be reused across sweeps.
type Runner struct {
	logger *logger.Logger
}

// NewRunner creates a Runner.
func NewRunner(log *logger.Logger) *Runner {
	return &Runner{logger: log}
}

// RunFilter expands spec and invokes fn once per assignment. Every
// variant's diagnostics are merged under assignment-qualified names.
func (r *Runner) RunFilter(
	prices *contracts.PriceFrame,
	spec *contracts.ParameterSpec,
	defaults contracts.Assignment,
	fn FilterFunc,
) (*contracts.SignalTable, contracts.Diagnostics, error) {
	assignments, err := Enumerate(spec, defaults)
	if err != nil {
		return nil, nil, err
	}

	table := contracts.NewSignalTable(prices.Index)
	diags := contracts.Diagnostics{}

	for _, a := range assignments {
		key, err := EncodeLabel(a)
		if err != nil {
			return nil, nil, err
		}
		label, err := DecodeLabel(key)
		if err != nil {
			return nil, nil, err
		}

		values, variantDiags, err := fn(prices, a)
		if err != nil {
			return nil, nil, fmt.Errorf("filter variant %q: %w", key, err)
		}
		if err := table.AddColumn(key, contracts.ColumnLabel{Fields: label.Fields}, values); err != nil {
			return nil, nil, err
		}
		diags.MergeVariant(key, variantDiags)
	}

	r.logger.WithFields(map[string]interface{}{
		"variants": table.Width(),
		"rows":     table.Len(),
	}).Debug("Filter sweep complete")

	return table, diags, nil
}

// RunStrategy expands spec and invokes fn once per assignment,
// producing aligned entry and exit tables with identical keys.
func (r *Runner) RunStrategy(
	prices *contracts.PriceFrame,
	spec *contracts.ParameterSpec,
	defaults contracts.Assignment,
	fn StrategyFunc,
) (entries, exits *contracts.SignalTable, diags contracts.Diagnostics, err error) {
	assignments, err := Enumerate(spec, defaults)
	if err != nil {
		return nil, nil, nil, err
	}

	entries = contracts.NewSignalTable(prices.Index)
	exits = contracts.NewSignalTable(prices.Index)
	diags = contracts.Diagnostics{}

	for _, a := range assignments {
		key, err := EncodeLabel(a)
		if err != nil {
			return nil, nil, nil, err
		}
		label, err := DecodeLabel(key)
		if err != nil {
			return nil, nil, nil, err
		}

		entryCol, exitCol, variantDiags, err := fn(prices, a)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("strategy variant %q: %w", key, err)
		}
		cl := contracts.ColumnLabel{Fields: label.Fields}
		if err := entries.AddColumn(key, cl, entryCol); err != nil {
			return nil, nil, nil, err
		}
		if err := exits.AddColumn(key, cl, exitCol); err != nil {
			return nil, nil, nil, err
		}
		diags.MergeVariant(key, variantDiags)
	}

	r.logger.WithFields(map[string]interface{}{
		"variants": entries.Width(),
		"rows":     entries.Len(),
	}).Debug("Strategy sweep complete")

	return entries, exits, diags, nil
}
