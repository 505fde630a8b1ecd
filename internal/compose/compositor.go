// Package compose combines multi-variant signal tables via broadcast
// intersection into their full cross-product with merged provenance.
package compose

import (
	"fmt"

	"github.com/gridlab/quant/internal/contracts"
	"github.com/gridlab/quant/internal/sweep"
)

// Source is one named filter table with its diagnostics.
type Source struct {
	Name        string
	Table       *contracts.SignalTable
	Diagnostics contracts.Diagnostics
}

// Compose broadcasts the strategy's entry/exit tables against every
// filter source. With variant counts n_0 (strategy) and n_1..n_k
// (filters), the result has exactly n_0 * n_1 * ... * n_k columns.
//
// Entries are ANDed elementwise with each filter column. Exits are
// replicated, never intersected: exits must stay independent of
// entry-side filtering so open trades can always close.
//
// Each filter's label fields are prefixed with the filter name before
// merging, so field names never collide across sources. Diagnostics
// are re-keyed with the same prefix and unioned into the output.
func Compose(
	entries, exits *contracts.SignalTable,
	baseDiags contracts.Diagnostics,
	filters []Source,
) (*contracts.SignalTable, *contracts.SignalTable, contracts.Diagnostics, error) {
	if !entries.SameIndex(exits) {
		return nil, nil, nil, fmt.Errorf("%w: entry and exit tables differ", contracts.ErrMisalignedTimeIndex)
	}

	seen := make(map[string]bool, len(filters))
	for _, f := range filters {
		if seen[f.Name] {
			return nil, nil, nil, fmt.Errorf("%w: duplicate filter name %q", contracts.ErrInvalidArgument, f.Name)
		}
		seen[f.Name] = true
		if !entries.SameIndex(f.Table) {
			return nil, nil, nil, fmt.Errorf("%w: filter %q is on a different row index",
				contracts.ErrMisalignedTimeIndex, f.Name)
		}
	}

	outDiags := contracts.Diagnostics{}
	for category, artifacts := range baseDiags {
		for name, artifact := range artifacts {
			outDiags.Add(category, name, artifact)
		}
	}

	outEntries, outExits := entries, exits
	for _, f := range filters {
		var err error
		outEntries, outExits, err = applyFilter(outEntries, outExits, f)
		if err != nil {
			return nil, nil, nil, err
		}
		outDiags.MergePrefixed(f.Name, f.Diagnostics)
	}

	return outEntries, outExits, outDiags, nil
}

// applyFilter crosses the current entry/exit tables with one filter.
// Strategy variants form the outer loop, filter variants the inner one,
// so existing column order is preserved and each strategy column fans
// out into a contiguous block.
func applyFilter(entries, exits *contracts.SignalTable, f Source) (*contracts.SignalTable, *contracts.SignalTable, error) {
	newEntries := contracts.NewSignalTable(entries.Index)
	newExits := contracts.NewSignalTable(exits.Index)

	for i, entryCol := range entries.Columns {
		exitCol := exits.Columns[i]
		for _, filterCol := range f.Table.Columns {
			label := entryCol.Label.Merge(filterCol.Label.Prefixed(f.Name))
			key, err := sweep.EncodeLabel(contracts.NewAssignment(label.Fields...))
			if err != nil {
				return nil, nil, err
			}

			anded := make([]bool, len(entryCol.Values))
			for j := range anded {
				anded[j] = entryCol.Values[j] && filterCol.Values[j]
			}
			if err := newEntries.AddColumn(key, label, anded); err != nil {
				return nil, nil, err
			}

			replicated := make([]bool, len(exitCol.Values))
			copy(replicated, exitCol.Values)
			if err := newExits.AddColumn(key, label, replicated); err != nil {
				return nil, nil, err
			}
		}
	}

	return newEntries, newExits, nil
}
