// Package stops applies stop-loss, trailing-stop and take-profit rules
// to raw entry/exit signals.
package stops

import (
	"fmt"

	"github.com/gridlab/quant/internal/contracts"
)

// Apply overlays the configured stops onto every column pair. Entries
// are returned unchanged; each position's adjusted exit is the earliest
// of the original exit signal and the first triggered stop. At most one
// exit is recorded per open entry, and never on or before the entry bar.
//
// Triggers are evaluated against close prices: entry fill at the entry
// bar's close, trailing peak = max close since entry. With no stops
// configured the inputs are passed through untouched.
func Apply(
	prices *contracts.PriceFrame,
	entries, exits *contracts.SignalTable,
	params contracts.StopParams,
) (*contracts.SignalTable, *contracts.SignalTable, error) {
	if !params.Enabled() {
		return entries, exits, nil
	}
	if err := params.Validate(); err != nil {
		return nil, nil, err
	}
	if entries.Width() != exits.Width() {
		return nil, nil, fmt.Errorf("%w: entry and exit tables have different widths",
			contracts.ErrInvalidArgument)
	}
	if entries.Len() != prices.Len() {
		return nil, nil, fmt.Errorf("%w: signal tables are not on the price index",
			contracts.ErrMisalignedTimeIndex)
	}

	adjusted := contracts.NewSignalTable(exits.Index)
	for i, entryCol := range entries.Columns {
		exitCol := exits.Columns[i]
		out := overlayColumn(prices.Close, entryCol.Values, exitCol.Values, params)
		if err := adjusted.AddColumn(exitCol.Key, exitCol.Label, out); err != nil {
			return nil, nil, err
		}
	}
	return entries, adjusted, nil
}

// overlayColumn walks one entry/exit pair and emits the adjusted exits.
func overlayColumn(closes []float64, entries, exits []bool, params contracts.StopParams) []bool {
	out := make([]bool, len(exits))

	inPosition := false
	var entryPrice, peak float64

	for i := range closes {
		if !inPosition {
			if entries[i] {
				inPosition = true
				entryPrice = closes[i]
				peak = closes[i]
			}
			continue
		}

		// Exits fire from the bar after entry at the earliest.
		price := closes[i]
		if price > peak {
			peak = price
		}

		triggered := exits[i]
		if !triggered && params.StopLoss > 0 && price <= entryPrice*(1-params.StopLoss) {
			triggered = true
		}
		if !triggered && params.TrailingStop > 0 && price <= peak*(1-params.TrailingStop) {
			triggered = true
		}
		if !triggered && params.TakeProfit > 0 && price >= entryPrice*(1+params.TakeProfit) {
			triggered = true
		}

		if triggered {
			out[i] = true
			inPosition = false
		}
	}

	return out
}
