package sweep

import (
	"testing"
	"time"

	"github.com/gridlab/quant/internal/contracts"
	"github.com/gridlab/quant/pkg/logger"
)

func testFrame(n int) *contracts.PriceFrame {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	f := &contracts.PriceFrame{
		Index:  make([]time.Time, n),
		Open:   make([]float64, n),
		High:   make([]float64, n),
		Low:    make([]float64, n),
		Close:  make([]float64, n),
		Volume: make([]float64, n),
	}
	for i := 0; i < n; i++ {
		f.Index[i] = base.AddDate(0, 0, i)
		price := 100 + float64(i)
		f.Open[i], f.High[i], f.Low[i], f.Close[i] = price, price+1, price-1, price
		f.Volume[i] = 1000
	}
	return f
}

func TestRunFilterProducesOneColumnPerVariant(t *testing.T) {
	prices := testFrame(5)
	spec := contracts.NewParameterSpec().Sweep("timeperiod", 10, 20)

	fn := func(prices *contracts.PriceFrame, params contracts.Assignment) ([]bool, contracts.Diagnostics, error) {
		tp, _ := params.Int("timeperiod")
		col := make([]bool, prices.Len())
		for i := range col {
			col[i] = tp == 10
		}
		d := contracts.Diagnostics{}
		d.Add("figures", "threshold", tp)
		return col, d, nil
	}

	table, diags, err := NewRunner(logger.Nop()).RunFilter(prices, spec, contracts.Assignment{}, fn)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if table.Width() != 2 {
		t.Fatalf("Width() = %d, want 2", table.Width())
	}

	// Labels round-trip through the codec.
	wantLabels := []string{"timeperiod=10", "timeperiod=20"}
	for i, col := range table.Columns {
		if col.Label.String() != wantLabels[i] {
			t.Errorf("column %d label = %q, want %q", i, col.Label, wantLabels[i])
		}
		decoded, err := DecodeLabel(col.Key)
		if err != nil {
			t.Fatalf("column key %q does not decode: %v", col.Key, err)
		}
		if len(decoded.Fields) != 1 || decoded.Fields[0].Name != "timeperiod" {
			t.Errorf("column key %q decodes to %+v", col.Key, decoded)
		}
	}

	// The first variant's column is all true, the second all false.
	if !table.Columns[0].Values[0] || table.Columns[1].Values[0] {
		t.Error("variant assignments were not passed through to the filter")
	}

	// Both variants' diagnostics survive.
	if len(diags["figures"]) != 2 {
		t.Fatalf("expected 2 variant-qualified artifacts, got %d", len(diags["figures"]))
	}
}

func TestRunStrategyAlignedTables(t *testing.T) {
	prices := testFrame(4)
	spec := contracts.NewParameterSpec().Sweep("n", 1, 2, 3)

	fn := func(prices *contracts.PriceFrame, params contracts.Assignment) ([]bool, []bool, contracts.Diagnostics, error) {
		n := prices.Len()
		entries := make([]bool, n)
		exits := make([]bool, n)
		entries[0] = true
		exits[n-1] = true
		return entries, exits, nil, nil
	}

	entries, exits, _, err := NewRunner(logger.Nop()).RunStrategy(prices, spec, contracts.Assignment{}, fn)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entries.Width() != 3 || exits.Width() != 3 {
		t.Fatalf("widths = (%d, %d), want (3, 3)", entries.Width(), exits.Width())
	}
	for i := range entries.Columns {
		if entries.Columns[i].Key != exits.Columns[i].Key {
			t.Errorf("column %d keys differ: %q vs %q", i, entries.Columns[i].Key, exits.Columns[i].Key)
		}
	}
	if !entries.SameIndex(exits) {
		t.Error("entry and exit tables must share the row index")
	}
}

func TestRunnerIsReusableAcrossSweeps(t *testing.T) {
	prices := testFrame(3)
	r := NewRunner(logger.Nop())

	fn := func(prices *contracts.PriceFrame, params contracts.Assignment) ([]bool, contracts.Diagnostics, error) {
		n, _ := params.Int("n")
		col := make([]bool, prices.Len())
		for i := range col {
			col[i] = n > 0
		}
		return col, nil, nil
	}

	first, _, err := r.RunFilter(prices, contracts.NewParameterSpec().Sweep("n", 1), contracts.Assignment{}, fn)
	if err != nil {
		t.Fatalf("first sweep: %v", err)
	}
	second, _, err := r.RunFilter(prices, contracts.NewParameterSpec().Sweep("n", -1, -2), contracts.Assignment{}, fn)
	if err != nil {
		t.Fatalf("second sweep: %v", err)
	}

	if first.Width() != 1 || second.Width() != 2 {
		t.Fatalf("widths = (%d, %d), want (1, 2)", first.Width(), second.Width())
	}
	// No state bleeds between sweeps: the second sweep's params win.
	if second.Columns[0].Values[0] {
		t.Error("second sweep saw stale parameters")
	}
}
