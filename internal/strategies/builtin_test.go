package strategies

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridlab/quant/internal/contracts"
)

func frameWithCloses(closes []float64) *contracts.PriceFrame {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	n := len(closes)
	f := &contracts.PriceFrame{
		Index:  make([]time.Time, n),
		Open:   make([]float64, n),
		High:   make([]float64, n),
		Low:    make([]float64, n),
		Close:  closes,
		Volume: make([]float64, n),
	}
	for i := 0; i < n; i++ {
		f.Index[i] = base.AddDate(0, 0, i)
		f.Open[i], f.High[i], f.Low[i] = closes[i], closes[i], closes[i]
	}
	return f
}

func TestSMA(t *testing.T) {
	got := sma([]float64{1, 2, 3, 4, 5}, 3)

	assert.True(t, math.IsNaN(got[0]))
	assert.True(t, math.IsNaN(got[1]))
	assert.InDelta(t, 2.0, got[2], 1e-9)
	assert.InDelta(t, 3.0, got[3], 1e-9)
	assert.InDelta(t, 4.0, got[4], 1e-9)
}

func TestRSIBounds(t *testing.T) {
	// Monotonic rise: RSI pegged at 100.
	up := make([]float64, 20)
	for i := range up {
		up[i] = float64(100 + i)
	}
	got := rsi(up, 14)
	assert.InDelta(t, 100.0, got[len(got)-1], 1e-9)

	// Monotonic fall: RSI at 0.
	down := make([]float64, 20)
	for i := range down {
		down[i] = float64(200 - i)
	}
	got = rsi(down, 14)
	assert.InDelta(t, 0.0, got[len(got)-1], 1e-9)
}

func TestSMACrossSignals(t *testing.T) {
	// Rise then fall: one golden cross on the way up, one dead cross on
	// the way down.
	closes := make([]float64, 0, 40)
	price := 100.0
	for i := 0; i < 10; i++ {
		price -= 1
		closes = append(closes, price)
	}
	for i := 0; i < 15; i++ {
		price += 2
		closes = append(closes, price)
	}
	for i := 0; i < 15; i++ {
		price -= 2
		closes = append(closes, price)
	}
	prices := frameWithCloses(closes)

	strategy := SMACross()
	params := contracts.NewAssignment(
		contracts.Field{Name: "fast", Value: 3},
		contracts.Field{Name: "slow", Value: 8},
	)
	entries, exits, diags, err := strategy.Fn(prices, params)
	require.NoError(t, err)

	countTrue := func(xs []bool) int {
		n := 0
		for _, x := range xs {
			if x {
				n++
			}
		}
		return n
	}
	assert.Equal(t, 1, countTrue(entries), "one golden cross expected")
	assert.Equal(t, 1, countTrue(exits), "one dead cross expected")

	// Entry comes before exit.
	entryIdx, exitIdx := -1, -1
	for i := range entries {
		if entries[i] {
			entryIdx = i
		}
		if exits[i] {
			exitIdx = i
		}
	}
	assert.Less(t, entryIdx, exitIdx)

	require.Contains(t, diags, "figures")
	assert.Contains(t, diags["figures"], "fast_ma")
	assert.Contains(t, diags["figures"], "slow_ma")
}

func TestSMACrossParameterValidation(t *testing.T) {
	prices := frameWithCloses([]float64{1, 2, 3, 4, 5})
	strategy := SMACross()

	_, _, _, err := strategy.Fn(prices, contracts.NewAssignment(
		contracts.Field{Name: "fast", Value: 10},
		contracts.Field{Name: "slow", Value: 5},
	))
	require.ErrorIs(t, err, contracts.ErrInvalidArgument)

	_, _, _, err = strategy.Fn(prices, contracts.NewAssignment(
		contracts.Field{Name: "slow", Value: 5},
	))
	require.ErrorIs(t, err, contracts.ErrInvalidArgument)
}

func TestRSIFilterPassesCalmMarket(t *testing.T) {
	// Steadily falling closes keep RSI low, so the filter passes.
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 200 - float64(i)
	}
	prices := frameWithCloses(closes)

	filter := RSIFilter()
	col, diags, err := filter.Fn(prices, filter.Defaults)
	require.NoError(t, err)

	assert.True(t, col[len(col)-1], "low RSI must pass an overbought filter")
	assert.False(t, col[0], "warmup bars never pass")
	assert.Contains(t, diags["figures"], "rsi")
}

func TestVolatilityFilterBlocksWildMarket(t *testing.T) {
	calm := make([]float64, 40)
	wild := make([]float64, 40)
	for i := range calm {
		calm[i] = 100 + 0.01*float64(i)
		if i%2 == 0 {
			wild[i] = 100
		} else {
			wild[i] = 130
		}
	}

	filter := VolatilityFilter()

	colCalm, _, err := filter.Fn(frameWithCloses(calm), filter.Defaults)
	require.NoError(t, err)
	colWild, _, err := filter.Fn(frameWithCloses(wild), filter.Defaults)
	require.NoError(t, err)

	assert.True(t, colCalm[len(colCalm)-1], "calm market passes")
	assert.False(t, colWild[len(colWild)-1], "volatile market is blocked")
}
