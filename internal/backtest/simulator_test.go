package backtest

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridlab/quant/internal/contracts"
	"github.com/gridlab/quant/pkg/logger"
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

func tables(index []time.Time, entries, exits []bool) (*contracts.SignalTable, *contracts.SignalTable) {
	e := contracts.NewSignalTable(index)
	x := contracts.NewSignalTable(index)
	_ = e.AddColumn("k", contracts.ColumnLabel{}, entries)
	_ = x.AddColumn("k", contracts.ColumnLabel{}, exits)
	return e, x
}

func TestSimulatorSingleWinningTrade(t *testing.T) {
	prices := frameWithCloses([]float64{100, 110, 121, 121, 121})
	entries, exits := tables(prices.Index,
		[]bool{true, false, false, false, false},
		[]bool{false, false, true, false, false})

	sim := NewSimulator(logger.Nop(), 10000, 0, 0)
	portfolio, err := sim.Run(prices, entries, exits)
	require.NoError(t, err)
	require.Len(t, portfolio.Variants, 1)

	v := portfolio.Variants[0]
	require.Len(t, v.Trades, 1)
	assert.InDelta(t, 0.21, v.Trades[0].Return, 1e-9)
	assert.InDelta(t, 0.21, v.TotalReturn, 1e-9)
	assert.Equal(t, 1.0, v.WinRate)
	assert.Equal(t, 0.0, v.MaxDrawdown)
}

func TestSimulatorCommissionAndSlippage(t *testing.T) {
	prices := frameWithCloses([]float64{100, 100, 100})
	entries, exits := tables(prices.Index,
		[]bool{true, false, false},
		[]bool{false, true, false})

	sim := NewSimulator(logger.Nop(), 10000, 0.001, 0.001)
	portfolio, err := sim.Run(prices, entries, exits)
	require.NoError(t, err)

	v := portfolio.Variants[0]
	require.Len(t, v.Trades, 1)
	// Flat price: costs are two commissions plus two slippage legs.
	assert.Less(t, v.TotalReturn, 0.0)
	assert.InDelta(t, -0.004, v.TotalReturn, 5e-4)
}

func TestSimulatorDrawdownAndReturns(t *testing.T) {
	prices := frameWithCloses([]float64{100, 120, 90, 108})
	entries, exits := tables(prices.Index,
		[]bool{true, false, false, false},
		[]bool{false, false, false, true})

	sim := NewSimulator(logger.Nop(), 10000, 0, 0)
	portfolio, err := sim.Run(prices, entries, exits)
	require.NoError(t, err)

	v := portfolio.Variants[0]
	// Peak 12000 at bar 1, trough 9000 at bar 2.
	assert.InDelta(t, 0.25, v.MaxDrawdown, 1e-9)
	assert.InDelta(t, 0.08, v.TotalReturn, 1e-9)

	// Daily returns track close-to-close while in position.
	assert.InDelta(t, 0.20, v.DailyReturns[1], 1e-9)
	assert.InDelta(t, -0.25, v.DailyReturns[2], 1e-9)
	assert.InDelta(t, 0.20, v.DailyReturns[3], 1e-9)
}

func TestSimulatorNoSignalsNoTrades(t *testing.T) {
	prices := frameWithCloses([]float64{100, 101, 102})
	entries, exits := tables(prices.Index,
		[]bool{false, false, false},
		[]bool{false, false, false})

	sim := NewSimulator(logger.Nop(), 10000, 0.001, 0)
	portfolio, err := sim.Run(prices, entries, exits)
	require.NoError(t, err)

	v := portfolio.Variants[0]
	assert.Empty(t, v.Trades)
	assert.Equal(t, 0.0, v.TotalReturn)
	for _, e := range v.Equity {
		assert.Equal(t, 10000.0, e)
	}
}

func TestPortfolioReturnsMatrix(t *testing.T) {
	prices := frameWithCloses([]float64{100, 110, 99})
	e := contracts.NewSignalTable(prices.Index)
	x := contracts.NewSignalTable(prices.Index)
	require.NoError(t, e.AddColumn("a", contracts.ColumnLabel{}, []bool{true, false, false}))
	require.NoError(t, e.AddColumn("b", contracts.ColumnLabel{}, []bool{false, false, false}))
	require.NoError(t, x.AddColumn("a", contracts.ColumnLabel{}, []bool{false, false, false}))
	require.NoError(t, x.AddColumn("b", contracts.ColumnLabel{}, []bool{false, false, false}))

	sim := NewSimulator(logger.Nop(), 10000, 0, 0)
	portfolio, err := sim.Run(prices, e, x)
	require.NoError(t, err)

	matrix := portfolio.ReturnsMatrix()
	require.Len(t, matrix, 3)
	require.Len(t, matrix[0], 2)
	assert.InDelta(t, 0.10, matrix[1][0], 1e-9)
	assert.Equal(t, 0.0, matrix[1][1])
	assert.InDelta(t, -0.10, matrix[2][0], 1e-9)
	assert.False(t, math.IsNaN(portfolio.Variants[0].SharpeRatio))
}
