// Package backtest turns final entry/exit signals into simulated
// portfolios and sequences the full sweep pipeline.
package backtest

import (
	"fmt"
	"math"
	"time"

	"github.com/gridlab/quant/internal/contracts"
	"github.com/gridlab/quant/pkg/logger"
)

const tradingDaysPerYear = 365 // crypto trades every day

// Trade is one closed round trip.
type Trade struct {
	EntryTime  time.Time `json:"entry_time"`
	ExitTime   time.Time `json:"exit_time"`
	EntryPrice float64   `json:"entry_price"`
	ExitPrice  float64   `json:"exit_price"`
	Return     float64   `json:"return"`
}

// VariantResult holds one column's simulation outcome.
type VariantResult struct {
	Key   string `json:"key"`
	Label string `json:"label"`

	Trades       []Trade   `json:"trades"`
	Equity       []float64 `json:"equity"`
	DailyReturns []float64 `json:"daily_returns"`

	TotalReturn  float64 `json:"total_return"`
	SharpeRatio  float64 `json:"sharpe_ratio"`
	SortinoRatio float64 `json:"sortino_ratio"`
	MaxDrawdown  float64 `json:"max_drawdown"`
	WinRate      float64 `json:"win_rate"`
	NumTrades    int     `json:"num_trades"`
}

// Portfolio is the simulation result across every variant column.
type Portfolio struct {
	Index    []time.Time     `json:"index"`
	Variants []VariantResult `json:"variants"`
}

// ReturnsMatrix returns the T x N matrix of daily returns, one column
// per variant, for the overfitting estimator.
func (p *Portfolio) ReturnsMatrix() [][]float64 {
	if len(p.Variants) == 0 {
		return nil
	}
	rows := len(p.Variants[0].DailyReturns)
	matrix := make([][]float64, rows)
	for i := range matrix {
		row := make([]float64, len(p.Variants))
		for j, v := range p.Variants {
			row[j] = v.DailyReturns[i]
		}
		matrix[i] = row
	}
	return matrix
}

// Best returns the variant with the highest total return.
func (p *Portfolio) Best() *VariantResult {
	if len(p.Variants) == 0 {
		return nil
	}
	best := &p.Variants[0]
	for i := range p.Variants[1:] {
		if p.Variants[i+1].TotalReturn > best.TotalReturn {
			best = &p.Variants[i+1]
		}
	}
	return best
}

// Simulator runs a long-only, close-fill, all-in simulation per column.
type Simulator struct {
	InitialCapital float64
	Commission     float64 // fraction per fill, e.g. 0.001
	Slippage       float64 // fraction per fill

	logger *logger.Logger
}

// NewSimulator creates a Simulator with the given cost model.
func NewSimulator(log *logger.Logger, initialCapital, commission, slippage float64) *Simulator {
	return &Simulator{
		InitialCapital: initialCapital,
		Commission:     commission,
		Slippage:       slippage,
		logger:         log,
	}
}

// Run simulates every column pair of the entry/exit tables against the
// close prices and computes per-variant performance metrics.
func (s *Simulator) Run(prices *contracts.PriceFrame, entries, exits *contracts.SignalTable) (*Portfolio, error) {
	if entries.Width() != exits.Width() {
		return nil, fmt.Errorf("%w: entry and exit tables have different widths", contracts.ErrInvalidArgument)
	}
	if entries.Len() != prices.Len() {
		return nil, fmt.Errorf("%w: signal tables are not on the price index", contracts.ErrMisalignedTimeIndex)
	}

	portfolio := &Portfolio{Index: prices.Index}
	for i, entryCol := range entries.Columns {
		result := s.simulateColumn(prices, entryCol, exits.Columns[i])
		portfolio.Variants = append(portfolio.Variants, result)
	}

	s.logger.WithFields(map[string]interface{}{
		"variants": len(portfolio.Variants),
		"bars":     prices.Len(),
	}).Info("Simulation complete")

	return portfolio, nil
}

// simulateColumn walks one signal column: enter all-in at the entry
// bar's close, exit at the exit bar's close, with commission and
// slippage applied to both fills.
func (s *Simulator) simulateColumn(prices *contracts.PriceFrame, entryCol, exitCol contracts.Column) VariantResult {
	n := prices.Len()
	result := VariantResult{
		Key:    entryCol.Key,
		Label:  entryCol.Label.String(),
		Equity: make([]float64, n),
	}

	cash := s.InitialCapital
	units := 0.0
	inPosition := false
	var entryTime time.Time
	var entryFill float64

	for i := 0; i < n; i++ {
		price := prices.Close[i]

		switch {
		case !inPosition && entryCol.Values[i]:
			fill := price * (1 + s.Slippage)
			units = cash * (1 - s.Commission) / fill
			cash = 0
			inPosition = true
			entryTime = prices.Index[i]
			entryFill = fill

		case inPosition && exitCol.Values[i] && !prices.Index[i].Equal(entryTime):
			fill := price * (1 - s.Slippage)
			cash = units * fill * (1 - s.Commission)
			result.Trades = append(result.Trades, Trade{
				EntryTime:  entryTime,
				ExitTime:   prices.Index[i],
				EntryPrice: entryFill,
				ExitPrice:  fill,
				Return:     fill/entryFill - 1,
			})
			units = 0
			inPosition = false
		}

		result.Equity[i] = cash + units*price
	}

	result.DailyReturns = make([]float64, n)
	for i := 1; i < n; i++ {
		if result.Equity[i-1] > 0 {
			result.DailyReturns[i] = result.Equity[i]/result.Equity[i-1] - 1
		}
	}

	result.TotalReturn = result.Equity[n-1]/s.InitialCapital - 1
	result.SharpeRatio = sharpeRatio(result.DailyReturns)
	result.SortinoRatio = sortinoRatio(result.DailyReturns)
	result.MaxDrawdown = maxDrawdown(result.Equity)
	result.NumTrades = len(result.Trades)
	result.WinRate = winRate(result.Trades)

	return result
}

// sharpeRatio annualizes mean/stddev of daily returns.
func sharpeRatio(returns []float64) float64 {
	mean, std := meanStd(returns)
	if std == 0 {
		return 0
	}
	return mean / std * math.Sqrt(tradingDaysPerYear)
}

// sortinoRatio penalizes downside deviation only.
func sortinoRatio(returns []float64) float64 {
	mean, _ := meanStd(returns)

	downSum := 0.0
	for _, r := range returns {
		if r < 0 {
			downSum += r * r
		}
	}
	downside := math.Sqrt(downSum / float64(len(returns)))
	if downside == 0 {
		return 0
	}
	return mean / downside * math.Sqrt(tradingDaysPerYear)
}

// maxDrawdown returns the largest peak-to-trough equity loss as a
// positive fraction.
func maxDrawdown(equity []float64) float64 {
	peak := math.Inf(-1)
	maxDD := 0.0
	for _, e := range equity {
		if e > peak {
			peak = e
		}
		if peak > 0 {
			dd := (peak - e) / peak
			if dd > maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}

func winRate(trades []Trade) float64 {
	if len(trades) == 0 {
		return 0
	}
	wins := 0
	for _, t := range trades {
		if t.Return > 0 {
			wins++
		}
	}
	return float64(wins) / float64(len(trades))
}

func meanStd(xs []float64) (float64, float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	mean := sum / float64(len(xs))

	varSum := 0.0
	for _, x := range xs {
		d := x - mean
		varSum += d * d
	}
	return mean, math.Sqrt(varSum / float64(len(xs)))
}
