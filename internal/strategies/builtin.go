package strategies

import (
	"fmt"
	"math"

	"github.com/gridlab/quant/internal/backtest"
	"github.com/gridlab/quant/internal/contracts"
)

// SMACross returns the built-in SMA crossover strategy: enter when the
// fast average crosses above the slow one, exit on the cross back down.
// Parameters: fast, slow (bar counts).
func SMACross() backtest.StrategyComponent {
	return backtest.StrategyComponent{
		Defaults: contracts.NewAssignment(
			contracts.Field{Name: "fast", Value: 10},
			contracts.Field{Name: "slow", Value: 30},
		),
		Fn: smaCross,
	}
}

func smaCross(prices *contracts.PriceFrame, params contracts.Assignment) ([]bool, []bool, contracts.Diagnostics, error) {
	fast, ok := params.Int("fast")
	if !ok {
		return nil, nil, nil, fmt.Errorf("%w: missing fast period", contracts.ErrInvalidArgument)
	}
	slow, ok := params.Int("slow")
	if !ok {
		return nil, nil, nil, fmt.Errorf("%w: missing slow period", contracts.ErrInvalidArgument)
	}
	if fast <= 0 || slow <= fast {
		return nil, nil, nil, fmt.Errorf("%w: need 0 < fast < slow, got fast=%d slow=%d",
			contracts.ErrInvalidArgument, fast, slow)
	}

	fastMA := sma(prices.Close, fast)
	slowMA := sma(prices.Close, slow)

	n := prices.Len()
	entries := make([]bool, n)
	exits := make([]bool, n)
	for i := 1; i < n; i++ {
		if math.IsNaN(slowMA[i]) || math.IsNaN(slowMA[i-1]) {
			continue
		}
		entries[i] = fastMA[i-1] <= slowMA[i-1] && fastMA[i] > slowMA[i]
		exits[i] = fastMA[i-1] >= slowMA[i-1] && fastMA[i] < slowMA[i]
	}

	diags := contracts.Diagnostics{}
	diags.Add("figures", "fast_ma", fastMA)
	diags.Add("figures", "slow_ma", slowMA)
	return entries, exits, diags, nil
}

// RSIFilter returns a filter passing bars where RSI is below the
// threshold, i.e. the market is not overbought.
// Parameters: period, threshold.
func RSIFilter() backtest.FilterComponent {
	return backtest.FilterComponent{
		Defaults: contracts.NewAssignment(
			contracts.Field{Name: "period", Value: 14},
			contracts.Field{Name: "threshold", Value: 70.0},
		),
		Fn: rsiFilter,
	}
}

func rsiFilter(prices *contracts.PriceFrame, params contracts.Assignment) ([]bool, contracts.Diagnostics, error) {
	period, ok := params.Int("period")
	if !ok || period <= 0 {
		return nil, nil, fmt.Errorf("%w: rsi filter needs a positive period", contracts.ErrInvalidArgument)
	}
	threshold, ok := params.Float("threshold")
	if !ok {
		return nil, nil, fmt.Errorf("%w: rsi filter needs a threshold", contracts.ErrInvalidArgument)
	}

	series := rsi(prices.Close, period)
	col := make([]bool, prices.Len())
	for i, v := range series {
		col[i] = !math.IsNaN(v) && v < threshold
	}

	diags := contracts.Diagnostics{}
	diags.Add("figures", "rsi", series)
	return col, diags, nil
}

// VolatilityFilter returns a filter passing bars whose rolling return
// volatility is below the threshold.
// Parameters: period, threshold.
func VolatilityFilter() backtest.FilterComponent {
	return backtest.FilterComponent{
		Defaults: contracts.NewAssignment(
			contracts.Field{Name: "period", Value: 20},
			contracts.Field{Name: "threshold", Value: 0.03},
		),
		Fn: volatilityFilter,
	}
}

func volatilityFilter(prices *contracts.PriceFrame, params contracts.Assignment) ([]bool, contracts.Diagnostics, error) {
	period, ok := params.Int("period")
	if !ok || period <= 1 {
		return nil, nil, fmt.Errorf("%w: volatility filter needs period > 1", contracts.ErrInvalidArgument)
	}
	threshold, ok := params.Float("threshold")
	if !ok {
		return nil, nil, fmt.Errorf("%w: volatility filter needs a threshold", contracts.ErrInvalidArgument)
	}

	series := rollingStd(prices.Close, period)
	col := make([]bool, prices.Len())
	for i, v := range series {
		col[i] = !math.IsNaN(v) && v < threshold
	}

	diags := contracts.Diagnostics{}
	diags.Add("figures", "volatility", series)
	return col, diags, nil
}
