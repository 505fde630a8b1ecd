package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridlab/quant/internal/backtest"
	"github.com/gridlab/quant/internal/contracts"
	"github.com/gridlab/quant/pkg/logger"
)

func samplePortfolio() (*contracts.PriceFrame, *backtest.Portfolio) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	index := []time.Time{base, base.AddDate(0, 0, 1), base.AddDate(0, 0, 2)}
	prices := &contracts.PriceFrame{
		Symbol:    "BTCUSDT",
		Timeframe: "1d",
		Index:     index,
		Open:      []float64{100, 101, 102},
		High:      []float64{101, 102, 103},
		Low:       []float64{99, 100, 101},
		Close:     []float64{100, 101, 102},
		Volume:    []float64{10, 11, 12},
	}
	portfolio := &backtest.Portfolio{
		Index: index,
		Variants: []backtest.VariantResult{
			{
				Key:          "fast=i:5;slow=i:20",
				Label:        "fast=5, slow=20",
				Equity:       []float64{10000, 10100, 10200},
				DailyReturns: []float64{0, 0.01, 0.0099},
				TotalReturn:  0.02,
			},
		},
	}
	return prices, portfolio
}

func TestBuildChartData(t *testing.T) {
	prices, portfolio := samplePortfolio()
	diags := contracts.Diagnostics{}
	diags.Add("figures", "fast_ma", []float64{1, 2, 3})

	data := Build(prices, portfolio, diags)

	assert.Equal(t, "BTCUSDT", data.Symbol)
	require.Len(t, data.Index, 3)
	assert.Equal(t, "2024-01-01T00:00:00Z", data.Index[0])
	require.Len(t, data.Variants, 1)
	assert.Equal(t, "fast=5, slow=20", data.Variants[0].Label)
	assert.Contains(t, data.Diagnostics["figures"], "fast_ma")
}

func TestWriteJSONRoundTrips(t *testing.T) {
	prices, portfolio := samplePortfolio()
	data := Build(prices, portfolio, nil)

	path := filepath.Join(t.TempDir(), "chart.json")
	w := NewWriter(logger.Nop())
	require.NoError(t, w.WriteJSON(path, data))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded ChartData
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, data.Symbol, decoded.Symbol)
	assert.Equal(t, data.Variants[0].Equity, decoded.Variants[0].Equity)
}

func TestWriteHTMLIsSelfContained(t *testing.T) {
	prices, portfolio := samplePortfolio()
	data := Build(prices, portfolio, nil)

	path := filepath.Join(t.TempDir(), "report.html")
	w := NewWriter(logger.Nop())
	require.NoError(t, w.WriteHTML(path, data))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	html := string(raw)

	assert.True(t, strings.HasPrefix(html, "<!DOCTYPE html>"))
	assert.Contains(t, html, "BTCUSDT")
	assert.Contains(t, html, `"equity":[10000,10100,10200]`, "chart data must be embedded")
}

func TestRenderWithoutPathBuildsDataOnly(t *testing.T) {
	prices, portfolio := samplePortfolio()
	w := NewWriter(logger.Nop())

	path, err := w.Render(prices, portfolio, nil, "")
	require.NoError(t, err)
	assert.Empty(t, path)
}
