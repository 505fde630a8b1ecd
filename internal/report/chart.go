// Package report renders a finished backtest into chart data and an
// optional self-contained HTML page.
package report

import (
	"encoding/json"
	"fmt"
	"html/template"
	"os"
	"time"

	"github.com/gridlab/quant/internal/backtest"
	"github.com/gridlab/quant/internal/contracts"
	"github.com/gridlab/quant/pkg/logger"
)

// ChartData is the JSON payload handed to the chart page.
type ChartData struct {
	Symbol    string    `json:"symbol"`
	Timeframe string    `json:"timeframe"`
	Generated time.Time `json:"generated"`

	Index []string  `json:"index"`
	Close []float64 `json:"close"`

	Variants    []VariantChart                    `json:"variants"`
	Diagnostics map[string]map[string]interface{} `json:"diagnostics,omitempty"`
}

// VariantChart is one variant's plotted series.
type VariantChart struct {
	Key         string           `json:"key"`
	Label       string           `json:"label"`
	Equity      []float64        `json:"equity"`
	Trades      []backtest.Trade `json:"trades"`
	TotalReturn float64          `json:"total_return"`
	SharpeRatio float64          `json:"sharpe_ratio"`
	MaxDrawdown float64          `json:"max_drawdown"`
}

// Writer builds chart data and writes report files.
type Writer struct {
	logger *logger.Logger
}

// NewWriter creates a report Writer.
func NewWriter(log *logger.Logger) *Writer {
	return &Writer{logger: log}
}

// Render implements backtest.Reporter: it builds the chart data and,
// when htmlPath is non-empty, writes the self-contained HTML page.
// Returns the path written, or "" when only chart data was built.
func (w *Writer) Render(prices *contracts.PriceFrame, portfolio *backtest.Portfolio, diags contracts.Diagnostics, htmlPath string) (string, error) {
	data := Build(prices, portfolio, diags)
	if htmlPath == "" {
		return "", nil
	}
	if err := w.WriteHTML(htmlPath, data); err != nil {
		return "", err
	}
	return htmlPath, nil
}

// Build assembles the chart payload from a run's outputs.
func Build(prices *contracts.PriceFrame, portfolio *backtest.Portfolio, diags contracts.Diagnostics) *ChartData {
	data := &ChartData{
		Symbol:      prices.Symbol,
		Timeframe:   prices.Timeframe,
		Generated:   time.Now().UTC(),
		Close:       prices.Close,
		Diagnostics: diags,
	}
	data.Index = make([]string, len(prices.Index))
	for i, ts := range prices.Index {
		data.Index[i] = ts.UTC().Format(time.RFC3339)
	}
	for _, v := range portfolio.Variants {
		data.Variants = append(data.Variants, VariantChart{
			Key:         v.Key,
			Label:       v.Label,
			Equity:      v.Equity,
			Trades:      v.Trades,
			TotalReturn: v.TotalReturn,
			SharpeRatio: v.SharpeRatio,
			MaxDrawdown: v.MaxDrawdown,
		})
	}
	return data
}

// WriteJSON writes the chart payload as a JSON file.
func (w *Writer) WriteJSON(path string, data *ChartData) error {
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal chart data: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("write chart data: %w", err)
	}
	w.logger.WithField("path", path).Info("Chart data written")
	return nil
}

// WriteHTML writes a self-contained HTML page with the chart data
// embedded, so the report opens without any server.
func (w *Writer) WriteHTML(path string, data *ChartData) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal chart data: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report file: %w", err)
	}
	defer f.Close()

	payload := struct {
		Symbol string
		Data   template.JS
	}{
		Symbol: data.Symbol,
		Data:   template.JS(raw),
	}
	if err := reportTemplate.Execute(f, payload); err != nil {
		return fmt.Errorf("render report: %w", err)
	}

	w.logger.WithField("path", path).Info("HTML report written")
	return nil
}

var reportTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Backtest report {{.Symbol}}</title>
<style>
body { font-family: sans-serif; margin: 2rem; }
table { border-collapse: collapse; margin-top: 1rem; }
td, th { border: 1px solid #ccc; padding: 4px 10px; text-align: right; }
th { background: #f4f4f4; }
canvas { margin-top: 1rem; border: 1px solid #eee; }
</style>
</head>
<body>
<h1>Backtest report: {{.Symbol}}</h1>
<table id="summary">
<thead><tr><th>Variant</th><th>Total return</th><th>Sharpe</th><th>Max drawdown</th><th>Trades</th></tr></thead>
<tbody></tbody>
</table>
<canvas id="equity" width="1200" height="400"></canvas>
<script>
const DATA = {{.Data}};

const tbody = document.querySelector("#summary tbody");
for (const v of DATA.variants) {
  const row = document.createElement("tr");
  row.innerHTML = "<td>" + v.label + "</td>" +
    "<td>" + (100 * v.total_return).toFixed(2) + "%</td>" +
    "<td>" + v.sharpe_ratio.toFixed(2) + "</td>" +
    "<td>" + (100 * v.max_drawdown).toFixed(2) + "%</td>" +
    "<td>" + v.trades.length + "</td>";
  tbody.appendChild(row);
}

const canvas = document.getElementById("equity");
const ctx = canvas.getContext("2d");
const all = DATA.variants.flatMap(v => v.equity);
const min = Math.min(...all), max = Math.max(...all);
const scaleX = canvas.width / Math.max(1, DATA.index.length - 1);
const scaleY = canvas.height / Math.max(1e-9, max - min);

DATA.variants.forEach((v, k) => {
  ctx.beginPath();
  ctx.strokeStyle = "hsl(" + (k * 360 / DATA.variants.length) + ",70%,45%)";
  v.equity.forEach((e, i) => {
    const x = i * scaleX;
    const y = canvas.height - (e - min) * scaleY;
    i === 0 ? ctx.moveTo(x, y) : ctx.lineTo(x, y);
  });
  ctx.stroke();
});
</script>
</body>
</html>
`))
