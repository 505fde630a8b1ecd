package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gridlab/quant/internal/backtest"
	"github.com/gridlab/quant/internal/contracts"
	"github.com/gridlab/quant/internal/strategies"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCandles(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("symbol")
	timeframe := r.URL.Query().Get("timeframe")
	if symbol == "" || timeframe == "" {
		writeError(w, http.StatusBadRequest, "symbol and timeframe are required")
		return
	}

	from, to, err := parseRange(r.URL.Query().Get("from"), r.URL.Query().Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	frame, err := s.repo.LoadFrame(r.Context(), symbol, timeframe, from, to)
	if err != nil {
		s.logger.WithError(err).Error("Candle query failed")
		writeError(w, http.StatusInternalServerError, "candle query failed")
		return
	}

	writeJSON(w, http.StatusOK, frame)
}

// backtestRequest is the sweep request body. Fast/slow are the SMA
// crossover sweep values; the optional filters sweep their own params.
type backtestRequest struct {
	Symbol    string `json:"symbol"`
	Timeframe string `json:"timeframe"`
	From      string `json:"from"`
	To        string `json:"to"`

	Fast []int `json:"fast"`
	Slow []int `json:"slow"`

	RSIPeriods    []int     `json:"rsi_periods,omitempty"`
	RSIThresholds []float64 `json:"rsi_thresholds,omitempty"`

	StopLoss     float64 `json:"sl_stop,omitempty"`
	TrailingStop float64 `json:"ts_stop,omitempty"`
	TakeProfit   float64 `json:"tp_stop,omitempty"`

	Lookback  int    `json:"lookback,omitempty"`
	Side      string `json:"side,omitempty"`
	CSCVNBins int    `json:"cscv_nbins,omitempty"`
}

type backtestResponse struct {
	Variants []variantSummary `json:"variants"`
	Best     *variantSummary  `json:"best,omitempty"`
	PBO      *float64         `json:"pbo,omitempty"`
}

type variantSummary struct {
	Label       string  `json:"label"`
	TotalReturn float64 `json:"total_return"`
	SharpeRatio float64 `json:"sharpe_ratio"`
	MaxDrawdown float64 `json:"max_drawdown"`
	WinRate     float64 `json:"win_rate"`
	NumTrades   int     `json:"num_trades"`
}

func (s *Server) handleBacktest(w http.ResponseWriter, r *http.Request) {
	var req backtestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Symbol == "" || req.Timeframe == "" {
		writeError(w, http.StatusBadRequest, "symbol and timeframe are required")
		return
	}
	if len(req.Fast) == 0 || len(req.Slow) == 0 {
		writeError(w, http.StatusBadRequest, "fast and slow sweep values are required")
		return
	}

	from, to, err := parseRange(req.From, req.To)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	prices, err := s.repo.LoadFrame(r.Context(), req.Symbol, req.Timeframe, from, to)
	if err != nil {
		s.logger.WithError(err).Error("Candle query failed")
		writeError(w, http.StatusInternalServerError, "candle query failed")
		return
	}
	if prices.Len() == 0 {
		writeError(w, http.StatusNotFound, "no candles in range")
		return
	}

	opts, err := buildOptions(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.orchestrator.Run(prices, strategies.SMACross(), opts)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, contracts.ErrInvalidArgument) ||
			errors.Is(err, contracts.ErrInvalidParameterSpec) ||
			errors.Is(err, contracts.ErrUnsupportedSide) {
			status = http.StatusBadRequest
		}
		writeError(w, status, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, buildResponse(result))
}

func buildOptions(req backtestRequest) (backtest.Options, error) {
	variables := contracts.NewParameterSpec().
		Sweep("fast", intsToValues(req.Fast)...).
		Sweep("slow", intsToValues(req.Slow)...)
	if req.StopLoss > 0 {
		variables.Set("sl_stop", req.StopLoss)
	}
	if req.TrailingStop > 0 {
		variables.Set("ts_stop", req.TrailingStop)
	}
	if req.TakeProfit > 0 {
		variables.Set("tp_stop", req.TakeProfit)
	}

	opts := backtest.Options{
		Variables: variables,
		Lookback:  req.Lookback,
		Side:      req.Side,
		CSCVNBins: req.CSCVNBins,
		Plot:      req.CSCVNBins > 0,
	}

	if len(req.RSIPeriods) > 0 || len(req.RSIThresholds) > 0 {
		filter := strategies.RSIFilter()
		spec := contracts.NewParameterSpec()
		if len(req.RSIPeriods) > 0 {
			spec.Sweep("period", intsToValues(req.RSIPeriods)...)
		} else {
			spec.Set("period", 14)
		}
		if len(req.RSIThresholds) > 0 {
			spec.Sweep("threshold", floatsToValues(req.RSIThresholds)...)
		} else {
			spec.Set("threshold", 70.0)
		}
		filter.Spec = spec
		opts.Filters = map[string]backtest.FilterComponent{"rsi": filter}
	}

	return opts, nil
}

func buildResponse(result *backtest.Result) backtestResponse {
	resp := backtestResponse{}
	for _, v := range result.Portfolio.Variants {
		resp.Variants = append(resp.Variants, variantSummary{
			Label:       v.Label,
			TotalReturn: v.TotalReturn,
			SharpeRatio: v.SharpeRatio,
			MaxDrawdown: v.MaxDrawdown,
			WinRate:     v.WinRate,
			NumTrades:   v.NumTrades,
		})
	}
	if best := result.Portfolio.Best(); best != nil {
		resp.Best = &variantSummary{
			Label:       best.Label,
			TotalReturn: best.TotalReturn,
			SharpeRatio: best.SharpeRatio,
			MaxDrawdown: best.MaxDrawdown,
			WinRate:     best.WinRate,
			NumTrades:   best.NumTrades,
		}
	}
	if result.Overfit != nil {
		pbo := result.Overfit.PBO
		resp.PBO = &pbo
	}
	return resp
}

func parseRange(fromStr, toStr string) (time.Time, time.Time, error) {
	to := time.Now().UTC()
	from := to.AddDate(-1, 0, 0)

	if fromStr != "" {
		parsed, err := time.Parse(time.RFC3339, fromStr)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("from must be RFC3339")
		}
		from = parsed
	}
	if toStr != "" {
		parsed, err := time.Parse(time.RFC3339, toStr)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("to must be RFC3339")
		}
		to = parsed
	}
	if !from.Before(to) {
		return time.Time{}, time.Time{}, errors.New("from must be before to")
	}
	return from, to, nil
}

func intsToValues(xs []int) []interface{} {
	out := make([]interface{}, len(xs))
	for i, x := range xs {
		out[i] = x
	}
	return out
}

func floatsToValues(xs []float64) []interface{} {
	out := make([]interface{}, len(xs))
	for i, x := range xs {
		out[i] = x
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
