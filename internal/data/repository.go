// Package data loads and stores candles: a PostgreSQL repository, a
// REST kline fetcher and the scheduled sync job tying them together.
package data

import (
	"context"
	"fmt"
	"time"

	"github.com/gridlab/quant/internal/contracts"
	"github.com/gridlab/quant/pkg/database"
	"github.com/gridlab/quant/pkg/logger"
)

// Candle is one OHLCV bar as stored.
type Candle struct {
	Symbol    string    `json:"symbol"`
	Timeframe string    `json:"timeframe"`
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

// CandleRepository reads and writes the data.candles table.
// SSOT: all candle SQL lives here.
type CandleRepository struct {
	db     *database.DB
	logger *logger.Logger
}

// NewCandleRepository creates a CandleRepository.
func NewCandleRepository(db *database.DB, log *logger.Logger) *CandleRepository {
	return &CandleRepository{db: db, logger: log}
}

// LoadFrame loads the candles for (symbol, timeframe) in [from, to]
// as a PriceFrame ordered by timestamp.
func (r *CandleRepository) LoadFrame(ctx context.Context, symbol, timeframe string, from, to time.Time) (*contracts.PriceFrame, error) {
	query := `
		SELECT ts, open, high, low, close, volume
		FROM data.candles
		WHERE symbol = $1 AND timeframe = $2 AND ts >= $3 AND ts <= $4
		ORDER BY ts ASC`

	rows, err := r.db.Pool.Query(ctx, query, symbol, timeframe, from, to)
	if err != nil {
		return nil, fmt.Errorf("query candles: %w", err)
	}
	defer rows.Close()

	frame := &contracts.PriceFrame{Symbol: symbol, Timeframe: timeframe}
	for rows.Next() {
		var ts time.Time
		var open, high, low, closePrice, volume float64
		if err := rows.Scan(&ts, &open, &high, &low, &closePrice, &volume); err != nil {
			return nil, fmt.Errorf("scan candle: %w", err)
		}
		frame.Index = append(frame.Index, ts)
		frame.Open = append(frame.Open, open)
		frame.High = append(frame.High, high)
		frame.Low = append(frame.Low, low)
		frame.Close = append(frame.Close, closePrice)
		frame.Volume = append(frame.Volume, volume)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candles: %w", err)
	}

	r.logger.WithFields(map[string]interface{}{
		"symbol":    symbol,
		"timeframe": timeframe,
		"rows":      frame.Len(),
	}).Debug("Candles loaded")

	return frame, nil
}

// SaveCandles upserts candles keyed by (symbol, timeframe, ts).
func (r *CandleRepository) SaveCandles(ctx context.Context, candles []Candle) (int, error) {
	if len(candles) == 0 {
		return 0, nil
	}

	query := `
		INSERT INTO data.candles (symbol, timeframe, ts, open, high, low, close, volume)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (symbol, timeframe, ts) DO UPDATE SET
			open = EXCLUDED.open,
			high = EXCLUDED.high,
			low = EXCLUDED.low,
			close = EXCLUDED.close,
			volume = EXCLUDED.volume`

	saved := 0
	for _, c := range candles {
		if _, err := r.db.Pool.Exec(ctx, query,
			c.Symbol, c.Timeframe, c.Timestamp, c.Open, c.High, c.Low, c.Close, c.Volume); err != nil {
			return saved, fmt.Errorf("upsert candle %s %s: %w", c.Symbol, c.Timestamp, err)
		}
		saved++
	}

	r.logger.WithFields(map[string]interface{}{
		"symbol": candles[0].Symbol,
		"count":  saved,
	}).Info("Candles saved")

	return saved, nil
}

// LatestTimestamp returns the newest stored candle time for (symbol,
// timeframe), or the zero time when none exist.
func (r *CandleRepository) LatestTimestamp(ctx context.Context, symbol, timeframe string) (time.Time, error) {
	var ts *time.Time
	err := r.db.Pool.QueryRow(ctx,
		`SELECT MAX(ts) FROM data.candles WHERE symbol = $1 AND timeframe = $2`,
		symbol, timeframe).Scan(&ts)
	if err != nil {
		return time.Time{}, fmt.Errorf("query latest candle: %w", err)
	}
	if ts == nil {
		return time.Time{}, nil
	}
	return *ts, nil
}
