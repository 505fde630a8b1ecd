package data

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/gridlab/quant/pkg/httputil"
	"github.com/gridlab/quant/pkg/logger"
)

// Fetcher downloads klines from a Binance-compatible JSON REST API.
type Fetcher struct {
	client  *httputil.Client
	baseURL string
	logger  *logger.Logger
}

// NewFetcher creates a Fetcher.
func NewFetcher(client *httputil.Client, baseURL string, log *logger.Logger) *Fetcher {
	return &Fetcher{client: client, baseURL: baseURL, logger: log}
}

// Fetch downloads candles for symbol/interval in [start, end), paging
// through the API until the range is covered.
func (f *Fetcher) Fetch(ctx context.Context, symbol, interval string, start, end time.Time) ([]Candle, error) {
	const pageLimit = 1000

	var out []Candle
	cursor := start
	for cursor.Before(end) {
		page, err := f.fetchPage(ctx, symbol, interval, cursor, end, pageLimit)
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			break
		}
		out = append(out, page...)

		last := page[len(page)-1].Timestamp
		if !last.After(cursor) {
			break
		}
		cursor = last.Add(time.Millisecond)
	}

	f.logger.WithFields(map[string]interface{}{
		"symbol":   symbol,
		"interval": interval,
		"count":    len(out),
	}).Info("Klines fetched")

	return out, nil
}

// fetchPage requests one page of klines. The API returns rows of the
// form [openTime, open, high, low, close, volume, closeTime, ...] with
// prices as strings and times as millisecond epochs.
func (f *Fetcher) fetchPage(ctx context.Context, symbol, interval string, start, end time.Time, limit int) ([]Candle, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("interval", interval)
	params.Set("startTime", strconv.FormatInt(start.UnixMilli(), 10))
	params.Set("endTime", strconv.FormatInt(end.UnixMilli(), 10))
	params.Set("limit", strconv.Itoa(limit))

	endpoint := f.baseURL + "/api/v3/klines?" + params.Encode()

	var raw [][]interface{}
	if err := f.client.GetJSON(ctx, endpoint, &raw); err != nil {
		return nil, fmt.Errorf("fetch klines %s %s: %w", symbol, interval, err)
	}

	candles := make([]Candle, 0, len(raw))
	for i, row := range raw {
		c, err := parseKlineRow(row)
		if err != nil {
			return nil, fmt.Errorf("kline row %d: %w", i, err)
		}
		c.Symbol = symbol
		c.Timeframe = interval
		candles = append(candles, c)
	}
	return candles, nil
}

func parseKlineRow(row []interface{}) (Candle, error) {
	if len(row) < 6 {
		return Candle{}, fmt.Errorf("expected at least 6 fields, got %d", len(row))
	}

	openTime, ok := row[0].(float64)
	if !ok {
		return Candle{}, fmt.Errorf("open time is %T, want number", row[0])
	}

	fields := make([]float64, 5)
	for i := 0; i < 5; i++ {
		s, ok := row[i+1].(string)
		if !ok {
			return Candle{}, fmt.Errorf("field %d is %T, want string", i+1, row[i+1])
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Candle{}, fmt.Errorf("field %d: %w", i+1, err)
		}
		fields[i] = v
	}

	return Candle{
		Timestamp: time.UnixMilli(int64(openTime)).UTC(),
		Open:      fields[0],
		High:      fields[1],
		Low:       fields[2],
		Close:     fields[3],
		Volume:    fields[4],
	}, nil
}
