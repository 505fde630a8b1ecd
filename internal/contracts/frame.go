package contracts

import (
	"fmt"
	"time"
)

// PriceFrame is a time-indexed OHLCV table. All slices share the same
// length as Index.
type PriceFrame struct {
	Symbol    string
	Timeframe string

	Index  []time.Time
	Open   []float64
	High   []float64
	Low    []float64
	Close  []float64
	Volume []float64
}

// Len returns the number of rows.
func (f *PriceFrame) Len() int {
	return len(f.Index)
}

// Tail returns a frame truncated to its most recent n rows. If n <= 0
// or n >= Len, the frame is returned unchanged.
func (f *PriceFrame) Tail(n int) *PriceFrame {
	if n <= 0 || n >= f.Len() {
		return f
	}
	start := f.Len() - n
	return &PriceFrame{
		Symbol:    f.Symbol,
		Timeframe: f.Timeframe,
		Index:     f.Index[start:],
		Open:      f.Open[start:],
		High:      f.High[start:],
		Low:       f.Low[start:],
		Close:     f.Close[start:],
		Volume:    f.Volume[start:],
	}
}

// Validate checks slice lengths and that the index is strictly ascending.
func (f *PriceFrame) Validate() error {
	n := len(f.Index)
	if n == 0 {
		return fmt.Errorf("%w: price frame is empty", ErrInvalidArgument)
	}
	if len(f.Open) != n || len(f.High) != n || len(f.Low) != n || len(f.Close) != n || len(f.Volume) != n {
		return fmt.Errorf("%w: price frame columns have mismatched lengths", ErrInvalidArgument)
	}
	for i := 1; i < n; i++ {
		if !f.Index[i].After(f.Index[i-1]) {
			return fmt.Errorf("%w: price frame index is not strictly ascending at row %d", ErrInvalidArgument, i)
		}
	}
	return nil
}
