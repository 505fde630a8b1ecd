// Package overfit estimates the probability of backtest overfitting
// via combinatorially symmetric cross-validation (CSCV) over the
// per-variant daily-return matrix.
package overfit

import (
	"fmt"
	"math"
	"sort"

	"github.com/gridlab/quant/internal/contracts"
)

// Objective scores one variant's return series. Higher is better.
type Objective func(returns []float64) float64

// SharpeObjective is the default objective: mean over stddev.
func SharpeObjective(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	sum := 0.0
	for _, r := range returns {
		sum += r
	}
	mean := sum / float64(len(returns))

	varSum := 0.0
	for _, r := range returns {
		d := r - mean
		varSum += d * d
	}
	std := math.Sqrt(varSum / float64(len(returns)))
	if std == 0 {
		return 0
	}
	return mean / std
}

// Report is the CSCV outcome.
type Report struct {
	PBO          float64   `json:"pbo"` // probability of backtest overfitting
	Logits       []float64 `json:"logits"`
	NBins        int       `json:"nbins"`
	Combinations int       `json:"combinations"`
}

// Estimate runs CSCV over a T x N matrix (rows = time, columns =
// variants): the rows are split into nbins contiguous blocks, every
// half/half block combination forms one in-sample/out-of-sample split,
// the in-sample best variant is ranked out-of-sample, and PBO is the
// fraction of splits where that variant lands in the worse half.
func Estimate(matrix [][]float64, nbins int, objective Objective) (*Report, error) {
	if nbins < 2 || nbins%2 != 0 {
		return nil, fmt.Errorf("%w: cscv_nbins must be an even number >= 2, got %d",
			contracts.ErrInvalidArgument, nbins)
	}
	rows := len(matrix)
	if rows < nbins {
		return nil, fmt.Errorf("%w: %d rows cannot fill %d cscv bins",
			contracts.ErrInvalidArgument, rows, nbins)
	}
	if len(matrix[0]) < 2 {
		return nil, fmt.Errorf("%w: cscv needs at least 2 variants", contracts.ErrInvalidArgument)
	}
	if objective == nil {
		objective = SharpeObjective
	}

	blocks := splitBlocks(rows, nbins)
	combos := combinations(nbins, nbins/2)

	nVariants := len(matrix[0])
	logits := make([]float64, 0, len(combos))

	for _, isBlocks := range combos {
		isRows, oosRows := partitionRows(blocks, isBlocks)

		best, bestScore := 0, math.Inf(-1)
		for v := 0; v < nVariants; v++ {
			score := objective(gather(matrix, isRows, v))
			if score > bestScore {
				best, bestScore = v, score
			}
		}

		oosScores := make([]float64, nVariants)
		for v := 0; v < nVariants; v++ {
			oosScores[v] = objective(gather(matrix, oosRows, v))
		}

		// Relative rank of the in-sample winner among OOS scores.
		rank := 1
		for v, s := range oosScores {
			if v != best && s < oosScores[best] {
				rank++
			}
		}
		omega := float64(rank) / float64(nVariants+1)
		logits = append(logits, math.Log(omega/(1-omega)))
	}

	below := 0
	for _, l := range logits {
		if l <= 0 {
			below++
		}
	}

	sort.Float64s(logits)
	return &Report{
		PBO:          float64(below) / float64(len(logits)),
		Logits:       logits,
		NBins:        nbins,
		Combinations: len(combos),
	}, nil
}

// splitBlocks partitions [0, rows) into nbins contiguous index ranges
// of near-equal size.
func splitBlocks(rows, nbins int) [][]int {
	blocks := make([][]int, nbins)
	base := rows / nbins
	rem := rows % nbins

	start := 0
	for b := 0; b < nbins; b++ {
		size := base
		if b < rem {
			size++
		}
		block := make([]int, size)
		for i := range block {
			block[i] = start + i
		}
		blocks[b] = block
		start += size
	}
	return blocks
}

// combinations enumerates every k-subset of [0, n).
func combinations(n, k int) [][]int {
	var out [][]int
	combo := make([]int, k)
	var walk func(start, depth int)
	walk = func(start, depth int) {
		if depth == k {
			picked := make([]int, k)
			copy(picked, combo)
			out = append(out, picked)
			return
		}
		for i := start; i < n; i++ {
			combo[depth] = i
			walk(i+1, depth+1)
		}
	}
	walk(0, 0)
	return out
}

// partitionRows splits the row indices into in-sample rows (blocks in
// isBlocks) and out-of-sample rows (the rest).
func partitionRows(blocks [][]int, isBlocks []int) (isRows, oosRows []int) {
	inSet := make(map[int]bool, len(isBlocks))
	for _, b := range isBlocks {
		inSet[b] = true
	}
	for b, block := range blocks {
		if inSet[b] {
			isRows = append(isRows, block...)
		} else {
			oosRows = append(oosRows, block...)
		}
	}
	return isRows, oosRows
}

func gather(matrix [][]float64, rows []int, col int) []float64 {
	out := make([]float64, len(rows))
	for i, r := range rows {
		out[i] = matrix[r][col]
	}
	return out
}
