// Package strategies provides the built-in signal functions driven
// through the sweep engine by the CLI, API and scheduler.
package strategies

import "math"

// sma computes a simple moving average. The first period-1 slots are
// NaN.
func sma(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	for i := range out {
		out[i] = math.NaN()
	}
	if period <= 0 || period > len(values) {
		return out
	}

	sum := 0.0
	for i, v := range values {
		sum += v
		if i >= period {
			sum -= values[i-period]
		}
		if i >= period-1 {
			out[i] = sum / float64(period)
		}
	}
	return out
}

// rsi computes Wilder's relative strength index.
func rsi(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	for i := range out {
		out[i] = math.NaN()
	}
	if period <= 0 || len(values) <= period {
		return out
	}

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		change := values[i] - values[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)
	out[period] = rsiValue(avgGain, avgLoss)

	for i := period + 1; i < len(values); i++ {
		change := values[i] - values[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		out[i] = rsiValue(avgGain, avgLoss)
	}
	return out
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// rollingStd computes the rolling standard deviation of close-to-close
// returns over period bars.
func rollingStd(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	for i := range out {
		out[i] = math.NaN()
	}
	if period <= 1 || len(values) < 2 {
		return out
	}

	returns := make([]float64, len(values))
	for i := 1; i < len(values); i++ {
		if values[i-1] != 0 {
			returns[i] = values[i]/values[i-1] - 1
		}
	}

	for i := period; i < len(values); i++ {
		window := returns[i-period+1 : i+1]
		mean := 0.0
		for _, r := range window {
			mean += r
		}
		mean /= float64(len(window))

		varSum := 0.0
		for _, r := range window {
			d := r - mean
			varSum += d * d
		}
		out[i] = math.Sqrt(varSum / float64(len(window)))
	}
	return out
}
