package analysis

import (
	"errors"
	"fmt"
	"math"
)

var ErrSeriesTooShort = errors.New("series too short for decomposition")

// Decomposition splits a series additively: Observed = Trend + Seasonal + Resid.
// Trend and Resid are NaN where the moving average window does not fit.
type Decomposition struct {
	Period   int
	Observed []float64
	Trend    []float64
	Seasonal []float64
	Resid    []float64
}

// Decompose runs a classical additive decomposition. The trend is a centered
// moving average over one period (a 2xP average for even periods), the
// seasonal component the per-phase mean of the detrended series shifted to
// zero mean.
func Decompose(values []float64, period int) (Decomposition, error) {
	if period < 2 {
		return Decomposition{}, fmt.Errorf("invalid period %d", period)
	}
	if len(values) < 2*period {
		return Decomposition{}, fmt.Errorf("%w: %d points, need %d", ErrSeriesTooShort, len(values), 2*period)
	}

	n := len(values)
	observed := append([]float64(nil), values...)
	trend := movingAverage(observed, period)

	detrended := make([]float64, n)
	for i := range observed {
		detrended[i] = observed[i] - trend[i]
	}

	averages := make([]float64, period)
	var total float64
	for phase := 0; phase < period; phase++ {
		var sum float64
		var count int
		for i := phase; i < n; i += period {
			if math.IsNaN(detrended[i]) {
				continue
			}
			sum += detrended[i]
			count++
		}
		if count > 0 {
			averages[phase] = sum / float64(count)
		} else {
			averages[phase] = math.NaN()
		}
		total += averages[phase]
	}
	mean := total / float64(period)

	seasonal := make([]float64, n)
	resid := make([]float64, n)
	for i := range observed {
		seasonal[i] = averages[i%period] - mean
		resid[i] = detrended[i] - seasonal[i]
	}

	return Decomposition{
		Period:   period,
		Observed: observed,
		Trend:    trend,
		Seasonal: seasonal,
		Resid:    resid,
	}, nil
}

func movingAverage(values []float64, period int) []float64 {
	weights := make([]float64, period)
	for i := range weights {
		weights[i] = 1 / float64(period)
	}
	if period%2 == 0 {
		weights = make([]float64, period+1)
		for i := range weights {
			weights[i] = 1 / float64(period)
		}
		weights[0] /= 2
		weights[period] /= 2
	}

	half := len(weights) / 2
	trend := make([]float64, len(values))
	for i := range values {
		if i < half || i >= len(values)-half {
			trend[i] = math.NaN()
			continue
		}
		var sum float64
		for j, w := range weights {
			sum += w * values[i-half+j]
		}
		trend[i] = sum
	}
	return trend
}
