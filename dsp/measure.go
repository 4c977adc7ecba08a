// SPDX-License-Identifier: EPL-2.0

package dsp

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Levels summarizes a buffer for logging.
type Levels struct {
	PeakDBFS float64
	RMSDBFS  float64
	DC       float64
}

// Measure computes peak, RMS and DC offset. It allocates a float64 copy of
// buf and must not run on a realtime path.
func Measure(buf []float32) Levels {
	if len(buf) == 0 {
		return Levels{PeakDBFS: DBFS(0), RMSDBFS: DBFS(0)}
	}

	x := make([]float64, len(buf))
	for i, v := range buf {
		x[i] = float64(v)
	}

	peak := max(floats.Max(x), -floats.Min(x))
	mean := stat.Mean(x, nil)
	rms := floats.Norm(x, 2) / math.Sqrt(float64(len(x)))

	return Levels{
		PeakDBFS: DBFS(peak),
		RMSDBFS:  DBFS(rms),
		DC:       mean,
	}
}
