// SPDX-License-Identifier: EPL-2.0

package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCubicInterpolate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		y0, y1, y2, y3 float32
		x              float32
		want           float32
		tolerance      float32
	}{
		{name: "start returns y1", y0: 0, y1: 1, y2: 2, y3: 3, x: 0, want: 1, tolerance: 1e-6},
		{name: "end returns y2", y0: 0, y1: 1, y2: 2, y3: 3, x: 1, want: 2, tolerance: 1e-6},
		{name: "linear ramp stays linear", y0: 1, y1: 2, y2: 3, y3: 4, x: 0.25, want: 2.25, tolerance: 1e-5},
		{name: "symmetric crossing", y0: -1, y1: -0.5, y2: 0.5, y3: 1, x: 0.5, want: 0, tolerance: 1e-5},
		{name: "silence", y0: 0, y1: 0, y2: 0, y3: 0, x: 0.7, want: 0, tolerance: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := CubicInterpolate(tt.y0, tt.y1, tt.y2, tt.y3, tt.x)
			assert.InDelta(t, tt.want, got, float64(tt.tolerance))
		})
	}
}

func TestSampleAt(t *testing.T) {
	t.Parallel()

	buf := []float32{0, 0.25, 0.5, 0.75, 1}

	assert.Equal(t, float32(0), SampleAt(nil, 3))
	assert.InDelta(t, 0.5, SampleAt(buf, 2), 1e-6)
	assert.InDelta(t, 0.625, SampleAt(buf, 2.5), 1e-5)
	// past the end repeats the last frame
	assert.InDelta(t, 1, SampleAt(buf, 10), 1e-6)
}

func TestSampleAt_ZeroAllocs(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping allocation test in short mode")
	}

	buf := make([]float32, 256)
	allocs := testing.AllocsPerRun(1000, func() {
		_ = SampleAt(buf, 17.3)
	})

	assert.Zero(t, allocs)
}

func BenchmarkSampleAt(b *testing.B) {
	buf := make([]float32, 44100)
	for i := range buf {
		buf[i] = float32(i%100) / 100
	}

	b.ReportAllocs()

	var pos float64
	for range b.N {
		_ = SampleAt(buf, pos)
		pos += 1.0594
		if pos >= float64(len(buf)) {
			pos = 0
		}
	}
}
