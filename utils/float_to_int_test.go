// SPDX-License-Identifier: EPL-2.0

package utils

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFloat32ToInt16(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input float32
		want  int16
	}{
		{name: "zero", input: 0, want: 0},
		{name: "max positive", input: 1, want: math.MaxInt16},
		{name: "half negative", input: -0.5, want: -16383},
		{name: "clamp over max", input: 1.5, want: math.MaxInt16},
		{name: "clamp under min", input: -100, want: -math.MaxInt16},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := Float32ToInt16(tt.input)
			assert.InDelta(t, tt.want, got, 1)
		})
	}
}

func TestInt16RoundTrip(t *testing.T) {
	t.Parallel()

	for f := -1.0; f <= 1.0; f += 0.01 {
		back := Int16ToFloat32(Float32ToInt16(float32(f)))
		assert.InDelta(t, f, back, 1.0/16384)
	}
}

func TestClamp(t *testing.T) {
	t.Parallel()

	assert.Equal(t, float32(1), Clamp(3))
	assert.Equal(t, float32(-1), Clamp(-3))
	assert.Equal(t, float32(0.2), Clamp(0.2))
}
