// SPDX-License-Identifier: EPL-2.0

package dsp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractEnvelope_ExactBuckets(t *testing.T) {
	t.Parallel()

	// 2 seconds at 44.1 kHz into 50 buckets
	buf := tone(88200, 0.8)
	env := ExtractEnvelope(buf, 50)

	require.Equal(t, 50, env.Len())
	require.Len(t, env.Max, 50)
	for i := range env.Len() {
		assert.LessOrEqual(t, env.Min[i], env.Max[i])
		assert.GreaterOrEqual(t, env.Min[i], float32(-1))
		assert.LessOrEqual(t, env.Max[i], float32(1))
	}
}

func TestExtractEnvelope_RemainderInLastWindow(t *testing.T) {
	t.Parallel()

	buf := []float32{0, 1, 0, -1, 0, 0.5, 0, -0.5, 0.9, -0.9}
	env := ExtractEnvelope(buf, 3)

	// window of 3, last window covers 4 frames
	assert.Equal(t, []float32{0, -1, -0.9}, env.Min)
	assert.Equal(t, []float32{1, 0.5, 0.9}, env.Max)
}

func TestExtractEnvelope_ShortBuffer(t *testing.T) {
	t.Parallel()

	env := ExtractEnvelope([]float32{0.5, -0.25}, 4)
	assert.Equal(t, []float32{0.5, -0.25, 0, 0}, env.Max)
	assert.Equal(t, []float32{0.5, -0.25, 0, 0}, env.Min)

	empty := ExtractEnvelope(nil, 8)
	assert.Equal(t, 8, empty.Len())

	assert.True(t, ExtractEnvelope([]float32{1}, 0).Empty())
}

func TestEnvelope_Downsample(t *testing.T) {
	t.Parallel()

	buf := tone(44100, 0.7)
	hi := ExtractEnvelope(buf, 1024)

	thumb := hi.Downsample(37)
	require.Equal(t, 37, thumb.Len())
	assert.Len(t, thumb.Max, 37)

	direct := ExtractEnvelope(buf, 37)
	for i := range 37 {
		assert.InDelta(t, direct.Max[i], thumb.Max[i], 0.05)
		assert.InDelta(t, direct.Min[i], thumb.Min[i], 0.05)
	}

	same := hi.Downsample(4096)
	assert.Equal(t, hi, same)
	same.Max[0] = 42
	assert.NotEqual(t, float32(42), hi.Max[0])
}
