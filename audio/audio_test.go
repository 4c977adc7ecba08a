// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"io"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sine(rate, channels, frames int, freq float64) []float32 {
	out := make([]float32, frames*channels)
	for f := range frames {
		v := float32(math.Sin(2 * math.Pi * freq * float64(f) / float64(rate)))
		for c := range channels {
			out[f*channels+c] = v
		}
	}
	return out
}

type nopDecoder struct{}

func (nopDecoder) Decode(io.Reader) (Source, error) { return nil, nil }

func TestRegistry(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	r.Register("wav", nopDecoder{})
	r.Register("adpcm", nopDecoder{})

	_, ok := r.Get("wav")
	assert.True(t, ok)
	_, ok = r.Get("flac")
	assert.False(t, ok)
	assert.Equal(t, []string{"adpcm", "wav"}, r.Formats())
}

func TestFormat(t *testing.T) {
	t.Parallel()

	assert.True(t, Canonical.Valid())
	assert.ErrorIs(t, Format{SampleRate: 0, Channels: 1}.Validate(), ErrInvalidFormat)
	assert.ErrorIs(t, Format{SampleRate: 48000, Channels: 0}.Validate(), ErrInvalidFormat)

	stereo := Format{SampleRate: 48000, Channels: 2}
	assert.Equal(t, 100, stereo.Frames(200))
	assert.Equal(t, time.Second, Canonical.Duration(44100))
	assert.Equal(t, 22050, Canonical.FramesFor(500*time.Millisecond))
	assert.Equal(t, "48000Hz/2ch", stereo.String())
}

func TestReadAll_SliceSource(t *testing.T) {
	t.Parallel()

	data := sine(8000, 1, 10000, 440)
	got, err := ReadAll(NewSliceSource(data, Format{SampleRate: 8000, Channels: 1}))

	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestMonoMixer_StereoToMono(t *testing.T) {
	t.Parallel()

	data := make([]float32, 200)
	for i := range 100 {
		data[2*i] = 0.4
		data[2*i+1] = 0.6
	}

	mixer := NewMonoMixer(NewSliceSource(data, Format{SampleRate: 8000, Channels: 2}))
	assert.Equal(t, 1, mixer.Channels())

	got, err := ReadAll(mixer)
	require.NoError(t, err)
	require.Len(t, got, 100)
	for _, v := range got {
		assert.InDelta(t, 0.5, v, 1e-6)
	}
}

func TestDownmixInto_Generic(t *testing.T) {
	t.Parallel()

	src := []float32{0.3, 0.6, 0.9, -0.3, -0.6, -0.9}
	dst := make([]float32, 2)

	assert.Equal(t, 2, DownmixInto(dst, src, 3))
	assert.InDelta(t, 0.6, dst[0], 1e-6)
	assert.InDelta(t, -0.6, dst[1], 1e-6)
}

func TestResampler_Length(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		from, to int
	}{
		{name: "down 48k to 44.1k", from: 48000, to: 44100},
		{name: "up 22.05k to 44.1k", from: 22050, to: 44100},
		{name: "down 44.1k to 8k", from: 44100, to: 8000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			data := sine(tt.from, 1, tt.from, 220)
			r := NewResampler(NewSliceSource(data, Format{SampleRate: tt.from, Channels: 1}), tt.to)
			got, err := ReadAll(r)

			require.NoError(t, err)
			assert.InDelta(t, tt.to, len(got), float64(tt.to)/100)
			assert.Equal(t, tt.to, r.SampleRate())
		})
	}
}

func TestResampler_FirstFramePreserved(t *testing.T) {
	t.Parallel()

	data := []float32{0.5, 0.25, 0, -0.25, -0.5, -0.25, 0, 0.25}
	r := NewResampler(NewSliceSource(data, Format{SampleRate: 8000, Channels: 1}), 16000)

	buf := make([]float32, 2)
	n, err := r.ReadSamples(buf)
	require.NoError(t, err)
	require.Equal(t, 2, n)
	assert.InDelta(t, 0.5, buf[0], 1e-6)
}

func TestResampler_InvalidDstSize(t *testing.T) {
	t.Parallel()

	r := NewResampler(NewSliceSource(make([]float32, 20), Format{SampleRate: 8000, Channels: 2}), 16000)
	_, err := r.ReadSamples(make([]float32, 3))
	assert.ErrorIs(t, err, ErrInvalidDstSize)
}

func TestConverter_FastPath(t *testing.T) {
	t.Parallel()

	data := sine(44100, 1, 4410, 440)
	got, err := Converter{}.Convert(data, Canonical, Canonical)

	require.NoError(t, err)
	assert.Same(t, &data[0], &got[0], "matching formats must pass through")
}

func TestConverter_AlwaysConvert(t *testing.T) {
	t.Parallel()

	data := sine(44100, 1, 4410, 440)
	got, err := Converter{AlwaysConvert: true}.Convert(data, Canonical, Canonical)

	require.NoError(t, err)
	require.Len(t, got, len(data))
	assert.NotSame(t, &data[0], &got[0])
	for i := range data {
		assert.InDelta(t, data[i], got[i], 1e-6)
	}
}

func TestConverter_StereoHighRate(t *testing.T) {
	t.Parallel()

	from := Format{SampleRate: 48000, Channels: 2}
	data := sine(48000, 2, 48000, 440)

	got, err := Converter{}.Convert(data, from, Canonical)
	require.NoError(t, err)
	assert.InDelta(t, 44100, len(got), 441)
	for _, v := range got {
		assert.LessOrEqual(t, math.Abs(float64(v)), 1.05)
	}
}

func TestConverter_Invalid(t *testing.T) {
	t.Parallel()

	_, err := Converter{}.Convert(nil, Format{SampleRate: 0, Channels: 1}, Canonical)
	assert.ErrorIs(t, err, ErrConversion)
	assert.ErrorIs(t, err, ErrInvalidFormat)

	_, err = Converter{}.Convert(nil, Canonical, Format{SampleRate: 44100, Channels: 2})
	assert.ErrorIs(t, err, ErrConversion)
}

func TestStreamConverter_Passthrough(t *testing.T) {
	t.Parallel()

	sc, err := NewStreamConverter(Canonical, Canonical, false)
	require.NoError(t, err)
	assert.True(t, sc.Passthrough())

	chunk := []float32{0.1, 0.2, 0.3}
	out, err := sc.Process(chunk)
	require.NoError(t, err)
	assert.Equal(t, chunk, out)
	assert.Nil(t, sc.Flush())
}

func TestStreamConverter_AlwaysConvertKeepsSamples(t *testing.T) {
	t.Parallel()

	sc, err := NewStreamConverter(Canonical, Canonical, true)
	require.NoError(t, err)
	assert.False(t, sc.Passthrough())

	data := sine(44100, 1, 1000, 440)
	var got []float32
	for off := 0; off < len(data); off += 137 {
		out, err := sc.Process(data[off:min(off+137, len(data))])
		require.NoError(t, err)
		got = append(got, out...)
	}
	got = append(got, sc.Flush()...)

	require.Len(t, got, len(data))
	for i := range data {
		assert.InDelta(t, data[i], got[i], 1e-5)
	}
}

func TestStreamConverter_ChunkedMatchesContinuous(t *testing.T) {
	t.Parallel()

	from := Format{SampleRate: 48000, Channels: 2}
	data := sine(48000, 2, 9600, 300)

	whole, err := NewStreamConverter(from, Canonical, false)
	require.NoError(t, err)
	ref, err := whole.Process(data)
	require.NoError(t, err)
	ref = append(append([]float32(nil), ref...), whole.Flush()...)

	chunked, err := NewStreamConverter(from, Canonical, false)
	require.NoError(t, err)
	var got []float32
	for off := 0; off < len(data); off += 512 {
		out, err := chunked.Process(data[off:min(off+512, len(data))])
		require.NoError(t, err)
		got = append(got, out...)
	}
	got = append(got, chunked.Flush()...)

	require.Len(t, got, len(ref))
	for i := range ref {
		assert.InDelta(t, ref[i], got[i], 1e-6)
	}
	assert.InDelta(t, 8820, len(got), 2)
}

func TestStreamConverter_DownsampleMatchesConverter(t *testing.T) {
	t.Parallel()

	from := Format{SampleRate: 48000, Channels: 1}
	nyquist := make([]float32, 4800)
	for i := range nyquist {
		nyquist[i] = 1
		if i%2 == 1 {
			nyquist[i] = -1
		}
	}

	sc, err := NewStreamConverter(from, Canonical, false)
	require.NoError(t, err)
	var streamed []float32
	for off := 0; off < len(nyquist); off += 480 {
		out, err := sc.Process(nyquist[off : off+480])
		require.NoError(t, err)
		streamed = append(streamed, out...)
	}
	streamed = append(streamed, sc.Flush()...)

	imported, err := Converter{}.Convert(nyquist, from, Canonical)
	require.NoError(t, err)

	peak := func(s []float32) float64 {
		var p float64
		for _, v := range s[100 : len(s)-100] {
			p = math.Max(p, math.Abs(float64(v)))
		}
		return p
	}

	assert.Less(t, peak(streamed), 0.5)
	assert.Less(t, peak(imported), 0.5)
	assert.InDelta(t, peak(imported), peak(streamed), 0.05)
}

func TestStreamConverter_ZeroAllocsAfterWarmup(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping allocation test in short mode")
	}

	sc, err := NewStreamConverter(Format{SampleRate: 48000, Channels: 2}, Canonical, false)
	require.NoError(t, err)
	chunk := sine(48000, 2, 480, 440)
	_, _ = sc.Process(chunk)

	allocs := testing.AllocsPerRun(100, func() {
		_, _ = sc.Process(chunk)
	})
	assert.Zero(t, allocs)
}
