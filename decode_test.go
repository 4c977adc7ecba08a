// SPDX-License-Identifier: EPL-2.0

package padsampler

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/ik5/padsampler/audio"
	"github.com/ik5/padsampler/formats/adpcm"
	"github.com/ik5/padsampler/formats/wav"
	"github.com/ik5/padsampler/internal/audiotest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	return path
}

func TestDefaultRegistry(t *testing.T) {
	t.Parallel()

	assert.Equal(t,
		[]string{"adpcm", "aif", "aiff", "mp3", "oga", "ogg", "wav", "wave"},
		DefaultRegistry().Formats())
}

func TestFormatOf(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "wav", FormatOf("/tmp/Kick.WAV"))
	assert.Equal(t, "ogg", FormatOf("snare.ogg"))
	assert.Empty(t, FormatOf("noext"))
}

func TestDecodeCanonical(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		src    audio.Source
		frames int
	}{
		{"canonical", audiotest.NewSineSource(44100, 1, 44100, 440), 44100},
		{"stereo 48k", audiotest.NewSineSource(48000, 2, 48000, 440), 44100},
		{"mono 22k", audiotest.NewConstantSource(22050, 1, 22050, 0.5), 44100},
		{"silent 8k", audiotest.NewSilentSource(8000, 1, 8000), 44100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := DecodeCanonical(tt.src, false)
			require.NoError(t, err)
			assert.InDelta(t, tt.frames, len(got), 10)
		})
	}
}

func TestDecodeCanonical_StereoAverages(t *testing.T) {
	t.Parallel()

	src := audiotest.NewMockSource(44100, 2, 100, func(_, ch int) float32 {
		if ch == 0 {
			return 0.8
		}
		return 0.2
	})

	got, err := DecodeCanonical(src, false)
	require.NoError(t, err)
	require.Len(t, got, 100)
	for _, v := range got {
		assert.InDelta(t, 0.5, v, 1e-6)
	}
}

func TestDecodeFile_PCMWave(t *testing.T) {
	t.Parallel()

	pcm := make([]int16, 8000)
	for i := range pcm {
		pcm[i] = int16(10000 * math.Sin(2*math.Pi*440*float64(i)/8000))
	}
	var buf bytes.Buffer
	require.NoError(t, wav.WriteWAV16(&buf, 8000, pcm))
	path := writeFile(t, "tone.wav", buf.Bytes())

	samples, from, err := DecodeFile(DefaultRegistry(), path, false)
	require.NoError(t, err)
	assert.Equal(t, audio.Format{SampleRate: 8000, Channels: 1}, from)
	assert.InDelta(t, 44100, len(samples), 10)
}

func TestDecodeFile_ADPCMWave(t *testing.T) {
	t.Parallel()

	tone := make([]float32, 4410)
	for i := range tone {
		tone[i] = float32(0.5 * math.Sin(2*math.Pi*220*float64(i)/44100))
	}
	data, err := adpcm.Codec{}.Encode(tone)
	require.NoError(t, err)
	path := writeFile(t, "pad-003.wav", data)

	samples, from, err := DecodeFile(DefaultRegistry(), path, false)
	require.NoError(t, err)
	assert.Equal(t, audio.Canonical, from)
	assert.Len(t, samples, len(tone))
}

func TestDecodeFile_Errors(t *testing.T) {
	t.Parallel()

	_, _, err := DecodeFile(DefaultRegistry(), "song.flac", false)
	require.ErrorIs(t, err, ErrUnknownFormat)

	_, _, err = DecodeFile(DefaultRegistry(), filepath.Join(t.TempDir(), "missing.wav"), false)
	require.ErrorIs(t, err, os.ErrNotExist)

	path := writeFile(t, "junk.wav", []byte("not audio at all"))
	_, _, err = DecodeFile(DefaultRegistry(), path, false)
	require.ErrorIs(t, err, wav.ErrNotWavFile)
}
