// SPDX-License-Identifier: EPL-2.0

package intpcm

import (
	"bytes"
	"errors"
	"io"
	"testing"

	goaudio "github.com/go-audio/audio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReader struct {
	data []int
	off  int
	err  error
}

func (f *fakeReader) Format() *goaudio.Format {
	return &goaudio.Format{NumChannels: 1, SampleRate: 44100}
}

func (f *fakeReader) PCMBuffer(buf *goaudio.IntBuffer) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	n := copy(buf.Data, f.data[f.off:])
	f.off += n
	return n, nil
}

func TestSource_Scaling(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		layout Layout
		in     []int
		want   []float32
	}{
		{"16-bit", Layout{BitDepth: 16}, []int{0, 16384, -32768}, []float32{0, 0.5, -1}},
		{"24-bit", Layout{BitDepth: 24}, []int{4194304, -8388608}, []float32{0.5, -1}},
		{"8-bit signed", Layout{BitDepth: 8}, []int{64, -128}, []float32{0.5, -1}},
		{"8-bit unsigned", Layout{BitDepth: 8, Unsigned: true}, []int{128, 192, 0}, []float32{0, 0.5, -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			src := NewSource(&fakeReader{data: tt.in}, tt.layout)
			dst := make([]float32, 16)
			n, err := src.ReadSamples(dst)
			assert.ErrorIs(t, err, io.EOF)
			require.Equal(t, len(tt.want), n)
			assert.Equal(t, tt.want, dst[:n])
		})
	}
}

func TestSource_ExhaustedAndErrors(t *testing.T) {
	t.Parallel()

	src := NewSource(&fakeReader{}, Layout{BitDepth: 16})
	n, err := src.ReadSamples(make([]float32, 8))
	assert.Zero(t, n)
	assert.ErrorIs(t, err, io.EOF)

	boom := errors.New("boom")
	src = NewSource(&fakeReader{err: boom}, Layout{BitDepth: 16})
	_, err = src.ReadSamples(make([]float32, 8))
	assert.ErrorIs(t, err, boom)
}

type plainReader struct{ io.Reader }

func TestSeekable(t *testing.T) {
	t.Parallel()

	br := bytes.NewReader([]byte("abc"))
	rs, err := Seekable(br)
	require.NoError(t, err)
	assert.Same(t, br, rs)

	rs, err = Seekable(plainReader{bytes.NewBufferString("xyz")})
	require.NoError(t, err)
	got, err := io.ReadAll(rs)
	require.NoError(t, err)
	assert.Equal(t, "xyz", string(got))
}
