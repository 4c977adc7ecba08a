// SPDX-License-Identifier: EPL-2.0

// Package intpcm adapts go-audio integer PCM readers to audio.Source.
package intpcm

import (
	"bytes"
	"fmt"
	"io"

	goaudio "github.com/go-audio/audio"
)

// Reader is the part of the go-audio wav and aiff decoders we use.
type Reader interface {
	Format() *goaudio.Format
	PCMBuffer(buf *goaudio.IntBuffer) (int, error)
}

// Layout describes the integer samples a Reader produces.
type Layout struct {
	SampleRate int
	Channels   int
	BitDepth   int
	// Unsigned marks 8-bit data stored as 0..255 with 128 as silence.
	Unsigned bool
}

// Source serves integer PCM as float32 in [-1, 1].
type Source struct {
	dec    Reader
	layout Layout
	bias   int
	scale  float32
	intBuf *goaudio.IntBuffer
}

func NewSource(dec Reader, layout Layout) *Source {
	s := &Source{
		dec:    dec,
		layout: layout,
		scale:  1 / FullScale(layout.BitDepth),
	}
	if layout.Unsigned && layout.BitDepth == 8 {
		s.bias = 128
	}

	return s
}

func (s *Source) SampleRate() int { return s.layout.SampleRate }
func (s *Source) Channels() int   { return s.layout.Channels }
func (s *Source) Close() error    { return nil }
func (s *Source) BufSize() int {
	if s.intBuf != nil {
		return cap(s.intBuf.Data)
	}
	return 4096
}

func (s *Source) ReadSamples(dst []float32) (int, error) {
	if len(dst) == 0 {
		return 0, nil
	}

	if s.intBuf == nil || cap(s.intBuf.Data) < len(dst) {
		s.intBuf = &goaudio.IntBuffer{
			Data:   make([]int, len(dst)),
			Format: s.dec.Format(),
		}
	} else {
		s.intBuf.Data = s.intBuf.Data[:len(dst)]
	}

	n, err := s.dec.PCMBuffer(s.intBuf)
	if n == 0 {
		if err != nil && err != io.EOF {
			return 0, fmt.Errorf("%w", err)
		}
		return 0, io.EOF
	}

	for i := range n {
		dst[i] = float32(s.intBuf.Data[i]-s.bias) * s.scale
	}

	// a short read without error means the data chunk is exhausted
	if n < len(dst) && err == nil {
		return n, io.EOF
	}

	return n, err
}

// FullScale is the magnitude of the most negative value at bitDepth.
func FullScale(bitDepth int) float32 {
	switch bitDepth {
	case 8:
		return 128.0
	case 24:
		return 8388608.0
	case 32:
		return 2147483648.0
	default:
		return 32768.0
	}
}

// Seekable returns r as an io.ReadSeeker, buffering it in memory when it
// cannot seek. go-audio decoders need to seek between chunks.
func Seekable(r io.Reader) (io.ReadSeeker, error) {
	if rs, ok := r.(io.ReadSeeker); ok {
		return rs, nil
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w", err)
	}

	return bytes.NewReader(data), nil
}
