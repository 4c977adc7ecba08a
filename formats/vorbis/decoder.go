// SPDX-License-Identifier: EPL-2.0

// Package vorbis decodes Ogg Vorbis files for sample import.
package vorbis

import (
	"fmt"
	"io"

	"github.com/ik5/padsampler/audio"
	"github.com/jfreymuth/oggvorbis"
)

type floatReader interface {
	SampleRate() int
	Channels() int
	Read([]float32) (int, error)
}

type source struct {
	dec        floatReader
	sampleRate int
	channels   int
}

func (s *source) SampleRate() int { return s.sampleRate }
func (s *source) Channels() int   { return s.channels }
func (s *source) Close() error    { return nil }
func (s *source) BufSize() int    { return 4096 * s.channels }

func (s *source) ReadSamples(dst []float32) (int, error) {
	whole := len(dst) - len(dst)%s.channels
	if whole == 0 {
		return 0, nil
	}

	// oggvorbis decodes interleaved floats straight into dst and counts
	// the values written.
	return s.dec.Read(dst[:whole])
}

type Decoder struct{}

func (Decoder) Decode(r io.Reader) (audio.Source, error) {
	dec, err := oggvorbis.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("opening ogg stream: %w", err)
	}

	if dec.Channels() < 1 {
		return nil, fmt.Errorf("%w: %d channels", audio.ErrInvalidFormat, dec.Channels())
	}

	return &source{
		dec:        dec,
		sampleRate: dec.SampleRate(),
		channels:   dec.Channels(),
	}, nil
}
