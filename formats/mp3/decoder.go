// SPDX-License-Identifier: EPL-2.0

// Package mp3 decodes MPEG-1/2 Layer III files for sample import.
package mp3

import (
	"encoding/binary"
	"fmt"
	"io"

	gomp3 "github.com/hajimehoshi/go-mp3"
	"github.com/ik5/padsampler/audio"
)

// go-mp3 always emits interleaved stereo int16 LE.
const outputChannels = 2

type pcmReader interface {
	Read([]byte) (int, error)
	SampleRate() int
}

type source struct {
	dec        pcmReader
	sampleRate int
	raw        []byte
	carry      int
}

func (s *source) SampleRate() int { return s.sampleRate }
func (s *source) Channels() int   { return outputChannels }
func (s *source) Close() error    { return nil }
func (s *source) BufSize() int    { return cap(s.raw) / 2 }

func (s *source) ReadSamples(dst []float32) (int, error) {
	need := len(dst) * 2
	if cap(s.raw) < need {
		raw := make([]byte, need)
		copy(raw, s.raw[:s.carry])
		s.raw = raw
	}
	s.raw = s.raw[:need]

	n, err := s.dec.Read(s.raw[s.carry:])
	n += s.carry

	samples := n / 2
	for i := range samples {
		dst[i] = float32(int16(binary.LittleEndian.Uint16(s.raw[2*i:]))) / 32768
	}

	// an odd trailing byte belongs to the next sample
	s.carry = n % 2
	if s.carry == 1 {
		s.raw[0] = s.raw[n-1]
	}

	if samples == 0 && err == nil {
		return 0, nil
	}

	return samples, err
}

type Decoder struct{}

func (Decoder) Decode(r io.Reader) (audio.Source, error) {
	dec, err := gomp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("opening mp3 stream: %w", err)
	}

	return &source{
		dec:        dec,
		sampleRate: dec.SampleRate(),
		raw:        make([]byte, 8192),
	}, nil
}
