// SPDX-License-Identifier: EPL-2.0

// Package audiotest holds synthetic sources and fake devices for tests.
package audiotest

import (
	"io"
	"math"
)

// Waveform returns the value of channel ch at frame i.
type Waveform func(i, ch int) float32

// MockSource generates a fixed number of frames from a Waveform. It
// satisfies audio.Source.
type MockSource struct {
	rate     int
	channels int
	frames   int
	pos      int
	wave     Waveform
}

func NewMockSource(rate, channels, frames int, wave Waveform) *MockSource {
	return &MockSource{rate: rate, channels: channels, frames: frames, wave: wave}
}

func NewSilentSource(rate, channels, frames int) *MockSource {
	return NewConstantSource(rate, channels, frames, 0)
}

func NewConstantSource(rate, channels, frames int, value float32) *MockSource {
	return NewMockSource(rate, channels, frames, func(int, int) float32 { return value })
}

func NewSineSource(rate, channels, frames int, freq float64) *MockSource {
	return NewMockSource(rate, channels, frames, Sine(rate, freq, 1))
}

// Sine is a Waveform at freq Hz with the given peak, identical on every
// channel.
func Sine(rate int, freq float64, peak float32) Waveform {
	return func(i, _ int) float32 {
		return peak * float32(math.Sin(2*math.Pi*freq*float64(i)/float64(rate)))
	}
}

// Interleaved renders frames of wave starting at frame offset.
func Interleaved(wave Waveform, channels, offset, frames int) []float32 {
	out := make([]float32, frames*channels)
	for f := range frames {
		for ch := range channels {
			out[f*channels+ch] = wave(offset+f, ch)
		}
	}
	return out
}

func (m *MockSource) SampleRate() int { return m.rate }
func (m *MockSource) Channels() int   { return m.channels }
func (m *MockSource) BufSize() int    { return 4096 }
func (m *MockSource) Close() error    { return nil }

// Reset rewinds to the first frame.
func (m *MockSource) Reset() { m.pos = 0 }

func (m *MockSource) ReadSamples(dst []float32) (int, error) {
	if m.pos >= m.frames {
		return 0, io.EOF
	}

	n := min(len(dst)/m.channels, m.frames-m.pos)
	for f := range n {
		for ch := range m.channels {
			dst[f*m.channels+ch] = m.wave(m.pos+f, ch)
		}
	}
	m.pos += n

	if m.pos >= m.frames {
		return n * m.channels, io.EOF
	}

	return n * m.channels, nil
}
