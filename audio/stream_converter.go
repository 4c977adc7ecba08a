// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"fmt"

	"github.com/ik5/padsampler/utils"
)

// StreamConverter converts a chunked capture stream into a mono target
// format. Interpolation history is carried between chunks. It is not safe
// for concurrent use.
type StreamConverter struct {
	from        Format
	to          Format
	passthrough bool
	ratio       float64 // input frames per output frame

	consumed int64   // mono input frames seen before the current chunk
	next     float64 // absolute input position of the next output frame
	first    float32
	hist     [3]float32 // input frames consumed-3 .. consumed-1

	useFilter   bool
	filterState float32

	mono []float32
	out  []float32
}

// NewStreamConverter prepares a converter from the capture format into to.
// to must be mono.
func NewStreamConverter(from, to Format, alwaysConvert bool) (*StreamConverter, error) {
	if err := checkConversion(from, to); err != nil {
		return nil, err
	}
	if to.Channels != 1 {
		return nil, fmt.Errorf("%w: stream target must be mono", ErrConversion)
	}

	return &StreamConverter{
		from:        from,
		to:          to,
		passthrough: !alwaysConvert && from == to,
		ratio:       float64(from.SampleRate) / float64(to.SampleRate),
		useFilter:   from.SampleRate > to.SampleRate,
	}, nil
}

// Passthrough reports whether chunks are returned unconverted.
func (c *StreamConverter) Passthrough() bool { return c.passthrough }

// Process converts one interleaved chunk. The returned slice is only valid
// until the next call.
func (c *StreamConverter) Process(in []float32) ([]float32, error) {
	if c.passthrough {
		return in, nil
	}
	if len(in)%c.from.Channels != 0 {
		return nil, fmt.Errorf("%w: %w", ErrConversion, ErrInvalidDstSize)
	}

	frames := len(in) / c.from.Channels
	if frames == 0 {
		return c.out[:0], nil
	}
	if cap(c.mono) < frames {
		c.mono = make([]float32, frames)
	}
	c.mono = c.mono[:frames]
	DownmixInto(c.mono, in, c.from.Channels)

	if c.useFilter {
		if c.consumed == 0 {
			c.filterState = c.mono[0]
		}
		for j, x := range c.mono {
			c.filterState = lowPassAlpha*x + (1-lowPassAlpha)*c.filterState
			c.mono[j] = c.filterState
		}
	}

	if c.consumed == 0 {
		c.first = c.mono[0]
		c.hist = [3]float32{c.first, c.first, c.first}
	}

	total := c.consumed + int64(frames)
	c.out = c.out[:0]

	for {
		i := int64(c.next)
		if i+2 >= total {
			break
		}
		frac := float32(c.next - float64(i))
		c.out = append(c.out, utils.CubicInterpolate(c.at(i-1), c.at(i), c.at(i+1), c.at(i+2), frac))
		c.next += c.ratio
	}

	var hist [3]float32
	for j := range hist {
		hist[j] = c.at(total - 3 + int64(j))
	}
	c.hist = hist
	c.consumed = total

	return c.out, nil
}

// Flush emits the frames still held back for lookahead. The converter
// keeps its position, so Flush is meant to be the last call.
func (c *StreamConverter) Flush() []float32 {
	if c.passthrough || c.consumed == 0 {
		return nil
	}

	c.out = c.out[:0]
	for {
		i := int64(c.next)
		if i >= c.consumed {
			break
		}
		frac := float32(c.next - float64(i))
		c.out = append(c.out, utils.CubicInterpolate(c.tail(i-1), c.tail(i), c.tail(i+1), c.tail(i+2), frac))
		c.next += c.ratio
	}

	return c.out
}

// at returns mono input frame k while a chunk is being processed.
func (c *StreamConverter) at(k int64) float32 {
	if k < 0 {
		return c.first
	}
	if k >= c.consumed {
		return c.mono[k-c.consumed]
	}

	return c.hist[k-(c.consumed-3)]
}

// tail returns frame k after the last chunk, repeating the final frame.
func (c *StreamConverter) tail(k int64) float32 {
	if k < 0 {
		return c.first
	}
	if k >= c.consumed {
		k = c.consumed - 1
	}

	return c.hist[k-(c.consumed-3)]
}
