// SPDX-License-Identifier: EPL-2.0

package audio

import "fmt"

// Converter resamples and remixes complete buffers.
type Converter struct {
	// AlwaysConvert disables the exact-match pass-through.
	AlwaysConvert bool
}

// Convert brings interleaved samples from one format into another. Only
// down-mixing to mono or keeping the channel count is supported. The
// returned slice aliases samples when the fast path is taken.
func (c Converter) Convert(samples []float32, from, to Format) ([]float32, error) {
	if err := checkConversion(from, to); err != nil {
		return nil, err
	}

	if !c.AlwaysConvert && from == to {
		return samples, nil
	}

	var src Source = NewSliceSource(samples, from)
	if to.Channels == 1 && from.Channels != 1 {
		src = NewMonoMixer(src)
	}
	if from.SampleRate != to.SampleRate {
		src = NewResampler(src, to.SampleRate)
	}

	out, err := ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConversion, err)
	}

	return out, nil
}

func checkConversion(from, to Format) error {
	if err := from.Validate(); err != nil {
		return fmt.Errorf("%w: source: %w", ErrConversion, err)
	}
	if err := to.Validate(); err != nil {
		return fmt.Errorf("%w: target: %w", ErrConversion, err)
	}
	if to.Channels != 1 && to.Channels != from.Channels {
		return fmt.Errorf("%w: cannot remix %d channels into %d", ErrConversion, from.Channels, to.Channels)
	}

	return nil
}
