// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"fmt"
	"time"
)

// Format describes interleaved float32 PCM.
type Format struct {
	SampleRate int
	Channels   int
}

// Canonical is the one format every stored sample uses.
var Canonical = Format{SampleRate: 44100, Channels: 1}

// Valid reports whether the format has a nonzero rate and channel count.
func (f Format) Valid() bool {
	return f.SampleRate > 0 && f.Channels > 0
}

// Validate returns ErrInvalidFormat describing what is wrong with f.
func (f Format) Validate() error {
	if f.SampleRate <= 0 {
		return fmt.Errorf("%w: sample rate %d", ErrInvalidFormat, f.SampleRate)
	}
	if f.Channels <= 0 {
		return fmt.Errorf("%w: channel count %d", ErrInvalidFormat, f.Channels)
	}

	return nil
}

// Frames converts an interleaved sample count into frames.
func (f Format) Frames(samples int) int {
	if f.Channels <= 0 {
		return 0
	}
	return samples / f.Channels
}

// Duration of the given number of frames.
func (f Format) Duration(frames int) time.Duration {
	if f.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(frames) / float64(f.SampleRate) * float64(time.Second))
}

// FramesFor returns how many frames cover d.
func (f Format) FramesFor(d time.Duration) int {
	return int(d.Seconds() * float64(f.SampleRate))
}

func (f Format) String() string {
	return fmt.Sprintf("%dHz/%dch", f.SampleRate, f.Channels)
}
