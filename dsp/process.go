// SPDX-License-Identifier: EPL-2.0

package dsp

import "math"

// PeakEpsilon is the peak below which a buffer counts as silent and is
// left alone by Normalize.
const PeakEpsilon = 1e-6

// TrimLeadingSilence drops everything before the first sample whose
// magnitude exceeds threshold, keeping preRoll samples of lead-in. A
// buffer that never exceeds the threshold is returned unchanged.
// The result shares memory with buf.
func TrimLeadingSilence(buf []float32, threshold float32, preRoll int) []float32 {
	for i, v := range buf {
		if v > threshold || v < -threshold {
			return buf[max(0, i-preRoll):]
		}
	}

	return buf
}

// FadeLength is min(fadeCap, frames/10).
func FadeLength(frames, fadeCap int) int {
	return max(0, min(fadeCap, frames/10))
}

// ApplyFades applies a linear fade-in over the first FadeLength samples
// and a linear fade-out over the last FadeLength samples, in place.
func ApplyFades(buf []float32, fadeCap int) {
	n := len(buf)
	fade := FadeLength(n, fadeCap)
	if fade == 0 {
		return
	}

	step := 1 / float32(fade)
	for i := range fade {
		g := float32(i) * step
		buf[i] *= g
		buf[n-1-i] *= g
	}
}

// Peak returns the largest absolute sample value.
func Peak(buf []float32) float32 {
	var peak float32
	for _, v := range buf {
		if v < 0 {
			v = -v
		}
		if v > peak {
			peak = v
		}
	}

	return peak
}

// Normalize scales buf in place so its peak equals targetPeak and returns
// the gain applied. Near-silent buffers are not amplified and report a
// gain of 1.
func Normalize(buf []float32, targetPeak float32) float32 {
	peak := Peak(buf)
	if peak <= PeakEpsilon {
		return 1
	}

	gain := targetPeak / peak
	for i := range buf {
		buf[i] *= gain
	}

	return gain
}

// Options configures PostProcess.
type Options struct {
	SilenceThreshold float32
	PreRoll          int // samples
	FadeCap          int // samples
	TargetPeak       float32
	EnvelopeBuckets  int
}

// DefaultOptions are tuned for short one-shot pads at 44.1 kHz.
func DefaultOptions() Options {
	return Options{
		SilenceThreshold: 0.02,
		PreRoll:          441,
		FadeCap:          441,
		TargetPeak:       0.89,
		EnvelopeBuckets:  1024,
	}
}

// PostProcess runs trim, fades, normalization and envelope extraction.
// The returned buffer may share memory with buf.
func PostProcess(buf []float32, opts Options) ([]float32, Envelope) {
	out := TrimLeadingSilence(buf, opts.SilenceThreshold, opts.PreRoll)
	ApplyFades(out, opts.FadeCap)
	Normalize(out, opts.TargetPeak)

	return out, ExtractEnvelope(out, opts.EnvelopeBuckets)
}

// DBFS converts a linear amplitude to decibels relative to full scale.
func DBFS(amplitude float64) float64 {
	if amplitude <= 0 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(amplitude)
}
