// SPDX-License-Identifier: EPL-2.0

package dsp

// Envelope is a downsampled waveform: Min[i] and Max[i] bound bucket i.
// Both slices always have the same length.
type Envelope struct {
	Min []float32
	Max []float32
}

// Len is the number of buckets.
func (e Envelope) Len() int { return len(e.Min) }

// Empty reports whether the envelope has no buckets.
func (e Envelope) Empty() bool { return len(e.Min) == 0 }

// ExtractEnvelope partitions buf into buckets windows of len(buf)/buckets
// frames, the last window absorbing the remainder, and records the min and
// max of each. The result always has exactly buckets pairs; when buf is
// shorter than buckets, bucket i holds sample i and the rest stay zero.
func ExtractEnvelope(buf []float32, buckets int) Envelope {
	if buckets <= 0 {
		return Envelope{}
	}

	env := Envelope{
		Min: make([]float32, buckets),
		Max: make([]float32, buckets),
	}
	reduce(len(buf), buckets, func(b, start, end int) {
		lo, hi := buf[start], buf[start]
		for _, v := range buf[start+1 : end] {
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
		env.Min[b], env.Max[b] = lo, hi
	})

	return env
}

// Downsample merges buckets into n wider ones, the same way raw frames
// are partitioned. It is how thumbnails are drawn at arbitrary widths
// without rescanning the audio. Asking for n >= Len returns a copy.
func (e Envelope) Downsample(n int) Envelope {
	if n <= 0 {
		return Envelope{}
	}
	if n >= e.Len() {
		return Envelope{
			Min: append([]float32(nil), e.Min...),
			Max: append([]float32(nil), e.Max...),
		}
	}

	out := Envelope{
		Min: make([]float32, n),
		Max: make([]float32, n),
	}
	reduce(e.Len(), n, func(b, start, end int) {
		lo, hi := e.Min[start], e.Max[start]
		for i := start + 1; i < end; i++ {
			lo = min(lo, e.Min[i])
			hi = max(hi, e.Max[i])
		}
		out.Min[b], out.Max[b] = lo, hi
	})

	return out
}

// reduce calls fn for each non-empty window [start, end) of frames split
// into buckets.
func reduce(frames, buckets int, fn func(b, start, end int)) {
	window := frames / buckets
	if window == 0 {
		for b := range min(frames, buckets) {
			fn(b, b, b+1)
		}
		return
	}

	for b := range buckets {
		start := b * window
		end := start + window
		if b == buckets-1 {
			end = frames
		}
		fn(b, start, end)
	}
}
