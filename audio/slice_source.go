// SPDX-License-Identifier: EPL-2.0

package audio

import "io"

// SliceSource serves an in-memory interleaved buffer as a Source.
type SliceSource struct {
	data   []float32
	format Format
	off    int
}

func NewSliceSource(data []float32, f Format) *SliceSource {
	return &SliceSource{data: data, format: f}
}

func (s *SliceSource) SampleRate() int { return s.format.SampleRate }
func (s *SliceSource) Channels() int   { return s.format.Channels }
func (s *SliceSource) BufSize() int    { return 4096 }
func (s *SliceSource) Close() error    { return nil }

func (s *SliceSource) ReadSamples(dst []float32) (int, error) {
	if s.off >= len(s.data) {
		return 0, io.EOF
	}

	n := copy(dst, s.data[s.off:])
	s.off += n

	if s.off >= len(s.data) {
		return n, io.EOF
	}

	return n, nil
}

// ReadAll drains src into one interleaved buffer.
func ReadAll(src Source) ([]float32, error) {
	size := src.BufSize()
	if size <= 0 {
		size = 4096
	}
	if ch := src.Channels(); ch > 0 && size%ch != 0 {
		size -= size % ch
		if size == 0 {
			size = ch
		}
	}

	var out []float32
	buf := make([]float32, size)
	idle := 0

	for {
		n, err := src.ReadSamples(buf)
		if n > 0 {
			out = append(out, buf[:n]...)
			idle = 0
		}

		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, err
		}

		if n == 0 {
			idle++
			if idle > maxIdleReads {
				return out, io.ErrNoProgress
			}
		}
	}
}

const maxIdleReads = 100
