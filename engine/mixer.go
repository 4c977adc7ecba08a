// SPDX-License-Identifier: EPL-2.0

package engine

import (
	"encoding/binary"
	"math"

	"github.com/ik5/padsampler/utils"
)

const mixBlockFrames = 4096

// mixer sums every voice into mono float32 little-endian frames. It is
// the io.Reader handed to the output device.
type mixer struct {
	pool    *pool
	scratch []float32
}

func newMixer(p *pool) *mixer {
	return &mixer{pool: p, scratch: make([]float32, mixBlockFrames)}
}

func (m *mixer) Read(p []byte) (int, error) {
	frames := len(p) / 4
	written := 0

	for frames > 0 {
		n := min(frames, len(m.scratch))
		block := m.scratch[:n]
		clear(block)

		for _, v := range m.pool.voices {
			v.render(block)
		}

		out := p[written:]
		for i, s := range block {
			binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(utils.Clamp(s)))
		}

		written += n * 4
		frames -= n
	}

	return written, nil
}
