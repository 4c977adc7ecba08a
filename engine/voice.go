// SPDX-License-Identifier: EPL-2.0

package engine

import (
	"math"
	"sync"
	"sync/atomic"

	"github.com/ik5/padsampler/bank"
	"github.com/ik5/padsampler/utils"
)

// Voice is one playback channel. The read head moves rate frames per
// output frame and reads between samples with cubic interpolation.
type Voice struct {
	mtx     sync.Mutex
	buf     []float32
	pos     float64
	rate    float64
	cents   float64
	pad     bank.PadID
	playing bool
}

// start replaces whatever the voice was doing and reports whether it cut
// off an active sound.
func (v *Voice) start(pad bank.PadID, buf []float32, cents float64) bool {
	v.mtx.Lock()
	defer v.mtx.Unlock()

	stolen := v.playing
	v.pad = pad
	v.buf = buf
	v.pos = 0
	v.cents = cents
	v.rate = RateForCents(cents)
	v.playing = len(buf) > 0

	return stolen
}

func (v *Voice) stop() {
	v.mtx.Lock()
	defer v.mtx.Unlock()

	v.playing = false
	v.buf = nil
}

func (v *Voice) stopPad(pad bank.PadID) bool {
	v.mtx.Lock()
	defer v.mtx.Unlock()

	if !v.playing || v.pad != pad {
		return false
	}
	v.playing = false
	v.buf = nil

	return true
}

func (v *Voice) Playing() bool {
	v.mtx.Lock()
	defer v.mtx.Unlock()
	return v.playing
}

// Cents is the pitch offset of the current or last sound.
func (v *Voice) Cents() float64 {
	v.mtx.Lock()
	defer v.mtx.Unlock()
	return v.cents
}

// render adds the voice into dst. A voice locked by Play is skipped for
// this block.
func (v *Voice) render(dst []float32) {
	if !v.mtx.TryLock() {
		return
	}
	defer v.mtx.Unlock()

	if !v.playing {
		return
	}

	end := float64(len(v.buf))
	for i := range dst {
		if v.pos >= end {
			break
		}
		dst[i] += utils.SampleAt(v.buf, v.pos)
		v.pos += v.rate
	}

	if v.pos >= end {
		v.playing = false
		v.buf = nil
	}
}

type pool struct {
	voices []*Voice
	next   atomic.Uint64
	steals atomic.Uint64
}

func newPool(n int) *pool {
	p := &pool{voices: make([]*Voice, n)}
	for i := range p.voices {
		p.voices[i] = &Voice{rate: 1}
	}
	return p
}

// pick is the only place the round-robin index moves.
func (p *pool) pick() *Voice {
	i := p.next.Add(1) - 1
	return p.voices[i%uint64(len(p.voices))]
}

func (p *pool) play(pad bank.PadID, buf []float32, cents float64) bool {
	stolen := p.pick().start(pad, buf, cents)
	if stolen {
		p.steals.Add(1)
	}
	return stolen
}

func (p *pool) stopAll() {
	for _, v := range p.voices {
		v.stop()
	}
}

func (p *pool) stopPad(pad bank.PadID) int {
	n := 0
	for _, v := range p.voices {
		if v.stopPad(pad) {
			n++
		}
	}
	return n
}

func (p *pool) active() int {
	n := 0
	for _, v := range p.voices {
		if v.Playing() {
			n++
		}
	}
	return n
}

// ChromaticCents is the pitch offset of key relative to root, in cents.
func ChromaticCents(root, key int) float64 {
	return float64(key-root) * 100
}

// RateForCents converts a pitch offset into a playback rate.
func RateForCents(cents float64) float64 {
	return math.Pow(2, cents/1200)
}
