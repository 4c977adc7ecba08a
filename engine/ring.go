// SPDX-License-Identifier: EPL-2.0

package engine

import "sync/atomic"

// ring is a single-producer single-consumer queue of sample chunks. All
// slots are allocated up front so push never allocates.
type ring struct {
	slots   [][]float32
	lens    []int
	head    atomic.Uint64 // next slot to read
	tail    atomic.Uint64 // next slot to write
	dropped atomic.Uint64 // samples
}

// newRing allocates slots of slotSize samples. slotSize must be a whole
// number of frames so a split chunk never separates a frame.
func newRing(slots, slotSize int) *ring {
	r := &ring{
		slots: make([][]float32, slots),
		lens:  make([]int, slots),
	}
	for i := range r.slots {
		r.slots[i] = make([]float32, slotSize)
	}
	return r
}

// push copies in across as many slots as needed. What does not fit is
// dropped and counted.
func (r *ring) push(in []float32) {
	n := uint64(len(r.slots))

	for len(in) > 0 {
		t := r.tail.Load()
		if t-r.head.Load() >= n {
			r.dropped.Add(uint64(len(in)))
			return
		}

		i := t % n
		c := copy(r.slots[i], in)
		r.lens[i] = c
		r.tail.Store(t + 1)
		in = in[c:]
	}
}

// pop hands the oldest chunk to fn and frees its slot. It reports false
// when the ring is empty.
func (r *ring) pop(fn func([]float32)) bool {
	h := r.head.Load()
	if h == r.tail.Load() {
		return false
	}

	i := h % uint64(len(r.slots))
	fn(r.slots[i][:r.lens[i]])
	r.head.Store(h + 1)

	return true
}
