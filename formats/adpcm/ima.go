// SPDX-License-Identifier: EPL-2.0

package adpcm

var stepTable = [89]int32{
	7, 8, 9, 10, 11, 12, 13, 14, 16, 17,
	19, 21, 23, 25, 28, 31, 34, 37, 41, 45,
	50, 55, 60, 66, 73, 80, 88, 97, 107, 118,
	130, 143, 157, 173, 190, 209, 230, 253, 279, 307,
	337, 371, 408, 449, 494, 544, 598, 658, 724, 796,
	876, 963, 1060, 1166, 1282, 1411, 1552, 1707, 1878, 2066,
	2272, 2499, 2749, 3024, 3327, 3660, 4026, 4428, 4871, 5358,
	5894, 6484, 7132, 7845, 8630, 9493, 10442, 11487, 12635, 13899,
	15289, 16818, 18500, 20350, 22385, 24623, 27086, 29794, 32767,
}

var indexTable = [8]int32{-1, -1, -1, -1, 2, 4, 6, 8}

// state is the predictor shared by the encoder and decoder.
type state struct {
	predictor int32
	index     int32
}

// encode quantizes sample into a nibble and advances the predictor
// exactly as decode will.
func (s *state) encode(sample int16) byte {
	step := stepTable[s.index]
	diff := int32(sample) - s.predictor

	var nibble byte
	if diff < 0 {
		nibble = 8
		diff = -diff
	}

	vpdiff := step >> 3
	if diff >= step {
		nibble |= 4
		diff -= step
		vpdiff += step
	}
	step >>= 1
	if diff >= step {
		nibble |= 2
		diff -= step
		vpdiff += step
	}
	step >>= 1
	if diff >= step {
		nibble |= 1
		vpdiff += step
	}

	s.apply(nibble, vpdiff)

	return nibble
}

// decode expands a nibble into the next sample.
func (s *state) decode(nibble byte) int16 {
	step := stepTable[s.index]

	vpdiff := step >> 3
	if nibble&4 != 0 {
		vpdiff += step
	}
	if nibble&2 != 0 {
		vpdiff += step >> 1
	}
	if nibble&1 != 0 {
		vpdiff += step >> 2
	}

	s.apply(nibble, vpdiff)

	return int16(s.predictor)
}

func (s *state) apply(nibble byte, vpdiff int32) {
	if nibble&8 != 0 {
		s.predictor -= vpdiff
	} else {
		s.predictor += vpdiff
	}
	s.predictor = min(max(s.predictor, -32768), 32767)

	s.index += indexTable[nibble&7]
	s.index = min(max(s.index, 0), int32(len(stepTable)-1))
}
