// SPDX-License-Identifier: EPL-2.0

package adpcm

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/ik5/padsampler/audio"
	"github.com/ik5/padsampler/utils"
)

const (
	// FormatTag is the WAVE format code for IMA ADPCM.
	FormatTag = 0x0011
	// BlockAlign is the size of one mono block in bytes.
	BlockAlign = 1024
	// SamplesPerBlock is the header sample plus two samples per data byte.
	SamplesPerBlock = (BlockAlign-blockHeaderSize)*2 + 1

	blockHeaderSize = 4
	bitsPerSample   = 4
	fmtChunkSize    = 20
	headerSize      = 12 + 8 + fmtChunkSize + 8 + 4 + 8
)

// Codec encodes and decodes pad files at a fixed sample rate.
type Codec struct {
	// SampleRate defaults to the canonical rate when zero.
	SampleRate int
}

func (c Codec) rate() int {
	if c.SampleRate > 0 {
		return c.SampleRate
	}
	return audio.Canonical.SampleRate
}

// Encode returns the complete file for samples.
func (c Codec) Encode(samples []float32) ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, EncodedSize(len(samples))))
	if err := Encode(buf, c.rate(), samples); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Decode parses a file produced by Encode. Files at another rate are
// rejected so callers never receive non-canonical audio.
func (c Codec) Decode(data []byte) ([]float32, error) {
	samples, rate, err := DecodeBytes(data)
	if err != nil {
		return nil, err
	}
	if rate != c.rate() {
		return nil, fmt.Errorf("%w: %d Hz, want %d Hz", ErrUnexpectedRate, rate, c.rate())
	}

	return samples, nil
}

// EncodedSize is the file size for n mono samples.
func EncodedSize(n int) int {
	blocks := (n + SamplesPerBlock - 1) / SamplesPerBlock
	return headerSize + blocks*BlockAlign
}

// Encode writes a mono IMA ADPCM WAVE file.
func Encode(w io.Writer, sampleRate int, samples []float32) error {
	if sampleRate <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidRate, sampleRate)
	}
	if len(samples) == 0 {
		return ErrNoSamples
	}
	if len(samples) > math.MaxUint32/2 {
		return fmt.Errorf("%w: %d samples", ErrUnsupportedLayout, len(samples))
	}

	blocks := (len(samples) + SamplesPerBlock - 1) / SamplesPerBlock
	dataSize := uint32(blocks * BlockAlign)

	header := make([]byte, headerSize)
	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], uint32(headerSize-8)+dataSize)
	copy(header[8:12], "WAVE")

	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], fmtChunkSize)
	binary.LittleEndian.PutUint16(header[20:22], FormatTag)
	binary.LittleEndian.PutUint16(header[22:24], 1)
	binary.LittleEndian.PutUint32(header[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(header[28:32], uint32(sampleRate*BlockAlign/SamplesPerBlock))
	binary.LittleEndian.PutUint16(header[32:34], BlockAlign)
	binary.LittleEndian.PutUint16(header[34:36], bitsPerSample)
	binary.LittleEndian.PutUint16(header[36:38], 2)
	binary.LittleEndian.PutUint16(header[38:40], SamplesPerBlock)

	copy(header[40:44], "fact")
	binary.LittleEndian.PutUint32(header[44:48], 4)
	binary.LittleEndian.PutUint32(header[48:52], uint32(len(samples)))

	copy(header[52:56], "data")
	binary.LittleEndian.PutUint32(header[56:60], dataSize)

	if _, err := w.Write(header); err != nil {
		return fmt.Errorf("%w", err)
	}

	var st state
	block := make([]byte, BlockAlign)
	last := samples[len(samples)-1]
	at := func(i int) int16 {
		if i < len(samples) {
			return utils.Float32ToInt16(samples[i])
		}
		// pad the final block with the last value so it stays quiet
		return utils.Float32ToInt16(last)
	}

	for b := range blocks {
		base := b * SamplesPerBlock

		first := at(base)
		st.predictor = int32(first)
		binary.LittleEndian.PutUint16(block[0:2], uint16(first))
		block[2] = byte(st.index)
		block[3] = 0

		for i := range BlockAlign - blockHeaderSize {
			k := base + 1 + 2*i
			lo := st.encode(at(k))
			hi := st.encode(at(k + 1))
			block[blockHeaderSize+i] = lo | hi<<4
		}

		if _, err := w.Write(block); err != nil {
			return fmt.Errorf("%w", err)
		}
	}

	return nil
}
