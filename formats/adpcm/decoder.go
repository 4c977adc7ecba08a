// SPDX-License-Identifier: EPL-2.0

package adpcm

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/go-audio/riff"
	"github.com/ik5/padsampler/audio"
	"github.com/ik5/padsampler/utils"
)

type fmtChunk struct {
	formatTag       uint16
	channels        uint16
	sampleRate      uint32
	blockAlign      uint16
	bitsPerSample   uint16
	samplesPerBlock uint16
}

// DecodeBytes parses a complete file and returns its samples and rate.
func DecodeBytes(data []byte) ([]float32, int, error) {
	parser := riff.New(bytes.NewReader(data))
	if err := parser.ParseHeaders(); err != nil || parser.Format != riff.WavFormatID {
		return nil, 0, ErrNotADPCMFile
	}

	var (
		format  *fmtChunk
		frames  = -1
		payload []byte
		sawData bool
	)

	for {
		chunk, err := parser.NextChunk()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("%w: %w", ErrTruncated, err)
		}
		if chunk.Size > len(data) {
			return nil, 0, fmt.Errorf("%w: %q chunk", ErrTruncated, chunk.ID[:])
		}

		body := make([]byte, chunk.Size)
		if _, err := io.ReadFull(chunk, body); err != nil {
			return nil, 0, fmt.Errorf("%w: %q chunk", ErrTruncated, chunk.ID[:])
		}

		switch chunk.ID {
		case riff.FmtID:
			f, err := parseFmt(body)
			if err != nil {
				return nil, 0, err
			}
			format = f
		case factID:
			if len(body) < 4 {
				return nil, 0, fmt.Errorf("%w: fact chunk", ErrUnsupportedLayout)
			}
			frames = int(binary.LittleEndian.Uint32(body[0:4]))
		case riff.DataFormatID:
			payload = body
			sawData = true
		}
	}

	if format == nil || !sawData {
		return nil, 0, ErrNotADPCMFile
	}

	samples, err := decodeBlocks(payload, format)
	if err != nil {
		return nil, 0, err
	}

	if frames >= 0 {
		if frames > len(samples) {
			return nil, 0, fmt.Errorf("%w: %d frames declared, %d present", ErrTruncated, frames, len(samples))
		}
		samples = samples[:frames]
	}

	return samples, int(format.sampleRate), nil
}

var factID = [4]byte{'f', 'a', 'c', 't'}

func parseFmt(body []byte) (*fmtChunk, error) {
	if len(body) < 16 {
		return nil, fmt.Errorf("%w: fmt chunk too short", ErrUnsupportedLayout)
	}

	f := &fmtChunk{
		formatTag:     binary.LittleEndian.Uint16(body[0:2]),
		channels:      binary.LittleEndian.Uint16(body[2:4]),
		sampleRate:    binary.LittleEndian.Uint32(body[4:8]),
		blockAlign:    binary.LittleEndian.Uint16(body[12:14]),
		bitsPerSample: binary.LittleEndian.Uint16(body[14:16]),
	}
	if f.formatTag != FormatTag {
		return nil, ErrNotADPCMFile
	}
	if f.channels != 1 || f.bitsPerSample != bitsPerSample || f.blockAlign <= blockHeaderSize {
		return nil, fmt.Errorf("%w: %d channels, %d bits, block %d", ErrUnsupportedLayout, f.channels, f.bitsPerSample, f.blockAlign)
	}
	if f.sampleRate == 0 {
		return nil, fmt.Errorf("%w: 0", ErrInvalidRate)
	}

	f.samplesPerBlock = uint16((int(f.blockAlign)-blockHeaderSize)*2 + 1)
	if len(body) >= 20 {
		if spb := binary.LittleEndian.Uint16(body[18:20]); spb != 0 && spb != f.samplesPerBlock {
			return nil, fmt.Errorf("%w: %d samples per block", ErrUnsupportedLayout, spb)
		}
	}

	return f, nil
}

func decodeBlocks(payload []byte, f *fmtChunk) ([]float32, error) {
	align := int(f.blockAlign)
	if len(payload)%align != 0 {
		return nil, fmt.Errorf("%w: %d bytes is not a whole number of blocks", ErrTruncated, len(payload))
	}

	blocks := len(payload) / align
	out := make([]float32, 0, blocks*int(f.samplesPerBlock))

	var st state
	for b := range blocks {
		block := payload[b*align : (b+1)*align]

		first := int16(binary.LittleEndian.Uint16(block[0:2]))
		index := int32(block[2])
		if index >= int32(len(stepTable)) {
			return nil, fmt.Errorf("%w: step index %d in block %d", ErrUnsupportedLayout, index, b)
		}
		st = state{predictor: int32(first), index: index}
		out = append(out, utils.Int16ToFloat32(first))

		for _, v := range block[blockHeaderSize:] {
			out = append(out,
				utils.Int16ToFloat32(st.decode(v&0x0f)),
				utils.Int16ToFloat32(st.decode(v>>4)),
			)
		}
	}

	return out, nil
}

// Decoder opens stored pad files as an audio.Source.
type Decoder struct{}

func (Decoder) Decode(r io.Reader) (audio.Source, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading adpcm data: %w", err)
	}

	samples, rate, err := DecodeBytes(data)
	if err != nil {
		return nil, err
	}

	return audio.NewSliceSource(samples, audio.Format{SampleRate: rate, Channels: 1}), nil
}
