// SPDX-License-Identifier: EPL-2.0

package padsampler

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ik5/padsampler/audio"
	"github.com/ik5/padsampler/formats/adpcm"
	"github.com/ik5/padsampler/formats/aiff"
	"github.com/ik5/padsampler/formats/mp3"
	"github.com/ik5/padsampler/formats/vorbis"
	"github.com/ik5/padsampler/formats/wav"
)

var ErrUnknownFormat = errors.New("unknown audio format")

// DefaultRegistry registers every supported decoder under its common file
// extensions.
func DefaultRegistry() *audio.Registry {
	reg := audio.NewRegistry()

	for _, ext := range []string{"wav", "wave"} {
		reg.Register(ext, waveDecoder{})
	}
	reg.Register("mp3", mp3.Decoder{})
	for _, ext := range []string{"ogg", "oga"} {
		reg.Register(ext, vorbis.Decoder{})
	}
	for _, ext := range []string{"aiff", "aif"} {
		reg.Register(ext, aiff.Decoder{})
	}
	reg.Register("adpcm", adpcm.Decoder{})

	return reg
}

// FormatOf returns the registry key for path: its lower-cased extension.
func FormatOf(path string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
}

// waveDecoder handles both PCM WAVE files and the IMA ADPCM WAVE files
// pads are stored in.
type waveDecoder struct{}

func (waveDecoder) Decode(r io.Reader) (audio.Source, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading wave data: %w", err)
	}

	src, err := wav.Decoder{}.Decode(bytes.NewReader(data))
	if errors.Is(err, wav.ErrOnlyPCMSupported) {
		return adpcm.Decoder{}.Decode(bytes.NewReader(data))
	}

	return src, err
}

// DecodeCanonical drains src and converts it into audio.Canonical.
func DecodeCanonical(src audio.Source, alwaysConvert bool) ([]float32, error) {
	raw, err := audio.ReadAll(src)
	if err != nil {
		return nil, err
	}

	from := audio.Format{SampleRate: src.SampleRate(), Channels: src.Channels()}

	return audio.Converter{AlwaysConvert: alwaysConvert}.Convert(raw, from, audio.Canonical)
}

// DecodeFile decodes the file at path, picking the decoder by extension,
// and returns canonical samples along with the file's own format.
func DecodeFile(reg *audio.Registry, path string, alwaysConvert bool) ([]float32, audio.Format, error) {
	dec, ok := reg.Get(FormatOf(path))
	if !ok {
		return nil, audio.Format{}, fmt.Errorf("%w: %q", ErrUnknownFormat, filepath.Ext(path))
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, audio.Format{}, err
	}
	defer f.Close()

	src, err := dec.Decode(f)
	if err != nil {
		return nil, audio.Format{}, fmt.Errorf("decoding %s: %w", filepath.Base(path), err)
	}
	defer src.Close()

	from := audio.Format{SampleRate: src.SampleRate(), Channels: src.Channels()}
	samples, err := DecodeCanonical(src, alwaysConvert)
	if err != nil {
		return nil, from, fmt.Errorf("converting %s: %w", filepath.Base(path), err)
	}

	return samples, from, nil
}
