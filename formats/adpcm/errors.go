// SPDX-License-Identifier: EPL-2.0

package adpcm

import "errors"

var (
	ErrNotADPCMFile      = errors.New("not an IMA ADPCM WAVE file")
	ErrUnsupportedLayout = errors.New("unsupported IMA ADPCM layout")
	ErrTruncated         = errors.New("truncated IMA ADPCM data")
	ErrNoSamples         = errors.New("no samples to encode")
	ErrInvalidRate       = errors.New("invalid sample rate")
	ErrUnexpectedRate    = errors.New("unexpected sample rate")
)
