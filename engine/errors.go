// SPDX-License-Identifier: EPL-2.0

package engine

import "errors"

var (
	ErrConfiguration      = errors.New("audio device configuration failed")
	ErrInvalidInputFormat = errors.New("capture device reported an invalid format")
	ErrNotRunning         = errors.New("audio engine is not running")
	ErrCapacityExceeded   = errors.New("recording buffer is full")
	ErrSessionActive      = errors.New("a recording session is already active")
	ErrNoSession          = errors.New("no recording session is active")
	ErrUnauthorized       = errors.New("microphone access is not authorized")
	ErrInvalidPad         = errors.New("pad id out of range")
	ErrEmptyRecording     = errors.New("recording contains no audio")
	ErrInvalidTrim        = errors.New("trim range must satisfy 0 <= start < end <= 1")
	ErrCancelled          = errors.New("recording was cleared before it was stored")
	ErrUnsupportedFormat  = errors.New("unsupported import format")
	ErrInvalidBuckets     = errors.New("bucket count must be positive")
)
