// SPDX-License-Identifier: EPL-2.0

package device

import "errors"

var (
	ErrHeadless   = errors.New("built without audio device support")
	ErrNotStarted = errors.New("device not started")

	// ErrContextUnavailable is permanent for the process.
	ErrContextUnavailable = errors.New("audio output context unavailable until the process restarts")
)
