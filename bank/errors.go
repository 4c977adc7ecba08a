// SPDX-License-Identifier: EPL-2.0

package bank

import "errors"

var (
	ErrNotFound = errors.New("pad has no recording")
	ErrEncode   = errors.New("encoding sample failed")
	ErrDecode   = errors.New("decoding sample failed")
	ErrStorage  = errors.New("sample storage failed")
	ErrNoRecord = errors.New("nil record")
)
