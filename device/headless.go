//go:build headless

// SPDX-License-Identifier: EPL-2.0

package device

import (
	"io"
	"time"

	"github.com/ik5/padsampler/audio"
	"github.com/sirupsen/logrus"
)

type Output struct{}

func NewOutput(int, time.Duration, logrus.FieldLogger) *Output { return &Output{} }

func (*Output) Start(io.Reader) error { return ErrHeadless }
func (*Output) Stop() error           { return nil }
func (*Output) Close() error          { return nil }
func (*Output) Err() error            { return ErrHeadless }

type Capture struct{}

func NewCapture(logrus.FieldLogger) (*Capture, error) { return nil, ErrHeadless }

func (*Capture) Format() (audio.Format, error) { return audio.Format{}, ErrHeadless }
func (*Capture) Authorized() bool              { return false }
func (*Capture) Start(func([]float32)) error   { return ErrHeadless }
func (*Capture) Stop() error                   { return nil }
func (*Capture) Close() error                  { return nil }
