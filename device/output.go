//go:build !headless

// SPDX-License-Identifier: EPL-2.0

package device

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/sirupsen/logrus"
)

// oto allows one context per process, and a failed creation cannot be
// retried. Once it fails every Start reports ErrContextUnavailable.
type otoShared struct {
	once   sync.Once
	ctx    atomic.Pointer[oto.Context]
	err    error
	create func(*oto.NewContextOptions) (*oto.Context, chan struct{}, error)
}

var sharedContext = &otoShared{create: oto.NewContext}

func (s *otoShared) get(sampleRate int, buffer time.Duration) (*oto.Context, error) {
	s.once.Do(func() {
		ctx, ready, err := s.create(&oto.NewContextOptions{
			SampleRate:   sampleRate,
			ChannelCount: 1,
			Format:       oto.FormatFloat32LE,
			BufferSize:   buffer,
		})
		if err != nil {
			s.err = fmt.Errorf("%w: %w", ErrContextUnavailable, err)
			return
		}
		<-ready
		s.ctx.Store(ctx)
	})

	return s.ctx.Load(), s.err
}

// Output plays mono float32 little-endian audio pulled from a reader.
type Output struct {
	sampleRate int
	buffer     time.Duration
	log        logrus.FieldLogger

	mtx    sync.Mutex
	player *oto.Player
}

func NewOutput(sampleRate int, buffer time.Duration, log logrus.FieldLogger) *Output {
	return &Output{sampleRate: sampleRate, buffer: buffer, log: log}
}

func (o *Output) Start(r io.Reader) error {
	ctx, err := sharedContext.get(o.sampleRate, o.buffer)
	if err != nil {
		return err
	}
	if err := ctx.Resume(); err != nil {
		return fmt.Errorf("resuming audio context: %w", err)
	}

	o.mtx.Lock()
	defer o.mtx.Unlock()

	if o.player != nil {
		o.player.Pause()
	}
	o.player = ctx.NewPlayer(r)
	o.player.Play()

	o.log.WithFields(logrus.Fields{
		"sample_rate": o.sampleRate,
		"buffer":      o.buffer,
	}).Debug("output player started")

	return nil
}

func (o *Output) Stop() error {
	o.mtx.Lock()
	defer o.mtx.Unlock()

	if o.player == nil {
		return nil
	}
	o.player.Pause()
	o.player = nil

	return nil
}

// Close stops playback and suspends the shared context.
func (o *Output) Close() error {
	if err := o.Stop(); err != nil {
		return err
	}
	ctx := sharedContext.ctx.Load()
	if ctx == nil {
		return nil
	}

	return ctx.Suspend()
}

// Err reports a failure of the context or the running player.
func (o *Output) Err() error {
	if ctx := sharedContext.ctx.Load(); ctx != nil {
		if err := ctx.Err(); err != nil {
			return err
		}
	}

	o.mtx.Lock()
	defer o.mtx.Unlock()

	if o.player == nil {
		return nil
	}

	return o.player.Err()
}
