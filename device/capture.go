//go:build !headless

// SPDX-License-Identifier: EPL-2.0

package device

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/gen2brain/malgo"
	"github.com/ik5/padsampler/audio"
	"github.com/sirupsen/logrus"
)

// Capture records float32 audio from the default input device in its
// native rate and channel count.
type Capture struct {
	log logrus.FieldLogger
	ctx *malgo.AllocatedContext

	mtx     sync.Mutex
	device  *malgo.Device
	buf     []float32
	deliver func([]float32)
}

func NewCapture(log logrus.FieldLogger) (*Capture, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(msg string) {
		log.WithField("component", "miniaudio").Debug(msg)
	})
	if err != nil {
		return nil, fmt.Errorf("initializing capture context: %w", err)
	}

	return &Capture{log: log, ctx: ctx}, nil
}

func (c *Capture) config() malgo.DeviceConfig {
	cfg := malgo.DefaultDeviceConfig(malgo.Capture)
	cfg.Capture.Format = malgo.FormatF32
	cfg.Capture.Channels = 0 // native
	cfg.SampleRate = 0       // native
	cfg.PeriodSizeInMilliseconds = 20

	return cfg
}

// Format opens the device briefly to learn its native format.
func (c *Capture) Format() (audio.Format, error) {
	dev, err := malgo.InitDevice(c.ctx.Context, c.config(), malgo.DeviceCallbacks{})
	if err != nil {
		return audio.Format{}, fmt.Errorf("querying capture device: %w", err)
	}
	defer dev.Uninit()

	return audio.Format{
		SampleRate: int(dev.SampleRate()),
		Channels:   int(dev.CaptureChannels()),
	}, nil
}

// Authorized reports false only when the system denied microphone access.
func (c *Capture) Authorized() bool {
	_, err := c.Format()
	return !errors.Is(err, malgo.ErrAccessDenied)
}

func (c *Capture) Start(deliver func([]float32)) error {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	if c.device != nil {
		return errors.New("capture already running")
	}

	c.deliver = deliver
	c.buf = make([]float32, 8192)

	dev, err := malgo.InitDevice(c.ctx.Context, c.config(), malgo.DeviceCallbacks{
		Data: c.onData,
		Stop: func() { c.log.Debug("capture device stopped") },
	})
	if err != nil {
		return fmt.Errorf("initializing capture device: %w", err)
	}
	if err := dev.Start(); err != nil {
		dev.Uninit()
		return fmt.Errorf("starting capture device: %w", err)
	}
	c.device = dev

	c.log.WithFields(logrus.Fields{
		"sample_rate": dev.SampleRate(),
		"channels":    dev.CaptureChannels(),
	}).Debug("capture device started")

	return nil
}

// onData runs on the miniaudio thread. The buffer only grows when a
// period is larger than any seen before.
func (c *Capture) onData(_, in []byte, _ uint32) {
	n := len(in) / 4
	if n > len(c.buf) {
		c.buf = make([]float32, n)
	}

	samples := c.buf[:n]
	for i := range samples {
		samples[i] = math.Float32frombits(binary.LittleEndian.Uint32(in[i*4:]))
	}

	c.deliver(samples)
}

func (c *Capture) Stop() error {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	if c.device == nil {
		return ErrNotStarted
	}

	err := c.device.Stop()
	c.device.Uninit()
	c.device = nil

	return err
}

func (c *Capture) Close() error {
	c.mtx.Lock()
	if c.device != nil {
		_ = c.device.Stop()
		c.device.Uninit()
		c.device = nil
	}
	c.mtx.Unlock()

	err := c.ctx.Uninit()
	c.ctx.Free()

	return err
}
