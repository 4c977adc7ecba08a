// SPDX-License-Identifier: EPL-2.0

package audiotest

import (
	"encoding/binary"
	"errors"
	"io"
	"math"
	"sync"

	"github.com/ik5/padsampler/audio"
)

var ErrDeviceFailure = errors.New("fake device failure")

// FakeCapture is a capture device driven by the test: Deliver plays the
// role of the realtime callback.
type FakeCapture struct {
	mtx        sync.Mutex
	format     audio.Format
	formatErr  error
	startErr   error
	authorized bool
	deliver    func([]float32)
	last       func([]float32)
	starts     int
	stops      int
}

func NewFakeCapture(f audio.Format) *FakeCapture {
	return &FakeCapture{format: f, authorized: true}
}

func (c *FakeCapture) SetAuthorized(ok bool) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	c.authorized = ok
}

func (c *FakeCapture) SetFormat(f audio.Format, err error) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	c.format, c.formatErr = f, err
}

// FailStart makes the next Start calls return err until cleared with nil.
func (c *FakeCapture) FailStart(err error) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	c.startErr = err
}

func (c *FakeCapture) Authorized() bool {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.authorized
}

func (c *FakeCapture) Format() (audio.Format, error) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.format, c.formatErr
}

func (c *FakeCapture) Start(deliver func([]float32)) error {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	if c.startErr != nil {
		return c.startErr
	}
	c.deliver, c.last = deliver, deliver
	c.starts++

	return nil
}

func (c *FakeCapture) Stop() error {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	c.deliver = nil
	c.stops++

	return nil
}

// Deliver hands samples to the running callback. It reports false when
// the device is stopped.
func (c *FakeCapture) Deliver(samples []float32) bool {
	c.mtx.Lock()
	fn := c.deliver
	c.mtx.Unlock()

	if fn == nil {
		return false
	}
	fn(samples)

	return true
}

// LastCallback returns the most recently started callback even after
// Stop, to model a callback that was already in flight.
func (c *FakeCapture) LastCallback() func([]float32) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.last
}

func (c *FakeCapture) Running() bool {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.deliver != nil
}

func (c *FakeCapture) Counts() (starts, stops int) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.starts, c.stops
}

// FakeOutput is an output device that never pulls on its own; tests call
// Pull to run the mixer.
type FakeOutput struct {
	mtx      sync.Mutex
	failures int
	src      io.Reader
	starts   int
	stops    int
	closed   bool
	err      error
}

func NewFakeOutput() *FakeOutput {
	return &FakeOutput{}
}

// FailNext makes the next n Start calls fail.
func (o *FakeOutput) FailNext(n int) {
	o.mtx.Lock()
	defer o.mtx.Unlock()
	o.failures = n
}

// Break simulates the device dying while running.
func (o *FakeOutput) Break(err error) {
	o.mtx.Lock()
	defer o.mtx.Unlock()
	o.err = err
}

func (o *FakeOutput) Start(r io.Reader) error {
	o.mtx.Lock()
	defer o.mtx.Unlock()

	if o.failures > 0 {
		o.failures--
		return ErrDeviceFailure
	}
	o.src = r
	o.err = nil
	o.starts++

	return nil
}

func (o *FakeOutput) Stop() error {
	o.mtx.Lock()
	defer o.mtx.Unlock()

	o.src = nil
	o.stops++

	return nil
}

func (o *FakeOutput) Close() error {
	o.mtx.Lock()
	defer o.mtx.Unlock()

	o.closed = true
	return nil
}

func (o *FakeOutput) Err() error {
	o.mtx.Lock()
	defer o.mtx.Unlock()
	return o.err
}

func (o *FakeOutput) Started() bool {
	o.mtx.Lock()
	defer o.mtx.Unlock()
	return o.src != nil
}

func (o *FakeOutput) Closed() bool {
	o.mtx.Lock()
	defer o.mtx.Unlock()
	return o.closed
}

func (o *FakeOutput) Starts() int {
	o.mtx.Lock()
	defer o.mtx.Unlock()
	return o.starts
}

// Pull reads frames of mono float32 little-endian audio from the source
// the device was started with.
func (o *FakeOutput) Pull(frames int) []float32 {
	o.mtx.Lock()
	src := o.src
	o.mtx.Unlock()

	if src == nil {
		return nil
	}

	raw := make([]byte, frames*4)
	n, _ := io.ReadFull(src, raw)

	out := make([]float32, n/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}

	return out
}
