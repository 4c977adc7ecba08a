// SPDX-License-Identifier: EPL-2.0

package engine

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ik5/padsampler/audio"
	"github.com/ik5/padsampler/bank"
	"github.com/sirupsen/logrus"
)

type State int32

const (
	StateUninitialized State = iota
	StateStarting
	StateRunning
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Status is what the surrounding UI needs to know: the engine is always
// ready to be used, but may be unable to make sound.
type Status int

const (
	StatusReady Status = iota
	StatusReadyDegraded
)

func (s Status) String() string {
	if s == StatusReady {
		return "ready"
	}
	return "ready (degraded)"
}

// TrimRange selects part of a sample as fractions of its length.
type TrimRange struct {
	Start float64
	End   float64
}

// FullRange plays the whole sample.
var FullRange = TrimRange{Start: 0, End: 1}

func (t TrimRange) Validate() error {
	if math.IsNaN(t.Start) || math.IsNaN(t.End) || t.Start < 0 || t.End > 1 || t.Start >= t.End {
		return fmt.Errorf("%w: got %.3f..%.3f", ErrInvalidTrim, t.Start, t.End)
	}
	return nil
}

// frames maps the range onto a sample of n frames.
func (t TrimRange) frames(n int) (start, end int) {
	start = int(math.Round(t.Start * float64(n)))
	end = int(math.Round(t.End * float64(n)))
	return min(max(start, 0), n), min(max(end, 0), n)
}

// deviceHealth is implemented by outputs that can report failure after a
// successful start.
type deviceHealth interface {
	Err() error
}

type Engine struct {
	cfg      Config
	log      logrus.FieldLogger
	out      Output
	capture  Capture
	bank     *bank.Bank
	catalog  Catalog
	registry *audio.Registry

	state    atomic.Int32
	startMtx sync.Mutex
	closed   atomic.Bool

	pool  *pool
	mixer *mixer
	rec   *recorder
	jobs  *workers

	// storeMtx orders finalized stores against clears.
	storeMtx  sync.Mutex
	clearGen  uint64
	padClears map[bank.PadID]uint64

	trimMtx sync.RWMutex
	trims   map[bank.PadID]TrimRange

	plays atomic.Uint64
}

// New builds the voice pool and mixer and starts the output device. It
// never fails: a device that cannot start leaves the engine in
// StateFailed with StatusReadyDegraded.
func New(cfg Config, out Output, capture Capture, b *bank.Bank, opts ...Option) *Engine {
	e := &Engine{
		cfg:       cfg.withDefaults(),
		log:       logrus.StandardLogger(),
		out:       out,
		capture:   capture,
		bank:      b,
		padClears: make(map[bank.PadID]uint64),
		trims:     make(map[bank.PadID]TrimRange),
	}
	for _, opt := range opts {
		opt(e)
	}

	e.pool = newPool(e.cfg.Voices)
	e.mixer = newMixer(e.pool)
	e.rec = newRecorder(e)
	e.jobs = newWorkers(e.cfg.Workers)

	e.loadTrims()
	e.initialize()

	return e
}

func (e *Engine) initialize() {
	e.startMtx.Lock()
	defer e.startMtx.Unlock()

	if err := e.start(); err != nil {
		e.log.WithError(err).Error("audio engine failed to start, continuing degraded")
		return
	}

	e.log.WithFields(logrus.Fields{
		"voices": e.cfg.Voices,
		"pads":   e.cfg.Pads,
	}).Info("audio engine running")
}

// start must be called with startMtx held.
func (e *Engine) start() error {
	e.state.Store(int32(StateStarting))

	if e.out == nil {
		e.state.Store(int32(StateFailed))
		return fmt.Errorf("%w: no output device", ErrConfiguration)
	}
	if err := e.out.Start(e.mixer); err != nil {
		e.state.Store(int32(StateFailed))
		return fmt.Errorf("%w: %w", ErrConfiguration, err)
	}

	e.state.Store(int32(StateRunning))
	return nil
}

// ensureRunning makes at most one restart attempt per call.
func (e *Engine) ensureRunning() error {
	if e.closed.Load() {
		return fmt.Errorf("%w: engine closed", ErrNotRunning)
	}
	if e.healthy() {
		return nil
	}

	e.startMtx.Lock()
	defer e.startMtx.Unlock()

	if e.healthy() {
		return nil
	}

	e.log.WithField("state", e.State()).Warn("audio engine not running, attempting restart")
	if err := e.start(); err != nil {
		e.log.WithError(err).Error("audio engine restart failed")
		return fmt.Errorf("%w: %w", ErrNotRunning, err)
	}
	e.log.Info("audio engine restarted")

	return nil
}

// healthy reports whether the engine is running, demoting it to failed
// when the output device reports an error.
func (e *Engine) healthy() bool {
	if e.State() != StateRunning {
		return false
	}

	h, ok := e.out.(deviceHealth)
	if !ok {
		return true
	}
	err := h.Err()
	if err == nil {
		return true
	}

	if e.state.CompareAndSwap(int32(StateRunning), int32(StateFailed)) {
		e.log.WithError(err).Error("output device failed")
		e.pool.stopAll()
		if serr := e.out.Stop(); serr != nil {
			e.log.WithError(serr).Warn("stopping failed output device")
		}
	}

	return false
}

func (e *Engine) State() State {
	return State(e.state.Load())
}

func (e *Engine) Status() Status {
	if e.State() == StateRunning {
		return StatusReady
	}
	return StatusReadyDegraded
}

// Steals counts plays that cut off a sounding voice.
func (e *Engine) Steals() uint64 {
	return e.pool.steals.Load()
}

// Voices exposes the fixed voice pool.
func (e *Engine) Voices() []*Voice {
	return e.pool.voices
}

func (e *Engine) ActiveVoices() int {
	return e.pool.active()
}

func (e *Engine) checkPad(pad bank.PadID) error {
	if pad < 0 || int(pad) >= e.cfg.Pads {
		return fmt.Errorf("%w: %d not in [0, %d)", ErrInvalidPad, pad, e.cfg.Pads)
	}
	return nil
}

// Play starts pad on the next voice, cutting off whatever that voice was
// playing. A nil trim uses the pad's stored trim markers, if any. The
// returned duration accounts for the trim and the pitch rate.
func (e *Engine) Play(pad bank.PadID, cents float64, trim *TrimRange) (time.Duration, error) {
	if err := e.checkPad(pad); err != nil {
		return 0, err
	}
	if err := e.ensureRunning(); err != nil {
		return 0, err
	}

	rec, err := e.bank.Get(pad)
	if err != nil {
		return 0, err
	}

	r := FullRange
	if trim != nil {
		r = *trim
	} else if stored, ok := e.Trim(pad); ok {
		r = stored
	}
	if err := r.Validate(); err != nil {
		return 0, err
	}

	start, end := r.frames(rec.Frames())
	if end <= start {
		return 0, fmt.Errorf("%w: trim selects no frames of %s", ErrEmptyRecording, pad)
	}

	if e.pool.play(pad, rec.Samples[start:end], cents) {
		e.log.WithField("pad", int(pad)).Debug("voice stolen")
	}
	e.plays.Add(1)

	rate := RateForCents(cents)
	seconds := float64(end-start) / (float64(audio.Canonical.SampleRate) * rate)

	return time.Duration(seconds * float64(time.Second)), nil
}

// StopAll silences every voice. The graph keeps running.
func (e *Engine) StopAll() {
	e.pool.stopAll()
}

type Stats struct {
	Plays            uint64
	Steals           uint64
	Recordings       uint64
	DroppedSamples   uint64
	TruncatedSamples uint64
	ActiveVoices     int
	CachedPads       int
}

func (e *Engine) Stats() Stats {
	return Stats{
		Plays:            e.plays.Load(),
		Steals:           e.pool.steals.Load(),
		Recordings:       e.rec.recordings.Load(),
		DroppedSamples:   e.rec.dropped.Load(),
		TruncatedSamples: e.rec.truncated.Load(),
		ActiveVoices:     e.pool.active(),
		CachedPads:       e.bank.Len(),
	}
}

// Close cancels any recording, waits for pending finalizations and
// releases the output device.
func (e *Engine) Close() error {
	if !e.closed.CompareAndSwap(false, true) {
		return nil
	}

	e.cancelRecording()
	e.pool.stopAll()
	e.jobs.close()

	e.startMtx.Lock()
	defer e.startMtx.Unlock()

	var errs []error
	if e.out != nil {
		if e.State() == StateRunning {
			errs = append(errs, e.out.Stop())
		}
		errs = append(errs, e.out.Close())
	}
	e.state.Store(int32(StateUninitialized))

	return errors.Join(errs...)
}
