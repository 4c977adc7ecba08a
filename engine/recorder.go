// SPDX-License-Identifier: EPL-2.0

package engine

import (
	"fmt"
	"runtime"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ik5/padsampler/audio"
	"github.com/ik5/padsampler/bank"
	"github.com/ik5/padsampler/dsp"
	"github.com/ik5/padsampler/internal/catalog"
	"github.com/sirupsen/logrus"
)

// Result reports how a finalized recording or import went.
type Result struct {
	Pad       bank.PadID
	Frames    int
	Duration  time.Duration
	Envelope  dsp.Envelope
	Truncated int // samples dropped at the capacity limit
	Dropped   int // samples lost to capture ring overflow
	Err       error
}

type recState int32

const (
	recIdle recState = iota
	recCapturing
	recFinalizing
)

// clearMark snapshots clear generations so a store can tell whether its
// pad was cleared after the audio was captured.
type clearMark struct {
	all uint64
	pad uint64
}

type session struct {
	id     uint64
	pad    bank.PadID
	format audio.Format
	mark   clearMark

	ring      *ring
	notify    chan struct{}
	stop      chan struct{}
	done      chan struct{}
	inflight  atomic.Int32
	cancelled atomic.Bool

	// owned by the consumer goroutine until done is closed
	conv        *audio.StreamConverter
	samples     []float32
	truncated   int
	truncLogged bool
	convErr     error
	lastPreview time.Time
}

// deliver runs on the capture thread.
func (s *session) deliver(in []float32) {
	s.inflight.Add(1)
	if !s.cancelled.Load() {
		s.ring.push(in)
		select {
		case s.notify <- struct{}{}:
		default:
		}
	}
	s.inflight.Add(-1)
}

// quiesce stops accepting deliveries and waits out any in flight.
func (s *session) quiesce() {
	s.cancelled.Store(true)
	for s.inflight.Load() != 0 {
		runtime.Gosched()
	}
}

type recorder struct {
	e *Engine

	mtx    sync.Mutex
	state  atomic.Int32
	active atomic.Pointer[session]
	seq    atomic.Uint64

	// shown is the session LiveWaveform follows. It outlives active so
	// the final preview of a stopped take is still published.
	liveMtx sync.Mutex
	live    atomic.Pointer[dsp.Envelope]
	shown   atomic.Pointer[session]

	recordings atomic.Uint64
	dropped    atomic.Uint64
	truncated  atomic.Uint64
}

func newRecorder(e *Engine) *recorder {
	r := &recorder{e: e}
	r.live.Store(&dsp.Envelope{})
	return r
}

// StartRecording opens a capture session for pad. It fails with
// ErrSessionActive while another session runs, leaving that session
// untouched.
func (e *Engine) StartRecording(pad bank.PadID) error {
	if err := e.checkPad(pad); err != nil {
		return err
	}

	r := e.rec
	r.mtx.Lock()
	defer r.mtx.Unlock()

	if recState(r.state.Load()) != recIdle {
		return ErrSessionActive
	}
	if err := e.ensureRunning(); err != nil {
		return err
	}
	if e.capture == nil {
		return fmt.Errorf("%w: no capture device", ErrConfiguration)
	}
	if !e.capture.Authorized() {
		return ErrUnauthorized
	}

	format, err := e.capture.Format()
	if err != nil {
		return fmt.Errorf("%w: reading capture format: %w", ErrConfiguration, err)
	}
	if err := format.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInputFormat, err)
	}

	conv, err := audio.NewStreamConverter(format, audio.Canonical, e.cfg.AlwaysConvert)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInputFormat, err)
	}

	s := &session{
		id:      r.seq.Add(1),
		pad:     pad,
		format:  format,
		mark:    e.clearMark(pad),
		ring:    newRing(e.cfg.RingSlots, e.cfg.ChunkFrames*format.Channels),
		notify:  make(chan struct{}, 1),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
		conv:    conv,
		samples: make([]float32, 0, audio.Canonical.FramesFor(e.cfg.MaxRecord)),
	}

	r.liveMtx.Lock()
	r.live.Store(&dsp.Envelope{})
	r.active.Store(s)
	r.shown.Store(s)
	r.liveMtx.Unlock()
	r.state.Store(int32(recCapturing))

	go r.consume(s)

	if err := e.capture.Start(s.deliver); err != nil {
		r.discard(s)
		return fmt.Errorf("%w: starting capture: %w", ErrConfiguration, err)
	}

	e.log.WithFields(logrus.Fields{
		"pad":         int(pad),
		"format":      format.String(),
		"passthrough": conv.Passthrough(),
	}).Info("recording started")

	return nil
}

// StopRecording ends the active session and finalizes it in the
// background. completion, if set, receives the outcome through
// Config.Dispatch. Without a session it returns ErrNoSession and never
// calls completion.
func (e *Engine) StopRecording(completion func(Result)) error {
	r := e.rec
	r.mtx.Lock()

	s := r.active.Load()
	if s == nil {
		r.mtx.Unlock()
		return ErrNoSession
	}

	s.quiesce()
	if err := e.capture.Stop(); err != nil {
		e.log.WithError(err).Warn("stopping capture device")
	}

	r.state.Store(int32(recFinalizing))
	close(s.stop)
	r.active.Store(nil)
	r.state.Store(int32(recIdle))
	r.mtx.Unlock()

	if !e.jobs.submit(func() { e.finalize(s, completion) }) {
		<-s.done
		if completion != nil {
			e.cfg.Dispatch(func() {
				completion(Result{Pad: s.pad, Err: fmt.Errorf("%w: engine closed", ErrNotRunning)})
			})
		}
	}

	return nil
}

// CancelRecording drops the active session without storing anything and
// reports whether there was one.
func (e *Engine) CancelRecording() bool {
	return e.cancelRecording()
}

func (e *Engine) cancelRecording() bool {
	r := e.rec
	r.mtx.Lock()
	defer r.mtx.Unlock()

	s := r.active.Load()
	if s == nil {
		return false
	}

	s.quiesce()
	if err := e.capture.Stop(); err != nil {
		e.log.WithError(err).Warn("stopping capture device")
	}
	r.discard(s)

	e.log.WithField("pad", int(s.pad)).Info("recording cancelled")

	return true
}

// discard tears down s without finalizing. Called with r.mtx held.
func (r *recorder) discard(s *session) {
	s.cancelled.Store(true)
	close(s.stop)
	<-s.done

	r.liveMtx.Lock()
	r.active.Store(nil)
	r.shown.Store(nil)
	r.live.Store(&dsp.Envelope{})
	r.liveMtx.Unlock()

	r.dropped.Add(s.ring.dropped.Load())
	r.state.Store(int32(recIdle))
}

// Recording reports whether a capture session is active.
func (e *Engine) Recording() bool {
	return e.rec.active.Load() != nil
}

// LiveWaveform is the latest preview of the active (or last) session.
func (e *Engine) LiveWaveform() dsp.Envelope {
	return *e.rec.live.Load()
}

func (r *recorder) consume(s *session) {
	defer close(s.done)

	for {
		select {
		case <-s.notify:
			r.drain(s)
		case <-s.stop:
			r.drain(s)
			return
		}
	}
}

func (r *recorder) drain(s *session) {
	appended := false

	for s.ring.pop(func(chunk []float32) {
		out, err := s.conv.Process(chunk)
		if err != nil {
			if s.convErr == nil {
				s.convErr = err
			}
			return
		}
		if r.appendSamples(s, out) {
			appended = true
		}
	}) {
	}

	if appended {
		r.preview(s, false)
	}
}

// appendSamples copies converted samples into the session buffer and
// drops whatever exceeds its capacity.
func (r *recorder) appendSamples(s *session, in []float32) bool {
	room := cap(s.samples) - len(s.samples)
	if len(in) > room {
		over := len(in) - room
		s.truncated += over
		r.truncated.Add(uint64(over))

		if !s.truncLogged {
			s.truncLogged = true
			r.e.log.WithFields(logrus.Fields{
				"pad":      int(s.pad),
				"capacity": cap(s.samples),
			}).WithError(ErrCapacityExceeded).Debug("dropping samples past the recording limit")
		}
		in = in[:room]
	}

	s.samples = append(s.samples, in...)
	return len(in) > 0
}

// preview publishes the envelope of everything appended so far. force
// skips the PreviewInterval throttle.
func (r *recorder) preview(s *session, force bool) {
	now := time.Now()
	if iv := r.e.cfg.PreviewInterval; !force && iv > 0 && !s.lastPreview.IsZero() && now.Sub(s.lastPreview) < iv {
		return
	}
	s.lastPreview = now

	env := dsp.ExtractEnvelope(s.samples, r.e.cfg.PreviewBuckets)

	r.liveMtx.Lock()
	current := r.shown.Load() == s
	if current {
		r.live.Store(&env)
	}
	r.liveMtx.Unlock()

	if current && r.e.cfg.OnPreview != nil {
		cb := r.e.cfg.OnPreview
		r.e.cfg.Dispatch(func() { cb(env) })
	}
}

// finalize runs on a worker once the consumer has drained the session.
func (e *Engine) finalize(s *session, completion func(Result)) {
	<-s.done

	r := e.rec
	r.appendSamples(s, s.conv.Flush())
	if len(s.samples) > 0 {
		r.preview(s, true)
	}
	dropped := s.ring.dropped.Load()
	r.dropped.Add(dropped)

	log := e.log.WithFields(logrus.Fields{
		"pad":    int(s.pad),
		"frames": len(s.samples),
	})
	if s.convErr != nil {
		log.WithError(s.convErr).Warn("some capture chunks could not be converted")
	}
	if dropped > 0 {
		log.WithField("dropped", dropped).Warn("capture ring overflowed")
	}

	res := e.commit(s.pad, s.samples, catalog.SourceRecording, s.mark)
	res.Truncated = s.truncated
	res.Dropped = int(dropped)

	if res.Err != nil {
		log.WithError(res.Err).Error("recording not stored")
	} else {
		r.recordings.Add(1)
		log.WithField("duration", res.Duration).Info("recording stored")
	}

	if completion != nil {
		e.cfg.Dispatch(func() { completion(res) })
	}
}

func (e *Engine) clearMark(pad bank.PadID) clearMark {
	e.storeMtx.Lock()
	defer e.storeMtx.Unlock()

	return clearMark{all: e.clearGen, pad: e.padClears[pad]}
}

// commit post-processes canonical samples and stores them write-through.
// It refuses to store when pad was cleared after mark was taken.
func (e *Engine) commit(pad bank.PadID, samples []float32, source string, mark clearMark) Result {
	res := Result{Pad: pad}
	if len(samples) == 0 {
		res.Err = ErrEmptyRecording
		return res
	}

	levels := dsp.Measure(samples)
	processed, env := dsp.PostProcess(samples, e.cfg.Processing)
	processed = slices.Clone(processed)

	e.storeMtx.Lock()
	defer e.storeMtx.Unlock()

	if mark.all != e.clearGen || mark.pad != e.padClears[pad] {
		res.Err = ErrCancelled
		return res
	}

	rec, err := e.bank.Store(pad, processed, env)
	if err != nil {
		res.Err = err
		return res
	}

	if e.catalog != nil {
		err := e.catalog.Upsert(catalog.Entry{
			Pad:        pad,
			Frames:     rec.Frames(),
			SampleRate: audio.Canonical.SampleRate,
			Duration:   rec.Duration(),
			Source:     source,
		})
		if err != nil {
			e.log.WithField("pad", int(pad)).WithError(err).Warn("catalog update failed")
		}
	}

	e.trimMtx.Lock()
	delete(e.trims, pad)
	e.trimMtx.Unlock()

	e.log.WithFields(logrus.Fields{
		"pad":       int(pad),
		"peak_dbfs": levels.PeakDBFS,
		"rms_dbfs":  levels.RMSDBFS,
		"trimmed":   len(samples) - len(processed),
	}).Debug("post-processed sample")

	res.Frames = rec.Frames()
	res.Duration = rec.Duration()
	res.Envelope = rec.Envelope

	return res
}
