// SPDX-License-Identifier: EPL-2.0

package engine

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ik5/padsampler/audio"
	"github.com/ik5/padsampler/bank"
	"github.com/ik5/padsampler/dsp"
	"github.com/ik5/padsampler/formats/wav"
	"github.com/ik5/padsampler/internal/catalog"
	"github.com/sirupsen/logrus"
)

// HasRecording reports whether pad has a stored or cached sample.
func (e *Engine) HasRecording(pad bank.PadID) bool {
	if e.checkPad(pad) != nil {
		return false
	}
	return e.bank.Has(pad)
}

// Waveform returns pad's envelope with exactly buckets pairs.
func (e *Engine) Waveform(pad bank.PadID, buckets int) (dsp.Envelope, error) {
	if err := e.checkPad(pad); err != nil {
		return dsp.Envelope{}, err
	}
	if buckets < 1 {
		return dsp.Envelope{}, fmt.Errorf("%w: %d", ErrInvalidBuckets, buckets)
	}

	return e.bank.Envelope(pad, buckets)
}

// ClearPad stops voices playing pad, cancels a session recording into it
// and deletes its sample and metadata. Clearing an empty pad is a no-op.
func (e *Engine) ClearPad(pad bank.PadID) error {
	if err := e.checkPad(pad); err != nil {
		return err
	}

	e.pool.stopPad(pad)
	if s := e.rec.active.Load(); s != nil && s.pad == pad {
		e.cancelRecording()
	}

	e.storeMtx.Lock()
	defer e.storeMtx.Unlock()

	e.padClears[pad]++
	e.dropTrim(pad)

	var errs []error
	if err := e.bank.Remove(pad); err != nil {
		errs = append(errs, err)
	}
	if e.catalog != nil {
		if err := e.catalog.Delete(pad); err != nil {
			errs = append(errs, err)
		}
	}

	e.log.WithField("pad", int(pad)).Info("pad cleared")

	return errors.Join(errs...)
}

// ClearAll stops every voice and cancels recording before anything in
// the bank is touched.
func (e *Engine) ClearAll() error {
	e.pool.stopAll()
	e.cancelRecording()

	e.storeMtx.Lock()
	defer e.storeMtx.Unlock()

	e.clearGen++

	e.trimMtx.Lock()
	clear(e.trims)
	e.trimMtx.Unlock()

	var errs []error
	if err := e.bank.Clear(); err != nil {
		errs = append(errs, err)
	}
	if e.catalog != nil {
		if err := e.catalog.DeleteAll(); err != nil {
			errs = append(errs, err)
		}
	}

	e.log.Info("all pads cleared")

	return errors.Join(errs...)
}

// SetTrim stores trim markers used by Play when no explicit range is
// given.
func (e *Engine) SetTrim(pad bank.PadID, start, end float64) error {
	if err := e.checkPad(pad); err != nil {
		return err
	}

	r := TrimRange{Start: start, End: end}
	if err := r.Validate(); err != nil {
		return err
	}
	if !e.bank.Has(pad) {
		return fmt.Errorf("%w: %s", bank.ErrNotFound, pad)
	}

	if e.catalog != nil {
		err := e.catalog.SetTrim(pad, start, end)
		if errors.Is(err, catalog.ErrNotFound) {
			err = e.catalogPad(pad)
			if err == nil {
				err = e.catalog.SetTrim(pad, start, end)
			}
		}
		if err != nil {
			return err
		}
	}

	e.trimMtx.Lock()
	defer e.trimMtx.Unlock()

	if r == FullRange {
		delete(e.trims, pad)
	} else {
		e.trims[pad] = r
	}

	return nil
}

// catalogPad adds a catalog entry for a sample that predates the catalog.
func (e *Engine) catalogPad(pad bank.PadID) error {
	rec, err := e.bank.Get(pad)
	if err != nil {
		return err
	}

	return e.catalog.Upsert(catalog.Entry{
		Pad:        pad,
		Frames:     rec.Frames(),
		SampleRate: audio.Canonical.SampleRate,
		Duration:   rec.Duration(),
		Source:     catalog.SourceImport,
	})
}

// Trim returns pad's stored trim markers, if it has any narrower than
// the whole sample.
func (e *Engine) Trim(pad bank.PadID) (TrimRange, bool) {
	e.trimMtx.RLock()
	defer e.trimMtx.RUnlock()

	r, ok := e.trims[pad]
	return r, ok
}

func (e *Engine) dropTrim(pad bank.PadID) {
	e.trimMtx.Lock()
	defer e.trimMtx.Unlock()

	delete(e.trims, pad)
}

func (e *Engine) loadTrims() {
	if e.catalog == nil {
		return
	}

	entries, err := e.catalog.List()
	if err != nil {
		e.log.WithError(err).Warn("could not load trim markers")
		return
	}

	for _, entry := range entries {
		if entry.Trimmed() {
			e.trims[entry.Pad] = TrimRange{Start: entry.TrimStart, End: entry.TrimEnd}
		}
	}
}

// Import decodes an audio file of the given format ("wav", "mp3", "ogg",
// ...) into pad, applying the same conversion and post-processing as a
// recording. Audio past the recording limit is dropped.
func (e *Engine) Import(pad bank.PadID, format string, r io.Reader) (Result, error) {
	if err := e.checkPad(pad); err != nil {
		return Result{Pad: pad, Err: err}, err
	}

	fail := func(err error) (Result, error) {
		return Result{Pad: pad, Err: err}, err
	}

	format = strings.TrimPrefix(strings.ToLower(format), ".")
	if e.registry == nil {
		return fail(fmt.Errorf("%w: no decoders registered", ErrUnsupportedFormat))
	}
	dec, ok := e.registry.Get(format)
	if !ok {
		return fail(fmt.Errorf("%w: %q", ErrUnsupportedFormat, format))
	}

	mark := e.clearMark(pad)

	src, err := dec.Decode(r)
	if err != nil {
		return fail(fmt.Errorf("%w: %w", bank.ErrDecode, err))
	}
	defer src.Close()

	raw, err := audio.ReadAll(src)
	if err != nil {
		return fail(fmt.Errorf("%w: %w", bank.ErrDecode, err))
	}

	from := audio.Format{SampleRate: src.SampleRate(), Channels: src.Channels()}
	samples, err := audio.Converter{AlwaysConvert: e.cfg.AlwaysConvert}.Convert(raw, from, audio.Canonical)
	if err != nil {
		return fail(err)
	}

	truncated := 0
	if limit := audio.Canonical.FramesFor(e.cfg.MaxRecord); len(samples) > limit {
		truncated = len(samples) - limit
		samples = samples[:limit]
		e.log.WithFields(logrus.Fields{
			"pad":     int(pad),
			"dropped": truncated,
		}).WithError(ErrCapacityExceeded).Debug("import longer than the recording limit")
	}

	res := e.commit(pad, samples, catalog.SourceImport, mark)
	res.Truncated = truncated
	if res.Err != nil {
		return res, res.Err
	}

	e.log.WithFields(logrus.Fields{
		"pad":    int(pad),
		"format": format,
		"source": from.String(),
	}).Info("sample imported")

	return res, nil
}

// ExportWAV writes pad's full sample as 16-bit PCM WAV.
func (e *Engine) ExportWAV(pad bank.PadID, w io.WriteSeeker) error {
	if err := e.checkPad(pad); err != nil {
		return err
	}

	rec, err := e.bank.Get(pad)
	if err != nil {
		return err
	}

	return wav.Export(w, audio.Canonical.SampleRate, rec.Samples)
}
