// SPDX-License-Identifier: EPL-2.0

package bank

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"slices"
	"strconv"
	"sync"

	"github.com/ik5/padsampler/dsp"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// Codec turns canonical samples into persisted bytes and back.
type Codec interface {
	Encode(samples []float32) ([]byte, error)
	Decode(data []byte) ([]float32, error)
}

const (
	DefaultEnvelopeBuckets = 1024
	defaultPreloadLimit    = 4
)

type Option func(*Bank)

func WithLogger(log logrus.FieldLogger) Option {
	return func(b *Bank) { b.log = log }
}

// WithEnvelopeBuckets sets the resolution of envelopes computed on load.
func WithEnvelopeBuckets(n int) Option {
	return func(b *Bank) {
		if n > 0 {
			b.buckets = n
		}
	}
}

func WithPreloadLimit(n int) Option {
	return func(b *Bank) {
		if n > 0 {
			b.preloadLimit = n
		}
	}
}

type Bank struct {
	storage      Storage
	codec        Codec
	log          logrus.FieldLogger
	buckets      int
	preloadLimit int

	loads singleflight.Group

	// writeMtx serializes storage mutations; mtx only guards the maps.
	writeMtx sync.Mutex

	mtx     sync.RWMutex
	records map[PadID]*Record
	gens    map[PadID]uint64
	epoch   uint64
}

func New(storage Storage, codec Codec, opts ...Option) *Bank {
	b := &Bank{
		storage:      storage,
		codec:        codec,
		log:          logrus.StandardLogger(),
		buckets:      DefaultEnvelopeBuckets,
		preloadLimit: defaultPreloadLimit,
		records:      make(map[PadID]*Record),
		gens:         make(map[PadID]uint64),
	}
	for _, opt := range opts {
		opt(b)
	}

	return b
}

// Get returns pad's record, loading and caching it from storage on a miss.
func (b *Bank) Get(pad PadID) (*Record, error) {
	b.mtx.RLock()
	rec, ok := b.records[pad]
	epoch, gen := b.epoch, b.gens[pad]
	b.mtx.RUnlock()

	if ok {
		return rec, nil
	}

	v, err, _ := b.loads.Do(strconv.Itoa(int(pad)), func() (any, error) {
		return b.load(pad, epoch, gen)
	})
	if err != nil {
		return nil, err
	}

	return v.(*Record), nil
}

func (b *Bank) load(pad PadID, epoch, gen uint64) (*Record, error) {
	data, err := b.storage.Read(pad)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, pad)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %w", ErrStorage, pad, err)
	}

	samples, err := b.codec.Decode(data)
	if err != nil {
		return b.dropCorrupt(pad, epoch, gen, len(data), err)
	}

	rec := NewRecord(samples, dsp.Envelope{}, b.buckets)

	b.mtx.Lock()
	defer b.mtx.Unlock()

	if cur, ok := b.records[pad]; ok {
		return cur, nil
	}
	if b.epoch != epoch || b.gens[pad] != gen {
		return nil, fmt.Errorf("%w: %s was cleared while loading", ErrNotFound, pad)
	}
	b.records[pad] = rec

	return rec, nil
}

// dropCorrupt deletes the undecodable file read for pad, unless pad was
// stored, removed or cleared since the read.
func (b *Bank) dropCorrupt(pad PadID, epoch, gen uint64, size int, decodeErr error) (*Record, error) {
	b.writeMtx.Lock()
	defer b.writeMtx.Unlock()

	b.mtx.RLock()
	cur, cached := b.records[pad]
	stale := b.epoch != epoch || b.gens[pad] != gen
	b.mtx.RUnlock()

	switch {
	case cached:
		return cur, nil
	case stale:
		return nil, fmt.Errorf("%w: %s changed while loading", ErrNotFound, pad)
	}

	b.log.WithFields(logrus.Fields{
		"pad":   int(pad),
		"bytes": size,
	}).WithError(decodeErr).Warn("deleting corrupt sample file")

	if err := b.storage.Delete(pad); err != nil {
		b.log.WithField("pad", int(pad)).WithError(err).Error("could not delete corrupt sample file")
	}

	return nil, fmt.Errorf("%w: %s: %w", ErrDecode, pad, decodeErr)
}

// Put inserts or overwrites the cached record for pad without touching
// storage.
func (b *Bank) Put(pad PadID, rec *Record) error {
	if rec == nil {
		return ErrNoRecord
	}

	b.mtx.Lock()
	defer b.mtx.Unlock()

	b.records[pad] = rec
	b.gens[pad]++

	return nil
}

// Store encodes samples, persists them and caches the result. Nothing is
// cached unless the file was written.
func (b *Bank) Store(pad PadID, samples []float32, env dsp.Envelope) (*Record, error) {
	data, err := b.codec.Encode(samples)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrEncode, pad, err)
	}

	rec := NewRecord(samples, env, b.buckets)

	b.writeMtx.Lock()
	defer b.writeMtx.Unlock()

	if err := b.storage.Write(pad, data); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}

	b.mtx.Lock()
	b.records[pad] = rec
	b.gens[pad]++
	b.mtx.Unlock()

	b.log.WithFields(logrus.Fields{
		"pad":    int(pad),
		"frames": rec.Frames(),
		"bytes":  len(data),
	}).Debug("stored sample")

	return rec, nil
}

// Remove evicts pad and deletes its file. Removing an empty pad is a no-op.
func (b *Bank) Remove(pad PadID) error {
	b.writeMtx.Lock()
	defer b.writeMtx.Unlock()

	// The file goes first so a load racing the delete is invalidated by
	// the generation bump below.
	delErr := b.storage.Delete(pad)

	b.mtx.Lock()
	delete(b.records, pad)
	b.gens[pad]++
	b.mtx.Unlock()

	if delErr != nil {
		return fmt.Errorf("%w: %w", ErrStorage, delErr)
	}

	return nil
}

// Clear evicts every pad and deletes every stored file.
func (b *Bank) Clear() error {
	b.writeMtx.Lock()
	defer b.writeMtx.Unlock()

	var errs []error
	pads, err := b.storage.List()
	if err != nil {
		errs = append(errs, err)
	}
	for _, pad := range pads {
		if err := b.storage.Delete(pad); err != nil {
			errs = append(errs, err)
		}
	}

	b.mtx.Lock()
	clear(b.records)
	b.epoch++
	b.mtx.Unlock()

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrStorage, errors.Join(errs...))
	}

	return nil
}

// Has reports whether pad has a cached or persisted recording.
func (b *Bank) Has(pad PadID) bool {
	b.mtx.RLock()
	_, ok := b.records[pad]
	b.mtx.RUnlock()

	return ok || b.storage.Exists(pad)
}

// Cached reports whether pad is in memory.
func (b *Bank) Cached(pad PadID) bool {
	b.mtx.RLock()
	defer b.mtx.RUnlock()

	_, ok := b.records[pad]
	return ok
}

// Envelope returns pad's envelope with exactly buckets pairs. Requests at
// or below the cached resolution downsample the cached envelope.
func (b *Bank) Envelope(pad PadID, buckets int) (dsp.Envelope, error) {
	rec, err := b.Get(pad)
	if err != nil {
		return dsp.Envelope{}, err
	}

	if buckets <= rec.Envelope.Len() {
		return rec.Envelope.Downsample(buckets), nil
	}

	return dsp.ExtractEnvelope(rec.Samples, buckets), nil
}

// Pads lists every pad with a cached or persisted recording.
func (b *Bank) Pads() ([]PadID, error) {
	stored, err := b.storage.List()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}

	b.mtx.RLock()
	seen := make(map[PadID]struct{}, len(stored)+len(b.records))
	for pad := range b.records {
		seen[pad] = struct{}{}
	}
	b.mtx.RUnlock()

	for _, pad := range stored {
		seen[pad] = struct{}{}
	}

	return slices.Sorted(maps.Keys(seen)), nil
}

// Preload warms the cache for pads. Missing pads are skipped and corrupt
// ones are logged, so only storage failures are returned.
func (b *Bank) Preload(ctx context.Context, pads []PadID) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(b.preloadLimit)

	for _, pad := range pads {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			_, err := b.Get(pad)
			switch {
			case err == nil, errors.Is(err, ErrNotFound):
				return nil
			case errors.Is(err, ErrDecode):
				b.log.WithField("pad", int(pad)).WithError(err).Warn("skipping corrupt pad during preload")
				return nil
			default:
				return err
			}
		})
	}

	return g.Wait()
}

// Len is the number of cached records.
func (b *Bank) Len() int {
	b.mtx.RLock()
	defer b.mtx.RUnlock()

	return len(b.records)
}
