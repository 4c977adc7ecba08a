// SPDX-License-Identifier: EPL-2.0

package bank

import (
	"context"
	"errors"
	"io/fs"
	"math"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/ik5/padsampler/dsp"
	"github.com/ik5/padsampler/formats/adpcm"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tone(frames int) []float32 {
	out := make([]float32, frames)
	for i := range out {
		out[i] = float32(0.6 * math.Sin(2*math.Pi*220*float64(i)/44100))
	}
	return out
}

func newTestBank(t *testing.T, opts ...Option) (*Bank, *DirStorage) {
	t.Helper()

	logger, _ := test.NewNullLogger()
	storage := NewDirStorage(t.TempDir())
	opts = append([]Option{WithLogger(logger)}, opts...)

	return New(storage, adpcm.Codec{}, opts...), storage
}

func TestBank_StoreWriteThrough(t *testing.T) {
	t.Parallel()

	b, storage := newTestBank(t)
	samples := tone(44100)

	rec, err := b.Store(3, samples, dsp.Envelope{})
	require.NoError(t, err)
	assert.True(t, b.Cached(3))
	assert.True(t, b.Has(3))
	assert.FileExists(t, storage.Path(3))
	assert.Equal(t, DefaultEnvelopeBuckets, rec.Envelope.Len())

	got, err := b.Get(3)
	require.NoError(t, err)
	assert.Same(t, rec, got)
}

func TestBank_LazyLoad(t *testing.T) {
	t.Parallel()

	b, storage := newTestBank(t, WithEnvelopeBuckets(256))
	samples := tone(22050)
	_, err := b.Store(7, samples, dsp.Envelope{})
	require.NoError(t, err)

	cold := New(storage, adpcm.Codec{}, WithEnvelopeBuckets(256))
	assert.False(t, cold.Cached(7))
	assert.True(t, cold.Has(7))

	rec, err := cold.Get(7)
	require.NoError(t, err)
	assert.Len(t, rec.Samples, len(samples))
	assert.Equal(t, 256, rec.Envelope.Len())
	assert.Len(t, rec.Envelope.Max, len(rec.Envelope.Min))
	assert.True(t, cold.Cached(7))
}

func TestBank_GetMissing(t *testing.T) {
	t.Parallel()

	b, _ := newTestBank(t)
	_, err := b.Get(1)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, b.Has(1))
}

func TestBank_RemoveIdempotent(t *testing.T) {
	t.Parallel()

	b, storage := newTestBank(t)
	_, err := b.Store(5, tone(4410), dsp.Envelope{})
	require.NoError(t, err)

	require.NoError(t, b.Remove(5))
	require.NoError(t, b.Remove(5))

	assert.False(t, b.Has(5))
	assert.False(t, b.Cached(5))
	assert.NoFileExists(t, storage.Path(5))
	_, err = b.Get(5)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBank_ClearIdempotent(t *testing.T) {
	t.Parallel()

	b, _ := newTestBank(t)
	for _, pad := range []PadID{0, 10, 87} {
		_, err := b.Store(pad, tone(2000), dsp.Envelope{})
		require.NoError(t, err)
	}

	require.NoError(t, b.Clear())
	require.NoError(t, b.Clear())

	pads, err := b.Pads()
	require.NoError(t, err)
	assert.Empty(t, pads)
	assert.Zero(t, b.Len())
}

func TestBank_CorruptFileDeleted(t *testing.T) {
	t.Parallel()

	logger, hook := test.NewNullLogger()
	storage := NewDirStorage(t.TempDir())
	b := New(storage, adpcm.Codec{}, WithLogger(logger))

	require.NoError(t, storage.Write(9, []byte("RIFF\x04\x00\x00\x00WAVE")))

	_, err := b.Get(9)
	require.ErrorIs(t, err, ErrDecode)
	assert.NoFileExists(t, storage.Path(9))
	assert.False(t, b.Has(9))
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
}

func TestBank_ConcurrentGet(t *testing.T) {
	t.Parallel()

	b, storage := newTestBank(t)
	_, err := b.Store(2, tone(30000), dsp.Envelope{})
	require.NoError(t, err)

	cold := New(storage, adpcm.Codec{})

	const readers = 16
	recs := make([]*Record, readers)
	var wg sync.WaitGroup
	for i := range readers {
		wg.Go(func() {
			rec, err := cold.Get(2)
			assert.NoError(t, err)
			recs[i] = rec
		})
	}
	wg.Wait()

	for _, rec := range recs[1:] {
		assert.Same(t, recs[0], rec)
	}
}

// gatedStorage blocks Read until released so evictions can race a load.
type gatedStorage struct {
	*DirStorage
	entered chan struct{}
	release chan struct{}
}

func (g *gatedStorage) Read(pad PadID) ([]byte, error) {
	data, err := g.DirStorage.Read(pad)
	close(g.entered)
	<-g.release
	return data, err
}

func TestBank_RemoveDuringLoad(t *testing.T) {
	t.Parallel()

	seed, dir := newTestBank(t)
	_, err := seed.Store(4, tone(5000), dsp.Envelope{})
	require.NoError(t, err)

	gated := &gatedStorage{
		DirStorage: dir,
		entered:    make(chan struct{}),
		release:    make(chan struct{}),
	}
	b := New(gated, adpcm.Codec{})

	errc := make(chan error, 1)
	go func() {
		_, err := b.Get(4)
		errc <- err
	}()

	<-gated.entered
	require.NoError(t, b.Remove(4))
	close(gated.release)

	assert.ErrorIs(t, <-errc, ErrNotFound)
	assert.False(t, b.Cached(4))
}

func TestBank_StoreDuringCorruptLoad(t *testing.T) {
	t.Parallel()

	logger, _ := test.NewNullLogger()
	dir := NewDirStorage(t.TempDir())
	require.NoError(t, dir.Write(3, []byte("RIFF\x04\x00\x00\x00WAVE")))

	gated := &gatedStorage{
		DirStorage: dir,
		entered:    make(chan struct{}),
		release:    make(chan struct{}),
	}
	b := New(gated, adpcm.Codec{}, WithLogger(logger))

	type result struct {
		rec *Record
		err error
	}
	got := make(chan result, 1)
	go func() {
		rec, err := b.Get(3)
		got <- result{rec, err}
	}()

	<-gated.entered
	stored, err := b.Store(3, tone(8000), dsp.Envelope{})
	require.NoError(t, err)
	close(gated.release)

	res := <-got
	require.NoError(t, res.err)
	assert.Same(t, stored, res.rec)
	assert.FileExists(t, dir.Path(3))

	restarted := New(dir, adpcm.Codec{}, WithLogger(logger))
	rec, err := restarted.Get(3)
	require.NoError(t, err)
	assert.Len(t, rec.Samples, 8000)
}

// stallingStorage blocks Write until released.
type stallingStorage struct {
	*DirStorage
	entered chan struct{}
	release chan struct{}
}

func (s *stallingStorage) Write(pad PadID, data []byte) error {
	close(s.entered)
	<-s.release
	return s.DirStorage.Write(pad, data)
}

func TestBank_CachedGetDuringSlowWrite(t *testing.T) {
	t.Parallel()

	stalling := &stallingStorage{
		DirStorage: NewDirStorage(t.TempDir()),
		entered:    make(chan struct{}),
		release:    make(chan struct{}),
	}
	logger, _ := test.NewNullLogger()
	b := New(stalling, adpcm.Codec{}, WithLogger(logger))
	cached := NewRecord(tone(1000), dsp.Envelope{}, 16)
	require.NoError(t, b.Put(1, cached))

	stored := make(chan error, 1)
	go func() {
		_, err := b.Store(2, tone(4000), dsp.Envelope{})
		stored <- err
	}()
	<-stalling.entered

	hit := make(chan *Record, 1)
	go func() {
		rec, err := b.Get(1)
		assert.NoError(t, err)
		hit <- rec
	}()

	select {
	case rec := <-hit:
		assert.Same(t, cached, rec)
	case <-time.After(2 * time.Second):
		t.Error("cached Get blocked behind a storage write")
	}
	assert.True(t, b.Cached(1))
	assert.False(t, b.Cached(2))

	close(stalling.release)
	require.NoError(t, <-stored)
	assert.True(t, b.Cached(2))
}

func TestBank_Envelope(t *testing.T) {
	t.Parallel()

	b, _ := newTestBank(t)
	_, err := b.Store(1, tone(88200), dsp.Envelope{})
	require.NoError(t, err)

	for _, buckets := range []int{50, 1024, 4096} {
		env, err := b.Envelope(1, buckets)
		require.NoError(t, err)
		require.Equal(t, buckets, env.Len())
		for i := range env.Min {
			assert.LessOrEqual(t, env.Min[i], env.Max[i])
			assert.GreaterOrEqual(t, env.Min[i], float32(-1))
			assert.LessOrEqual(t, env.Max[i], float32(1))
		}
	}
}

func TestBank_PutAndPads(t *testing.T) {
	t.Parallel()

	b, _ := newTestBank(t)
	assert.ErrorIs(t, b.Put(1, nil), ErrNoRecord)

	require.NoError(t, b.Put(12, NewRecord(tone(100), dsp.Envelope{}, 10)))
	_, err := b.Store(3, tone(100), dsp.Envelope{})
	require.NoError(t, err)

	pads, err := b.Pads()
	require.NoError(t, err)
	assert.Equal(t, []PadID{3, 12}, pads)
}

func TestBank_Preload(t *testing.T) {
	t.Parallel()

	seed, storage := newTestBank(t)
	for _, pad := range []PadID{0, 1, 2} {
		_, err := seed.Store(pad, tone(3000), dsp.Envelope{})
		require.NoError(t, err)
	}
	require.NoError(t, storage.Write(3, []byte("garbage")))

	logger, _ := test.NewNullLogger()
	b := New(storage, adpcm.Codec{}, WithLogger(logger), WithPreloadLimit(2))
	require.NoError(t, b.Preload(context.Background(), []PadID{0, 1, 2, 3, 4}))

	assert.Equal(t, 3, b.Len())
	assert.NoFileExists(t, storage.Path(3))
}

type failingCodec struct{ adpcm.Codec }

func (failingCodec) Encode([]float32) ([]byte, error) { return nil, errors.New("boom") }

type readOnlyStorage struct{ *DirStorage }

func (readOnlyStorage) Write(PadID, []byte) error { return fs.ErrPermission }

func TestBank_StoreFailures(t *testing.T) {
	t.Parallel()

	dir := NewDirStorage(t.TempDir())

	b := New(dir, failingCodec{})
	_, err := b.Store(1, tone(100), dsp.Envelope{})
	assert.ErrorIs(t, err, ErrEncode)
	assert.False(t, b.Has(1))

	b = New(readOnlyStorage{dir}, adpcm.Codec{})
	_, err = b.Store(1, tone(100), dsp.Envelope{})
	assert.ErrorIs(t, err, ErrStorage)
	assert.ErrorIs(t, err, fs.ErrPermission)
	assert.False(t, b.Cached(1))
}

func TestDirStorage(t *testing.T) {
	t.Parallel()

	s := NewDirStorage(t.TempDir() + "/nested")

	pads, err := s.List()
	require.NoError(t, err)
	assert.Empty(t, pads)

	require.NoError(t, s.Write(42, []byte("abc")))
	require.NoError(t, s.Write(42, []byte("xyz")))
	assert.Equal(t, "pad-042.wav", s.Path(42)[len(s.Dir)+1:])

	data, err := s.Read(42)
	require.NoError(t, err)
	assert.Equal(t, "xyz", string(data))

	require.NoError(t, os.WriteFile(s.Dir+"/notes.txt", nil, 0o644))
	pads, err = s.List()
	require.NoError(t, err)
	assert.Equal(t, []PadID{42}, pads)

	require.NoError(t, s.Delete(42))
	require.NoError(t, s.Delete(42))
	_, err = s.Read(42)
	assert.ErrorIs(t, err, fs.ErrNotExist)
}
