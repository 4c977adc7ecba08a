// SPDX-License-Identifier: EPL-2.0

package engine

import (
	"io"
	"time"

	"github.com/ik5/padsampler/audio"
	"github.com/ik5/padsampler/bank"
	"github.com/ik5/padsampler/dsp"
	"github.com/ik5/padsampler/internal/catalog"
	"github.com/sirupsen/logrus"
)

// Output pulls mono float32 little-endian frames at 44.1 kHz from the
// reader passed to Start.
type Output interface {
	Start(r io.Reader) error
	Stop() error
	Close() error
}

// Capture delivers interleaved float32 buffers in its native format on
// its own thread.
type Capture interface {
	Authorized() bool
	Format() (audio.Format, error)
	Start(deliver func([]float32)) error
	Stop() error
}

// Catalog stores per-pad metadata next to the audio.
type Catalog interface {
	Upsert(e catalog.Entry) error
	Get(pad bank.PadID) (*catalog.Entry, error)
	SetTrim(pad bank.PadID, start, end float64) error
	Delete(pad bank.PadID) error
	DeleteAll() error
	List() ([]catalog.Entry, error)
}

type Config struct {
	Voices int
	Pads   int

	// MaxRecord bounds one recording; later samples are dropped.
	MaxRecord time.Duration
	// PreviewInterval throttles live waveform updates; 0 publishes after
	// every append.
	PreviewInterval time.Duration
	PreviewBuckets  int
	AlwaysConvert   bool
	Processing      dsp.Options

	Workers int
	// RingSlots and ChunkFrames size the capture ring.
	RingSlots   int
	ChunkFrames int

	// OnPreview observes live waveform updates.
	OnPreview func(dsp.Envelope)
	// Dispatch runs callbacks (completions, previews) on the caller's
	// preferred context. Defaults to calling them inline.
	Dispatch func(func())
}

func DefaultConfig() Config {
	return Config{
		Voices:          8,
		Pads:            88,
		MaxRecord:       10 * time.Second,
		PreviewInterval: 60 * time.Millisecond,
		PreviewBuckets:  64,
		Processing:      dsp.DefaultOptions(),
		Workers:         2,
		RingSlots:       128,
		ChunkFrames:     1024,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()

	if c.Voices < 1 {
		c.Voices = d.Voices
	}
	if c.Pads < 1 {
		c.Pads = d.Pads
	}
	if c.MaxRecord <= 0 {
		c.MaxRecord = d.MaxRecord
	}
	if c.PreviewInterval < 0 {
		c.PreviewInterval = 0
	}
	if c.PreviewBuckets < 1 {
		c.PreviewBuckets = d.PreviewBuckets
	}
	if c.Processing.EnvelopeBuckets < 1 {
		c.Processing = d.Processing
	}
	if c.Workers < 1 {
		c.Workers = d.Workers
	}
	if c.RingSlots < 2 {
		c.RingSlots = d.RingSlots
	}
	if c.ChunkFrames < 1 {
		c.ChunkFrames = d.ChunkFrames
	}
	if c.Dispatch == nil {
		c.Dispatch = func(f func()) { f() }
	}

	return c
}

type Option func(*Engine)

func WithLogger(log logrus.FieldLogger) Option {
	return func(e *Engine) { e.log = log }
}

func WithCatalog(c Catalog) Option {
	return func(e *Engine) { e.catalog = c }
}

// WithRegistry enables Import for the registered formats.
func WithRegistry(r *audio.Registry) Option {
	return func(e *Engine) { e.registry = r }
}
