// SPDX-License-Identifier: EPL-2.0

package bank

import (
	"fmt"
	"time"

	"github.com/ik5/padsampler/audio"
	"github.com/ik5/padsampler/dsp"
)

type PadID int

func (p PadID) String() string { return fmt.Sprintf("pad-%03d", int(p)) }

// Record is a decoded pad sample. It must not be mutated once it has
// been handed to a Bank.
type Record struct {
	Samples  []float32
	Envelope dsp.Envelope
}

// NewRecord pairs samples with env, extracting a fresh envelope of
// buckets pairs when env is empty or malformed.
func NewRecord(samples []float32, env dsp.Envelope, buckets int) *Record {
	if env.Empty() || len(env.Min) != len(env.Max) {
		env = dsp.ExtractEnvelope(samples, buckets)
	}

	return &Record{Samples: samples, Envelope: env}
}

func (r *Record) Frames() int { return len(r.Samples) }

func (r *Record) Duration() time.Duration {
	return audio.Canonical.Duration(len(r.Samples))
}
