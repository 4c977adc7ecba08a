// SPDX-License-Identifier: EPL-2.0

// Package dsp holds the post-processing applied to finished recordings
// and the waveform envelopes used for display.
//
// The processing chain for a recording is:
//
//	trimmed := dsp.TrimLeadingSilence(buf, 0.02, 441)
//	dsp.ApplyFades(trimmed, 441)
//	dsp.Normalize(trimmed, 0.89)
//	env := dsp.ExtractEnvelope(trimmed, 1024)
//
// PostProcess runs the same chain from an Options value. All functions
// operate on canonical mono float32 buffers and modify them in place where
// noted; none of them allocate except envelope extraction.
package dsp
