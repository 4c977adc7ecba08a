// SPDX-License-Identifier: EPL-2.0

// Package engine is the realtime half of the sampler: a fixed pool of
// voices mixed into one output stream, and a single recording pipeline
// fed by a capture device.
//
// The audio graph is started once by New. If the output device cannot be
// started the engine stays usable but reports StatusReadyDegraded; the next
// Play or StartRecording makes one restart attempt before failing with
// ErrNotRunning.
//
// Two callbacks run on device threads and never allocate or block: the
// capture delivery, which copies into a lock-free ring, and the mixer's
// Read, which skips any voice whose lock is held. Everything heavier
// (conversion, trimming, normalization, encoding, persistence) happens on
// the consumer goroutine of the active session or on background workers.
//
// Recording:
//
//	err := eng.StartRecording(12)
//	...
//	err = eng.StopRecording(func(res engine.Result) {
//		if res.Err != nil {
//			log.Println(res.Err)
//		}
//	})
//
// Playback, one semitone up, honouring stored trim markers:
//
//	d, err := eng.Play(12, engine.ChromaticCents(60, 61), nil)
package engine
