// SPDX-License-Identifier: EPL-2.0

// Package audio provides the PCM plumbing shared by the sampler.
//
// It contains:
//   - Source interface for pull-based audio streams
//   - Format descriptors and the Canonical sample format
//   - Resampler for sample rate conversion
//   - MonoMixer for channel mixing
//   - Converter and StreamConverter, which bring any capture or decoded
//     format into the canonical format
//   - Registry for decoder registration
//
// # Canonical Format
//
// Every sample that is cached or persisted by the sampler is stored as
// mono, 44.1 kHz, float32 PCM in the range [-1.0, 1.0]:
//
//	audio.Canonical // Format{SampleRate: 44100, Channels: 1}
//
// # Converting
//
// One-shot conversion of a complete buffer:
//
//	conv := audio.Converter{}
//	mono, err := conv.Convert(samples, audio.Format{SampleRate: 48000, Channels: 2}, audio.Canonical)
//
// Streaming conversion of capture chunks keeps interpolation history
// between calls so chunk boundaries do not click:
//
//	sc, _ := audio.NewStreamConverter(deviceFormat, audio.Canonical, false)
//	out, _ := sc.Process(chunk) // out is reused on the next call
//	tail := sc.Flush()
//
// When the input format equals the output format exactly, both converters
// take a pass-through fast path. Setting AlwaysConvert disables it for
// capture devices whose format descriptors never compare equal.
//
// # Error Handling
//
// Sources return io.EOF when no more data is available. Conversion
// problems are reported wrapped in ErrConversion.
package audio
