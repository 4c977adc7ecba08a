// SPDX-License-Identifier: EPL-2.0

// Package wav reads PCM WAV files for sample import and writes 16-bit
// PCM WAV files for pad export.
//
// Decoding goes through github.com/go-audio/wav, so files with extra
// chunks (LIST, bext, ...) and 8/16/24/32-bit integer PCM are accepted:
//
//	src, err := wav.Decoder{}.Decode(file)
//
// Export writes canonical float32 samples as 16-bit PCM:
//
//	out, _ := os.Create("pad-012.wav")
//	err := wav.Export(out, 44100, samples)
package wav
