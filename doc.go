// SPDX-License-Identifier: EPL-2.0

// Package padsampler is a pad-based sampler: every pad holds one short
// recorded or imported sample which can be played back polyphonically,
// pitched chromatically and trimmed.
//
// # Layout
//
//   - engine: voice pool, mixer, recording sessions and pad operations
//   - bank: per-pad sample cache over persistent storage
//   - dsp: post-processing (trim, fades, normalization) and envelopes
//   - audio: sources, format conversion and streaming resampling
//   - formats/...: decoders for WAV, MP3, Ogg Vorbis, AIFF and the
//     IMA ADPCM files pads are stored in
//   - device: oto output and malgo capture backends
//
// # Decoding files
//
// DefaultRegistry knows every supported format by file extension, and
// DecodeFile brings any of them into the canonical pad format (mono,
// 44.1 kHz, float32):
//
//	samples, from, err := padsampler.DecodeFile(padsampler.DefaultRegistry(), "kick.mp3", false)
//	if err != nil {
//	    return err
//	}
//	fmt.Printf("%s -> %d frames\n", from, len(samples))
//
// # Playing pads
//
// An engine.Engine owns the voices and the recording session:
//
//	b := bank.New(bank.NewDirStorage("./pads"), adpcm.Codec{})
//	e := engine.New(engine.DefaultConfig(), out, capture, b)
//	defer e.Close()
//
//	_ = e.StartRecording(3)
//	// ...
//	_ = e.StopRecording(func(r engine.Result) { log.Println(r.Duration, r.Err) })
//
//	d, _ := e.Play(3, engine.ChromaticCents(60, 67), nil)
//
// See cmd/padsampler for a complete command line front end.
package padsampler
