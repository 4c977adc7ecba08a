// SPDX-License-Identifier: EPL-2.0

package padsampler_test

import (
	"fmt"

	"github.com/ik5/padsampler"
	"github.com/ik5/padsampler/audio"
	"github.com/ik5/padsampler/dsp"
)

func ExampleDecodeCanonical() {
	stereo := make([]float32, 2*48000)
	for i := range stereo {
		stereo[i] = 0.25
	}
	src := audio.NewSliceSource(stereo, audio.Format{SampleRate: 48000, Channels: 2})

	samples, err := padsampler.DecodeCanonical(src, false)
	if err != nil {
		fmt.Println("decode:", err)
		return
	}

	env := dsp.ExtractEnvelope(samples, 4)
	fmt.Printf("%d buckets, first max %.2f\n", env.Len(), env.Max[0])
	// Output: 4 buckets, first max 0.25
}

func ExampleFormatOf() {
	fmt.Println(padsampler.FormatOf("Loops/Break.OGG"))
	// Output: ogg
}
