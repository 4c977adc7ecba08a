// SPDX-License-Identifier: EPL-2.0

package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"
)

var version = "0.1.0"

// CLI defines the command-line interface
type CLI struct {
	Env     string           `short:"e" type:"path" default:".env" help:"Path to a .env file with PADSAMPLER_* settings"`
	Version kong.VersionFlag `short:"v" help:"Show version information"`

	Record   RecordCmd   `cmd:"" help:"Record the default input into a pad"`
	Play     PlayCmd     `cmd:"" help:"Play a pad"`
	Import   ImportCmd   `cmd:"" help:"Import an audio file into a pad"`
	Export   ExportCmd   `cmd:"" help:"Export a pad as 16-bit WAV"`
	Waveform WaveformCmd `cmd:"" help:"Draw a pad's waveform"`
	List     ListCmd     `cmd:"" help:"List recorded pads"`
	Trim     TrimCmd     `cmd:"" help:"Set a pad's trim markers"`
	Clear    ClearCmd    `cmd:"" help:"Clear one pad or all of them"`
	Inspect  InspectCmd  `cmd:"" help:"Decode an audio file and print its levels"`
}

func main() {
	cli := &CLI{}
	ctx := kong.Parse(cli,
		kong.Name("padsampler"),
		kong.Description("Record, import and play short samples on numbered pads"),
		kong.UsageOnError(),
		kong.Vars{"version": version},
	)

	app, err := newApp(cli.Env)
	if err != nil {
		fmt.Fprintln(os.Stderr, "padsampler:", err)
		os.Exit(1)
	}

	err = ctx.Run(app)
	if cerr := app.Close(); err == nil {
		err = cerr
	}
	ctx.FatalIfErrorf(err)
}
