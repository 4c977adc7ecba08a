// SPDX-License-Identifier: EPL-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/ik5/padsampler"
	"github.com/ik5/padsampler/audio"
	"github.com/ik5/padsampler/bank"
	"github.com/ik5/padsampler/dsp"
	"github.com/ik5/padsampler/engine"
)

var errNothingToClear = errors.New("give pad numbers or --all")

type RecordCmd struct {
	Pad      int           `arg:"" help:"Pad number"`
	Duration time.Duration `short:"d" default:"3s" help:"How long to record; Ctrl+C stops earlier"`
	Meter    bool          `default:"true" negatable:"" help:"Show a live waveform while recording"`
}

func (c *RecordCmd) Run(a *app) error {
	e := a.open(true, func(cfg *engine.Config) {
		if c.Meter {
			cfg.OnPreview = func(env dsp.Envelope) {
				fmt.Fprintf(os.Stderr, "\r%s", sparkline(env))
			}
		}
	})

	if err := e.StartRecording(bank.PadID(c.Pad)); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	select {
	case <-ctx.Done():
	case <-time.After(c.Duration):
	}

	done := make(chan engine.Result, 1)
	if err := e.StopRecording(func(r engine.Result) { done <- r }); err != nil {
		return err
	}
	res := <-done
	if c.Meter {
		fmt.Fprintln(os.Stderr)
	}
	if res.Err != nil {
		return res.Err
	}

	fmt.Printf("%s: %s (%d frames)\n", res.Pad, res.Duration.Round(time.Millisecond), res.Frames)
	if res.Truncated > 0 {
		fmt.Printf("  %d samples past the recording limit were dropped\n", res.Truncated)
	}
	if res.Dropped > 0 {
		fmt.Printf("  %d samples were lost to buffer overflow\n", res.Dropped)
	}
	fmt.Println(sparkline(res.Envelope.Downsample(60)))

	return nil
}

type PlayCmd struct {
	Pad   int     `arg:"" help:"Pad number"`
	Key   int     `short:"k" default:"-1" help:"MIDI key, pitched relative to --root"`
	Root  int     `default:"60" help:"MIDI key the sample plays at unchanged"`
	Cents float64 `help:"Extra pitch offset in cents"`
	Range string  `short:"r" placeholder:"START:END" help:"Play only this part, as fractions of the sample"`
}

func (c *PlayCmd) Run(a *app) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	e := a.open(true)
	a.preload(ctx)

	trim, err := parseRange(c.Range)
	if err != nil {
		return err
	}

	cents := c.Cents
	if c.Key >= 0 {
		cents += engine.ChromaticCents(c.Root, c.Key)
	}

	d, err := e.Play(bank.PadID(c.Pad), cents, trim)
	if err != nil {
		return err
	}
	if e.Status() != engine.StatusReady {
		a.log.WithField("status", e.Status()).Warn("engine degraded, playback may be silent")
	}

	fmt.Printf("%s: playing %s\n", bank.PadID(c.Pad), d.Round(time.Millisecond))

	select {
	case <-ctx.Done():
		e.StopAll()
	case <-time.After(d + 100*time.Millisecond):
	}

	return nil
}

func parseRange(s string) (*engine.TrimRange, error) {
	if s == "" {
		return nil, nil
	}

	var r engine.TrimRange
	if _, err := fmt.Sscanf(s, "%g:%g", &r.Start, &r.End); err != nil {
		return nil, fmt.Errorf("%w: %q", engine.ErrInvalidTrim, s)
	}

	return &r, r.Validate()
}

type ImportCmd struct {
	Pad  int    `arg:"" help:"Pad number"`
	File string `arg:"" type:"existingfile" help:"Audio file (wav, mp3, ogg, aiff)"`
}

func (c *ImportCmd) Run(a *app) error {
	f, err := os.Open(c.File)
	if err != nil {
		return err
	}
	defer f.Close()

	res, err := a.open(false).Import(bank.PadID(c.Pad), padsampler.FormatOf(c.File), f)
	if err != nil {
		return err
	}

	fmt.Printf("%s: %s (%d frames)\n", res.Pad, res.Duration.Round(time.Millisecond), res.Frames)
	if res.Truncated > 0 {
		fmt.Printf("  trimmed %d samples past the recording limit\n", res.Truncated)
	}

	return nil
}

type ExportCmd struct {
	Pad int    `arg:"" help:"Pad number"`
	Out string `arg:"" type:"path" help:"Output WAV file"`
}

func (c *ExportCmd) Run(a *app) error {
	f, err := os.Create(c.Out)
	if err != nil {
		return err
	}

	if err := a.open(false).ExportWAV(bank.PadID(c.Pad), f); err != nil {
		f.Close()
		os.Remove(c.Out)
		return err
	}

	return f.Close()
}

type WaveformCmd struct {
	Pad     int `arg:"" help:"Pad number"`
	Buckets int `short:"b" default:"60" help:"Number of columns"`
}

func (c *WaveformCmd) Run(a *app) error {
	env, err := a.open(false).Waveform(bank.PadID(c.Pad), c.Buckets)
	if err != nil {
		return err
	}

	fmt.Println(sparkline(env))
	return nil
}

type ListCmd struct{}

func (c *ListCmd) Run(a *app) error {
	entries, err := a.catalog.List()
	if err != nil {
		return err
	}
	listed := make(map[bank.PadID]bool, len(entries))

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PAD\tDURATION\tSOURCE\tTRIM\tRECORDED")
	for _, e := range entries {
		listed[e.Pad] = true

		trim := "-"
		if e.Trimmed() {
			trim = fmt.Sprintf("%.2f..%.2f", e.TrimStart, e.TrimEnd)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", int(e.Pad), e.Duration, e.Source, trim,
			e.RecordedAt.Format(time.DateTime))
	}

	// files without metadata, e.g. copied into the data directory by hand
	pads, err := a.bank.Pads()
	if err != nil {
		return err
	}
	for _, pad := range pads {
		if !listed[pad] {
			fmt.Fprintf(w, "%d\t?\t-\t-\t-\n", int(pad))
		}
	}

	return w.Flush()
}

type TrimCmd struct {
	Pad   int     `arg:"" help:"Pad number"`
	Start float64 `arg:"" help:"Start, as a fraction of the sample"`
	End   float64 `arg:"" help:"End, as a fraction of the sample"`
}

func (c *TrimCmd) Run(a *app) error {
	return a.open(false).SetTrim(bank.PadID(c.Pad), c.Start, c.End)
}

type ClearCmd struct {
	Pads []int `arg:"" optional:"" help:"Pads to clear"`
	All  bool  `help:"Clear every pad"`
}

func (c *ClearCmd) Run(a *app) error {
	e := a.open(false)

	if c.All {
		return e.ClearAll()
	}
	if len(c.Pads) == 0 {
		return errNothingToClear
	}

	var errs []error
	for _, pad := range c.Pads {
		errs = append(errs, e.ClearPad(bank.PadID(pad)))
	}

	return errors.Join(errs...)
}

type InspectCmd struct {
	File    string `arg:"" type:"existingfile" help:"Audio file"`
	Buckets int    `short:"b" default:"60" help:"Waveform columns"`
}

func (c *InspectCmd) Run(a *app) error {
	samples, from, err := padsampler.DecodeFile(padsampler.DefaultRegistry(), c.File, a.cfg.AlwaysConvert)
	if err != nil {
		return err
	}

	levels := dsp.Measure(samples)
	fmt.Printf("format:   %s\n", from)
	fmt.Printf("duration: %s\n", audio.Canonical.Duration(len(samples)).Round(time.Millisecond))
	fmt.Printf("peak:     %.1f dBFS\n", levels.PeakDBFS)
	fmt.Printf("rms:      %.1f dBFS\n", levels.RMSDBFS)
	fmt.Printf("dc:       %.4f\n", levels.DC)
	fmt.Println(sparkline(dsp.ExtractEnvelope(samples, max(1, c.Buckets))))

	return nil
}

var bars = []rune(" ▁▂▃▄▅▆▇█")

// sparkline draws one bar per bucket, scaled to the bucket's peak.
func sparkline(env dsp.Envelope) string {
	var sb strings.Builder
	for i := range env.Len() {
		peak := max(env.Max[i], -env.Min[i])
		idx := int(peak * float32(len(bars)-1))
		sb.WriteRune(bars[min(max(idx, 0), len(bars)-1)])
	}
	return sb.String()
}
