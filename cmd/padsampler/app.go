// SPDX-License-Identifier: EPL-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/ik5/padsampler"
	"github.com/ik5/padsampler/audio"
	"github.com/ik5/padsampler/bank"
	"github.com/ik5/padsampler/device"
	"github.com/ik5/padsampler/engine"
	"github.com/ik5/padsampler/formats/adpcm"
	"github.com/ik5/padsampler/internal/catalog"
	"github.com/ik5/padsampler/internal/config"
	"github.com/sirupsen/logrus"
)

// app holds what every command shares. The engine is only built on
// demand since most commands never touch the audio devices.
type app struct {
	cfg     *config.Config
	log     *logrus.Logger
	bank    *bank.Bank
	catalog *catalog.Catalog

	engine  *engine.Engine
	capture *device.Capture
}

func newApp(envFile string) (*app, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, err
	}
	log := cfg.NewLogger()

	cat, err := catalog.Open(cfg.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("opening catalog: %w", err)
	}

	b := bank.New(bank.NewDirStorage(cfg.DataDir), adpcm.Codec{}, bank.WithLogger(log))

	return &app{cfg: cfg, log: log, bank: b, catalog: cat}, nil
}

// silentOutput accepts the mixer without ever pulling from it.
type silentOutput struct{}

func (silentOutput) Start(io.Reader) error { return nil }
func (silentOutput) Stop() error           { return nil }
func (silentOutput) Close() error          { return nil }

// open builds the engine. With withDevices false no hardware is opened.
func (a *app) open(withDevices bool, tweaks ...func(*engine.Config)) *engine.Engine {
	if a.engine != nil {
		return a.engine
	}

	opts := []engine.Option{
		engine.WithLogger(a.log),
		engine.WithCatalog(a.catalog),
		engine.WithRegistry(padsampler.DefaultRegistry()),
	}

	var (
		out     engine.Output = silentOutput{}
		capture engine.Capture
	)
	if withDevices {
		out = device.NewOutput(audio.Canonical.SampleRate, 0, a.log)

		c, err := device.NewCapture(a.log)
		if err != nil {
			a.log.WithError(err).Warn("no capture device, recording disabled")
		} else {
			a.capture = c
			capture = c
		}
	}

	cfg := a.cfg.Engine()
	for _, tweak := range tweaks {
		tweak(&cfg)
	}

	a.engine = engine.New(cfg, out, capture, a.bank, opts...)

	return a.engine
}

// preload warms the cache with every stored pad.
func (a *app) preload(ctx context.Context) {
	pads, err := a.bank.Pads()
	if err != nil {
		a.log.WithError(err).Warn("listing pads")
		return
	}
	if err := a.bank.Preload(ctx, pads); err != nil {
		a.log.WithError(err).Warn("preloading pads")
	}
}

func (a *app) Close() error {
	var errs []error
	if a.engine != nil {
		errs = append(errs, a.engine.Close())
	}
	if a.capture != nil {
		errs = append(errs, a.capture.Close())
	}
	errs = append(errs, a.catalog.Close())

	return errors.Join(errs...)
}
