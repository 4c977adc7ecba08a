// SPDX-License-Identifier: EPL-2.0

// Package config loads padsampler settings from the environment and an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ik5/padsampler/engine"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

var ErrInvalid = errors.New("invalid configuration")

const envPrefix = "PADSAMPLER_"

type Config struct {
	DataDir          string
	CatalogPath      string
	Voices           int
	Pads             int
	MaxRecord        time.Duration
	PreviewInterval  time.Duration
	PreviewBuckets   int
	AlwaysConvert    bool
	SilenceThreshold float32
	TargetPeak       float32
	LogLevel         logrus.Level
}

func Default() *Config {
	return &Config{
		DataDir:          "./pads",
		Voices:           8,
		Pads:             88,
		MaxRecord:        10 * time.Second,
		PreviewInterval:  60 * time.Millisecond,
		PreviewBuckets:   64,
		SilenceThreshold: 0.02,
		TargetPeak:       0.89,
		LogLevel:         logrus.InfoLevel,
	}
}

// Load reads files (".env" when none are given) into the environment
// without overriding variables that are already set, then builds a
// Config from PADSAMPLER_* variables. Missing files are ignored.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("loading %s: %w", f, err)
		}
	}

	d := Default()
	cfg := &Config{
		DataDir:          getEnvOrDefault("DATA_DIR", d.DataDir),
		Voices:           getEnvAsIntOrDefault("VOICES", d.Voices),
		Pads:             getEnvAsIntOrDefault("PADS", d.Pads),
		MaxRecord:        time.Duration(getEnvAsFloatOrDefault("MAX_RECORD_SECONDS", d.MaxRecord.Seconds()) * float64(time.Second)),
		PreviewInterval:  time.Duration(getEnvAsIntOrDefault("PREVIEW_MS", int(d.PreviewInterval.Milliseconds()))) * time.Millisecond,
		PreviewBuckets:   getEnvAsIntOrDefault("PREVIEW_BUCKETS", d.PreviewBuckets),
		AlwaysConvert:    getEnvAsBoolOrDefault("ALWAYS_CONVERT", d.AlwaysConvert),
		SilenceThreshold: float32(getEnvAsFloatOrDefault("SILENCE_THRESHOLD", float64(d.SilenceThreshold))),
		TargetPeak:       float32(getEnvAsFloatOrDefault("TARGET_PEAK", float64(d.TargetPeak))),
		LogLevel:         d.LogLevel,
	}
	cfg.CatalogPath = getEnvOrDefault("CATALOG", filepath.Join(cfg.DataDir, "catalog.db"))

	if lvl := os.Getenv(envPrefix + "LOG_LEVEL"); lvl != "" {
		parsed, err := logrus.ParseLevel(lvl)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
		}
		cfg.LogLevel = parsed
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	var problems []string

	if c.DataDir == "" {
		problems = append(problems, "data dir is empty")
	}
	if c.Voices < 1 {
		problems = append(problems, fmt.Sprintf("voices must be positive, got %d", c.Voices))
	}
	if c.Pads < 1 {
		problems = append(problems, fmt.Sprintf("pads must be positive, got %d", c.Pads))
	}
	if c.MaxRecord <= 0 {
		problems = append(problems, fmt.Sprintf("max record duration must be positive, got %s", c.MaxRecord))
	}
	if c.PreviewInterval < 0 {
		problems = append(problems, "preview interval is negative")
	}
	if c.PreviewBuckets < 1 {
		problems = append(problems, fmt.Sprintf("preview buckets must be positive, got %d", c.PreviewBuckets))
	}
	if c.SilenceThreshold < 0 || c.SilenceThreshold >= 1 {
		problems = append(problems, fmt.Sprintf("silence threshold %.3f outside [0, 1)", c.SilenceThreshold))
	}
	if c.TargetPeak <= 0 || c.TargetPeak > 1 {
		problems = append(problems, fmt.Sprintf("target peak %.3f outside (0, 1]", c.TargetPeak))
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
	}

	return nil
}

// Engine maps the settings onto an engine configuration.
func (c *Config) Engine() engine.Config {
	cfg := engine.DefaultConfig()
	cfg.Voices = c.Voices
	cfg.Pads = c.Pads
	cfg.MaxRecord = c.MaxRecord
	cfg.PreviewInterval = c.PreviewInterval
	cfg.PreviewBuckets = c.PreviewBuckets
	cfg.AlwaysConvert = c.AlwaysConvert
	cfg.Processing.SilenceThreshold = c.SilenceThreshold
	cfg.Processing.TargetPeak = c.TargetPeak

	return cfg
}

// NewLogger returns a text logger at the configured level.
func (c *Config) NewLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(c.LogLevel)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	return log
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(envPrefix + key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsIntOrDefault(key string, defaultValue int) int {
	value, err := strconv.Atoi(os.Getenv(envPrefix + key))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloatOrDefault(key string, defaultValue float64) float64 {
	value, err := strconv.ParseFloat(os.Getenv(envPrefix+key), 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBoolOrDefault(key string, defaultValue bool) bool {
	value, err := strconv.ParseBool(os.Getenv(envPrefix + key))
	if err != nil {
		return defaultValue
	}
	return value
}
