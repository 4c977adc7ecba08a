// SPDX-License-Identifier: EPL-2.0

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PADSAMPLER_DATA_DIR", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, Default().Voices, cfg.Voices)
	assert.Equal(t, 88, cfg.Pads)
	assert.Equal(t, 10*time.Second, cfg.MaxRecord)
	assert.Equal(t, 60*time.Millisecond, cfg.PreviewInterval)
	assert.Equal(t, filepath.Join("./pads", "catalog.db"), cfg.CatalogPath)
	assert.Equal(t, logrus.InfoLevel, cfg.LogLevel)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PADSAMPLER_DATA_DIR", "/tmp/pads")
	t.Setenv("PADSAMPLER_VOICES", "16")
	t.Setenv("PADSAMPLER_MAX_RECORD_SECONDS", "2.5")
	t.Setenv("PADSAMPLER_PREVIEW_MS", "0")
	t.Setenv("PADSAMPLER_ALWAYS_CONVERT", "true")
	t.Setenv("PADSAMPLER_LOG_LEVEL", "debug")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "/tmp/pads", cfg.DataDir)
	assert.Equal(t, "/tmp/pads/catalog.db", cfg.CatalogPath)
	assert.Equal(t, 16, cfg.Voices)
	assert.Equal(t, 2500*time.Millisecond, cfg.MaxRecord)
	assert.Zero(t, cfg.PreviewInterval)
	assert.True(t, cfg.AlwaysConvert)
	assert.Equal(t, logrus.DebugLevel, cfg.NewLogger().GetLevel())
}

func TestLoad_DotEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("PADSAMPLER_PADS=16\nPADSAMPLER_TARGET_PEAK=0.5\n"), 0o600))

	// already-set variables win over the file
	t.Setenv("PADSAMPLER_PADS", "32")
	t.Setenv("PADSAMPLER_TARGET_PEAK", "")
	require.NoError(t, os.Unsetenv("PADSAMPLER_TARGET_PEAK"))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 32, cfg.Pads)
	assert.InDelta(t, 0.5, cfg.TargetPeak, 1e-6)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"PADSAMPLER_VOICES", "0"},
		{"PADSAMPLER_PADS", "-1"},
		{"PADSAMPLER_TARGET_PEAK", "1.5"},
		{"PADSAMPLER_SILENCE_THRESHOLD", "-0.1"},
		{"PADSAMPLER_LOG_LEVEL", "chatty"},
		{"PADSAMPLER_MAX_RECORD_SECONDS", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestConfig_Engine(t *testing.T) {
	cfg := Default()
	cfg.Voices = 4
	cfg.MaxRecord = 3 * time.Second
	cfg.PreviewInterval = 0
	cfg.TargetPeak = 0.5

	ec := cfg.Engine()
	assert.Equal(t, 4, ec.Voices)
	assert.Equal(t, 88, ec.Pads)
	assert.Equal(t, 3*time.Second, ec.MaxRecord)
	assert.Zero(t, ec.PreviewInterval)
	assert.InDelta(t, 0.5, ec.Processing.TargetPeak, 1e-9)
	assert.InDelta(t, 0.02, ec.Processing.SilenceThreshold, 1e-6)
	assert.Equal(t, 1024, ec.Processing.EnvelopeBuckets)
}
