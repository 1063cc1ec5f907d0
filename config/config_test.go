package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bb84sim.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	assert.NoError(t, Default().Validate())
	assert.Equal(t, 5*time.Millisecond, Default().Simulation.Interval())
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
seed: 42
log_level: debug
simulation:
  photon_count: 512
  speed: slow
  eavesdropper: true
analysis:
  sample_size: 64
  threshold_percent: 15
encryption:
  format: base64
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, int64(42), cfg.Seed)
	assert.Equal(t, 512, cfg.Simulation.PhotonCount)
	assert.Equal(t, 100*time.Millisecond, cfg.Simulation.Interval())
	assert.True(t, cfg.Simulation.Eavesdropper)
	assert.Equal(t, 64, cfg.Analysis.SampleSize)
	assert.Equal(t, 15.0, cfg.Analysis.ThresholdPercent)
	assert.Equal(t, "base64", cfg.Encryption.Format)

	// Unset fields keep their defaults.
	assert.Equal(t, 256, cfg.Simulation.TargetKeyBits)
	assert.Equal(t, 256, cfg.Analysis.PhotonCount)
	assert.Equal(t, 0.95, cfg.Analysis.Confidence)
}

func TestLoadRejects(t *testing.T) {
	tcs := []struct {
		name string
		body string
	}{
		{"photon count off menu", "simulation:\n  photon_count: 300\n"},
		{"unknown speed", "simulation:\n  speed: ludicrous\n"},
		{"threshold over 100", "analysis:\n  threshold_percent: 101\n"},
		{"negative threshold", "analysis:\n  threshold_percent: -1\n"},
		{"non-numeric sample", "analysis:\n  sample_size: lots\n"},
		{"negative sample", "analysis:\n  sample_size: -3\n"},
		{"unknown key", "simulation:\n  photons: 256\n"},
		{"bad format", "encryption:\n  format: rot13\n"},
		{"not yaml", "simulation: [\n"},
	}
	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.body))
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestValidate(t *testing.T) {
	tcs := []struct {
		name   string
		mutate func(*Config)
	}{
		{"photon count", func(c *Config) { c.Simulation.PhotonCount = 0 }},
		{"speed", func(c *Config) { c.Simulation.Speed = "" }},
		{"target", func(c *Config) { c.Simulation.TargetKeyBits = 0 }},
		{"convention", func(c *Config) { c.Simulation.KeyConvention = "eve" }},
		{"analysis photons", func(c *Config) { c.Analysis.PhotonCount = 100 }},
		{"sample", func(c *Config) { c.Analysis.SampleSize = -1 }},
		{"threshold", func(c *Config) { c.Analysis.ThresholdPercent = 100.5 }},
		{"confidence", func(c *Config) { c.Analysis.Confidence = 1 }},
		{"format", func(c *Config) { c.Encryption.Format = "bin" }},
		{"log level", func(c *Config) { c.LogLevel = "loud" }},
	}
	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalid)
		})
	}
}
