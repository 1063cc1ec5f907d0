// YAML config loader with CUE validation integration
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// ErrInvalid wraps every range or format error found in a configuration.
var ErrInvalid = errors.New("invalid configuration")

// PhotonMenu lists the photon counts a run may be configured with.
var PhotonMenu = []int{128, 256, 512, 720, 1024}

// Speeds maps each pacing name to the delay between photons.
var Speeds = map[string]time.Duration{
	"slow":   100 * time.Millisecond,
	"medium": 20 * time.Millisecond,
	"fast":   5 * time.Millisecond,
}

// Simulation configures the interactive key exchange.
type Simulation struct {
	PhotonCount   int    `yaml:"photon_count"`
	Speed         string `yaml:"speed"`
	TargetKeyBits int    `yaml:"target_key_bits"`
	Eavesdropper  bool   `yaml:"eavesdropper"`
	KeyConvention string `yaml:"key_convention"`
}

// Analysis configures the eavesdropping detection analysis.
type Analysis struct {
	PhotonCount      int     `yaml:"photon_count"`
	SampleSize       int     `yaml:"sample_size"`
	ThresholdPercent float64 `yaml:"threshold_percent"`
	GateOnSample     bool    `yaml:"gate_on_sample"`
	Confidence       float64 `yaml:"confidence"`
}

// Encryption configures the encryption demo.
type Encryption struct {
	Format string `yaml:"format"`
}

// Config is the root configuration.
type Config struct {
	// Seed seeds every simulated party. Zero means seed from the clock.
	Seed       int64      `yaml:"seed"`
	LogLevel   string     `yaml:"log_level"`
	Simulation Simulation `yaml:"simulation"`
	Analysis   Analysis   `yaml:"analysis"`
	Encryption Encryption `yaml:"encryption"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Simulation: Simulation{
			PhotonCount:   1024,
			Speed:         "fast",
			TargetKeyBits: 256,
			KeyConvention: "sender",
		},
		Analysis: Analysis{
			PhotonCount:      256,
			SampleSize:       32,
			ThresholdPercent: 11,
			Confidence:       0.95,
		},
		Encryption: Encryption{Format: "hex"},
	}
}

// Load reads the YAML file at path, validates it against the embedded CUE
// schema, and overlays it onto Default.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := ValidateWithCue(path, data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"path":    path,
		"photons": cfg.Simulation.PhotonCount,
		"speed":   cfg.Simulation.Speed,
	}).Info("Loaded configuration")

	return cfg, nil
}

// Validate range-checks every field of c.
func (c *Config) Validate() error {
	var problems []string
	if !inMenu(c.Simulation.PhotonCount) {
		problems = append(problems, fmt.Sprintf("simulation.photon_count %d not in %v", c.Simulation.PhotonCount, PhotonMenu))
	}
	if _, ok := Speeds[c.Simulation.Speed]; !ok {
		problems = append(problems, fmt.Sprintf("simulation.speed %q not one of slow, medium, fast", c.Simulation.Speed))
	}
	if c.Simulation.TargetKeyBits <= 0 {
		problems = append(problems, fmt.Sprintf("simulation.target_key_bits %d must be positive", c.Simulation.TargetKeyBits))
	}
	if c.Simulation.KeyConvention != "sender" && c.Simulation.KeyConvention != "receiver" {
		problems = append(problems, fmt.Sprintf("simulation.key_convention %q not one of sender, receiver", c.Simulation.KeyConvention))
	}
	if !inMenu(c.Analysis.PhotonCount) {
		problems = append(problems, fmt.Sprintf("analysis.photon_count %d not in %v", c.Analysis.PhotonCount, PhotonMenu))
	}
	if c.Analysis.SampleSize < 0 {
		problems = append(problems, fmt.Sprintf("analysis.sample_size %d must not be negative", c.Analysis.SampleSize))
	}
	if c.Analysis.ThresholdPercent < 0 || c.Analysis.ThresholdPercent > 100 {
		problems = append(problems, fmt.Sprintf("analysis.threshold_percent %v outside [0, 100]", c.Analysis.ThresholdPercent))
	}
	if c.Analysis.Confidence <= 0 || c.Analysis.Confidence >= 1 {
		problems = append(problems, fmt.Sprintf("analysis.confidence %v outside (0, 1)", c.Analysis.Confidence))
	}
	if f := strings.ToLower(c.Encryption.Format); f != "hex" && f != "base64" {
		problems = append(problems, fmt.Sprintf("encryption.format %q not one of hex, base64", c.Encryption.Format))
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		problems = append(problems, fmt.Sprintf("log_level: %v", err))
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
	}
	return nil
}

// Interval returns the delay between photons for the configured speed.
func (s Simulation) Interval() time.Duration {
	return Speeds[s.Speed]
}

func inMenu(n int) bool {
	for _, m := range PhotonMenu {
		if n == m {
			return true
		}
	}
	return false
}
