// Package config loads padsynth settings from the environment.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/roach88/padsynth/internal/curve"
	"github.com/roach88/padsynth/internal/playback"
)

// Config holds process settings. Command-line flags override these values.
type Config struct {
	SampleRate int           `env:"PADSYNTH_SAMPLE_RATE"    envDefault:"48000"`
	Headless   bool          `env:"PADSYNTH_HEADLESS"       envDefault:"false"`
	DBPath     string        `env:"PADSYNTH_DB"`
	LogLevel   string        `env:"PADSYNTH_LOG_LEVEL"      envDefault:"warn"`
	FreqLo     float64       `env:"PADSYNTH_FREQ_LO"        envDefault:"40"`
	FreqHi     float64       `env:"PADSYNTH_FREQ_HI"        envDefault:"3000"`
	Permission string        `env:"PADSYNTH_PERMISSION"     envDefault:"granted"`
	Duration   time.Duration `env:"PADSYNTH_DURATION"       envDefault:"0s"`
	ScreenW    float32       `env:"PADSYNTH_SCREEN_WIDTH"   envDefault:"1920"`
	ScreenH    float32       `env:"PADSYNTH_SCREEN_HEIGHT"  envDefault:"1080"`
}

// Load parses the environment and validates the result.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("sample rate must be positive, got %d", c.SampleRate)
	}
	if _, err := c.FrequencyRange(); err != nil {
		return fmt.Errorf("frequency range: %w", err)
	}
	if _, err := c.InitialPermission(); err != nil {
		return err
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.ScreenW <= 0 || c.ScreenH <= 0 {
		return fmt.Errorf("screen size must be positive, got %gx%g", c.ScreenW, c.ScreenH)
	}
	return nil
}

// FrequencyRange returns the range of the frequency slider.
func (c Config) FrequencyRange() (curve.Range, error) {
	return curve.NewRange(c.FreqLo, c.FreqHi)
}

// InitialPermission returns the permission state sessions start with.
func (c Config) InitialPermission() (playback.PermissionState, error) {
	return playback.ParsePermission(c.Permission)
}

// Level returns the configured log level, or warn if it is invalid.
func (c Config) Level() slog.Level {
	l, err := ParseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelWarn
	}
	return l
}

// ParseLevel accepts debug, info, warn and error in any case.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelWarn, fmt.Errorf("log level %q: %w", s, err)
	}
	return l, nil
}
