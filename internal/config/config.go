// Package config loads the controller configuration from a YAML file.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/goccy/go-yaml"
	"github.com/hashicorp/go-multierror"

	"github.com/ayusman/mudra/internal/audio"
	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/midi"
	"github.com/ayusman/mudra/internal/render"
	"github.com/ayusman/mudra/internal/signal"
	"github.com/ayusman/mudra/internal/spectrum"
	"github.com/ayusman/mudra/internal/store"
)

// DefaultPath is used when no --config flag is given.
const DefaultPath = "~/.mudra.yaml"

// DefaultWindowTitle is the title of the preview window.
const DefaultWindowTitle = "mudra"

// Config is the complete controller configuration.
type Config struct {
	Capture  capture.Config  `yaml:"capture"`
	Detector detector.Config `yaml:"detector"`
	Signal   signal.Config   `yaml:"signal"`
	Audio    audio.Config    `yaml:"audio"`
	MIDI     midi.Config     `yaml:"midi"`
	Render   render.Config   `yaml:"render"`
	Spectrum Spectrum        `yaml:"spectrum"`
	Window   Window          `yaml:"window"`
	Server   Server          `yaml:"server"`
	Record   Record          `yaml:"record"`
}

// Spectrum configures the overlay bars.
type Spectrum struct {
	Bars int `yaml:"bars"`
}

// Window configures the local preview.
type Window struct {
	Title string `yaml:"title"`
	// Headless runs without a preview window; stop with SIGINT instead of 'q'.
	Headless bool `yaml:"headless"`
}

// Server configures the HTTP monitor. An empty Addr disables it.
type Server struct {
	Addr      string `yaml:"addr"`
	StaticDir string `yaml:"static_dir"`
}

// Record configures session recording. An empty DBPath disables it.
type Record struct {
	DBPath     string `yaml:"db_path"`
	FlushEvery int    `yaml:"flush_every"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Capture:  capture.DefaultConfig(),
		Detector: detector.DefaultConfig(),
		Signal:   signal.DefaultConfig(),
		Audio:    audio.DefaultConfig(),
		MIDI:     midi.DefaultConfig(),
		Render:   render.DefaultConfig(),
		Spectrum: Spectrum{Bars: spectrum.DefaultBarCount},
		Window:   Window{Title: DefaultWindowTitle},
		Record:   Record{FlushEvery: store.DefaultFlushEvery},
	}
}

// Load reads the file at cfgPath over the defaults. A missing file yields the defaults.
func Load(ctx context.Context, cfgPath string) (Config, error) {
	cfg := Default()

	cfgPath = ExpandPath(cfgPath)
	b, err := os.ReadFile(cfgPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Debugf(ctx, "config '%s' not found, using defaults", cfgPath)
			return cfg, nil
		}
		return cfg, fmt.Errorf("unable to read file '%s': %w", cfgPath, err)
	}

	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("unable to unserialize config '%s': %w", cfgPath, err)
	}
	cfg.Record.DBPath = ExpandPath(cfg.Record.DBPath)
	cfg.Server.StaticDir = ExpandPath(cfg.Server.StaticDir)

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config '%s': %w", cfgPath, err)
	}

	logger.Debugf(ctx, "loaded config from '%s'", cfgPath)
	return cfg, nil
}

// Marshal serializes cfg as YAML.
func Marshal(cfg Config) ([]byte, error) {
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("unable to serialize config: %w", err)
	}
	return b, nil
}

// Write stores cfg at cfgPath. It refuses to overwrite an existing file.
func Write(ctx context.Context, cfgPath string, cfg Config) error {
	cfgPath = ExpandPath(cfgPath)
	if _, err := os.Stat(cfgPath); err == nil {
		return fmt.Errorf("file '%s' already exists", cfgPath)
	}

	b, err := Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(cfgPath, b, 0640); err != nil {
		return fmt.Errorf("unable to write config to file '%s': %w", cfgPath, err)
	}
	logger.Infof(ctx, "wrote config to '%s'", cfgPath)
	return nil
}

// Validate reports every out-of-range value at once.
func (c Config) Validate() error {
	var result *multierror.Error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			result = multierror.Append(result, fmt.Errorf(format, args...))
		}
	}

	// zero is allowed: the signal stage maps it to a control value of 0
	check(c.Signal.MaxDistance >= 0, "signal.max_distance must not be negative, got %v", c.Signal.MaxDistance)
	check(c.Signal.MaxSpeedDistance >= 0, "signal.max_speed_distance must not be negative, got %v", c.Signal.MaxSpeedDistance)
	check(c.Signal.Alpha > 0 && c.Signal.Alpha <= 1, "signal.alpha must be in (0, 1], got %v", c.Signal.Alpha)
	check(c.Audio.SampleRate > 0, "audio.sample_rate must be positive, got %v", c.Audio.SampleRate)
	check(c.Audio.BlockSize > 0, "audio.block_size must be positive, got %d", c.Audio.BlockSize)
	check(c.MIDI.Channel < 16, "midi.channel must be 0-15, got %d", c.MIDI.Channel)
	check(c.MIDI.Port != "", "midi.port must not be empty")
	check(c.Spectrum.Bars > 0, "spectrum.bars must be positive, got %d", c.Spectrum.Bars)
	check(c.Detector.MaxHands > 0, "detector.max_hands must be positive, got %d", c.Detector.MaxHands)
	check(c.Capture.MotionThreshold >= 0, "capture.motion_threshold must not be negative, got %v", c.Capture.MotionThreshold)

	return result.ErrorOrNil()
}

// ExpandPath resolves a leading "~/" against the user's home directory.
func ExpandPath(rawPath string) string {
	if !strings.HasPrefix(rawPath, "~/") {
		return rawPath
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return rawPath
	}
	return path.Join(home, rawPath[2:])
}
