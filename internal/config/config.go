package config

import (
	"fmt"
	"math"
	"os"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	InputPath       string  `yaml:"input"`
	OutputVideo     string  `yaml:"output"`
	Width           int     `yaml:"width"`
	Height          int     `yaml:"height"`
	FPS             int     `yaml:"fps"`
	Workers         int     `yaml:"workers"`
	ZoomSize        float64 `yaml:"zoom_size"`
	FadeDuration    float64 `yaml:"fade"`      // seconds
	DisplayDuration float64 `yaml:"display"`   // seconds, 0 = automatic
	Direction       string  `yaml:"direction"` // in, out, alternate
	ZoomMode        string  `yaml:"zoom_mode"` // center, top-left, ..., random, smart
	Seed            int64   `yaml:"seed"`
	Cycles          int     `yaml:"cycles"`   // passes over the sequence
	TotalDuration   float64 `yaml:"duration"` // seconds, overrides Cycles when > 0
	DPI             int     `yaml:"dpi"`
	AudioPath       string  `yaml:"audio"`
	AudioSync       bool    `yaml:"audio_sync"`
	Preset          string  `yaml:"preset"`
	VideoEncoder    string  `yaml:"encoder"`
	Quality         int     `yaml:"quality"`
	Backend         string  `yaml:"backend"` // compose, filter
	EndCardURL      string  `yaml:"endcard_url"`
	ShowStats       bool    `yaml:"stats"`
	Storyboard      bool    `yaml:"storyboard"` // write a YAML storyboard next to the video
	BuildVersion    string  `yaml:"-"`
}

type SegmentParams struct {
	Width, Height int
	FPS           int
	Start         float64 // seconds from the beginning of the video
	Duration      float64
	FadeDuration  float64
	ZoomFrom      float64
	ZoomTo        float64
	AnchorX       float64
	AnchorY       float64
	Index         int
	Filter        string
}

// Default returns the configuration used when nothing is specified.
func Default() *Config {
	return &Config{
		Width:        1280,
		Height:       720,
		FPS:          30,
		Workers:      runtime.NumCPU(),
		ZoomSize:     2.2,
		FadeDuration: 1.0,
		Direction:    "in",
		ZoomMode:     "center",
		Cycles:       1,
		DPI:          150,
		AudioSync:    true,
		Quality:      0,
		Backend:      "compose",
	}
}

// Load reads a YAML file on top of the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ApplyPreset replaces the frame size with a named aspect preset.
func (c *Config) ApplyPreset() {
	switch c.Preset {
	case "16:9":
		c.Width, c.Height = 1280, 720
	case "9:16":
		c.Width, c.Height = 720, 1280
	case "4:5":
		c.Width, c.Height = 1080, 1350
	}
}

// Normalize clamps out-of-range values and returns a note for each change.
func (c *Config) Normalize() []string {
	var notes []string

	if c.ZoomSize < 1 || math.IsNaN(c.ZoomSize) || math.IsInf(c.ZoomSize, 0) {
		notes = append(notes, fmt.Sprintf("zoom %.2f < 1, using 1.0", c.ZoomSize))
		c.ZoomSize = 1
	}
	if c.FadeDuration < 0 {
		notes = append(notes, fmt.Sprintf("fade %.2fs < 0, using 0", c.FadeDuration))
		c.FadeDuration = 0
	}
	if c.DisplayDuration < 0 {
		c.DisplayDuration = 0
	}
	if c.DisplayDuration > 0 && c.DisplayDuration < c.FadeDuration {
		notes = append(notes, fmt.Sprintf("display %.2fs shorter than fade, using %.2fs", c.DisplayDuration, c.FadeDuration))
		c.DisplayDuration = c.FadeDuration
	}
	if c.FPS <= 0 {
		c.FPS = 30
	}
	if c.Workers <= 0 {
		c.Workers = 1
	}
	if c.Cycles <= 0 {
		c.Cycles = 1
	}
	if c.Width <= 0 || c.Height <= 0 {
		d := Default()
		notes = append(notes, fmt.Sprintf("frame size %dx%d is invalid, using %dx%d", c.Width, c.Height, d.Width, d.Height))
		c.Width, c.Height = d.Width, d.Height
	}
	if c.Width%2 != 0 {
		c.Width++
	}
	if c.Height%2 != 0 {
		c.Height++
	}

	c.Direction = strings.ToLower(c.Direction)
	switch c.Direction {
	case "in", "out", "alternate":
	default:
		notes = append(notes, fmt.Sprintf("unknown direction %q, using in", c.Direction))
		c.Direction = "in"
	}

	c.Backend = strings.ToLower(c.Backend)
	if c.Backend != "compose" && c.Backend != "filter" {
		notes = append(notes, fmt.Sprintf("unknown backend %q, using compose", c.Backend))
		c.Backend = "compose"
	}
	return notes
}

func (c *Config) Fade() time.Duration {
	return seconds(c.FadeDuration)
}

func (c *Config) Display() time.Duration {
	return seconds(c.DisplayDuration)
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
