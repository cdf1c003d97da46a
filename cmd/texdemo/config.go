package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/braheezy/gltex/gpu"
	"github.com/braheezy/gltex/texture"
	"github.com/pelletier/go-toml/v2"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Window WindowConfig `toml:"window"`
	// PlaceholderSize is the side of the opaque padding buffer.
	PlaceholderSize int `toml:"placeholder_size"`
	// Workers bounds the number of concurrent image decodes.
	Workers  int             `toml:"workers"`
	FontSize float64         `toml:"font_size"`
	Textures []TextureConfig `toml:"textures"`
}

type WindowConfig struct {
	Width  int    `toml:"width"`
	Height int    `toml:"height"`
	Title  string `toml:"title"`
}

type TextureConfig struct {
	Name string `toml:"name"`
	Path string `toml:"path"`
	// Wrap is one of "clamp", "repeat" or "mirror".
	Wrap string `toml:"wrap"`
}

func defaultConfig() *Config {
	return &Config{
		Window: WindowConfig{
			Width:  800,
			Height: 600,
			Title:  "texdemo",
		},
		PlaceholderSize: texture.DefaultPlaceholderSize,
		Workers:         4,
		FontSize:        18,
	}
}

// LoadConfig reads the TOML file at path over the defaults. An empty
// path returns the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.Window.Width < 1, c.Window.Height < 1:
		return fmt.Errorf("%w: window size %dx%d", ErrInvalidConfig, c.Window.Width, c.Window.Height)
	case c.PlaceholderSize < 1:
		return fmt.Errorf("%w: placeholder_size %d", ErrInvalidConfig, c.PlaceholderSize)
	case c.FontSize <= 0:
		return fmt.Errorf("%w: font_size %v", ErrInvalidConfig, c.FontSize)
	}
	seen := make(map[string]bool, len(c.Textures))
	for i, t := range c.Textures {
		if t.Name == "" || t.Path == "" {
			return fmt.Errorf("%w: texture %d needs a name and a path", ErrInvalidConfig, i)
		}
		if seen[t.Name] {
			return fmt.Errorf("%w: duplicate texture %q", ErrInvalidConfig, t.Name)
		}
		seen[t.Name] = true
		if _, err := gpu.ParseWrapMode(t.Wrap); err != nil {
			return fmt.Errorf("%w: texture %q: %v", ErrInvalidConfig, t.Name, err)
		}
	}
	return nil
}
