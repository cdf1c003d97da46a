package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "texdemo.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, defaultConfig(), cfg)
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
workers = 2

[window]
title = "tiles"
width = 1024

[[textures]]
name = "brick"
path = "brick.png"
wrap = "repeat"

[[textures]]
name = "sky"
path = "sky.hdr"
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, "tiles", cfg.Window.Title)
	assert.Equal(t, 1024, cfg.Window.Width)
	assert.Equal(t, 600, cfg.Window.Height)
	assert.Equal(t, float64(18), cfg.FontSize)
	require.Len(t, cfg.Textures, 2)
	assert.Equal(t, TextureConfig{Name: "brick", Path: "brick.png", Wrap: "repeat"}, cfg.Textures[0])
	assert.Empty(t, cfg.Textures[1].Wrap)
}

func TestLoadConfigErrors(t *testing.T) {
	for name, body := range map[string]string{
		"bad wrap":    "[[textures]]\nname = \"a\"\npath = \"a.png\"\nwrap = \"tile\"\n",
		"duplicate":   "[[textures]]\nname = \"a\"\npath = \"a.png\"\n[[textures]]\nname = \"a\"\npath = \"b.png\"\n",
		"no path":     "[[textures]]\nname = \"a\"\n",
		"window":      "[window]\nwidth = 0\n",
		"placeholder": "placeholder_size = -1\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, body))
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}

	_, err := LoadConfig(writeConfig(t, "colour = \"red\"\n"))
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidConfig)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
