package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, 2, cfg.Renderer.FramesInFlight)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vkbase.toml")
	data := `
[window]
title = "instancing"
width = 800

[renderer]
frames_in_flight = 3
validation = true

[example]
name = "instancing"
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "instancing", cfg.Window.Title)
	assert.Equal(t, uint32(800), cfg.Window.Width)
	assert.Equal(t, uint32(720), cfg.Window.Height, "unset keys keep their default")
	assert.Equal(t, 3, cfg.Renderer.FramesInFlight)
	assert.True(t, cfg.Renderer.Validation)
	assert.Equal(t, "instancing", cfg.Example.Name)
}

func TestParseRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"zero frames": "[renderer]\nframes_in_flight = 0\n",
		"zero width":  "[window]\nwidth = 0\n",
		"unknown key": "[renderer]\nframes = 2\n",
		"bad syntax":  "[renderer\n",
		"empty name":  "[example]\nname = \"\"\n",
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, Parse([]byte(data), Default()))
		})
	}
}

func TestEncodeRoundTripsDefaults(t *testing.T) {
	data, err := Default().Encode()
	require.NoError(t, err)

	cfg := &Config{}
	require.NoError(t, Parse(data, cfg))
	assert.Equal(t, Default(), cfg)
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vkbase.yaml")
	data := `
renderer:
  frames_in_flight: 3
example:
  name: overlay
  font: fonts/big.fnt
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Renderer.FramesInFlight)
	assert.Equal(t, "overlay", cfg.Example.Name)
	assert.Equal(t, "fonts/big.fnt", cfg.Example.Font)
	assert.Equal(t, uint32(1280), cfg.Window.Width)

	assert.Error(t, ParseYAML([]byte("renderer:\n  frames: 2\n"), Default()), "unknown keys are rejected")
	assert.NoError(t, ParseYAML(nil, Default()), "an empty document keeps the defaults")
}
