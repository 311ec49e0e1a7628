package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/spaghettifunk/vkbase/engine/core"
)

// Config is the whole application configuration. It is created once in main
// and handed down to every component that needs a value from it.
type Config struct {
	Window   WindowConfig   `toml:"window" yaml:"window"`
	Renderer RendererConfig `toml:"renderer" yaml:"renderer"`
	Log      LogConfig      `toml:"log" yaml:"log"`
	Assets   AssetsConfig   `toml:"assets" yaml:"assets"`
	Example  ExampleConfig  `toml:"example" yaml:"example"`
}

type WindowConfig struct {
	Title  string `toml:"title" yaml:"title"`
	Width  uint32 `toml:"width" yaml:"width"`
	Height uint32 `toml:"height" yaml:"height"`
	X      int32  `toml:"x" yaml:"x"`
	Y      int32  `toml:"y" yaml:"y"`
}

type RendererConfig struct {
	FramesInFlight int        `toml:"frames_in_flight" yaml:"frames_in_flight"`
	Validation     bool       `toml:"validation" yaml:"validation"`
	VSync          bool       `toml:"vsync" yaml:"vsync"`
	ClearColor     [4]float32 `toml:"clear_color" yaml:"clear_color"`
}

type LogConfig struct {
	Level string `toml:"level" yaml:"level"`
}

type AssetsConfig struct {
	Dir   string `toml:"dir" yaml:"dir"`
	Watch bool   `toml:"watch" yaml:"watch"`
}

type ExampleConfig struct {
	Name string `toml:"name" yaml:"name"`
	// Model and Texture are relative to the assets directory.
	Model     string `toml:"model" yaml:"model"`
	Texture   string `toml:"texture" yaml:"texture"`
	Scene     string `toml:"scene" yaml:"scene"`
	Font      string `toml:"font" yaml:"font"`
	Instances int    `toml:"instances" yaml:"instances"`
	Seed      uint64 `toml:"seed" yaml:"seed"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Window: WindowConfig{
			Title:  "vkbase",
			Width:  1280,
			Height: 720,
			X:      100,
			Y:      100,
		},
		Renderer: RendererConfig{
			FramesInFlight: 2,
			Validation:     false,
			VSync:          true,
			ClearColor:     [4]float32{0.025, 0.025, 0.025, 1.0},
		},
		Log: LogConfig{
			Level: "info",
		},
		Assets: AssetsConfig{
			Dir:   "assets",
			Watch: true,
		},
		Example: ExampleConfig{
			Name:      "viewer",
			Model:     "models/viking_room.obj",
			Texture:   "textures/viking_room.png",
			Scene:     "models/scene.gltf",
			Font:      "fonts/ui.fnt",
			Instances: 256,
			Seed:      1,
		},
	}
}

// Load reads path over the defaults. Files ending in .yaml or .yml are YAML,
// everything else TOML. A missing file is not an error and yields the
// defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			core.LogInfo("config file %s not found, using defaults", path)
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	parse := Parse
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		parse = ParseYAML
	}
	if err := parse(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes TOML data into cfg. Unknown keys are rejected.
func Parse(data []byte, cfg *Config) error {
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			row, col := derr.Position()
			return fmt.Errorf("line %d column %d: %w", row, col, err)
		}
		return err
	}
	return cfg.Validate()
}

// ParseYAML is Parse for YAML documents.
func ParseYAML(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return cfg.Validate()
}

func (c *Config) Validate() error {
	if c.Window.Width == 0 || c.Window.Height == 0 {
		return fmt.Errorf("window size must be non-zero, got %dx%d", c.Window.Width, c.Window.Height)
	}
	if c.Renderer.FramesInFlight < 1 {
		return fmt.Errorf("renderer.frames_in_flight must be at least 1, got %d", c.Renderer.FramesInFlight)
	}
	if c.Example.Name == "" {
		return errors.New("example.name must be set")
	}
	if c.Example.Instances < 1 {
		return fmt.Errorf("example.instances must be at least 1, got %d", c.Example.Instances)
	}
	return nil
}

// Encode renders the configuration back to TOML.
func (c *Config) Encode() ([]byte, error) {
	return toml.Marshal(c)
}
