// Package config loads particle system presets and runtime settings.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"sort"

	"github.com/gekko3d/particles/core"
	"github.com/go-gl/mathgl/mgl32"
	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type Config struct {
	Runtime  RuntimeConfig            `yaml:"runtime"`
	Systems  map[string]core.Settings `yaml:"systems"`
	Emitters []EmitterConfig          `yaml:"emitters"`
}

type RuntimeConfig struct {
	RetireDelay uint64  `yaml:"retire_delay"`
	FixedDt     float64 `yaml:"fixed_dt"` // seconds; 0 follows the wall clock
	LogPrefix   string  `yaml:"log_prefix"`
	Debug       bool    `yaml:"debug"`
}

// EmitterConfig places a trail emitter feeding one named system. The emitter
// starts at Position and moves with constant Velocity.
type EmitterConfig struct {
	System             string     `yaml:"system"`
	ParticlesPerSecond float64    `yaml:"particles_per_second"`
	Position           mgl32.Vec3 `yaml:"position"`
	Velocity           mgl32.Vec3 `yaml:"velocity"`
}

// Default returns the embedded configuration.
func Default() (*Config, error) {
	return Load("")
}

// Load reads the embedded defaults and overlays the file at path, if any.
// Systems in the file are merged over the default preset of the same name,
// or over core.DefaultSettings for a new name.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := cfg.merge(data); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.computeDerived()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) merge(data []byte) error {
	var overlay struct {
		Runtime  yaml.Node            `yaml:"runtime"`
		Systems  map[string]yaml.Node `yaml:"systems"`
		Emitters *[]EmitterConfig     `yaml:"emitters"`
	}
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return err
	}
	if overlay.Runtime.Kind != 0 {
		if err := overlay.Runtime.Decode(&c.Runtime); err != nil {
			return fmt.Errorf("runtime: %w", err)
		}
	}
	for name, node := range overlay.Systems {
		s, ok := c.Systems[name]
		if !ok {
			s = core.DefaultSettings()
		}
		if err := node.Decode(&s); err != nil {
			return fmt.Errorf("system %q: %w", name, err)
		}
		if c.Systems == nil {
			c.Systems = make(map[string]core.Settings)
		}
		c.Systems[name] = s
	}
	if overlay.Emitters != nil {
		c.Emitters = *overlay.Emitters
	}
	return nil
}

func (c *Config) computeDerived() {
	for name, s := range c.Systems {
		if s.Name == "" {
			s.Name = name
			c.Systems[name] = s
		}
	}
}

func (c *Config) Validate() error {
	for _, name := range c.SystemNames() {
		if err := c.Systems[name].Validate(); err != nil {
			return err
		}
	}
	for i, e := range c.Emitters {
		if _, ok := c.Systems[e.System]; !ok {
			return fmt.Errorf("emitter %d: unknown system %q", i, e.System)
		}
		if e.ParticlesPerSecond < 0 {
			return fmt.Errorf("emitter %d: negative particles_per_second", i)
		}
	}
	return nil
}

// System returns the named preset.
func (c *Config) System(name string) (core.Settings, bool) {
	s, ok := c.Systems[name]
	return s, ok
}

// SystemNames lists the configured systems in a stable order.
func (c *Config) SystemNames() []string {
	names := make([]string, 0, len(c.Systems))
	for name := range c.Systems {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// WriteYAML saves the configuration to path.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Select drops every system except name, along with the emitters feeding the
// dropped systems.
func (c *Config) Select(name string) error {
	s, ok := c.Systems[name]
	if !ok {
		return fmt.Errorf("unknown system %q", name)
	}
	c.Systems = map[string]core.Settings{name: s}

	kept := c.Emitters[:0]
	for _, e := range c.Emitters {
		if e.System == name {
			kept = append(kept, e)
		}
	}
	c.Emitters = kept
	return nil
}
