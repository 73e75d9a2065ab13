package core

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

var ErrInvalidSettings = errors.New("invalid particle settings")

// Settings describes one particle system. Values the GPU consumes are bound
// to the material once; the CPU only uses the capacity, durations and the
// spawn-time velocity ranges.
type Settings struct {
	Name         string `yaml:"name"`
	Texture      string `yaml:"texture"`
	MaxParticles int    `yaml:"max_particles"`

	Duration           float32 `yaml:"duration"`            // seconds a particle stays active
	DurationRandomness float32 `yaml:"duration_randomness"` // shortens lifetime per particle on the GPU

	// Fraction of the emitter's own velocity inherited by spawned particles.
	EmitterVelocitySensitivity float32 `yaml:"emitter_velocity_sensitivity"`

	MinHorizontalVelocity float32 `yaml:"min_horizontal_velocity"`
	MaxHorizontalVelocity float32 `yaml:"max_horizontal_velocity"`
	MinVerticalVelocity   float32 `yaml:"min_vertical_velocity"`
	MaxVerticalVelocity   float32 `yaml:"max_vertical_velocity"`

	Gravity     mgl32.Vec3 `yaml:"gravity"`
	EndVelocity float32    `yaml:"end_velocity"` // 1 keeps speed, 0 comes to rest

	MinColor mgl32.Vec4 `yaml:"min_color"` // RGBA 0..1
	MaxColor mgl32.Vec4 `yaml:"max_color"`

	MinRotateSpeed float32 `yaml:"min_rotate_speed"`
	MaxRotateSpeed float32 `yaml:"max_rotate_speed"`
	MinStartSize   float32 `yaml:"min_start_size"`
	MaxStartSize   float32 `yaml:"max_start_size"`
	MinEndSize     float32 `yaml:"min_end_size"`
	MaxEndSize     float32 `yaml:"max_end_size"`

	Blend BlendMode `yaml:"blend"`
}

// DefaultSettings returns the baseline every preset starts from.
func DefaultSettings() Settings {
	white := mgl32.Vec4{1, 1, 1, 1}
	return Settings{
		MaxParticles:               100,
		Duration:                   1,
		EmitterVelocitySensitivity: 1,
		EndVelocity:                1,
		MinColor:                   white,
		MaxColor:                   white,
		MinStartSize:               100,
		MaxStartSize:               100,
		MinEndSize:                 100,
		MaxEndSize:                 100,
		Blend:                      BlendNonPremultiplied,
	}
}

func (s Settings) Validate() error {
	if s.MaxParticles <= 0 {
		return fmt.Errorf("%w: %q: max_particles must be positive, got %d", ErrInvalidSettings, s.Name, s.MaxParticles)
	}
	if s.Duration <= 0 {
		return fmt.Errorf("%w: %q: duration must be positive, got %v", ErrInvalidSettings, s.Name, s.Duration)
	}
	if s.DurationRandomness < 0 {
		return fmt.Errorf("%w: %q: duration_randomness must not be negative", ErrInvalidSettings, s.Name)
	}
	ranges := []struct {
		name     string
		min, max float32
	}{
		{"horizontal_velocity", s.MinHorizontalVelocity, s.MaxHorizontalVelocity},
		{"vertical_velocity", s.MinVerticalVelocity, s.MaxVerticalVelocity},
		{"rotate_speed", s.MinRotateSpeed, s.MaxRotateSpeed},
		{"start_size", s.MinStartSize, s.MaxStartSize},
		{"end_size", s.MinEndSize, s.MaxEndSize},
	}
	for _, r := range ranges {
		if r.min > r.max {
			return fmt.Errorf("%w: %q: min_%s %v exceeds max_%s %v", ErrInvalidSettings, s.Name, r.name, r.min, r.name, r.max)
		}
	}
	if !s.Blend.Valid() {
		return fmt.Errorf("%w: %q: unknown blend mode %q", ErrInvalidSettings, s.Name, s.Blend)
	}
	return nil
}
