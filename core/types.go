package core

import "fmt"

// WriteMode tells a vertex buffer how a partial write relates to in-flight GPU work.
type WriteMode int

const (
	// WriteNoOverwrite asserts the written range is not referenced by any pending draw.
	WriteNoOverwrite WriteMode = iota
	// WriteDiscard replaces the whole buffer content.
	WriteDiscard
)

func (m WriteMode) String() string {
	switch m {
	case WriteNoOverwrite:
		return "no-overwrite"
	case WriteDiscard:
		return "discard"
	}
	return fmt.Sprintf("WriteMode(%d)", int(m))
}

// TextureHandle identifies a texture registered with a device. Zero means none.
type TextureHandle uint32

// Param identifies a particle shader parameter.
type Param int

const (
	ParamDuration Param = iota
	ParamDurationRandomness
	ParamGravity
	ParamEndVelocity
	ParamMinColor
	ParamMaxColor
	ParamRotateSpeed
	ParamStartSize
	ParamEndSize
	ParamTexture
	ParamView
	ParamProjection
	ParamViewportScale
	ParamCurrentTime

	ParamCount
)

var paramNames = [ParamCount]string{
	ParamDuration:           "Duration",
	ParamDurationRandomness: "DurationRandomness",
	ParamGravity:            "Gravity",
	ParamEndVelocity:        "EndVelocity",
	ParamMinColor:           "MinColor",
	ParamMaxColor:           "MaxColor",
	ParamRotateSpeed:        "RotateSpeed",
	ParamStartSize:          "StartSize",
	ParamEndSize:            "EndSize",
	ParamTexture:            "Texture",
	ParamView:               "View",
	ParamProjection:         "Projection",
	ParamViewportScale:      "ViewportScale",
	ParamCurrentTime:        "CurrentTime",
}

func (p Param) String() string {
	if p >= 0 && p < ParamCount {
		return paramNames[p]
	}
	return fmt.Sprintf("Param(%d)", int(p))
}

// BlendMode selects how particles are composited.
type BlendMode string

const (
	BlendAlpha            BlendMode = "alpha"
	BlendAdditive         BlendMode = "additive"
	BlendNonPremultiplied BlendMode = "nonpremultiplied"
)

func (b BlendMode) Valid() bool {
	switch b {
	case BlendAlpha, BlendAdditive, BlendNonPremultiplied:
		return true
	}
	return false
}
