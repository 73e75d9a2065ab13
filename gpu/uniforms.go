// Package gpu provides particle devices: a headless in-memory one and one
// backed by WebGPU.
package gpu

import (
	"encoding/binary"
	"math"

	"github.com/gekko3d/particles/core"
	"github.com/go-gl/mathgl/mgl32"
)

// Particle uniform block, WGSL layout:
//
//	struct ParticleParams {
//	  view: mat4x4<f32>;                 -- 0
//	  projection: mat4x4<f32>;           -- 64
//	  viewport_scale: vec2<f32>;         -- 128
//	  rotate_speed: vec2<f32>;           -- 136
//	  start_size: vec2<f32>;             -- 144
//	  end_size: vec2<f32>;               -- 152
//	  min_color: vec4<f32>;              -- 160
//	  max_color: vec4<f32>;              -- 176
//	  gravity: vec3<f32>;                -- 192
//	  current_time: f32;                 -- 204
//	  duration: f32;                     -- 208
//	  duration_randomness: f32;          -- 212
//	  end_velocity: f32;                 -- 216
//	} -> 224 bytes (padded)
const UniformBlockSize = 224

var (
	mat4Offsets  = map[core.Param]int{core.ParamView: 0, core.ParamProjection: 64}
	vec2Offsets  = map[core.Param]int{core.ParamViewportScale: 128, core.ParamRotateSpeed: 136, core.ParamStartSize: 144, core.ParamEndSize: 152}
	vec4Offsets  = map[core.Param]int{core.ParamMinColor: 160, core.ParamMaxColor: 176}
	vec3Offsets  = map[core.Param]int{core.ParamGravity: 192}
	floatOffsets = map[core.Param]int{
		core.ParamCurrentTime:        204,
		core.ParamDuration:           208,
		core.ParamDurationRandomness: 212,
		core.ParamEndVelocity:        216,
	}
)

// Uniforms packs particle parameters into the uniform block. Parameters of
// the wrong kind for their slot are ignored.
type Uniforms struct {
	data     [UniformBlockSize]byte
	textures map[core.Param]core.TextureHandle
	dirty    bool
}

func (u *Uniforms) putFloats(offset int, vs ...float32) {
	for i, v := range vs {
		binary.LittleEndian.PutUint32(u.data[offset+i*4:], math.Float32bits(v))
	}
	u.dirty = true
}

func (u *Uniforms) SetFloat(p core.Param, v float32) {
	if off, ok := floatOffsets[p]; ok {
		u.putFloats(off, v)
	}
}

func (u *Uniforms) SetVec2(p core.Param, v mgl32.Vec2) {
	if off, ok := vec2Offsets[p]; ok {
		u.putFloats(off, v[:]...)
	}
}

func (u *Uniforms) SetVec3(p core.Param, v mgl32.Vec3) {
	if off, ok := vec3Offsets[p]; ok {
		u.putFloats(off, v[:]...)
	}
}

func (u *Uniforms) SetVec4(p core.Param, v mgl32.Vec4) {
	if off, ok := vec4Offsets[p]; ok {
		u.putFloats(off, v[:]...)
	}
}

func (u *Uniforms) SetMat4(p core.Param, v mgl32.Mat4) {
	if off, ok := mat4Offsets[p]; ok {
		u.putFloats(off, v[:]...)
	}
}

func (u *Uniforms) SetTexture(p core.Param, t core.TextureHandle) {
	if u.textures == nil {
		u.textures = make(map[core.Param]core.TextureHandle)
	}
	u.textures[p] = t
}

func (u *Uniforms) Texture(p core.Param) core.TextureHandle { return u.textures[p] }

// Float reads back a scalar parameter.
func (u *Uniforms) Float(p core.Param) float32 {
	off, ok := floatOffsets[p]
	if !ok {
		return 0
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(u.data[off:]))
}

func (u *Uniforms) Bytes() []byte { return u.data[:] }

// Dirty reports whether any parameter changed since the last ClearDirty.
func (u *Uniforms) Dirty() bool { return u.dirty }

func (u *Uniforms) ClearDirty() { u.dirty = false }

// MarkDirty forces the next draw to upload the block again.
func (u *Uniforms) MarkDirty() { u.dirty = true }
