package particle

import (
	"github.com/gekko3d/particles/core"
	"github.com/go-gl/mathgl/mgl32"
)

// last remembers the value most recently sent to the material.
type last[T comparable] struct {
	value T
	set   bool
}

// changed records v and reports whether it differs from the previous value.
func (l *last[T]) changed(v T) bool {
	if l.set && l.value == v {
		return false
	}
	l.value = v
	l.set = true
	return true
}

func (l *last[T]) forget() { l.set = false }

// frameParams holds the per-draw parameters. Each is pushed to the material
// only when its value differs from the one already bound.
type frameParams struct {
	currentTime   last[float32]
	viewportScale last[mgl32.Vec2]
	view          last[mgl32.Mat4]
	projection    last[mgl32.Mat4]

	pushed int
}

func (f *frameParams) apply(mat Material, time float32, cam camera) {
	if f.currentTime.changed(time) {
		mat.SetFloat(core.ParamCurrentTime, time)
		f.pushed++
	}
	if f.viewportScale.changed(cam.viewportScale) {
		mat.SetVec2(core.ParamViewportScale, cam.viewportScale)
		f.pushed++
	}
	if f.view.changed(cam.view) {
		mat.SetMat4(core.ParamView, cam.view)
		f.pushed++
	}
	if f.projection.changed(cam.projection) {
		mat.SetMat4(core.ParamProjection, cam.projection)
		f.pushed++
	}
}

func (f *frameParams) reset() {
	f.currentTime.forget()
	f.viewportScale.forget()
	f.view.forget()
	f.projection.forget()
}

type camera struct {
	view          mgl32.Mat4
	projection    mgl32.Mat4
	viewportScale mgl32.Vec2
}

// bindSettings sends the parameters that stay fixed for the life of a system.
func bindSettings(mat Material, s core.Settings, texture core.TextureHandle) {
	mat.SetFloat(core.ParamDuration, s.Duration)
	mat.SetFloat(core.ParamDurationRandomness, s.DurationRandomness)
	mat.SetVec3(core.ParamGravity, s.Gravity)
	mat.SetFloat(core.ParamEndVelocity, s.EndVelocity)
	mat.SetVec4(core.ParamMinColor, s.MinColor)
	mat.SetVec4(core.ParamMaxColor, s.MaxColor)
	mat.SetVec2(core.ParamRotateSpeed, mgl32.Vec2{s.MinRotateSpeed, s.MaxRotateSpeed})
	mat.SetVec2(core.ParamStartSize, mgl32.Vec2{s.MinStartSize, s.MaxStartSize})
	mat.SetVec2(core.ParamEndSize, mgl32.Vec2{s.MinEndSize, s.MaxEndSize})
	if texture != 0 {
		mat.SetTexture(core.ParamTexture, texture)
	}
}
