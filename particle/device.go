// Package particle streams particles through a fixed ring of GPU vertices.
//
// The CPU writes each particle once, at spawn. The GPU animates it from its
// spawn state and the current time, so per-frame CPU work is limited to
// uploading newly spawned slots and retiring expired ones.
package particle

import (
	"errors"

	"github.com/gekko3d/particles/core"
	"github.com/go-gl/mathgl/mgl32"
)

var ErrNoDevice = errors.New("particle: no device")

// VertexBuffer is a GPU-visible vertex store that accepts partial writes.
type VertexBuffer interface {
	// WriteVertices copies vertices starting at vertex index first.
	WriteVertices(first int, vertices []core.ParticleVertex, mode core.WriteMode) error
	// ContentsLost reports that the device dropped the buffer contents.
	// A full WriteDiscard upload clears the condition.
	ContentsLost() bool
	VertexCount() int
}

// IndexBuffer holds the fixed quad index list.
type IndexBuffer interface {
	IndexCount() int
}

// Material receives shader parameter values. It does not shade.
type Material interface {
	SetFloat(p core.Param, v float32)
	SetVec2(p core.Param, v mgl32.Vec2)
	SetVec3(p core.Param, v mgl32.Vec3)
	SetVec4(p core.Param, v mgl32.Vec4)
	SetMat4(p core.Param, v mgl32.Mat4)
	SetTexture(p core.Param, t core.TextureHandle)
}

// Device creates particle resources and issues draws.
type Device interface {
	CreateVertexBuffer(label string, vertexCount int) (VertexBuffer, error)
	CreateIndexBuffer(label string, indices []uint32) (IndexBuffer, error)
	CreateMaterial(label string, blend core.BlendMode) (Material, error)
	// DrawIndexed draws indexCount indices starting at firstIndex as a triangle list.
	DrawIndexed(vb VertexBuffer, ib IndexBuffer, mat Material, firstIndex, indexCount int) error
}
