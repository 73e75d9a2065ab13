package particle

import (
	"github.com/gekko3d/particles/core"
	"github.com/go-gl/mathgl/mgl32"
)

type write struct {
	first int
	count int
	mode  core.WriteMode
}

type draw struct {
	firstIndex int
	indexCount int
}

type fakeVertexBuffer struct {
	data   []core.ParticleVertex
	lost   bool
	writes []write
	err    error
}

func (b *fakeVertexBuffer) WriteVertices(first int, vertices []core.ParticleVertex, mode core.WriteMode) error {
	if b.err != nil {
		return b.err
	}
	copy(b.data[first:], vertices)
	b.writes = append(b.writes, write{first: first, count: len(vertices), mode: mode})
	if mode == core.WriteDiscard {
		b.lost = false
	}
	return nil
}

func (b *fakeVertexBuffer) ContentsLost() bool { return b.lost }
func (b *fakeVertexBuffer) VertexCount() int   { return len(b.data) }

type fakeIndexBuffer struct {
	indices []uint32
}

func (b *fakeIndexBuffer) IndexCount() int { return len(b.indices) }

type fakeMaterial struct {
	floats   map[core.Param][]float32
	vec2s    map[core.Param]mgl32.Vec2
	vec3s    map[core.Param]mgl32.Vec3
	vec4s    map[core.Param]mgl32.Vec4
	mat4s    map[core.Param]int
	textures map[core.Param]core.TextureHandle
}

func newFakeMaterial() *fakeMaterial {
	return &fakeMaterial{
		floats:   map[core.Param][]float32{},
		vec2s:    map[core.Param]mgl32.Vec2{},
		vec3s:    map[core.Param]mgl32.Vec3{},
		vec4s:    map[core.Param]mgl32.Vec4{},
		mat4s:    map[core.Param]int{},
		textures: map[core.Param]core.TextureHandle{},
	}
}

func (m *fakeMaterial) SetFloat(p core.Param, v float32) { m.floats[p] = append(m.floats[p], v) }
func (m *fakeMaterial) SetVec2(p core.Param, v mgl32.Vec2) { m.vec2s[p] = v }
func (m *fakeMaterial) SetVec3(p core.Param, v mgl32.Vec3) { m.vec3s[p] = v }
func (m *fakeMaterial) SetVec4(p core.Param, v mgl32.Vec4) { m.vec4s[p] = v }
func (m *fakeMaterial) SetMat4(p core.Param, v mgl32.Mat4) { m.mat4s[p]++ }
func (m *fakeMaterial) SetTexture(p core.Param, t core.TextureHandle) {
	m.textures[p] = t
}

type fakeDevice struct {
	vb      *fakeVertexBuffer
	ib      *fakeIndexBuffer
	mat     *fakeMaterial
	draws   []draw
	drawErr error
}

func (d *fakeDevice) CreateVertexBuffer(label string, vertexCount int) (VertexBuffer, error) {
	d.vb = &fakeVertexBuffer{data: make([]core.ParticleVertex, vertexCount)}
	return d.vb, nil
}

func (d *fakeDevice) CreateIndexBuffer(label string, indices []uint32) (IndexBuffer, error) {
	d.ib = &fakeIndexBuffer{indices: indices}
	return d.ib, nil
}

func (d *fakeDevice) CreateMaterial(label string, blend core.BlendMode) (Material, error) {
	d.mat = newFakeMaterial()
	return d.mat, nil
}

func (d *fakeDevice) DrawIndexed(vb VertexBuffer, ib IndexBuffer, mat Material, firstIndex, indexCount int) error {
	if d.drawErr != nil {
		return d.drawErr
	}
	d.draws = append(d.draws, draw{firstIndex: firstIndex, indexCount: indexCount})
	return nil
}
