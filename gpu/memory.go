package gpu

import (
	"fmt"

	"github.com/gekko3d/particles/core"
	"github.com/gekko3d/particles/particle"
)

// WriteRecord describes one vertex upload seen by a MemoryDevice.
type WriteRecord struct {
	Label string
	First int
	Count int
	Mode  core.WriteMode
}

// DrawRecord describes one indexed draw seen by a MemoryDevice.
type DrawRecord struct {
	Label      string
	FirstIndex int
	IndexCount int
	Blend      core.BlendMode
}

// MemoryDevice keeps particle buffers in CPU memory and records every upload
// and draw. It runs without a GPU.
type MemoryDevice struct {
	buffers []*MemoryVertexBuffer
	writes  []WriteRecord
	draws   []DrawRecord
}

func NewMemoryDevice() *MemoryDevice {
	return &MemoryDevice{}
}

type MemoryVertexBuffer struct {
	label string
	data  []core.ParticleVertex
	lost  bool
	dev   *MemoryDevice
}

func (b *MemoryVertexBuffer) WriteVertices(first int, vertices []core.ParticleVertex, mode core.WriteMode) error {
	if first < 0 || first+len(vertices) > len(b.data) {
		return fmt.Errorf("gpu: write [%d,%d) outside %q of %d vertices", first, first+len(vertices), b.label, len(b.data))
	}
	copy(b.data[first:], vertices)
	if mode == core.WriteDiscard {
		b.lost = false
	}
	b.dev.writes = append(b.dev.writes, WriteRecord{Label: b.label, First: first, Count: len(vertices), Mode: mode})
	return nil
}

func (b *MemoryVertexBuffer) ContentsLost() bool { return b.lost }

func (b *MemoryVertexBuffer) VertexCount() int { return len(b.data) }

// Vertices exposes the buffer content.
func (b *MemoryVertexBuffer) Vertices() []core.ParticleVertex { return b.data }

type MemoryIndexBuffer struct {
	indices []uint32
}

func (b *MemoryIndexBuffer) IndexCount() int { return len(b.indices) }

type MemoryMaterial struct {
	Uniforms
	label string
	blend core.BlendMode
}

func (d *MemoryDevice) CreateVertexBuffer(label string, vertexCount int) (particle.VertexBuffer, error) {
	if vertexCount <= 0 {
		return nil, fmt.Errorf("gpu: vertex buffer %q: invalid vertex count %d", label, vertexCount)
	}
	vb := &MemoryVertexBuffer{label: label, data: make([]core.ParticleVertex, vertexCount), dev: d}
	d.buffers = append(d.buffers, vb)
	return vb, nil
}

func (d *MemoryDevice) CreateIndexBuffer(label string, indices []uint32) (particle.IndexBuffer, error) {
	return &MemoryIndexBuffer{indices: append([]uint32(nil), indices...)}, nil
}

func (d *MemoryDevice) CreateMaterial(label string, blend core.BlendMode) (particle.Material, error) {
	return &MemoryMaterial{label: label, blend: blend}, nil
}

func (d *MemoryDevice) DrawIndexed(vb particle.VertexBuffer, ib particle.IndexBuffer, mat particle.Material, firstIndex, indexCount int) error {
	mvb, ok := vb.(*MemoryVertexBuffer)
	if !ok {
		return fmt.Errorf("gpu: foreign vertex buffer %T", vb)
	}
	mib, ok := ib.(*MemoryIndexBuffer)
	if !ok {
		return fmt.Errorf("gpu: foreign index buffer %T", ib)
	}
	if firstIndex < 0 || indexCount <= 0 || firstIndex+indexCount > len(mib.indices) {
		return fmt.Errorf("gpu: draw [%d,+%d) outside index buffer of %d", firstIndex, indexCount, len(mib.indices))
	}
	rec := DrawRecord{Label: mvb.label, FirstIndex: firstIndex, IndexCount: indexCount}
	if mm, ok := mat.(*MemoryMaterial); ok {
		rec.Blend = mm.blend
		mm.ClearDirty()
	}
	d.draws = append(d.draws, rec)
	return nil
}

// MarkLost simulates a device reset: every vertex buffer reports lost contents.
func (d *MemoryDevice) MarkLost() {
	for _, b := range d.buffers {
		b.lost = true
	}
}

func (d *MemoryDevice) Writes() []WriteRecord { return d.writes }

func (d *MemoryDevice) Draws() []DrawRecord { return d.draws }

// ResetRecords forgets recorded writes and draws, typically once per frame.
func (d *MemoryDevice) ResetRecords() {
	d.writes = d.writes[:0]
	d.draws = d.draws[:0]
}
