package particle

import (
	"fmt"

	"github.com/gekko3d/particles/core"
	"github.com/gekko3d/particles/ring"
)

// batch turns queue spans into vertex uploads and indexed draws.
type batch struct {
	device Device
	vb     VertexBuffer
	ib     IndexBuffer
	mat    Material
	params frameParams

	uploads          uint64
	uploadedVertices uint64
	draws            uint64
}

// restore re-sends the whole CPU mirror after the device dropped the buffer.
func (b *batch) restore(vertices []core.ParticleVertex) error {
	if err := b.vb.WriteVertices(0, vertices, core.WriteDiscard); err != nil {
		return fmt.Errorf("restore vertex buffer: %w", err)
	}
	b.uploads++
	b.uploadedVertices += uint64(len(vertices))
	b.params.reset()
	return nil
}

// upload writes the given slot spans. Slots that were never drawn cannot be in
// use by the GPU, so the writes use no-overwrite mode.
func (b *batch) upload(vertices []core.ParticleVertex, spans ...ring.Span) error {
	for _, sp := range spans {
		if sp.Empty() {
			continue
		}
		first := sp.Start * core.VerticesPerParticle
		end := sp.End * core.VerticesPerParticle
		if err := b.vb.WriteVertices(first, vertices[first:end], core.WriteNoOverwrite); err != nil {
			return fmt.Errorf("upload slots [%d,%d): %w", sp.Start, sp.End, err)
		}
		b.uploads++
		b.uploadedVertices += uint64(end - first)
	}
	return nil
}

func (b *batch) draw(spans ...ring.Span) error {
	for _, sp := range spans {
		if sp.Empty() {
			continue
		}
		first := sp.Start * core.IndicesPerParticle
		count := sp.Len() * core.IndicesPerParticle
		if err := b.device.DrawIndexed(b.vb, b.ib, b.mat, first, count); err != nil {
			return fmt.Errorf("draw slots [%d,%d): %w", sp.Start, sp.End, err)
		}
		b.draws++
	}
	return nil
}
