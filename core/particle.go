package core

import "github.com/go-gl/mathgl/mgl32"

const (
	VerticesPerParticle = 4
	IndicesPerParticle  = 6
)

// Corners are the quad offsets shared by every particle. The vertex stage
// expands each corner by the particle's size and rotation.
var Corners = [VerticesPerParticle][2]int16{
	{-1, -1},
	{1, -1},
	{1, 1},
	{-1, 1},
}

// ParticleVertex matches the particle vertex input of the billboard shader.
// Every particle occupies four consecutive vertices which differ only in Corner.
type ParticleVertex struct {
	Corner   [2]int16   `gekko:"layout" location:"0" format:"sint16x2"`
	Position mgl32.Vec3 `gekko:"layout" location:"1" format:"float32x3"`
	Velocity mgl32.Vec3 `gekko:"layout" location:"2" format:"float32x3"`
	Random   [4]uint8   `gekko:"layout" location:"3" format:"unorm8x4"`
	Time     float32    `gekko:"layout" location:"4" format:"float32"`
}

// ParticleVertexSize is the stride of ParticleVertex in bytes.
const ParticleVertexSize = 36

// WriteParticle fills the four corner vertices of one slot.
func WriteParticle(dst []ParticleVertex, position, velocity mgl32.Vec3, seed [4]uint8, spawnTime float32) {
	for i := 0; i < VerticesPerParticle; i++ {
		dst[i] = ParticleVertex{
			Corner:   Corners[i],
			Position: position,
			Velocity: velocity,
			Random:   seed,
			Time:     spawnTime,
		}
	}
}

// QuadIndices builds the fixed index list for the given number of slots.
// Particle i draws triangles (4i, 4i+1, 4i+2) and (4i, 4i+2, 4i+3).
func QuadIndices(slots int) []uint32 {
	indices := make([]uint32, 0, slots*IndicesPerParticle)
	for i := 0; i < slots; i++ {
		base := uint32(i * VerticesPerParticle)
		indices = append(indices,
			base, base+1, base+2,
			base, base+2, base+3,
		)
	}
	return indices
}
