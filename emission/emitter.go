package emission

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

// Spawner accepts spawn requests. It returns false when the request was dropped.
type Spawner interface {
	AddParticle(position, velocity mgl32.Vec3) bool
}

// Emitter leaves a trail of particles behind a moving point. Spawns are placed
// along the path between the previous and the current position, so fast motion
// does not clump them at frame boundaries.
type Emitter struct {
	id       string
	target   Spawner
	sched    *Scheduler
	previous mgl32.Vec3

	emitted uint64
	dropped uint64
}

func NewEmitter(target Spawner, particlesPerSecond float64, initialPosition mgl32.Vec3) *Emitter {
	return &Emitter{
		id:       uuid.NewString(),
		target:   target,
		sched:    NewRateScheduler(particlesPerSecond),
		previous: initialPosition,
	}
}

func (e *Emitter) ID() string { return e.id }

func (e *Emitter) Scheduler() *Scheduler { return e.sched }

func (e *Emitter) Position() mgl32.Vec3 { return e.previous }

// Emitted counts accepted spawns, Dropped counts spawns the target refused.
func (e *Emitter) Emitted() uint64 { return e.emitted }
func (e *Emitter) Dropped() uint64 { return e.dropped }

// Update moves the emitter to newPosition over dt seconds and spawns the
// particles due in that interval. It returns the number of spawn requests.
func (e *Emitter) Update(dt float64, newPosition mgl32.Vec3) int {
	if dt <= 0 {
		e.previous = newPosition
		return 0
	}

	from := e.previous
	velocity := newPosition.Sub(from).Mul(float32(1 / dt))

	n := e.sched.Advance(dt, func(step float64) {
		position := lerpVec3(from, newPosition, float32(step))
		if e.target.AddParticle(position, velocity) {
			e.emitted++
		} else {
			e.dropped++
		}
	})

	e.previous = newPosition
	return n
}

func lerpVec3(a, b mgl32.Vec3, t float32) mgl32.Vec3 {
	return a.Add(b.Sub(a).Mul(t))
}
