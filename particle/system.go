package particle

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/gekko3d/particles/core"
	"github.com/gekko3d/particles/logging"
	"github.com/gekko3d/particles/ring"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

// Stats is a point-in-time view of a system.
type Stats struct {
	ID       string
	Name     string
	Time     float32
	DrawPass uint64
	ring.Counts

	Spawned          uint64
	Dropped          uint64
	Uploads          uint64
	UploadedVertices uint64
	Draws            uint64
	Recoveries       uint64
}

type Option func(*System)

func WithLogger(l logging.Logger) Option {
	return func(s *System) {
		if l != nil {
			s.log = l
		}
	}
}

// WithRand sets the source of per-particle randomness.
func WithRand(r *rand.Rand) Option {
	return func(s *System) {
		if r != nil {
			s.rng = r
		}
	}
}

// WithRetireDelay sets how many draw passes a retired slot waits before reuse.
func WithRetireDelay(passes uint64) Option {
	return func(s *System) {
		if passes > 0 {
			s.retireDelay = passes
		}
	}
}

func WithTexture(t core.TextureHandle) Option {
	return func(s *System) { s.texture = t }
}

// System owns one ring of particles, its CPU mirror and its GPU resources.
// It is not safe for concurrent use; Update, AddParticle and Render are meant
// to run on the render thread.
type System struct {
	id       string
	settings core.Settings
	log      logging.Logger
	rng      *rand.Rand
	texture  core.TextureHandle

	retireDelay uint64
	queue       *ring.Queue
	vertices    []core.ParticleVertex
	batch       batch
	cam         camera

	currentTime float32
	drawPass    uint64

	spawned     uint64
	dropped     uint64
	lastDropped uint64
	recoveries  uint64
}

func New(settings core.Settings, device Device, opts ...Option) (*System, error) {
	if device == nil {
		return nil, ErrNoDevice
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	s := &System{
		id:          uuid.NewString(),
		settings:    settings,
		log:         logging.NewNopLogger(),
		rng:         rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		retireDelay: ring.DefaultRetireDelay,
		cam: camera{
			view:          mgl32.Ident4(),
			projection:    mgl32.Ident4(),
			viewportScale: mgl32.Vec2{1, 1},
		},
	}
	for _, opt := range opts {
		opt(s)
	}

	s.queue = ring.NewQueue(settings.MaxParticles)
	s.queue.RetireDelay = s.retireDelay
	s.vertices = make([]core.ParticleVertex, s.queue.Size()*core.VerticesPerParticle)

	label := s.label()
	vb, err := device.CreateVertexBuffer(label, len(s.vertices))
	if err != nil {
		return nil, fmt.Errorf("particle system %q: create vertex buffer: %w", settings.Name, err)
	}
	ib, err := device.CreateIndexBuffer(label, core.QuadIndices(s.queue.Size()))
	if err != nil {
		return nil, fmt.Errorf("particle system %q: create index buffer: %w", settings.Name, err)
	}
	mat, err := device.CreateMaterial(label, settings.Blend)
	if err != nil {
		return nil, fmt.Errorf("particle system %q: create material: %w", settings.Name, err)
	}
	bindSettings(mat, settings, s.texture)

	s.batch = batch{device: device, vb: vb, ib: ib, mat: mat}

	s.log.Infof("particle system %q (%s): %d particles, %d vertices, retire delay %d",
		settings.Name, s.id, settings.MaxParticles, len(s.vertices), s.retireDelay)
	return s, nil
}

func (s *System) label() string {
	if s.settings.Name != "" {
		return "Particles/" + s.settings.Name
	}
	return "Particles/" + s.id
}

func (s *System) ID() string { return s.id }

func (s *System) Name() string { return s.settings.Name }

func (s *System) Settings() core.Settings { return s.settings }

// CurrentTime is the simulation clock in seconds. It restarts at zero
// whenever the system runs empty.
func (s *System) CurrentTime() float32 { return s.currentTime }

// DrawPass counts Render calls since the last time no slot was waiting on the GPU.
func (s *System) DrawPass() uint64 { return s.drawPass }

// SetCamera sets the matrices used by the next draws.
func (s *System) SetCamera(view, projection mgl32.Mat4, viewportScale mgl32.Vec2) {
	s.cam = camera{view: view, projection: projection, viewportScale: viewportScale}
}

// ViewportScale converts a viewport size into the scale the billboard shader
// uses to turn particle sizes into clip-space offsets.
func ViewportScale(width, height int) mgl32.Vec2 {
	if width <= 0 || height <= 0 {
		return mgl32.Vec2{1, 1}
	}
	aspect := float32(width) / float32(height)
	return mgl32.Vec2{0.5 / aspect, -0.5}
}

// AddParticle spawns one particle. It returns false, and drops the particle,
// when every slot is in use.
func (s *System) AddParticle(position, velocity mgl32.Vec3) bool {
	slot, ok := s.queue.TryAllocate(s.currentTime)
	if !ok {
		s.dropped++
		return false
	}

	st := &s.settings
	velocity = velocity.Mul(st.EmitterVelocitySensitivity)

	horizontal := lerp(st.MinHorizontalVelocity, st.MaxHorizontalVelocity, s.rng.Float32())
	angle := s.rng.Float64() * 2 * math.Pi
	velocity[0] += horizontal * float32(math.Cos(angle))
	velocity[2] += horizontal * float32(math.Sin(angle))
	velocity[1] += lerp(st.MinVerticalVelocity, st.MaxVerticalVelocity, s.rng.Float32())

	var seed [4]uint8
	for i := range seed {
		seed[i] = uint8(s.rng.IntN(256))
	}

	first := slot * core.VerticesPerParticle
	core.WriteParticle(s.vertices[first:first+core.VerticesPerParticle], position, velocity, seed, s.currentTime)
	s.spawned++
	return true
}

// Update advances the clock by dt seconds, retires expired particles and frees
// retired slots the GPU can no longer be reading.
func (s *System) Update(dt float32) {
	if dt > 0 {
		s.currentTime += dt
	}

	s.queue.RetireExpired(s.currentTime, s.settings.Duration, s.drawPass)
	s.queue.FreeRetired(s.drawPass)

	// Restart the clocks when nothing depends on them to keep float precision.
	if s.queue.Empty() {
		s.currentTime = 0
	}
	if s.queue.Settled() {
		s.drawPass = 0
	}
}

// Render uploads slots spawned since the previous call and draws every live
// particle. Draw failures are returned with the system name attached.
func (s *System) Render() error {
	if s.batch.vb.ContentsLost() {
		if err := s.batch.restore(s.vertices); err != nil {
			return s.wrap(err)
		}
		bindSettings(s.batch.mat, s.settings, s.texture)
		s.recoveries++
		s.log.Warnf("particle system %q: vertex buffer contents lost, re-uploaded %d vertices",
			s.settings.Name, len(s.vertices))
	}

	first, second := s.queue.Pending()
	if err := s.batch.upload(s.vertices, first, second); err != nil {
		return s.wrap(err)
	}
	s.queue.Publish()

	if !s.queue.Empty() {
		s.batch.params.apply(s.batch.mat, s.currentTime, s.cam)
		first, second = s.queue.Drawable()
		if err := s.batch.draw(first, second); err != nil {
			return s.wrap(err)
		}
	}

	if s.dropped != s.lastDropped && s.log.DebugEnabled() {
		s.log.Debugf("particle system %q: dropped %d spawns (total %d)",
			s.settings.Name, s.dropped-s.lastDropped, s.dropped)
	}
	s.lastDropped = s.dropped

	s.drawPass++
	return nil
}

// Clear drops every particle and restarts both clocks. Retired slots are
// released immediately, so it must only run once the GPU is idle.
func (s *System) Clear() {
	s.queue.Reset()
	s.currentTime = 0
	s.drawPass = 0
}

func (s *System) Stats() Stats {
	return Stats{
		ID:               s.id,
		Name:             s.settings.Name,
		Time:             s.currentTime,
		DrawPass:         s.drawPass,
		Counts:           s.queue.Counts(),
		Spawned:          s.spawned,
		Dropped:          s.dropped,
		Uploads:          s.batch.uploads,
		UploadedVertices: s.batch.uploadedVertices,
		Draws:            s.batch.draws,
		Recoveries:       s.recoveries,
	}
}

func (s *System) wrap(err error) error {
	return fmt.Errorf("particle system %q: %w", s.settings.Name, err)
}

func lerp(a, b, t float32) float32 { return a + (b-a)*t }
