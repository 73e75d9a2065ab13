package particles

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/gekko3d/particles/config"
	"github.com/gekko3d/particles/core"
	"github.com/gekko3d/particles/emission"
	"github.com/gekko3d/particles/gpu"
	"github.com/gekko3d/particles/logging"
	"github.com/gekko3d/particles/particle"
	"github.com/gekko3d/particles/stats"
	"github.com/go-gl/mathgl/mgl32"
)

// ParticlesModule builds a *ParticleWorld from a configuration and schedules
// its systems. Every configured emitter becomes an entity with a
// TransformComponent, a VelocityComponent and a ParticleEmitterComponent.
// Install panics on an invalid configuration.
type ParticlesModule struct {
	Config   *config.Config  // nil loads the embedded defaults
	Device   particle.Device // nil renders into a headless gpu.MemoryDevice
	Textures map[string]core.TextureHandle
	Seed     uint64 // 0 seeds from the runtime

	// Recorder, when set, receives every system's stats after each frame.
	Recorder *stats.Recorder
}

func (mod ParticlesModule) Install(app *App, cmd *Commands) {
	cfg := mod.Config
	if cfg == nil {
		var err error
		if cfg, err = config.Default(); err != nil {
			panic(err)
		}
	}
	device := mod.Device
	if device == nil {
		device = gpu.NewMemoryDevice()
	}

	world, err := NewParticleWorld(cfg, device, WorldOptions{
		Logger:   app.Logger(),
		Textures: mod.Textures,
		Seed:     mod.Seed,
	})
	if err != nil {
		panic(err)
	}
	world.recorder = mod.Recorder
	cmd.AddResources(world)

	for _, e := range cfg.Emitters {
		emitter, err := world.NewEmitter(e.System, e.ParticlesPerSecond, e.Position)
		if err != nil {
			panic(err)
		}
		cmd.AddEntity(
			TransformComponent{Position: e.Position},
			VelocityComponent{Velocity: e.Velocity},
			emitter,
		)
	}
	app.Logger().Infof("particles: %d emitter entities", len(cfg.Emitters))

	app.UseSystem(
		System(particlesMotionSystem).InStage(PreUpdate),
	).UseSystem(
		System(particlesEmitSystem).InStage(Update),
	).UseSystem(
		System(particlesUpdateSystem).InStage(PostUpdate),
	).UseSystem(
		System(particlesRenderSystem).InStage(Render),
	)
	if mod.Recorder != nil {
		app.UseSystem(System(particlesStatsSystem).InStage(PostRender))
	}
}

type TransformComponent struct {
	Position mgl32.Vec3
}

type VelocityComponent struct {
	Velocity mgl32.Vec3
}

// ParticleEmitterComponent leaves a trail in the named system wherever the
// entity's TransformComponent goes. A component built by hand starts emitting
// from the entity's position on its first update.
type ParticleEmitterComponent struct {
	System             string
	ParticlesPerSecond float64

	emitter *emission.Emitter
}

// Emitter is nil until the component is first updated.
func (c *ParticleEmitterComponent) Emitter() *emission.Emitter { return c.emitter }

type WorldOptions struct {
	Logger   logging.Logger
	Textures map[string]core.TextureHandle
	Seed     uint64
}

// ParticleWorld owns the configured particle systems.
type ParticleWorld struct {
	device   particle.Device
	log      logging.Logger
	rng      *rand.Rand
	systems  []*particle.System
	byName   map[string]*particle.System
	recorder *stats.Recorder
	frames   int
}

func NewParticleWorld(cfg *config.Config, device particle.Device, opts WorldOptions) (*ParticleWorld, error) {
	if device == nil {
		return nil, particle.ErrNoDevice
	}
	log := opts.Logger
	if log == nil {
		log = logging.NewNopLogger()
	}
	seed := opts.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}

	w := &ParticleWorld{
		device: device,
		log:    log,
		rng:    rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		byName: make(map[string]*particle.System),
	}

	for _, name := range cfg.SystemNames() {
		settings, _ := cfg.System(name)
		sys, err := particle.New(settings, device,
			particle.WithLogger(log),
			particle.WithRand(rand.New(rand.NewPCG(w.rng.Uint64(), w.rng.Uint64()))),
			particle.WithRetireDelay(cfg.Runtime.RetireDelay),
			particle.WithTexture(opts.Textures[settings.Texture]),
		)
		if err != nil {
			return nil, fmt.Errorf("building particle world: %w", err)
		}
		w.systems = append(w.systems, sys)
		w.byName[name] = sys
	}

	for _, e := range cfg.Emitters {
		if _, ok := w.byName[e.System]; !ok {
			return nil, fmt.Errorf("building particle world: unknown particle system %q", e.System)
		}
	}

	log.Infof("particle world: %d systems", len(w.systems))
	return w, nil
}

func (w *ParticleWorld) System(name string) (*particle.System, bool) {
	s, ok := w.byName[name]
	return s, ok
}

// Systems returns the systems in name order.
func (w *ParticleWorld) Systems() []*particle.System { return w.systems }

// NewEmitter returns an emitter component feeding the named system, starting
// at position.
func (w *ParticleWorld) NewEmitter(system string, particlesPerSecond float64, position mgl32.Vec3) (ParticleEmitterComponent, error) {
	c := ParticleEmitterComponent{System: system, ParticlesPerSecond: particlesPerSecond}
	sys, ok := w.byName[system]
	if !ok {
		return c, fmt.Errorf("unknown particle system %q", system)
	}
	c.emitter = emission.NewEmitter(sys, particlesPerSecond, position)
	return c, nil
}

// Burst spawns count particles at once in the named system and returns how
// many were accepted.
func (w *ParticleWorld) Burst(system string, count int, position, velocity mgl32.Vec3) int {
	sys, ok := w.byName[system]
	if !ok {
		return 0
	}
	accepted := 0
	for range count {
		if sys.AddParticle(position, velocity) {
			accepted++
		}
	}
	return accepted
}

// SetCamera passes the camera to every system.
func (w *ParticleWorld) SetCamera(view, projection mgl32.Mat4, width, height int) {
	scale := particle.ViewportScale(width, height)
	for _, s := range w.systems {
		s.SetCamera(view, projection, scale)
	}
}

// Update ages every system by dt seconds.
func (w *ParticleWorld) Update(dt float64) {
	if dt <= 0 {
		return
	}
	for _, s := range w.systems {
		s.Update(float32(dt))
	}
}

// Render draws every system. A failing system does not stop the others; all
// failures are returned together.
func (w *ParticleWorld) Render() error {
	var errs []error
	for _, s := range w.systems {
		if err := s.Render(); err != nil {
			errs = append(errs, err)
		}
	}
	w.frames++
	return errors.Join(errs...)
}

func (w *ParticleWorld) Stats() []particle.Stats {
	out := make([]particle.Stats, 0, len(w.systems))
	for _, s := range w.systems {
		out = append(out, s.Stats())
	}
	return out
}

// Clear empties every system.
func (w *ParticleWorld) Clear() {
	for _, s := range w.systems {
		s.Clear()
	}
}

func particlesMotionSystem(t *Time, cmd *Commands) {
	dt := float32(t.Seconds())
	MakeQuery2[TransformComponent, VelocityComponent](cmd).Map(func(_ EntityId, tr *TransformComponent, v *VelocityComponent) bool {
		tr.Position = tr.Position.Add(v.Velocity.Mul(dt))
		return true
	})
}

// particlesEmitSystem moves every emitter to its entity's position, spawning
// along the way.
func particlesEmitSystem(t *Time, world *ParticleWorld, cmd *Commands) error {
	dt := t.Seconds()
	var err error
	MakeQuery2[TransformComponent, ParticleEmitterComponent](cmd).Map(func(eid EntityId, tr *TransformComponent, em *ParticleEmitterComponent) bool {
		if em.emitter == nil {
			var c ParticleEmitterComponent
			if c, err = world.NewEmitter(em.System, em.ParticlesPerSecond, tr.Position); err != nil {
				err = fmt.Errorf("entity %d: %w", eid, err)
				return false
			}
			em.emitter = c.emitter
		}
		em.emitter.Update(dt, tr.Position)
		return true
	})
	return err
}

func particlesUpdateSystem(t *Time, world *ParticleWorld) {
	world.Update(t.Seconds())
}

func particlesRenderSystem(world *ParticleWorld) error {
	return world.Render()
}

func particlesStatsSystem(world *ParticleWorld) error {
	if world.recorder == nil {
		return nil
	}
	return world.recorder.Record(world.frames-1, world.Stats()...)
}
