package particles

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/gekko3d/particles/config"
	"github.com/gekko3d/particles/core"
	"github.com/gekko3d/particles/gpu"
	"github.com/gekko3d/particles/particle"
	"github.com/gekko3d/particles/stats"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func smallConfig(t *testing.T) *config.Config {
	t.Helper()
	trail := core.DefaultSettings()
	trail.Name = "trail"
	trail.MaxParticles = 8
	trail.Duration = 0.5

	burst := core.DefaultSettings()
	burst.Name = "burst"
	burst.MaxParticles = 4

	cfg := &config.Config{
		Runtime: config.RuntimeConfig{RetireDelay: 3},
		Systems: map[string]core.Settings{"trail": trail, "burst": burst},
		Emitters: []config.EmitterConfig{
			{System: "trail", ParticlesPerSecond: 10, Velocity: mgl32.Vec3{10, 0, 0}},
		},
	}
	require.NoError(t, cfg.Validate())
	return cfg
}

type failingDevice struct {
	*gpu.MemoryDevice
}

var errDraw = errors.New("draw failed")

func (d failingDevice) DrawIndexed(vb particle.VertexBuffer, ib particle.IndexBuffer, mat particle.Material, firstIndex, indexCount int) error {
	return errDraw
}

func TestNewParticleWorld(t *testing.T) {
	world, err := NewParticleWorld(smallConfig(t), gpu.NewMemoryDevice(), WorldOptions{Seed: 1})
	require.NoError(t, err)

	require.Len(t, world.Systems(), 2)
	assert.Equal(t, "burst", world.Systems()[0].Name())
	_, ok := world.System("trail")
	assert.True(t, ok)

	emitter, err := world.NewEmitter("trail", 5, mgl32.Vec3{1, 2, 3})
	require.NoError(t, err)
	require.NotNil(t, emitter.Emitter())
	assert.Equal(t, mgl32.Vec3{1, 2, 3}, emitter.Emitter().Position())

	_, err = world.NewEmitter("missing", 1, mgl32.Vec3{})
	assert.ErrorContains(t, err, `unknown particle system "missing"`)

	_, err = NewParticleWorld(smallConfig(t), nil, WorldOptions{})
	assert.ErrorIs(t, err, particle.ErrNoDevice)

	cfg := smallConfig(t)
	cfg.Emitters[0].System = "missing"
	_, err = NewParticleWorld(cfg, gpu.NewMemoryDevice(), WorldOptions{})
	assert.ErrorContains(t, err, `unknown particle system "missing"`)
}

func buildParticlesApp(t *testing.T, dt time.Duration, cfg *config.Config) (*App, *ParticleWorld) {
	t.Helper()
	app := NewAppBuilder().
		UseModule(TimeModule{FixedDt: dt}).
		UseModule(ParticlesModule{Config: cfg, Seed: 1}).
		Build()
	world, ok := Resource[ParticleWorld](app)
	require.True(t, ok)
	return app, world
}

func TestParticlesModule_EmitterEntityTrail(t *testing.T) {
	app, world := buildParticlesApp(t, 450*time.Millisecond, smallConfig(t))
	require.Equal(t, 1, app.Entities())
	trail, _ := world.System("trail")

	// 10 per second for 0.45s: spawns at 0.1, 0.2, 0.3 and 0.4 along x in [0, 4.5].
	require.NoError(t, app.Step())

	var emitters int
	MakeQuery2[TransformComponent, ParticleEmitterComponent](app.Commands()).Map(func(_ EntityId, tr *TransformComponent, em *ParticleEmitterComponent) bool {
		emitters++
		assert.Equal(t, mgl32.Vec3{4.5, 0, 0}, tr.Position)
		assert.Equal(t, "trail", em.System)
		assert.Equal(t, uint64(4), em.Emitter().Emitted())
		assert.Equal(t, tr.Position, em.Emitter().Position())
		return true
	})
	assert.Equal(t, 1, emitters)
	assert.Equal(t, 4, trail.Stats().Active)
}

func TestParticlesModule_EmitterFollowsTransform(t *testing.T) {
	cfg := smallConfig(t)
	cfg.Emitters = nil
	app, world := buildParticlesApp(t, 250*time.Millisecond, cfg)
	require.Zero(t, app.Entities())

	cmd := app.Commands()
	eid := cmd.AddEntity(
		TransformComponent{Position: mgl32.Vec3{0, 5, 0}},
		ParticleEmitterComponent{System: "trail", ParticlesPerSecond: 8},
	)
	app.FlushCommands()
	require.True(t, app.HasEntity(eid))

	// No VelocityComponent: the entity stays put unless something moves it.
	require.NoError(t, app.Step())
	MakeQuery2[TransformComponent, ParticleEmitterComponent](cmd).Map(func(_ EntityId, tr *TransformComponent, em *ParticleEmitterComponent) bool {
		require.NotNil(t, em.Emitter())
		assert.Equal(t, mgl32.Vec3{0, 5, 0}, em.Emitter().Position())
		tr.Position = mgl32.Vec3{2, 5, 0}
		return true
	})

	require.NoError(t, app.Step())
	MakeQuery1[ParticleEmitterComponent](cmd).Map(func(_ EntityId, em *ParticleEmitterComponent) bool {
		assert.Equal(t, mgl32.Vec3{2, 5, 0}, em.Emitter().Position(), "emitter reaches the moved transform")
		assert.Equal(t, uint64(3), em.Emitter().Emitted())
		return true
	})
	trail, _ := world.System("trail")
	assert.Equal(t, uint64(3), trail.Stats().Spawned)

	cmd.RemoveEntity(eid)
	app.FlushCommands()
	require.False(t, app.HasEntity(eid))
	require.NoError(t, app.Step())
	assert.Equal(t, uint64(3), trail.Stats().Spawned, "removed emitters stop spawning")
}

func TestParticlesModule_UnknownEmitterSystemFailsFrame(t *testing.T) {
	cfg := smallConfig(t)
	cfg.Emitters = nil
	app, _ := buildParticlesApp(t, 100*time.Millisecond, cfg)

	eid := app.Commands().AddEntity(
		TransformComponent{},
		ParticleEmitterComponent{System: "missing", ParticlesPerSecond: 1},
	)
	app.FlushCommands()

	err := app.Step()
	require.Error(t, err)
	assert.Contains(t, err.Error(), fmt.Sprintf("entity %d", eid))
	assert.Contains(t, err.Error(), `unknown particle system "missing"`)
}

func TestParticleWorld_Burst(t *testing.T) {
	world, err := NewParticleWorld(smallConfig(t), gpu.NewMemoryDevice(), WorldOptions{Seed: 1})
	require.NoError(t, err)

	assert.Equal(t, 4, world.Burst("burst", 6, mgl32.Vec3{}, mgl32.Vec3{}))
	assert.Equal(t, 0, world.Burst("missing", 6, mgl32.Vec3{}, mgl32.Vec3{}))

	burst, _ := world.System("burst")
	assert.Equal(t, uint64(2), burst.Stats().Dropped)

	world.Clear()
	assert.Equal(t, 0, burst.Stats().Active+burst.Stats().New)
}

func TestParticleWorld_RenderJoinsErrors(t *testing.T) {
	world, err := NewParticleWorld(smallConfig(t), failingDevice{gpu.NewMemoryDevice()}, WorldOptions{Seed: 1})
	require.NoError(t, err)

	world.Burst("burst", 1, mgl32.Vec3{}, mgl32.Vec3{})
	world.Burst("trail", 1, mgl32.Vec3{}, mgl32.Vec3{})

	err = world.Render()
	require.ErrorIs(t, err, errDraw)
	assert.Contains(t, err.Error(), `particle system "burst"`)
	assert.Contains(t, err.Error(), `particle system "trail"`)
}

func TestParticlesModule_RunsHeadless(t *testing.T) {
	device := gpu.NewMemoryDevice()
	recorder := stats.NewRecorder()

	app := NewAppBuilder().
		UseModule(LoggingModule{Logger: nil, Prefix: "test"}).
		UseModule(TimeModule{FixedDt: 50 * time.Millisecond}).
		UseModule(ParticlesModule{Config: smallConfig(t), Device: device, Seed: 7, Recorder: recorder}).
		Build()

	world, ok := Resource[ParticleWorld](app)
	require.True(t, ok)
	world.SetCamera(mgl32.Ident4(), mgl32.Ident4(), 1000, 500)

	require.NoError(t, app.Run(40))

	// Two systems recorded every frame.
	assert.Equal(t, 80, recorder.Len())
	trail, _ := world.System("trail")
	st := trail.Stats()
	assert.Greater(t, st.Spawned, uint64(0))
	assert.LessOrEqual(t, st.Active+st.New, 8)
	assert.NotEmpty(t, device.Draws())

	sums := recorder.Summary()
	require.Len(t, sums, 2)
	assert.Equal(t, "burst", sums[0].System)
	assert.Equal(t, 40, sums[1].Frames)
}

func TestParticlesModule_DefaultsInstall(t *testing.T) {
	app := NewAppBuilder().
		UseModule(TimeModule{FixedDt: 16 * time.Millisecond}).
		UseModule(ParticlesModule{Seed: 3}).
		Build()

	world, ok := Resource[ParticleWorld](app)
	require.True(t, ok)

	cfg, err := config.Default()
	require.NoError(t, err)
	assert.Len(t, world.Systems(), len(cfg.Systems))

	require.NoError(t, app.Run(10))
}
