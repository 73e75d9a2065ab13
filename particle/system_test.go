package particle

import (
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/gekko3d/particles/core"
	"github.com/gekko3d/particles/ring"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSettings(capacity int) core.Settings {
	s := core.DefaultSettings()
	s.Name = "test"
	s.MaxParticles = capacity
	s.Duration = 1
	return s
}

func newTestSystem(t *testing.T, capacity int, opts ...Option) (*System, *fakeDevice) {
	t.Helper()
	dev := &fakeDevice{}
	opts = append([]Option{WithRand(rand.New(rand.NewPCG(1, 2)))}, opts...)
	s, err := New(testSettings(capacity), dev, opts...)
	require.NoError(t, err)
	return s, dev
}

func TestNew_Errors(t *testing.T) {
	_, err := New(testSettings(4), nil)
	assert.ErrorIs(t, err, ErrNoDevice)

	bad := testSettings(4)
	bad.Duration = 0
	_, err = New(bad, &fakeDevice{})
	assert.ErrorIs(t, err, core.ErrInvalidSettings)
}

func TestNew_AllocatesResources(t *testing.T) {
	s, dev := newTestSystem(t, 4, WithTexture(7))

	// One sentinel slot on top of the requested capacity.
	assert.Equal(t, 5*core.VerticesPerParticle, dev.vb.VertexCount())
	assert.Equal(t, 5*core.IndicesPerParticle, dev.ib.IndexCount())
	assert.Equal(t, []float32{1}, dev.mat.floats[core.ParamDuration])
	assert.Equal(t, core.TextureHandle(7), dev.mat.textures[core.ParamTexture])
	assert.Equal(t, mgl32.Vec2{100, 100}, dev.mat.vec2s[core.ParamStartSize])
	assert.NotEmpty(t, s.ID())
	assert.Equal(t, "test", s.Name())
}

func TestAddParticle_CapacityFour(t *testing.T) {
	s, _ := newTestSystem(t, 4)

	accepted := 0
	for i := 0; i < 5; i++ {
		if s.AddParticle(mgl32.Vec3{}, mgl32.Vec3{}) {
			accepted++
		}
	}
	assert.Equal(t, 4, accepted)

	st := s.Stats()
	assert.Equal(t, uint64(4), st.Spawned)
	assert.Equal(t, uint64(1), st.Dropped)
	assert.Equal(t, 4, st.New)
	assert.Equal(t, 0, st.Free)
}

func TestAddParticle_WritesSharedPayload(t *testing.T) {
	dev := &fakeDevice{}
	settings := testSettings(2)
	settings.EmitterVelocitySensitivity = 0.5
	s, err := New(settings, dev)
	require.NoError(t, err)

	// Keep one unrendered particle alive so the clock does not restart.
	require.True(t, s.AddParticle(mgl32.Vec3{}, mgl32.Vec3{}))
	s.Update(0.25)
	require.True(t, s.AddParticle(mgl32.Vec3{1, 2, 3}, mgl32.Vec3{4, 0, 0}))

	slot := s.vertices[core.VerticesPerParticle : 2*core.VerticesPerParticle]
	for i, v := range slot {
		assert.Equal(t, core.Corners[i], v.Corner)
		assert.Equal(t, mgl32.Vec3{1, 2, 3}, v.Position)
		assert.Equal(t, mgl32.Vec3{2, 0, 0}, v.Velocity)
		assert.Equal(t, float32(0.25), v.Time)
		assert.Equal(t, slot[0].Random, v.Random)
	}
}

func TestAddParticle_RandomVelocityWithinRanges(t *testing.T) {
	dev := &fakeDevice{}
	settings := testSettings(64)
	settings.MinHorizontalVelocity = 2
	settings.MaxHorizontalVelocity = 3
	settings.MinVerticalVelocity = -1
	settings.MaxVerticalVelocity = 1
	s, err := New(settings, dev, WithRand(rand.New(rand.NewPCG(3, 4))))
	require.NoError(t, err)

	for i := 0; i < 64; i++ {
		require.True(t, s.AddParticle(mgl32.Vec3{}, mgl32.Vec3{}))
		v := s.vertices[i*core.VerticesPerParticle].Velocity
		horizontal := mgl32.Vec2{v.X(), v.Z()}.Len()
		assert.InDelta(t, 2.5, float64(horizontal), 0.5+1e-4)
		assert.InDelta(t, 0, float64(v.Y()), 1+1e-4)
	}
}

func TestRender_UploadsNewOnceAndDrawsActive(t *testing.T) {
	s, dev := newTestSystem(t, 4)
	s.AddParticle(mgl32.Vec3{}, mgl32.Vec3{})
	s.AddParticle(mgl32.Vec3{}, mgl32.Vec3{})

	require.NoError(t, s.Render())
	assert.Equal(t, []write{{first: 0, count: 8, mode: core.WriteNoOverwrite}}, dev.vb.writes)
	assert.Equal(t, []draw{{firstIndex: 0, indexCount: 12}}, dev.draws)

	require.NoError(t, s.Render())
	assert.Len(t, dev.vb.writes, 1, "nothing new to upload")
	assert.Len(t, dev.draws, 2)
	assert.Equal(t, uint64(2), s.DrawPass())
}

func TestRender_EmptySystemDoesNotDraw(t *testing.T) {
	s, dev := newTestSystem(t, 4)
	require.NoError(t, s.Render())
	assert.Empty(t, dev.vb.writes)
	assert.Empty(t, dev.draws)
	assert.Equal(t, uint64(1), s.DrawPass())
}

// drainToCursor spawns, retires and frees slots until firstFree reaches target.
func drainToCursor(t *testing.T, s *System, target int) {
	t.Helper()
	for s.queue.Cursors().FirstFree != target {
		require.True(t, s.AddParticle(mgl32.Vec3{}, mgl32.Vec3{}))
	}
	require.NoError(t, s.Render())
	s.Update(s.settings.Duration * 2)
	for i := 0; i < ring.DefaultRetireDelay; i++ {
		require.NoError(t, s.Render())
	}
	s.Update(0)
	require.True(t, s.queue.Empty())
	require.True(t, s.queue.Settled())
}

func TestRender_WrappedUploadSplitsInTwo(t *testing.T) {
	s, dev := newTestSystem(t, 5)
	size := s.queue.Size()
	drainToCursor(t, s, size-2)

	dev.vb.writes = nil
	dev.draws = nil
	for i := 0; i < 4; i++ {
		require.True(t, s.AddParticle(mgl32.Vec3{float32(i), 0, 0}, mgl32.Vec3{}))
	}
	c := s.queue.Cursors()
	require.Equal(t, size-2, c.FirstNew)
	require.Equal(t, 2, c.FirstFree)

	require.NoError(t, s.Render())
	require.Len(t, dev.vb.writes, 2)
	assert.Equal(t, write{first: (size - 2) * 4, count: 8, mode: core.WriteNoOverwrite}, dev.vb.writes[0])
	assert.Equal(t, write{first: 0, count: 8, mode: core.WriteNoOverwrite}, dev.vb.writes[1])
	assert.Equal(t, 16, dev.vb.writes[0].count+dev.vb.writes[1].count)

	require.Len(t, dev.draws, 2)
	assert.Equal(t, draw{firstIndex: (size - 2) * 6, indexCount: 12}, dev.draws[0])
	assert.Equal(t, draw{firstIndex: 0, indexCount: 12}, dev.draws[1])
	assert.Equal(t, float32(2), dev.vb.data[0].Position.X())
}

func TestUpdate_RetiredSlotWaitsThreePasses(t *testing.T) {
	s, _ := newTestSystem(t, 1)
	require.True(t, s.AddParticle(mgl32.Vec3{}, mgl32.Vec3{}))
	require.NoError(t, s.Render())

	s.Update(2)
	assert.Equal(t, 1, s.Stats().Retired)
	assert.Equal(t, float32(0), s.CurrentTime(), "clock restarts once nothing is alive")

	for pass := 0; pass < 2; pass++ {
		assert.False(t, s.AddParticle(mgl32.Vec3{}, mgl32.Vec3{}), "reused after %d passes", pass)
		require.NoError(t, s.Render())
		s.Update(0)
	}
	assert.False(t, s.AddParticle(mgl32.Vec3{}, mgl32.Vec3{}))
	require.NoError(t, s.Render())
	s.Update(0)

	assert.Equal(t, uint64(0), s.DrawPass(), "draw pass restarts once nothing is retired")
	assert.True(t, s.AddParticle(mgl32.Vec3{}, mgl32.Vec3{}))
}

func TestUpdate_UnrenderedParticlesNeverRetire(t *testing.T) {
	s, _ := newTestSystem(t, 4)
	s.AddParticle(mgl32.Vec3{}, mgl32.Vec3{})
	s.Update(10)
	st := s.Stats()
	assert.Equal(t, 1, st.New)
	assert.Equal(t, 0, st.Retired)
	assert.Equal(t, float32(10), s.CurrentTime())
}

func TestRender_RecoversLostContents(t *testing.T) {
	s, dev := newTestSystem(t, 4)
	s.AddParticle(mgl32.Vec3{}, mgl32.Vec3{})
	require.NoError(t, s.Render())

	dev.vb.lost = true
	s.AddParticle(mgl32.Vec3{}, mgl32.Vec3{})
	require.NoError(t, s.Render())

	require.Len(t, dev.vb.writes, 3)
	assert.Equal(t, write{first: 0, count: dev.vb.VertexCount(), mode: core.WriteDiscard}, dev.vb.writes[1])
	assert.Equal(t, write{first: 4, count: 4, mode: core.WriteNoOverwrite}, dev.vb.writes[2])
	assert.False(t, dev.vb.lost)
	assert.Equal(t, uint64(1), s.Stats().Recoveries)
}

func TestRender_DrawErrorIsWrapped(t *testing.T) {
	s, dev := newTestSystem(t, 4)
	boom := errors.New("device removed")
	dev.drawErr = boom
	s.AddParticle(mgl32.Vec3{}, mgl32.Vec3{})

	err := s.Render()
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), `particle system "test"`)
	assert.Equal(t, uint64(0), s.DrawPass())
}

func TestRender_UploadErrorKeepsSlotsPending(t *testing.T) {
	s, dev := newTestSystem(t, 4)
	dev.vb.err = errors.New("out of memory")
	s.AddParticle(mgl32.Vec3{}, mgl32.Vec3{})

	require.Error(t, s.Render())
	assert.Equal(t, 1, s.Stats().New)

	dev.vb.err = nil
	require.NoError(t, s.Render())
	assert.Equal(t, 0, s.Stats().New)
	assert.Equal(t, 1, s.Stats().Active)
}

func TestRender_CachesFrameParameters(t *testing.T) {
	s, dev := newTestSystem(t, 4)
	s.AddParticle(mgl32.Vec3{}, mgl32.Vec3{})

	require.NoError(t, s.Render())
	require.NoError(t, s.Render())
	assert.Len(t, dev.mat.floats[core.ParamCurrentTime], 1)
	assert.Equal(t, 1, dev.mat.mat4s[core.ParamView])

	s.Update(0.1)
	require.NoError(t, s.Render())
	assert.Equal(t, []float32{0, 0.1}, dev.mat.floats[core.ParamCurrentTime])

	s.SetCamera(mgl32.Translate3D(1, 0, 0), mgl32.Ident4(), ViewportScale(1000, 500))
	require.NoError(t, s.Render())
	assert.Equal(t, 2, dev.mat.mat4s[core.ParamView])
	assert.Equal(t, 1, dev.mat.mat4s[core.ParamProjection])
	assert.Equal(t, mgl32.Vec2{0.25, -0.5}, dev.mat.vec2s[core.ParamViewportScale])
}

func TestClear(t *testing.T) {
	s, _ := newTestSystem(t, 4)
	s.AddParticle(mgl32.Vec3{}, mgl32.Vec3{})
	s.Update(0.5)
	s.Clear()
	assert.True(t, s.queue.Empty())
	assert.Equal(t, float32(0), s.CurrentTime())
}

func TestSystem_RandomWorkloadKeepsQueueValid(t *testing.T) {
	rng := rand.New(rand.NewPCG(9, 9))
	for _, capacity := range []int{1, 2, 4, 9, 32} {
		s, dev := newTestSystem(t, capacity)
		for step := 0; step < 1500; step++ {
			switch rng.IntN(5) {
			case 0, 1:
				s.AddParticle(mgl32.Vec3{}, mgl32.Vec3{})
			case 2, 3:
				s.Update(rng.Float32() * 0.3)
			case 4:
				require.NoError(t, s.Render())
			}
			require.NoError(t, s.queue.Validate(), "capacity %d step %d", capacity, step)
		}
		for _, d := range dev.draws {
			assert.LessOrEqual(t, d.firstIndex+d.indexCount, dev.ib.IndexCount())
		}
	}
}
