// Command particlebench runs the particle systems headlessly for a fixed
// number of frames and reports how the ring buffers behaved.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/gekko3d/particles"
	"github.com/gekko3d/particles/config"
	"github.com/gekko3d/particles/gpu"
	"github.com/gekko3d/particles/logging"
	"github.com/gekko3d/particles/stats"
	"github.com/go-gl/mathgl/mgl32"
)

func main() {
	configPath := flag.String("config", "", "Path to a particles YAML file (empty = use defaults)")
	preset := flag.String("preset", "", "Run only this system (empty = all)")
	rate := flag.Float64("rate", 100, "Particles per second for -preset when no emitter feeds it")
	frames := flag.Int("frames", 600, "Frames to run")
	dt := flag.Duration("dt", 0, "Fixed frame time (0 = runtime.fixed_dt from config)")
	csvPath := flag.String("csv", "", "Write per-frame stats CSV to this path")
	writeConfig := flag.String("write-config", "", "Write the effective configuration to this path")
	loseEvery := flag.Int("lose-every", 0, "Simulate a device reset every N frames (0 = never)")
	seed := flag.Uint64("seed", 0, "RNG seed (0 = random)")
	debug := flag.Bool("debug", false, "Enable debug logging")

	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(1)
	}
	log := logging.NewDefaultLogger(cfg.Runtime.LogPrefix, *debug || cfg.Runtime.Debug)

	if *preset != "" {
		if err := cfg.Select(*preset); err != nil {
			log.Errorf("%v", err)
			os.Exit(1)
		}
		if len(cfg.Emitters) == 0 {
			cfg.Emitters = append(cfg.Emitters, config.EmitterConfig{System: *preset, ParticlesPerSecond: *rate})
		}
	}
	if *writeConfig != "" {
		if err := cfg.WriteYAML(*writeConfig); err != nil {
			log.Errorf("%v", err)
			os.Exit(1)
		}
	}

	frameTime := *dt
	if frameTime <= 0 {
		frameTime = time.Duration(cfg.Runtime.FixedDt * float64(time.Second))
	}
	if frameTime <= 0 {
		frameTime = time.Second / 60
	}

	device := gpu.NewMemoryDevice()
	recorder := stats.NewRecorder()

	app := particles.NewAppBuilder().
		UseModule(particles.LoggingModule{Logger: log}).
		UseModule(particles.TimeModule{FixedDt: frameTime}).
		UseModule(particles.ParticlesModule{
			Config:   cfg,
			Device:   device,
			Seed:     *seed,
			Recorder: recorder,
		}).
		Build()

	if world, ok := particles.Resource[particles.ParticleWorld](app); ok {
		world.SetCamera(
			mgl32.LookAtV(mgl32.Vec3{0, 50, 200}, mgl32.Vec3{}, mgl32.Vec3{0, 1, 0}),
			mgl32.Perspective(mgl32.DegToRad(45), 16.0/9.0, 1, 10000),
			1280, 720,
		)
	}

	if *loseEvery > 0 {
		n := *loseEvery
		app.UseSystem(particles.System(func(cmd *particles.Commands) {
			if cmd.Frame()%n == n-1 {
				log.Debugf("frame %d: simulating device reset", cmd.Frame())
				device.MarkLost()
			}
		}).InStage(particles.PreRender))
	}
	app.UseSystem(particles.System(func(cmd *particles.Commands) {
		device.ResetRecords()
	}).InStage(particles.Finale))

	start := time.Now()
	if err := app.Run(*frames); err != nil {
		log.Errorf("run failed: %v", err)
		os.Exit(1)
	}
	log.Infof("ran %d frames of %v in %v", app.Frame(), frameTime, time.Since(start))

	for _, s := range recorder.Summary() {
		fmt.Println(s)
	}

	if *csvPath != "" {
		if err := recorder.WriteFile(*csvPath); err != nil {
			log.Errorf("%v", err)
			os.Exit(1)
		}
		log.Infof("wrote %d records to %s", recorder.Len(), *csvPath)
	}
}
