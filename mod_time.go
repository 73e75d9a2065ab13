package particles

import (
	"time"
)

type Time struct {
	Time    time.Time
	Dt      time.Duration
	Elapsed time.Duration
	Frame   uint64
}

// Seconds returns Dt in seconds.
func (t *Time) Seconds() float64 {
	return t.Dt.Seconds()
}

// TimeModule advances a *Time resource at the start of every frame. With a
// positive FixedDt every frame lasts exactly FixedDt, which keeps headless
// runs reproducible; otherwise Dt follows the wall clock.
type TimeModule struct {
	FixedDt time.Duration
}

func (mod TimeModule) Install(app *App, cmd *Commands) {
	cmd.AddResources(&Time{
		Time: time.Now(),
		Dt:   0,
	})

	if mod.FixedDt > 0 {
		fixed := mod.FixedDt
		app.UseSystem(System(func(t *Time) { advanceTime(t, t.Time.Add(fixed)) }).InStage(Prelude))
		return
	}
	app.UseSystem(System(timeSystem).InStage(Prelude))
}

func timeSystem(timeResource *Time) {
	advanceTime(timeResource, time.Now())
}

func advanceTime(t *Time, now time.Time) {
	t.Dt = now.Sub(t.Time)
	t.Time = now
	t.Elapsed += t.Dt
	t.Frame++
}
