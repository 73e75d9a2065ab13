// Package emission turns elapsed time into evenly spaced particle spawns.
package emission

import "math"

// Scheduler spreads spawn events evenly in time, independent of the frame rate.
// Time not consumed by a frame is carried into the next one.
type Scheduler struct {
	baseInterval float64
	scale        float64
	leftover     float64
}

func NewScheduler(baseInterval float64) *Scheduler {
	return &Scheduler{baseInterval: baseInterval, scale: 1}
}

// NewRateScheduler emits perSecond events per second. A non-positive rate never emits.
func NewRateScheduler(perSecond float64) *Scheduler {
	if perSecond <= 0 {
		return &Scheduler{baseInterval: math.Inf(1), scale: 1}
	}
	return NewScheduler(1 / perSecond)
}

// SetScale multiplies the emission rate. Zero or negative stops emission.
// Time carried over from earlier frames is capped at one interval of the new
// rate, so speeding up never releases a backlog of spawns.
func (s *Scheduler) SetScale(scale float64) {
	s.scale = scale
	s.leftover = math.Min(s.leftover, s.Interval())
}

func (s *Scheduler) Scale() float64 { return s.scale }

// Interval is the time between two spawns at the current scale.
func (s *Scheduler) Interval() float64 {
	if s.scale <= 0 {
		return math.Inf(1)
	}
	return s.baseInterval / s.scale
}

func (s *Scheduler) Leftover() float64 { return s.leftover }

func (s *Scheduler) Reset() { s.leftover = 0 }

// Advance consumes dt seconds and calls emit once per spawn with the fraction
// of the frame, in [0,1), at which that spawn happens. It returns the number
// of spawns. Non-positive dt is ignored.
func (s *Scheduler) Advance(dt float64, emit func(step float64)) int {
	if dt <= 0 {
		return 0
	}
	interval := s.Interval()

	toSpend := s.leftover + dt
	elapsed := -s.leftover
	count := 0
	for toSpend > interval {
		elapsed += interval
		toSpend -= interval
		if emit != nil {
			emit(clampStep(elapsed / dt))
		}
		count++
	}
	s.leftover = toSpend
	return count
}

// clampStep keeps rounding in the elapsed sum from leaving [0,1).
func clampStep(step float64) float64 {
	if step < 0 {
		return 0
	}
	if step >= 1 {
		return math.Nextafter(1, 0)
	}
	return step
}
