package core

import (
	"time"
)

// Timer tracks wall-clock frame timing. Tick returns the delta since the
// previous Tick (or since construction on the first call). The simulation
// clock itself lives with the particle system, since it must freeze on
// pause and zero on restart while the wall clock keeps running.
type Timer struct {
	lastFrame time.Time
}

func NewTimer() *Timer {
	return &Timer{lastFrame: time.Now()}
}

func (t *Timer) Tick() float32 {
	now := time.Now()
	dt := now.Sub(t.lastFrame).Seconds()
	t.lastFrame = now
	return float32(dt)
}
