package core

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// EmissionModeKind selects the spawn policy, fixed at construction time.
type EmissionModeKind int

const (
	// EmitBurst spawns Count particles on the first playing frame, then nothing.
	EmitBurst EmissionModeKind = iota
	// EmitContinuous spawns Rate particles per second, carrying fractions
	// across frames.
	EmitContinuous
)

func (k EmissionModeKind) String() string {
	if k == EmitBurst {
		return "burst"
	}
	return "continuous"
}

type EmissionMode struct {
	Kind  EmissionModeKind
	Count uint32  // EmitBurst
	Rate  float32 // EmitContinuous, particles/second
}

func Burst(count uint32) EmissionMode {
	return EmissionMode{Kind: EmitBurst, Count: count}
}

func Continuous(rate float32) EmissionMode {
	return EmissionMode{Kind: EmitContinuous, Rate: rate}
}

// Capacity derives the store size needed so emission can never overflow at
// steady state: the burst count, or rate x ceil(lifetime) for continuous
// emission (a particle lives exactly lifetime seconds, so at most that many
// emissions are in flight).
func (m EmissionMode) Capacity(lifetime float32) uint32 {
	var n uint32
	switch m.Kind {
	case EmitBurst:
		n = m.Count
	case EmitContinuous:
		n = uint32(math.Ceil(float64(m.Rate) * math.Ceil(float64(lifetime))))
	}
	if n < 1 {
		n = 1
	}
	return n
}

// EmissionShapeKind selects the spawn volume sampled on the GPU.
type EmissionShapeKind uint32

const (
	ShapePoint EmissionShapeKind = iota
	ShapeSphere
	ShapeSphereSurface
	ShapeCube
)

// EmitterSettings is the construction-time configuration of one particle
// system instance. Changing any of it requires rebuilding the system.
type EmitterSettings struct {
	Mode     EmissionMode
	Shape    EmissionShapeKind
	Lifetime float32 // seconds
	Position mgl32.Vec3
	Extent   float32 // sphere radius or cube half-extent

	SpeedMin, SpeedMax float32
	MassMin, MassMax   float32
	ColorMin, ColorMax [4]float32
}

type ledgerEntry struct {
	expiry float64
	count  uint32
}

// Emitter performs the CPU side of emission bookkeeping: the fractional
// rate accumulator and an exact alive count. Because every particle of a
// store shares one fixed lifetime, a particle emitted at sim-time t is dead
// at exactly t+lifetime; replaying emissions through a ledger therefore
// reproduces the GPU's alive count without any readback.
type Emitter struct {
	settings EmitterSettings
	capacity uint32

	clock       float64
	accumulated float64
	burstFired  bool
	alive       uint32
	ledger      []ledgerEntry
}

func NewEmitter(settings EmitterSettings) *Emitter {
	return &Emitter{
		settings: settings,
		capacity: settings.Mode.Capacity(settings.Lifetime),
	}
}

func (e *Emitter) Settings() EmitterSettings { return e.settings }
func (e *Emitter) Capacity() uint32          { return e.capacity }
func (e *Emitter) AliveCount() uint32        { return e.alive }
func (e *Emitter) Clock() float64            { return e.clock }

// Step advances the simulation clock by dt, retires expired emissions and
// returns the number of particles to spawn this frame, clamped to the free
// capacity. The clamped remainder is re-accumulated in continuous mode and
// dropped in burst mode (burst fires once). Call only while playing.
func (e *Emitter) Step(dt float32) uint32 {
	e.clock += float64(dt)
	e.expire()

	var want uint64
	switch e.settings.Mode.Kind {
	case EmitBurst:
		if !e.burstFired {
			e.burstFired = true
			want = uint64(e.settings.Mode.Count)
		}
	case EmitContinuous:
		e.accumulated += float64(e.settings.Mode.Rate) * float64(dt)
		want = uint64(e.accumulated)
		e.accumulated -= float64(want)
	}

	free := uint64(e.capacity - e.alive)
	if want > free {
		if e.settings.Mode.Kind == EmitContinuous {
			e.accumulated += float64(want - free)
		}
		want = free
	}

	if want > 0 {
		e.alive += uint32(want)
		e.ledger = append(e.ledger, ledgerEntry{
			expiry: e.clock + float64(e.settings.Lifetime),
			count:  uint32(want),
		})
	}
	return uint32(want)
}

// expire drops ledger entries whose particles have reached their lifetime.
// A particle is alive iff age < lifetime, so expiry exactly at the clock
// counts as dead.
func (e *Emitter) expire() {
	n := 0
	for _, entry := range e.ledger {
		if entry.expiry <= e.clock {
			e.alive -= entry.count
			n++
			continue
		}
		break
	}
	if n > 0 {
		e.ledger = e.ledger[n:]
	}
}

// Reset returns the emitter to its construction state: clock, accumulator
// and ledger zeroed, burst re-armed.
func (e *Emitter) Reset() {
	e.clock = 0
	e.accumulated = 0
	e.burstFired = false
	e.alive = 0
	e.ledger = e.ledger[:0]
}
