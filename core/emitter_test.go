package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmissionMode_Capacity(t *testing.T) {
	assert.Equal(t, uint32(1000), Burst(1000).Capacity(2.0))
	assert.Equal(t, uint32(1), Burst(0).Capacity(2.0))

	// rate x ceil(lifetime): 100/s over a 2.5s lifetime needs 300 slots.
	assert.Equal(t, uint32(300), Continuous(100).Capacity(2.5))
	assert.Equal(t, uint32(100), Continuous(100).Capacity(1.0))
	assert.Equal(t, uint32(1), Continuous(0).Capacity(1.0))
}

func TestEmitter_BurstFiresOnce(t *testing.T) {
	e := NewEmitter(EmitterSettings{
		Mode:     Burst(500),
		Lifetime: 2.0,
		MassMin:  1, MassMax: 1,
	})
	require.Equal(t, uint32(500), e.Capacity())

	assert.Equal(t, uint32(500), e.Step(1.0/60.0))
	assert.Equal(t, uint32(500), e.AliveCount())

	for i := 0; i < 10; i++ {
		assert.Equal(t, uint32(0), e.Step(1.0/60.0))
	}
	assert.Equal(t, uint32(500), e.AliveCount())
}

func TestEmitter_BurstExpiresAfterLifetime(t *testing.T) {
	e := NewEmitter(EmitterSettings{
		Mode:     Burst(1000),
		Lifetime: 2.0,
		MassMin:  1, MassMax: 1,
	})

	dt := float32(1.0 / 60.0)
	for i := 0; i < 60; i++ {
		e.Step(dt)
	}
	assert.Equal(t, uint32(1000), e.AliveCount(), "all particles alive after 1s")

	// 125 frames total puts the clock safely past emission time + lifetime.
	for i := 0; i < 65; i++ {
		e.Step(dt)
	}
	assert.Equal(t, uint32(0), e.AliveCount(), "all particles dead after lifetime")
	assert.Equal(t, uint32(0), e.Step(dt), "burst does not re-fire")
}

func TestEmitter_ContinuousRate(t *testing.T) {
	e := NewEmitter(EmitterSettings{
		Mode:     Continuous(100),
		Lifetime: 5.0,
		MassMin:  1, MassMax: 1,
	})

	var total uint32
	for i := 0; i < 60; i++ {
		n := e.Step(1.0 / 60.0)
		// 100/s at 60fps never wants more than 2 per frame.
		assert.LessOrEqual(t, n, uint32(2))
		total += n
	}
	assert.InDelta(t, 100, float64(total), 1, "one second of emission at 100/s")
	assert.Equal(t, total, e.AliveCount())
}

func TestEmitter_FractionalAccumulation(t *testing.T) {
	// 30/s at 60fps wants half a particle per frame: emission must
	// alternate 0,1,0,1 instead of rounding every frame.
	e := NewEmitter(EmitterSettings{
		Mode:     Continuous(30),
		Lifetime: 10.0,
		MassMin:  1, MassMax: 1,
	})

	var total uint32
	for i := 0; i < 60; i++ {
		n := e.Step(1.0 / 60.0)
		assert.LessOrEqual(t, n, uint32(1))
		total += n
	}
	assert.InDelta(t, 30, float64(total), 1)
}

func TestEmitter_ClampReaccumulates(t *testing.T) {
	// Capacity 10. A 2s stall wants 20 particles at once; only 10 fit and
	// the remainder carries instead of vanishing.
	e := NewEmitter(EmitterSettings{
		Mode:     Continuous(10),
		Lifetime: 1.0,
		MassMin:  1, MassMax: 1,
	})
	require.Equal(t, uint32(10), e.Capacity())

	assert.Equal(t, uint32(10), e.Step(2.0))
	assert.Equal(t, uint32(10), e.AliveCount())

	// Store is full: nothing fits, the demand keeps accumulating.
	assert.Equal(t, uint32(0), e.Step(0.01))

	// Once the first wave expires the carried demand fills the store again.
	assert.Equal(t, uint32(10), e.Step(1.5))
	assert.Equal(t, uint32(10), e.AliveCount())
}

func TestEmitter_NeverExceedsCapacity(t *testing.T) {
	e := NewEmitter(EmitterSettings{
		Mode:     Continuous(1000),
		Lifetime: 0.5,
		MassMin:  1, MassMax: 1,
	})

	for i := 0; i < 600; i++ {
		e.Step(1.0 / 60.0)
		require.LessOrEqual(t, e.AliveCount(), e.Capacity())
	}
}

func TestEmitter_Reset(t *testing.T) {
	e := NewEmitter(EmitterSettings{
		Mode:     Burst(100),
		Lifetime: 2.0,
		MassMin:  1, MassMax: 1,
	})
	e.Step(1.0 / 60.0)
	require.Equal(t, uint32(100), e.AliveCount())

	e.Reset()
	assert.Equal(t, uint32(0), e.AliveCount())
	assert.Equal(t, float64(0), e.Clock())

	// Burst re-arms.
	assert.Equal(t, uint32(100), e.Step(1.0/60.0))
}
