package gpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderShape_VertexCount(t *testing.T) {
	assert.Equal(t, uint32(1), RenderPoints.VertexCount())
	assert.Equal(t, uint32(6), RenderQuads.VertexCount())
}

func TestRenderShape_String(t *testing.T) {
	assert.Equal(t, "points", RenderPoints.String())
	assert.Equal(t, "quads", RenderQuads.String())
}

func TestDispatchGroups(t *testing.T) {
	assert.Equal(t, uint32(1), dispatchGroups(1))
	assert.Equal(t, uint32(1), dispatchGroups(64))
	assert.Equal(t, uint32(2), dispatchGroups(65))
	assert.Equal(t, uint32(32768), dispatchGroups(2097152))
}

func TestGravityCenter_Sweep(t *testing.T) {
	ps := &ParticleSystem{}

	c0 := ps.gravityCenter()
	assert.InDelta(t, 2.0, float64(c0[0]), 1e-6, "cos(0)*2")
	assert.InDelta(t, 0.0, float64(c0[1]), 1e-6)

	ps.simClock = 1.5
	c1 := ps.gravityCenter()
	assert.NotEqual(t, c0, c1, "attractor moves with the sim clock")

	// Stays within the sweep envelope.
	for _, clock := range []float64{0.3, 2.7, 11.9, 100} {
		ps.simClock = clock
		c := ps.gravityCenter()
		assert.LessOrEqual(t, float64(c[0]), 2.0)
		assert.GreaterOrEqual(t, float64(c[0]), -2.0)
		assert.LessOrEqual(t, float64(c[2]), 1.5)
		assert.GreaterOrEqual(t, float64(c[2]), -1.5)
	}
}
