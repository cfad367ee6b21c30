package shaders

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Mirrors pcg_hash in emit.wgsl.
func pcgHash(input uint32) uint32 {
	state := input*747796405 + 2891336453
	word := ((state >> ((state >> 28) + 4)) ^ state) * 277803737
	return (word >> 22) ^ word
}

// Mirrors the kernel's per-thread seeding. The multiplier must match the
// shader; TestEmitSeeding_MatchesShader ties the two together.
func emitSeed(thread, frameSeed uint32) uint32 {
	return pcgHash(thread + frameSeed*747796405)
}

func randStream(seed uint32, n int) string {
	s := ""
	state := seed
	for j := 0; j < n; j++ {
		state = pcgHash(state)
		s += fmt.Sprintf("%08x", state)
	}
	return s
}

func TestEmitSeeding_MatchesShader(t *testing.T) {
	assert.Contains(t, EmitWGSL, "pcg_hash(i + params.seed * 747796405u)")
}

// XOR-mixing the thread index with the frame counter seeded frame f+1
// thread i identically to frame f thread i^1, duplicating every other
// frame's whole emission batch. The multiplicative spread keeps the raw
// seeding inputs of different frames in disjoint ranges.
func TestEmitSeeding_DecorrelatesFrames(t *testing.T) {
	const count = 2000
	const spread = uint32(747796405)

	for _, frame := range []uint32{1, 2, 10, 1000} {
		inputs := make(map[uint32]bool, 2*count)
		for _, f := range []uint32{frame, frame + 1} {
			for i := uint32(0); i < count; i++ {
				in := i + f*spread
				require.False(t, inputs[in], "frames %d/%d: thread %d reuses a seeding input", frame, frame+1, i)
				inputs[in] = true
			}
		}
		// The old aliasing, stream for stream: frame f+1 thread i must not
		// replay frame f thread i^1.
		for i := uint32(0); i < count; i++ {
			require.NotEqual(t,
				randStream(emitSeed(i^1, frame), 8),
				randStream(emitSeed(i, frame+1), 8),
				"frames %d/%d: thread %d replays a stream", frame, frame+1, i)
		}
	}
}

func TestEmitSeeding_ThreadsWithinFrameDistinct(t *testing.T) {
	seen := make(map[uint32]bool)
	for i := uint32(0); i < 256; i++ {
		s := emitSeed(i, 7)
		assert.False(t, seen[s], "thread %d collides", i)
		seen[s] = true
	}
}
