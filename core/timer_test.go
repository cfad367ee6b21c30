package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimer_Tick(t *testing.T) {
	timer := NewTimer()
	time.Sleep(5 * time.Millisecond)

	dt := timer.Tick()
	assert.Greater(t, dt, float32(0))
	assert.Less(t, dt, float32(1.0))

	// Second tick measures only the interval since the first.
	dt2 := timer.Tick()
	assert.GreaterOrEqual(t, dt2, float32(0))
	assert.Less(t, dt2, dt)
}
