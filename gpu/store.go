package gpu

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// ParticleStore owns the double-buffered particle storage and the shared
// counter buffer. The two particle buffers alternate between source and
// destination roles; role names the buffer currently holding the live set.
type ParticleStore struct {
	capacity uint32
	buffers  [2]*wgpu.Buffer
	counters *wgpu.Buffer
	role     int
}

// NewParticleStore allocates both particle buffers zero-initialized, so
// every slot starts out dead (lifetime == 0).
func NewParticleStore(device *wgpu.Device, capacity uint32) (*ParticleStore, error) {
	if capacity == 0 {
		return nil, fmt.Errorf("particle store: capacity must be positive")
	}

	s := &ParticleStore{capacity: capacity}
	size := uint64(capacity) * ParticleStride
	for i := range s.buffers {
		buf, err := device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: fmt.Sprintf("particles-%d", i),
			Size:  size,
			Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst,
		})
		if err != nil {
			s.Release()
			return nil, fmt.Errorf("particle store: buffer %d (%d bytes): %w", i, size, err)
		}
		s.buffers[i] = buf
	}

	counters, err := device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "particle-draw-args",
		Size:  DrawArgsSize,
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageIndirect | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		s.Release()
		return nil, fmt.Errorf("particle store: draw args buffer: %w", err)
	}
	s.counters = counters

	return s, nil
}

func (s *ParticleStore) Capacity() uint32 { return s.capacity }

// Current returns the buffer holding the live particle set.
func (s *ParticleStore) Current() *wgpu.Buffer { return s.buffers[s.role] }

// Scratch returns the buffer a compaction or integration pass writes into.
func (s *ParticleStore) Scratch() *wgpu.Buffer { return s.buffers[1-s.role] }

// Buffer returns the buffer at a fixed index, independent of role.
func (s *ParticleStore) Buffer(i int) *wgpu.Buffer { return s.buffers[i] }

// Counters returns the draw-argument buffer; word 1 is the alive counter.
func (s *ParticleStore) Counters() *wgpu.Buffer { return s.counters }

func (s *ParticleStore) Role() int { return s.role }

// SwapRole flips which buffer is considered live. Called after each pass
// that wrote the full live set into the scratch buffer.
func (s *ParticleStore) SwapRole() { s.role = 1 - s.role }

// ResetRole pins the live buffer back to index 0.
func (s *ParticleStore) ResetRole() { s.role = 0 }

// WriteDrawArgs stages the indirect argument block. Queue writes are
// ordered before any command buffer submitted afterwards, so staging the
// reset here lands before the frame's compute passes run.
func (s *ParticleStore) WriteDrawArgs(queue *wgpu.Queue, vertexCount, instanceCount uint32) {
	queue.WriteBuffer(s.counters, 0, drawArgsBytes(vertexCount, instanceCount))
}

// WriteVertexCount patches only the vertex_count word, leaving the alive
// counter untouched.
func (s *ParticleStore) WriteVertexCount(queue *wgpu.Queue, vertexCount uint32) {
	buf := make([]byte, 4)
	putU32(buf, 0, vertexCount)
	queue.WriteBuffer(s.counters, drawArgsVertexOffset, buf)
}

func (s *ParticleStore) Release() {
	for i, buf := range s.buffers {
		if buf != nil {
			buf.Release()
			s.buffers[i] = nil
		}
	}
	if s.counters != nil {
		s.counters.Release()
		s.counters = nil
	}
}
