package gpu

import (
	"encoding/binary"
	"math"
)

// Particle record as laid out in the storage buffers (see shaders):
//
//	position  vec3<f32>  -- 0
//	mass      f32        -- 12
//	velocity  vec3<f32>  -- 16
//	lifetime  f32        -- 28
//	color     vec4<f32>  -- 32
//	age       f32        -- 48
//	padding              -- 52..64
const ParticleStride = 64

// DrawArgs mirrors the non-indexed indirect draw argument block. The
// instance_count word doubles as the atomic alive counter.
const (
	DrawArgsSize           = 16
	drawArgsVertexOffset   = 0
	drawArgsInstanceOffset = 4
)

func putF32(buf []byte, off int, v float32) {
	binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(v))
}

func putU32(buf []byte, off int, v uint32) {
	binary.LittleEndian.PutUint32(buf[off:], v)
}

func putVec3(buf []byte, off int, v [3]float32) {
	putF32(buf, off, v[0])
	putF32(buf, off+4, v[1])
	putF32(buf, off+8, v[2])
}

func putVec4(buf []byte, off int, v [4]float32) {
	putF32(buf, off, v[0])
	putF32(buf, off+4, v[1])
	putF32(buf, off+8, v[2])
	putF32(buf, off+12, v[3])
}

// EmitParams matches EmitParams in emit.wgsl (96 bytes).
type EmitParams struct {
	EmitterPos [3]float32
	Count      uint32
	ColorMin   [4]float32
	ColorMax   [4]float32
	Shape      uint32
	Extent     float32
	Lifetime   float32
	Seed       uint32
	SpeedMin   float32
	SpeedMax   float32
	MassMin    float32
	MassMax    float32
	Capacity   uint32
}

const EmitParamsSize = 96

func (p EmitParams) Bytes() []byte {
	buf := make([]byte, EmitParamsSize)
	putVec3(buf, 0, p.EmitterPos)
	putU32(buf, 12, p.Count)
	putVec4(buf, 16, p.ColorMin)
	putVec4(buf, 32, p.ColorMax)
	putU32(buf, 48, p.Shape)
	putF32(buf, 52, p.Extent)
	putF32(buf, 56, p.Lifetime)
	putU32(buf, 60, p.Seed)
	putF32(buf, 64, p.SpeedMin)
	putF32(buf, 68, p.SpeedMax)
	putF32(buf, 72, p.MassMin)
	putF32(buf, 76, p.MassMax)
	putU32(buf, 80, p.Capacity)
	return buf
}

// SimParams matches SimParams in update.wgsl (32 bytes).
type SimParams struct {
	GravityCenter   [3]float32
	DeltaTime       float32
	GravityStrength float32
	Drag            float32
	Swirl           float32
	Capacity        uint32
}

const SimParamsSize = 32

func (p SimParams) Bytes() []byte {
	buf := make([]byte, SimParamsSize)
	putVec3(buf, 0, p.GravityCenter)
	putF32(buf, 12, p.DeltaTime)
	putF32(buf, 16, p.GravityStrength)
	putF32(buf, 20, p.Drag)
	putF32(buf, 24, p.Swirl)
	putU32(buf, 28, p.Capacity)
	return buf
}

// RenderParams matches RenderParams in render.wgsl (112 bytes).
type RenderParams struct {
	ViewProj [16]float32 // column-major
	Eye      [3]float32
	Scale    float32
	Right    [3]float32
	FadeDist float32
	Up       [3]float32
}

const RenderParamsSize = 112

func (p RenderParams) Bytes() []byte {
	buf := make([]byte, RenderParamsSize)
	for i, v := range p.ViewProj {
		putF32(buf, i*4, v)
	}
	putVec3(buf, 64, p.Eye)
	putF32(buf, 76, p.Scale)
	putVec3(buf, 80, p.Right)
	putF32(buf, 92, p.FadeDist)
	putVec3(buf, 96, p.Up)
	return buf
}

func drawArgsBytes(vertexCount, instanceCount uint32) []byte {
	buf := make([]byte, DrawArgsSize)
	putU32(buf, drawArgsVertexOffset, vertexCount)
	putU32(buf, drawArgsInstanceOffset, instanceCount)
	return buf
}
