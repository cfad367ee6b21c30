package gpu

import (
	"fmt"
	"math"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/google/uuid"

	"github.com/gekko3d/ember/core"
	"github.com/gekko3d/ember/shaders"
)

// DepthFormat is the depth attachment format the render pipelines expect.
const DepthFormat = wgpu.TextureFormatDepth32Float

const workgroupSize = 64

// RenderShape selects how alive particles are drawn.
type RenderShape int

const (
	RenderPoints RenderShape = iota
	RenderQuads
)

func (s RenderShape) String() string {
	switch s {
	case RenderPoints:
		return "points"
	case RenderQuads:
		return "quads"
	default:
		return fmt.Sprintf("shape(%d)", int(s))
	}
}

// VertexCount is the per-instance vertex count written into the indirect
// draw arguments.
func (s RenderShape) VertexCount() uint32 {
	if s == RenderQuads {
		return 6
	}
	return 1
}

// Dynamics holds the force-field constants fed to the integration kernel.
type Dynamics struct {
	GravityStrength float32
	Drag            float32
	Swirl           float32
}

// RenderSettings holds the presentation knobs of the particle pass.
type RenderSettings struct {
	Shape         RenderShape
	ParticleScale float32
	FadeDistance  float32
}

// SystemConfig configures a ParticleSystem.
type SystemConfig struct {
	Emitter       core.EmitterSettings
	Dynamics      Dynamics
	Render        RenderSettings
	SurfaceFormat wgpu.TextureFormat
}

// ParticleSystem owns the compute and render pipelines of one particle
// effect and records their passes into a caller-provided encoder each
// frame. All particle state lives on the GPU; the CPU mirrors only the
// emission bookkeeping.
type ParticleSystem struct {
	id     string
	log    core.Logger
	device *wgpu.Device
	queue  *wgpu.Queue

	emitter *core.Emitter
	store   *ParticleStore
	state   core.SimState
	shape   RenderShape

	dynamics Dynamics
	render   RenderSettings

	simClock     float64
	frame        uint32
	pendingClear bool

	emitParamsBuf   *wgpu.Buffer
	simParamsBuf    *wgpu.Buffer
	renderParamsBuf *wgpu.Buffer

	emitPipeline    *wgpu.ComputePipeline
	updatePipeline  *wgpu.ComputePipeline
	compactPipeline *wgpu.ComputePipeline
	clearPipeline   *wgpu.ComputePipeline
	pointsPipeline  *wgpu.RenderPipeline
	quadsPipeline   *wgpu.RenderPipeline

	// Bind groups indexed by the role the store is in when the pass runs.
	emitBind    [2]*wgpu.BindGroup
	updateBind  [2]*wgpu.BindGroup
	compactBind [2]*wgpu.BindGroup
	clearBind   [2]*wgpu.BindGroup
	renderBind  [2]*wgpu.BindGroup
}

// NewParticleSystem builds the store, pipelines and bind groups. The
// particle buffers start zeroed, so the first compaction finds an empty
// set and the indirect draw renders nothing until particles are emitted.
func NewParticleSystem(device *wgpu.Device, queue *wgpu.Queue, log core.Logger, cfg SystemConfig) (*ParticleSystem, error) {
	emitter := core.NewEmitter(cfg.Emitter)

	store, err := NewParticleStore(device, emitter.Capacity())
	if err != nil {
		return nil, err
	}

	ps := &ParticleSystem{
		id:       uuid.NewString()[:8],
		log:      log,
		device:   device,
		queue:    queue,
		emitter:  emitter,
		store:    store,
		state:    core.Playing,
		shape:    cfg.Render.Shape,
		dynamics: cfg.Dynamics,
		render:   cfg.Render,
	}

	if err := ps.createBuffers(); err != nil {
		ps.Release()
		return nil, err
	}
	if err := ps.createComputePipelines(); err != nil {
		ps.Release()
		return nil, err
	}
	if err := ps.createRenderPipelines(cfg.SurfaceFormat); err != nil {
		ps.Release()
		return nil, err
	}
	if err := ps.createBindGroups(); err != nil {
		ps.Release()
		return nil, err
	}

	ps.store.WriteDrawArgs(queue, ps.shape.VertexCount(), 0)

	log.Infof("particle system %s ready: capacity=%d mode=%v shape=%v",
		ps.id, store.Capacity(), cfg.Emitter.Mode.Kind, ps.shape)
	return ps, nil
}

func (ps *ParticleSystem) createBuffers() error {
	mk := func(label string, size uint64) (*wgpu.Buffer, error) {
		return ps.device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: label,
			Size:  size,
			Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
		})
	}
	var err error
	if ps.emitParamsBuf, err = mk("emit-params", EmitParamsSize); err != nil {
		return fmt.Errorf("emit params buffer: %w", err)
	}
	if ps.simParamsBuf, err = mk("sim-params", SimParamsSize); err != nil {
		return fmt.Errorf("sim params buffer: %w", err)
	}
	if ps.renderParamsBuf, err = mk("render-params", RenderParamsSize); err != nil {
		return fmt.Errorf("render params buffer: %w", err)
	}
	return nil
}

func (ps *ParticleSystem) createComputePipelines() error {
	mk := func(label, src, entry string) (*wgpu.ComputePipeline, error) {
		module, err := ps.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
			Label:          label,
			WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: src},
		})
		if err != nil {
			return nil, fmt.Errorf("%s shader: %w", label, err)
		}
		defer module.Release()
		pipeline, err := ps.device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
			Label: label,
			Compute: wgpu.ProgrammableStageDescriptor{
				Module:     module,
				EntryPoint: entry,
			},
		})
		if err != nil {
			return nil, fmt.Errorf("%s pipeline: %w", label, err)
		}
		return pipeline, nil
	}

	var err error
	if ps.emitPipeline, err = mk("particle-emit", shaders.EmitWGSL, "main"); err != nil {
		return err
	}
	if ps.updatePipeline, err = mk("particle-update", shaders.UpdateWGSL, "main"); err != nil {
		return err
	}
	if ps.compactPipeline, err = mk("particle-compact", shaders.CompactWGSL, "main"); err != nil {
		return err
	}
	if ps.clearPipeline, err = mk("particle-clear", shaders.ClearWGSL, "main"); err != nil {
		return err
	}
	return nil
}

func (ps *ParticleSystem) createRenderPipelines(surfaceFormat wgpu.TextureFormat) error {
	module, err := ps.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "particle-render",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: shaders.RenderWGSL},
	})
	if err != nil {
		return fmt.Errorf("render shader: %w", err)
	}
	defer module.Release()

	blend := &wgpu.BlendState{
		Color: wgpu.BlendComponent{
			SrcFactor: wgpu.BlendFactorSrcAlpha,
			DstFactor: wgpu.BlendFactorOne,
			Operation: wgpu.BlendOperationAdd,
		},
		Alpha: wgpu.BlendComponent{
			SrcFactor: wgpu.BlendFactorOne,
			DstFactor: wgpu.BlendFactorOne,
			Operation: wgpu.BlendOperationAdd,
		},
	}

	mk := func(label, entry string, topology wgpu.PrimitiveTopology) (*wgpu.RenderPipeline, error) {
		pipeline, err := ps.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
			Label: label,
			Vertex: wgpu.VertexState{
				Module:     module,
				EntryPoint: entry,
			},
			Fragment: &wgpu.FragmentState{
				Module:     module,
				EntryPoint: "fs_main",
				Targets: []wgpu.ColorTargetState{{
					Format:    surfaceFormat,
					Blend:     blend,
					WriteMask: wgpu.ColorWriteMaskAll,
				}},
			},
			Primitive: wgpu.PrimitiveState{
				Topology:  topology,
				FrontFace: wgpu.FrontFaceCCW,
				CullMode:  wgpu.CullModeNone,
			},
			DepthStencil: &wgpu.DepthStencilState{
				Format:            DepthFormat,
				DepthWriteEnabled: true,
				DepthCompare:      wgpu.CompareFunctionLess,
				StencilFront:      wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
				StencilBack:       wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
			},
			Multisample: wgpu.MultisampleState{
				Count: 1,
				Mask:  0xFFFFFFFF,
			},
		})
		if err != nil {
			return nil, fmt.Errorf("%s pipeline: %w", label, err)
		}
		return pipeline, nil
	}

	if ps.pointsPipeline, err = mk("particle-points", "vs_points", wgpu.PrimitiveTopologyPointList); err != nil {
		return err
	}
	if ps.quadsPipeline, err = mk("particle-quads", "vs_quads", wgpu.PrimitiveTopologyTriangleList); err != nil {
		return err
	}
	return nil
}

func (ps *ParticleSystem) createBindGroups() error {
	buf := func(binding uint32, b *wgpu.Buffer) wgpu.BindGroupEntry {
		return wgpu.BindGroupEntry{Binding: binding, Buffer: b, Size: wgpu.WholeSize}
	}
	mk := func(label string, layout *wgpu.BindGroupLayout, entries []wgpu.BindGroupEntry) (*wgpu.BindGroup, error) {
		bg, err := ps.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
			Label:   label,
			Layout:  layout,
			Entries: entries,
		})
		if err != nil {
			return nil, fmt.Errorf("%s bind group: %w", label, err)
		}
		return bg, nil
	}

	// Role r means buffer r holds the live set when the pass begins.
	for r := 0; r < 2; r++ {
		var err error

		layout := ps.emitPipeline.GetBindGroupLayout(0)
		ps.emitBind[r], err = mk(fmt.Sprintf("emit-%d", r), layout, []wgpu.BindGroupEntry{
			buf(0, ps.store.Buffer(r)),
			buf(1, ps.store.Counters()),
			buf(2, ps.emitParamsBuf),
		})
		layout.Release()
		if err != nil {
			return err
		}

		layout = ps.updatePipeline.GetBindGroupLayout(0)
		ps.updateBind[r], err = mk(fmt.Sprintf("update-%d", r), layout, []wgpu.BindGroupEntry{
			buf(0, ps.store.Buffer(r)),
			buf(1, ps.store.Buffer(1-r)),
			buf(2, ps.simParamsBuf),
			buf(3, ps.store.Counters()),
		})
		layout.Release()
		if err != nil {
			return err
		}

		layout = ps.compactPipeline.GetBindGroupLayout(0)
		ps.compactBind[r], err = mk(fmt.Sprintf("compact-%d", r), layout, []wgpu.BindGroupEntry{
			buf(0, ps.store.Buffer(r)),
			buf(1, ps.store.Buffer(1-r)),
			buf(2, ps.store.Counters()),
		})
		layout.Release()
		if err != nil {
			return err
		}

		layout = ps.clearPipeline.GetBindGroupLayout(0)
		ps.clearBind[r], err = mk(fmt.Sprintf("clear-%d", r), layout, []wgpu.BindGroupEntry{
			buf(0, ps.store.Buffer(r)),
		})
		layout.Release()
		if err != nil {
			return err
		}

		layout = ps.pointsPipeline.GetBindGroupLayout(0)
		ps.renderBind[r], err = mk(fmt.Sprintf("render-%d", r), layout, []wgpu.BindGroupEntry{
			buf(0, ps.renderParamsBuf),
			buf(1, ps.store.Buffer(r)),
		})
		layout.Release()
		if err != nil {
			return err
		}
	}
	return nil
}

func dispatchGroups(n uint32) uint32 {
	return (n + workgroupSize - 1) / workgroupSize
}

// gravityCenter sweeps the attractor along a Lissajous curve so the cloud
// keeps churning instead of collapsing into a steady orbit.
func (ps *ParticleSystem) gravityCenter() [3]float32 {
	t := ps.simClock
	return [3]float32{
		float32(math.Cos(t)) * 2.0,
		float32(math.Sin(t)) * 2.0,
		float32(math.Sin(t*0.5)) * 1.5,
	}
}

// EncodeSimulation records this frame's compute passes: compact the set
// written last frame, integrate the survivors, then append newly emitted
// particles. The live buffer role flips twice, so it is stable across
// frames. Paused systems record nothing and keep the draw args intact.
func (ps *ParticleSystem) EncodeSimulation(encoder *wgpu.CommandEncoder, dt float32) {
	if ps.state != core.Playing {
		return
	}

	ps.simClock += float64(dt)
	ps.frame++

	capGroups := dispatchGroups(ps.store.Capacity())

	if ps.pendingClear {
		pass := encoder.BeginComputePass(nil)
		pass.SetPipeline(ps.clearPipeline)
		for r := 0; r < 2; r++ {
			pass.SetBindGroup(0, ps.clearBind[r], nil)
			pass.DispatchWorkgroups(capGroups, 1, 1)
		}
		pass.End()
		ps.pendingClear = false
	}

	// Stage the counter reset; queue writes land before the submit that
	// carries these passes.
	ps.store.WriteDrawArgs(ps.queue, ps.shape.VertexCount(), 0)

	// Compact: survivors of the previous frame move densely into the
	// scratch buffer, rebuilding the alive counter as they go.
	{
		pass := encoder.BeginComputePass(nil)
		pass.SetPipeline(ps.compactPipeline)
		pass.SetBindGroup(0, ps.compactBind[ps.store.Role()], nil)
		pass.DispatchWorkgroups(capGroups, 1, 1)
		pass.End()
		ps.store.SwapRole()
	}

	// Update: integrate every slot into the other buffer. Dead slots copy
	// through unchanged and stay dead.
	center := ps.gravityCenter()
	ps.queue.WriteBuffer(ps.simParamsBuf, 0, SimParams{
		GravityCenter:   center,
		DeltaTime:       dt,
		GravityStrength: ps.dynamics.GravityStrength,
		Drag:            ps.dynamics.Drag,
		Swirl:           ps.dynamics.Swirl,
		Capacity:        ps.store.Capacity(),
	}.Bytes())
	{
		pass := encoder.BeginComputePass(nil)
		pass.SetPipeline(ps.updatePipeline)
		pass.SetBindGroup(0, ps.updateBind[ps.store.Role()], nil)
		pass.DispatchWorkgroups(capGroups, 1, 1)
		pass.End()
		ps.store.SwapRole()
	}

	// Emit: append into the live buffer at slots claimed from the counter.
	if n := ps.emitter.Step(dt); n > 0 {
		set := ps.emitter.Settings()
		ps.queue.WriteBuffer(ps.emitParamsBuf, 0, EmitParams{
			EmitterPos: [3]float32{set.Position.X(), set.Position.Y(), set.Position.Z()},
			Count:      n,
			ColorMin:   set.ColorMin,
			ColorMax:   set.ColorMax,
			Shape:      uint32(set.Shape),
			Extent:     set.Extent,
			Lifetime:   set.Lifetime,
			Seed:       ps.frame,
			SpeedMin:   set.SpeedMin,
			SpeedMax:   set.SpeedMax,
			MassMin:    set.MassMin,
			MassMax:    set.MassMax,
			Capacity:   ps.store.Capacity(),
		}.Bytes())

		pass := encoder.BeginComputePass(nil)
		pass.SetPipeline(ps.emitPipeline)
		pass.SetBindGroup(0, ps.emitBind[ps.store.Role()], nil)
		pass.DispatchWorkgroups(dispatchGroups(n), 1, 1)
		pass.End()
	}
}

// EncodeRender records the particle draw. The instance count comes
// straight from the counter buffer via an indirect draw, so no readback
// sits between simulation and presentation.
func (ps *ParticleSystem) EncodeRender(encoder *wgpu.CommandEncoder, colorView, depthView *wgpu.TextureView, cam *core.CameraState, aspect float32) {
	vp := cam.GetViewProjection(aspect)
	right := cam.GetRight()
	up := cam.GetUp()
	ps.queue.WriteBuffer(ps.renderParamsBuf, 0, RenderParams{
		ViewProj: [16]float32(vp),
		Eye:      [3]float32{cam.Position.X(), cam.Position.Y(), cam.Position.Z()},
		Scale:    ps.render.ParticleScale,
		Right:    [3]float32{right.X(), right.Y(), right.Z()},
		FadeDist: ps.render.FadeDistance,
		Up:       [3]float32{up.X(), up.Y(), up.Z()},
	}.Bytes())

	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label: "particle-pass",
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:       colorView,
			LoadOp:     wgpu.LoadOpClear,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: wgpu.Color{R: 0.008, G: 0.008, B: 0.012, A: 1.0},
		}},
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:            depthView,
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpStore,
			DepthClearValue: 1.0,
		},
	})
	if ps.shape == RenderQuads {
		pass.SetPipeline(ps.quadsPipeline)
	} else {
		pass.SetPipeline(ps.pointsPipeline)
	}
	pass.SetBindGroup(0, ps.renderBind[ps.store.Role()], nil)
	pass.DrawIndirect(ps.store.Counters(), 0)
	pass.End()
}

// Pause freezes the simulation. Draw args keep the last compacted alive
// count, so render keeps showing the frozen set.
func (ps *ParticleSystem) Pause() {
	if ps.state == core.Playing {
		ps.state = core.Paused
		ps.log.Infof("particle system %s paused at t=%.2fs alive=%d", ps.id, ps.simClock, ps.AliveCount())
	}
}

func (ps *ParticleSystem) Resume() {
	if ps.state == core.Paused {
		ps.state = core.Playing
		ps.log.Infof("particle system %s resumed", ps.id)
	}
}

func (ps *ParticleSystem) TogglePause() {
	if ps.state == core.Playing {
		ps.Pause()
	} else {
		ps.Resume()
	}
}

// Restart clears all particle state and begins the effect from scratch.
// A restart while paused resumes playback. The buffer wipe runs on the
// GPU at the start of the next simulation frame, so stale records cannot
// leak through the following compaction.
func (ps *ParticleSystem) Restart() {
	ps.emitter.Reset()
	ps.simClock = 0
	ps.frame = 0
	ps.pendingClear = true
	ps.store.ResetRole()
	ps.store.WriteDrawArgs(ps.queue, ps.shape.VertexCount(), 0)
	ps.state = core.Playing
	ps.log.Infof("particle system %s restarted", ps.id)
}

// SetShape switches the draw mode. The vertex_count word is patched in
// place so the switch also works while paused.
func (ps *ParticleSystem) SetShape(shape RenderShape) {
	if shape == ps.shape {
		return
	}
	ps.shape = shape
	ps.store.WriteVertexCount(ps.queue, shape.VertexCount())
	ps.log.Infof("particle system %s shape: %v", ps.id, shape)
}

func (ps *ParticleSystem) ToggleShape() {
	if ps.shape == RenderPoints {
		ps.SetShape(RenderQuads)
	} else {
		ps.SetShape(RenderPoints)
	}
}

func (ps *ParticleSystem) ID() string           { return ps.id }
func (ps *ParticleSystem) State() core.SimState { return ps.state }
func (ps *ParticleSystem) Shape() RenderShape   { return ps.shape }
func (ps *ParticleSystem) Capacity() uint32     { return ps.store.Capacity() }

// AliveCount reports the CPU-side mirror of the GPU alive counter. The
// two agree because particle lifetime is a per-system constant, which
// makes expiry deterministic.
func (ps *ParticleSystem) AliveCount() uint32 { return ps.emitter.AliveCount() }

func (ps *ParticleSystem) Release() {
	for _, bg := range [...]*wgpu.BindGroup{
		ps.emitBind[0], ps.emitBind[1],
		ps.updateBind[0], ps.updateBind[1],
		ps.compactBind[0], ps.compactBind[1],
		ps.clearBind[0], ps.clearBind[1],
		ps.renderBind[0], ps.renderBind[1],
	} {
		if bg != nil {
			bg.Release()
		}
	}
	for _, p := range [...]*wgpu.ComputePipeline{
		ps.emitPipeline, ps.updatePipeline, ps.compactPipeline, ps.clearPipeline,
	} {
		if p != nil {
			p.Release()
		}
	}
	if ps.pointsPipeline != nil {
		ps.pointsPipeline.Release()
	}
	if ps.quadsPipeline != nil {
		ps.quadsPipeline.Release()
	}
	for _, b := range [...]*wgpu.Buffer{ps.emitParamsBuf, ps.simParamsBuf, ps.renderParamsBuf} {
		if b != nil {
			b.Release()
		}
	}
	if ps.store != nil {
		ps.store.Release()
	}
}
