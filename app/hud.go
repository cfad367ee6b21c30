package app

import (
	"fmt"
	"image"
	"image/draw"
	"unsafe"

	"github.com/cogentcore/webgpu/wgpu"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/gekko3d/ember/shaders"
)

type hudVertex struct {
	Pos   [2]float32
	UV    [2]float32
	Color [4]float32
}

// HudItem is one string queued for the overlay this frame. Position is in
// pixels from the top-left corner.
type HudItem struct {
	Text     string
	Position [2]float32
	Scale    float32
	Color    [4]float32
}

type glyphInfo struct {
	uvMin [2]float32
	uvMax [2]float32
	size  [2]float32
	off   [2]float32
	adv   float32
}

// GlyphAtlas rasterizes the printable ASCII range of the embedded Go
// Regular face into a single-channel atlas and builds screen-space quads
// from it. It has no GPU dependencies, so layout is testable on the CPU.
type GlyphAtlas struct {
	image  *image.Alpha
	glyphs map[rune]glyphInfo
	face   font.Face
}

const atlasSize = 512

func NewGlyphAtlas(fontSize float64) (*GlyphAtlas, error) {
	f, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    fontSize,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("font face: %w", err)
	}

	atlas := image.NewAlpha(image.Rect(0, 0, atlasSize, atlasSize))
	glyphs := make(map[rune]glyphInfo)

	x, y := 2, 2
	rowHeight := 0
	for r := rune(32); r < 127; r++ {
		bounds, mask, _, adv, ok := face.Glyph(fixed.Point26_6{}, r)
		if !ok {
			continue
		}
		w := mask.Bounds().Dx()
		h := mask.Bounds().Dy()
		if x+w >= atlasSize {
			x = 2
			y += rowHeight + 4
			rowHeight = 0
		}
		if y+h >= atlasSize {
			return nil, fmt.Errorf("glyph atlas overflow at %q", r)
		}

		draw.Draw(atlas, image.Rect(x, y, x+w, y+h), mask, mask.Bounds().Min, draw.Src)
		glyphs[r] = glyphInfo{
			uvMin: [2]float32{float32(x) / atlasSize, float32(y) / atlasSize},
			uvMax: [2]float32{float32(x+w) / atlasSize, float32(y+h) / atlasSize},
			size:  [2]float32{float32(w), float32(h)},
			off:   [2]float32{float32(bounds.Min.X), float32(bounds.Min.Y)},
			adv:   float32(adv) / 64.0, // fixed 26.6 to pixels
		}

		x += w + 4
		if h > rowHeight {
			rowHeight = h
		}
	}

	return &GlyphAtlas{image: atlas, glyphs: glyphs, face: face}, nil
}

// BuildVertices converts queued items into NDC triangles against the
// given framebuffer size.
func (ga *GlyphAtlas) BuildVertices(items []HudItem, screenW, screenH int) []hudVertex {
	vertices := make([]hudVertex, 0, len(items)*6)

	sw := float32(screenW)
	sh := float32(screenH)
	metrics := ga.face.Metrics()
	ascent := float32(metrics.Ascent.Ceil())
	lineHeight := float32(metrics.Height.Ceil())

	for _, item := range items {
		startX := item.Position[0]
		posX := startX
		posY := item.Position[1] + ascent*item.Scale

		for _, r := range item.Text {
			if r == '\n' {
				posX = startX
				posY += lineHeight * item.Scale
				continue
			}
			g, ok := ga.glyphs[r]
			if !ok {
				continue
			}

			x0 := (posX+g.off[0]*item.Scale)/sw*2.0 - 1.0
			y0 := 1.0 - (posY+g.off[1]*item.Scale)/sh*2.0
			x1 := (posX+(g.off[0]+g.size[0])*item.Scale)/sw*2.0 - 1.0
			y1 := 1.0 - (posY+(g.off[1]+g.size[1])*item.Scale)/sh*2.0

			vertices = append(vertices,
				hudVertex{Pos: [2]float32{x0, y0}, UV: [2]float32{g.uvMin[0], g.uvMin[1]}, Color: item.Color},
				hudVertex{Pos: [2]float32{x1, y0}, UV: [2]float32{g.uvMax[0], g.uvMin[1]}, Color: item.Color},
				hudVertex{Pos: [2]float32{x0, y1}, UV: [2]float32{g.uvMin[0], g.uvMax[1]}, Color: item.Color},
				hudVertex{Pos: [2]float32{x1, y0}, UV: [2]float32{g.uvMax[0], g.uvMin[1]}, Color: item.Color},
				hudVertex{Pos: [2]float32{x1, y1}, UV: [2]float32{g.uvMax[0], g.uvMax[1]}, Color: item.Color},
				hudVertex{Pos: [2]float32{x0, y1}, UV: [2]float32{g.uvMin[0], g.uvMax[1]}, Color: item.Color},
			)
			posX += g.adv * item.Scale
		}
	}
	return vertices
}

// Measure returns the pixel width and height text would occupy.
func (ga *GlyphAtlas) Measure(text string, scale float32) (float32, float32) {
	metrics := ga.face.Metrics()
	lineHeight := float32(metrics.Height.Ceil())

	maxW := float32(0)
	lineW := float32(0)
	lines := 1
	for _, r := range text {
		if r == '\n' {
			if lineW > maxW {
				maxW = lineW
			}
			lineW = 0
			lines++
			continue
		}
		if g, ok := ga.glyphs[r]; ok {
			lineW += g.adv * scale
		}
	}
	if lineW > maxW {
		maxW = lineW
	}
	return maxW, lineHeight * scale * float32(lines)
}

func (ga *GlyphAtlas) LineHeight(scale float32) float32 {
	return float32(ga.face.Metrics().Height.Ceil()) * scale
}

// Hud renders queued text items on top of the particle pass.
type Hud struct {
	atlas  *GlyphAtlas
	device *wgpu.Device
	queue  *wgpu.Queue

	pipeline  *wgpu.RenderPipeline
	bindGroup *wgpu.BindGroup
	atlasView *wgpu.TextureView
	sampler   *wgpu.Sampler

	vertexBuf   *wgpu.Buffer
	vertexCount uint32
	items       []HudItem
}

func NewHud(device *wgpu.Device, queue *wgpu.Queue, surfaceFormat wgpu.TextureFormat) (*Hud, error) {
	atlas, err := NewGlyphAtlas(20)
	if err != nil {
		return nil, err
	}

	h := &Hud{atlas: atlas, device: device, queue: queue}

	w := atlas.image.Bounds().Dx()
	ht := atlas.image.Bounds().Dy()
	tex, err := device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         "hud-atlas",
		Size:          wgpu.Extent3D{Width: uint32(w), Height: uint32(ht), DepthOrArrayLayers: 1},
		Format:        wgpu.TextureFormatR8Unorm,
		Usage:         wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
		Dimension:     wgpu.TextureDimension2D,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return nil, fmt.Errorf("hud atlas texture: %w", err)
	}
	queue.WriteTexture(tex.AsImageCopy(), atlas.image.Pix, &wgpu.TextureDataLayout{
		BytesPerRow:  uint32(w),
		RowsPerImage: uint32(ht),
	}, &wgpu.Extent3D{Width: uint32(w), Height: uint32(ht), DepthOrArrayLayers: 1})

	if h.atlasView, err = tex.CreateView(nil); err != nil {
		return nil, fmt.Errorf("hud atlas view: %w", err)
	}
	tex.Release()

	h.sampler, err = device.CreateSampler(&wgpu.SamplerDescriptor{
		MinFilter:     wgpu.FilterModeLinear,
		MagFilter:     wgpu.FilterModeLinear,
		MaxAnisotropy: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("hud sampler: %w", err)
	}

	module, err := device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "hud-text",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: shaders.TextWGSL},
	})
	if err != nil {
		return nil, fmt.Errorf("hud shader: %w", err)
	}
	defer module.Release()

	h.pipeline, err = device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label: "hud-text",
		Vertex: wgpu.VertexState{
			Module:     module,
			EntryPoint: "vs_main",
			Buffers: []wgpu.VertexBufferLayout{{
				ArrayStride: uint64(unsafe.Sizeof(hudVertex{})),
				StepMode:    wgpu.VertexStepModeVertex,
				Attributes: []wgpu.VertexAttribute{
					{Format: wgpu.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 0},
					{Format: wgpu.VertexFormatFloat32x2, Offset: 8, ShaderLocation: 1},
					{Format: wgpu.VertexFormatFloat32x4, Offset: 16, ShaderLocation: 2},
				},
			}},
		},
		Fragment: &wgpu.FragmentState{
			Module:     module,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{{
				Format: surfaceFormat,
				Blend: &wgpu.BlendState{
					Color: wgpu.BlendComponent{
						SrcFactor: wgpu.BlendFactorSrcAlpha,
						DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
						Operation: wgpu.BlendOperationAdd,
					},
					Alpha: wgpu.BlendComponent{
						SrcFactor: wgpu.BlendFactorOne,
						DstFactor: wgpu.BlendFactorOne,
						Operation: wgpu.BlendOperationAdd,
					},
				},
				WriteMask: wgpu.ColorWriteMaskAll,
			}},
		},
		Primitive: wgpu.PrimitiveState{
			Topology: wgpu.PrimitiveTopologyTriangleList,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("hud pipeline: %w", err)
	}

	layout := h.pipeline.GetBindGroupLayout(0)
	h.bindGroup, err = device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "hud-atlas",
		Layout: layout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, TextureView: h.atlasView},
			{Binding: 1, Sampler: h.sampler},
		},
	})
	layout.Release()
	if err != nil {
		return nil, fmt.Errorf("hud bind group: %w", err)
	}

	return h, nil
}

// Draw queues one text item for the current frame.
func (h *Hud) Draw(text string, x, y, scale float32, color [4]float32) {
	h.items = append(h.items, HudItem{
		Text:     text,
		Position: [2]float32{x, y},
		Scale:    scale,
		Color:    color,
	})
}

// Flush stages queued items into the vertex buffer, growing it as needed,
// and clears the queue.
func (h *Hud) Flush(screenW, screenH int) {
	h.vertexCount = 0
	if len(h.items) == 0 {
		return
	}
	vertices := h.atlas.BuildVertices(h.items, screenW, screenH)
	h.items = h.items[:0]
	if len(vertices) == 0 {
		return
	}

	size := uint64(len(vertices)) * uint64(unsafe.Sizeof(hudVertex{}))
	if h.vertexBuf == nil || h.vertexBuf.GetSize() < size {
		if h.vertexBuf != nil {
			h.vertexBuf.Release()
		}
		var err error
		h.vertexBuf, err = h.device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: "hud-vertices",
			Size:  size,
			Usage: wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst,
		})
		if err != nil {
			return
		}
	}
	h.queue.WriteBuffer(h.vertexBuf, 0, unsafe.Slice((*byte)(unsafe.Pointer(&vertices[0])), size))
	h.vertexCount = uint32(len(vertices))
}

// Encode draws the flushed vertices over an already-rendered frame.
func (h *Hud) Encode(encoder *wgpu.CommandEncoder, colorView *wgpu.TextureView) {
	if h.vertexCount == 0 {
		return
	}
	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label: "hud-pass",
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:    colorView,
			LoadOp:  wgpu.LoadOpLoad,
			StoreOp: wgpu.StoreOpStore,
		}},
	})
	pass.SetPipeline(h.pipeline)
	pass.SetBindGroup(0, h.bindGroup, nil)
	pass.SetVertexBuffer(0, h.vertexBuf, 0, h.vertexBuf.GetSize())
	pass.Draw(h.vertexCount, 1, 0, 0)
	pass.End()
}

func (h *Hud) Release() {
	if h.bindGroup != nil {
		h.bindGroup.Release()
	}
	if h.pipeline != nil {
		h.pipeline.Release()
	}
	if h.sampler != nil {
		h.sampler.Release()
	}
	if h.atlasView != nil {
		h.atlasView.Release()
	}
	if h.vertexBuf != nil {
		h.vertexBuf.Release()
	}
}
