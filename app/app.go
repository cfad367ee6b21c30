package app

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/ember/core"
	"github.com/gekko3d/ember/gpu"
)

// App ties the window, the WebGPU device and the particle system together
// and drives one simulation plus render pass per frame.
type App struct {
	Window *glfw.Window
	Config *Config
	Log    core.Logger
	Camera *core.CameraState

	Instance *wgpu.Instance
	Surface  *wgpu.Surface
	Adapter  *wgpu.Adapter
	Device   *wgpu.Device
	Queue    *wgpu.Queue
	SurfCfg  *wgpu.SurfaceConfiguration

	depthTexture *wgpu.Texture
	depthView    *wgpu.TextureView

	System *gpu.ParticleSystem
	Hud    *Hud
	timer  *core.Timer

	MouseCaptured bool
	lastMouseX    float64
	lastMouseY    float64

	fullscreen bool
	windowedX  int
	windowedY  int
	windowedW  int
	windowedH  int

	frameCount int
	fps        float64
	fpsTime    float64
	lastFrame  float64
}

func NewApp(window *glfw.Window, cfg *Config, log core.Logger) *App {
	cam := core.NewCameraState()
	cam.Position = mgl32.Vec3{0, 1.5, 9}
	return &App{
		Window: window,
		Config: cfg,
		Log:    log,
		Camera: cam,
		timer:  core.NewTimer(),
	}
}

func (a *App) Init() error {
	a.Instance = wgpu.CreateInstance(nil)
	a.Surface = a.Instance.CreateSurface(wgpuglfw.GetSurfaceDescriptor(a.Window))

	adapter, err := a.Instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		CompatibleSurface: a.Surface,
		PowerPreference:   wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		return fmt.Errorf("request adapter: %w", err)
	}
	a.Adapter = adapter

	if a.Device, err = adapter.RequestDevice(nil); err != nil {
		return fmt.Errorf("request device: %w", err)
	}
	a.Queue = a.Device.GetQueue()

	width, height := a.Window.GetFramebufferSize()
	caps := a.Surface.GetCapabilities(adapter)
	format := caps.Formats[0]

	a.SurfCfg = &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      format,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: wgpu.PresentModeFifo,
		AlphaMode:   caps.AlphaModes[0],
	}
	a.Surface.Configure(adapter, a.Device, a.SurfCfg)
	a.createDepthTexture(width, height)

	if a.System, err = gpu.NewParticleSystem(a.Device, a.Queue, a.Log, a.Config.SystemConfig(format)); err != nil {
		return fmt.Errorf("particle system: %w", err)
	}

	if a.Hud, err = NewHud(a.Device, a.Queue, format); err != nil {
		a.Log.Warnf("hud disabled: %v", err)
		a.Hud = nil
	}

	a.Log.Infof("initialized %dx%d, surface format %v", width, height, format)
	return nil
}

func (a *App) createDepthTexture(w, h int) {
	if a.depthView != nil {
		a.depthView.Release()
		a.depthView = nil
	}
	if a.depthTexture != nil {
		a.depthTexture.Release()
		a.depthTexture = nil
	}
	tex, err := a.Device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         "depth",
		Size:          wgpu.Extent3D{Width: uint32(w), Height: uint32(h), DepthOrArrayLayers: 1},
		Format:        gpu.DepthFormat,
		Usage:         wgpu.TextureUsageRenderAttachment,
		Dimension:     wgpu.TextureDimension2D,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		panic(err)
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		panic(err)
	}
	a.depthTexture = tex
	a.depthView = view
}

func (a *App) Resize(w, h int) {
	if w <= 0 || h <= 0 {
		return
	}
	a.SurfCfg.Width = uint32(w)
	a.SurfCfg.Height = uint32(h)
	a.Surface.Configure(a.Adapter, a.Device, a.SurfCfg)
	a.createDepthTexture(w, h)
}

// HandleKey dispatches the simulation command keys. Camera movement is
// polled per frame instead.
func (a *App) HandleKey(key glfw.Key, action glfw.Action) {
	if action != glfw.Press {
		return
	}
	switch key {
	case glfw.KeyEscape:
		a.Window.SetShouldClose(true)
	case glfw.KeySpace:
		a.System.TogglePause()
	case glfw.KeyR:
		a.System.Restart()
	case glfw.KeyQ:
		a.System.ToggleShape()
	case glfw.KeyF11:
		a.toggleFullscreen()
	case glfw.KeyTab:
		a.MouseCaptured = !a.MouseCaptured
		if a.MouseCaptured {
			a.Window.SetInputMode(glfw.CursorMode, glfw.CursorDisabled)
			a.lastMouseX, a.lastMouseY = a.Window.GetCursorPos()
		} else {
			a.Window.SetInputMode(glfw.CursorMode, glfw.CursorNormal)
		}
	}
}

// toggleFullscreen moves the window onto the primary monitor and back,
// restoring the previous windowed geometry. The surface and depth texture
// follow through the framebuffer-size callback.
func (a *App) toggleFullscreen() {
	if a.fullscreen {
		a.Window.SetMonitor(nil, a.windowedX, a.windowedY, a.windowedW, a.windowedH, 0)
	} else {
		a.windowedX, a.windowedY = a.Window.GetPos()
		a.windowedW, a.windowedH = a.Window.GetSize()
		monitor := glfw.GetPrimaryMonitor()
		mode := monitor.GetVideoMode()
		a.Window.SetMonitor(monitor, 0, 0, mode.Width, mode.Height, mode.RefreshRate)
	}
	a.fullscreen = !a.fullscreen
}

func (a *App) HandleCursor(x, y float64) {
	if !a.MouseCaptured {
		a.lastMouseX, a.lastMouseY = x, y
		return
	}
	dx := float32(x - a.lastMouseX)
	dy := float32(y - a.lastMouseY)
	a.lastMouseX, a.lastMouseY = x, y
	a.Camera.Rotate(dx, dy)
}

func (a *App) pollMovement(dt float32) {
	var move mgl32.Vec3
	if a.Window.GetKey(glfw.KeyW) == glfw.Press {
		move[2] += 1
	}
	if a.Window.GetKey(glfw.KeyS) == glfw.Press {
		move[2] -= 1
	}
	if a.Window.GetKey(glfw.KeyD) == glfw.Press {
		move[0] += 1
	}
	if a.Window.GetKey(glfw.KeyA) == glfw.Press {
		move[0] -= 1
	}
	if a.Window.GetKey(glfw.KeyE) == glfw.Press {
		move[1] += 1
	}
	if a.Window.GetKey(glfw.KeyC) == glfw.Press {
		move[1] -= 1
	}
	if move.Len() > 0 {
		a.Camera.Move(move, dt)
	}
}

func (a *App) hudText() string {
	return fmt.Sprintf("fps %.0f\nalive %d / %d\n%v  %v\nspace pause  r restart  q shape",
		a.fps, a.System.AliveCount(), a.System.Capacity(), a.System.State(), a.System.Shape())
}

// Frame advances the simulation by the wall-clock delta and renders once.
func (a *App) Frame() {
	dt := a.timer.Tick()
	// Long stalls (window drag, debugger) would otherwise emit a burst of
	// makeup particles and blow up the integrator.
	if dt > 0.1 {
		dt = 0.1
	}
	a.pollMovement(dt)

	surfaceTexture, err := a.Surface.GetCurrentTexture()
	if err != nil {
		a.Log.Errorf("surface texture: %v", err)
		return
	}
	defer surfaceTexture.Release()
	view, err := surfaceTexture.CreateView(nil)
	if err != nil {
		a.Log.Errorf("surface view: %v", err)
		return
	}
	defer view.Release()

	encoder, err := a.Device.CreateCommandEncoder(nil)
	if err != nil {
		a.Log.Errorf("command encoder: %v", err)
		return
	}

	a.System.EncodeSimulation(encoder, dt)

	aspect := float32(a.SurfCfg.Width) / float32(a.SurfCfg.Height)
	a.System.EncodeRender(encoder, view, a.depthView, a.Camera, aspect)

	if a.Hud != nil {
		a.Hud.Draw(a.hudText(), 12, 8, 1.0, [4]float32{1, 1, 1, 0.9})
		a.Hud.Flush(int(a.SurfCfg.Width), int(a.SurfCfg.Height))
		a.Hud.Encode(encoder, view)
	}

	cmd, err := encoder.Finish(nil)
	if err != nil {
		a.Log.Errorf("encoder finish: %v", err)
		return
	}
	a.Queue.Submit(cmd)
	a.Surface.Present()

	now := glfw.GetTime()
	if a.lastFrame > 0 {
		a.frameCount++
		a.fpsTime += now - a.lastFrame
		if a.fpsTime >= 1.0 {
			a.fps = float64(a.frameCount) / a.fpsTime
			a.frameCount = 0
			a.fpsTime = 0
		}
	}
	a.lastFrame = now
}

func (a *App) Release() {
	if a.Hud != nil {
		a.Hud.Release()
	}
	if a.System != nil {
		a.System.Release()
	}
	if a.depthView != nil {
		a.depthView.Release()
	}
	if a.depthTexture != nil {
		a.depthTexture.Release()
	}
	if a.Device != nil {
		a.Device.Release()
	}
}
