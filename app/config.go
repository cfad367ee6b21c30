package app

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
	"gopkg.in/yaml.v3"

	"github.com/gekko3d/ember/core"
	"github.com/gekko3d/ember/gpu"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// WindowConfig sizes the OS window the surface is created on.
type WindowConfig struct {
	Title  string `yaml:"title"`
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
}

// EmitterConfig is the YAML shape of the emitter settings.
type EmitterConfig struct {
	Mode     string     `yaml:"mode"`  // burst | continuous
	Count    uint32     `yaml:"count"` // burst only
	Rate     float32    `yaml:"rate"`  // continuous only
	Shape    string     `yaml:"shape"` // point | sphere | sphere_surface | cube
	Lifetime float32    `yaml:"lifetime"`
	Position [3]float32 `yaml:"position"`
	Extent   float32    `yaml:"extent"`
	SpeedMin float32    `yaml:"speed_min"`
	SpeedMax float32    `yaml:"speed_max"`
	MassMin  float32    `yaml:"mass_min"`
	MassMax  float32    `yaml:"mass_max"`
	ColorMin [4]float32 `yaml:"color_min"`
	ColorMax [4]float32 `yaml:"color_max"`
}

// DynamicsConfig holds the force-field constants.
type DynamicsConfig struct {
	GravityStrength float32 `yaml:"gravity_strength"`
	Drag            float32 `yaml:"drag"`
	Swirl           float32 `yaml:"swirl"`
}

// RenderConfig holds presentation settings.
type RenderConfig struct {
	Shape         string  `yaml:"shape"` // points | quads
	ParticleScale float32 `yaml:"particle_scale"`
	FadeDistance  float32 `yaml:"fade_distance"`
}

type Config struct {
	Window   WindowConfig   `yaml:"window"`
	Emitter  EmitterConfig  `yaml:"emitter"`
	Dynamics DynamicsConfig `yaml:"dynamics"`
	Render   RenderConfig   `yaml:"render"`
	Debug    bool           `yaml:"debug"`
}

// DefaultConfig returns the embedded defaults.
func DefaultConfig() (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(defaultsYAML, &cfg); err != nil {
		return nil, fmt.Errorf("embedded defaults: %w", err)
	}
	return &cfg, nil
}

// LoadConfig reads a YAML config file layered over the embedded defaults.
// An empty path returns the defaults unchanged.
func LoadConfig(path string) (*Config, error) {
	cfg, err := DefaultConfig()
	if err != nil {
		return nil, err
	}
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.Emitter.Mode {
	case "burst", "continuous":
	default:
		return fmt.Errorf("emitter.mode: unknown mode %q", c.Emitter.Mode)
	}
	if c.Emitter.Mode == "burst" && c.Emitter.Count == 0 {
		return fmt.Errorf("emitter.count: burst mode needs a positive count")
	}
	if c.Emitter.Mode == "continuous" && c.Emitter.Rate <= 0 {
		return fmt.Errorf("emitter.rate: continuous mode needs a positive rate")
	}
	if c.Emitter.Lifetime <= 0 {
		return fmt.Errorf("emitter.lifetime: must be positive")
	}
	switch c.Emitter.Shape {
	case "point", "sphere", "sphere_surface", "cube":
	default:
		return fmt.Errorf("emitter.shape: unknown shape %q", c.Emitter.Shape)
	}
	if c.Emitter.SpeedMax < c.Emitter.SpeedMin {
		return fmt.Errorf("emitter.speed_max: must be >= speed_min")
	}
	if c.Emitter.MassMin <= 0 || c.Emitter.MassMax < c.Emitter.MassMin {
		return fmt.Errorf("emitter mass range: need 0 < mass_min <= mass_max")
	}
	switch c.Render.Shape {
	case "points", "quads":
	default:
		return fmt.Errorf("render.shape: unknown shape %q", c.Render.Shape)
	}
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return fmt.Errorf("window: width and height must be positive")
	}
	return nil
}

func (c *Config) emitterSettings() core.EmitterSettings {
	var mode core.EmissionMode
	if c.Emitter.Mode == "burst" {
		mode = core.Burst(c.Emitter.Count)
	} else {
		mode = core.Continuous(c.Emitter.Rate)
	}
	shape := core.ShapePoint
	switch c.Emitter.Shape {
	case "sphere":
		shape = core.ShapeSphere
	case "sphere_surface":
		shape = core.ShapeSphereSurface
	case "cube":
		shape = core.ShapeCube
	}
	return core.EmitterSettings{
		Mode:     mode,
		Shape:    shape,
		Lifetime: c.Emitter.Lifetime,
		Position: mgl32.Vec3(c.Emitter.Position),
		Extent:   c.Emitter.Extent,
		SpeedMin: c.Emitter.SpeedMin,
		SpeedMax: c.Emitter.SpeedMax,
		MassMin:  c.Emitter.MassMin,
		MassMax:  c.Emitter.MassMax,
		ColorMin: c.Emitter.ColorMin,
		ColorMax: c.Emitter.ColorMax,
	}
}

// SystemConfig maps the YAML settings onto the particle system config.
func (c *Config) SystemConfig(surfaceFormat wgpu.TextureFormat) gpu.SystemConfig {
	shape := gpu.RenderPoints
	if c.Render.Shape == "quads" {
		shape = gpu.RenderQuads
	}
	return gpu.SystemConfig{
		Emitter: c.emitterSettings(),
		Dynamics: gpu.Dynamics{
			GravityStrength: c.Dynamics.GravityStrength,
			Drag:            c.Dynamics.Drag,
			Swirl:           c.Dynamics.Swirl,
		},
		Render: gpu.RenderSettings{
			Shape:         shape,
			ParticleScale: c.Render.ParticleScale,
			FadeDistance:  c.Render.FadeDistance,
		},
		SurfaceFormat: surfaceFormat,
	}
}
