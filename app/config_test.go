package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gekko3d/ember/core"
	"github.com/gekko3d/ember/gpu"
)

func TestDefaultConfig(t *testing.T) {
	cfg, err := DefaultConfig()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "continuous", cfg.Emitter.Mode)
	assert.Greater(t, cfg.Emitter.Rate, float32(0))
	assert.Greater(t, cfg.Emitter.Lifetime, float32(0))
	assert.Greater(t, cfg.Window.Width, 0)
}

func TestLoadConfig_Override(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
emitter:
  mode: burst
  count: 5000
  lifetime: 3.5
render:
  shape: points
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "burst", cfg.Emitter.Mode)
	assert.Equal(t, uint32(5000), cfg.Emitter.Count)
	assert.Equal(t, float32(3.5), cfg.Emitter.Lifetime)
	assert.Equal(t, "points", cfg.Render.Shape)
	// Untouched sections keep their defaults.
	assert.Equal(t, 1280, cfg.Window.Width)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig("/nonexistent/config.yaml")
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	base := func() *Config {
		cfg, err := DefaultConfig()
		require.NoError(t, err)
		return cfg
	}

	cfg := base()
	cfg.Emitter.Mode = "trickle"
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Emitter.Mode = "burst"
	cfg.Emitter.Count = 0
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Emitter.Rate = 0
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Emitter.Lifetime = 0
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Emitter.Shape = "torus"
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Emitter.SpeedMin = 2
	cfg.Emitter.SpeedMax = 1
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Emitter.MassMin = 0
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Render.Shape = "sprites"
	assert.Error(t, cfg.Validate())
}

func TestConfig_SystemConfig(t *testing.T) {
	cfg, err := DefaultConfig()
	require.NoError(t, err)

	sc := cfg.SystemConfig(0)
	assert.Equal(t, core.EmitContinuous, sc.Emitter.Mode.Kind)
	assert.Equal(t, cfg.Emitter.Rate, sc.Emitter.Mode.Rate)
	assert.Equal(t, core.ShapeSphere, sc.Emitter.Shape)
	assert.Equal(t, gpu.RenderQuads, sc.Render.Shape)
	assert.Equal(t, cfg.Dynamics.GravityStrength, sc.Dynamics.GravityStrength)

	cfg.Emitter.Mode = "burst"
	cfg.Emitter.Count = 777
	cfg.Emitter.Shape = "cube"
	cfg.Render.Shape = "points"
	sc = cfg.SystemConfig(0)
	assert.Equal(t, core.EmitBurst, sc.Emitter.Mode.Kind)
	assert.Equal(t, uint32(777), sc.Emitter.Mode.Count)
	assert.Equal(t, core.ShapeCube, sc.Emitter.Shape)
	assert.Equal(t, gpu.RenderPoints, sc.Render.Shape)
}
