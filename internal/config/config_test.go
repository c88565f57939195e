package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/annel0/tilestream/internal/layer"
	"github.com/annel0/tilestream/internal/stream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
world:
  seed: 42
  tile_size: 25
  generation_radius: 3
  deactivation_radius: 6
  area_shape: circle
  overlap_policy: last_wins
  orientation: random90
pool:
  size: 200
  templates: [tile_a, tile_b]
layers:
  - name: terrain
    zoom: 7.5
    ranges:
      - {min: 0.0, max: 0.45, visual: water}
      - min: 0.45
        max: 1.0
        visual: grass
        inner:
          name: forest
          seed: 3000000
          zoom: 2
          ranges:
            - {min: 0.7, max: 1.0, visual: forest}
server:
  debug_port: 9191
eventbus:
  url: nats://127.0.0.1:4222
  retention_hours: 2
telemetry:
  enabled: true
  otlp_endpoint: collector:4318
  sample_ratio: 0.1
`

func writeTemp(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "world.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_File(t *testing.T) {
	cfg, err := Load(writeTemp(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, int64(42), cfg.World.Seed)
	assert.Equal(t, 200, cfg.Pool.Size)
	assert.Equal(t, 9191, cfg.Server.GetDebugPort())
	// Не заданные в файле секции берутся из Default()
	assert.Equal(t, int32(3), cfg.Noise.Octaves)
	assert.Equal(t, "nats://127.0.0.1:4222", cfg.EventBus.URL)
	assert.Equal(t, 2*time.Hour, cfg.EventBus.RetentionDuration())
	assert.True(t, cfg.Telemetry.Enabled)
	assert.Equal(t, "collector:4318", cfg.Telemetry.OTLPEndpoint)
	assert.Equal(t, 0.1, cfg.Telemetry.SampleRatio)

	warnings, err := cfg.Validate()
	require.NoError(t, err)
	assert.Empty(t, warnings)

	opts, err := cfg.ToOptions()
	require.NoError(t, err)
	assert.Equal(t, 25.0, opts.TileSize)
	assert.Equal(t, stream.ShapeCircle, opts.Shape)
	assert.Equal(t, layer.LastWins, opts.Overlap)
	assert.Equal(t, stream.OrientationRandom90, opts.Orientation)
	assert.Equal(t, []string{"tile_a", "tile_b"}, opts.Templates)
	assert.Equal(t, int64(42), opts.Noise.Seed)

	require.Len(t, opts.Layers, 1)
	terrain := opts.Layers[0]
	require.Len(t, terrain.Ranges, 2)
	require.NotNil(t, terrain.Ranges[1].Inner)
	assert.Equal(t, "forest", terrain.Ranges[1].Inner.Name)
	assert.Equal(t, 3_000_000.0, terrain.Ranges[1].Inner.Seed)
}

func TestLoad_EnvAndDefault(t *testing.T) {
	t.Setenv("TILESTREAM_CONFIG", "")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	t.Setenv("TILESTREAM_CONFIG", writeTemp(t, "world:\n  seed: 7\n"))
	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, int64(7), cfg.World.Seed)
	assert.Equal(t, 10, cfg.World.GenerationRadius)
	assert.Equal(t, 24*time.Hour, cfg.EventBus.RetentionDuration())
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.True(t, errors.Is(err, ErrInvalidConfig))

	_, err = Parse([]byte("world:\n  tile_sise: 3\n"))
	assert.True(t, errors.Is(err, ErrInvalidConfig), "неизвестный ключ")

	_, err = Parse([]byte("world: [oops"))
	assert.True(t, errors.Is(err, ErrInvalidConfig))

	// Ошибки типов ловит схема ещё до разбора в структуру
	_, err = Parse([]byte("world:\n  generation_radius: ten\n"))
	assert.True(t, errors.Is(err, ErrInvalidConfig))
	_, err = Parse([]byte("pool:\n  size: -5\n"))
	assert.True(t, errors.Is(err, ErrInvalidConfig))
	_, err = Parse([]byte("telemetry:\n  sample_ratio: 1.5\n"))
	assert.True(t, errors.Is(err, ErrInvalidConfig))
	_, err = Parse([]byte("layers:\n  - name: x\n    ranges:\n      - {min: 0, max: 1, colour: red}\n"))
	assert.True(t, errors.Is(err, ErrInvalidConfig), "неизвестный ключ во вложенном диапазоне")
}

func TestParse_Empty(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	cfg, err = Parse([]byte("# только комментарий\n"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestToOptions_FractionalNoise(t *testing.T) {
	cfg, err := Parse([]byte("noise:\n  alpha: 1.5\n  beta: 2.5\n"))
	require.NoError(t, err)

	opts, err := cfg.ToOptions()
	require.NoError(t, err)
	assert.Equal(t, 1.5, opts.Noise.Alpha)
	assert.Equal(t, 2.5, opts.Noise.Beta)
	assert.Equal(t, Default().Noise.Octaves, opts.Noise.Octaves)

	_, err = Parse([]byte("noise:\n  alpha: -0.5\n"))
	assert.True(t, errors.Is(err, ErrInvalidConfig), "отрицательная альфа")
}

func TestValidate(t *testing.T) {
	cases := map[string]func(c *Config){
		"shape":       func(c *Config) { c.World.AreaShape = "hexagon" },
		"overlap":     func(c *Config) { c.World.OverlapPolicy = "random" },
		"orientation": func(c *Config) { c.World.Orientation = "diagonal" },
		"tile size":   func(c *Config) { c.World.TileSize = 0 },
		"radius":      func(c *Config) { c.World.GenerationRadius = -1 },
		"pool":        func(c *Config) { c.Pool.Size = -1 },
		"range":       func(c *Config) { c.Layers[0].Ranges[0].Min = 2 },
		"zoom":        func(c *Config) { c.Layers[0].Zoom = 0 },
		"nested range": func(c *Config) {
			c.Layers[0].Ranges[0].Inner = &LayerConfig{Name: "x", Zoom: 1, Ranges: []RangeConfig{{Min: 1, Max: 0}}}
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(cfg)
			_, err := cfg.Validate()
			assert.True(t, errors.Is(err, ErrInvalidConfig))
		})
	}

	cfg := Default()
	cfg.World.DeactivationRadius = 5
	warnings, err := cfg.Validate()
	require.NoError(t, err)
	assert.Len(t, warnings, 1)
}

func TestGetDebugPort(t *testing.T) {
	s := ServerConfig{}

	t.Setenv("TILESTREAM_DEBUG_PORT", "")
	assert.Equal(t, 8090, s.GetDebugPort())

	t.Setenv("TILESTREAM_DEBUG_PORT", "9999")
	assert.Equal(t, 9999, s.GetDebugPort())

	t.Setenv("TILESTREAM_DEBUG_PORT", "nope")
	assert.Equal(t, 8090, s.GetDebugPort())

	s.DebugPort = 7000
	assert.Equal(t, 7000, s.GetDebugPort())
}

func TestExampleConfig(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "configs", "tilesim.yaml"))
	require.NoError(t, err)

	warnings, err := cfg.Validate()
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Empty(t, cfg.EventBus.URL)

	opts, err := cfg.ToOptions()
	require.NoError(t, err)
	assert.Equal(t, stream.OrientationRandom90, opts.Orientation)
	require.Len(t, opts.Layers, 1)
	assert.Len(t, opts.Layers[0].Ranges, 5)
}
