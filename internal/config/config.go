package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/annel0/tilestream/internal/layer"
	"github.com/annel0/tilestream/internal/noise"
	"github.com/annel0/tilestream/internal/stream"
	"github.com/annel0/tilestream/internal/tile"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig оборачивает любую ошибку чтения или проверки конфигурации
var ErrInvalidConfig = errors.New("invalid config")

// Config корневая структура конфигурации мира.
type Config struct {
	World     WorldConfig     `yaml:"world"`
	Pool      PoolConfig      `yaml:"pool"`
	Noise     NoiseConfig     `yaml:"noise"`
	Layers    []LayerConfig   `yaml:"layers"`
	Server    ServerConfig    `yaml:"server"`
	EventBus  EventBusConfig  `yaml:"eventbus"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

type WorldConfig struct {
	Seed               int64   `yaml:"seed"`
	TileSize           float64 `yaml:"tile_size"`
	GenerationRadius   int     `yaml:"generation_radius"`
	DeactivationRadius int     `yaml:"deactivation_radius"`
	AreaShape          string  `yaml:"area_shape"`
	OverlapPolicy      string  `yaml:"overlap_policy"`
	Orientation        string  `yaml:"orientation"`
	FixedYaw           float64 `yaml:"fixed_yaw"`
	Strict             bool    `yaml:"strict"`
}

type PoolConfig struct {
	Size      int      `yaml:"size"`
	Templates []string `yaml:"templates"`
}

// NoiseConfig параметры октав шума Перлина; нули заменяются значениями по умолчанию
type NoiseConfig struct {
	Alpha   float64 `yaml:"alpha"`
	Beta    float64 `yaml:"beta"`
	Octaves int32   `yaml:"octaves"`
}

type LayerConfig struct {
	Name   string        `yaml:"name"`
	Seed   float64       `yaml:"seed"`
	Zoom   float64       `yaml:"zoom"`
	Ranges []RangeConfig `yaml:"ranges"`
}

type RangeConfig struct {
	Min    float64      `yaml:"min"`
	Max    float64      `yaml:"max"`
	Visual string       `yaml:"visual"`
	Inner  *LayerConfig `yaml:"inner,omitempty"`
}

type ServerConfig struct {
	DebugPort int `yaml:"debug_port"`
}

// EventBusConfig: пустой URL означает шину в памяти процесса
type EventBusConfig struct {
	URL       string `yaml:"url"`
	Stream    string `yaml:"stream"`
	Retention int    `yaml:"retention_hours"`
}

// RetentionDuration возвращает срок хранения событий в стриме (по умолчанию сутки)
func (e *EventBusConfig) RetentionDuration() time.Duration {
	if e.Retention <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(e.Retention) * time.Hour
}

type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled"`
	OTLPEndpoint string  `yaml:"otlp_endpoint"`
	SampleRatio  float64 `yaml:"sample_ratio"`
}

// GetDebugPort возвращает порт отладочного HTTP сервера с поддержкой fallback значений
func (s *ServerConfig) GetDebugPort() int {
	return getPortWithEnvFallback(s.DebugPort, "TILESTREAM_DEBUG_PORT", 8090)
}

// getPortWithEnvFallback возвращает порт с приоритетом: config -> env -> default
func getPortWithEnvFallback(configPort int, envVar string, defaultPort int) int {
	if configPort > 0 {
		return configPort
	}

	if envVal := os.Getenv(envVar); envVal != "" {
		if port, err := strconv.Atoi(envVal); err == nil && port > 0 {
			return port
		}
	}

	return defaultPort
}

// Default возвращает конфигурацию мира из единичных тайлов с одним слоем,
// совпадающим со всеми клетками.
func Default() *Config {
	return &Config{
		World: WorldConfig{
			TileSize:           1,
			GenerationRadius:   10,
			DeactivationRadius: 30,
			AreaShape:          stream.ShapeSquare.String(),
			OverlapPolicy:      layer.FirstWins.String(),
			Orientation:        stream.OrientationFixed.String(),
		},
		Pool: PoolConfig{Size: 1000},
		Noise: NoiseConfig{
			Alpha:   noise.DefaultAlpha,
			Beta:    noise.DefaultBeta,
			Octaves: noise.DefaultOctaves,
		},
		Layers: []LayerConfig{{
			Name:   "ground",
			Zoom:   1,
			Ranges: []RangeConfig{{Min: 0, Max: 1, Visual: "ground"}},
		}},
	}
}

// Load читает YAML файл конфигурации поверх Default().
// Если path == "", пытается прочитать путь из ENV TILESTREAM_CONFIG,
// а без него возвращает Default().
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("TILESTREAM_CONFIG")
		if path == "" {
			return Default(), nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return Parse(data)
}

// Parse разбирает YAML поверх Default(). Структура документа сначала
// проверяется по JSON Schema; неизвестные ключи считаются ошибкой.
// Пустой документ даёт Default().
func Parse(data []byte) (*Config, error) {
	if err := validateSchema(data); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return cfg, nil
}

//go:embed schema.json
var schemaJSON string

var configSchema = jsonschema.MustCompileString("config.schema.json", schemaJSON)

// validateSchema прогоняет YAML через JSON, чтобы валидатор видел JSON-типы
func validateSchema(data []byte) error {
	var doc interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return err
	}
	if doc == nil {
		return nil
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return err
	}
	return configSchema.Validate(v)
}

// Validate проверяет конфигурацию и возвращает предупреждения о вырожденных,
// но допустимых настройках (например, радиус деактивации меньше радиуса генерации).
func (c *Config) Validate() ([]string, error) {
	opts, err := c.ToOptions()
	if err != nil {
		return nil, err
	}
	warnings, err := opts.Validate()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return warnings, nil
}

// ToOptions переводит конфигурацию в параметры контроллера
func (c *Config) ToOptions() (stream.Options, error) {
	shape, err := stream.ParseAreaShape(c.World.AreaShape)
	if err != nil {
		return stream.Options{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	overlap, err := layer.ParseOverlapPolicy(c.World.OverlapPolicy)
	if err != nil {
		return stream.Options{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	orientation, err := stream.ParseOrientation(c.World.Orientation)
	if err != nil {
		return stream.Options{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	layers := make([]layer.Layer, 0, len(c.Layers))
	for _, lc := range c.Layers {
		layers = append(layers, lc.toLayer())
	}

	return stream.Options{
		WorldSeed:          c.World.Seed,
		TileSize:           c.World.TileSize,
		GenerationRadius:   c.World.GenerationRadius,
		DeactivationRadius: c.World.DeactivationRadius,
		PoolSize:           c.Pool.Size,
		Templates:          append([]string(nil), c.Pool.Templates...),
		Layers:             layers,
		Overlap:            overlap,
		Shape:              shape,
		Orientation:        orientation,
		FixedYaw:           c.World.FixedYaw,
		Noise: noise.Params{
			Alpha:   c.Noise.Alpha,
			Beta:    c.Noise.Beta,
			Octaves: c.Noise.Octaves,
			Seed:    c.World.Seed,
		},
		Strict: c.World.Strict,
	}, nil
}

func (lc LayerConfig) toLayer() layer.Layer {
	l := layer.Layer{
		Name:   lc.Name,
		Seed:   lc.Seed,
		Zoom:   lc.Zoom,
		Ranges: make([]layer.ValueRange, 0, len(lc.Ranges)),
	}
	for _, rc := range lc.Ranges {
		r := layer.ValueRange{Min: rc.Min, Max: rc.Max, Visual: tile.Visual(rc.Visual)}
		if rc.Inner != nil {
			inner := rc.Inner.toLayer()
			r.Inner = &inner
		}
		l.Ranges = append(l.Ranges, r)
	}
	return l
}
