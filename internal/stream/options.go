package stream

import (
	"fmt"
	"math"
	"strings"

	"github.com/annel0/tilestream/internal/eventbus"
	"github.com/annel0/tilestream/internal/layer"
	"github.com/annel0/tilestream/internal/logging"
	"github.com/annel0/tilestream/internal/noise"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"
)

// AreaShape задаёт форму окна генерации и метрику деактивации
type AreaShape int

const (
	// ShapeSquare: квадрат со стороной 2R+1, деактивация по каждой оси отдельно
	ShapeSquare AreaShape = iota
	// ShapeCircle: клетки с dx²+dz² <= R², деактивация по евклидову расстоянию
	ShapeCircle
)

func (s AreaShape) String() string {
	switch s {
	case ShapeSquare:
		return "square"
	case ShapeCircle:
		return "circle"
	default:
		return "unknown"
	}
}

// ParseAreaShape разбирает имя формы; пустая строка даёт квадрат
func ParseAreaShape(name string) (AreaShape, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "square":
		return ShapeSquare, nil
	case "circle":
		return ShapeCircle, nil
	default:
		return ShapeSquare, fmt.Errorf("unknown area shape %q", name)
	}
}

// Orientation задаёт поворот новых тайлов
type Orientation int

const (
	// OrientationFixed: все тайлы получают FixedYaw
	OrientationFixed Orientation = iota
	// OrientationRandom90: поворот кратен 90°, выводится из сида мира и координаты
	OrientationRandom90
)

func (o Orientation) String() string {
	switch o {
	case OrientationFixed:
		return "fixed"
	case OrientationRandom90:
		return "random90"
	default:
		return "unknown"
	}
}

// ParseOrientation разбирает имя режима поворота
func ParseOrientation(name string) (Orientation, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "fixed":
		return OrientationFixed, nil
	case "random90", "random":
		return OrientationRandom90, nil
	default:
		return OrientationFixed, fmt.Errorf("unknown orientation %q", name)
	}
}

// Options: конфигурация контроллера стриминга. Радиусы заданы в тайлах.
type Options struct {
	WorldSeed          int64
	TileSize           float64
	GenerationRadius   int
	DeactivationRadius int
	PoolSize           int
	Templates          []string
	Layers             []layer.Layer
	Overlap            layer.OverlapPolicy
	Shape              AreaShape
	Orientation        Orientation
	FixedYaw           float64
	Noise              noise.Params
	// Strict превращает нарушения инвариантов в panic (отладочные сборки)
	Strict bool
}

// Validate проверяет конфигурацию. Ошибки оборачивают ErrConfiguration;
// предупреждения описывают допустимые, но вырожденные настройки.
func (o *Options) Validate() (warnings []string, err error) {
	if math.IsNaN(o.TileSize) || o.TileSize <= 0 {
		return nil, fmt.Errorf("%w: tile size must be positive, got %v", ErrConfiguration, o.TileSize)
	}
	if o.GenerationRadius <= 0 {
		return nil, fmt.Errorf("%w: generation radius must be positive, got %d", ErrConfiguration, o.GenerationRadius)
	}
	if o.DeactivationRadius <= 0 {
		return nil, fmt.Errorf("%w: deactivation radius must be positive, got %d", ErrConfiguration, o.DeactivationRadius)
	}
	if o.PoolSize < 0 {
		return nil, fmt.Errorf("%w: pool size must not be negative, got %d", ErrConfiguration, o.PoolSize)
	}
	for i := range o.Layers {
		if lerr := o.Layers[i].Validate(); lerr != nil {
			return nil, fmt.Errorf("%w: %w", ErrConfiguration, lerr)
		}
	}

	if o.DeactivationRadius < o.GenerationRadius {
		warnings = append(warnings, fmt.Sprintf(
			"deactivation radius %d is smaller than generation radius %d: edge tiles will be recycled every resync",
			o.DeactivationRadius, o.GenerationRadius))
	}
	if len(o.Layers) == 0 {
		warnings = append(warnings, "no layers configured: no tiles will be placed")
	}
	return warnings, nil
}

// Option настраивает зависимости контроллера
type Option func(*Controller)

// WithSampler подменяет поле шума (по умолчанию шум Перлина с сидом мира)
func WithSampler(s noise.Sampler) Option {
	return func(c *Controller) { c.sampler = s }
}

// WithEventBus включает публикацию событий тайлов
func WithEventBus(bus eventbus.EventBus) Option {
	return func(c *Controller) { c.bus = bus }
}

// WithRegisterer регистрирует метрики контроллера в указанном регистре
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(c *Controller) { c.registerer = reg }
}

// WithLogger задаёт логгер компонента
func WithLogger(l *logging.Logger) Option {
	return func(c *Controller) { c.log = l }
}

// WithWorldID задаёт идентификатор мира (по умолчанию новый UUID)
func WithWorldID(id string) Option {
	return func(c *Controller) { c.worldID = id }
}

// WithTracer задаёт трассировщик проходов (по умолчанию глобальный провайдер OpenTelemetry)
func WithTracer(t trace.Tracer) Option {
	return func(c *Controller) { c.tracer = t }
}
