// Package stream содержит контроллер стриминга тайлов вокруг движущегося наблюдателя.
//
// Каждый кадр хост вызывает Tick. Пока наблюдатель остаётся в том же тайле,
// Tick ничего не делает. При пересечении границы тайла выполняется полный
// проход: генерация недостающих тайлов в радиусе генерации, затем возврат в пул
// тайлов за радиусом деактивации. Радиус деактивации больше радиуса генерации,
// поэтому наблюдатель, колеблющийся у границы, не гоняет тайлы туда-обратно.
package stream

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/annel0/tilestream/internal/eventbus"
	"github.com/annel0/tilestream/internal/index"
	"github.com/annel0/tilestream/internal/layer"
	"github.com/annel0/tilestream/internal/logging"
	"github.com/annel0/tilestream/internal/noise"
	"github.com/annel0/tilestream/internal/pool"
	"github.com/annel0/tilestream/internal/tile"
	"github.com/annel0/tilestream/internal/vec"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/annel0/tilestream/internal/stream"

// Observer отдаёт текущую непрерывную позицию наблюдателя
type Observer interface {
	Position() vec.Vec2Float
}

// Stats: снимок состояния контроллера
type Stats struct {
	WorldID      string     `json:"world_id"`
	ObserverTile vec.Vec2   `json:"observer_tile"`
	Active       int        `json:"active"`
	Pool         pool.Stats `json:"pool"`
	Resyncs      uint64     `json:"resyncs"`
	Violations   uint64     `json:"violations"`
}

// ActiveTile: тайл, занимающий координату
type ActiveTile struct {
	Coord      vec.Vec2    `json:"coord"`
	TileID     pool.TileID `json:"tile_id"`
	Template   string      `json:"template"`
	Visual     tile.Visual `json:"visual"`
	YawDegrees float64     `json:"yaw"`
}

// Controller владеет пулом и индексом активных тайлов.
// Не безопасен для одновременного использования: один владелец на тик.
type Controller struct {
	opts     Options
	worldID  string
	observer Observer
	host     tile.Host

	layers     []layer.Layer
	sampler    noise.Sampler
	classifier *layer.Classifier
	pool       *pool.Pool
	active     *index.Active
	offsets    []vec.Vec2 // смещения окна генерации относительно тайла наблюдателя
	scratch    []vec.Vec2 // координаты к деактивации, переиспользуется между проходами

	bus        eventbus.EventBus
	registerer prometheus.Registerer
	metrics    *Metrics
	tracer     trace.Tracer
	log        *logging.Logger

	lastTile   vec.Vec2
	hasLast    bool
	resyncs    uint64
	violations uint64
	lastErr    error
	poolStats  pool.Stats
}

// New проверяет конфигурацию, назначает сиды слоям, заполняет пул
// и выполняет первый проход генерации вокруг наблюдателя.
func New(opts Options, host tile.Host, observer Observer, options ...Option) (*Controller, error) {
	warnings, err := opts.Validate()
	if err != nil {
		return nil, err
	}

	c := &Controller{
		opts:     opts,
		observer: observer,
		host:     host,
	}
	for _, o := range options {
		o(c)
	}

	if c.worldID == "" {
		c.worldID = uuid.NewString()
	}
	if c.log == nil {
		c.log = logging.GetStreamLogger()
	}
	if c.tracer == nil {
		c.tracer = otel.Tracer(tracerName)
	}
	for _, w := range warnings {
		c.log.Warn("⚠️ world %s: %s", c.worldID, w)
	}

	if c.sampler == nil {
		params := opts.Noise
		if params.Seed == 0 {
			params.Seed = opts.WorldSeed
		}
		c.sampler = noise.NewField(params)
	}

	c.metrics, err = NewMetrics(c.registerer, c.worldID)
	if err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	// Сиды назначаются один раз здесь, а не лениво при первом обращении
	c.layers = layer.Clone(opts.Layers)
	layer.AssignSeeds(c.layers, layer.NewSeedSource(opts.WorldSeed))

	c.classifier = layer.NewClassifier(c.sampler)
	c.pool = pool.New(host, opts.PoolSize, opts.Templates, rand.New(rand.NewSource(opts.WorldSeed)))
	c.active = index.New(opts.PoolSize)
	c.offsets = windowOffsets(opts.GenerationRadius, opts.Shape)
	c.poolStats = c.pool.Stats()

	c.log.Info("🌍 world %s: tile=%.2f gen=%d deact=%d shape=%s overlap=%s layers=%d pool=%d",
		c.worldID, opts.TileSize, opts.GenerationRadius, opts.DeactivationRadius,
		opts.Shape, opts.Overlap, len(c.layers), opts.PoolSize)

	pos := observer.Position()
	c.resync(pos, pos.ToTile(opts.TileSize))
	return c, nil
}

// windowOffsets заранее вычисляет смещения окна генерации, ближние клетки первыми
func windowOffsets(radius int, shape AreaShape) []vec.Vec2 {
	offsets := make([]vec.Vec2, 0, (2*radius+1)*(2*radius+1))
	for dx := -radius; dx <= radius; dx++ {
		for dz := -radius; dz <= radius; dz++ {
			off := vec.Vec2{X: dx, Z: dz}
			if shape == ShapeCircle && off.DistanceTo(vec.Vec2{}) > float64(radius) {
				continue
			}
			offsets = append(offsets, off)
		}
	}
	sort.SliceStable(offsets, func(i, j int) bool {
		return offsets[i].DistanceTo(vec.Vec2{}) < offsets[j].DistanceTo(vec.Vec2{})
	})
	return offsets
}

// Tick вызывается хостом на каждом кадре. Возвращает true, если был выполнен проход.
func (c *Controller) Tick() bool {
	pos := c.observer.Position()
	current := pos.ToTile(c.opts.TileSize)
	if c.hasLast && current == c.lastTile {
		return false
	}

	entered := c.hasLast
	c.resync(pos, current)
	if entered {
		c.publishEntered(current)
	}
	return true
}

// resync выполняет проход генерации и деактивации и обновляет состояние
func (c *Controller) resync(pos vec.Vec2Float, current vec.Vec2) {
	// Шаг в клетках с прошлого прохода; больше 1 значит телепорт
	step := 0
	if c.hasLast {
		step = current.ChebyshevTo(c.lastTile)
	}
	_, span := c.tracer.Start(context.Background(), "stream.resync", trace.WithAttributes(
		attribute.String("world.id", c.worldID),
		attribute.Int("tile.x", current.X),
		attribute.Int("tile.z", current.Z),
		attribute.Int("tile.step", step),
	))
	defer span.End()
	if step > 1 {
		c.log.Debug("⏩ world %s: observer jumped %d tiles to (%d,%d)", c.worldID, step, current.X, current.Z)
	}

	placed := c.generate(current)
	recycled := c.deactivate(pos)

	c.lastTile = current
	c.hasLast = true
	c.resyncs++
	c.metrics.resyncs.Inc()

	prev := c.poolStats
	c.poolStats = c.pool.Stats()
	c.metrics.observePool(prev, c.poolStats)
	if grown := c.poolStats.Grown - prev.Grown; grown > 0 {
		c.log.Warn("📈 world %s: pool grew by %d (total %d, initial %d)",
			c.worldID, grown, c.poolStats.Total, c.poolStats.Initial)
	}

	span.SetAttributes(
		attribute.Int("tiles.placed", placed),
		attribute.Int("tiles.recycled", recycled),
		attribute.Int("tiles.active", c.active.Len()),
	)
	logging.LogResync(c.log, current.X, current.Z, placed, recycled, c.active.Len())
}

// generate размещает тайлы во всех свободных координатах окна вокруг center
func (c *Controller) generate(center vec.Vec2) int {
	placed := 0
	for _, off := range c.offsets {
		coord := center.Add(off)
		if c.active.Contains(coord) {
			continue
		}

		world := coord.ToWorld(c.opts.TileSize)
		match, ok := c.classifier.ResolveStack(world.X, world.Z, c.layers, c.opts.Overlap)
		if !ok {
			continue
		}

		if c.place(coord, world, match.Visual) {
			placed++
		}
	}
	return placed
}

// place берёт тайл из пула и полностью размещает его до публикации в индексе:
// членство в индексе: единственный признак того, что координата обработана.
func (c *Controller) place(coord vec.Vec2, world vec.Vec2Float, visual tile.Visual) bool {
	id := c.pool.Acquire()
	t := tile.Transform{Position: world, YawDegrees: c.yawFor(coord)}
	err := c.pool.Place(id, t, visual)
	if err == nil {
		err = c.active.Insert(coord, id)
	}
	if err != nil {
		c.violation(err)
		if rerr := c.pool.Release(id); rerr != nil {
			c.violation(rerr)
		}
		return false
	}

	c.publish(eventbus.TypeTileActivated, coord, id, visual)
	return true
}

// deactivate возвращает в пул тайлы дальше радиуса деактивации от
// непрерывной позиции наблюдателя
func (c *Controller) deactivate(pos vec.Vec2Float) int {
	limit := float64(c.opts.DeactivationRadius) * c.opts.TileSize

	c.scratch = c.scratch[:0]
	c.active.ForEach(func(coord vec.Vec2, _ pool.TileID) {
		if c.outside(coord.ToWorld(c.opts.TileSize), pos, limit) {
			c.scratch = append(c.scratch, coord)
		}
	})

	recycled := 0
	for _, coord := range c.scratch {
		id, ok := c.active.Remove(coord)
		if !ok {
			continue
		}
		slot, _ := c.pool.Slot(id)
		if err := c.pool.Release(id); err != nil {
			c.violation(err)
			continue
		}
		recycled++
		logging.LogTileRecycle(c.log, coord.X, coord.Z, int(id))
		c.publish(eventbus.TypeTileDeactivated, coord, id, slot.Visual)
	}
	return recycled
}

func (c *Controller) outside(tilePos, pos vec.Vec2Float, limit float64) bool {
	if c.opts.Shape == ShapeCircle {
		return tilePos.DistanceTo(pos) > limit
	}
	return math.Abs(tilePos.X-pos.X) > limit || math.Abs(tilePos.Z-pos.Z) > limit
}

// violation фиксирует нарушение инварианта: в строгом режиме panic
func (c *Controller) violation(err error) {
	wrapped := fmt.Errorf("%w: %w", ErrInvariant, err)
	c.violations++
	c.lastErr = wrapped
	c.metrics.violations.Inc()
	if c.opts.Strict {
		panic(wrapped)
	}
	c.log.Error("❌ world %s: %v", c.worldID, wrapped)
}

func (c *Controller) publish(eventType string, coord vec.Vec2, id pool.TileID, visual tile.Visual) {
	if c.bus == nil {
		return
	}
	ev := eventbus.NewEnvelope(c.worldID, eventType, coord)
	ev.TileID = int(id)
	ev.Visual = string(visual)
	_ = c.bus.Publish(context.Background(), ev)
}

// publishEntered сообщает о входе наблюдателя в активный тайл
func (c *Controller) publishEntered(coord vec.Vec2) {
	id, ok := c.active.Get(coord)
	if !ok {
		return
	}
	slot, _ := c.pool.Slot(id)
	c.publish(eventbus.TypeObserverEnteredTile, coord, id, slot.Visual)
}

// WorldID возвращает идентификатор мира
func (c *Controller) WorldID() string {
	return c.worldID
}

// ObserverTile возвращает последний обработанный тайл наблюдателя
func (c *Controller) ObserverTile() vec.Vec2 {
	return c.lastTile
}

// Layers возвращает слои с назначенными сидами
func (c *Controller) Layers() []layer.Layer {
	return layer.Clone(c.layers)
}

// LastViolation возвращает последнее нарушение инварианта или nil
func (c *Controller) LastViolation() error {
	return c.lastErr
}

// Stats возвращает снимок счётчиков
func (c *Controller) Stats() Stats {
	return Stats{
		WorldID:      c.worldID,
		ObserverTile: c.lastTile,
		Active:       c.active.Len(),
		Pool:         c.pool.Stats(),
		Resyncs:      c.resyncs,
		Violations:   c.violations,
	}
}

// VisualAt возвращает визуал активного тайла в координате
func (c *Controller) VisualAt(coord vec.Vec2) (tile.Visual, bool) {
	id, ok := c.active.Get(coord)
	if !ok {
		return tile.None, false
	}
	slot, _ := c.pool.Slot(id)
	return slot.Visual, true
}

// ActiveTiles возвращает активные тайлы, упорядоченные по (X, Z)
func (c *Controller) ActiveTiles() []ActiveTile {
	out := make([]ActiveTile, 0, c.active.Len())
	c.active.ForEach(func(coord vec.Vec2, id pool.TileID) {
		slot, _ := c.pool.Slot(id)
		out = append(out, ActiveTile{
			Coord:      coord,
			TileID:     id,
			Template:   slot.Template,
			Visual:     slot.Visual,
			YawDegrees: slot.YawDegrees,
		})
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].Coord.X != out[j].Coord.X {
			return out[i].Coord.X < out[j].Coord.X
		}
		return out[i].Coord.Z < out[j].Coord.Z
	})
	return out
}
