package stream

import (
	"github.com/annel0/tilestream/internal/pool"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics содержит Prometheus-метрики контроллера с меткой world
type Metrics struct {
	acquired   prometheus.Counter
	released   prometheus.Counter
	growth     prometheus.Counter
	resyncs    prometheus.Counter
	violations prometheus.Counter
	active     prometheus.Gauge
	idle       prometheus.Gauge
}

// NewMetrics создаёт метрики и регистрирует их в reg (если reg не nil)
func NewMetrics(reg prometheus.Registerer, worldID string) (*Metrics, error) {
	labels := prometheus.Labels{"world": worldID}
	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tilestream", Name: name, Help: help, ConstLabels: labels,
		})
	}
	gauge := func(name, help string) prometheus.Gauge {
		return prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "tilestream", Name: name, Help: help, ConstLabels: labels,
		})
	}

	m := &Metrics{
		acquired:   counter("tiles_acquired_total", "Тайлы, выданные пулом."),
		released:   counter("tiles_released_total", "Тайлы, возвращённые в пул."),
		growth:     counter("pool_growth_total", "Экземпляры, созданные сверх начального размера пула."),
		resyncs:    counter("resyncs_total", "Проходы генерации/деактивации после смены тайла наблюдателя."),
		violations: counter("invariant_violations_total", "Нарушения инвариантов пула и индекса."),
		active:     gauge("tiles_active", "Тайлы в индексе активных."),
		idle:       gauge("tiles_idle", "Свободные тайлы в очереди пула."),
	}

	if reg != nil {
		for _, c := range []prometheus.Collector{m.acquired, m.released, m.growth, m.resyncs, m.violations, m.active, m.idle} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

// observePool переносит приращения счётчиков пула в Prometheus
func (m *Metrics) observePool(prev, cur pool.Stats) {
	if d := cur.Acquired - prev.Acquired; d > 0 {
		m.acquired.Add(float64(d))
	}
	if d := cur.Released - prev.Released; d > 0 {
		m.released.Add(float64(d))
	}
	if d := cur.Grown - prev.Grown; d > 0 {
		m.growth.Add(float64(d))
	}
	m.active.Set(float64(cur.Active))
	m.idle.Set(float64(cur.Idle))
}
