package layer

import "math/rand"

// Границы случайного сида слоя
const (
	MinSeed = 2_500_000
	MaxSeed = 7_500_000
)

// SeedSource выдаёт сиды слоёв в [MinSeed, MaxSeed).
// Источник детерминирован сидом мира, поэтому один и тот же мир
// получает одинаковые сиды слоёв при каждом запуске.
type SeedSource struct {
	rng *rand.Rand
}

// NewSeedSource создаёт источник сидов
func NewSeedSource(worldSeed int64) *SeedSource {
	return &SeedSource{rng: rand.New(rand.NewSource(worldSeed))}
}

// Next возвращает следующий сид
func (s *SeedSource) Next() float64 {
	return float64(MinSeed + s.rng.Int63n(MaxSeed-MinSeed))
}

// AssignSeeds назначает сиды слоям с нулевым сидом, включая вложенные.
// Уже заданные сиды не меняются. Вызывается один раз при настройке мира.
func AssignSeeds(layers []Layer, src *SeedSource) {
	for i := range layers {
		assignLayer(&layers[i], src)
	}
}

func assignLayer(l *Layer, src *SeedSource) {
	if l.Seed == 0 {
		l.Seed = src.Next()
	}
	for i := range l.Ranges {
		if l.Ranges[i].Inner != nil {
			assignLayer(l.Ranges[i].Inner, src)
		}
	}
}

// Clone делает глубокую копию слоёв, чтобы назначение сидов не меняло конфигурацию вызывающего
func Clone(layers []Layer) []Layer {
	out := make([]Layer, len(layers))
	for i := range layers {
		out[i] = cloneLayer(layers[i])
	}
	return out
}

func cloneLayer(l Layer) Layer {
	if l.Ranges == nil {
		return l
	}
	ranges := make([]ValueRange, len(l.Ranges))
	copy(ranges, l.Ranges)
	for i := range ranges {
		if ranges[i].Inner != nil {
			inner := cloneLayer(*ranges[i].Inner)
			ranges[i].Inner = &inner
		}
	}
	l.Ranges = ranges
	return l
}
