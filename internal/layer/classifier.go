package layer

import (
	"fmt"
	"strings"

	"github.com/annel0/tilestream/internal/noise"
	"github.com/annel0/tilestream/internal/tile"
)

// OverlapPolicy определяет, какой слой получает координату,
// если совпало несколько слоёв
type OverlapPolicy int

const (
	// FirstWins: первый совпавший слой занимает координату, последующие слои пропускаются
	FirstWins OverlapPolicy = iota
	// LastWins: последующие совпавшие слои перезаписывают визуал
	LastWins
)

// String возвращает имя политики в формате конфигурации
func (p OverlapPolicy) String() string {
	switch p {
	case FirstWins:
		return "first_wins"
	case LastWins:
		return "last_wins"
	default:
		return "unknown"
	}
}

// ParseOverlapPolicy разбирает имя политики; пустая строка даёт FirstWins
func ParseOverlapPolicy(name string) (OverlapPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "first_wins", "skip_occupied":
		return FirstWins, nil
	case "last_wins", "overwrite":
		return LastWins, nil
	default:
		return FirstWins, fmt.Errorf("unknown overlap policy %q", name)
	}
}

// Match: результат классификации координаты
type Match struct {
	Visual tile.Visual
	Layer  int // Индекс слоя верхнего уровня, давшего визуал
}

// Classifier связывает поле шума со слоями
type Classifier struct {
	field noise.Sampler
}

// NewClassifier создаёт классификатор над полем шума
func NewClassifier(field noise.Sampler) *Classifier {
	return &Classifier{field: field}
}

// Resolve сэмплирует поле слоя в точке и классифицирует значение.
// Если у совпавшего диапазона есть вложенный слой, он классифицируется
// собственным шумом; при отсутствии совпадения во вложенном слое
// используется визуал внешнего диапазона (если он задан).
func (c *Classifier) Resolve(worldX, worldZ float64, l *Layer) (tile.Visual, bool) {
	value := c.field.Sample(worldX, worldZ, l.Seed, l.Zoom)
	visual, idx, ok := Classify(value, l.Ranges)
	if !ok {
		return tile.None, false
	}

	if inner := l.Ranges[idx].Inner; inner != nil {
		if innerVisual, ok := c.Resolve(worldX, worldZ, inner); ok {
			return innerVisual, true
		}
	}

	if visual == tile.None {
		return tile.None, false
	}
	return visual, true
}

// ResolveStack проходит слои по порядку и выбирает визуал согласно политике
func (c *Classifier) ResolveStack(worldX, worldZ float64, layers []Layer, policy OverlapPolicy) (Match, bool) {
	var (
		result Match
		found  bool
	)
	for i := range layers {
		visual, ok := c.Resolve(worldX, worldZ, &layers[i])
		if !ok {
			continue
		}
		result = Match{Visual: visual, Layer: i}
		found = true
		if policy == FirstWins {
			break
		}
	}
	return result, found
}
