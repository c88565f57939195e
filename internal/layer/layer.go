package layer

import (
	"errors"
	"fmt"

	"github.com/annel0/tilestream/internal/noise"
	"github.com/annel0/tilestream/internal/tile"
)

// ErrInvalidRange возвращается для диапазона с Min > Max
var ErrInvalidRange = errors.New("layer: range min exceeds max")

// ValueRange сопоставляет полосу значений шума [Min, Max] (обе границы включены) визуалу.
// Inner задаёт вложенный слой, который классифицируется только после совпадения этого диапазона.
type ValueRange struct {
	Min    float64
	Max    float64
	Visual tile.Visual
	Inner  *Layer
}

// Contains проверяет попадание значения в диапазон
func (r ValueRange) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// Layer задаёт упорядоченный набор диапазонов над собственным полем шума.
// Seed сдвигает поле; ноль означает «назначить при настройке мира».
type Layer struct {
	Name   string
	Seed   float64
	Zoom   float64
	Ranges []ValueRange
}

// Validate проверяет масштаб и диапазоны слоя, включая вложенные слои.
// Пустой список диапазонов допустим: такой слой ничего не размещает.
func (l *Layer) Validate() error {
	if err := noise.ValidateZoom(l.Zoom); err != nil {
		return fmt.Errorf("layer %q: %w", l.Name, err)
	}
	for i, r := range l.Ranges {
		if r.Min > r.Max {
			return fmt.Errorf("layer %q range %d [%v, %v]: %w", l.Name, i, r.Min, r.Max, ErrInvalidRange)
		}
		if r.Inner != nil {
			if err := r.Inner.Validate(); err != nil {
				return fmt.Errorf("layer %q range %d: %w", l.Name, i, err)
			}
		}
	}
	return nil
}

// Classify возвращает визуал и индекс первого диапазона, содержащего значение.
// Диапазоны проверяются в объявленном порядке: при перекрытии побеждает
// более ранний диапазон.
func Classify(value float64, ranges []ValueRange) (tile.Visual, int, bool) {
	for i := range ranges {
		if ranges[i].Contains(value) {
			return ranges[i].Visual, i, true
		}
	}
	return tile.None, -1, false
}

// Always возвращает слой с одним диапазоном [0,1], совпадающим со всеми клетками
func Always(name string, visual tile.Visual) Layer {
	return Layer{
		Name:   name,
		Zoom:   1,
		Ranges: []ValueRange{{Min: 0, Max: 1, Visual: visual}},
	}
}
