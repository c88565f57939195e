package noise

import (
	"errors"
	"fmt"
	"math"

	"github.com/aquilax/go-perlin"
)

// ErrInvalidZoom возвращается для нулевого, отрицательного или NaN масштаба
var ErrInvalidZoom = errors.New("noise: zoom must be positive")

// Параметры по умолчанию, как у генератора мира
const (
	DefaultAlpha   = 2.0 // Сглаживание шума
	DefaultBeta    = 2.0 // Частота шума
	DefaultOctaves = 3   // Количество октав
)

// Sampler: детерминированное скалярное поле со значениями в [0,1]
type Sampler interface {
	Sample(worldX, worldZ, seed, zoom float64) float64
}

// Params задаёт форму шума Перлина
type Params struct {
	Alpha   float64
	Beta    float64
	Octaves int32
	Seed    int64 // Сид таблицы перестановок (мир); сдвиг слоя передаётся в Sample
}

// DefaultParams возвращает параметры по умолчанию для указанного сида мира
func DefaultParams(seed int64) Params {
	return Params{Alpha: DefaultAlpha, Beta: DefaultBeta, Octaves: DefaultOctaves, Seed: seed}
}

// Field вычисляет когерентный 2D шум Перлина.
// После создания таблицы только читаются, поэтому Sample безопасен
// для одновременного вызова из нескольких горутин.
type Field struct {
	perlin *perlin.Perlin
	params Params
}

// NewField создаёт поле шума. Нулевые параметры заменяются значениями по умолчанию.
func NewField(p Params) *Field {
	if p.Alpha == 0 {
		p.Alpha = DefaultAlpha
	}
	if p.Beta == 0 {
		p.Beta = DefaultBeta
	}
	if p.Octaves <= 0 {
		p.Octaves = DefaultOctaves
	}
	return &Field{
		perlin: perlin.NewPerlin(p.Alpha, p.Beta, p.Octaves, p.Seed),
		params: p,
	}
}

// Params возвращает фактические параметры поля
func (f *Field) Params() Params {
	return f.params
}

// Sample возвращает значение шума в [0,1] в точке ((x+seed)/zoom, (z+seed)/zoom).
// Масштаб должен быть проверен заранее через ValidateZoom; для некорректного
// масштаба возвращается 0.
func (f *Field) Sample(worldX, worldZ, seed, zoom float64) float64 {
	if ValidateZoom(zoom) != nil {
		return 0
	}

	// Значение шума примерно в [-1, 1]
	n := f.perlin.Noise2D((worldX+seed)/zoom, (worldZ+seed)/zoom)

	// Преобразуем в диапазон от 0 до 1
	return Clamp01((n + 1.0) / 2.0)
}

// ValidateZoom проверяет масштаб шума
func ValidateZoom(zoom float64) error {
	if math.IsNaN(zoom) || zoom <= 0 {
		return fmt.Errorf("%w: got %v", ErrInvalidZoom, zoom)
	}
	return nil
}

// Clamp01 ограничивает значение отрезком [0,1]; сумма октав может слегка выходить за него
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Constant: поле с постоянным значением. Используется в тестах и для
// слоёв без шума (одинаковый шаблон на всех клетках).
type Constant float64

// Sample возвращает постоянное значение
func (c Constant) Sample(_, _, _, _ float64) float64 {
	return Clamp01(float64(c))
}
