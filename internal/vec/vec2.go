package vec

import "math"

// Vec2 представляет целочисленную координату тайла на сетке (x, z)
type Vec2 struct {
	X int `json:"x"`
	Z int `json:"z"`
}

// Add складывает две координаты
func (v Vec2) Add(other Vec2) Vec2 {
	return Vec2{X: v.X + other.X, Z: v.Z + other.Z}
}

// Sub вычитает координату
func (v Vec2) Sub(other Vec2) Vec2 {
	return Vec2{X: v.X - other.X, Z: v.Z - other.Z}
}

// ToWorld возвращает мировую позицию угла тайла при заданном размере тайла
func (v Vec2) ToWorld(tileSize float64) Vec2Float {
	return Vec2Float{X: float64(v.X), Z: float64(v.Z)}.Mul(tileSize)
}

// DistanceTo вычисляет евклидово расстояние в клетках
func (v Vec2) DistanceTo(other Vec2) float64 {
	dx := float64(v.X - other.X)
	dz := float64(v.Z - other.Z)
	return math.Sqrt(dx*dx + dz*dz)
}

// ChebyshevTo возвращает максимум из разностей по осям
func (v Vec2) ChebyshevTo(other Vec2) int {
	return max(AbsInt(v.X-other.X), AbsInt(v.Z-other.Z))
}

// AbsInt возвращает модуль целого числа
func AbsInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
