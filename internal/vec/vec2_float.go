package vec

import "math"

// Vec2Float представляет непрерывную позицию в мире (x, z)
type Vec2Float struct {
	X float64 `json:"x"`
	Z float64 `json:"z"`
}

// ToTile квантует позицию в координату тайла: floor(x/tileSize), floor(z/tileSize).
// Ключи индекса всегда целые, поэтому хеширование стабильно при любом размере тайла.
func (v Vec2Float) ToTile(tileSize float64) Vec2 {
	return Vec2{
		X: int(math.Floor(v.X / tileSize)),
		Z: int(math.Floor(v.Z / tileSize)),
	}
}

// Add складывает два вектора
func (v Vec2Float) Add(other Vec2Float) Vec2Float {
	return Vec2Float{X: v.X + other.X, Z: v.Z + other.Z}
}

// Sub вычитает вектор
func (v Vec2Float) Sub(other Vec2Float) Vec2Float {
	return Vec2Float{X: v.X - other.X, Z: v.Z - other.Z}
}

// Mul умножает вектор на скаляр
func (v Vec2Float) Mul(scalar float64) Vec2Float {
	return Vec2Float{X: v.X * scalar, Z: v.Z * scalar}
}

// Length возвращает длину вектора
func (v Vec2Float) Length() float64 {
	return math.Sqrt(v.X*v.X + v.Z*v.Z)
}

// DistanceTo вычисляет расстояние до другой точки
func (v Vec2Float) DistanceTo(other Vec2Float) float64 {
	return v.Sub(other).Length()
}
