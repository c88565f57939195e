package stream

import "github.com/annel0/tilestream/internal/vec"

// yawFor возвращает поворот тайла. Для random90 поворот зависит только от
// сида мира и координаты, поэтому не меняется от состояния пула.
func (c *Controller) yawFor(coord vec.Vec2) float64 {
	if c.opts.Orientation != OrientationRandom90 {
		return c.opts.FixedYaw
	}
	return float64(coordHash(c.opts.WorldSeed, coord)%4) * 90
}

// coordHash смешивает сид мира с координатой (splitmix64)
func coordHash(seed int64, coord vec.Vec2) uint64 {
	h := uint64(seed) + uint64(int64(coord.X)*31) + uint64(int64(coord.Z)*17)<<32
	h += 0x9e3779b97f4a7c15
	h = (h ^ (h >> 30)) * 0xbf58476d1ce4e5b9
	h = (h ^ (h >> 27)) * 0x94d049bb133111eb
	return h ^ (h >> 31)
}
