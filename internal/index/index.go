package index

import (
	"errors"
	"fmt"

	"github.com/annel0/tilestream/internal/pool"
	"github.com/annel0/tilestream/internal/vec"
)

// ErrOccupied возвращается при вставке в уже занятую координату
var ErrOccupied = errors.New("index: coordinate already occupied")

// Active отображает координату тайла в тайл, который её занимает.
// Единственный источник истины о материализованных координатах.
// Не выделяет тайлы, а только хранит идентификаторы, выданные пулом.
type Active struct {
	tiles map[vec.Vec2]pool.TileID
}

// New создаёт индекс с подсказкой ёмкости
func New(capacity int) *Active {
	if capacity < 0 {
		capacity = 0
	}
	return &Active{tiles: make(map[vec.Vec2]pool.TileID, capacity)}
}

// Contains проверяет, занята ли координата
func (a *Active) Contains(coord vec.Vec2) bool {
	_, ok := a.tiles[coord]
	return ok
}

// Get возвращает тайл в координате
func (a *Active) Get(coord vec.Vec2) (pool.TileID, bool) {
	id, ok := a.tiles[coord]
	return id, ok
}

// Insert публикует тайл в координате. Занятая координата не перезаписывается.
func (a *Active) Insert(coord vec.Vec2, id pool.TileID) error {
	if prev, ok := a.tiles[coord]; ok {
		return fmt.Errorf("%w: (%d,%d) held by tile %d", ErrOccupied, coord.X, coord.Z, prev)
	}
	a.tiles[coord] = id
	return nil
}

// Remove удаляет координату и возвращает тайл, который её занимал
func (a *Active) Remove(coord vec.Vec2) (pool.TileID, bool) {
	id, ok := a.tiles[coord]
	if ok {
		delete(a.tiles, coord)
	}
	return id, ok
}

// ForEach обходит все записи без гарантий порядка. Изменять индекс внутри fn нельзя.
func (a *Active) ForEach(fn func(coord vec.Vec2, id pool.TileID)) {
	for coord, id := range a.tiles {
		fn(coord, id)
	}
}

// Len возвращает число занятых координат
func (a *Active) Len() int {
	return len(a.tiles)
}

// Coords возвращает занятые координаты без гарантий порядка
func (a *Active) Coords() []vec.Vec2 {
	out := make([]vec.Vec2, 0, len(a.tiles))
	for coord := range a.tiles {
		out = append(out, coord)
	}
	return out
}
