package api

import (
	"sync"
	"time"

	"github.com/annel0/tilestream/internal/stream"
	"github.com/annel0/tilestream/internal/vec"
)

// Snapshotter: источник снимков состояния (обычно *stream.Controller)
type Snapshotter interface {
	Stats() stream.Stats
	ActiveTiles() []stream.ActiveTile
}

// Board хранит последний снимок контроллера для чтения из HTTP-горутин.
// Контроллер не потокобезопасен, поэтому снимок снимает владелец тика,
// а обработчики читают только копию.
type Board struct {
	mu      sync.RWMutex
	stats   stream.Stats
	tiles   []stream.ActiveTile
	byCoord map[vec.Vec2]int
	updated time.Time
}

func NewBoard() *Board {
	return &Board{byCoord: make(map[vec.Vec2]int)}
}

// Capture снимает снимок с источника; вызывать из горутины, владеющей контроллером
func (b *Board) Capture(src Snapshotter) {
	b.Update(src.Stats(), src.ActiveTiles())
}

// Update заменяет снимок
func (b *Board) Update(stats stream.Stats, tiles []stream.ActiveTile) {
	byCoord := make(map[vec.Vec2]int, len(tiles))
	for i, t := range tiles {
		byCoord[t.Coord] = i
	}

	b.mu.Lock()
	b.stats = stats
	b.tiles = tiles
	b.byCoord = byCoord
	b.updated = time.Now()
	b.mu.Unlock()
}

// Stats возвращает счётчики и время последнего снимка (нулевое, если снимков не было)
func (b *Board) Stats() (stream.Stats, time.Time) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.stats, b.updated
}

// Tiles возвращает копию активных тайлов
func (b *Board) Tiles() []stream.ActiveTile {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]stream.ActiveTile(nil), b.tiles...)
}

// Tile ищет активный тайл по координате
func (b *Board) Tile(coord vec.Vec2) (stream.ActiveTile, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	i, ok := b.byCoord[coord]
	if !ok {
		return stream.ActiveTile{}, false
	}
	return b.tiles[i], true
}
