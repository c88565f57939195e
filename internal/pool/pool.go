// Package pool хранит переиспользуемые экземпляры тайлов.
//
// Экземпляры лежат в арене слотов и адресуются целым TileID. Свободные
// идентификаторы стоят в FIFO-очереди, активные принадлежат индексу
// активных тайлов. Флаг active у слота: единственный источник истины
// о владельце, поэтому один тайл не может оказаться сразу в двух местах.
package pool

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/annel0/tilestream/internal/tile"
	"github.com/annel0/tilestream/internal/vec"
)

var (
	// ErrUnknownTile: идентификатор вне арены
	ErrUnknownTile = errors.New("pool: unknown tile id")
	// ErrNotActive: повторный возврат уже свободного тайла
	ErrNotActive = errors.New("pool: tile is not active")
)

// TileID: индекс слота в арене пула
type TileID int

// slot хранит экземпляр и последнее применённое к нему размещение
type slot struct {
	inst      tile.Instance
	template  string
	active    bool
	transform tile.Transform
	visual    tile.Visual
}

// Slot: снимок размещения тайла только для чтения
type Slot struct {
	ID         TileID
	Template   string
	Active     bool
	Position   vec.Vec2Float
	YawDegrees float64
	Visual     tile.Visual
}

// Stats: счётчики пула. Total == Idle + Active и равно числу
// экземпляров, созданных фабрикой.
type Stats struct {
	Initial  int    `json:"initial"` // Размер начального заполнения
	Total    int    `json:"total"`   // Всего экземпляров в арене
	Idle     int    `json:"idle"`    // Свободные экземпляры в очереди
	Active   int    `json:"active"`  // Экземпляры, выданные наружу
	Grown    uint64 `json:"grown"`   // Экземпляры, созданные сверх начального размера
	Acquired uint64 `json:"acquired"`
	Released uint64 `json:"released"`
}

// Pool переиспользует экземпляры тайлов. Не безопасен для одновременного использования.
type Pool struct {
	host      tile.Host
	templates []string
	rng       *rand.Rand

	slots []slot
	idle  idQueue

	initial  int
	grown    uint64
	acquired uint64
	released uint64
}

// New создаёт пул и заполняет его size выключенными экземплярами.
// Шаблон каждого экземпляра выбирается случайно из templates;
// пустой список означает шаблон "".
func New(host tile.Host, size int, templates []string, rng *rand.Rand) *Pool {
	if size < 0 {
		size = 0
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(0))
	}

	p := &Pool{
		host:      host,
		templates: append([]string(nil), templates...),
		rng:       rng,
		slots:     make([]slot, 0, size),
		idle:      newIDQueue(size),
		initial:   size,
	}

	for i := 0; i < size; i++ {
		id := p.newSlot()
		p.host.SetEnabled(p.slots[id].inst, false)
		p.idle.push(id)
	}

	return p
}

// newSlot создаёт экземпляр через фабрику хоста и добавляет его в арену
func (p *Pool) newSlot() TileID {
	template := p.pickTemplate()
	inst := p.host.NewInstance(template)
	p.slots = append(p.slots, slot{inst: inst, template: template})
	return TileID(len(p.slots) - 1)
}

func (p *Pool) pickTemplate() string {
	switch len(p.templates) {
	case 0:
		return ""
	case 1:
		return p.templates[0]
	default:
		return p.templates[p.rng.Intn(len(p.templates))]
	}
}

// Acquire выдаёт тайл из головы очереди свободных, а при её исчерпании
// создаёт новый экземпляр. Никогда не завершается ошибкой.
// Возвращённый тайл помечен активным и включён.
func (p *Pool) Acquire() TileID {
	id, ok := p.idle.pop()
	if !ok {
		id = p.newSlot()
		p.grown++
	}

	s := &p.slots[id]
	s.active = true
	p.host.SetEnabled(s.inst, true)
	p.acquired++
	return id
}

// Place применяет положение, ориентацию и визуал к активному тайлу
func (p *Pool) Place(id TileID, t tile.Transform, visual tile.Visual) error {
	s, err := p.activeSlot(id)
	if err != nil {
		return err
	}

	s.transform = t
	s.visual = visual
	p.host.SetTransform(s.inst, t)
	p.host.ApplyVisual(s.inst, visual)
	return nil
}

// Release выключает тайл и ставит его в хвост очереди свободных.
// Повторный возврат без Acquire между ними отклоняется с ErrNotActive.
func (p *Pool) Release(id TileID) error {
	s, err := p.activeSlot(id)
	if err != nil {
		return err
	}

	s.active = false
	p.host.SetEnabled(s.inst, false)
	p.idle.push(id)
	p.released++
	return nil
}

func (p *Pool) activeSlot(id TileID) (*slot, error) {
	if id < 0 || int(id) >= len(p.slots) {
		return nil, fmt.Errorf("%w: %d", ErrUnknownTile, id)
	}
	s := &p.slots[id]
	if !s.active {
		return nil, fmt.Errorf("%w: %d", ErrNotActive, id)
	}
	return s, nil
}

// Slot возвращает снимок слота
func (p *Pool) Slot(id TileID) (Slot, bool) {
	if id < 0 || int(id) >= len(p.slots) {
		return Slot{}, false
	}
	s := p.slots[id]
	return Slot{
		ID:         id,
		Template:   s.template,
		Active:     s.active,
		Position:   s.transform.Position,
		YawDegrees: s.transform.YawDegrees,
		Visual:     s.visual,
	}, true
}

// Instance возвращает экземпляр хоста для слота
func (p *Pool) Instance(id TileID) (tile.Instance, bool) {
	if id < 0 || int(id) >= len(p.slots) {
		return nil, false
	}
	return p.slots[id].inst, true
}

// IdleLen возвращает число свободных тайлов
func (p *Pool) IdleLen() int {
	return p.idle.len()
}

// Stats возвращает счётчики пула
func (p *Pool) Stats() Stats {
	idle := p.idle.len()
	return Stats{
		Initial:  p.initial,
		Total:    len(p.slots),
		Idle:     idle,
		Active:   len(p.slots) - idle,
		Grown:    p.grown,
		Acquired: p.acquired,
		Released: p.released,
	}
}
