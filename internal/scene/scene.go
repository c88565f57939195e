// Package scene реализует хост в памяти: хранит узлы тайлов вместо объектов движка.
// Используется симулятором, просмотрщиком и тестами.
package scene

import (
	"fmt"

	"github.com/annel0/tilestream/internal/tile"
	"github.com/annel0/tilestream/internal/vec"
)

// Node хранит состояние экземпляра тайла в сцене
type Node struct {
	ID        int
	Template  string
	Enabled   bool
	Transform tile.Transform
	Visual    tile.Visual
}

// Scene реализует tile.Host. Не безопасна для одновременного использования.
type Scene struct {
	nodes []*Node
}

// New создаёт пустую сцену
func New() *Scene {
	return &Scene{}
}

// NewInstance создаёт выключенный узел
func (s *Scene) NewInstance(template string) tile.Instance {
	n := &Node{ID: len(s.nodes), Template: template}
	s.nodes = append(s.nodes, n)
	return n
}

// ApplyVisual задаёт визуал узла
func (s *Scene) ApplyVisual(inst tile.Instance, visual tile.Visual) {
	mustNode(inst).Visual = visual
}

// SetTransform задаёт положение и поворот узла
func (s *Scene) SetTransform(inst tile.Instance, t tile.Transform) {
	mustNode(inst).Transform = t
}

// SetEnabled включает или выключает узел
func (s *Scene) SetEnabled(inst tile.Instance, enabled bool) {
	mustNode(inst).Enabled = enabled
}

// Created возвращает число узлов, созданных фабрикой
func (s *Scene) Created() int {
	return len(s.nodes)
}

// Nodes возвращает все узлы в порядке создания
func (s *Scene) Nodes() []*Node {
	return s.nodes
}

// EnabledNodes возвращает включённые узлы
func (s *Scene) EnabledNodes() []*Node {
	out := make([]*Node, 0, len(s.nodes))
	for _, n := range s.nodes {
		if n.Enabled {
			out = append(out, n)
		}
	}
	return out
}

func mustNode(inst tile.Instance) *Node {
	n, ok := inst.(*Node)
	if !ok {
		panic(fmt.Sprintf("scene: foreign instance %T", inst))
	}
	return n
}

// Observer представляет наблюдателя с изменяемой позицией
type Observer struct {
	pos vec.Vec2Float
}

// NewObserver создаёт наблюдателя в указанной позиции
func NewObserver(x, z float64) *Observer {
	return &Observer{pos: vec.Vec2Float{X: x, Z: z}}
}

// Position возвращает текущую позицию
func (o *Observer) Position() vec.Vec2Float {
	return o.pos
}

// SetPosition перемещает наблюдателя в точку
func (o *Observer) SetPosition(x, z float64) {
	o.pos = vec.Vec2Float{X: x, Z: z}
}

// Move сдвигает наблюдателя
func (o *Observer) Move(dx, dz float64) {
	o.pos = o.pos.Add(vec.Vec2Float{X: dx, Z: dz})
}
