// Package tile описывает узкие интерфейсы хоста, через которые ядро
// стриминга создаёт экземпляры тайлов и управляет их видом и положением.
package tile

import "github.com/annel0/tilestream/internal/vec"

// Visual: идентификатор внешнего вида тайла (спрайт, материал).
// Пустая строка означает «нет визуала».
type Visual string

// None означает отсутствие визуала, координата остаётся пустой
const None Visual = ""

// Instance: непрозрачный экземпляр тайла, созданный хостом
type Instance interface{}

// Transform описывает положение и ориентацию тайла в мире
type Transform struct {
	Position   vec.Vec2Float
	YawDegrees float64 // Поворот вокруг вертикальной оси
}

// Factory создаёт новый экземпляр по идентификатору шаблона
type Factory interface {
	NewInstance(template string) Instance
}

// VisualSink применяет визуал к экземпляру (только запись)
type VisualSink interface {
	ApplyVisual(inst Instance, visual Visual)
}

// TransformSink задаёт положение, ориентацию и видимость экземпляра
type TransformSink interface {
	SetTransform(inst Instance, t Transform)
	SetEnabled(inst Instance, enabled bool)
}

// Host объединяет все точки взаимодействия с движком
type Host interface {
	Factory
	VisualSink
	TransformSink
}
