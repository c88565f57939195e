//go:build ebiten

// Команда viewer рисует активные тайлы вокруг наблюдателя сверху.
// WASD или стрелки двигают наблюдателя, Shift ускоряет, Q/Esc выход.
package main

import (
	"errors"
	"flag"
	"fmt"
	"hash/fnv"
	"image/color"
	"log"

	"github.com/annel0/tilestream/internal/config"
	"github.com/annel0/tilestream/internal/logging"
	"github.com/annel0/tilestream/internal/scene"
	"github.com/annel0/tilestream/internal/stream"
	"github.com/annel0/tilestream/internal/tile"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/vector"
)

var (
	background   = color.RGBA{0x10, 0x10, 0x14, 0xff}
	observerMark = color.RGBA{0xff, 0x40, 0x40, 0xff}
)

// Game адаптирует контроллер стриминга к интерфейсу ebiten.Game
type Game struct {
	ctrl     *stream.Controller
	scene    *scene.Scene
	observer *scene.Observer
	tileSize float64

	width, height int
	scale         float64 // пикселей на единицу мира
	speed         float64 // единиц мира за кадр
	palette       map[tile.Visual]color.RGBA
}

func (g *Game) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyQ) || inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}

	step := g.speed
	if ebiten.IsKeyPressed(ebiten.KeyShift) {
		step *= 4
	}
	var dx, dz float64
	if ebiten.IsKeyPressed(ebiten.KeyA) || ebiten.IsKeyPressed(ebiten.KeyArrowLeft) {
		dx -= step
	}
	if ebiten.IsKeyPressed(ebiten.KeyD) || ebiten.IsKeyPressed(ebiten.KeyArrowRight) {
		dx += step
	}
	if ebiten.IsKeyPressed(ebiten.KeyW) || ebiten.IsKeyPressed(ebiten.KeyArrowUp) {
		dz -= step
	}
	if ebiten.IsKeyPressed(ebiten.KeyS) || ebiten.IsKeyPressed(ebiten.KeyArrowDown) {
		dz += step
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyEqual) {
		g.scale *= 1.25
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyMinus) && g.scale > 1 {
		g.scale /= 1.25
	}

	g.observer.Move(dx, dz)
	g.ctrl.Tick()
	return nil
}

func (g *Game) Draw(screen *ebiten.Image) {
	screen.Fill(background)

	center := g.observer.Position()
	cx, cy := float64(g.width)/2, float64(g.height)/2
	side := float32(g.tileSize * g.scale)

	for _, n := range g.scene.EnabledNodes() {
		x := float32(cx + (n.Transform.Position.X-center.X)*g.scale)
		y := float32(cy + (n.Transform.Position.Z-center.Z)*g.scale)
		if x+side < 0 || y+side < 0 || x > float32(g.width) || y > float32(g.height) {
			continue
		}
		vector.DrawFilledRect(screen, x, y, side, side, g.colorOf(n.Visual), false)
	}
	vector.DrawFilledCircle(screen, float32(cx), float32(cy), 3, observerMark, true)

	st := g.ctrl.Stats()
	ebitenutil.DebugPrint(screen, fmt.Sprintf(
		"tile (%d,%d)  active %d  pool %d/%d idle  grown %d  resyncs %d\nFPS %.0f  WASD move  Shift fast  +/- zoom",
		st.ObserverTile.X, st.ObserverTile.Z, st.Active, st.Pool.Idle, st.Pool.Total,
		st.Pool.Grown, st.Resyncs, ebiten.ActualFPS()))
}

func (g *Game) Layout(int, int) (int, int) {
	return g.width, g.height
}

// colorOf выводит стабильный цвет визуала из хеша его имени
func (g *Game) colorOf(v tile.Visual) color.RGBA {
	if c, ok := g.palette[v]; ok {
		return c
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(v))
	sum := h.Sum32()
	c := color.RGBA{R: 0x40 + byte(sum)%0xa0, G: 0x40 + byte(sum>>8)%0xa0, B: 0x40 + byte(sum>>16)%0xa0, A: 0xff}
	g.palette[v] = c
	return c
}

func main() {
	var (
		configPath = flag.String("config", "", "YAML config path")
		width      = flag.Int("width", 960, "Window width")
		height     = flag.Int("height", 720, "Window height")
		scale      = flag.Float64("scale", 8, "Pixels per world unit")
		speed      = flag.Float64("speed", 0.2, "Observer speed, world units per frame")
	)
	flag.Parse()

	if err := logging.InitDefaultLogger("viewer"); err != nil {
		log.Fatalf("❌ Ошибка инициализации логирования: %v", err)
	}
	defer logging.CloseDefaultLogger()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal(err)
	}
	opts, err := cfg.ToOptions()
	if err != nil {
		log.Fatal(err)
	}

	sc := scene.New()
	obs := scene.NewObserver(0, 0)
	ctrl, err := stream.New(opts, sc, obs)
	if err != nil {
		log.Fatal(err)
	}

	game := &Game{
		ctrl:     ctrl,
		scene:    sc,
		observer: obs,
		tileSize: opts.TileSize,
		width:    *width,
		height:   *height,
		scale:    *scale,
		speed:    *speed,
		palette:  make(map[tile.Visual]color.RGBA),
	}

	ebiten.SetWindowSize(*width, *height)
	ebiten.SetWindowTitle("tilestream viewer")
	if err := ebiten.RunGame(game); err != nil && !errors.Is(err, ebiten.Termination) {
		log.Fatal(err)
	}
}
