// Команда tilesim запускает безголовый хост мира тайлов: двигает наблюдателя с
// постоянной скоростью, тикает контроллер и, по желанию, поднимает отладочный API.
package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/annel0/tilestream/internal/api"
	"github.com/annel0/tilestream/internal/config"
	"github.com/annel0/tilestream/internal/eventbus"
	"github.com/annel0/tilestream/internal/logging"
	"github.com/annel0/tilestream/internal/observability"
	"github.com/annel0/tilestream/internal/scene"
	"github.com/annel0/tilestream/internal/stream"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	var (
		configPath = flag.String("config", "", "YAML config path (defaults to $TILESTREAM_CONFIG or built-in world)")
		steps      = flag.Int("steps", 600, "Number of ticks to run, 0 = until signal")
		dx         = flag.Float64("dx", 0.25, "Observer X velocity, world units per tick")
		dz         = flag.Float64("dz", 0.1, "Observer Z velocity, world units per tick")
		tps        = flag.Int("tps", 60, "Ticks per second, 0 = as fast as possible")
		serve      = flag.Bool("serve", false, "Start debug HTTP API")
		logLevel   = flag.String("log-level", "info", "Console log level: trace, debug, info, warn, error")
		logDir     = flag.String("log-dir", "", "Directory for file logs, empty = console only")
	)
	flag.Parse()

	logging.SetLogDir(*logDir)
	if err := logging.InitDefaultLogger("tilesim"); err != nil {
		log.Fatalf("❌ Ошибка инициализации логирования: %v", err)
	}
	defer logging.CloseDefaultLogger()
	defer logging.GetLoggerManager().CloseAll()

	level := logging.ParseLevel(*logLevel)
	logging.SetDefaultLevel(level)
	logging.GetLoggerManager().SetLevel(level, logging.DEBUG)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Ошибка загрузки конфигурации: %v", err)
	}
	warnings, err := cfg.Validate()
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	for _, w := range warnings {
		logging.Warn("⚠️ config: %s", w)
	}
	opts, err := cfg.ToOptions()
	if err != nil {
		log.Fatalf("❌ %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Telemetry.Enabled {
		shutdown, err := observability.InitTelemetry(ctx, observability.Options{
			ServiceName: "tilesim",
			Endpoint:    cfg.Telemetry.OTLPEndpoint,
			SampleRatio: cfg.Telemetry.SampleRatio,
		})
		if err != nil {
			logging.Error("❌ Ошибка инициализации OpenTelemetry: %v", err)
		} else {
			defer func() { _ = shutdown(context.Background()) }()
		}
	}

	bus, err := newEventBus(cfg.EventBus)
	if err != nil {
		log.Fatalf("❌ Ошибка подключения шины событий: %v", err)
	}
	defer bus.Close()
	if err := eventbus.StartLoggingListener(bus); err != nil {
		logging.Error("❌ Ошибка подписки логгера событий: %v", err)
	}
	if err := eventbus.RegisterMetrics(prometheus.DefaultRegisterer, bus); err != nil {
		logging.Error("❌ Ошибка регистрации метрик шины: %v", err)
	}

	host := scene.New()
	observer := scene.NewObserver(0, 0)
	ctrl, err := stream.New(opts, host, observer,
		stream.WithEventBus(bus),
		stream.WithRegisterer(prometheus.DefaultRegisterer),
	)
	if err != nil {
		log.Fatalf("❌ Ошибка создания контроллера: %v", err)
	}

	board := api.NewBoard()
	board.Capture(ctrl)

	var server *api.DebugServer
	if *serve {
		journal := api.NewJournal(1024)
		if err := journal.Attach(ctx, bus); err != nil {
			logging.Error("❌ Ошибка подписки журнала событий: %v", err)
		}
		defer journal.Close()

		server, err = api.NewDebugServer(api.Config{
			Addr:       ":" + strconv.Itoa(cfg.Server.GetDebugPort()),
			Board:      board,
			Journal:    journal,
			Bus:        bus,
			Registerer: prometheus.DefaultRegisterer,
		})
		if err != nil {
			log.Fatalf("❌ Ошибка создания отладочного API: %v", err)
		}
		go func() {
			if err := server.Start(); err != nil {
				logging.Error("❌ Отладочный API остановлен: %v", err)
			}
		}()
	}

	logging.Info("🚀 tilesim: world=%s steps=%d velocity=(%.2f, %.2f) tps=%d",
		ctrl.WorldID(), *steps, *dx, *dz, *tps)

	started := time.Now()
	ran := run(ctx, ctrl, observer, board, *steps, *dx, *dz, *tps)

	st := ctrl.Stats()
	logging.Info("🏁 %d ticks in %s: observer tile (%d,%d), resyncs=%d active=%d pool total=%d idle=%d grown=%d violations=%d",
		ran, time.Since(started).Round(time.Millisecond), st.ObserverTile.X, st.ObserverTile.Z,
		st.Resyncs, st.Active, st.Pool.Total, st.Pool.Idle, st.Pool.Grown, st.Violations)

	if server != nil {
		if *steps > 0 {
			logging.Info("🌐 Симуляция завершена, API доступен до сигнала завершения")
			<-ctx.Done()
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logging.Error("❌ Ошибка остановки отладочного API: %v", err)
		}
	}

	if st.Violations > 0 {
		logging.Error("❌ invariant violations: %d, last: %v", st.Violations, ctrl.LastViolation())
	}
}

// newEventBus выбирает JetStream, если задан URL, иначе шину в памяти процесса
func newEventBus(cfg config.EventBusConfig) (eventbus.EventBus, error) {
	if cfg.URL == "" {
		return eventbus.NewMemoryBus(8192), nil
	}
	bus, err := eventbus.NewJetStreamBus(cfg.URL, cfg.Stream, cfg.RetentionDuration())
	if err != nil {
		return nil, err
	}
	logging.Info("📨 JetStream event bus: %s stream=%s", cfg.URL, cfg.Stream)
	return bus, nil
}

// run тикает контроллер до steps тиков или отмены ctx и возвращает число тиков
func run(ctx context.Context, ctrl *stream.Controller, observer *scene.Observer, board *api.Board, steps int, dx, dz float64, tps int) int {
	var tick <-chan time.Time
	if tps > 0 {
		ticker := time.NewTicker(time.Second / time.Duration(tps))
		defer ticker.Stop()
		tick = ticker.C
	}

	for i := 0; steps == 0 || i < steps; i++ {
		if tick != nil {
			select {
			case <-ctx.Done():
				return i
			case <-tick:
			}
		} else if ctx.Err() != nil {
			return i
		}

		observer.Move(dx, dz)
		if ctrl.Tick() {
			board.Capture(ctrl)
		}
	}
	return steps
}
