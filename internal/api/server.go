package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/annel0/tilestream/internal/eventbus"
	"github.com/annel0/tilestream/internal/logging"
	"github.com/annel0/tilestream/internal/middleware"
	"github.com/annel0/tilestream/internal/vec"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/klauspost/compress/gzhttp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// Config содержит конфигурацию отладочного сервера
type Config struct {
	Addr       string                // адрес для запуска сервера, по умолчанию ":8090"
	Board      *Board                // снимок состояния мира
	Journal    *Journal              // журнал событий, может быть nil
	Bus        eventbus.EventBus     // источник /ws/events, может быть nil
	Gatherer   prometheus.Gatherer   // источник /metrics, по умолчанию DefaultGatherer
	Registerer prometheus.Registerer // регистр HTTP-метрик, nil отключает HTTP-метрики
	Logger     *logging.Logger
}

// DebugServer обслуживает read-only HTTP API над снимком контроллера
type DebugServer struct {
	router  *gin.Engine
	handler http.Handler
	http    *http.Server
	board   *Board
	journal *Journal
	bus     eventbus.EventBus
	metrics *ServerMetrics
	log     *logging.Logger

	upgrader websocket.Upgrader
}

// GenericResponse представляет общий ответ API
type GenericResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// NewDebugServer создаёт сервер и настраивает маршруты
func NewDebugServer(cfg Config) (*DebugServer, error) {
	if cfg.Addr == "" {
		cfg.Addr = ":8090"
	}
	if cfg.Board == nil {
		cfg.Board = NewBoard()
	}
	if cfg.Gatherer == nil {
		cfg.Gatherer = prometheus.DefaultGatherer
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.GetAPILogger()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("tilestream_debug"))
	router.Use(middleware.NewRequestLogger(cfg.Logger).Handler())

	if cfg.Registerer != nil {
		promMw, err := middleware.NewPrometheusMiddleware("tilestream_debug", cfg.Registerer)
		if err != nil {
			return nil, err
		}
		router.Use(promMw.Handler())
	}

	s := &DebugServer{
		router:   router,
		handler:  withGzip(router),
		board:    cfg.Board,
		journal:  cfg.Journal,
		bus:      cfg.Bus,
		metrics:  NewServerMetrics(),
		log:      cfg.Logger,
		upgrader: newUpgrader(),
	}
	s.http = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	router.GET("/health", s.handleHealth)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))

	api := router.Group("/api")
	{
		api.GET("/stats", s.handleStats)
		api.GET("/tiles", s.handleTiles)
		api.GET("/tiles/:x/:z", s.handleTile)
		api.GET("/events", s.handleEvents)
		api.GET("/server", s.handleServerInfo)
	}
	router.GET("/ws/events", s.handleEventStream)

	return s, nil
}

// Handler возвращает http.Handler сервера (для тестов и встраивания).
// Ответы сжимаются gzip, если клиент это поддерживает.
func (s *DebugServer) Handler() http.Handler {
	return s.handler
}

// withGzip сжимает ответы, пропуская WebSocket-маршруты мимо gzip-обёртки
func withGzip(router http.Handler) http.Handler {
	gz := gzhttp.GzipHandler(router)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/ws/") {
			router.ServeHTTP(w, r)
			return
		}
		gz.ServeHTTP(w, r)
	})
}

// Start блокируется до остановки сервера
func (s *DebugServer) Start() error {
	s.log.Info("🌐 debug API listening on %s", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown останавливает сервер, дожидаясь активных запросов
func (s *DebugServer) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// handleHealth проверка состояния сервера
func (s *DebugServer) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().Unix(),
	})
}

func (s *DebugServer) handleStats(c *gin.Context) {
	stats, updated := s.board.Stats()
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Статистика мира",
		Data: gin.H{
			"stats":      stats,
			"updated_at": updated,
		},
	})
}

// handleTiles отдаёт активные тайлы; ?visual= фильтрует по визуалу, ?limit= ограничивает выдачу
func (s *DebugServer) handleTiles(c *gin.Context) {
	limit, err := parseLimit(c.Query("limit"))
	if err != nil {
		c.JSON(http.StatusBadRequest, GenericResponse{Success: false, Message: err.Error()})
		return
	}
	visual := c.Query("visual")

	tiles := s.board.Tiles()
	total := len(tiles)
	out := tiles[:0]
	for _, t := range tiles {
		if visual != "" && string(t.Visual) != visual {
			continue
		}
		out = append(out, t)
		if limit > 0 && len(out) == limit {
			break
		}
	}

	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Активные тайлы",
		Data: gin.H{
			"tiles":  out,
			"count":  len(out),
			"active": total,
		},
	})
}

func (s *DebugServer) handleTile(c *gin.Context) {
	x, errX := strconv.Atoi(c.Param("x"))
	z, errZ := strconv.Atoi(c.Param("z"))
	if errX != nil || errZ != nil {
		c.JSON(http.StatusBadRequest, GenericResponse{Success: false, Message: "координаты должны быть целыми"})
		return
	}

	t, ok := s.board.Tile(vec.Vec2{X: x, Z: z})
	if !ok {
		c.JSON(http.StatusNotFound, GenericResponse{Success: false, Message: "тайл не активен"})
		return
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Тайл", Data: t})
}

// handleEvents отдаёт последние события; ?type= можно повторять или перечислять через запятую
func (s *DebugServer) handleEvents(c *gin.Context) {
	if s.journal == nil {
		c.JSON(http.StatusNotFound, GenericResponse{Success: false, Message: "журнал событий отключён"})
		return
	}
	limit, err := parseLimit(c.Query("limit"))
	if err != nil {
		c.JSON(http.StatusBadRequest, GenericResponse{Success: false, Message: err.Error()})
		return
	}

	events := s.journal.Recent(queryTypes(c), limit)
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Последние события",
		Data:    gin.H{"events": events, "count": len(events)},
	})
}

// handleServerInfo возвращает информацию о процессе
func (s *DebugServer) handleServerInfo(c *gin.Context) {
	info := s.metrics.Snapshot()
	info["name"] = "tilestream"
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Информация о сервере",
		Data:    info,
	})
}

func parseLimit(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, errors.New("limit должен быть неотрицательным целым")
	}
	return n, nil
}
