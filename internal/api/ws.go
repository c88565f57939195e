package api

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/annel0/tilestream/internal/eventbus"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	streamBuffer       = 256
	streamWriteTimeout = 5 * time.Second
	streamPingInterval = 30 * time.Second
)

func newUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 16 * 1024,
		CheckOrigin:     func(r *http.Request) bool { return true },
	}
}

// handleEventStream отдаёт события шины по WebSocket по мере публикации.
// ?type= фильтрует так же, как /api/events. Подключаться можно только с loopback.
func (s *DebugServer) handleEventStream(c *gin.Context) {
	if s.bus == nil {
		c.JSON(http.StatusNotFound, GenericResponse{Success: false, Message: "шина событий не подключена"})
		return
	}
	if !isLoopbackRemote(c.Request.RemoteAddr) {
		c.JSON(http.StatusForbidden, GenericResponse{Success: false, Message: "forbidden"})
		return
	}
	types := queryTypes(c)

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	out := make(chan *eventbus.Envelope, streamBuffer)
	var dropped atomic.Uint64
	sub, err := s.bus.Subscribe(ctx, eventbus.Filter{Types: types}, func(_ context.Context, ev *eventbus.Envelope) {
		select {
		case out <- ev:
		default:
			dropped.Add(1)
		}
	})
	if err != nil {
		s.log.Error("❌ ws subscribe: %v", err)
		c.JSON(http.StatusInternalServerError, GenericResponse{Success: false, Message: err.Error()})
		return
	}
	defer sub.Unsubscribe()

	// Подписка оформляется до рукопожатия, чтобы клиент не терял события сразу после Dial
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Warn("⚠️ ws upgrade: %v", err)
		return
	}
	defer conn.Close()

	s.log.Debug("[WS] ▶ event stream %s types=%v", c.ClientIP(), types)

	// Клиент ничего не шлёт; чтение нужно только чтобы заметить закрытие
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(streamPingInterval)
	defer ping.Stop()

	sent := 0
	for {
		select {
		case <-ctx.Done():
			s.log.Debug("[WS] ◀ event stream %s sent=%d dropped=%d", c.ClientIP(), sent, dropped.Load())
			return
		case ev := <-out:
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
			sent++
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(streamWriteTimeout)); err != nil {
				return
			}
		}
	}
}

// queryTypes собирает ?type=, повторённые или перечисленные через запятую
func queryTypes(c *gin.Context) []string {
	var types []string
	for _, v := range c.QueryArray("type") {
		for _, t := range strings.Split(v, ",") {
			if t = strings.TrimSpace(t); t != "" {
				types = append(types, t)
			}
		}
	}
	return types
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimSuffix(strings.TrimPrefix(host, "["), "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
