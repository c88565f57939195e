package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/annel0/tilestream/internal/eventbus"
	"github.com/annel0/tilestream/internal/stream"
	"github.com/gorilla/websocket"
)

// Client ходит в отладочный API tilesim
type Client struct {
	base string
	http *http.Client
}

func NewClient(base string) *Client {
	return &Client{
		base: strings.TrimRight(base, "/"),
		http: &http.Client{Timeout: 5 * time.Second},
	}
}

type response struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Events возвращает последние события журнала, новые первыми
func (c *Client) Events(ctx context.Context, types []string, limit int) ([]eventbus.Envelope, error) {
	q := url.Values{}
	if len(types) > 0 {
		q.Set("type", strings.Join(types, ","))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	var data struct {
		Events []eventbus.Envelope `json:"events"`
	}
	if err := c.get(ctx, "/api/events", q, &data); err != nil {
		return nil, err
	}
	return data.Events, nil
}

// Stats возвращает последний снимок статистики мира
func (c *Client) Stats(ctx context.Context) (stream.Stats, error) {
	var data struct {
		Stats stream.Stats `json:"stats"`
	}
	err := c.get(ctx, "/api/stats", nil, &data)
	return data.Stats, err
}

// Watch подключается к /ws/events и вызывает fn для каждого события до отмены ctx
// или закрытия соединения сервером
func (c *Client) Watch(ctx context.Context, types []string, fn func(eventbus.Envelope)) error {
	u := "ws" + strings.TrimPrefix(c.base, "http") + "/ws/events"
	if len(types) > 0 {
		u += "?" + url.Values{"type": {strings.Join(types, ",")}}.Encode()
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("/ws/events: %w (HTTP %d)", err, resp.StatusCode)
		}
		return err
	}
	defer conn.Close()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"),
				time.Now().Add(time.Second))
			_ = conn.Close()
		case <-stop:
		}
	}()

	for {
		var ev eventbus.Envelope
		if err := conn.ReadJSON(&ev); err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return err
		}
		fn(ev)
	}
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out interface{}) error {
	u := c.base + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var body response
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("%s: decode response: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK || !body.Success {
		return fmt.Errorf("%s: %s (HTTP %d)", path, body.Message, resp.StatusCode)
	}
	return json.Unmarshal(body.Data, out)
}
