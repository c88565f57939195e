package main

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/annel0/tilestream/internal/api"
	"github.com/annel0/tilestream/internal/eventbus"
	"github.com/annel0/tilestream/internal/stream"
	"github.com/annel0/tilestream/internal/vec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAPI(t *testing.T) (*Client, *api.Journal, *api.Board) {
	t.Helper()
	board := api.NewBoard()
	journal := api.NewJournal(16)
	srv, err := api.NewDebugServer(api.Config{Board: board, Journal: journal})
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return NewClient(ts.URL + "/"), journal, board
}

func TestClient_Events(t *testing.T) {
	client, journal, _ := newTestAPI(t)
	for i := 0; i < 3; i++ {
		journal.Record(eventbus.NewEnvelope("w", eventbus.TypeTileActivated, vec.Vec2{X: i}))
	}
	journal.Record(eventbus.NewEnvelope("w", eventbus.TypeTileDeactivated, vec.Vec2{X: 0}))

	events, err := client.Events(context.Background(), nil, 0)
	require.NoError(t, err)
	require.Len(t, events, 4)
	assert.Equal(t, eventbus.TypeTileDeactivated, events[0].EventType)

	events, err = client.Events(context.Background(), []string{eventbus.TypeTileActivated}, 2)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, 2, events[0].Coord.X)

	assert.Equal(t, []typeCount{
		{Type: eventbus.TypeTileActivated, Count: 3},
		{Type: eventbus.TypeTileDeactivated, Count: 1},
	}, countTypes(mustEvents(t, client)))
}

func mustEvents(t *testing.T, client *Client) []eventbus.Envelope {
	events, err := client.Events(context.Background(), nil, 0)
	require.NoError(t, err)
	return events
}

func TestClient_Stats(t *testing.T) {
	client, _, board := newTestAPI(t)
	board.Update(stream.Stats{WorldID: "w", Active: 7, ObserverTile: vec.Vec2{X: 3, Z: -2}}, nil)

	st, err := client.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "w", st.WorldID)
	assert.Equal(t, 7, st.Active)
	assert.Equal(t, vec.Vec2{X: 3, Z: -2}, st.ObserverTile)
}

func TestClient_ErrorResponse(t *testing.T) {
	srv, err := api.NewDebugServer(api.Config{})
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	_, err = NewClient(ts.URL).Events(context.Background(), nil, 0)
	assert.ErrorContains(t, err, "HTTP 404")
}

func TestClient_Watch(t *testing.T) {
	bus := eventbus.NewMemoryBus(64)
	defer bus.Close()
	srv, err := api.NewDebugServer(api.Config{Bus: bus})
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan eventbus.Envelope, 256)
	done := make(chan error, 1)
	go func() {
		done <- NewClient(ts.URL).Watch(ctx, []string{eventbus.TypeObserverEnteredTile}, func(ev eventbus.Envelope) {
			received <- ev
		})
	}()

	// Поток подключается асинхронно, поэтому публикуем до первой доставки
	var got eventbus.Envelope
	require.Eventually(t, func() bool {
		_ = bus.Publish(ctx, eventbus.NewEnvelope("w", eventbus.TypeTileActivated, vec.Vec2{X: 9}))
		_ = bus.Publish(ctx, eventbus.NewEnvelope("w", eventbus.TypeObserverEnteredTile, vec.Vec2{X: 4, Z: 2}))
		select {
		case got = <-received:
			return true
		default:
			return false
		}
	}, 2*time.Second, 20*time.Millisecond)

	assert.Equal(t, eventbus.TypeObserverEnteredTile, got.EventType)
	assert.Equal(t, vec.Vec2{X: 4, Z: 2}, got.Coord)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Watch не завершился после отмены контекста")
	}
}

func TestUnseen(t *testing.T) {
	a := eventbus.NewEnvelope("w", eventbus.TypeTileActivated, vec.Vec2{})
	b := eventbus.NewEnvelope("w", eventbus.TypeTileActivated, vec.Vec2{X: 1})
	c := eventbus.NewEnvelope("w", eventbus.TypeTileActivated, vec.Vec2{X: 2})
	seen := map[string]struct{}{}

	first := unseen([]eventbus.Envelope{*b, *a}, seen)
	require.Len(t, first, 2)
	assert.Equal(t, a.ID, first[0].ID, "старые первыми")

	second := unseen([]eventbus.Envelope{*c, *b, *a}, seen)
	require.Len(t, second, 1)
	assert.Equal(t, c.ID, second[0].ID)
}

func TestParseStringList(t *testing.T) {
	assert.Nil(t, parseStringList(""))
	assert.Equal(t, []string{"a", "b"}, parseStringList(" a, ,b "))
}
