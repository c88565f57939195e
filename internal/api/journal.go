package api

import (
	"context"
	"sync"

	"github.com/annel0/tilestream/internal/eventbus"
)

// Journal хранит кольцевой буфер последних событий шины для отладочного API.
type Journal struct {
	mu   sync.RWMutex
	buf  []eventbus.Envelope
	next int
	full bool
	sub  eventbus.Subscription
}

// NewJournal создаёт журнал на capacity событий (минимум одно)
func NewJournal(capacity int) *Journal {
	if capacity < 1 {
		capacity = 1
	}
	return &Journal{buf: make([]eventbus.Envelope, capacity)}
}

// Attach подписывает журнал на все события шины
func (j *Journal) Attach(ctx context.Context, bus eventbus.EventBus) error {
	sub, err := bus.Subscribe(ctx, eventbus.Filter{}, func(_ context.Context, ev *eventbus.Envelope) {
		j.Record(ev)
	})
	if err != nil {
		return err
	}
	j.mu.Lock()
	j.sub = sub
	j.mu.Unlock()
	return nil
}

// Record сохраняет копию события, вытесняя самое старое
func (j *Journal) Record(ev *eventbus.Envelope) {
	j.mu.Lock()
	j.buf[j.next] = *ev
	j.next = (j.next + 1) % len(j.buf)
	if j.next == 0 {
		j.full = true
	}
	j.mu.Unlock()
}

// Recent возвращает до limit последних событий, новые первыми.
// Пустой types означает все типы; limit <= 0 означает без ограничения.
func (j *Journal) Recent(types []string, limit int) []eventbus.Envelope {
	j.mu.RLock()
	defer j.mu.RUnlock()

	n := j.next
	if j.full {
		n = len(j.buf)
	}

	out := make([]eventbus.Envelope, 0, n)
	for i := 0; i < n; i++ {
		ev := j.buf[(j.next-1-i+len(j.buf))%len(j.buf)]
		if !hasType(types, ev.EventType) {
			continue
		}
		out = append(out, ev)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// Close отписывает журнал от шины
func (j *Journal) Close() {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.sub != nil {
		j.sub.Unsubscribe()
		j.sub = nil
	}
}

func hasType(types []string, t string) bool {
	if len(types) == 0 {
		return true
	}
	for _, want := range types {
		if want == t {
			return true
		}
	}
	return false
}
