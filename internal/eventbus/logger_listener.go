package eventbus

import (
	"context"

	"github.com/annel0/tilestream/internal/logging"
)

// StartLoggingListener подписывается на все события и пишет их в лог уровня DEBUG.
// Функция неблокирующая.
func StartLoggingListener(bus EventBus) error {
	_, err := bus.Subscribe(context.Background(), Filter{}, func(ctx context.Context, ev *Envelope) {
		logging.Debug("[EventBus] %s %s src=%s tile=(%d,%d) visual=%q", ev.ID, ev.EventType, ev.Source, ev.Coord.X, ev.Coord.Z, ev.Visual)
	})
	if err != nil {
		return err
	}
	logging.Info("🪵 LoggingListener: подписка на все события активирована")
	return nil
}
