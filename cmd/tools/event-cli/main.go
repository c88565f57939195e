// Команда event-cli читает журнал событий и статистику мира через отладочный API tilesim.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/annel0/tilestream/internal/eventbus"
)

const (
	defaultServerAddr = "http://localhost:8090"
	timeFormat        = "15:04:05.000"
)

func main() {
	var (
		serverAddr = flag.String("server", defaultServerAddr, "Debug API base URL")
		command    = flag.String("cmd", "tail", "Command: tail, watch, stats, types")
		eventTypes = flag.String("types", "", "Event types filter (comma-separated)")
		limit      = flag.Int("limit", 50, "Maximum number of events")
		follow     = flag.Bool("follow", false, "Follow new events (like tail -f)")
		interval   = flag.Duration("interval", time.Second, "Poll interval in follow mode")
	)
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := NewClient(*serverAddr)

	switch *command {
	case "tail":
		if err := tailEvents(ctx, client, parseStringList(*eventTypes), *limit, *follow, *interval); err != nil {
			log.Fatalf("❌ Tail failed: %v", err)
		}
	case "watch":
		if err := watchEvents(ctx, client, parseStringList(*eventTypes)); err != nil {
			log.Fatalf("❌ Watch failed: %v", err)
		}
	case "stats":
		if err := showStats(ctx, client); err != nil {
			log.Fatalf("❌ Stats failed: %v", err)
		}
	case "types":
		if err := showTypes(ctx, client); err != nil {
			log.Fatalf("❌ Types failed: %v", err)
		}
	default:
		fmt.Printf("❌ Unknown command: %s\n", *command)
		fmt.Println("Available commands: tail, watch, stats, types")
		os.Exit(1)
	}
}

// tailEvents выводит последние события в хронологическом порядке,
// в режиме follow опрашивает журнал и печатает только новые
func tailEvents(ctx context.Context, client *Client, types []string, limit int, follow bool, interval time.Duration) error {
	fmt.Printf("🎬 Tailing events (limit: %d, follow: %v)\n", limit, follow)

	seen := make(map[string]struct{})
	total := 0
	for {
		events, err := client.Events(ctx, types, limit)
		if err != nil {
			return err
		}
		fresh := unseen(events, seen)
		for _, ev := range fresh {
			printEvent(ev)
		}
		total += len(fresh)

		if !follow {
			break
		}
		select {
		case <-ctx.Done():
			fmt.Printf("\n📊 Total events: %d\n", total)
			return nil
		case <-time.After(interval):
		}
	}

	fmt.Printf("\n📊 Total events: %d\n", total)
	return nil
}

// watchEvents печатает события из WebSocket-потока по мере их появления
func watchEvents(ctx context.Context, client *Client, types []string) error {
	fmt.Printf("📡 Watching live events (types: %v)\n", types)
	total := 0
	err := client.Watch(ctx, types, func(ev eventbus.Envelope) {
		printEvent(ev)
		total++
	})
	fmt.Printf("\n📊 Total events: %d\n", total)
	return err
}

// unseen возвращает ещё не выведенные события, старые первыми
func unseen(newestFirst []eventbus.Envelope, seen map[string]struct{}) []eventbus.Envelope {
	var out []eventbus.Envelope
	for i := len(newestFirst) - 1; i >= 0; i-- {
		ev := newestFirst[i]
		if _, ok := seen[ev.ID]; ok {
			continue
		}
		seen[ev.ID] = struct{}{}
		out = append(out, ev)
	}
	return out
}

func showStats(ctx context.Context, client *Client) error {
	st, err := client.Stats(ctx)
	if err != nil {
		return err
	}

	fmt.Println("📊 World statistics")
	fmt.Printf("World: %s\n", st.WorldID)
	fmt.Printf("Observer tile: (%d,%d)\n", st.ObserverTile.X, st.ObserverTile.Z)
	fmt.Printf("Active tiles: %d\n", st.Active)
	fmt.Printf("Pool: total=%d idle=%d initial=%d grown=%d\n", st.Pool.Total, st.Pool.Idle, st.Pool.Initial, st.Pool.Grown)
	fmt.Printf("Resyncs: %d  Violations: %d\n", st.Resyncs, st.Violations)
	return nil
}

// showTypes выводит число событий каждого типа в журнале
func showTypes(ctx context.Context, client *Client) error {
	events, err := client.Events(ctx, nil, 0)
	if err != nil {
		return err
	}

	fmt.Println("📋 Event types in journal")
	for _, tc := range countTypes(events) {
		fmt.Printf("  %s: %d events\n", tc.Type, tc.Count)
	}
	return nil
}

type typeCount struct {
	Type  string
	Count int
}

func countTypes(events []eventbus.Envelope) []typeCount {
	counts := make(map[string]int)
	for _, ev := range events {
		counts[ev.EventType]++
	}
	out := make([]typeCount, 0, len(counts))
	for t, n := range counts {
		out = append(out, typeCount{Type: t, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out
}

// printEvent выводит событие в читаемом формате
func printEvent(ev eventbus.Envelope) {
	fmt.Printf("[%s] %s [%s] %s\n", ev.Timestamp.Local().Format(timeFormat), ev.Source, ev.EventType, ev.ID)
	fmt.Printf("  Tile: (%d,%d) id=%d", ev.Coord.X, ev.Coord.Z, ev.TileID)
	if ev.Visual != "" {
		fmt.Printf(" visual=%s", ev.Visual)
	}
	fmt.Println()
}

// parseStringList парсит строку с разделителями-запятыми
func parseStringList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
