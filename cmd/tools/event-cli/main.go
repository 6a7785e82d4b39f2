package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/Nootest/3DShooting/internal/eventbus"
	"github.com/Nootest/3DShooting/internal/game"
)

const (
	defaultNATSURL = "nats://127.0.0.1:4222"
	timeFormat     = "15:04:05.000"
)

func main() {
	var (
		natsURL    = flag.String("nats", defaultNATSURL, "NATS server URL")
		stream     = flag.String("stream", "SHOOTER", "JetStream stream name")
		command    = flag.String("cmd", "tail", "Command: tail, stats, types")
		eventTypes = flag.String("types", "", "Event types filter (comma-separated)")
		sources    = flag.String("sources", "", "Sources filter (comma-separated)")
		session    = flag.String("session", "", "Session ID filter")
		limit      = flag.Int("limit", 0, "Stop after N events (0 - no limit)")
		window     = flag.Duration("window", 10*time.Second, "Stats collection window")
		asJSON     = flag.Bool("json", false, "Print events as JSON lines")
	)
	flag.Parse()

	if *command == "types" {
		showTypes()
		return
	}

	bus, err := eventbus.NewJetStreamBus(*natsURL, *stream, 0)
	if err != nil {
		log.Fatalf("❌ Failed to connect to NATS: %v", err)
	}
	defer bus.Close()

	filter := eventbus.Filter{
		Types:   parseStringList(*eventTypes),
		Sources: parseStringList(*sources),
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	switch *command {
	case "tail":
		err = tailEvents(ctx, bus, filter, &TailOptions{
			Session: *session,
			Limit:   *limit,
			JSON:    *asJSON,
		})
	case "stats":
		err = showStats(ctx, bus, filter, *session, *window)
	default:
		fmt.Printf("❌ Unknown command: %s\n", *command)
		fmt.Println("Available commands: tail, stats, types")
		os.Exit(1)
	}
	if err != nil {
		log.Fatalf("❌ %s failed: %v", *command, err)
	}
}

type TailOptions struct {
	Session string
	Limit   int
	JSON    bool
}

// tailEvents выводит события в реальном времени
func tailEvents(ctx context.Context, bus eventbus.EventBus, filter eventbus.Filter, opts *TailOptions) error {
	fmt.Printf("🎬 Tailing events (types: %v, session: %q, limit: %d)\n", filter.Types, opts.Session, opts.Limit)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var mu sync.Mutex
	count := 0
	sub, err := bus.Subscribe(ctx, filter, func(_ context.Context, env *eventbus.Envelope) {
		if opts.Session != "" && env.SessionID != opts.Session {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		if opts.Limit > 0 && count >= opts.Limit {
			return
		}
		printEvent(env, opts.JSON)
		count++
		if opts.Limit > 0 && count >= opts.Limit {
			cancel()
		}
	})
	if err != nil {
		return err
	}
	defer sub.Unsubscribe()

	<-ctx.Done()
	mu.Lock()
	fmt.Printf("\n📊 Total events: %d\n", count)
	mu.Unlock()
	return nil
}

// showStats считает события по типам за окно window
func showStats(ctx context.Context, bus eventbus.EventBus, filter eventbus.Filter, session string, window time.Duration) error {
	fmt.Printf("📊 Collecting event statistics for %s\n", window)

	var mu sync.Mutex
	byType := make(map[string]int)
	sessions := make(map[string]struct{})
	sub, err := bus.Subscribe(ctx, filter, func(_ context.Context, env *eventbus.Envelope) {
		if session != "" && env.SessionID != session {
			return
		}
		mu.Lock()
		byType[env.EventType]++
		sessions[env.SessionID] = struct{}{}
		mu.Unlock()
	})
	if err != nil {
		return err
	}

	select {
	case <-ctx.Done():
	case <-time.After(window):
	}
	sub.Unsubscribe()

	mu.Lock()
	defer mu.Unlock()
	types := make([]string, 0, len(byType))
	total := 0
	for t, n := range byType {
		types = append(types, t)
		total += n
	}
	sort.Slice(types, func(i, j int) bool { return byType[types[i]] > byType[types[j]] })

	fmt.Printf("Total events: %d, sessions: %d, rate: %.1f/s\n", total, len(sessions), float64(total)/window.Seconds())
	fmt.Println("\nBy event type:")
	for _, t := range types {
		fmt.Printf("  %-18s %d\n", t, byType[t])
	}
	return nil
}

// showTypes выводит известные типы событий и их приоритет
func showTypes() {
	fmt.Println("📋 Available event types")
	for t := game.EventTypeDamage; t <= game.EventTypeVictory; t++ {
		fmt.Printf("  %-18s priority=%d subject=%s\n", t, eventbus.Priority(t), eventbus.Subject(t.String()))
	}
}

// printEvent выводит событие в читаемом формате
func printEvent(env *eventbus.Envelope, asJSON bool) {
	ev, err := eventbus.Decode(env)
	if asJSON {
		line := map[string]interface{}{
			"id":      env.ID,
			"time":    env.Timestamp,
			"type":    env.EventType,
			"session": env.SessionID,
			"tick":    env.Tick,
			"source":  env.Source,
		}
		if err == nil {
			line["event"] = ev
		} else {
			line["error"] = err.Error()
		}
		data, _ := json.Marshal(line)
		fmt.Println(string(data))
		return
	}

	body := "<undecodable>"
	if err == nil {
		body = fmt.Sprintf("%+v", ev)
	}
	fmt.Printf("[%s] %-18s tick=%-7d session=%s %s\n",
		env.Timestamp.Local().Format(timeFormat), env.EventType, env.Tick, shortID(env.SessionID), body)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func parseStringList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
