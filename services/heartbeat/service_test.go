package heartbeat

import (
	"context"
	"testing"
	"time"

	"lcdboard-go/bus"
)

func TestBeatsAndStops(t *testing.T) {
	b := bus.NewBus(16)
	sub := b.NewConnection("ui").Subscribe(TopicBeat)

	ctx, cancel := context.WithCancel(context.Background())
	done := (&Service{Interval: 5 * time.Millisecond}).Start(ctx, b.NewConnection("heartbeat"))

	var last Beat
	for i := 0; i < 3; i++ {
		select {
		case m := <-sub.Channel():
			last = m.Payload.(Beat)
		case <-time.After(time.Second):
			t.Fatal("no beat")
		}
	}
	if last.Seq < 3 || last.Uptime <= 0 {
		t.Fatalf("last beat = %+v", last)
	}
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("service did not stop")
	}
}

func TestIntervalFromConfig(t *testing.T) {
	b := bus.NewBus(16)
	cfg := b.NewConnection("config")
	cfg.Publish(cfg.NewMessage(topicConfigHeartbeat, map[string]any{"interval_ms": float64(5)}, true))

	sub := b.NewConnection("ui").Subscribe(TopicBeat)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	(&Service{Interval: time.Hour}).Start(ctx, b.NewConnection("heartbeat"))

	select {
	case <-sub.Channel():
	case <-time.After(time.Second):
		t.Fatal("config interval not applied")
	}
}

func TestIntervalOf(t *testing.T) {
	if d, ok := intervalOf(map[string]any{"interval_ms": float64(250)}); !ok || d != 250*time.Millisecond {
		t.Fatalf("got %v %v", d, ok)
	}
	for _, p := range []any{nil, "x", map[string]any{"interval_ms": "1"}, map[string]any{"interval_ms": float64(0)}} {
		if _, ok := intervalOf(p); ok {
			t.Fatalf("accepted %#v", p)
		}
	}
}
