// Package heartbeat publishes a liveness beat on the bus. Its period
// follows the retained config/heartbeat section.
package heartbeat

import (
	"context"
	"time"

	"lcdboard-go/bus"
)

var (
	topicConfigHeartbeat = bus.T("config", "heartbeat")
	TopicBeat            = bus.T("heartbeat")
)

const DefaultInterval = time.Second

// Beat is one heartbeat.
type Beat struct {
	Seq    uint32
	Uptime time.Duration
}

type Service struct {
	// Interval is used until a config message says otherwise.
	Interval time.Duration
}

func (s *Service) serviceLoop(ctx context.Context, conn *bus.Connection, done chan<- struct{}) {
	defer close(done)
	cfgSub := conn.Subscribe(topicConfigHeartbeat)
	defer conn.Unsubscribe(cfgSub)

	iv := s.Interval
	if iv <= 0 {
		iv = DefaultInterval
	}
	tick := time.NewTicker(iv)
	defer tick.Stop()

	start := time.Now()
	var seq uint32
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-tick.C:
			seq++
			conn.Publish(conn.NewMessage(TopicBeat, Beat{Seq: seq, Uptime: t.Sub(start)}, false))
		case msg := <-cfgSub.Channel():
			if d, ok := intervalOf(msg.Payload); ok {
				tick.Reset(d)
			}
		}
	}
}

// intervalOf accepts the decoded config section ({"interval_ms": n}).
func intervalOf(p any) (time.Duration, bool) {
	m, ok := p.(map[string]any)
	if !ok {
		return 0, false
	}
	v, ok := m["interval_ms"].(float64)
	if !ok || v <= 0 {
		return 0, false
	}
	return time.Duration(v) * time.Millisecond, true
}

// Start the heartbeat service. The returned channel is closed once the
// loop has exited after ctx is cancelled.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) <-chan struct{} {
	done := make(chan struct{})
	go s.serviceLoop(ctx, conn, done)
	return done
}
