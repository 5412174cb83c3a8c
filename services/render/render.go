// Package render drives the graphics library's periodic handler once the
// board is running.
package render

import (
	"context"
	"time"

	"lcdboard-go/x/timex"
)

const DefaultInterval = 10 * time.Millisecond

// Advancer is the graphics tick (timer handler plus redraw).
type Advancer interface {
	Advance()
}

type Config struct {
	// Interval defaults to 10 ms.
	Interval  time.Duration
	NewTicker timex.NewTickerFunc
}

type Loop struct {
	g     Advancer
	cfg   Config
	ticks uint64
}

func New(g Advancer, cfg Config) *Loop {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.NewTicker == nil {
		cfg.NewTicker = timex.NewTicker
	}
	return &Loop{g: g, cfg: cfg}
}

// Run calls Advance once per interval on the calling goroutine until ctx
// is done, then returns ctx.Err(). The loop does not touch the I²C bus.
func (l *Loop) Run(ctx context.Context) error {
	tick := l.cfg.NewTicker(l.cfg.Interval)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick.C():
			l.g.Advance()
			l.ticks++
		}
	}
}

// Ticks reports the number of Advance calls made by Run. Only meaningful
// after Run has returned.
func (l *Loop) Ticks() uint64 { return l.ticks }

func (l *Loop) Interval() time.Duration { return l.cfg.Interval }
