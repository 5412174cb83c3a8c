// Package timex holds the cadence primitives shared by the background
// monitor and the render loop. A Ticker can be swapped for a Manual one in
// tests so loops advance one cycle per Fire.
package timex

import (
	"sync"
	"time"
)

// Ticker delivers cadence ticks until stopped.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// NewTickerFunc builds a Ticker for a period.
type NewTickerFunc func(d time.Duration) Ticker

type stdTicker struct{ t *time.Ticker }

func (s stdTicker) C() <-chan time.Time { return s.t.C }
func (s stdTicker) Stop()               { s.t.Stop() }

// NewTicker wraps time.NewTicker. d <= 0 is coerced to 1ms.
func NewTicker(d time.Duration) Ticker {
	if d <= 0 {
		d = time.Millisecond
	}
	return stdTicker{t: time.NewTicker(d)}
}

// Manual is a Ticker driven by the caller. Fire blocks until the loop
// consuming C has received the tick, so one Fire equals one loop cycle.
type Manual struct {
	ch chan time.Time

	mu      sync.Mutex
	periods []time.Duration
	stopped bool
}

func NewManual() *Manual {
	return &Manual{ch: make(chan time.Time)}
}

// Factory returns a NewTickerFunc that hands out m and records the period.
func (m *Manual) Factory() NewTickerFunc {
	return func(d time.Duration) Ticker {
		m.mu.Lock()
		m.periods = append(m.periods, d)
		m.mu.Unlock()
		return m
	}
}

func (m *Manual) C() <-chan time.Time { return m.ch }

func (m *Manual) Stop() {
	m.mu.Lock()
	m.stopped = true
	m.mu.Unlock()
}

// Fire delivers one tick.
func (m *Manual) Fire(t time.Time) { m.ch <- t }

// Periods reports every period requested through Factory.
func (m *Manual) Periods() []time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]time.Duration(nil), m.periods...)
}

// Stopped reports whether the consumer released the ticker.
func (m *Manual) Stopped() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopped
}
