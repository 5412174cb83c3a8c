// Package monitor runs the background task that polls the slow-changing
// board state (RTC and battery) at a fixed cadence, independently of the
// render loop. Each cycle produces one Sample, which overwrites the
// previous one and is published retained on monitor/sample.
//
// Read errors are recorded in the sample and the loop carries on; only
// Stop (or cancelling the context given to Start) ends the task.
package monitor

import (
	"context"
	"errors"
	"sync"
	"time"

	"lcdboard-go/bus"
	"lcdboard-go/drivers/battery"
	"lcdboard-go/drivers/pcf85063"
	"lcdboard-go/x/timex"
)

const DefaultInterval = 100 * time.Millisecond

var (
	TopicSample = bus.T("monitor", "sample")

	ErrAlreadyStarted = errors.New("monitor: already started")
)

// ClockReader is satisfied by *pcf85063.Device.
type ClockReader interface {
	Tick() (pcf85063.Time, error)
}

// BatteryReader is satisfied by *battery.Monitor.
type BatteryReader interface {
	Sample() (battery.Reading, error)
}

// Sample is one poll cycle.
type Sample struct {
	Seq        uint32
	At         time.Time
	Clock      pcf85063.Time
	ClockErr   error
	Battery    battery.Reading
	BatteryErr error
}

// OK reports whether both reads succeeded.
func (s Sample) OK() bool { return s.ClockErr == nil && s.BatteryErr == nil }

type Config struct {
	// Interval defaults to 100 ms.
	Interval time.Duration
	// NewTicker defaults to timex.NewTicker; tests pass a Manual factory.
	NewTicker timex.NewTickerFunc
	// Now stamps samples; defaults to time.Now.
	Now func() time.Time
	// Conn, when set, receives every sample on TopicSample (retained).
	Conn *bus.Connection
}

type Task struct {
	clock   ClockReader
	battery BatteryReader
	cfg     Config

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	done    chan struct{}
	latest  Sample
	have    bool
	count   uint32
	errs    uint32
}

func New(clock ClockReader, batt BatteryReader, cfg Config) *Task {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.NewTicker == nil {
		cfg.NewTicker = timex.NewTicker
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Task{clock: clock, battery: batt, cfg: cfg, done: make(chan struct{})}
}

// Start launches the polling goroutine. It may be called once.
func (t *Task) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.started {
		return ErrAlreadyStarted
	}
	t.started = true
	ctx, t.cancel = context.WithCancel(ctx)
	tick := t.cfg.NewTicker(t.cfg.Interval)
	go t.loop(ctx, tick)
	return nil
}

func (t *Task) loop(ctx context.Context, tick timex.Ticker) {
	defer close(t.done)
	defer tick.Stop()
	for {
		t.poll()
		select {
		case <-ctx.Done():
			return
		case <-tick.C():
		}
	}
}

func (t *Task) poll() {
	var s Sample
	s.Clock, s.ClockErr = t.clock.Tick()
	s.Battery, s.BatteryErr = t.battery.Sample()
	s.At = t.cfg.Now()

	t.mu.Lock()
	t.count++
	s.Seq = t.count
	if !s.OK() {
		t.errs++
	}
	t.latest = s
	t.have = true
	t.mu.Unlock()

	if t.cfg.Conn != nil {
		t.cfg.Conn.Publish(t.cfg.Conn.NewMessage(TopicSample, s, true))
	}
}

// Stop cancels the task and waits for the goroutine to exit. Stop before
// Start, or a second Stop, returns immediately.
func (t *Task) Stop() {
	t.mu.Lock()
	cancel, started := t.cancel, t.started
	t.mu.Unlock()
	if !started {
		return
	}
	cancel()
	<-t.done
}

// Done is closed once the polling goroutine has exited.
func (t *Task) Done() <-chan struct{} { return t.done }

// Latest returns the most recent sample, if any.
func (t *Task) Latest() (Sample, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.latest, t.have
}

// Count returns the number of completed cycles.
func (t *Task) Count() uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.count
}

// Errors returns the number of cycles in which at least one read failed.
func (t *Task) Errors() uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.errs
}

func (t *Task) Interval() time.Duration { return t.cfg.Interval }
