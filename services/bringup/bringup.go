// Package bringup sequences board initialisation. Stages advance strictly
// in order and never move backwards; the first failing step halts
// bring-up and is returned to the caller as a *StageError. There is no
// partial recovery: a missing peripheral on this board is only fixed by a
// reset.
//
//	Uninit → BusReady → ExpanderReady → PanelResetAsserted →
//	PanelResetReleased → PeripheralsReady → MonitorTaskStarted →
//	DisplayReady → StorageReady → AudioReady → GraphicsReady → Running
package bringup

import (
	"context"
	"errors"
	"sync"
	"time"

	"lcdboard-go/bus"
	"lcdboard-go/drivers/backlight"
	"lcdboard-go/drivers/pcf85063"
	"lcdboard-go/drivers/tca9554"
	"lcdboard-go/errcode"
	"lcdboard-go/services/render"
	"lcdboard-go/x/conv"
)

// Stage is one step of the bring-up state machine.
type Stage uint8

const (
	Uninit Stage = iota
	BusReady
	ExpanderReady
	PanelResetAsserted
	PanelResetReleased
	PeripheralsReady
	MonitorTaskStarted
	DisplayReady
	StorageReady
	AudioReady
	GraphicsReady
	Running
)

var stageNames = [...]string{
	Uninit:             "uninit",
	BusReady:           "bus_ready",
	ExpanderReady:      "expander_ready",
	PanelResetAsserted: "panel_reset_asserted",
	PanelResetReleased: "panel_reset_released",
	PeripheralsReady:   "peripherals_ready",
	MonitorTaskStarted: "monitor_task_started",
	DisplayReady:       "display_ready",
	StorageReady:       "storage_ready",
	AudioReady:         "audio_ready",
	GraphicsReady:      "graphics_ready",
	Running:            "running",
}

func (s Stage) String() string {
	if int(s) < len(stageNames) {
		return stageNames[s]
	}
	return "stage(" + conv.Istr(int(s)) + ")"
}

// Record lists completed stages in the order they were entered.
type Record []Stage

func (r Record) Has(s Stage) bool {
	for _, x := range r {
		if x == s {
			return true
		}
	}
	return false
}

// Last returns the most recently entered stage, or Uninit.
func (r Record) Last() Stage {
	if len(r) == 0 {
		return Uninit
	}
	return r[len(r)-1]
}

// TopicStage carries a retained StageEvent for every transition.
var TopicStage = bus.T("bringup", "stage")

// StageEvent is published on TopicStage.
type StageEvent struct {
	Stage Stage
	// Failed is set when the step leading out of Stage failed; Err holds
	// the cause.
	Failed bool
	Err    error
}

var (
	ErrAlreadyRun = errors.New("bringup: already run")
	ErrMissingDep = errors.New("bringup: missing dependency")
)

// StageError reports the step that failed. Stage is the last stage that
// completed; Next is the one that was being entered.
type StageError struct {
	Stage Stage
	Next  Stage
	Err   error
}

func (e *StageError) Error() string {
	return "bringup: " + e.Next.String() + " failed: " + e.Err.Error()
}

func (e *StageError) Unwrap() error { return e.Err }

// Code is the bus code of the cause when it carries one, otherwise
// peripheral_init.
func (e *StageError) Code() errcode.Code {
	switch c := errcode.Of(e.Err); c {
	case errcode.BusInit, errcode.BusTx, errcode.InvalidParams:
		return c
	}
	return errcode.PeripheralInit
}

// Collaborator contracts. The chip drivers in this module satisfy the
// first five directly.
type (
	BusInitializer interface{ Init() error }

	Expander interface {
		Configure(cfg tca9554.Config) error
		SetPin(pin tca9554.Pin, level tca9554.Level) error
	}

	Backlight interface{ Init(cfg backlight.Config) error }

	Clock interface{ Configure(cfg pcf85063.Config) error }

	Battery interface{ Init() error }

	// MonitorStarter is satisfied by *monitor.Task.
	MonitorStarter interface {
		Start(ctx context.Context) error
		Stop()
	}

	// Initer is an externally owned subsystem that succeeds or fails as a
	// whole.
	Initer interface{ Init(ctx context.Context) error }

	// Graphics returns an opaque handle from Init; Advance is its periodic
	// handler.
	Graphics interface {
		Init(ctx context.Context) (any, error)
		render.Advancer
	}
)

// Deps are the components brought up, in bring-up order.
type Deps struct {
	Bus        BusInitializer
	Expander   Expander
	Backlight  Backlight
	Clock      Clock
	Battery    Battery
	Monitor    MonitorStarter
	Display    Initer
	Storage    Initer
	Audio      Initer
	Microphone Initer
	Graphics   Graphics

	// Conn, when set, receives a retained StageEvent per transition.
	Conn *bus.Connection
	// Sleep waits for d or until ctx is done. Defaults to a timer wait.
	Sleep func(ctx context.Context, d time.Duration) error
}

const (
	DefaultResetHold   = 10 * time.Millisecond
	DefaultResetSettle = 120 * time.Millisecond
)

type Config struct {
	Expander tca9554.Config
	// ResetPin is the expander line wired to the panel reset; nil selects
	// tca9554.PinPanelReset. Every pin, including 0, is selectable.
	ResetPin *tca9554.Pin
	// ResetHold is the time the reset line is held low.
	ResetHold time.Duration
	// ResetSettle is the wait after release before the panel accepts
	// commands.
	ResetSettle time.Duration
	Backlight   backlight.Config
	Clock       pcf85063.Config
	Render      render.Config
}

type Orchestrator struct {
	cfg      Config
	deps     Deps
	resetPin tca9554.Pin

	mu     sync.Mutex
	ran    bool
	stage  Stage
	record Record
}

func New(cfg Config, deps Deps) *Orchestrator {
	if cfg.ResetHold <= 0 {
		cfg.ResetHold = DefaultResetHold
	}
	if cfg.ResetSettle <= 0 {
		cfg.ResetSettle = DefaultResetSettle
	}
	if deps.Sleep == nil {
		deps.Sleep = sleep
	}
	o := &Orchestrator{cfg: cfg, deps: deps, resetPin: tca9554.PinPanelReset}
	if cfg.ResetPin != nil {
		o.resetPin = *cfg.ResetPin
	}
	return o
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

type step struct {
	to  Stage
	run func(ctx context.Context) error
}

func (o *Orchestrator) steps(handle *any) []step {
	d := o.deps
	return []step{
		{BusReady, func(context.Context) error { return d.Bus.Init() }},
		{ExpanderReady, func(context.Context) error { return d.Expander.Configure(o.cfg.Expander) }},
		{PanelResetAsserted, func(ctx context.Context) error {
			if err := d.Expander.SetPin(o.resetPin, tca9554.Low); err != nil {
				return err
			}
			return d.Sleep(ctx, o.cfg.ResetHold)
		}},
		{PanelResetReleased, func(ctx context.Context) error {
			if err := d.Expander.SetPin(o.resetPin, tca9554.High); err != nil {
				return err
			}
			return d.Sleep(ctx, o.cfg.ResetSettle)
		}},
		{PeripheralsReady, func(context.Context) error {
			if err := d.Backlight.Init(o.cfg.Backlight); err != nil {
				return &errcode.E{C: errcode.PeripheralInit, Op: "init", Msg: "backlight", Err: err}
			}
			if err := d.Clock.Configure(o.cfg.Clock); err != nil {
				return err
			}
			if err := d.Battery.Init(); err != nil {
				return &errcode.E{C: errcode.PeripheralInit, Op: "init", Msg: "battery", Err: err}
			}
			return nil
		}},
		{MonitorTaskStarted, func(ctx context.Context) error { return d.Monitor.Start(ctx) }},
		{DisplayReady, initer("display", d.Display)},
		{StorageReady, initer("storage", d.Storage)},
		{AudioReady, func(ctx context.Context) error {
			if err := initer("audio", d.Audio)(ctx); err != nil {
				return err
			}
			return initer("microphone", d.Microphone)(ctx)
		}},
		{GraphicsReady, func(ctx context.Context) error {
			h, err := d.Graphics.Init(ctx)
			if err != nil {
				return &errcode.E{C: errcode.PeripheralInit, Op: "init", Msg: "graphics", Err: err}
			}
			*handle = h
			return nil
		}},
	}
}

func initer(name string, i Initer) func(context.Context) error {
	return func(ctx context.Context) error {
		if err := i.Init(ctx); err != nil {
			return &errcode.E{C: errcode.PeripheralInit, Op: "init", Msg: name, Err: err}
		}
		return nil
	}
}

func (o *Orchestrator) validate() error {
	d := o.deps
	missing := ""
	switch {
	case d.Bus == nil:
		missing = "bus"
	case d.Expander == nil:
		missing = "expander"
	case d.Backlight == nil:
		missing = "backlight"
	case d.Clock == nil:
		missing = "clock"
	case d.Battery == nil:
		missing = "battery"
	case d.Monitor == nil:
		missing = "monitor"
	case d.Display == nil:
		missing = "display"
	case d.Storage == nil:
		missing = "storage"
	case d.Audio == nil:
		missing = "audio"
	case d.Microphone == nil:
		missing = "microphone"
	case d.Graphics == nil:
		missing = "graphics"
	}
	if missing != "" {
		return &errcode.E{C: errcode.InvalidParams, Op: "validate", Msg: missing, Err: ErrMissingDep}
	}
	return nil
}

// Run performs bring-up once. ctx bounds bring-up and is also the parent
// of the monitor task, so cancelling it later stops the monitor. On
// success the returned Board is in the Running stage. On failure the
// monitor, if it was started, is stopped before Run returns.
func (o *Orchestrator) Run(ctx context.Context) (*Board, error) {
	o.mu.Lock()
	if o.ran {
		o.mu.Unlock()
		return nil, ErrAlreadyRun
	}
	o.ran = true
	o.mu.Unlock()

	if err := o.validate(); err != nil {
		o.fail(Uninit, err)
		return nil, &StageError{Stage: Uninit, Next: BusReady, Err: err}
	}

	var handle any
	for _, s := range o.steps(&handle) {
		err := ctx.Err()
		if err == nil {
			err = s.run(ctx)
		}
		if err != nil {
			from := o.Stage()
			if from >= MonitorTaskStarted {
				o.deps.Monitor.Stop()
			}
			o.fail(from, err)
			return nil, &StageError{Stage: from, Next: s.to, Err: err}
		}
		o.enter(s.to)
	}
	o.enter(Running)

	return &Board{
		Handle:  handle,
		monitor: o.deps.Monitor,
		loop:    render.New(o.deps.Graphics, o.cfg.Render),
	}, nil
}

func (o *Orchestrator) enter(s Stage) {
	o.mu.Lock()
	o.stage = s
	o.record = append(o.record, s)
	o.mu.Unlock()
	o.publish(StageEvent{Stage: s})
}

func (o *Orchestrator) fail(at Stage, err error) {
	o.publish(StageEvent{Stage: at, Failed: true, Err: err})
}

func (o *Orchestrator) publish(ev StageEvent) {
	if c := o.deps.Conn; c != nil {
		c.Publish(c.NewMessage(TopicStage, ev, true))
	}
}

// Stage returns the last stage entered.
func (o *Orchestrator) Stage() Stage {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.stage
}

// Record returns a copy of the completed stages.
func (o *Orchestrator) Record() Record {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append(Record(nil), o.record...)
}

// Board is the running system handed over by a successful Run.
type Board struct {
	// Handle is what Graphics.Init returned.
	Handle any

	monitor  MonitorStarter
	loop     *render.Loop
	stopOnce sync.Once
}

// Loop enters the render loop on the calling goroutine. It returns only
// when ctx is done, with ctx.Err().
func (b *Board) Loop(ctx context.Context) error {
	return b.loop.Run(ctx)
}

// RenderLoop exposes the loop driven by Loop.
func (b *Board) RenderLoop() *render.Loop { return b.loop }

// Stop shuts the monitor task down and waits for it to exit.
func (b *Board) Stop() {
	b.stopOnce.Do(b.monitor.Stop)
}
