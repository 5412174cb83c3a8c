// Package backlight drives the LCD backlight from one PWM output.
// Brightness is a percentage mapped linearly onto the duty range
// [0, 2^bits-1]; out-of-range requests are clamped, never rejected.
package backlight

import (
	"errors"
	"sync"

	"lcdboard-go/x/mathx"

	"periph.io/x/conn/v3/physic"
)

// PWM is one PWM-capable output line.
type PWM interface {
	// Attach binds the PWM peripheral to pin at freq with the given
	// duty resolution.
	Attach(pin int, freq physic.Frequency, resolution uint8) error
	// Set applies a duty value in [0, 2^resolution-1] immediately.
	Set(duty uint32)
}

// Board defaults.
const (
	DefaultPin         = 5
	DefaultFrequency   = 20 * physic.KiloHertz
	DefaultResolution  = 10
	DefaultInitialDuty = 500 // at DefaultResolution; scaled for others
)

var ErrAlreadyInitialised = errors.New("backlight: already initialised")

// Config is applied once by Init. Zero fields take the board defaults.
type Config struct {
	Pin        int
	Frequency  physic.Frequency
	Resolution uint8 // 1..16 bits
	// InitialDuty is in [0, 2^Resolution-1]. Zero selects the board's
	// half-brightness level rescaled to Resolution (500 at 10 bits, 125
	// at 8). To start dark, call SetBrightness(0) after Init.
	InitialDuty uint32
}

// DefaultDuty is the initial duty Init applies at resolution bits when
// Config.InitialDuty is zero.
func DefaultDuty(resolution uint8) uint32 {
	if resolution == DefaultResolution {
		return DefaultInitialDuty
	}
	resolution = mathx.Clamp(resolution, 1, 16)
	// never 0, which would read as "off" at 1 bit
	return mathx.Max(mathx.ScaleRound(DefaultInitialDuty, 1<<DefaultResolution-1, 1<<resolution-1), 1)
}

type Driver struct {
	pwm PWM

	mu    sync.Mutex
	ready bool
	cfg   Config
	max   uint32
	duty  uint32
}

func New(pwm PWM) *Driver {
	return &Driver{pwm: pwm}
}

// Init attaches the PWM line and applies the initial duty. It may be called
// once per process.
func (d *Driver) Init(cfg Config) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.ready {
		return ErrAlreadyInitialised
	}
	if cfg.Pin == 0 {
		cfg.Pin = DefaultPin
	}
	if cfg.Frequency <= 0 {
		cfg.Frequency = DefaultFrequency
	}
	if cfg.Resolution == 0 {
		cfg.Resolution = DefaultResolution
	}
	cfg.Resolution = mathx.Min(cfg.Resolution, 16)
	if cfg.InitialDuty == 0 {
		cfg.InitialDuty = DefaultDuty(cfg.Resolution)
	}
	if err := d.pwm.Attach(cfg.Pin, cfg.Frequency, cfg.Resolution); err != nil {
		return err
	}
	d.cfg = cfg
	d.max = 1<<cfg.Resolution - 1
	d.ready = true
	d.apply(cfg.InitialDuty)
	return nil
}

// SetBrightness sets the backlight to percent (clamped to 0..100).
// Before Init it does nothing.
func (d *Driver) SetBrightness(percent int) {
	p := mathx.Clamp(percent, 0, 100)
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.ready {
		return
	}
	d.apply(mathx.ScaleRound(uint32(p), 100, d.max))
}

// caller holds d.mu
func (d *Driver) apply(duty uint32) {
	d.duty = mathx.Min(duty, d.max)
	d.pwm.Set(d.duty)
}

// Duty returns the last applied duty value.
func (d *Driver) Duty() uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.duty
}

// MaxDuty returns 2^resolution-1, or 0 before Init.
func (d *Driver) MaxDuty() uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.max
}

// Percent returns the current duty as a rounded percentage.
func (d *Driver) Percent() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int(mathx.ScaleRound(d.duty, d.max, 100))
}

func (d *Driver) Config() Config {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cfg
}
