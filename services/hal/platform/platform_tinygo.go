//go:build tinygo

package platform

import (
	"errors"
	"machine"
	"sync"

	"lcdboard-go/services/config"
	"lcdboard-go/services/hal/i2cbus"
	"lcdboard-go/x/mathx"

	"periph.io/x/conn/v3/physic"
)

var ErrNoPWM = errors.New("platform: no backlight PWM controller")

// PWMController is the subset of a TinyGo PWM peripheral the backlight
// needs. Local interface to avoid depending on an unexported concrete type
// in machine.
type PWMController interface {
	Configure(cfg machine.PWMConfig) error
	Channel(pin machine.Pin) (uint8, error)
	Top() uint32
	Set(channel uint8, value uint32)
}

// BacklightPWM must be set by the target's board file before Open.
var BacklightPWM PWMController

// -----------------------------------------------------------------------------
// I²C
// -----------------------------------------------------------------------------

type i2cCtrl struct{ bus *machine.I2C }

func (c i2cCtrl) Configure(cfg i2cbus.Config) error {
	return c.bus.Configure(machine.I2CConfig{
		Frequency: uint32(cfg.Frequency / physic.Hertz),
		SDA:       machine.Pin(cfg.SDA),
		SCL:       machine.Pin(cfg.SCL),
	})
}

func (c i2cCtrl) Tx(addr uint16, w, r []byte) error { return c.bus.Tx(addr, w, r) }

// -----------------------------------------------------------------------------
// PWM
// -----------------------------------------------------------------------------

type pwmOut struct {
	mu   sync.Mutex
	ctrl PWMController
	ch   uint8
	max  uint32 // logical full scale (2^res-1)
	top  uint32 // hardware full scale
}

func (p *pwmOut) Attach(pin int, freq physic.Frequency, resolution uint8) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ctrl == nil {
		return ErrNoPWM
	}
	if freq <= 0 {
		return errors.New("platform: invalid pwm frequency")
	}
	if err := p.ctrl.Configure(machine.PWMConfig{Period: uint64(freq.Period())}); err != nil {
		return err
	}
	ch, err := p.ctrl.Channel(machine.Pin(pin))
	if err != nil {
		return err
	}
	p.ch = ch
	p.max = uint32(1)<<mathx.Min(resolution, 16) - 1
	p.top = p.ctrl.Top()
	return nil
}

func (p *pwmOut) Set(duty uint32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ctrl == nil || p.max == 0 {
		return
	}
	p.ctrl.Set(p.ch, mathx.ScaleRound(duty, p.max, p.top))
}

// -----------------------------------------------------------------------------
// ADC
// -----------------------------------------------------------------------------

type adcIn struct{ a machine.ADC }

func (a *adcIn) Configure() error {
	machine.InitADC()
	return a.a.Configure(machine.ADCConfig{})
}

func (a *adcIn) Get() uint16 { return a.a.Get() }

// Open binds I2C0, BacklightPWM and the battery ADC pin from b.
func Open(b config.Board) (*Resources, error) {
	if BacklightPWM == nil {
		return nil, ErrNoPWM
	}
	return &Resources{
		I2C:        i2cCtrl{bus: machine.I2C0},
		Backlight:  &pwmOut{ctrl: BacklightPWM},
		Battery:    &adcIn{a: machine.ADC{Pin: machine.Pin(b.Battery.Pin)}},
		Display:    external{"display"},
		Storage:    external{"storage"},
		Audio:      external{"audio"},
		Microphone: external{"microphone"},
		Graphics:   panel{b.Display.Width, b.Display.Height},
	}, nil
}
