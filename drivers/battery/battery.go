// Package battery samples the cell voltage through an ADC pin behind a
// resistive divider. It never touches the I²C bus.
package battery

import (
	"errors"

	"lcdboard-go/x/mathx"

	"periph.io/x/conn/v3/physic"
)

// ADC is one analog input channel.
type ADC interface {
	Configure() error
	// Get returns a sample scaled to 16 bits regardless of the native
	// converter resolution.
	Get() uint16
}

// Board defaults (single Li-ion cell, 1:3 divider, 3.3 V reference).
const (
	DefaultReference = 3300 * physic.MilliVolt
	DefaultDivider   = 3.0
	DefaultEmpty     = 3000 * physic.MilliVolt
	DefaultFull      = 4200 * physic.MilliVolt
)

var ErrNotInitialised = errors.New("battery: not initialised")

// Config holds the analog front-end parameters. Zero fields take defaults.
type Config struct {
	Reference physic.ElectricPotential
	// Divider is the ratio cell voltage / pin voltage, including any
	// calibration trim.
	Divider float64
	Empty   physic.ElectricPotential // reported as 0%
	Full    physic.ElectricPotential // reported as 100%
}

// Reading is one sample.
type Reading struct {
	Raw     uint16
	Voltage physic.ElectricPotential
	Percent int
}

type Monitor struct {
	adc   ADC
	cfg   Config
	ready bool
}

func New(adc ADC, cfg Config) *Monitor {
	if cfg.Reference <= 0 {
		cfg.Reference = DefaultReference
	}
	if cfg.Divider <= 0 {
		cfg.Divider = DefaultDivider
	}
	if cfg.Empty <= 0 {
		cfg.Empty = DefaultEmpty
	}
	if cfg.Full <= cfg.Empty {
		cfg.Full = mathx.Max(DefaultFull, cfg.Empty+physic.MilliVolt)
	}
	return &Monitor{adc: adc, cfg: cfg}
}

// Init configures the ADC channel.
func (m *Monitor) Init() error {
	if err := m.adc.Configure(); err != nil {
		return err
	}
	m.ready = true
	return nil
}

// Sample reads the ADC once. Nothing is cached between calls.
func (m *Monitor) Sample() (Reading, error) {
	if !m.ready {
		return Reading{}, ErrNotInitialised
	}
	raw := m.adc.Get()
	pin := physic.ElectricPotential(int64(raw) * int64(m.cfg.Reference) / 0xFFFF)
	v := physic.ElectricPotential(float64(pin) * m.cfg.Divider)
	return Reading{Raw: raw, Voltage: v, Percent: m.percent(v)}, nil
}

func (m *Monitor) percent(v physic.ElectricPotential) int {
	mv := func(p physic.ElectricPotential) uint16 {
		return uint16(mathx.Clamp(int64(p/physic.MilliVolt), 0, 0xFFFF))
	}
	return int(mathx.MapU16(mv(v), mv(m.cfg.Empty), mv(m.cfg.Full), 0, 100))
}

func (m *Monitor) Config() Config { return m.cfg }
