//go:build !tinygo

package platform

import (
	"time"

	"lcdboard-go/services/config"
	"lcdboard-go/services/hal/sim"

	"periph.io/x/conn/v3/physic"
)

// Open returns a simulated board: an expander and an RTC on the bus, a
// recording PWM line and an ADC reading a 3.9 V cell.
func Open(b config.Board) (*Resources, error) {
	hw := sim.NewBus()
	hw.Attach(b.Expander.Address, sim.NewExpander())
	hw.Attach(b.Clock.Address, sim.NewRTC(time.Now()))

	adc := &sim.ADC{}
	div := b.Battery.Divider
	if div <= 0 {
		div = 3
	}
	adc.SetPin(physic.ElectricPotential(float64(3900*physic.MilliVolt)/div), physic.ElectricPotential(b.Battery.ReferenceMv)*physic.MilliVolt)

	return &Resources{
		I2C:        hw,
		Backlight:  &sim.PWM{},
		Battery:    adc,
		Display:    external{"display"},
		Storage:    external{"storage"},
		Audio:      external{"audio"},
		Microphone: external{"microphone"},
		Graphics:   panel{b.Display.Width, b.Display.Height},
	}, nil
}
