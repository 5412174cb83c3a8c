package sim

import (
	"sync"

	"periph.io/x/conn/v3/physic"
)

// ----------------------------- PWM -------------------------------------------

// PWM records every attach and duty write.
type PWM struct {
	mu         sync.Mutex
	Pin        int
	Freq       physic.Frequency
	Resolution uint8
	Attaches   int
	Duties     []uint32
	AttachErr  error
}

func (p *PWM) Attach(pin int, freq physic.Frequency, resolution uint8) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Attaches++
	if p.AttachErr != nil {
		return p.AttachErr
	}
	p.Pin, p.Freq, p.Resolution = pin, freq, resolution
	return nil
}

func (p *PWM) Set(duty uint32) {
	p.mu.Lock()
	p.Duties = append(p.Duties, duty)
	p.mu.Unlock()
}

// Last returns the most recent duty and whether any was written.
func (p *PWM) Last() (uint32, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.Duties) == 0 {
		return 0, false
	}
	return p.Duties[len(p.Duties)-1], true
}

// ----------------------------- ADC -------------------------------------------

// ADC returns a settable 16-bit sample.
type ADC struct {
	mu           sync.Mutex
	raw          uint16
	Configured   bool
	ConfigureErr error
	Reads        int
}

func (a *ADC) Configure() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.ConfigureErr != nil {
		return a.ConfigureErr
	}
	a.Configured = true
	return nil
}

func (a *ADC) Get() uint16 {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Reads++
	return a.raw
}

func (a *ADC) SetRaw(v uint16) {
	a.mu.Lock()
	a.raw = v
	a.mu.Unlock()
}

// SetPin sets the raw value that corresponds to v at the ADC pin for a
// given reference.
func (a *ADC) SetPin(v, ref physic.ElectricPotential) {
	if ref <= 0 {
		return
	}
	raw := int64(v) * 0xFFFF / int64(ref)
	if raw > 0xFFFF {
		raw = 0xFFFF
	}
	if raw < 0 {
		raw = 0
	}
	a.SetRaw(uint16(raw))
}
