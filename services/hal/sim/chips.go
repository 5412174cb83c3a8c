package sim

import (
	"sync"
	"time"
)

// ----------------------------- TCA9554 ---------------------------------------

// Expander models a TCA9554: four one-byte registers selected by the first
// written byte, no auto-increment. The input register reflects output
// latches on output pins and External on input pins.
type Expander struct {
	mu       sync.Mutex
	ptr      uint8
	output   uint8
	polarity uint8
	config   uint8
	External uint8 // levels driven onto input pins from outside
}

// NewExpander returns an expander in its power-on state (all inputs,
// output latches high).
func NewExpander() *Expander {
	return &Expander{output: 0xFF, config: 0xFF}
}

func (e *Expander) Tx(w, r []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(w) > 0 {
		e.ptr = w[0] & 0x03
		for _, v := range w[1:] {
			e.write(e.ptr, v)
		}
	}
	for i := range r {
		r[i] = e.read(e.ptr)
	}
	return nil
}

func (e *Expander) write(reg, v uint8) {
	switch reg {
	case 0x01:
		e.output = v
	case 0x02:
		e.polarity = v
	case 0x03:
		e.config = v
	}
}

func (e *Expander) read(reg uint8) uint8 {
	switch reg {
	case 0x00:
		lv := (e.output &^ e.config) | (e.External & e.config)
		return lv ^ e.polarity
	case 0x01:
		return e.output
	case 0x02:
		return e.polarity
	default:
		return e.config
	}
}

// Registers returns (output, config).
func (e *Expander) Registers() (output, config uint8) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.output, e.config
}

// SetOutput preloads the output latch, e.g. to model a warm reset.
func (e *Expander) SetOutput(v uint8) {
	e.mu.Lock()
	e.output = v
	e.mu.Unlock()
}

// SetExternal sets the levels seen on pins configured as inputs.
func (e *Expander) SetExternal(v uint8) {
	e.mu.Lock()
	e.External = v
	e.mu.Unlock()
}

// ----------------------------- PCF85063 --------------------------------------

// RTC models a PCF85063 register file (0x00..0x0A, auto-incrementing
// pointer, BCD time registers). Time does not advance on its own; tests
// move it with Set.
type RTC struct {
	mu   sync.Mutex
	ptr  uint8
	regs [0x0B]byte
}

// NewRTC returns a clock that reports t. The oscillator-stop flag is set,
// as after a cold power-up.
func NewRTC(t time.Time) *RTC {
	c := &RTC{}
	c.Set(t)
	c.regs[0x04] |= 0x80
	return c
}

func (c *RTC) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.regs[0x04] = bcd(t.Second())
	c.regs[0x05] = bcd(t.Minute())
	c.regs[0x06] = bcd(t.Hour())
	c.regs[0x07] = bcd(t.Day())
	c.regs[0x08] = byte(t.Weekday())
	c.regs[0x09] = bcd(int(t.Month()))
	c.regs[0x0A] = bcd(t.Year() % 100)
}

func (c *RTC) Tx(w, r []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(w) > 0 {
		c.ptr = w[0]
		for _, v := range w[1:] {
			if int(c.ptr) < len(c.regs) {
				c.regs[c.ptr] = v
			}
			c.ptr++
		}
	}
	for i := range r {
		if int(c.ptr) < len(c.regs) {
			r[i] = c.regs[c.ptr]
		} else {
			r[i] = 0
		}
		c.ptr++
	}
	return nil
}

// Reg returns one raw register.
func (c *RTC) Reg(i int) byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.regs[i]
}

func bcd(v int) byte { return byte(v/10<<4 | v%10) }
