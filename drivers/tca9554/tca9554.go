// Package tca9554 provides a driver for the TCA9554(PWR) 8-bit I²C GPIO
// expander. On this board it gates the LCD panel reset line (EXIO2).
//
// Every output change is a read-modify-write of the output register, so
// setting one pin never disturbs the others:
//
//	d.SetPin(tca9554.PinPanelReset, tca9554.Low)  // [0x01, out&^0x04]
//	d.SetPin(tca9554.PinPanelReset, tca9554.High) // [0x01, out|0x04]
package tca9554

import (
	"errors"
	"sync"

	"tinygo.org/x/drivers"
)

// I2C address (A2..A0 tied low).
const Address = 0x20

// Register map.
const (
	regInput    = 0x00
	regOutput   = 0x01
	regPolarity = 0x02
	regConfig   = 0x03
)

// Direction bits in the configuration register: 0 = output, 1 = input.
const (
	AllOutputs uint8 = 0x00
	AllInputs  uint8 = 0xFF
)

// Pin is a bit position 0..7 of the port.
type Pin uint8

// Named pins on this board.
const (
	PinEXIO1      Pin = 1
	PinPanelReset Pin = 2 // EXIO2, active low
)

type Level bool

const (
	Low  Level = false
	High Level = true
)

var (
	ErrNotConfigured = errors.New("tca9554: not configured")
	ErrInvalidPin    = errors.New("tca9554: invalid pin")
)

// Config selects the device address and pin directions.
type Config struct {
	// Address defaults to 0x20 if zero.
	Address uint16
	// Direction is written verbatim to the configuration register.
	Direction uint8
}

// Device wraps an I2C connection to a TCA9554.
type Device struct {
	bus  drivers.I2C
	addr uint16

	mu         sync.Mutex // spans each read-modify-write
	configured bool
	dir        uint8
	w          [2]byte
	r          [1]byte
}

// New creates a Device. The I2C bus must already be initialised before
// Configure is called; New itself does not touch the device.
func New(bus drivers.I2C) *Device {
	return &Device{bus: bus, addr: Address}
}

// Configure writes the direction mask in one transaction. It must run
// before SetPin or ReadPin.
func (d *Device) Configure(cfg Config) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if cfg.Address != 0 {
		d.addr = cfg.Address
	}
	if err := d.writeReg(regConfig, cfg.Direction); err != nil {
		return err
	}
	d.dir = cfg.Direction
	d.configured = true
	return nil
}

// Direction returns the mask last written by Configure.
func (d *Device) Direction() uint8 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dir
}

// SetPin drives one output pin, preserving every other bit of the output
// register.
func (d *Device) SetPin(pin Pin, level Level) error {
	if pin > 7 {
		return ErrInvalidPin
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.configured {
		return ErrNotConfigured
	}
	cur, err := d.readReg(regOutput)
	if err != nil {
		return err
	}
	next := cur &^ (1 << pin)
	if level {
		next |= 1 << pin
	}
	return d.writeReg(regOutput, next)
}

// ReadPin samples the input register and returns the level of pin.
func (d *Device) ReadPin(pin Pin) (Level, error) {
	if pin > 7 {
		return Low, ErrInvalidPin
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.configured {
		return Low, ErrNotConfigured
	}
	v, err := d.readReg(regInput)
	if err != nil {
		return Low, err
	}
	return Level(v&(1<<pin) != 0), nil
}

// Output returns the current output latch byte.
func (d *Device) Output() (uint8, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.configured {
		return 0, ErrNotConfigured
	}
	return d.readReg(regOutput)
}

// SetAll writes the whole output latch at once.
func (d *Device) SetAll(v uint8) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.configured {
		return ErrNotConfigured
	}
	return d.writeReg(regOutput, v)
}

// SetPolarity writes the input polarity-inversion mask.
func (d *Device) SetPolarity(mask uint8) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.configured {
		return ErrNotConfigured
	}
	return d.writeReg(regPolarity, mask)
}

// caller holds d.mu
func (d *Device) readReg(reg byte) (uint8, error) {
	d.w[0] = reg
	if err := d.bus.Tx(d.addr, d.w[:1], d.r[:]); err != nil {
		return 0, err
	}
	return d.r[0], nil
}

// caller holds d.mu
func (d *Device) writeReg(reg, v byte) error {
	d.w[0] = reg
	d.w[1] = v
	return d.bus.Tx(d.addr, d.w[:2], nil)
}
