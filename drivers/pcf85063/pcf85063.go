// Package pcf85063 provides a driver for the PCF85063 real-time clock.
//
// Tick reads the seven time registers in one burst (the chip auto-increments
// its register pointer), so the fields are mutually consistent:
//
//	t, err := d.Tick()
//	now := t.Time(time.Local)
//
// The device keeps time across power cycles on its own; the driver holds no
// state between calls.
package pcf85063

import (
	"errors"
	"sync"
	"time"

	"tinygo.org/x/drivers"
)

// I2C address.
const Address = 0x51

// Register map.
const (
	regControl1 = 0x00
	regControl2 = 0x01
	regOffset   = 0x02
	regRAM      = 0x03
	regSeconds  = 0x04
	regMinutes  = 0x05
	regHours    = 0x06
	regDays     = 0x07
	regWeekdays = 0x08
	regMonths   = 0x09
	regYears    = 0x0A
)

// Control_1 bits.
const (
	ctrl1Stop   = 1 << 5
	ctrl1Mode12 = 1 << 1
	ctrl1CapSel = 1 << 0
)

// Seconds bit 7: oscillator stopped since the flag was last cleared.
const flagOS = 0x80

var ErrInvalidTime = errors.New("pcf85063: invalid time")

// Time is one reading of the clock registers.
type Time struct {
	Year    int // 2000..2099
	Month   time.Month
	Day     int
	Weekday time.Weekday
	Hour    int
	Minute  int
	Second  int

	// OscillatorStopped is set when the clock lost power or was never
	// set; the time fields are then not trustworthy.
	OscillatorStopped bool
}

// Time converts the reading to a time.Time in loc.
func (t Time) Time(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(t.Year, t.Month, t.Day, t.Hour, t.Minute, t.Second, 0, loc)
}

// Config controls non-time settings. All fields are optional.
type Config struct {
	// Address defaults to 0x51 if zero.
	Address uint16
	// Load12pF selects the 12.5 pF crystal load capacitance (CAP_SEL).
	Load12pF bool
}

// Device wraps an I2C connection to a PCF85063. It is safe for concurrent
// use; mu guards the scratch buffers across each transaction.
type Device struct {
	bus  drivers.I2C
	addr uint16

	mu sync.Mutex
	w  [8]byte
	r  [7]byte
}

// New creates a Device. It does not touch the hardware.
func New(bus drivers.I2C) *Device {
	return &Device{bus: bus, addr: Address}
}

// Configure starts the oscillator and selects 24-hour mode, leaving the
// time registers untouched.
func (d *Device) Configure(cfg Config) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if cfg.Address != 0 {
		d.addr = cfg.Address
	}
	d.w[0] = regControl1
	if err := d.bus.Tx(d.addr, d.w[:1], d.r[:1]); err != nil {
		return err
	}
	c1 := d.r[0] &^ (ctrl1Stop | ctrl1Mode12 | ctrl1CapSel)
	if cfg.Load12pF {
		c1 |= ctrl1CapSel
	}
	d.w[0] = regControl1
	d.w[1] = c1
	return d.bus.Tx(d.addr, d.w[:2], nil)
}

// Tick reads the current wall-clock fields in a single transaction.
func (d *Device) Tick() (Time, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.w[0] = regSeconds
	if err := d.bus.Tx(d.addr, d.w[:1], d.r[:7]); err != nil {
		return Time{}, err
	}
	return decodeTime(d.r[:7]), nil
}

// SetTime writes t (which must fall in 2000..2099) and clears the
// oscillator-stop flag.
func (d *Device) SetTime(t time.Time) error {
	y := t.Year()
	if y < 2000 || y > 2099 {
		return ErrInvalidTime
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.w[0] = regSeconds
	encodeTime(d.w[1:8], t)
	return d.bus.Tx(d.addr, d.w[:8], nil)
}
