// Package sim is a host-side model of the board: a register-level I²C
// controller with attachable chip models, a recording PWM output, a
// settable ADC and inert collaborators. It backs the tests and the
// host build of cmd/lcd-demo.
package sim

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"lcdboard-go/services/hal/i2cbus"
)

var (
	ErrNack      = errors.New("sim: address nack")
	ErrConfigure = errors.New("sim: bus configure failed")
)

// Device is a chip model attached at one address.
type Device interface {
	Tx(w, r []byte) error
}

// Tx is one recorded transaction.
type Tx struct {
	Addr uint16
	W    []byte
	Rn   int
}

// Bus implements i2cbus.Controller for host-side tests.
type Bus struct {
	mu      sync.Mutex
	devs    map[uint16]Device
	log     []Tx
	fail    map[uint16]error
	cfg     i2cbus.Config
	cfgs    int
	cfgErr  error
	delay   time.Duration
	inside  atomic.Int32
	overlap atomic.Int32
}

var _ i2cbus.Controller = (*Bus)(nil)

func NewBus() *Bus {
	return &Bus{devs: map[uint16]Device{}, fail: map[uint16]error{}}
}

// Attach places a chip model at addr.
func (b *Bus) Attach(addr uint16, d Device) {
	b.mu.Lock()
	b.devs[addr] = d
	b.mu.Unlock()
}

// FailConfigure makes the next Configure return err.
func (b *Bus) FailConfigure(err error) {
	b.mu.Lock()
	b.cfgErr = err
	b.mu.Unlock()
}

// FailAddr makes every transaction to addr return err until cleared with nil.
func (b *Bus) FailAddr(addr uint16, err error) {
	b.mu.Lock()
	if err == nil {
		delete(b.fail, addr)
	} else {
		b.fail[addr] = err
	}
	b.mu.Unlock()
}

// SetDelay stretches every transaction, which widens any overlap window.
func (b *Bus) SetDelay(d time.Duration) {
	b.mu.Lock()
	b.delay = d
	b.mu.Unlock()
}

func (b *Bus) Configure(cfg i2cbus.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cfgs++
	if b.cfgErr != nil {
		err := b.cfgErr
		b.cfgErr = nil
		return err
	}
	b.cfg = cfg
	return nil
}

// Tx deliberately does not hold b.mu while the chip model runs, so
// overlapping callers are observable through Overlaps.
func (b *Bus) Tx(addr uint16, w, r []byte) error {
	if b.inside.Add(1) > 1 {
		b.overlap.Add(1)
	}
	defer b.inside.Add(-1)

	b.mu.Lock()
	b.log = append(b.log, Tx{Addr: addr, W: append([]byte(nil), w...), Rn: len(r)})
	dev := b.devs[addr]
	ferr := b.fail[addr]
	delay := b.delay
	b.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if ferr != nil {
		return ferr
	}
	if dev == nil {
		return ErrNack
	}
	return dev.Tx(w, r)
}

// Log returns a copy of every transaction seen so far.
func (b *Bus) Log() []Tx {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Tx(nil), b.log...)
}

// Writes returns the write payloads sent to addr that carried no read.
func (b *Bus) Writes(addr uint16) [][]byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out [][]byte
	for _, t := range b.log {
		if t.Addr == addr && t.Rn == 0 {
			out = append(out, t.W)
		}
	}
	return out
}

// Configured returns the last accepted config and the number of Configure calls.
func (b *Bus) Configured() (i2cbus.Config, int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cfg, b.cfgs
}

// Overlaps counts transactions that started while another was in flight.
func (b *Bus) Overlaps() int { return int(b.overlap.Load()) }
