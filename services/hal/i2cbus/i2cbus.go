// Package i2cbus owns the board's shared I²C bus. A Bus is constructed
// explicitly, initialised exactly once, and then handed by reference to
// every driver that needs it. Transactions are serialised by a mutex held
// across the full write+read so two callers can never interleave their
// address and data phases.
//
// There is no transaction timeout: a peripheral that stretches the clock
// forever blocks its caller (and every later caller) indefinitely.
package i2cbus

import (
	"errors"
	"sync"

	"lcdboard-go/errcode"
	"lcdboard-go/x/conv"

	"periph.io/x/conn/v3/physic"
	"tinygo.org/x/drivers"
)

// Controller is the hardware side of the bus (machine.I2C on target, a
// simulator on host). Tx must perform a write followed by a repeated-start
// read when both w and r are non-empty.
type Controller interface {
	Configure(cfg Config) error
	Tx(addr uint16, w, r []byte) error
}

// Config holds the physical bus parameters.
type Config struct {
	// Frequency defaults to 400 kHz if zero.
	Frequency physic.Frequency
	SDA, SCL  int
	// Retries is the number of immediate re-attempts after a failed
	// transaction. Zero (the default) means a failure surfaces at once.
	Retries int
}

var (
	ErrNotInitialised     = errors.New("i2cbus: not initialised")
	ErrAlreadyInitialised = errors.New("i2cbus: already initialised")
)

// Ensure compile-time conformance with drivers.I2C.
var _ drivers.I2C = (*Bus)(nil)

type Bus struct {
	mu      sync.Mutex
	hw      Controller
	cfg     Config
	claimed bool // Init has been called (successfully or not)
	ready   bool

	txCount  uint32
	errCount uint32
}

// New creates a bus bound to a controller. It does not touch hardware.
func New(hw Controller, cfg Config) *Bus {
	if cfg.Frequency <= 0 {
		cfg.Frequency = 400 * physic.KiloHertz
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	return &Bus{hw: hw, cfg: cfg}
}

// Init configures the controller. It may be called once; a second call or
// a controller failure returns an error coded errcode.BusInit. A failed
// Init leaves the bus permanently unusable.
func (b *Bus) Init() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.claimed {
		return &errcode.E{C: errcode.BusInit, Op: "init", Err: ErrAlreadyInitialised}
	}
	b.claimed = true
	if err := b.hw.Configure(b.cfg); err != nil {
		return &errcode.E{C: errcode.BusInit, Op: "init", Err: err}
	}
	b.ready = true
	return nil
}

// Ready reports whether Init completed successfully.
func (b *Bus) Ready() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ready
}

func (b *Bus) Config() Config { return b.cfg }

// Tx performs one atomic addressed write-then-optional-read.
// Errors are coded errcode.BusTx and wrap the controller error; the bus is
// idle again when Tx returns.
func (b *Bus) Tx(addr uint16, w, r []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.ready {
		return &errcode.E{C: errcode.BusTx, Op: "tx", Msg: conv.AddrString(addr), Err: ErrNotInitialised}
	}
	var err error
	for attempt := 0; attempt <= b.cfg.Retries; attempt++ {
		b.txCount++
		if err = b.hw.Tx(addr, w, r); err == nil {
			return nil
		}
		b.errCount++
	}
	return &errcode.E{C: errcode.BusTx, Op: "tx", Msg: conv.AddrString(addr), Err: err}
}

// Transaction writes w and then reads n bytes, returning a fresh slice.
func (b *Bus) Transaction(addr uint16, w []byte, n int) ([]byte, error) {
	var r []byte
	if n > 0 {
		r = make([]byte, n)
	}
	if err := b.Tx(addr, w, r); err != nil {
		return nil, err
	}
	return r, nil
}

// ReadRegister selects reg and reads len(buf) bytes from it.
func (b *Bus) ReadRegister(addr uint16, reg uint8, buf []byte) error {
	return b.Tx(addr, []byte{reg}, buf)
}

// WriteRegister writes data starting at reg.
func (b *Bus) WriteRegister(addr uint16, reg uint8, data []byte) error {
	w := make([]byte, 0, 1+len(data))
	w = append(w, reg)
	w = append(w, data...)
	return b.Tx(addr, w, nil)
}

// Stats returns the number of hardware attempts and failed attempts.
func (b *Bus) Stats() (tx, failed uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.txCount, b.errCount
}
