package i2cbus_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"lcdboard-go/errcode"
	"lcdboard-go/services/hal/i2cbus"
	"lcdboard-go/services/hal/sim"

	"periph.io/x/conn/v3/physic"
)

func newBus(t *testing.T, cfg i2cbus.Config) (*i2cbus.Bus, *sim.Bus) {
	t.Helper()
	hw := sim.NewBus()
	hw.Attach(0x20, sim.NewExpander())
	return i2cbus.New(hw, cfg), hw
}

func TestInit_OnceOnly(t *testing.T) {
	b, hw := newBus(t, i2cbus.Config{SDA: 11, SCL: 10})

	if err := b.Init(); err != nil {
		t.Fatalf("first Init: %v", err)
	}
	err := b.Init()
	if !errors.Is(err, i2cbus.ErrAlreadyInitialised) {
		t.Fatalf("second Init = %v, want ErrAlreadyInitialised", err)
	}
	if errcode.Of(err) != errcode.BusInit {
		t.Fatalf("second Init code = %q, want bus_init", errcode.Of(err))
	}

	cfg, n := hw.Configured()
	if n != 1 {
		t.Fatalf("controller configured %d times, want 1", n)
	}
	if cfg.Frequency != 400*physic.KiloHertz || cfg.SDA != 11 || cfg.SCL != 10 {
		t.Fatalf("unexpected controller config: %+v", cfg)
	}
}

func TestInit_ControllerFailureIsFatal(t *testing.T) {
	b, hw := newBus(t, i2cbus.Config{})
	hw.FailConfigure(sim.ErrConfigure)

	err := b.Init()
	if errcode.Of(err) != errcode.BusInit || !errors.Is(err, sim.ErrConfigure) {
		t.Fatalf("Init = %v, want bus_init wrapping ErrConfigure", err)
	}
	if b.Ready() {
		t.Fatal("bus must not be ready after failed Init")
	}
	// No second chance.
	if err := b.Init(); !errors.Is(err, i2cbus.ErrAlreadyInitialised) {
		t.Fatalf("re-Init = %v, want ErrAlreadyInitialised", err)
	}
}

func TestTx_BeforeInit(t *testing.T) {
	b, hw := newBus(t, i2cbus.Config{})

	err := b.Tx(0x20, []byte{0x03, 0x00}, nil)
	if !errors.Is(err, i2cbus.ErrNotInitialised) {
		t.Fatalf("Tx before Init = %v, want ErrNotInitialised", err)
	}
	if len(hw.Log()) != 0 {
		t.Fatal("no transaction may reach hardware before Init")
	}
}

func TestTx_ErrorPropagatesWithoutRetry(t *testing.T) {
	b, hw := newBus(t, i2cbus.Config{})
	if err := b.Init(); err != nil {
		t.Fatal(err)
	}

	err := b.Tx(0x51, []byte{0x04}, make([]byte, 7)) // nothing attached at 0x51
	if !errors.Is(err, sim.ErrNack) {
		t.Fatalf("Tx = %v, want ErrNack", err)
	}
	if errcode.Of(err) != errcode.BusTx {
		t.Fatalf("code = %q, want bus_tx", errcode.Of(err))
	}
	if got := err.Error(); got != "bus_tx tx: 0x51: sim: address nack" {
		t.Fatalf("Error() = %q", got)
	}
	if n := len(hw.Log()); n != 1 {
		t.Fatalf("hardware saw %d attempts, want 1", n)
	}

	// Bus is idle again: the next transaction goes through.
	if err := b.Tx(0x20, []byte{0x03, 0x00}, nil); err != nil {
		t.Fatalf("follow-up Tx: %v", err)
	}
}

func TestTx_BoundedRetry(t *testing.T) {
	b, hw := newBus(t, i2cbus.Config{Retries: 2})
	if err := b.Init(); err != nil {
		t.Fatal(err)
	}
	hw.FailAddr(0x20, sim.ErrNack)

	if err := b.Tx(0x20, []byte{0x01}, make([]byte, 1)); !errors.Is(err, sim.ErrNack) {
		t.Fatalf("Tx = %v, want ErrNack", err)
	}
	tx, failed := b.Stats()
	if tx != 3 || failed != 3 {
		t.Fatalf("stats = (%d,%d), want (3,3)", tx, failed)
	}
}

func TestTransactionAndRegisters(t *testing.T) {
	b, _ := newBus(t, i2cbus.Config{})
	if err := b.Init(); err != nil {
		t.Fatal(err)
	}

	if err := b.WriteRegister(0x20, 0x01, []byte{0x5A}); err != nil {
		t.Fatal(err)
	}
	got, err := b.Transaction(0x20, []byte{0x01}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if got[0] != 0x5A {
		t.Fatalf("Transaction read %#x, want 0x5a", got[0])
	}
	var buf [1]byte
	if err := b.ReadRegister(0x20, 0x01, buf[:]); err != nil || buf[0] != 0x5A {
		t.Fatalf("ReadRegister = %#x, %v", buf[0], err)
	}
}

func TestTx_MutualExclusion(t *testing.T) {
	b, hw := newBus(t, i2cbus.Config{})
	if err := b.Init(); err != nil {
		t.Fatal(err)
	}
	hw.SetDelay(200 * time.Microsecond)

	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var r [1]byte
			for i := 0; i < 25; i++ {
				_ = b.Tx(0x20, []byte{0x00}, r[:])
			}
		}()
	}
	wg.Wait()

	if n := hw.Overlaps(); n != 0 {
		t.Fatalf("%d transactions overlapped", n)
	}
	if n := len(hw.Log()); n != 100 {
		t.Fatalf("saw %d transactions, want 100", n)
	}
}
