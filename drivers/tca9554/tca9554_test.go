package tca9554_test

import (
	"bytes"
	"testing"

	"lcdboard-go/drivers/tca9554"
	"lcdboard-go/services/hal/sim"
)

func setup(t *testing.T) (*tca9554.Device, *sim.Bus, *sim.Expander) {
	t.Helper()
	bus := sim.NewBus()
	exp := sim.NewExpander()
	bus.Attach(tca9554.Address, exp)
	return tca9554.New(bus), bus, exp
}

func lastWrite(t *testing.T, bus *sim.Bus) []byte {
	t.Helper()
	w := bus.Writes(tca9554.Address)
	if len(w) == 0 {
		t.Fatal("no writes recorded")
	}
	return w[len(w)-1]
}

func TestConfigure_SingleWrite(t *testing.T) {
	d, bus, exp := setup(t)

	if err := d.Configure(tca9554.Config{Direction: tca9554.AllOutputs}); err != nil {
		t.Fatal(err)
	}
	log := bus.Log()
	if len(log) != 1 || !bytes.Equal(log[0].W, []byte{0x03, 0x00}) || log[0].Rn != 0 {
		t.Fatalf("Configure issued %+v, want one write [0x03 0x00]", log)
	}
	if _, cfg := exp.Registers(); cfg != 0x00 {
		t.Fatalf("config register = %#x", cfg)
	}
}

func TestSetPin_PanelResetWrites(t *testing.T) {
	d, bus, exp := setup(t)
	exp.SetOutput(0x00) // no other bits previously set

	if err := d.Configure(tca9554.Config{Direction: 0x00}); err != nil {
		t.Fatal(err)
	}

	if err := d.SetPin(tca9554.PinPanelReset, tca9554.High); err != nil {
		t.Fatal(err)
	}
	if got := lastWrite(t, bus); !bytes.Equal(got, []byte{0x01, 0x04}) {
		t.Fatalf("High wrote %#v, want [0x01 0x04]", got)
	}

	if err := d.SetPin(tca9554.PinPanelReset, tca9554.Low); err != nil {
		t.Fatal(err)
	}
	if got := lastWrite(t, bus); !bytes.Equal(got, []byte{0x01, 0x00}) {
		t.Fatalf("Low wrote %#v, want [0x01 0x00]", got)
	}
}

func TestSetPin_PreservesSiblings(t *testing.T) {
	d, _, exp := setup(t)
	exp.SetOutput(0x00)
	if err := d.Configure(tca9554.Config{Direction: tca9554.AllOutputs}); err != nil {
		t.Fatal(err)
	}

	for _, p := range []tca9554.Pin{0, 5, tca9554.PinEXIO1} {
		if err := d.SetPin(p, tca9554.High); err != nil {
			t.Fatal(err)
		}
	}
	if err := d.SetPin(tca9554.PinPanelReset, tca9554.High); err != nil {
		t.Fatal(err)
	}
	if err := d.SetPin(5, tca9554.Low); err != nil {
		t.Fatal(err)
	}

	want := map[tca9554.Pin]tca9554.Level{0: true, 1: true, 2: true, 5: false, 3: false, 7: false}
	for p, lv := range want {
		got, err := d.ReadPin(p)
		if err != nil {
			t.Fatal(err)
		}
		if got != lv {
			t.Errorf("pin %d = %v, want %v", p, got, lv)
		}
	}
	if out, _ := d.Output(); out != 0x07 {
		t.Fatalf("output latch = %#x, want 0x07", out)
	}
}

func TestReadPin_Inputs(t *testing.T) {
	d, _, exp := setup(t)
	if err := d.Configure(tca9554.Config{Direction: 0xF0}); err != nil {
		t.Fatal(err)
	}
	exp.SetExternal(0x80)

	if lv, err := d.ReadPin(7); err != nil || lv != tca9554.High {
		t.Fatalf("pin 7 = %v, %v; want High", lv, err)
	}
	if lv, err := d.ReadPin(6); err != nil || lv != tca9554.Low {
		t.Fatalf("pin 6 = %v, %v; want Low", lv, err)
	}
}

func TestUseBeforeConfigure(t *testing.T) {
	d, bus, _ := setup(t)

	if err := d.SetPin(tca9554.PinPanelReset, tca9554.High); err != tca9554.ErrNotConfigured {
		t.Fatalf("SetPin = %v, want ErrNotConfigured", err)
	}
	if _, err := d.ReadPin(tca9554.PinPanelReset); err != tca9554.ErrNotConfigured {
		t.Fatalf("ReadPin = %v, want ErrNotConfigured", err)
	}
	if len(bus.Log()) != 0 {
		t.Fatal("no bus traffic expected before Configure")
	}
}

func TestInvalidPin(t *testing.T) {
	d, _, _ := setup(t)
	_ = d.Configure(tca9554.Config{})
	if err := d.SetPin(8, tca9554.High); err != tca9554.ErrInvalidPin {
		t.Fatalf("SetPin(8) = %v", err)
	}
	if _, err := d.ReadPin(9); err != tca9554.ErrInvalidPin {
		t.Fatalf("ReadPin(9) = %v", err)
	}
}

func TestBusErrorPropagatesUnchanged(t *testing.T) {
	d, bus, _ := setup(t)
	if err := d.Configure(tca9554.Config{}); err != nil {
		t.Fatal(err)
	}
	bus.FailAddr(tca9554.Address, sim.ErrNack)

	if err := d.SetPin(tca9554.PinPanelReset, tca9554.Low); err != sim.ErrNack {
		t.Fatalf("SetPin = %v, want ErrNack unchanged", err)
	}
	if _, err := d.ReadPin(0); err != sim.ErrNack {
		t.Fatalf("ReadPin = %v, want ErrNack unchanged", err)
	}

	bus2 := sim.NewBus() // nothing attached
	d2 := tca9554.New(bus2)
	if err := d2.Configure(tca9554.Config{}); err != sim.ErrNack {
		t.Fatalf("Configure = %v, want ErrNack", err)
	}
}

func TestCustomAddress(t *testing.T) {
	bus := sim.NewBus()
	bus.Attach(0x24, sim.NewExpander())
	d := tca9554.New(bus)
	if err := d.Configure(tca9554.Config{Address: 0x24}); err != nil {
		t.Fatal(err)
	}
	if got := bus.Log()[0].Addr; got != 0x24 {
		t.Fatalf("addressed %#x, want 0x24", got)
	}
}
