package config

import (
	"errors"
	"testing"
	"time"

	"lcdboard-go/bus"
	"lcdboard-go/drivers/tca9554"
	"lcdboard-go/errcode"

	"periph.io/x/conn/v3/physic"
)

func TestDefault_MatchesBoard(t *testing.T) {
	b := Default()
	bc := b.BringupConfig()
	if bc.Expander.Address != 0x20 || bc.Expander.Direction != tca9554.AllOutputs {
		t.Fatalf("expander = %+v", bc.Expander)
	}
	if bc.ResetPin == nil || *bc.ResetPin != tca9554.PinPanelReset || bc.ResetHold != 10*time.Millisecond || bc.ResetSettle != 120*time.Millisecond {
		t.Fatalf("reset = %v %v %v", bc.ResetPin, bc.ResetHold, bc.ResetSettle)
	}
	bl := b.BacklightConfig()
	if bl.Pin != 5 || bl.Frequency != 20*physic.KiloHertz || bl.Resolution != 10 || bl.InitialDuty != 0 {
		t.Fatalf("backlight = %+v", bl)
	}
	if b.MonitorConfig().Interval != 100*time.Millisecond || bc.Render.Interval != 10*time.Millisecond {
		t.Fatal("cadences")
	}
	if b.BusConfig().Frequency != 400*physic.KiloHertz {
		t.Fatalf("bus freq = %v", b.BusConfig().Frequency)
	}
	bat := b.BatteryConfig()
	if bat.Reference != 3300*physic.MilliVolt || bat.Full != 4200*physic.MilliVolt || bat.Divider != 3.0 {
		t.Fatalf("battery = %+v", bat)
	}
}

func TestLoad_OverlayKeepsDefaults(t *testing.T) {
	b, err := Load("lcd-1.85c")
	if err != nil {
		t.Fatal(err)
	}
	if b.I2C.FreqHz != 100_000 || b.I2C.Retries != 2 || !b.Clock.Load12pF || b.Reset.SettleMs != 150 {
		t.Fatalf("overlay not applied: %+v", b)
	}
	// untouched sections
	if b.Backlight != Default().Backlight || b.Display.Width != 360 {
		t.Fatalf("defaults lost: %+v", b)
	}
}

func TestLoad_Lookup(t *testing.T) {
	old := EmbeddedConfigLookup
	t.Cleanup(func() { EmbeddedConfigLookup = old })

	EmbeddedConfigLookup = func(device string) ([]byte, bool) {
		switch device {
		case "dim":
			return []byte(`{"backlight": {"initial_duty": 100}, "render": {"interval_ms": 16}}`), true
		case "broken":
			return []byte(`{"backlight": `), true
		}
		return nil, false
	}

	b, err := Load("dim")
	if err != nil {
		t.Fatal(err)
	}
	if b.Backlight.InitialDuty != 100 || b.Backlight.Pin != 5 || b.Render.IntervalMs != 16 {
		t.Fatalf("b = %+v", b)
	}

	if _, err := Load("broken"); err == nil {
		t.Fatal("expected decode error")
	}

	b, err = Load("nope")
	if !errors.Is(err, ErrUnknownDevice) || errcode.Of(err) != errcode.InvalidParams {
		t.Fatalf("err = %v", err)
	}
	if b != Default() {
		t.Fatal("unknown device should still yield defaults")
	}
}

func TestDecodeJSON_Sources(t *testing.T) {
	var c Cadence
	for _, src := range []any{`{"interval_ms": 7}`, []byte(`{"interval_ms": 7}`), map[string]any{"interval_ms": 7}} {
		c = Cadence{}
		if err := DecodeJSON(src, &c); err != nil || c.IntervalMs != 7 {
			t.Fatalf("src %T: %+v %v", src, c, err)
		}
	}
}

func TestPublish_RetainedPerSection(t *testing.T) {
	b := bus.NewBus(32)
	conn := b.NewConnection("config")
	if err := Publish(conn, Default()); err != nil {
		t.Fatal(err)
	}

	sub := b.NewConnection("reader").Subscribe(bus.T(configPrefix, "#"))
	got := map[string]any{}
	deadline := time.After(500 * time.Millisecond)
	for len(got) < 11 {
		select {
		case m := <-sub.Channel():
			key, ok := m.Topic[1].(string)
			if !ok || !m.Retained {
				t.Fatalf("topic %v retained=%v", m.Topic, m.Retained)
			}
			got[key] = m.Payload
		case <-deadline:
			t.Fatalf("got %d sections: %v", len(got), got)
		}
	}
	bl, ok := got["backlight"].(map[string]any)
	if !ok || bl["pin"] != float64(5) {
		t.Fatalf("backlight section = %#v", got["backlight"])
	}
	if hb, ok := got["heartbeat"].(map[string]any); !ok || hb["interval_ms"] != float64(1000) {
		t.Fatalf("heartbeat section = %#v", got["heartbeat"])
	}
	if got["name"] != "esp32s3-lcd-1.85" {
		t.Fatalf("name = %v", got["name"])
	}
}

func TestLoad_ResetPinZeroAndEightBitBacklight(t *testing.T) {
	old := EmbeddedConfigLookup
	t.Cleanup(func() { EmbeddedConfigLookup = old })
	EmbeddedConfigLookup = func(string) ([]byte, bool) {
		return []byte(`{"expander": {"reset_pin": 0}, "backlight": {"resolution": 8}}`), true
	}

	b, err := Load("rev-b")
	if err != nil {
		t.Fatal(err)
	}
	if bc := b.BringupConfig(); bc.ResetPin == nil || *bc.ResetPin != 0 {
		t.Fatalf("reset pin = %v, want pin 0", bc.ResetPin)
	}
	bl := b.BacklightConfig()
	if bl.Resolution != 8 || bl.InitialDuty != 0 {
		t.Fatalf("backlight = %+v, want 8 bits with driver-chosen duty", bl)
	}
}
