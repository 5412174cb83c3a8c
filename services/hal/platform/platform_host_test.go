//go:build !tinygo

package platform

import (
	"context"
	"testing"

	"lcdboard-go/drivers/battery"
	"lcdboard-go/drivers/pcf85063"
	"lcdboard-go/drivers/tca9554"
	"lcdboard-go/services/config"
	"lcdboard-go/services/hal/i2cbus"
)

func TestOpen_HostBoardAnswersOnBus(t *testing.T) {
	b := config.Default()
	res, err := Open(b)
	if err != nil {
		t.Fatal(err)
	}

	bus := i2cbus.New(res.I2C, b.BusConfig())
	if err := bus.Init(); err != nil {
		t.Fatal(err)
	}
	exp := tca9554.New(bus)
	if err := exp.Configure(tca9554.Config{Direction: tca9554.AllOutputs}); err != nil {
		t.Fatal(err)
	}
	if err := exp.SetPin(tca9554.PinPanelReset, tca9554.Low); err != nil {
		t.Fatal(err)
	}
	if _, err := pcf85063.New(bus).Tick(); err != nil {
		t.Fatal(err)
	}

	mon := battery.New(res.Battery, b.BatteryConfig())
	if err := mon.Init(); err != nil {
		t.Fatal(err)
	}
	r, err := mon.Sample()
	if err != nil {
		t.Fatal(err)
	}
	if r.Percent < 70 || r.Percent > 80 {
		t.Fatalf("simulated cell at %d%%", r.Percent)
	}

	h, err := res.Graphics.Init(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if s, ok := h.(Screen); !ok || s.Width != 360 || s.Height != 360 {
		t.Fatalf("handle = %#v", h)
	}
	for _, c := range []interface{ Init(context.Context) error }{res.Display, res.Storage, res.Audio, res.Microphone} {
		if err := c.Init(context.Background()); err != nil {
			t.Fatal(err)
		}
	}
}
