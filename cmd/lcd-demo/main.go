package main

import (
	"context"
	"time"

	"lcdboard-go/bus"
	"lcdboard-go/drivers/backlight"
	"lcdboard-go/drivers/battery"
	"lcdboard-go/drivers/pcf85063"
	"lcdboard-go/drivers/tca9554"
	"lcdboard-go/errcode"
	"lcdboard-go/services/bringup"
	"lcdboard-go/services/config"
	"lcdboard-go/services/hal/i2cbus"
	"lcdboard-go/services/hal/platform"
	"lcdboard-go/services/heartbeat"
	"lcdboard-go/services/monitor"
	"lcdboard-go/x/conv"

	"golang.org/x/sync/errgroup"
)

const device = "lcd-1.85"

// Below this charge the backlight is dimmed.
const lowBatteryPercent = 20

func printTopicWith(prefix string, t bus.Topic) {
	print(prefix)
	print(" ")
	print(t.String())
	println()
}

func main() {
	// Allow USB CDC to enumerate before we print.
	time.Sleep(2 * time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	println("[main] loading config for", device, "…")
	board, err := config.Load(device)
	if err != nil {
		println("[main] config:", err.Error(), "(using defaults)")
	}

	b := bus.NewBus(8)
	uiConn := b.NewConnection("ui")
	diag := uiConn.Subscribe(bus.T("#"))
	go func() {
		for m := range diag.Channel() {
			if _, ok := m.Payload.(monitor.Sample); ok {
				continue // summarised by status
			}
			printTopicWith("[diag] <-", m.Topic)
			if ev, ok := m.Payload.(bringup.StageEvent); ok && ev.Failed {
				println("[diag] bring-up failed after", ev.Stage.String(), "code", string(errcode.Of(ev.Err)))
			}
		}
	}()
	if err := config.Publish(b.NewConnection("config"), board); err != nil {
		println("[main] publish config:", err.Error())
	}

	(&heartbeat.Service{}).Start(ctx, b.NewConnection("heartbeat"))

	res, err := platform.Open(board)
	if err != nil {
		println("[main] platform:", err.Error())
		return
	}

	i2c := i2cbus.New(res.I2C, board.BusConfig())
	clk := pcf85063.New(i2c)
	batt := battery.New(res.Battery, board.BatteryConfig())
	light := backlight.New(res.Backlight)

	mcfg := board.MonitorConfig()
	mcfg.Conn = b.NewConnection("monitor")
	task := monitor.New(clk, batt, mcfg)

	orch := bringup.New(board.BringupConfig(), bringup.Deps{
		Bus:        i2c,
		Expander:   tca9554.New(i2c),
		Backlight:  light,
		Clock:      clk,
		Battery:    batt,
		Monitor:    task,
		Display:    res.Display,
		Storage:    res.Storage,
		Audio:      res.Audio,
		Microphone: res.Microphone,
		Graphics:   res.Graphics,
		Conn:       b.NewConnection("bringup"),
	})

	println("[main] bringing up", board.Name, "…")
	running, err := orch.Run(ctx)
	if err != nil {
		println("[main] bring-up halted at", orch.Stage().String()+":", err.Error())
		// Nothing to recover; park so the diagnostics stay readable.
		select {}
	}
	defer running.Stop()
	println("[main] running")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return running.Loop(gctx) })
	g.Go(func() error { return status(gctx, task, light, i2c) })
	if err := g.Wait(); err != nil && err != context.Canceled {
		println("[main] exit:", err.Error())
	}
}

// status prints the latest monitor sample every two seconds and dims the
// backlight on a low battery.
func status(ctx context.Context, task *monitor.Task, light *backlight.Driver, i2c *i2cbus.Bus) error {
	t := time.NewTicker(2 * time.Second)
	defer t.Stop()
	dimmed := false
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
		s, ok := task.Latest()
		if !ok {
			continue
		}
		if s.ClockErr != nil {
			println("[status] rtc:", s.ClockErr.Error())
		} else {
			c := s.Clock
			print("[status] ", c.Time(nil).Format("2006-01-02 15:04:05"))
			if c.OscillatorStopped {
				print(" (unset)")
			}
			println()
		}
		if s.BatteryErr != nil {
			println("[status] battery:", s.BatteryErr.Error())
		} else {
			println("[status] battery", s.Battery.Voltage.String(), conv.Istr(s.Battery.Percent)+"%")
			low := s.Battery.Percent < lowBatteryPercent
			if low != dimmed {
				dimmed = low
				if low {
					light.SetBrightness(30)
				} else {
					light.SetBrightness(100)
				}
			}
		}
		tx, failed := i2c.Stats()
		println("[status] samples", task.Count(), "errors", task.Errors(), "i2c tx", tx, "failed", failed, "backlight", conv.Istr(light.Percent())+"%")
	}
}
