// Package config resolves the board configuration: compiled-in defaults
// overlaid with an embedded per-device JSON document. The resolved Board
// converts directly into each driver's Config.
package config

import (
	"encoding/json"
	"errors"
	"time"

	"lcdboard-go/bus"
	"lcdboard-go/drivers/backlight"
	"lcdboard-go/drivers/battery"
	"lcdboard-go/drivers/pcf85063"
	"lcdboard-go/drivers/tca9554"
	"lcdboard-go/errcode"
	"lcdboard-go/services/bringup"
	"lcdboard-go/services/hal/i2cbus"
	"lcdboard-go/services/monitor"
	"lcdboard-go/services/render"

	"periph.io/x/conn/v3/physic"
)

const configPrefix = "config"

// EmbeddedConfigLookup allows overriding how configs are resolved.
var EmbeddedConfigLookup = func(device string) ([]byte, bool) {
	b, ok := embeddedConfigs[device]
	return b, ok
}

var ErrUnknownDevice = errors.New("config: no embedded config for device")

// -----------------------------------------------------------------------------
// Board model
// -----------------------------------------------------------------------------

type I2C struct {
	FreqHz  int64 `json:"freq_hz"`
	SDA     int   `json:"sda"`
	SCL     int   `json:"scl"`
	Retries int   `json:"retries"`
}

type Expander struct {
	Address   uint16 `json:"address"`
	Direction uint8  `json:"direction"`
	ResetPin  uint8  `json:"reset_pin"`
}

type Reset struct {
	HoldMs   int `json:"hold_ms"`
	SettleMs int `json:"settle_ms"`
}

type Backlight struct {
	Pin         int    `json:"pin"`
	FreqHz      int64  `json:"freq_hz"`
	Resolution  uint8  `json:"resolution"`
	// InitialDuty 0 lets the driver pick half brightness for Resolution.
	InitialDuty uint32 `json:"initial_duty"`
}

type Battery struct {
	Pin         int     `json:"pin"`
	ReferenceMv int     `json:"reference_mv"`
	Divider     float64 `json:"divider"`
	EmptyMv     int     `json:"empty_mv"`
	FullMv      int     `json:"full_mv"`
}

type Clock struct {
	Address  uint16 `json:"address"`
	Load12pF bool   `json:"load_12pf"`
}

// Display describes the panel handed to the external display driver.
type Display struct {
	Width  int   `json:"width"`
	Height int   `json:"height"`
	QSPIHz int64 `json:"qspi_hz"`
}

type Cadence struct {
	IntervalMs int `json:"interval_ms"`
}

// Board is every tunable of one board.
type Board struct {
	Name      string    `json:"name"`
	I2C       I2C       `json:"i2c"`
	Expander  Expander  `json:"expander"`
	Reset     Reset     `json:"reset"`
	Backlight Backlight `json:"backlight"`
	Battery   Battery   `json:"battery"`
	Clock     Clock     `json:"clock"`
	Display   Display   `json:"display"`
	Monitor   Cadence   `json:"monitor"`
	Render    Cadence   `json:"render"`
	Heartbeat Cadence   `json:"heartbeat"`
}

// Default returns the reference board (ESP32-S3, 1.85" 360x360 round LCD).
func Default() Board {
	return Board{
		Name:      "esp32s3-lcd-1.85",
		I2C:       I2C{FreqHz: 400_000, SDA: 11, SCL: 10},
		Expander:  Expander{Address: tca9554.Address, Direction: tca9554.AllOutputs, ResetPin: uint8(tca9554.PinPanelReset)},
		Reset:     Reset{HoldMs: 10, SettleMs: 120},
		Backlight: Backlight{Pin: backlight.DefaultPin, FreqHz: 20_000, Resolution: backlight.DefaultResolution},
		Battery:   Battery{Pin: 8, ReferenceMv: 3300, Divider: battery.DefaultDivider, EmptyMv: 3000, FullMv: 4200},
		Clock:     Clock{Address: pcf85063.Address},
		Display:   Display{Width: 360, Height: 360, QSPIHz: 40_000_000},
		Monitor:   Cadence{IntervalMs: 100},
		Render:    Cadence{IntervalMs: 10},
		Heartbeat: Cadence{IntervalMs: 1000},
	}
}

// DecodeJSON decodes src ([]byte, string or any JSON-marshalable value)
// into dst.
func DecodeJSON[T any](src any, dst *T) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, dst)
	case string:
		return json.Unmarshal([]byte(v), dst)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		return json.Unmarshal(b, dst)
	}
}

// Load resolves the config for device. Keys absent from the embedded
// document keep their Default value.
func Load(device string) (Board, error) {
	b := Default()
	raw, ok := EmbeddedConfigLookup(device)
	if !ok || len(raw) == 0 {
		return b, &errcode.E{C: errcode.InvalidParams, Op: "load", Msg: device, Err: ErrUnknownDevice}
	}
	if err := DecodeJSON(raw, &b); err != nil {
		return Default(), err
	}
	return b, nil
}

// Publish places each top-level section on config/<section> as a retained
// message.
func Publish(conn *bus.Connection, b Board) error {
	var m map[string]any
	if err := DecodeJSON(b, &m); err != nil {
		return err
	}
	for k, v := range m {
		conn.Publish(conn.NewMessage(bus.T(configPrefix, k), v, true))
	}
	return nil
}

// -----------------------------------------------------------------------------
// Conversions
// -----------------------------------------------------------------------------

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }

func (b Board) BusConfig() i2cbus.Config {
	return i2cbus.Config{
		Frequency: physic.Frequency(b.I2C.FreqHz) * physic.Hertz,
		SDA:       b.I2C.SDA,
		SCL:       b.I2C.SCL,
		Retries:   b.I2C.Retries,
	}
}

func (b Board) BacklightConfig() backlight.Config {
	return backlight.Config{
		Pin:         b.Backlight.Pin,
		Frequency:   physic.Frequency(b.Backlight.FreqHz) * physic.Hertz,
		Resolution:  b.Backlight.Resolution,
		InitialDuty: b.Backlight.InitialDuty,
	}
}

func (b Board) BatteryConfig() battery.Config {
	return battery.Config{
		Reference: physic.ElectricPotential(b.Battery.ReferenceMv) * physic.MilliVolt,
		Divider:   b.Battery.Divider,
		Empty:     physic.ElectricPotential(b.Battery.EmptyMv) * physic.MilliVolt,
		Full:      physic.ElectricPotential(b.Battery.FullMv) * physic.MilliVolt,
	}
}

func (b Board) MonitorConfig() monitor.Config {
	return monitor.Config{Interval: ms(b.Monitor.IntervalMs)}
}

func (b Board) BringupConfig() bringup.Config {
	pin := tca9554.Pin(b.Expander.ResetPin)
	return bringup.Config{
		Expander:    tca9554.Config{Address: b.Expander.Address, Direction: b.Expander.Direction},
		ResetPin:    &pin,
		ResetHold:   ms(b.Reset.HoldMs),
		ResetSettle: ms(b.Reset.SettleMs),
		Backlight:   b.BacklightConfig(),
		Clock:       pcf85063.Config{Address: b.Clock.Address, Load12pF: b.Clock.Load12pF},
		Render:      render.Config{Interval: ms(b.Render.IntervalMs)},
	}
}
