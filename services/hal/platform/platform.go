// Package platform binds the board's hardware handles: the I²C controller,
// the backlight PWM line, the battery ADC channel and the externally owned
// subsystems. Open has one implementation per build: TinyGo targets bind
// the machine package, every other build returns the sim models.
package platform

import (
	"context"

	"lcdboard-go/drivers/backlight"
	"lcdboard-go/drivers/battery"
	"lcdboard-go/services/bringup"
	"lcdboard-go/services/hal/i2cbus"
)

// Resources are the raw handles the drivers are built on.
type Resources struct {
	I2C       i2cbus.Controller
	Backlight backlight.PWM
	Battery   battery.ADC

	Display    bringup.Initer
	Storage    bringup.Initer
	Audio      bringup.Initer
	Microphone bringup.Initer
	Graphics   bringup.Graphics
}

// external stands in for a subsystem whose driver lives outside this
// module; Init always succeeds.
type external struct{ name string }

func (e external) Init(context.Context) error { return nil }
func (e external) String() string             { return e.name }

// panel is the graphics handle used when no graphics library is linked:
// Init reports the panel size, Advance does nothing.
type panel struct{ w, h int }

type Screen struct{ Width, Height int }

func (p panel) Init(context.Context) (any, error) { return Screen{Width: p.w, Height: p.h}, nil }
func (p panel) Advance()                          {}
