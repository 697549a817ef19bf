// Package gpio provides the clock's digital lines with hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

import (
	"errors"
	"time"
)

// ErrUnsupported is returned where no GPIO character device exists.
var ErrUnsupported = errors.New("gpio: not supported on this platform (requires Linux)")

// DigitalPin is one line in logical form: true means active.
// Active-low wiring is resolved by the implementation.
type DigitalPin interface {
	Get() (bool, error)
	Set(on bool) error
}

// Edge is a level change on a watched line.
type Edge struct {
	Offset int
	// Active is the logical level after the edge.
	Active bool
	// Time is the kernel timestamp of the edge.
	Time time.Duration
}

// EdgeFunc receives edges. It is called from the watcher's goroutine.
type EdgeFunc func(Edge)

// Pin definitions (BCM numbering)
const (
	PinMode        = 5
	PinSelect      = 6
	PinPlus        = 13
	PinMinus       = 19
	PinDCFData     = 17
	PinDCFPower    = 27
	PinPPS         = 4
	PinBuzzer      = 18
	PinSecondsLED  = 22
	PinDCFOkLED    = 23
	PinDCFFailLED  = 24
	PinDCFPowerLED = 25
)

// Group drives several output lines as one, such as the receiver power
// switch and its indicator LED.
type Group []DigitalPin

// Get returns the level of the first line.
func (g Group) Get() (bool, error) {
	if len(g) == 0 {
		return false, nil
	}
	return g[0].Get()
}

// Set drives every line, stopping at the first error.
func (g Group) Set(on bool) error {
	for _, p := range g {
		if err := p.Set(on); err != nil {
			return err
		}
	}
	return nil
}
