// Package device drives the clock's peripherals: the character LCD, the
// 7-segment display, the brightness DAC, the ADC and the backup RTC.
//
// The core only sees the small interfaces below; the bus adapters use
// periph.io on the host and the tinygo drivers for chip protocols.
package device

import (
	"errors"
	"fmt"
	"time"
)

// ErrStalled is returned when a device does not become ready in time.
var ErrStalled = errors.New("device: not ready")

// Display is a character display.
type Display interface {
	WriteLine(row int, text string) error
	Clear() error
}

// SegmentDisplay is a multi-digit 7-segment display.
type SegmentDisplay interface {
	WriteDigits(s string) error
}

// Brightness sets the display brightness.
type Brightness interface {
	SetLevel(percent uint8) error
}

// Sensor reads a raw ADC channel.
type Sensor interface {
	ReadRaw(channel int) (int, error)
}

// BackupClock is a battery backed clock chip.
type BackupClock interface {
	Now() (time.Time, error)
	Set(t time.Time) error
}

// Conn is a full-duplex bus transaction, as implemented by periph.io SPI
// connections.
type Conn interface {
	Tx(w, r []byte) error
}

// Poll calls ready up to attempts times until it reports true.
func Poll(attempts int, ready func() (bool, error)) error {
	for i := 0; i < attempts; i++ {
		ok, err := ready()
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
	}
	return fmt.Errorf("%w after %d polls", ErrStalled, attempts)
}
