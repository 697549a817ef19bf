package device

import (
	"fmt"
	"strings"

	"tinygo.org/x/drivers"
	"tinygo.org/x/drivers/hd44780i2c"
)

// Custom glyphs stored in CGRAM 0 and 1.
var (
	glyphBell    = []byte{0x04, 0x0e, 0x0e, 0x0e, 0x1f, 0x00, 0x04, 0x00}
	glyphAntenna = []byte{0x15, 0x15, 0x0e, 0x04, 0x04, 0x04, 0x04, 0x00}
)

// txRecorder keeps the first bus error, since the LCD driver does not
// return them.
type txRecorder struct {
	bus drivers.I2C
	err error
}

func (t *txRecorder) Tx(addr uint16, w, r []byte) error {
	err := t.bus.Tx(addr, w, r)
	if err != nil && t.err == nil {
		t.err = err
	}
	return err
}

func (t *txRecorder) take() error {
	err := t.err
	t.err = nil
	return err
}

// LCD is an HD44780 character display behind a PCF8574 I²C backpack.
type LCD struct {
	bus   *txRecorder
	dev   hd44780i2c.Device
	width int
}

// NewLCD initializes the display. addr 0 selects the default 0x27.
func NewLCD(bus drivers.I2C, addr uint8, width, height int) (*LCD, error) {
	rec := &txRecorder{bus: bus}
	l := &LCD{bus: rec, dev: hd44780i2c.New(rec, addr), width: width}
	if err := l.dev.Configure(hd44780i2c.Config{Width: uint8(width), Height: uint8(height)}); err != nil {
		return nil, fmt.Errorf("lcd: %w", err)
	}
	l.dev.CreateCharacter(0, glyphBell)
	l.dev.CreateCharacter(1, glyphAntenna)
	if err := rec.take(); err != nil {
		return nil, fmt.Errorf("lcd init: %w", err)
	}
	return l, nil
}

// WriteLine writes text to row, padded or cut to the display width.
func (l *LCD) WriteLine(row int, text string) error {
	if len(text) > l.width {
		text = text[:l.width]
	} else {
		text += strings.Repeat(" ", l.width-len(text))
	}
	l.dev.SetCursor(0, uint8(row))
	l.dev.Print([]byte(text))
	if err := l.bus.take(); err != nil {
		return fmt.Errorf("lcd row %d: %w", row, err)
	}
	return nil
}

// Clear blanks the display.
func (l *LCD) Clear() error {
	l.dev.ClearDisplay()
	if err := l.bus.take(); err != nil {
		return fmt.Errorf("lcd clear: %w", err)
	}
	return nil
}
