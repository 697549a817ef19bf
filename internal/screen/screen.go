// Package screen renders the two LCD lines of each user interface screen
// and applies button edits to the active field.
package screen

import (
	"fmt"

	"github.com/sweeney/dcf-clock/internal/calendar"
)

// Width is the number of LCD columns.
const Width = 16

// Glyphs in the HD44780 A00 character ROM and in CGRAM.
const (
	CharAlarm    = "\x00" // CGRAM 0, bell
	CharDCF      = "\x01" // CGRAM 1, antenna
	CharSettings = "\x7e" // right arrow
	CharDegree   = "\xdf"
)

// Data is what a screen needs to render its lines.
type Data struct {
	Time          calendar.Tm
	AlarmActive   bool
	ActiveVisible bool
	DCFAvailable  bool
	Temperature   float64
}

// Screen is one page of the user interface.
type Screen interface {
	// First selects the first editable field.
	First()
	// Next selects the following field, wrapping around.
	Next()
	// Line renders row 0 or 1.
	Line(row int, d Data) string
}

// field is the position of an editable value on the display.
type field struct {
	col, row, width int
}

// blank hides f in line when the active field is in its off phase.
func blank(line string, f field, row int, d Data) string {
	if d.ActiveVisible || f.row != row {
		return line
	}
	b := []byte(line)
	for i := f.col; i < f.col+f.width && i < len(b); i++ {
		b[i] = ' '
	}
	return string(b)
}

// cycle adds step to val and wraps within [lo, hi].
func cycle(val, step, lo, hi int) int {
	switch {
	case step > 0 && val >= hi:
		return lo
	case step < 0 && val <= lo:
		return hi
	default:
		return val + step
	}
}

func weekday(tm calendar.Tm) string {
	if tm.WDay < 0 || tm.WDay > 6 {
		return "??"
	}
	return calendar.WeekdayShort[tm.WDay]
}

// Home shows date and time. It has no editable fields.
type Home struct{}

func (*Home) First() {}
func (*Home) Next()  {}

func (*Home) Line(row int, d Data) string {
	tm := d.Time
	if row == 0 {
		mark := " "
		if d.DCFAvailable {
			mark = CharDCF
		}
		return fmt.Sprintf("%s %02d.%02d.%04d %2s",
			mark, tm.MDay, tm.Mon+1, tm.Year+calendar.EpochYear, weekday(tm))
	}
	mark := " "
	if d.AlarmActive {
		mark = CharAlarm
	}
	return fmt.Sprintf("%s %02d:%02d:%02d %2d%sC",
		mark, tm.Hour, tm.Min, tm.Sec, int(d.Temperature), CharDegree)
}
