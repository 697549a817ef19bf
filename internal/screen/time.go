package screen

import (
	"fmt"

	"github.com/sweeney/dcf-clock/internal/calendar"
)

// TimeField is an editable part of the date and time.
type TimeField int

const (
	FieldDay TimeField = iota
	FieldMonth
	FieldYear
	FieldHour
	FieldMinute
	FieldSecond
)

var timeFields = [...]field{
	FieldDay:    {1, 0, 2},
	FieldMonth:  {4, 0, 2},
	FieldYear:   {7, 0, 4},
	FieldHour:   {1, 1, 2},
	FieldMinute: {4, 1, 2},
	FieldSecond: {7, 1, 2},
}

// TimeSetting edits the clock's date and time.
type TimeSetting struct {
	active TimeField
}

func (s *TimeSetting) First() {
	s.active = FieldDay
}

func (s *TimeSetting) Next() {
	if s.active == FieldSecond {
		s.active = FieldDay
		return
	}
	s.active++
}

// Active returns the selected field.
func (s *TimeSetting) Active() TimeField {
	return s.active
}

// SetActive selects f.
func (s *TimeSetting) SetActive(f TimeField) {
	s.active = f
}

func (s *TimeSetting) Line(row int, d Data) string {
	tm := d.Time
	var line string
	if row == 0 {
		line = fmt.Sprintf("%s%02d.%02d.%04d  %2s",
			CharSettings, tm.MDay, tm.Mon+1, tm.Year+calendar.EpochYear, weekday(tm))
	} else {
		line = fmt.Sprintf(" %02d:%02d:%02d", tm.Hour, tm.Min, tm.Sec)
	}
	return blank(line, timeFields[s.active], row, d)
}

// Modify adds s to the selected field of tm. The month wraps and carries
// into the year; every other field is left out of range for
// calendar.Compose to normalize.
func (s *TimeSetting) Modify(tm *calendar.Tm, step int) {
	switch s.active {
	case FieldDay:
		tm.MDay += step
	case FieldMonth:
		switch {
		case step < 0 && tm.Mon == calendar.January:
			tm.Mon = calendar.December
			tm.Year--
		case step > 0 && tm.Mon == calendar.December:
			tm.Mon = calendar.January
			tm.Year++
		default:
			tm.Mon += step
		}
	case FieldYear:
		tm.Year += step
	case FieldHour:
		tm.Hour += step
	case FieldMinute:
		tm.Min += step
	case FieldSecond:
		tm.Sec += step
	}
}
