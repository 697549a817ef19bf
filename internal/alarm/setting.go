// Package alarm holds the weekly alarm settings and the buzzer that sounds
// them.
package alarm

import (
	"fmt"

	"github.com/sweeney/dcf-clock/internal/calendar"
)

// Count is the number of alarm slots.
const Count = 3

// Setting is one weekly alarm. Days is indexed by weekday, Sunday = 0.
type Setting struct {
	Active bool    `toml:"active" json:"active"`
	Hour   int     `toml:"hour" json:"hour"`
	Min    int     `toml:"min" json:"min"`
	Days   [7]bool `toml:"days" json:"days"`
}

var workdays = [7]bool{false, true, true, true, true, true, false}

// Defaults returns the factory settings of the three slots.
func Defaults() [Count]Setting {
	return [Count]Setting{
		{Active: true, Hour: 6, Min: 50, Days: workdays},
		{Active: true, Hour: 7, Min: 30, Days: workdays},
		{Active: false, Hour: 9, Min: 10, Days: workdays},
	}
}

// IsOccurred reports whether the alarm is due at tm. It matches during the
// whole minute.
func (s Setting) IsOccurred(tm calendar.Tm) bool {
	if tm.WDay < 0 || tm.WDay > 6 {
		return false
	}
	return s.Active && s.Days[tm.WDay] && s.Hour == tm.Hour && s.Min == tm.Min
}

// Validate checks hour and minute ranges.
func (s Setting) Validate() error {
	if s.Hour < 0 || s.Hour > 23 {
		return fmt.Errorf("alarm hour %d out of range", s.Hour)
	}
	if s.Min < 0 || s.Min > 59 {
		return fmt.Errorf("alarm minute %d out of range", s.Min)
	}
	return nil
}

// AnyActive reports whether at least one alarm is switched on.
func AnyActive(settings []Setting) bool {
	for _, s := range settings {
		if s.Active {
			return true
		}
	}
	return false
}
