// Package settings persists the user-editable records: display brightness
// and the three alarms.
package settings

import (
	"fmt"

	"github.com/sweeney/dcf-clock/internal/alarm"
)

// Brightness is the display brightness record.
type Brightness struct {
	Manual bool `toml:"manual" json:"manual"`
	// Level is the manual level in percent.
	Level int `toml:"level" json:"level"`
}

// DefaultBrightness is automatic mode with a manual level of 100%.
func DefaultBrightness() Brightness {
	return Brightness{Manual: false, Level: 100}
}

// Store loads and saves the records. Alarm slots are numbered 1 to
// alarm.Count.
type Store interface {
	LoadBrightness() (Brightness, error)
	SaveBrightness(b Brightness) error
	LoadAlarm(n int) (alarm.Setting, error)
	SaveAlarm(n int, s alarm.Setting) error
}

func checkSlot(n int) error {
	if n < 1 || n > alarm.Count {
		return fmt.Errorf("alarm slot %d out of range 1..%d", n, alarm.Count)
	}
	return nil
}

func (b Brightness) validate() error {
	if b.Level < 0 || b.Level > 100 {
		return fmt.Errorf("brightness level %d out of range", b.Level)
	}
	return nil
}
