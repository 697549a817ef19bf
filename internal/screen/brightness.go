package screen

import (
	"fmt"

	"github.com/sweeney/dcf-clock/internal/settings"
)

const (
	brightnessMode = iota
	brightnessLevel
)

var brightnessFields = [...]field{
	brightnessMode:  {1, 1, 4},
	brightnessLevel: {6, 1, 3},
}

// BrightnessSetting edits the display brightness record.
type BrightnessSetting struct {
	active int
	data   settings.Brightness
}

// NewBrightnessSetting starts from a stored record.
func NewBrightnessSetting(data settings.Brightness) *BrightnessSetting {
	return &BrightnessSetting{data: data}
}

// Data returns the edited record.
func (s *BrightnessSetting) Data() settings.Brightness {
	return s.data
}

// SetData replaces the record, for example after a reload.
func (s *BrightnessSetting) SetData(data settings.Brightness) {
	s.data = data
}

func (s *BrightnessSetting) First() {
	s.active = brightnessMode
}

// Next only reaches the level field in manual mode.
func (s *BrightnessSetting) Next() {
	if s.data.Manual && s.active == brightnessMode {
		s.active = brightnessLevel
		return
	}
	s.active = brightnessMode
}

func (s *BrightnessSetting) Line(row int, d Data) string {
	if row == 0 {
		return CharSettings + "Brightness:"
	}
	line := " AUTO      "
	if s.data.Manual {
		line = fmt.Sprintf(" MAN: %3d%%", s.data.Level)
	}
	return blank(line, brightnessFields[s.active], row, d)
}

// Modify toggles the mode or steps the manual level through 0..100.
func (s *BrightnessSetting) Modify(step int) {
	if s.active == brightnessMode {
		s.data.Manual = !s.data.Manual
		return
	}
	s.data.Level = cycle(s.data.Level, step, 0, 100)
}
