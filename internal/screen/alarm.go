package screen

import (
	"fmt"

	"github.com/sweeney/dcf-clock/internal/alarm"
)

const (
	alarmActive = iota
	alarmHour
	alarmMinute
	alarmDay1
	alarmDay7 = alarmDay1 + 6
)

var alarmFields = [...]field{
	alarmActive:   {5, 0, 3},
	alarmHour:     {9, 0, 2},
	alarmMinute:   {12, 0, 2},
	alarmDay1:     {1, 1, 1},
	alarmDay1 + 1: {3, 1, 1},
	alarmDay1 + 2: {5, 1, 1},
	alarmDay1 + 3: {7, 1, 1},
	alarmDay1 + 4: {9, 1, 1},
	alarmDay1 + 5: {11, 1, 1},
	alarmDay7:     {13, 1, 1},
}

// AlarmSetting edits one alarm slot.
type AlarmSetting struct {
	number int
	active int
	data   alarm.Setting
}

// NewAlarmSetting starts slot number from a stored record.
func NewAlarmSetting(number int, data alarm.Setting) *AlarmSetting {
	return &AlarmSetting{number: number, data: data}
}

// Number returns the slot number, starting at 1.
func (s *AlarmSetting) Number() int {
	return s.number
}

// Data returns the edited record.
func (s *AlarmSetting) Data() alarm.Setting {
	return s.data
}

// SetData replaces the record, for example after a reload.
func (s *AlarmSetting) SetData(data alarm.Setting) {
	s.data = data
}

func (s *AlarmSetting) First() {
	s.active = alarmActive
}

func (s *AlarmSetting) Next() {
	if s.active == alarmDay7 {
		s.active = alarmActive
		return
	}
	s.active++
}

func (s *AlarmSetting) Line(row int, d Data) string {
	var line string
	if row == 0 {
		state := "OFF"
		if s.data.Active {
			state = " ON"
		}
		line = fmt.Sprintf("%sA%d: %3s %02d:%02d", CharSettings, s.number, state, s.data.Hour, s.data.Min)
	} else {
		b := []byte(" S M T W T F S")
		for i, on := range s.data.Days {
			if !on {
				b[alarmFields[alarmDay1+i].col] = '.'
			}
		}
		line = string(b)
	}
	return blank(line, alarmFields[s.active], row, d)
}

// Modify toggles the alarm or a day, or steps hour and minute with
// wrap-around.
func (s *AlarmSetting) Modify(step int) {
	switch s.active {
	case alarmActive:
		s.data.Active = !s.data.Active
	case alarmHour:
		s.data.Hour = cycle(s.data.Hour, step, 0, 23)
	case alarmMinute:
		s.data.Min = cycle(s.data.Min, step, 0, 59)
	default:
		day := s.active - alarmDay1
		s.data.Days[day] = !s.data.Days[day]
	}
}
