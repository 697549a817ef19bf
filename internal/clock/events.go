package clock

import (
	"github.com/sweeney/dcf-clock/internal/alarm"
	"github.com/sweeney/dcf-clock/internal/calendar"
	"github.com/sweeney/dcf-clock/internal/dcf77"
	"github.com/sweeney/dcf-clock/internal/settings"
)

// EventType names something the controller did that is worth reporting.
type EventType string

const (
	EventDCFOn   EventType = "DCF_ON"
	EventDCFOff  EventType = "DCF_OFF"
	EventDCFSync EventType = "DCF_SYNC"
	EventTimeSet EventType = "TIME_SET"
	EventAlarm   EventType = "ALARM"
)

// Event is reported by TakeEvents.
type Event struct {
	Type EventType
	// Time is the clock time when the event happened.
	Time calendar.Epoch
	// Detail is a short human readable description, such as the decoded
	// telegram or the alarm slot.
	Detail string
}

// Snapshot is a point-in-time view of the clock for status reporting.
type Snapshot struct {
	Time        calendar.Epoch
	Screen      string
	DriftMs     int
	DCFOn       bool
	Streaming   bool
	Cursor      int
	Synced      bool
	LastSync    calendar.Epoch
	DCF         dcf77.StatsSnapshot
	Temperature float64
	TempValid   bool
	Level       int
	Brightness  settings.Brightness
	Alarms      [alarm.Count]alarm.Setting
	Ringing     bool
}
