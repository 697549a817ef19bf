package status

import (
	"encoding/json"
	"time"

	"github.com/sweeney/dcf-clock/internal/alarm"
	"github.com/sweeney/dcf-clock/internal/calendar"
	"github.com/sweeney/dcf-clock/internal/dcf77"
	"github.com/sweeney/dcf-clock/internal/settings"
)

// LocalTimeLayout formats the clock's wall time, which carries no zone.
const LocalTimeLayout = "2006-01-02T15:04:05"

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	Clock         *ClockJSON   `json:"clock,omitempty"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Network       *NetworkJSON `json:"network,omitempty"`
	Config        ConfigJSON   `json:"config"`
}

// ClockJSON is the JSON representation of the clock state.
type ClockJSON struct {
	Time        string                     `json:"time"`
	Screen      string                     `json:"screen"`
	DriftMs     int                        `json:"drift_ms"`
	Synced      bool                       `json:"synced"`
	LastSync    string                     `json:"last_sync,omitempty"`
	DCF         DCFJSON                    `json:"dcf"`
	Temperature *float64                   `json:"temperature_c,omitempty"`
	Level       int                        `json:"brightness_percent"`
	Brightness  settings.Brightness        `json:"brightness"`
	Alarms      [alarm.Count]alarm.Setting `json:"alarms"`
	Ringing     bool                       `json:"ringing"`
}

// DCFJSON reports the receiver state and reception counters.
type DCFJSON struct {
	On        bool                `json:"on"`
	Streaming bool                `json:"streaming"`
	Cursor    int                 `json:"cursor"`
	Stats     dcf77.StatsSnapshot `json:"stats"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	PollMs       int64  `json:"poll_ms"`
	HeartbeatMs  int64  `json:"heartbeat_ms"`
	Broker       string `json:"broker"`
	HTTPPort     string `json:"http_port"`
	SettingsFile string `json:"settings_file"`
	Backup       bool   `json:"backup_rtc"`
}

// BuildClock converts the clock part of a snapshot, or returns nil before
// the first update.
func BuildClock(snap Snapshot) *ClockJSON {
	if !snap.Updated {
		return nil
	}
	c := snap.Clock
	out := &ClockJSON{
		Time:    calendar.ToTime(c.Time).Format(LocalTimeLayout),
		Screen:  c.Screen,
		DriftMs: c.DriftMs,
		Synced:  c.Synced,
		DCF: DCFJSON{
			On:        c.DCFOn,
			Streaming: c.Streaming,
			Cursor:    c.Cursor,
			Stats:     c.DCF,
		},
		Level:      c.Level,
		Brightness: c.Brightness,
		Alarms:     c.Alarms,
		Ringing:    c.Ringing,
	}
	if c.Synced {
		out.LastSync = calendar.ToTime(c.LastSync).Format(LocalTimeLayout)
	}
	if c.TempValid {
		temp := c.Temperature
		out.Temperature = &temp
	}
	return out
}

func buildInner(snap Snapshot) StatusInner {
	return StatusInner{
		Clock:         BuildClock(snap),
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Config: ConfigJSON{
			PollMs:       snap.Config.PollMs,
			HeartbeatMs:  snap.Config.HeartbeatMs,
			Broker:       snap.Config.Broker,
			HTTPPort:     snap.Config.HTTPPort,
			SettingsFile: snap.Config.SettingsFile,
			Backup:       snap.Config.Backup,
		},
	}
}

func buildNetwork(snap Snapshot, inner *StatusInner) {
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	buildNetwork(snap, &inner)

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	buildNetwork(snap, &inner)

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
