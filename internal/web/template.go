package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/dcf-clock/internal/status"
)

var weekdays = [7]string{"Su", "Mo", "Tu", "We", "Th", "Fr", "Sa"}

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"days": func(d [7]bool) string {
		out := ""
		for i := 1; i <= 7; i++ {
			if d[i%7] {
				out += weekdays[i%7] + " "
			}
		}
		if out == "" {
			return "never"
		}
		return out[:len(out)-1]
	},
	"inc": func(i int) int { return i + 1 },
	"celsius": func(t *float64) string {
		if t == nil {
			return "measuring"
		}
		return fmt.Sprintf("%.1f \u00b0C", *t)
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="10">
<title>DCF77 Clock</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.on { color: green; font-weight: bold; }
.off { color: #888; }
.unknown { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>DCF77 Clock</h1>
{{with .Clock}}
<h2>Time</h2>
<table>
<tr><th>Clock</th><td id="time">{{.Time}}</td></tr>
<tr><th>Synchronized</th><td class="{{if .Synced}}on{{else}}unknown{{end}}">{{if .Synced}}{{.LastSync}}{{else}}no{{end}}</td></tr>
<tr><th>Drift</th><td>{{.DriftMs}}ms</td></tr>
<tr><th>Screen</th><td>{{.Screen}}</td></tr>
<tr><th>Temperature</th><td>{{celsius .Temperature}}</td></tr>
<tr><th>Brightness</th><td>{{.Level}}% ({{if .Brightness.Manual}}manual{{else}}auto{{end}})</td></tr>
</table>

<h2>DCF77 Receiver</h2>
<table>
<tr><th>Receiver</th><td class="{{if .DCF.On}}on{{else}}off{{end}}">{{if .DCF.On}}ON{{else}}OFF{{end}}</td></tr>
<tr><th>Frame</th><td>{{if .DCF.Streaming}}receiving bit {{.DCF.Cursor}}{{else}}waiting for minute mark{{end}}</td></tr>
<tr><th>Frames decoded</th><td>{{.DCF.Stats.Frames}}</td></tr>
<tr><th>Bits received</th><td>{{.DCF.Stats.Bits}}</td></tr>
<tr><th>Bits failed</th><td>{{.DCF.Stats.Failed}}</td></tr>
<tr><th>Frame errors</th><td>{{.DCF.Stats.ParityErrors}} parity, {{.DCF.Stats.CountErrors}} bit count</td></tr>
<tr><th>Pulse width</th><td>p50 {{.DCF.Stats.WidthP50}}ms, p90 {{.DCF.Stats.WidthP90}}ms</td></tr>
</table>

<h2>Alarms</h2>
<table>
{{range $i, $a := .Alarms}}<tr><th>Alarm {{inc $i}}</th><td class="{{if $a.Active}}on{{else}}off{{end}}">{{printf "%02d:%02d" $a.Hour $a.Min}} {{days $a.Days}}{{if not $a.Active}} (off){{end}}</td></tr>
{{end}}</table>
{{if .Ringing}}<p class="on">Alarm ringing</p>{{end}}
{{else}}
<p class="unknown">Clock not running yet</p>
{{end}}
<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{if .Config.Broker}}{{.Config.Broker}}{{else}}disabled{{end}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Poll</th><td>{{.Config.PollMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>Backup RTC</th><td>{{if .Config.Backup}}yes{{else}}no{{end}}</td></tr>
<tr><th>Settings</th><td>{{.Config.SettingsFile}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPPort}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> <a href="/metrics">Metrics</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
		Clock  *status.ClockJSON
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
		Clock:    status.BuildClock(snap),
	}
	indexTmpl.Execute(w, data)
}
