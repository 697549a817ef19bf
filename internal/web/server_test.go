package web

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sweeney/dcf-clock/internal/alarm"
	"github.com/sweeney/dcf-clock/internal/calendar"
	"github.com/sweeney/dcf-clock/internal/clock"
	"github.com/sweeney/dcf-clock/internal/settings"
	"github.com/sweeney/dcf-clock/internal/status"
)

func newTestServer(t *testing.T) (*httptest.Server, *status.Tracker) {
	t.Helper()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := status.Config{
		PollMs:       1,
		HeartbeatMs:  900000,
		Broker:       "tcp://192.168.1.200:1883",
		HTTPPort:     ":80",
		SettingsFile: "/var/lib/dcf-clock/settings.toml",
	}
	tr := status.NewTracker(start, cfg)
	srv := New(":0", tr)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, tr
}

func clockSnapshot() clock.Snapshot {
	return clock.Snapshot{
		Time:        calendar.FromTime(time.Date(2015, 6, 25, 22, 58, 3, 0, time.UTC)),
		Screen:      "home",
		DCFOn:       true,
		Streaming:   true,
		Cursor:      12,
		Temperature: 21.3,
		TempValid:   true,
		Level:       64,
		Brightness:  settings.DefaultBrightness(),
		Alarms:      alarm.Defaults(),
	}
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, string(body)
}

func TestJSONEndpoint(t *testing.T) {
	ts, tr := newTestServer(t)
	tr.Update(clockSnapshot())
	tr.SetMQTTConnected(true)

	resp, body := get(t, ts.URL+"/index.json")

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q, want application/json", ct)
	}

	var sj status.StatusJSON
	if err := json.Unmarshal([]byte(body), &sj); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}

	if sj.Status.Clock == nil {
		t.Fatal("expected clock section")
	}
	if sj.Status.Clock.Time != "2015-06-25T22:58:03" {
		t.Errorf("Clock.Time: got %q", sj.Status.Clock.Time)
	}
	if sj.Status.Clock.Synced {
		t.Error("expected Synced=false")
	}
	if !sj.Status.MQTT.Connected {
		t.Error("expected MQTT.Connected=true")
	}
	if sj.Status.MQTT.Broker != "tcp://192.168.1.200:1883" {
		t.Errorf("MQTT.Broker: got %q, want tcp://192.168.1.200:1883", sj.Status.MQTT.Broker)
	}
	if sj.Status.Config.HeartbeatMs != 900000 {
		t.Errorf("Config.HeartbeatMs: got %d", sj.Status.Config.HeartbeatMs)
	}
}

func TestJSONBeforeFirstUpdate(t *testing.T) {
	ts, _ := newTestServer(t)

	_, body := get(t, ts.URL+"/index.json")

	var sj status.StatusJSON
	if err := json.Unmarshal([]byte(body), &sj); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	if sj.Status.Clock != nil {
		t.Error("expected no clock section before the first update")
	}
}

func TestJSONNetworkInfo(t *testing.T) {
	ts, tr := newTestServer(t)
	tr.SetNetwork(&status.NetworkInfo{
		Type:   "wifi",
		IP:     "192.168.1.42",
		Status: "connected",
		SSID:   "MyNet",
	})

	_, body := get(t, ts.URL+"/index.json")

	var sj status.StatusJSON
	json.Unmarshal([]byte(body), &sj)

	if sj.Status.Network == nil {
		t.Fatal("expected Network in JSON")
	}
	if sj.Status.Network.IP != "192.168.1.42" {
		t.Errorf("Network.IP: got %q, want 192.168.1.42", sj.Status.Network.IP)
	}
}

func TestHTMLEndpointRoot(t *testing.T) {
	ts, tr := newTestServer(t)
	tr.Update(clockSnapshot())

	resp, body := get(t, ts.URL+"/")

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	ct := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type: got %q, want text/html", ct)
	}
	for _, want := range []string{
		"2015-06-25T22:58:03",
		"receiving bit 12",
		"21.3 °C",
		"64% (auto)",
		"06:50 Mo Tu We Th Fr",
		"09:10 Mo Tu We Th Fr (off)",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("page does not contain %q", want)
		}
	}
}

func TestHTMLBeforeFirstUpdate(t *testing.T) {
	ts, _ := newTestServer(t)

	_, body := get(t, ts.URL+"/index.html")

	if !strings.Contains(body, "Clock not running yet") {
		t.Error("expected placeholder before the first update")
	}
}

func TestNotFoundForUnknownPath(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, _ := get(t, ts.URL+"/nonexistent")

	if resp.StatusCode != 404 {
		t.Errorf("status: got %d, want 404", resp.StatusCode)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, body := get(t, ts.URL+"/metrics")

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	if !strings.Contains(body, "dcfclock_dcf77_bits_received_total") {
		t.Error("expected decoder counters in metrics output")
	}
}

func TestStateChangesReflectedInResponse(t *testing.T) {
	ts, tr := newTestServer(t)

	c := clockSnapshot()
	tr.Update(c)

	c.Synced = true
	c.LastSync = c.Time
	tr.Update(c)
	tr.SetMQTTConnected(true)

	_, body := get(t, ts.URL+"/index.json")
	var sj status.StatusJSON
	json.Unmarshal([]byte(body), &sj)

	if !sj.Status.Clock.Synced {
		t.Error("expected Synced=true after update")
	}
	if sj.Status.Clock.LastSync != "2015-06-25T22:58:03" {
		t.Errorf("LastSync: got %q", sj.Status.Clock.LastSync)
	}
	if !sj.Status.MQTT.Connected {
		t.Error("expected MQTT connected after update")
	}
}
