package main

import (
	"encoding/json"
	"errors"
	"os"
	"strings"
	"syscall"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/sweeney/dcf-clock/internal/calendar"
	"github.com/sweeney/dcf-clock/internal/clock"
	"github.com/sweeney/dcf-clock/internal/device"
	"github.com/sweeney/dcf-clock/internal/mqtt"
	"github.com/sweeney/dcf-clock/internal/status"
)

var _ Clock = (*clock.Controller)(nil)

// TestEnvVarNames verifies the env var constants match what pi-helper writes
// to /run/pi-helper.env.
func TestEnvVarNames(t *testing.T) {
	want := map[string]string{
		"NETWORK_TYPE":        envNetworkType,
		"NETWORK_IP":          envNetworkIP,
		"NETWORK_STATUS":      envNetworkStatus,
		"NETWORK_GATEWAY":     envNetworkGateway,
		"NETWORK_WIFI_STATUS": envNetworkWifiStatus,
		"NETWORK_WIFI_SSID":   envNetworkWifiSSID,
	}
	for canonical, got := range want {
		if got != canonical {
			t.Errorf("env var constant: got %q, want %q", got, canonical)
		}
	}
}

func TestReadNetworkInfoAllSet(t *testing.T) {
	t.Setenv(envNetworkType, "wifi")
	t.Setenv(envNetworkIP, "192.168.1.100")
	t.Setenv(envNetworkStatus, "connected")
	t.Setenv(envNetworkGateway, "192.168.1.1")
	t.Setenv(envNetworkWifiStatus, "connected")
	t.Setenv(envNetworkWifiSSID, "MyNetwork")

	info := readNetworkInfo()
	if info == nil {
		t.Fatal("expected non-nil NetworkInfo")
	}

	want := status.NetworkInfo{
		Type:       "wifi",
		IP:         "192.168.1.100",
		Status:     "connected",
		Gateway:    "192.168.1.1",
		WifiStatus: "connected",
		SSID:       "MyNetwork",
	}
	if *info != want {
		t.Errorf("got %+v, want %+v", *info, want)
	}
}

func TestReadNetworkInfoNoneSet(t *testing.T) {
	t.Setenv(envNetworkStatus, "")
	if info := readNetworkInfo(); info != nil {
		t.Errorf("expected nil when NETWORK_STATUS is unset, got %+v", info)
	}
}

func TestWallClock(t *testing.T) {
	cest := time.FixedZone("CEST", 2*3600)
	got := wallClock(time.Date(2015, 6, 25, 22, 58, 0, 0, cest))
	want := calendar.FromTime(time.Date(2015, 6, 25, 22, 58, 0, 0, time.UTC))
	if got != want {
		t.Errorf("wallClock = %d, want %d", got, want)
	}
}

func TestInitialTimeFromBackup(t *testing.T) {
	stored := time.Date(2015, 6, 25, 22, 58, 7, 0, time.UTC)
	backup := &device.FakeBackupClock{T: stored}

	if got := initialTime(backup, zap.NewNop()); got != calendar.FromTime(stored) {
		t.Errorf("initialTime = %d, want %d", got, calendar.FromTime(stored))
	}
}

func TestInitialTimeBackupErrorFallsBackToHost(t *testing.T) {
	backup := &device.FakeBackupClock{ReadError: errors.New("i2c nack")}

	before := wallClock(time.Now())
	got := initialTime(backup, zap.NewNop())
	if got < before || got > before+2 {
		t.Errorf("initialTime = %d, want about %d", got, before)
	}
	if got := initialTime(nil, zap.NewNop()); got < before {
		t.Errorf("no backup: initialTime = %d, want at least %d", got, before)
	}
}

func TestInitialTimeWithoutBackupChip(t *testing.T) {
	var dev clock.Devices
	if dev.Backup != nil {
		t.Fatal("Devices without a backup chip must hold a nil BackupClock")
	}
	before := wallClock(time.Now())
	if got := initialTime(dev.Backup, zap.NewNop()); got < before || got > before+2 {
		t.Errorf("initialTime = %d, want about %d", got, before)
	}
}

func TestOffline(t *testing.T) {
	var p mqtt.Publisher = offline{}
	if err := p.Publish(clock.Event{Type: clock.EventDCFOn}); err != nil {
		t.Errorf("Publish: %v", err)
	}
	if err := p.PublishSystem(mqtt.SystemEvent{Event: "STARTUP"}); err != nil {
		t.Errorf("PublishSystem: %v", err)
	}
	if (offline{}).IsConnected() {
		t.Error("offline must not report a connection")
	}
}

// --- runLoop tests ---

// fakeClock returns a function that yields start, start+step, start+2*step, ...
// on successive calls. Not safe for concurrent use (only called from runLoop's goroutine).
func fakeClock(start time.Time, step time.Duration) func() time.Time {
	n := 0
	return func() time.Time {
		t := start.Add(time.Duration(n) * step)
		n++
		return t
	}
}

// fakeController hands out queued events, one batch per Periodic call.
type fakeController struct {
	batches  [][]clock.Event
	pending  []clock.Event
	periodic int
	snaps    int
}

func (f *fakeController) Periodic() {
	f.periodic++
	if len(f.batches) > 0 {
		f.pending = append(f.pending, f.batches[0]...)
		f.batches = f.batches[1:]
	}
}

func (f *fakeController) TakeEvents() []clock.Event {
	ev := f.pending
	f.pending = nil
	return ev
}

func (f *fakeController) Snapshot() clock.Snapshot {
	f.snaps++
	return clock.Snapshot{Screen: "home", Level: 100, Cursor: f.periodic}
}

// runRunLoop drives runLoop for nTicks and then delivers signal.
func runRunLoop(t *testing.T, ctrl Clock, pub *mqtt.FakePublisher, tracker *status.Tracker, heartbeat time.Duration, now func() time.Time, nTicks int, signal os.Signal) error {
	t.Helper()
	tick := make(chan time.Time)
	sig := make(chan os.Signal, 1)

	errCh := make(chan error, 1)
	go func() {
		errCh <- runLoop(ctrl, pub, pub, tracker, zap.NewNop(), heartbeat, now, tick, sig)
	}()

	for i := 0; i < nTicks; i++ {
		tick <- time.Time{}
	}
	sig <- signal

	return <-errCh
}

func TestRunLoopPublishesEvents(t *testing.T) {
	ctrl := &fakeController{batches: [][]clock.Event{
		nil,
		{{Type: clock.EventDCFOn}},
		{{Type: clock.EventDCFSync, Detail: "25.06.2015 22:58"}, {Type: clock.EventDCFOff}},
	}}
	pub := mqtt.NewFakePublisher()
	now := fakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), time.Millisecond)

	if err := runRunLoop(t, ctrl, pub, nil, 0, now, 3, syscall.SIGTERM); err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}

	if ctrl.periodic != 3 {
		t.Errorf("Periodic calls: got %d, want 3", ctrl.periodic)
	}
	var got []clock.EventType
	for _, e := range pub.Events {
		got = append(got, e.Type)
	}
	want := []clock.EventType{clock.EventDCFOn, clock.EventDCFSync, clock.EventDCFOff}
	if len(got) != len(want) {
		t.Fatalf("events: got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d: got %s, want %s", i, got[i], want[i])
		}
	}
}

func TestRunLoopShutdownSIGTERM(t *testing.T) {
	ctrl := &fakeController{}
	pub := mqtt.NewFakePublisher()
	tracker := status.NewTracker(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), status.Config{})
	now := fakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), time.Millisecond)

	if err := runRunLoop(t, ctrl, pub, tracker, 0, now, 1, syscall.SIGTERM); err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}

	if len(pub.SystemEvents) != 1 {
		t.Fatalf("expected 1 system event, got %d", len(pub.SystemEvents))
	}
	ev := pub.SystemEvents[0]
	if ev.Event != "SHUTDOWN" || ev.Reason != "SIGTERM" || !ev.Retained {
		t.Errorf("unexpected shutdown event: %+v", ev)
	}

	var parsed status.StatusJSON
	if err := json.Unmarshal(ev.RawPayload, &parsed); err != nil {
		t.Fatalf("invalid payload: %v", err)
	}
	if parsed.Status.Event != "SHUTDOWN" || parsed.Status.Reason != "SIGTERM" {
		t.Errorf("payload: got %+v", parsed.Status)
	}
	if parsed.Status.Clock == nil || parsed.Status.Clock.Screen != "home" {
		t.Error("shutdown payload should carry the clock state")
	}
}

func TestRunLoopShutdownSIGINTWithoutTracker(t *testing.T) {
	pub := mqtt.NewFakePublisher()
	now := fakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), time.Millisecond)

	if err := runRunLoop(t, &fakeController{}, pub, nil, 0, now, 0, syscall.SIGINT); err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}

	if len(pub.SystemEvents) != 1 {
		t.Fatalf("expected 1 system event, got %d", len(pub.SystemEvents))
	}
	if pub.SystemEvents[0].Reason != "SIGINT" {
		t.Errorf("reason: got %q, want SIGINT", pub.SystemEvents[0].Reason)
	}
	if pub.SystemEvents[0].RawPayload != nil {
		t.Error("no tracker, no status payload")
	}
}

func TestRunLoopHeartbeat(t *testing.T) {
	ctrl := &fakeController{}
	pub := mqtt.NewFakePublisher()
	tracker := status.NewTracker(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), status.Config{HeartbeatMs: 300000})
	now := fakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), time.Minute)

	if err := runRunLoop(t, ctrl, pub, tracker, 5*time.Minute, now, 10, syscall.SIGTERM); err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}

	var names []string
	for _, ev := range pub.SystemEvents {
		names = append(names, ev.Event)
	}
	if strings.Join(names, ",") != "HEARTBEAT,HEARTBEAT,SHUTDOWN" {
		t.Fatalf("system events: got %v", names)
	}

	var parsed status.StatusJSON
	if err := json.Unmarshal(pub.SystemEvents[0].RawPayload, &parsed); err != nil {
		t.Fatalf("invalid heartbeat payload: %v", err)
	}
	if parsed.Status.Event != "HEARTBEAT" || parsed.Status.Reason != "" {
		t.Errorf("heartbeat payload: got %+v", parsed.Status)
	}
	if parsed.Status.Clock == nil || parsed.Status.Clock.DCF.Cursor != 5 {
		t.Error("heartbeat should carry a fresh clock snapshot")
	}
}

func TestRunLoopHeartbeatDisabled(t *testing.T) {
	pub := mqtt.NewFakePublisher()
	now := fakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), time.Hour)

	if err := runRunLoop(t, &fakeController{}, pub, nil, 0, now, 5, syscall.SIGTERM); err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}
	if len(pub.SystemEvents) != 1 {
		t.Errorf("expected only SHUTDOWN, got %d system events", len(pub.SystemEvents))
	}
}

func TestRunLoopHeartbeatIncludesNetworkInfo(t *testing.T) {
	t.Setenv(envNetworkStatus, "connected")
	t.Setenv(envNetworkIP, "10.0.0.7")

	pub := mqtt.NewFakePublisher()
	tracker := status.NewTracker(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), status.Config{})
	now := fakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), time.Minute)

	if err := runRunLoop(t, &fakeController{}, pub, tracker, time.Minute, now, 1, syscall.SIGTERM); err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}

	var parsed status.StatusJSON
	if err := json.Unmarshal(pub.SystemEvents[0].RawPayload, &parsed); err != nil {
		t.Fatalf("invalid heartbeat payload: %v", err)
	}
	if parsed.Status.Network == nil || parsed.Status.Network.IP != "10.0.0.7" {
		t.Errorf("network: got %+v", parsed.Status.Network)
	}
}

func TestRunLoopTracksStatusOncePerSecond(t *testing.T) {
	ctrl := &fakeController{}
	pub := mqtt.NewFakePublisher()
	pub.Connected = true
	tracker := status.NewTracker(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), status.Config{})
	now := fakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), 100*time.Millisecond)

	if err := runRunLoop(t, ctrl, pub, tracker, 0, now, 25, syscall.SIGTERM); err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}

	// Ticks at 0.1 s steps: refreshes at 0.1, 1.1 and 2.1 s, plus shutdown.
	if ctrl.snaps != 4 {
		t.Errorf("Snapshot calls: got %d, want 4", ctrl.snaps)
	}
	if !tracker.Snapshot().MQTTConnected {
		t.Error("expected MQTT connection state in tracker")
	}
}

func TestRunLoopPublishError(t *testing.T) {
	ctrl := &fakeController{batches: [][]clock.Event{
		{{Type: clock.EventAlarm, Detail: "alarm 1"}},
		{{Type: clock.EventTimeSet}},
	}}
	pub := mqtt.NewFakePublisher()
	pub.PublishError = errors.New("broker down")
	now := fakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), time.Millisecond)

	if err := runRunLoop(t, ctrl, pub, nil, 0, now, 3, syscall.SIGTERM); err != nil {
		t.Fatalf("runLoop must survive publish errors: %v", err)
	}
	if ctrl.periodic != 3 {
		t.Errorf("Periodic calls: got %d, want 3", ctrl.periodic)
	}
	if len(ctrl.pending) != 0 {
		t.Error("events must be taken even when publishing fails")
	}
}
