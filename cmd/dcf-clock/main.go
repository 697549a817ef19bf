// Command dcf-clock runs the DCF77 radio clock: it keeps time from two tick
// sources, decodes the longwave time signal, drives the displays and sounds
// the alarms. State changes are published to MQTT and served over HTTP.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alexflint/go-arg"
	"go.uber.org/zap"
	"periph.io/x/periph/conn/physic"

	"github.com/sweeney/dcf-clock/internal/calendar"
	"github.com/sweeney/dcf-clock/internal/clock"
	"github.com/sweeney/dcf-clock/internal/config"
	"github.com/sweeney/dcf-clock/internal/device"
	"github.com/sweeney/dcf-clock/internal/gpio"
	"github.com/sweeney/dcf-clock/internal/irq"
	"github.com/sweeney/dcf-clock/internal/logging"
	"github.com/sweeney/dcf-clock/internal/mqtt"
	"github.com/sweeney/dcf-clock/internal/rtc"
	"github.com/sweeney/dcf-clock/internal/settings"
	"github.com/sweeney/dcf-clock/internal/status"
	"github.com/sweeney/dcf-clock/internal/web"
)

// Display geometry of the clock board.
const (
	lcdWidth      = 16
	lcdHeight     = 2
	segmentDigits = 4
	rtcAttempts   = 100
)

var spiFreq = physic.MegaHertz

func main() {
	cfg, p, err := config.Parse(os.Args[1:])
	switch {
	case errors.Is(err, arg.ErrHelp):
		p.WriteHelp(os.Stdout)
		os.Exit(0)
	case errors.Is(err, arg.ErrVersion):
		fmt.Println(cfg.Version())
		os.Exit(0)
	case err != nil:
		if p != nil {
			p.Fail(err.Error())
		}
		fmt.Fprintf(os.Stderr, "dcf-clock: %v\n", err)
		os.Exit(2)
	}

	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg config.Config) error {
	var tee io.Writer
	if cfg.SerialDebug != "" {
		port, err := logging.OpenSerial(cfg.SerialDebug, cfg.SerialBaud)
		if err != nil {
			return err
		}
		defer port.Close()
		tee = port
	}
	log, err := logging.New(cfg.Verbose, tee)
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer log.Sync()

	if err := device.InitHost(); err != nil {
		return err
	}

	chip, err := gpio.OpenChip(cfg.Chip)
	if err != nil {
		return err
	}
	defer chip.Close()

	mask := &irq.Mask{}
	dev, closeBuses, err := openDevices(cfg, chip, log)
	if err != nil {
		return err
	}
	defer closeBuses()

	engine := rtc.NewEngine(mask)
	engine.SetTime(initialTime(dev.Backup, log))

	store, err := settings.OpenFileStore(cfg.SettingsFile, mask)
	if err != nil {
		return err
	}

	ctrl := clock.New(engine, mask, dev, store, log)
	if cfg.SetSystem {
		ctrl.SetSystemClock(setSystemClock)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := startTicks(ctx, cfg, chip, engine); err != nil {
		return err
	}
	_, err = chip.Watch(cfg.PinDCFData, false, func(e gpio.Edge) {
		// The decoder wants the level of the interval the edge ends.
		ctrl.OnLevelChange(uint64(e.Time.Milliseconds()), !e.Active)
	})
	if err != nil {
		return err
	}
	if err := settings.Watch(ctx, store.Path(), ctrl.RequestReload); err != nil {
		log.Warn("Settings are not reloaded on change", zap.Error(err))
	}

	var publisher interface {
		mqtt.Publisher
		mqtt.ConnectionStatus
	} = offline{}
	if cfg.Broker != "" {
		pub, err := mqtt.NewRealPublisher(cfg.Broker, log.Named("mqtt"))
		if err != nil {
			return err
		}
		defer pub.Close()
		publisher = pub
	}

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), status.Config{
		PollMs:       cfg.Poll.Milliseconds(),
		HeartbeatMs:  cfg.Heartbeat.Milliseconds(),
		Broker:       cfg.Broker,
		HTTPPort:     cfg.HTTPAddr,
		SettingsFile: cfg.SettingsFile,
		Backup:       dev.Backup != nil,
	})
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}
	tracker.Update(ctrl.Snapshot())

	// Publish startup event with full status snapshot
	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		log.Warn("Failed to publish startup event", zap.Error(err))
	}

	if cfg.HTTPAddr != "" {
		srv := web.New(cfg.HTTPAddr, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error("HTTP server failed", zap.Error(err))
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Info("HTTP status server listening", zap.String("addr", cfg.HTTPAddr))
	}

	ctrl.Start()
	defer ctrl.Shutdown()
	if cfg.DCFOnStart {
		ctrl.SetDCF(true)
	}

	log.Info("Started",
		zap.String("version", cfg.Version()),
		zap.Duration("poll", cfg.Poll.Duration),
		zap.String("broker", cfg.Broker),
		zap.Duration("heartbeat", cfg.Heartbeat.Duration),
		zap.Bool("backup_rtc", dev.Backup != nil))

	ticker := time.NewTicker(cfg.Poll.Duration)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(ctrl, publisher, publisher, tracker, log, cfg.Heartbeat.Duration, time.Now, ticker.C, sigCh)
}

// openDevices opens the buses and lines of the clock board. dev.Backup is nil
// when the board runs without the RTC chip.
func openDevices(cfg config.Config, chip *gpio.Chip, log *zap.Logger) (dev clock.Devices, closeAll func(), err error) {
	var closers []io.Closer
	closeAll = func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i].Close()
		}
	}
	defer func() {
		if err != nil {
			closeAll()
		}
	}()

	inputs := []struct {
		pin *gpio.DigitalPin
		n   int
	}{
		{&dev.Mode, cfg.PinMode},
		{&dev.Select, cfg.PinSelect},
		{&dev.Plus, cfg.PinPlus},
		{&dev.Minus, cfg.PinMinus},
	}
	for _, in := range inputs {
		l, err := chip.Input(in.n, true)
		if err != nil {
			return dev, closeAll, err
		}
		*in.pin = l
	}

	outputs := make([]gpio.DigitalPin, 0, 6)
	for _, n := range append([]int{cfg.PinBuzzer, cfg.PinDCFPower}, cfg.PinLEDs[:]...) {
		// The receiver is switched on by pulling its power line low.
		l, err := chip.Output(n, n == cfg.PinDCFPower)
		if err != nil {
			return dev, closeAll, err
		}
		outputs = append(outputs, l)
	}
	dev.Buzzer = outputs[0]
	dev.DCFPower = gpio.Group{outputs[1], outputs[5]}
	dev.SecondsLED, dev.BitReceivedLED, dev.BitFailedLED = outputs[2], outputs[3], outputs[4]

	bus, err := device.OpenI2C(cfg.I2CBus)
	if err != nil {
		return dev, closeAll, err
	}
	closers = append(closers, bus)
	lcd, err := device.NewLCD(bus, cfg.LCDAddr, lcdWidth, lcdHeight)
	if err != nil {
		return dev, closeAll, err
	}
	dev.Display = lcd

	ports := make([]*device.SPIPort, 0, 3)
	for _, name := range []string{cfg.SegmentSPI, cfg.DACSPI, cfg.ADCSPI} {
		port, err := device.OpenSPI(name, spiFreq)
		if err != nil {
			return dev, closeAll, err
		}
		closers = append(closers, port)
		ports = append(ports, port)
	}
	dev.Segments = device.NewShiftRegisterDisplay(ports[0], device.ClockMask, segmentDigits)
	dev.Brightness = device.NewMCP4901(ports[1], true)
	dev.Sensor = device.NewMCP3008(ports[2])

	if !cfg.NoBackup {
		backup, err := device.NewPCF8523(bus, rtcAttempts)
		if err != nil {
			return dev, closeAll, err
		}
		dev.Backup = backup
		log.Info("Backup RTC ready")
	}
	return dev, closeAll, nil
}

// initialTime seeds the clock from the backup RTC, or from the host clock
// converted to local wall time.
func initialTime(backup device.BackupClock, log *zap.Logger) calendar.Epoch {
	if backup != nil {
		t, err := backup.Now()
		if err == nil {
			return calendar.FromTime(t)
		}
		log.Warn("Backup RTC unreadable, using host time", zap.Error(err))
	}
	return wallClock(time.Now())
}

// wallClock returns the local wall time of t as epoch seconds.
func wallClock(t time.Time) calendar.Epoch {
	_, offset := t.Zone()
	return calendar.FromTime(t.Add(time.Duration(offset) * time.Second))
}

// startTicks drives the clock engine. The precise tick comes from the 1 Hz
// output of the backup RTC when a PPS pin is configured, otherwise from a
// host timer.
func startTicks(ctx context.Context, cfg config.Config, chip *gpio.Chip, engine *rtc.Engine) error {
	if cfg.PinPPS < 0 {
		fast, precise, stop := rtc.NewHostTicker(time.Millisecond, time.Second)
		go func() {
			rtc.Run(ctx, engine, fast, precise)
			stop()
		}()
		return nil
	}

	_, err := chip.Watch(cfg.PinPPS, false, func(e gpio.Edge) {
		if e.Active {
			engine.PreciseTick()
		}
	})
	if err != nil {
		return err
	}
	fast := time.NewTicker(time.Millisecond)
	go func() {
		rtc.Run(ctx, engine, fast.C, nil)
		fast.Stop()
	}()
	return nil
}

// Clock is the part of the controller driven by runLoop.
type Clock interface {
	Periodic()
	TakeEvents() []clock.Event
	Snapshot() clock.Snapshot
}

func runLoop(ctrl Clock, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, log *zap.Logger, heartbeat time.Duration, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) error {
	lastHeartbeat := now()
	var lastUpdate time.Time

	refresh := func() {
		if tracker == nil {
			return
		}
		tracker.Update(ctrl.Snapshot())
		if mqttStatus != nil {
			tracker.SetMQTTConnected(mqttStatus.IsConnected())
		}
	}

	for {
		select {
		case s := <-sig:
			log.Info("Shutting down", zap.Stringer("signal", s))
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			event := mqtt.SystemEvent{
				Timestamp: now(),
				Event:     "SHUTDOWN",
				Reason:    signalName,
				Retained:  true,
			}
			if tracker != nil {
				refresh()
				event.RawPayload = status.FormatStatusEvent(tracker.Snapshot(), "SHUTDOWN", signalName)
			}
			if err := publisher.PublishSystem(event); err != nil {
				log.Warn("Failed to publish shutdown event", zap.Error(err))
			}
			return nil

		case <-tick:
			t := now()
			ctrl.Periodic()

			for _, event := range ctrl.TakeEvents() {
				log.Info("Event", zap.String("type", string(event.Type)), zap.String("detail", event.Detail))
				if err := publisher.Publish(event); err != nil {
					// Don't crash on publish failure
					log.Warn("Publish failed", zap.Error(err))
				}
			}

			if t.Sub(lastUpdate) >= time.Second {
				refresh()
				lastUpdate = t
			}

			if heartbeat > 0 && t.Sub(lastHeartbeat) >= heartbeat {
				lastHeartbeat = t
				hbEvent := mqtt.SystemEvent{
					Timestamp: t,
					Event:     "HEARTBEAT",
				}
				if tracker != nil {
					// Refresh network info for heartbeat
					if net := readNetworkInfo(); net != nil {
						tracker.SetNetwork(net)
					}
					refresh()
					hbEvent.RawPayload = status.FormatStatusEvent(tracker.Snapshot(), "HEARTBEAT", "")
				}
				log.Debug("Heartbeat")
				if err := publisher.PublishSystem(hbEvent); err != nil {
					log.Warn("Heartbeat publish failed", zap.Error(err))
				}
			}
		}
	}
}

// offline stands in for the publisher when no broker is configured.
type offline struct{}

func (offline) Publish(clock.Event) error            { return nil }
func (offline) PublishSystem(mqtt.SystemEvent) error { return nil }
func (offline) Close() error                         { return nil }
func (offline) IsConnected() bool                    { return false }

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}
