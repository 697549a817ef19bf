// Package clock is the cooperative scheduler of the clock. Periodic runs one
// non-blocking iteration of the main loop: it reads the buttons, refreshes
// the displays, applies DCF77 time and sounds alarms.
package clock

import (
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/sweeney/dcf-clock/internal/alarm"
	"github.com/sweeney/dcf-clock/internal/button"
	"github.com/sweeney/dcf-clock/internal/calendar"
	"github.com/sweeney/dcf-clock/internal/dcf77"
	"github.com/sweeney/dcf-clock/internal/device"
	"github.com/sweeney/dcf-clock/internal/event"
	"github.com/sweeney/dcf-clock/internal/gpio"
	"github.com/sweeney/dcf-clock/internal/irq"
	"github.com/sweeney/dcf-clock/internal/screen"
	"github.com/sweeney/dcf-clock/internal/sensor"
	"github.com/sweeney/dcf-clock/internal/settings"
)

// Screens in the order the Mode button cycles through them.
const (
	ScreenHome = iota
	ScreenTime
	ScreenBrightness
	ScreenAlarm1
	ScreenAlarm2
	ScreenAlarm3
	screenCount
)

var screenNames = [screenCount]string{"home", "time", "brightness", "alarm1", "alarm2", "alarm3"}

// Periods in milliseconds.
const (
	SecondPeriod     = 1000
	HeartbeatPeriod  = 500
	BlinkPeriod      = 250
	BlinkCount       = 3
	ReturnHomeDelay  = 30000
	CorrectionPeriod = 4870000

	// AlarmRepeats is the number of buzzer patterns played by an alarm.
	AlarmRepeats = 15
)

// RTC is the time source of the controller.
type RTC interface {
	Millis() uint64
	Seconds() calendar.Epoch
	SetTime(sec calendar.Epoch)
	ErrorMs() int
}

// Devices are the peripherals driven by the controller.
type Devices struct {
	Display    device.Display
	Segments   device.SegmentDisplay
	Brightness device.Brightness
	Sensor     device.Sensor
	// Backup is optional. It is written after each time change.
	Backup device.BackupClock

	Mode, Select, Plus, Minus gpio.DigitalPin

	Buzzer   gpio.DigitalPin
	DCFPower gpio.DigitalPin

	SecondsLED     gpio.DigitalPin
	BitReceivedLED gpio.DigitalPin
	BitFailedLED   gpio.DigitalPin
}

// Controller owns the user interface state. Periodic and the other
// exported methods, except OnEdge and OnLevelChange, must be called from
// the main loop goroutine.
type Controller struct {
	rtc   RTC
	mask  *irq.Mask
	dev   Devices
	store settings.Store
	log   *zap.Logger

	decoder *dcf77.Decoder
	edge    edgeState
	buzzer  *alarm.Buzzer

	mode, sel, plus, minus *button.Button

	second     *event.Periodic
	heartbeat  *event.Periodic
	blink      *event.Periodic
	returnHome *event.Periodic
	correction *event.Periodic

	home        screen.Home
	timeSetting screen.TimeSetting
	brightness  *screen.BrightnessSetting
	alarms      [alarm.Count]*screen.AlarmSetting
	screens     [screenCount]screen.Screen
	active      int
	visible     bool
	dayTime     calendar.Tm

	thermistor sensor.Thermistor
	level      int
	secondsLED bool

	synced   bool
	lastSync calendar.Epoch

	reload    chan struct{}
	events    []Event
	setSystem func(time.Time) error
}

// New creates a controller on the home screen with DCF77 reception off.
// Records missing from store fall back to the defaults.
func New(rtc RTC, mask *irq.Mask, dev Devices, store settings.Store, logger *zap.Logger) *Controller {
	c := &Controller{
		rtc:    rtc,
		mask:   mask,
		dev:    dev,
		store:  store,
		log:    logger.Named("clock"),
		buzzer: alarm.NewBuzzer(dev.Buzzer, rtc, logger.Named("buzzer")),
		level:  -1,
		reload: make(chan struct{}, 1),
	}
	c.decoder = dcf77.New(receiverEvents{state: &c.edge, log: logger.Named("dcf77")}, powerLine{dev.DCFPower})

	c.mode = button.New(dev.Mode, rtc, button.DefaultPressDelay, button.DefaultLongPressDelay)
	c.sel = button.New(dev.Select, rtc, button.DefaultPressDelay, button.DefaultLongPressDelay)
	c.plus = button.New(dev.Plus, rtc, button.DefaultPressDelay, button.DefaultLongPressDelay)
	c.minus = button.New(dev.Minus, rtc, button.DefaultPressDelay, button.DefaultLongPressDelay)

	c.second = event.New(rtc, SecondPeriod, event.Unbounded)
	c.heartbeat = event.New(rtc, HeartbeatPeriod, 1)
	c.blink = event.New(rtc, BlinkPeriod, BlinkCount)
	c.returnHome = event.New(rtc, ReturnHomeDelay, 1)
	c.correction = event.New(rtc, CorrectionPeriod, 1)
	// The clock may already be seeded; the first window starts now.
	c.correction.ResetTime()

	c.brightness = screen.NewBrightnessSetting(settings.DefaultBrightness())
	defaults := alarm.Defaults()
	for i := range c.alarms {
		c.alarms[i] = screen.NewAlarmSetting(i+1, defaults[i])
	}
	c.screens = [screenCount]screen.Screen{
		ScreenHome:       &c.home,
		ScreenTime:       &c.timeSetting,
		ScreenBrightness: c.brightness,
		ScreenAlarm1:     c.alarms[0],
		ScreenAlarm2:     c.alarms[1],
		ScreenAlarm3:     c.alarms[2],
	}
	c.loadSettings()
	return c
}

// SetSystemClock installs a function that receives every DCF77 time, for
// example to set the host clock.
func (c *Controller) SetSystemClock(fn func(time.Time) error) {
	c.setSystem = fn
}

// Start shows the greeting and sounds a single beep.
func (c *Controller) Start() {
	c.check("lcd", c.dev.Display.WriteLine(0, "Hello!"))
	c.check("segment display", c.dev.Segments.WriteDigits("0000"))
	c.buzzer.Start(1)
}

// Shutdown silences the buzzer and switches the receiver and the LEDs off.
func (c *Controller) Shutdown() {
	c.buzzer.Stop()
	c.mask.Run(func() {
		c.check("dcf77 receiver", c.decoder.TurnOff())
	})
	for _, led := range []gpio.DigitalPin{c.dev.SecondsLED, c.dev.BitReceivedLED, c.dev.BitFailedLED} {
		c.check("led", led.Set(false))
	}
}

// OnEdge feeds one receiver edge, measured by the caller, to the decoder.
// It may be called from any goroutine.
func (c *Controller) OnEdge(elapsedMs uint32, active bool) {
	state := c.mask.Disable()
	c.decoder.OnEdge(elapsedMs, active)
	c.mask.Restore(state)
}

// OnLevelChange feeds an edge timestamped in milliseconds on any monotonic
// scale. It may be called from any goroutine.
func (c *Controller) OnLevelChange(nowMs uint64, active bool) {
	state := c.mask.Disable()
	c.decoder.OnLevelChange(nowMs, active)
	c.mask.Restore(state)
}

// RequestReload asks for the settings to be reloaded from the store on the
// next second. It may be called from any goroutine.
func (c *Controller) RequestReload() {
	select {
	case c.reload <- struct{}{}:
	default:
	}
}

// SetDCF switches DCF77 reception on or off.
func (c *Controller) SetDCF(on bool) {
	c.dcfActivate(on)
	if on {
		c.emit(EventDCFOn, "")
	} else {
		c.emit(EventDCFOff, "")
	}
}

// TakeEvents returns the events since the previous call.
func (c *Controller) TakeEvents() []Event {
	events := c.events
	c.events = nil
	return events
}

// Periodic runs one iteration of the main loop. The first matching action
// wins; the others wait for a later iteration.
func (c *Controller) Periodic() {
	loopIterations.Inc()
	tel, confirmed := c.serviceReceiver()
	c.buzzer.Tick()

	if confirmed {
		c.applyDCF(tel)
		return
	}
	if c.mode.IsPressed() {
		c.mode.SetProcessed()
		c.returnHome.ResetTime()
		if c.buzzer.Stop() {
			return
		}
		c.check("lcd clear", c.dev.Display.Clear())
		c.active = (c.active + 1) % screenCount
		c.screens[c.active].First()
		c.visible = c.active != ScreenHome
		return
	}
	if c.mode.IsLongPressed() {
		// Repeats while held must not toggle again.
		if c.mode.LongCount() == 1 {
			c.SetDCF(!c.decoder.IsOn())
			c.setHomeScreen()
		}
		return
	}
	if c.sel.IsPressed() {
		c.sel.SetProcessed()
		c.returnHome.ResetTime()
		if c.buzzer.Stop() {
			return
		}
		c.screens[c.active].Next()
		c.blink.ResetTime()
		c.visible = true
		c.updateLCD(false)
		return
	}
	if c.step(c.plus, 1) || c.step(c.minus, -1) {
		return
	}
	if c.second.Occurred() {
		c.onSecond()
		return
	}
	if c.heartbeat.Occurred() {
		c.toggleSecondsLED()
	}
	if c.active != ScreenHome {
		if c.blink.Occurred() {
			c.updateLCD(true)
		} else if c.returnHome.Occurred() {
			c.setHomeScreen()
		}
	}
}

// step handles a Plus or Minus press. It reports whether b was pressed.
func (c *Controller) step(b *button.Button, s int) bool {
	if !b.IsPressed() && !b.IsLongPressed() {
		return false
	}
	b.SetProcessed()
	if c.buzzer.Stop() {
		return true
	}
	c.modifyActive(s)
	c.returnHome.ResetTime()
	return true
}

// serviceReceiver drains the flags set in the edge context.
func (c *Controller) serviceReceiver() (dcf77.Telegram, bool) {
	state := c.mask.Disable()
	s := c.edge
	c.edge.beep = false
	c.edge.bitReceived = false
	c.edge.bitFailed = false
	c.mask.Restore(state)

	if s.bitReceived {
		c.check("led", c.dev.BitReceivedLED.Set(true))
	}
	if s.bitFailed {
		c.check("led", c.dev.BitFailedLED.Set(true))
	}
	if s.beep {
		c.buzzer.Start(1)
	}
	return s.last, s.confirmed
}

func (c *Controller) applyDCF(t dcf77.Telegram) {
	c.dcfActivate(false)
	tm := t.Tm()
	sec := calendar.Compose(&tm)
	c.synced = true
	c.lastSync = sec
	c.rtc.SetTime(sec)
	c.resetEvents()
	dcfSyncs.Inc()
	c.log.Info("time set from DCF77", zap.Stringer("telegram", t))
	c.emit(EventDCFSync, t.String())
	c.storeTime(sec)

	if c.setSystem != nil {
		c.check("system clock", c.setSystem(calendar.ToTime(sec)))
	}
}

// dcfActivate switches the decoder and forgets any telegram received so far.
func (c *Controller) dcfActivate(on bool) {
	state := c.mask.Disable()
	c.edge.invalidate()
	var err error
	if on {
		err = c.decoder.TurnOn()
	} else {
		err = c.decoder.TurnOff()
	}
	c.mask.Restore(state)

	c.synced = false
	c.check("dcf77 receiver", err)
}

func (c *Controller) onSecond() {
	c.check("led", c.dev.BitReceivedLED.Set(false))
	c.check("led", c.dev.BitFailedLED.Set(false))
	select {
	case <-c.reload:
		c.reloadSettings()
	default:
	}
	c.measureTemperature()
	c.updateLCD(true)
	c.heartbeat.ResetTime()
	c.blink.ResetTime()
	c.toggleSecondsLED()
	if c.dayTime.Sec < 5 {
		c.updateSegments()
	}
	c.updateBrightness()
	if c.correction.Occurred() {
		c.correctSeconds()
		c.correction.ResetTime()
	}
	c.checkAlarms()
}

func (c *Controller) checkAlarms() {
	for _, a := range c.alarms {
		if !a.Data().IsOccurred(c.dayTime) {
			continue
		}
		ringing := c.buzzer.Ringing()
		c.buzzer.Start(AlarmRepeats)
		if !ringing && c.buzzer.Ringing() {
			slot := strconv.Itoa(a.Number())
			alarmsRung.WithLabelValues(slot).Inc()
			c.log.Info("alarm", zap.Int("slot", a.Number()))
			c.emit(EventAlarm, "alarm "+slot)
		}
		return
	}
}

// correctSeconds takes one second off the clock. The quartz of the precise
// tick runs fast by about one second in this period.
func (c *Controller) correctSeconds() {
	field := c.timeSetting.Active()
	c.timeSetting.SetActive(screen.FieldSecond)
	c.timeSetting.Modify(&c.dayTime, -1)
	c.timeSetting.SetActive(field)
	c.rtc.SetTime(calendar.Compose(&c.dayTime))
	c.resetEvents()
	c.log.Debug("seconds corrected", zap.Stringer("time", c.dayTime))
}

func (c *Controller) resetEvents() {
	c.sel.ResetTime()
	c.plus.ResetTime()
	c.minus.ResetTime()
	c.second.ResetTime()
	c.heartbeat.ResetTime()
	c.blink.ResetTime()
	c.correction.ResetTime()
	c.buzzer.ResetTime()
}

func (c *Controller) setHomeScreen() {
	c.active = ScreenHome
	c.screens[c.active].First()
	c.visible = false
	c.updateLCD(false)
}

func (c *Controller) modifyActive(s int) {
	switch c.active {
	case ScreenHome:
		return
	case ScreenTime:
		c.timeSetting.Modify(&c.dayTime, s)
		sec := calendar.Compose(&c.dayTime)
		c.rtc.SetTime(sec)
		c.resetEvents()
		c.updateSegments()
		c.emit(EventTimeSet, c.dayTime.String())
		c.storeTime(sec)
	case ScreenBrightness:
		c.brightness.Modify(s)
		c.updateBrightness()
		c.check("save brightness", c.store.SaveBrightness(c.brightness.Data()))
	default:
		a := c.alarms[c.active-ScreenAlarm1]
		a.Modify(s)
		c.check("save alarm", c.store.SaveAlarm(a.Number(), a.Data()))
	}
	c.visible = true
	c.updateLCD(false)
}

// updateLCD renders the active screen. With toggle set the active field
// changes between shown and hidden afterwards.
func (c *Controller) updateLCD(toggle bool) {
	c.dayTime = calendar.Decompose(c.rtc.Seconds())
	d := c.screenData()
	for row := 0; row < 2; row++ {
		c.check("lcd", c.dev.Display.WriteLine(row, c.screens[c.active].Line(row, d)))
	}
	if toggle {
		c.visible = !c.visible
	}
}

func (c *Controller) screenData() screen.Data {
	var alarms []alarm.Setting
	for _, a := range c.alarms {
		alarms = append(alarms, a.Data())
	}
	return screen.Data{
		Time:          c.dayTime,
		AlarmActive:   alarm.AnyActive(alarms),
		ActiveVisible: c.visible,
		DCFAvailable:  c.synced,
		Temperature:   c.thermistor.Value(),
	}
}

func (c *Controller) updateSegments() {
	s := fmt.Sprintf("%02d%02d", c.dayTime.Hour, c.dayTime.Min)
	c.check("segment display", c.dev.Segments.WriteDigits(s))
}

func (c *Controller) updateBrightness() {
	b := c.brightness.Data()
	level := uint8(b.Level)
	if !b.Manual {
		raw, err := c.dev.Sensor.ReadRaw(sensor.ChannelLight)
		if err != nil {
			c.check("light sensor", err)
			return
		}
		level = sensor.AutoBrightness(raw)
	}
	if err := c.dev.Brightness.SetLevel(level); err != nil {
		c.check("brightness", err)
		return
	}
	c.level = int(level)
	brightnessLevel.Set(float64(level))
}

func (c *Controller) measureTemperature() {
	raw, err := c.dev.Sensor.ReadRaw(sensor.ChannelTemperature)
	if err != nil {
		c.check("temperature sensor", err)
		return
	}
	c.thermistor.Add(raw)
	if c.thermistor.Valid() {
		temperature.Set(c.thermistor.Value())
	}
}

func (c *Controller) toggleSecondsLED() {
	c.secondsLED = !c.secondsLED
	c.check("led", c.dev.SecondsLED.Set(c.secondsLED))
}

func (c *Controller) storeTime(sec calendar.Epoch) {
	if c.dev.Backup == nil {
		return
	}
	c.check("backup rtc", c.dev.Backup.Set(calendar.ToTime(sec)))
}

func (c *Controller) loadSettings() {
	b, err := c.store.LoadBrightness()
	if err != nil {
		c.check("load brightness", err)
	} else {
		c.brightness.SetData(b)
	}
	for _, a := range c.alarms {
		s, err := c.store.LoadAlarm(a.Number())
		if err != nil {
			c.check("load alarm", err)
			continue
		}
		a.SetData(s)
	}
}

func (c *Controller) reloadSettings() {
	if r, ok := c.store.(interface{ Reload() error }); ok {
		if err := r.Reload(); err != nil {
			c.check("reload settings", err)
			return
		}
	}
	c.loadSettings()
	c.log.Info("settings reloaded")
}

func (c *Controller) emit(t EventType, detail string) {
	c.events = append(c.events, Event{Type: t, Time: c.rtc.Seconds(), Detail: detail})
}

func (c *Controller) check(what string, err error) {
	if err != nil {
		c.log.Warn(what+" failed", zap.Error(err))
	}
}

// ActiveScreen returns the index of the screen shown.
func (c *Controller) ActiveScreen() int {
	return c.active
}

// Snapshot returns the state for status reporting.
func (c *Controller) Snapshot() Snapshot {
	s := Snapshot{
		Time:        c.rtc.Seconds(),
		Screen:      screenNames[c.active],
		DriftMs:     c.rtc.ErrorMs(),
		Synced:      c.synced,
		LastSync:    c.lastSync,
		Temperature: c.thermistor.Value(),
		TempValid:   c.thermistor.Valid(),
		Level:       c.level,
		Brightness:  c.brightness.Data(),
		Ringing:     c.buzzer.Ringing(),
	}
	for i, a := range c.alarms {
		s.Alarms[i] = a.Data()
	}
	c.mask.Run(func() {
		s.DCFOn = c.decoder.IsOn()
		s.Streaming = c.decoder.Streaming()
		s.Cursor = c.decoder.Cursor()
		s.DCF = c.decoder.Stats().Snapshot()
	})
	return s
}
