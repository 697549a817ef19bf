package alarm

import (
	"go.uber.org/zap"

	"github.com/sweeney/dcf-clock/internal/event"
	"github.com/sweeney/dcf-clock/internal/gpio"
)

// Pattern timings in milliseconds.
const (
	onDuration     = 75
	pause1Duration = 100
	pause2Duration = 300

	// RestartGuard blocks a new start for this long after the last one, so
	// an alarm matching a whole minute starts only once.
	RestartGuard = 60000
)

type buzzerState int

const (
	stateOff buzzerState = iota
	stateOn1
	statePause1
	stateOn2
	statePause2
)

// Buzzer plays a double-beep pattern on a piezo element without blocking.
// Tick must be called from the main loop.
type Buzzer struct {
	pin    gpio.DigitalPin
	clock  event.Clock
	logger *zap.Logger

	state     buzzerState
	started   bool
	startTime uint64
	stateTime uint64
	maxNumber int
	number    int
}

// NewBuzzer creates a silent buzzer.
func NewBuzzer(pin gpio.DigitalPin, clock event.Clock, logger *zap.Logger) *Buzzer {
	return &Buzzer{
		pin:    pin,
		clock:  clock,
		logger: logger,
	}
}

// Start plays the pattern n times. It is ignored while ringing and within
// RestartGuard of the previous start.
func (b *Buzzer) Start(n int) {
	if b.state != stateOff {
		return
	}
	now := b.clock.Millis()
	if b.started && now >= b.startTime && now < b.startTime+RestartGuard {
		return
	}
	b.maxNumber = n
	b.number = 0
	b.started = true
	b.startTime = now
	b.enter(stateOn1, now)
}

// Tick advances the pattern.
func (b *Buzzer) Tick() {
	if b.state == stateOff {
		return
	}
	now := b.clock.Millis()
	if now < b.stateTime {
		b.stateTime = now
	}
	elapsed := now - b.stateTime

	switch b.state {
	case stateOn1:
		if elapsed > onDuration {
			b.enter(statePause1, now)
		}
	case statePause1:
		if elapsed > pause1Duration {
			b.enter(stateOn2, now)
		}
	case stateOn2:
		if elapsed > onDuration {
			b.enter(statePause2, now)
		}
	case statePause2:
		if elapsed > pause2Duration {
			b.number++
			if b.number >= b.maxNumber {
				b.Stop()
			} else {
				b.enter(stateOn1, now)
			}
		}
	}
}

// Stop silences the buzzer and reports whether it was ringing.
func (b *Buzzer) Stop() bool {
	wasActive := b.state != stateOff
	b.state = stateOff
	b.number = 0
	b.drive(false)
	return wasActive
}

// ResetTime lifts the restart guard.
func (b *Buzzer) ResetTime() {
	b.started = false
}

// Ringing reports whether the pattern is playing.
func (b *Buzzer) Ringing() bool {
	return b.state != stateOff
}

func (b *Buzzer) enter(s buzzerState, now uint64) {
	b.state = s
	b.stateTime = now
	b.drive(s == stateOn1 || s == stateOn2)
}

func (b *Buzzer) drive(on bool) {
	if err := b.pin.Set(on); err != nil {
		b.logger.Warn("buzzer pin write failed", zap.Error(err))
	}
}
