// Package button turns a polled digital input into short and long presses.
package button

import (
	"github.com/sweeney/dcf-clock/internal/event"
	"github.com/sweeney/dcf-clock/internal/gpio"
)

// Default timings in milliseconds.
const (
	DefaultPressDelay     = 50
	DefaultLongPressDelay = 1500

	// After this many long presses the repeat rate is multiplied by accelFactor.
	accelAfter  = 2
	accelFactor = 6
)

// Button is a push button read through a DigitalPin. The pin reports the
// logical level, so true means pressed.
type Button struct {
	pin   gpio.DigitalPin
	clock event.Clock

	pressDelay     uint64
	longPressDelay uint64

	held      bool
	pressTime uint64
	ref       uint64
	processed bool
	longCount int
}

// New creates a button with the given debounce and long-press delays.
func New(pin gpio.DigitalPin, clock event.Clock, pressDelay, longPressDelay uint64) *Button {
	return &Button{
		pin:            pin,
		clock:          clock,
		pressDelay:     pressDelay,
		longPressDelay: longPressDelay,
	}
}

// sample reads the pin and tracks the press. A read error counts as released.
func (b *Button) sample() (uint64, bool) {
	now := b.clock.Millis()
	on, err := b.pin.Get()
	if err != nil || !on {
		b.held = false
		b.processed = false
		b.longCount = 0
		return now, false
	}
	if !b.held || now < b.pressTime {
		b.held = true
		b.pressTime = now
		b.ref = now
	}
	if now < b.ref {
		b.ref = now
	}
	return now, true
}

// IsPressed reports a press held for at least the debounce delay. It keeps
// reporting until SetProcessed is called, then stays quiet until the button
// is released and pressed again.
func (b *Button) IsPressed() bool {
	now, held := b.sample()
	if !held || b.processed {
		return false
	}
	return now-b.pressTime >= b.pressDelay
}

// IsLongPressed reports once each time the button has been held for the
// long press delay since the last report. From the third report on the
// delay is divided by six.
func (b *Button) IsLongPressed() bool {
	now, held := b.sample()
	if !held {
		return false
	}
	threshold := b.longPressDelay
	if b.longCount >= accelAfter {
		threshold /= accelFactor
	}
	if now-b.ref < threshold {
		return false
	}
	b.ref = now
	b.longCount++
	return true
}

// LongCount returns how many long presses the current press has reported.
func (b *Button) LongCount() int {
	return b.longCount
}

// SetProcessed marks the current short press as handled.
func (b *Button) SetProcessed() {
	b.processed = true
}

// ResetTime re-anchors the long press timing to now.
func (b *Button) ResetTime() {
	now := b.clock.Millis()
	b.ref = now
	if b.held {
		b.pressTime = now
	}
}
