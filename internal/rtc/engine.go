// Package rtc implements the dual-timer real-time clock.
//
// Two independent tick sources drive the clock:
//
//  1. The fast tick, nominally every millisecond, derived from the system
//     clock. It is cheap but drifts.
//  2. The precise tick, nominally every second, derived from an independent
//     32 kHz quartz (or the 1 Hz output of a backup RTC chip).
//
// The fast tick may advance the millisecond counter at most 999 times per
// second; the precise tick ends the second and re-anchors the millisecond
// counter to seconds*1000. The difference between the two sources over the
// last second is kept as a diagnostic error term and never fed back.
package rtc

import (
	"sync/atomic"

	"github.com/sweeney/dcf-clock/internal/calendar"
	"github.com/sweeney/dcf-clock/internal/irq"
)

// MillisPerSecond is the nominal number of fast ticks per precise tick.
const MillisPerSecond = 1000

// maxSyncMs is the last fast tick allowed to advance the millisecond counter
// within one second.
const maxSyncMs = MillisPerSecond - 1

// Engine is the real-time clock. Tick handlers are called from interrupt
// context, i.e. with the Engine's mask held by the caller (see Ticker).
type Engine struct {
	mask *irq.Mask

	// Written with the mask held, readable without it.
	millis  atomic.Uint64
	seconds atomic.Uint32
	errorMs atomic.Int32

	// Only touched by the tick handlers and SetTime, all under the mask.
	syncMs1 uint32
	syncMs2 uint32
}

// NewEngine creates a stopped clock at epoch 0.
func NewEngine(mask *irq.Mask) *Engine {
	return &Engine{mask: mask}
}

// OnFastTick handles the millisecond interrupt. The caller must hold the mask.
func (e *Engine) OnFastTick() {
	if e.syncMs1 < maxSyncMs {
		e.millis.Add(1)
		e.syncMs1++
	}
	e.syncMs2++
}

// OnPreciseTick handles the one-second interrupt. The caller must hold the mask.
func (e *Engine) OnPreciseTick() {
	e.syncMs2++
	e.errorMs.Store(int32(e.syncMs2) - MillisPerSecond)
	sec := e.seconds.Add(1)
	e.millis.Store(uint64(sec) * MillisPerSecond)
	e.syncMs1 = 0
	e.syncMs2 = 0
}

// SetTime overwrites both counters from an epoch value.
func (e *Engine) SetTime(sec calendar.Epoch) {
	state := e.mask.Disable()
	defer e.mask.Restore(state)

	e.seconds.Store(uint32(sec))
	e.millis.Store(uint64(sec) * MillisPerSecond)
	e.syncMs1 = 0
	e.syncMs2 = 0
}

// Millis returns the millisecond counter.
func (e *Engine) Millis() uint64 {
	return e.millis.Load()
}

// Seconds returns the current epoch seconds.
func (e *Engine) Seconds() calendar.Epoch {
	return calendar.Epoch(e.seconds.Load())
}

// Now returns seconds and milliseconds as one consistent pair.
func (e *Engine) Now() (calendar.Epoch, uint64) {
	state := e.mask.Disable()
	defer e.mask.Restore(state)
	return calendar.Epoch(e.seconds.Load()), e.millis.Load()
}

// ErrorMs returns the drift of the fast source over the last full second,
// in milliseconds. Positive means the fast source ran fast.
func (e *Engine) ErrorMs() int {
	return int(e.errorMs.Load())
}
