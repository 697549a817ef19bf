// Package event provides the polled periodic event used throughout the clock.
package event

// Clock is a read-only millisecond counter.
type Clock interface {
	Millis() uint64
}

// Unbounded disables the occurrence limit.
const Unbounded = 0

// Periodic reports when at least a delay has elapsed since its last trigger.
//
// It has no scheduling of its own: the owner polls Occurred often enough that
// no window is missed by more than one polling interval.
type Periodic struct {
	clock         Clock
	delay         uint64
	maxOccurrence int
	lastTrigger   uint64
	occurred      int
}

// New creates an event firing every delay milliseconds. A positive
// maxOccurrence exhausts the event after that many triggers until ResetTime.
func New(clock Clock, delay uint64, maxOccurrence int) *Periodic {
	return &Periodic{
		clock:         clock,
		delay:         delay,
		maxOccurrence: maxOccurrence,
	}
}

// Occurred returns true at most once per delay window.
func (p *Periodic) Occurred() bool {
	if p.maxOccurrence > 0 && p.occurred >= p.maxOccurrence {
		return false
	}
	now := p.clock.Millis()
	if now < p.lastTrigger+p.delay {
		return false
	}
	p.lastTrigger = now
	if p.maxOccurrence > 0 {
		p.occurred++
	}
	return true
}

// ResetTime restarts the window at the current time and re-arms an
// exhausted event.
func (p *Periodic) ResetTime() {
	p.lastTrigger = p.clock.Millis()
	p.occurred = 0
}

// Exhausted reports whether a bounded event has used up its occurrences.
func (p *Periodic) Exhausted() bool {
	return p.maxOccurrence > 0 && p.occurred >= p.maxOccurrence
}

// Delay returns the event period in milliseconds.
func (p *Periodic) Delay() uint64 {
	return p.delay
}
