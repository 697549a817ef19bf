// Package irq serializes interrupt-context handlers against the main loop.
//
// On the host, "interrupts" are callbacks from timer goroutines and GPIO edge
// events. They never nest: a handler runs with the mask held, exactly like an
// ISR runs with the global interrupt flag cleared. The main loop takes the same
// mask around multi-field reads and writes.
package irq

import "sync"

// State is the token returned by Disable. The zero State holds nothing.
type State struct {
	held bool
}

// Mask is a global interrupt flag. The zero value is ready to use.
// Disable does not nest: a second Disable from the same goroutine blocks
// forever.
type Mask struct {
	mu sync.Mutex
}

// Disable masks interrupts until Restore is called with the returned state.
func (m *Mask) Disable() State {
	m.mu.Lock()
	return State{held: true}
}

// Restore unmasks interrupts taken by Disable.
func (m *Mask) Restore(state State) {
	if state.held {
		m.mu.Unlock()
	}
}

// Run calls fn with interrupts masked.
func (m *Mask) Run(fn func()) {
	state := m.Disable()
	defer m.Restore(state)
	fn()
}
