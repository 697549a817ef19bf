package gpio

import "sync"

// FakePin is a test double for a DigitalPin.
type FakePin struct {
	mu sync.Mutex

	level bool
	// History records every value passed to Set.
	History []bool

	// ReadError, if set, will be returned by Get()
	ReadError error
	// WriteError, if set, will be returned by Set()
	WriteError error
}

// NewFakePin creates a FakePin at the given logical level.
func NewFakePin(level bool) *FakePin {
	return &FakePin{level: level}
}

// Get returns the current level.
func (f *FakePin) Get() (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ReadError != nil {
		return false, f.ReadError
	}
	return f.level, nil
}

// Set changes the level and records it.
func (f *FakePin) Set(on bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.WriteError != nil {
		return f.WriteError
	}
	f.level = on
	f.History = append(f.History, on)
	return nil
}

// Level returns the current level without recording a read.
func (f *FakePin) Level() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.level
}

// SetLevel changes the level as seen from the outside world, like a
// pressed button. It is not recorded in History.
func (f *FakePin) SetLevel(on bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.level = on
}

// Toggles returns how many times Set changed the level.
func (f *FakePin) Toggles() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for i := 1; i < len(f.History); i++ {
		if f.History[i] != f.History[i-1] {
			n++
		}
	}
	return n
}
