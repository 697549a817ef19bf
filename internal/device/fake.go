package device

import (
	"fmt"
	"sync"
	"time"
)

// FakeDisplay records the lines written to it.
type FakeDisplay struct {
	mu     sync.Mutex
	Lines  [2]string
	Writes int
	Clears int
	// WriteError, if set, will be returned by WriteLine()
	WriteError error
}

func (f *FakeDisplay) WriteLine(row int, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.WriteError != nil {
		return f.WriteError
	}
	if row < 0 || row >= len(f.Lines) {
		return fmt.Errorf("row %d out of range", row)
	}
	f.Lines[row] = text
	f.Writes++
	return nil
}

func (f *FakeDisplay) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Lines = [2]string{}
	f.Clears++
	return nil
}

// Line returns the current text of row.
func (f *FakeDisplay) Line(row int) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Lines[row]
}

// FakeSegmentDisplay records the digits shown.
type FakeSegmentDisplay struct {
	mu      sync.Mutex
	History []string
}

func (f *FakeSegmentDisplay) WriteDigits(s string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.History = append(f.History, s)
	return nil
}

// Last returns the digits shown last.
func (f *FakeSegmentDisplay) Last() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.History) == 0 {
		return ""
	}
	return f.History[len(f.History)-1]
}

// FakeBrightness records brightness levels.
type FakeBrightness struct {
	mu     sync.Mutex
	Levels []uint8
}

func (f *FakeBrightness) SetLevel(percent uint8) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Levels = append(f.Levels, percent)
	return nil
}

// Last returns the level set last, or -1.
func (f *FakeBrightness) Last() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Levels) == 0 {
		return -1
	}
	return int(f.Levels[len(f.Levels)-1])
}

// FakeSensor returns fixed raw values per channel.
type FakeSensor struct {
	mu     sync.Mutex
	Values map[int]int
	Reads  int
	// ReadError, if set, will be returned by ReadRaw()
	ReadError error
}

// NewFakeSensor creates a sensor with the given channel values.
func NewFakeSensor(values map[int]int) *FakeSensor {
	return &FakeSensor{Values: values}
}

func (f *FakeSensor) ReadRaw(channel int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ReadError != nil {
		return 0, f.ReadError
	}
	f.Reads++
	return f.Values[channel], nil
}

// Set changes the value of a channel.
func (f *FakeSensor) Set(channel, value int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Values[channel] = value
}

// FakeBackupClock is an in-memory backup clock.
type FakeBackupClock struct {
	mu   sync.Mutex
	T    time.Time
	Sets int
	// ReadError, if set, will be returned by Now()
	ReadError error
}

func (f *FakeBackupClock) Now() (time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ReadError != nil {
		return time.Time{}, f.ReadError
	}
	return f.T, nil
}

func (f *FakeBackupClock) Set(t time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.T = t
	f.Sets++
	return nil
}

// Time returns the stored time.
func (f *FakeBackupClock) Time() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.T
}
