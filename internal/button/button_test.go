package button

import (
	"errors"
	"reflect"
	"testing"

	"github.com/sweeney/dcf-clock/internal/gpio"
)

type fakeClock struct {
	ms uint64
}

func (c *fakeClock) Millis() uint64 { return c.ms }

func newTestButton() (*Button, *gpio.FakePin, *fakeClock) {
	pin := gpio.NewFakePin(false)
	clock := &fakeClock{}
	return New(pin, clock, DefaultPressDelay, DefaultLongPressDelay), pin, clock
}

func TestNotPressed(t *testing.T) {
	b, _, clock := newTestButton()
	for clock.ms = 0; clock.ms < 3000; clock.ms += 10 {
		if b.IsPressed() || b.IsLongPressed() {
			t.Fatalf("released button reported a press at %d", clock.ms)
		}
	}
}

func TestPressDebounce(t *testing.T) {
	b, pin, clock := newTestButton()

	clock.ms = 1000
	pin.SetLevel(true)
	if b.IsPressed() {
		t.Error("press reported before the debounce delay")
	}
	clock.ms = 1049
	if b.IsPressed() {
		t.Error("press reported at 49 ms")
	}
	clock.ms = 1050
	if !b.IsPressed() {
		t.Error("expected press at 50 ms")
	}
	clock.ms = 1060
	if !b.IsPressed() {
		t.Error("press must keep reporting until processed")
	}

	b.SetProcessed()
	clock.ms = 1070
	if b.IsPressed() {
		t.Error("processed press reported again")
	}

	// Release and press again.
	pin.SetLevel(false)
	clock.ms = 1080
	if b.IsPressed() {
		t.Error("released button reported a press")
	}
	pin.SetLevel(true)
	clock.ms = 1090
	b.IsPressed()
	clock.ms = 1140
	if !b.IsPressed() {
		t.Error("expected second press")
	}
}

func TestShortBounceIgnored(t *testing.T) {
	b, pin, clock := newTestButton()

	pin.SetLevel(true)
	for clock.ms = 0; clock.ms < 40; clock.ms += 5 {
		if b.IsPressed() {
			t.Fatal("bounce reported as press")
		}
	}
	pin.SetLevel(false)
	for ; clock.ms < 200; clock.ms += 5 {
		if b.IsPressed() {
			t.Fatal("released button reported a press")
		}
	}
}

// longPressTimes holds the button for the given time, polling every ms
// like the controller does, and returns when long presses fired.
func longPressTimes(b *Button, pin *gpio.FakePin, clock *fakeClock, hold uint64) []uint64 {
	var fired []uint64
	pin.SetLevel(true)
	for clock.ms = 0; clock.ms <= hold; clock.ms++ {
		if b.IsPressed() {
			b.SetProcessed()
		}
		if b.IsLongPressed() {
			fired = append(fired, clock.ms)
		}
	}
	return fired
}

func TestLongPressSingleFire(t *testing.T) {
	b, pin, clock := newTestButton()
	fired := longPressTimes(b, pin, clock, 2000)
	if !reflect.DeepEqual(fired, []uint64{1500}) {
		t.Errorf("expected one long press at 1500, got %v", fired)
	}
}

func TestLongPressAcceleration(t *testing.T) {
	b, pin, clock := newTestButton()
	fired := longPressTimes(b, pin, clock, 4000)
	want := []uint64{1500, 3000, 3250, 3500, 3750, 4000}
	if !reflect.DeepEqual(fired, want) {
		t.Errorf("got %v, want %v", fired, want)
	}
}

func TestReleaseResetsAcceleration(t *testing.T) {
	b, pin, clock := newTestButton()
	longPressTimes(b, pin, clock, 3300)

	pin.SetLevel(false)
	b.IsLongPressed()

	fired := longPressTimes(b, pin, clock, 3100)
	want := []uint64{1500, 3000}
	if !reflect.DeepEqual(fired, want) {
		t.Errorf("got %v, want %v", fired, want)
	}
}

func TestLongCount(t *testing.T) {
	b, pin, clock := newTestButton()
	longPressTimes(b, pin, clock, 3300)
	if b.LongCount() != 3 {
		t.Errorf("LongCount = %d, want 3", b.LongCount())
	}

	pin.SetLevel(false)
	b.IsLongPressed()
	if b.LongCount() != 0 {
		t.Errorf("LongCount after release = %d, want 0", b.LongCount())
	}
}

func TestResetTime(t *testing.T) {
	b, pin, clock := newTestButton()

	pin.SetLevel(true)
	b.IsLongPressed()
	clock.ms = 1000
	b.ResetTime()

	clock.ms = 2400
	if b.IsLongPressed() {
		t.Error("long press fired before the re-anchored delay")
	}
	clock.ms = 2500
	if !b.IsLongPressed() {
		t.Error("expected long press 1500 ms after ResetTime")
	}
}

func TestClockJumpBackwards(t *testing.T) {
	b, pin, clock := newTestButton()

	clock.ms = 10000
	pin.SetLevel(true)
	b.IsLongPressed()

	clock.ms = 500
	if b.IsLongPressed() {
		t.Error("long press fired after the clock moved backwards")
	}
	clock.ms = 2000
	if !b.IsLongPressed() {
		t.Error("expected long press 1500 ms after the jump")
	}
}

func TestReadErrorIsRelease(t *testing.T) {
	b, pin, clock := newTestButton()

	pin.SetLevel(true)
	b.IsPressed()
	clock.ms = 100
	pin.ReadError = errors.New("simulated error")
	if b.IsPressed() {
		t.Error("read error reported as press")
	}
}
