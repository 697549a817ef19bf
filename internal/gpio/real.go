//go:build linux

package gpio

import (
	"errors"
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// Chip owns the lines requested from one GPIO character device.
type Chip struct {
	chip  *gpiocdev.Chip
	lines []*Line
}

// Line is a requested line implementing DigitalPin.
type Line struct {
	line      *gpiocdev.Line
	offset    int
	activeLow bool
	output    bool
}

// OpenChip opens a GPIO character device such as "gpiochip0".
func OpenChip(name string) (*Chip, error) {
	chip, err := gpiocdev.NewChip(name)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip %s: %w", name, err)
	}
	return &Chip{chip: chip}, nil
}

// Input requests an input line. Active-low inputs get a pull-up so that an
// open button reads inactive.
func (c *Chip) Input(offset int, activeLow bool) (*Line, error) {
	bias := gpiocdev.WithPullDown
	if activeLow {
		bias = gpiocdev.WithPullUp
	}
	l, err := c.chip.RequestLine(offset, gpiocdev.AsInput, bias)
	if err != nil {
		return nil, fmt.Errorf("request input pin %d: %w", offset, err)
	}
	return c.add(l, offset, activeLow, false), nil
}

// Output requests an output line driven inactive.
func (c *Chip) Output(offset int, activeLow bool) (*Line, error) {
	initial := 0
	if activeLow {
		initial = 1
	}
	l, err := c.chip.RequestLine(offset, gpiocdev.AsOutput(initial))
	if err != nil {
		return nil, fmt.Errorf("request output pin %d: %w", offset, err)
	}
	return c.add(l, offset, activeLow, true), nil
}

// Watch requests an input line reporting both edges to fn.
func (c *Chip) Watch(offset int, activeLow bool, fn EdgeFunc) (*Line, error) {
	handler := func(evt gpiocdev.LineEvent) {
		high := evt.Type == gpiocdev.LineEventRisingEdge
		fn(Edge{
			Offset: evt.Offset,
			Active: high != activeLow,
			Time:   evt.Timestamp,
		})
	}
	l, err := c.chip.RequestLine(offset,
		gpiocdev.AsInput,
		gpiocdev.WithPullDown,
		gpiocdev.WithBothEdges,
		gpiocdev.WithEventHandler(handler))
	if err != nil {
		return nil, fmt.Errorf("watch pin %d: %w", offset, err)
	}
	return c.add(l, offset, activeLow, false), nil
}

func (c *Chip) add(l *gpiocdev.Line, offset int, activeLow, output bool) *Line {
	line := &Line{line: l, offset: offset, activeLow: activeLow, output: output}
	c.lines = append(c.lines, line)
	return line
}

// Get returns the logical level.
func (l *Line) Get() (bool, error) {
	v, err := l.line.Value()
	if err != nil {
		return false, fmt.Errorf("read pin %d: %w", l.offset, err)
	}
	return (v == 1) != l.activeLow, nil
}

// Set drives the logical level.
func (l *Line) Set(on bool) error {
	v := 0
	if on != l.activeLow {
		v = 1
	}
	if err := l.line.SetValue(v); err != nil {
		return fmt.Errorf("write pin %d: %w", l.offset, err)
	}
	return nil
}

// Close releases all lines and the chip.
// Lines are reconfigured to input with pull-down (matching Pi boot defaults)
// before closing so that outputs do not stay driven.
func (c *Chip) Close() error {
	var errs []error
	for _, l := range c.lines {
		if err := l.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure pin %d: %w", l.offset, err))
		}
		if err := l.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close pin %d: %w", l.offset, err))
		}
	}
	c.lines = nil
	if err := c.chip.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close chip: %w", err))
	}
	return errors.Join(errs...)
}
