package device

import (
	"fmt"
	"time"

	"tinygo.org/x/drivers"
	"tinygo.org/x/drivers/pcf8523"
)

const (
	pcf8523Seconds    = 0x03
	pcf8523OscStopped = 0x80
)

// PCF8523 is the battery backed RTC used to seed the clock at startup.
type PCF8523 struct {
	bus drivers.I2C
	dev pcf8523.Device
}

// NewPCF8523 enables battery switch-over and makes sure the oscillator
// runs. If it was stopped the stored time is invalid; the flag is cleared
// and polled up to attempts times.
func NewPCF8523(bus drivers.I2C, attempts int) (*PCF8523, error) {
	p := &PCF8523{bus: bus, dev: pcf8523.New(bus)}
	if err := p.dev.SetPowerManagement(pcf8523.PowerManagement_SwitchOver_ModeStandard); err != nil {
		return nil, fmt.Errorf("pcf8523 power management: %w", err)
	}
	err := Poll(attempts, func() (bool, error) {
		stopped, err := p.OscillatorStopped()
		if err != nil || !stopped {
			return !stopped, err
		}
		return false, p.clearOscillatorStopped()
	})
	if err != nil {
		return nil, fmt.Errorf("pcf8523 oscillator: %w", err)
	}
	return p, nil
}

// OscillatorStopped reports the OS flag, set when the chip lost power.
func (p *PCF8523) OscillatorStopped() (bool, error) {
	var buf [1]byte
	if err := p.bus.Tx(uint16(p.dev.Address), []byte{pcf8523Seconds}, buf[:]); err != nil {
		return false, err
	}
	return buf[0]&pcf8523OscStopped != 0, nil
}

func (p *PCF8523) clearOscillatorStopped() error {
	var buf [1]byte
	if err := p.bus.Tx(uint16(p.dev.Address), []byte{pcf8523Seconds}, buf[:]); err != nil {
		return err
	}
	return p.bus.Tx(uint16(p.dev.Address), []byte{pcf8523Seconds, buf[0] &^ pcf8523OscStopped}, nil)
}

// Now reads the chip time, kept in UTC.
func (p *PCF8523) Now() (time.Time, error) {
	t, err := p.dev.ReadTime()
	if err != nil {
		return time.Time{}, fmt.Errorf("pcf8523 read: %w", err)
	}
	return t, nil
}

// Set writes t as UTC.
func (p *PCF8523) Set(t time.Time) error {
	if err := p.dev.SetTime(t.UTC()); err != nil {
		return fmt.Errorf("pcf8523 write: %w", err)
	}
	return nil
}
