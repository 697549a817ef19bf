package device

import (
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"
)

var (
	_ Display        = (*LCD)(nil)
	_ Display        = (*FakeDisplay)(nil)
	_ SegmentDisplay = (*ShiftRegisterDisplay)(nil)
	_ SegmentDisplay = (*FakeSegmentDisplay)(nil)
	_ Brightness     = (*MCP4901)(nil)
	_ Brightness     = (*FakeBrightness)(nil)
	_ Sensor         = (*MCP3008)(nil)
	_ Sensor         = (*FakeSensor)(nil)
	_ BackupClock    = (*PCF8523)(nil)
	_ BackupClock    = (*FakeBackupClock)(nil)
	_ Conn           = (*SPIPort)(nil)
)

// fakeConn records SPI writes and answers with scripted replies.
type fakeConn struct {
	writes  [][]byte
	replies [][]byte
	err     error
}

func (c *fakeConn) Tx(w, r []byte) error {
	if c.err != nil {
		return c.err
	}
	c.writes = append(c.writes, append([]byte(nil), w...))
	if r != nil && len(c.replies) > 0 {
		copy(r, c.replies[0])
		if len(c.replies) > 1 {
			c.replies = c.replies[1:]
		}
	}
	return nil
}

// fakeI2C is a register file. The first written byte selects the register;
// the rest are written from there, and reads continue from there.
type fakeI2C struct {
	mu   sync.Mutex
	regs [256]byte
	// stuck bits survive writes.
	stuck [256]byte
	raw   [][]byte
	err   error
}

func (b *fakeI2C) Tx(addr uint16, w, r []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	b.raw = append(b.raw, append([]byte(nil), w...))
	if len(w) == 0 {
		return nil
	}
	reg := int(w[0])
	for i, v := range w[1:] {
		b.regs[reg+i] = v | b.stuck[reg+i]
	}
	for i := range r {
		r[i] = b.regs[reg+i]
	}
	return nil
}

func TestPoll(t *testing.T) {
	calls := 0
	err := Poll(5, func() (bool, error) {
		calls++
		return calls == 3, nil
	})
	if err != nil || calls != 3 {
		t.Errorf("err = %v, calls = %d", err, calls)
	}

	err = Poll(4, func() (bool, error) { return false, nil })
	if !errors.Is(err, ErrStalled) {
		t.Errorf("expected ErrStalled, got %v", err)
	}

	boom := errors.New("bus error")
	err = Poll(4, func() (bool, error) { return false, boom })
	if !errors.Is(err, boom) {
		t.Errorf("expected bus error, got %v", err)
	}
}

func TestDACPacket(t *testing.T) {
	tests := []struct {
		percent uint8
		gain    bool
		want    uint16
	}{
		{0, false, 0},
		{0, true, 0},
		{100, false, 0x3FF0},
		{100, true, 0x1FF0},
		{50, true, 0x17F0},
		{1, false, 0x3020},
		{200, true, 0x1FF0},
	}
	for _, tt := range tests {
		if got := DACPacket(tt.percent, tt.gain); got != tt.want {
			t.Errorf("DACPacket(%d, %v) = %#04x, want %#04x", tt.percent, tt.gain, got, tt.want)
		}
	}
}

func TestMCP4901SetLevel(t *testing.T) {
	conn := &fakeConn{}
	dac := NewMCP4901(conn, false)
	if err := dac.SetLevel(100); err != nil {
		t.Fatalf("SetLevel: %v", err)
	}
	if !reflect.DeepEqual(conn.writes, [][]byte{{0x3F, 0xF0}}) {
		t.Errorf("writes = %x", conn.writes)
	}

	conn.err = errors.New("spi error")
	if err := dac.SetLevel(10); err == nil {
		t.Error("expected error")
	}
}

func TestMCP3008ReadRaw(t *testing.T) {
	conn := &fakeConn{replies: [][]byte{{0x00, 0x02, 0x9A}}}
	adc := NewMCP3008(conn)

	v, err := adc.ReadRaw(4)
	if err != nil {
		t.Fatalf("ReadRaw: %v", err)
	}
	if v != 666 {
		t.Errorf("value = %d, want 666", v)
	}
	if !reflect.DeepEqual(conn.writes[0], []byte{0x01, 0xC0, 0x00}) {
		t.Errorf("command = %x", conn.writes[0])
	}

	if _, err := adc.ReadRaw(8); err == nil {
		t.Error("expected error for channel 8")
	}
}

func TestMCP3008Stalled(t *testing.T) {
	conn := &fakeConn{replies: [][]byte{{0xFF, 0xFF, 0xFF}}}
	adc := NewMCP3008(conn)

	if _, err := adc.ReadRaw(3); !errors.Is(err, ErrStalled) {
		t.Errorf("expected ErrStalled, got %v", err)
	}
	if len(conn.writes) != adc.Retries {
		t.Errorf("expected %d attempts, got %d", adc.Retries, len(conn.writes))
	}
}

func TestSegmentBits(t *testing.T) {
	tests := []struct {
		mask SegmentMask
		c    byte
		dot  bool
		want byte
	}{
		{DefaultMask, '0', false, 0x3F},
		{DefaultMask, '1', false, 0x06},
		{DefaultMask, '8', true, 0xFF},
		{DefaultMask, '-', false, 0x40},
		{ClockMask, '8', false, 0xFE},
		{ClockMask, '1', false, 0xA0},
		{ClockMask, '.', false, 0x01},
		{ClockMask, ' ', false, 0x00},
		{ClockMask, 'x', true, 0x01},
	}
	for _, tt := range tests {
		if got := tt.mask.Bits(tt.c, tt.dot); got != tt.want {
			t.Errorf("Bits(%q, %v) = %#02x, want %#02x", tt.c, tt.dot, got, tt.want)
		}
	}
}

func TestShiftRegisterDisplay(t *testing.T) {
	conn := &fakeConn{}
	d := NewShiftRegisterDisplay(conn, DefaultMask, 4)

	if err := d.WriteDigits("1234"); err != nil {
		t.Fatalf("WriteDigits: %v", err)
	}
	want := []byte{
		DefaultMask.Bits('4', false),
		DefaultMask.Bits('3', false),
		DefaultMask.Bits('2', false),
		DefaultMask.Bits('1', false),
	}
	if !reflect.DeepEqual(conn.writes[0], want) {
		t.Errorf("writes = %x, want %x", conn.writes[0], want)
	}

	if err := d.WriteDigits("12345"); err == nil {
		t.Error("expected error for 5 digits")
	}
}

func TestPCF8523(t *testing.T) {
	bus := &fakeI2C{}
	bus.regs[pcf8523Seconds] = pcf8523OscStopped | 0x45

	p, err := NewPCF8523(bus, 3)
	if err != nil {
		t.Fatalf("NewPCF8523: %v", err)
	}
	stopped, err := p.OscillatorStopped()
	if err != nil || stopped {
		t.Errorf("oscillator flag not cleared: %v %v", stopped, err)
	}

	want := time.Date(2015, time.June, 25, 22, 58, 7, 0, time.UTC)
	if err := p.Set(want); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := p.Now()
	if err != nil {
		t.Fatalf("Now: %v", err)
	}
	if !got.Equal(want) {
		t.Errorf("Now = %v, want %v", got, want)
	}
}

func TestPCF8523OscillatorStuck(t *testing.T) {
	bus := &fakeI2C{}
	bus.stuck[pcf8523Seconds] = pcf8523OscStopped
	bus.regs[pcf8523Seconds] = pcf8523OscStopped

	if _, err := NewPCF8523(bus, 3); !errors.Is(err, ErrStalled) {
		t.Errorf("expected ErrStalled, got %v", err)
	}
}

// lcdBytes decodes the 4-bit transfers of the PCF8574 backpack into
// (rs, byte) pairs.
func lcdBytes(raw [][]byte) (cmds, data []byte) {
	var nibbles []byte
	for _, w := range raw {
		if len(w) == 1 && w[0]&0x04 != 0 {
			nibbles = append(nibbles, w[0])
		}
	}
	for i := 0; i+1 < len(nibbles); i += 2 {
		b := nibbles[i]&0xF0 | nibbles[i+1]>>4
		if nibbles[i]&0x01 != 0 {
			data = append(data, b)
		} else {
			cmds = append(cmds, b)
		}
	}
	return cmds, data
}

func TestLCD(t *testing.T) {
	if testing.Short() {
		t.Skip("LCD init takes over a second")
	}
	bus := &fakeI2C{}
	lcd, err := NewLCD(bus, 0, 16, 2)
	if err != nil {
		t.Fatalf("NewLCD: %v", err)
	}

	bus.raw = nil
	if err := lcd.WriteLine(1, "Hi"); err != nil {
		t.Fatalf("WriteLine: %v", err)
	}
	cmds, data := lcdBytes(bus.raw)
	if !reflect.DeepEqual(cmds, []byte{0x80 | 0x40}) {
		t.Errorf("commands = %x", cmds)
	}
	if string(data) != "Hi              " {
		t.Errorf("data = %q", data)
	}

	bus.raw = nil
	if err := lcd.WriteLine(0, "0123456789abcdefXYZ"); err != nil {
		t.Fatalf("WriteLine: %v", err)
	}
	_, data = lcdBytes(bus.raw)
	if string(data) != "0123456789abcdef" {
		t.Errorf("long line not cut: %q", data)
	}

	bus.err = errors.New("i2c error")
	if err := lcd.WriteLine(0, "x"); err == nil {
		t.Error("expected bus error")
	}
	if err := lcd.Clear(); err == nil {
		t.Error("expected bus error")
	}
}

func TestFakeDisplay(t *testing.T) {
	d := &FakeDisplay{}
	d.WriteLine(0, "a")
	d.WriteLine(1, "b")
	if d.Line(0) != "a" || d.Line(1) != "b" || d.Writes != 2 {
		t.Errorf("lines = %q", d.Lines)
	}
	if err := d.WriteLine(2, "c"); err == nil {
		t.Error("expected error for row 2")
	}
	d.Clear()
	if d.Line(0) != "" || d.Clears != 1 {
		t.Error("Clear must blank the lines")
	}
}
