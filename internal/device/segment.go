package device

import "fmt"

// SegmentMask holds the bit number of each segment in the shift register.
type SegmentMask struct {
	Top, RightTop, RightBottom, Bottom, LeftBottom, LeftTop, Center, Dot uint8
}

// DefaultMask is the straight a..g, dp wiring.
var DefaultMask = SegmentMask{0, 1, 2, 3, 4, 5, 6, 7}

// ClockMask is the wiring of the clock board.
var ClockMask = SegmentMask{
	Top:         3,
	RightTop:    5,
	RightBottom: 7,
	Bottom:      4,
	LeftBottom:  1,
	LeftTop:     2,
	Center:      6,
	Dot:         0,
}

// Bits returns the segment pattern for c. Unknown characters are blank.
func (m SegmentMask) Bits(c byte, dot bool) byte {
	var segs []uint8
	switch c {
	case '.':
		segs = []uint8{m.Dot}
	case '-':
		segs = []uint8{m.Center}
	case '0':
		segs = []uint8{m.Top, m.RightTop, m.RightBottom, m.Bottom, m.LeftBottom, m.LeftTop}
	case '1':
		segs = []uint8{m.RightTop, m.RightBottom}
	case '2':
		segs = []uint8{m.Top, m.RightTop, m.Center, m.LeftBottom, m.Bottom}
	case '3':
		segs = []uint8{m.Top, m.RightTop, m.Center, m.RightBottom, m.Bottom}
	case '4':
		segs = []uint8{m.LeftTop, m.Center, m.RightTop, m.RightBottom}
	case '5':
		segs = []uint8{m.Top, m.LeftTop, m.Center, m.RightBottom, m.Bottom}
	case '6':
		segs = []uint8{m.Top, m.LeftTop, m.Center, m.RightBottom, m.Bottom, m.LeftBottom}
	case '7':
		segs = []uint8{m.Top, m.RightTop, m.RightBottom}
	case '8':
		segs = []uint8{m.Top, m.RightTop, m.Center, m.RightBottom, m.Bottom, m.LeftBottom, m.LeftTop}
	case '9':
		segs = []uint8{m.Top, m.RightTop, m.Center, m.RightBottom, m.Bottom, m.LeftTop}
	}
	if dot {
		segs = append(segs, m.Dot)
	}
	var bits byte
	for _, s := range segs {
		bits |= 1 << s
	}
	return bits
}

// ShiftRegisterDisplay is a chain of 74HC595 registers, one per digit,
// clocked over SPI. The last digit is shifted first.
type ShiftRegisterDisplay struct {
	conn   Conn
	mask   SegmentMask
	digits int
}

// NewShiftRegisterDisplay creates a display with the given digit count.
func NewShiftRegisterDisplay(conn Conn, mask SegmentMask, digits int) *ShiftRegisterDisplay {
	return &ShiftRegisterDisplay{conn: conn, mask: mask, digits: digits}
}

// WriteDigits shows s, one character per digit.
func (d *ShiftRegisterDisplay) WriteDigits(s string) error {
	if len(s) > d.digits {
		return fmt.Errorf("segment display: %q longer than %d digits", s, d.digits)
	}
	buf := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		buf[len(s)-1-i] = d.mask.Bits(s[i], false)
	}
	if err := d.conn.Tx(buf, nil); err != nil {
		return fmt.Errorf("segment display: %w", err)
	}
	return nil
}
