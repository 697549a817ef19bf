package device

import "fmt"

// MCP4901 is an 8-bit DAC driving the display backlight.
type MCP4901 struct {
	conn Conn
	// Gain selects the 1x output gain when true, 2x otherwise.
	Gain bool
}

// NewMCP4901 creates the DAC on an SPI connection.
func NewMCP4901(conn Conn, gain bool) *MCP4901 {
	return &MCP4901{conn: conn, Gain: gain}
}

// DACPacket encodes a level in percent. Zero shuts the output down.
func DACPacket(percent uint8, gain bool) uint16 {
	if percent == 0 {
		return 0
	}
	if percent > 100 {
		percent = 100
	}
	digits := uint16(uint8(0xFF * int(percent) / 100))
	packet := digits<<4 | 1<<12
	if !gain {
		packet |= 1 << 13
	}
	return packet
}

// SetLevel writes the level in percent.
func (d *MCP4901) SetLevel(percent uint8) error {
	p := DACPacket(percent, d.Gain)
	if err := d.conn.Tx([]byte{byte(p >> 8), byte(p)}, nil); err != nil {
		return fmt.Errorf("mcp4901: %w", err)
	}
	return nil
}
