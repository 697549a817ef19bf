package device

import "fmt"

// MCP3008 is an 8-channel 10-bit ADC.
type MCP3008 struct {
	conn Conn
	// Retries bounds the attempts to get a reply with a valid null bit.
	Retries int
}

// NewMCP3008 creates the ADC on an SPI connection.
func NewMCP3008(conn Conn) *MCP3008 {
	return &MCP3008{conn: conn, Retries: 3}
}

// ReadRaw samples a single-ended channel.
func (d *MCP3008) ReadRaw(channel int) (int, error) {
	if channel < 0 || channel > 7 {
		return 0, fmt.Errorf("mcp3008: channel %d out of range", channel)
	}
	w := []byte{0x01, byte(0x80 | channel<<4), 0x00}
	r := make([]byte, 3)
	err := Poll(d.Retries, func() (bool, error) {
		if err := d.conn.Tx(w, r); err != nil {
			return false, err
		}
		// The chip drives a null bit before B9; a floating bus reads 1.
		return r[1]&0x04 == 0, nil
	})
	if err != nil {
		return 0, fmt.Errorf("mcp3008 channel %d: %w", channel, err)
	}
	return int(r[1]&0x03)<<8 | int(r[2]), nil
}
