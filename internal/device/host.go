package device

import (
	"fmt"

	"periph.io/x/periph/conn/i2c"
	"periph.io/x/periph/conn/i2c/i2creg"
	"periph.io/x/periph/conn/physic"
	"periph.io/x/periph/conn/spi"
	"periph.io/x/periph/conn/spi/spireg"
	"periph.io/x/periph/host"
)

// InitHost loads the periph.io host drivers. It must run before any bus
// is opened.
func InitHost() error {
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("periph host init: %w", err)
	}
	return nil
}

// OpenI2C opens an I²C bus by name, such as "1". The bus satisfies the
// tinygo drivers.I2C interface.
func OpenI2C(name string) (i2c.BusCloser, error) {
	bus, err := i2creg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("open i2c bus %q: %w", name, err)
	}
	return bus, nil
}

// SPIPort is an open SPI device in mode 0 with 8-bit words.
type SPIPort struct {
	port spi.PortCloser
	conn spi.Conn
}

// OpenSPI opens an SPI device by name, such as "SPI0.1".
func OpenSPI(name string, freq physic.Frequency) (*SPIPort, error) {
	port, err := spireg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("open spi port %q: %w", name, err)
	}
	conn, err := port.Connect(freq, spi.Mode0, 8)
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("connect spi port %q: %w", name, err)
	}
	return &SPIPort{port: port, conn: conn}, nil
}

// Tx runs one transaction.
func (s *SPIPort) Tx(w, r []byte) error {
	return s.conn.Tx(w, r)
}

// Close releases the port.
func (s *SPIPort) Close() error {
	return s.port.Close()
}
