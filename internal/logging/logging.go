// Package logging builds the process logger.
package logging

import (
	"fmt"
	"io"

	"github.com/tarm/serial"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DefaultBaud is the debug port speed of the clock board.
const DefaultBaud = 500000

// New returns a development logger writing to stderr. Debug entries are
// only kept when verbose is set. If extra is not nil every entry is also
// written to it in plain console form.
func New(verbose bool, extra io.Writer) (*zap.Logger, error) {
	c := zap.NewDevelopmentConfig()
	c.DisableStacktrace = true
	c.EncoderConfig.EncodeCaller = trimmedCaller
	if !verbose {
		c.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	var opts []zap.Option
	if extra != nil {
		enc := c.EncoderConfig
		enc.EncodeLevel = zapcore.CapitalLevelEncoder
		sink := zapcore.NewCore(zapcore.NewConsoleEncoder(enc), zapcore.AddSync(extra), c.Level)
		opts = append(opts, zap.WrapCore(func(core zapcore.Core) zapcore.Core {
			return zapcore.NewTee(core, sink)
		}))
	}

	log, err := c.Build(opts...)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return log, nil
}

func trimmedCaller(caller zapcore.EntryCaller, enc zapcore.PrimitiveArrayEncoder) {
	p := caller.TrimmedPath()
	if len(p) > 30 {
		p = "..." + p[len(p)-27:]
	}
	enc.AppendString(fmt.Sprintf("%30s", p))
}

// OpenSerial opens a serial port for the debug log tee.
func OpenSerial(device string, baud int) (io.WriteCloser, error) {
	if baud == 0 {
		baud = DefaultBaud
	}
	port, err := serial.OpenPort(&serial.Config{Name: device, Baud: baud})
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", device, err)
	}
	return port, nil
}
