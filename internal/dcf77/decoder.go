// Package dcf77 decodes the DCF77 longwave time signal from the pulse
// widths measured on the receiver output.
package dcf77

import (
	"errors"
	"fmt"
)

// Pulse width bands in milliseconds.
const (
	BounceMax = 30
	ZeroStart = 50
	ZeroEnd   = 149
	OneStart  = 150
	OneEnd    = 300
	GapMin    = 1500
)

// Band classifies a measured interval.
type Band int

const (
	BandBounce Band = iota
	BandZero
	BandOne
	BandGap
	BandNoise
)

func (b Band) String() string {
	switch b {
	case BandBounce:
		return "bounce"
	case BandZero:
		return "zero"
	case BandOne:
		return "one"
	case BandGap:
		return "gap"
	default:
		return "noise"
	}
}

// Classify maps an interval to its band.
func Classify(ms uint32) Band {
	switch {
	case ms > GapMin:
		return BandGap
	case ms <= BounceMax:
		return BandBounce
	case ms >= ZeroStart && ms <= ZeroEnd:
		return BandZero
	case ms >= OneStart && ms <= OneEnd:
		return BandOne
	default:
		return BandNoise
	}
}

// Handler receives decoder notifications. All methods are called from the
// edge context and must not block.
type Handler interface {
	OnLog(msg string)
	OnTimeReceived(t Telegram)
	OnBitReceived()
	OnBitFailed()
}

// Receiver switches the radio receiver on and off.
type Receiver interface {
	SetPower(on bool) error
}

// Decoder is the pulse-width state machine. It keeps no lock of its own;
// callers serialize OnEdge against the other methods.
type Decoder struct {
	handler  Handler
	receiver Receiver

	enabled   bool
	streaming bool
	cursor    int
	bits      Frame

	lastEdge uint64
	stats    *Stats
}

// New returns a decoder that is switched off.
func New(handler Handler, receiver Receiver) *Decoder {
	return &Decoder{
		handler:  handler,
		receiver: receiver,
		stats:    NewStats(),
	}
}

// TurnOn clears any partial frame and powers the receiver.
func (d *Decoder) TurnOn() error {
	d.reset()
	if err := d.receiver.SetPower(true); err != nil {
		return fmt.Errorf("dcf77: receiver on: %w", err)
	}
	d.enabled = true
	return nil
}

// TurnOff clears any partial frame and powers the receiver down.
func (d *Decoder) TurnOff() error {
	d.reset()
	d.enabled = false
	if err := d.receiver.SetPower(false); err != nil {
		return fmt.Errorf("dcf77: receiver off: %w", err)
	}
	return nil
}

// IsOn reports whether the decoder accepts edges.
func (d *Decoder) IsOn() bool {
	return d.enabled
}

// Streaming reports whether a frame is being collected.
func (d *Decoder) Streaming() bool {
	return d.streaming
}

// Cursor returns the number of bits collected for the current frame.
func (d *Decoder) Cursor() int {
	return d.cursor
}

// Stats returns the reception counters.
func (d *Decoder) Stats() *Stats {
	return d.stats
}

func (d *Decoder) reset() {
	d.cursor = 0
	d.streaming = false
}

// OnLevelChange timestamps an edge at nowMs and feeds the interval since the
// previous edge to OnEdge. active is the level that just ended.
func (d *Decoder) OnLevelChange(nowMs uint64, active bool) {
	elapsed := nowMs - d.lastEdge
	d.lastEdge = nowMs
	if elapsed > uint64(^uint32(0)) {
		elapsed = uint64(^uint32(0))
	}
	d.OnEdge(uint32(elapsed), active)
}

// OnEdge handles one edge of the receiver output. elapsedMs is the time
// since the previous edge; active is the level held during that time.
func (d *Decoder) OnEdge(elapsedMs uint32, active bool) {
	if !d.enabled {
		return
	}
	band := Classify(elapsedMs)
	if active {
		d.stats.observe(elapsedMs, band)
	}

	if band == BandGap {
		d.onGap()
		return
	}
	if band == BandBounce || !active && band == BandNoise {
		return
	}

	switch {
	case d.streaming && active:
		if band == BandNoise {
			d.reset()
			d.stats.failed()
			d.handler.OnBitFailed()
			d.handler.OnLog(fmt.Sprintf("Error: invalid duration = %d", elapsedMs))
			return
		}
		if d.cursor < FrameBits {
			if band == BandOne {
				d.bits[d.cursor] = 1
			} else {
				d.bits[d.cursor] = 0
			}
			d.cursor++
			d.stats.received()
			d.handler.OnBitReceived()
		}
	case d.streaming:
		d.stats.failed()
		d.handler.OnBitFailed()
	case active:
		d.stats.failed()
		d.handler.OnBitFailed()
		d.handler.OnLog(fmt.Sprintf(">> %d", elapsedMs))
	}
}

func (d *Decoder) onGap() {
	if !d.streaming {
		d.handler.OnLog("Start receiving")
		d.cursor = 0
		d.streaming = true
		return
	}

	count := d.cursor
	d.reset()
	if count != PulseBits {
		d.stats.frameError(ErrBitCount)
		d.handler.OnLog(fmt.Sprintf("Error: %v = %d", ErrBitCount, count))
		return
	}

	d.handler.OnLog("Received valid bits set -> decode time")
	t, err := DecodeFrame(&d.bits)
	if err != nil {
		d.stats.frameError(err)
		for _, e := range unjoin(err) {
			d.handler.OnLog("Error: " + e.Error())
		}
		return
	}
	d.stats.frameDecoded()
	d.handler.OnLog("Decoded time " + t.String())
	d.handler.OnTimeReceived(t)
}

func unjoin(err error) []error {
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		return j.Unwrap()
	}
	return []error{err}
}

// errorKind names the frame error for metrics labels.
func errorKind(err error) string {
	switch {
	case errors.Is(err, ErrBitCount):
		return "bit_count"
	case errors.Is(err, ErrParityMinute), errors.Is(err, ErrParityHour), errors.Is(err, ErrParityDate):
		return "parity"
	default:
		return "other"
	}
}
