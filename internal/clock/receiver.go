package clock

import (
	"go.uber.org/zap"

	"github.com/sweeney/dcf-clock/internal/dcf77"
	"github.com/sweeney/dcf-clock/internal/gpio"
)

// powerLine switches the receiver through its supply pin. The power LED
// is wired to the same line.
type powerLine struct {
	pin gpio.DigitalPin
}

func (p powerLine) SetPower(on bool) error {
	return p.pin.Set(on)
}

// edgeState is shared between the edge context and the main loop. It is
// guarded by the interrupt mask.
type edgeState struct {
	// last is the previous decoded telegram, valid when have is set.
	last dcf77.Telegram
	have bool
	// confirmed is set when two consecutive telegrams agree.
	confirmed bool

	beep        bool
	bitReceived bool
	bitFailed   bool
}

func (s *edgeState) invalidate() {
	s.have = false
	s.confirmed = false
}

// receiverEvents forwards decoder notifications into edgeState. It runs in
// the edge context with the mask held and only sets flags; the main loop
// drives the LEDs and the buzzer.
type receiverEvents struct {
	state *edgeState
	log   *zap.Logger
}

func (r receiverEvents) OnLog(msg string) {
	r.log.Debug(msg)
}

func (r receiverEvents) OnTimeReceived(t dcf77.Telegram) {
	s := r.state
	s.beep = true
	if s.have && s.last.SameHourAndDate(t) {
		s.confirmed = true
	}
	s.last = t
	s.have = true
}

func (r receiverEvents) OnBitReceived() {
	r.state.bitReceived = true
}

func (r receiverEvents) OnBitFailed() {
	r.state.bitFailed = true
}
