package mqtt

import "go.uber.org/zap"

// pendingMsg is a serialized message waiting for the broker.
type pendingMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// outbox keeps the newest messages published while the broker is
// unreachable. The caller synchronizes access.
type outbox struct {
	slots   []pendingMsg
	first   int
	size    int
	dropped int
	log     *zap.Logger
}

func newOutbox(capacity int, logger *zap.Logger) *outbox {
	return &outbox{slots: make([]pendingMsg, capacity), log: logger}
}

// add queues msg, evicting the oldest entry when full.
func (o *outbox) add(msg pendingMsg) {
	n := len(o.slots)
	if o.size < n {
		o.slots[(o.first+o.size)%n] = msg
		o.size++
		return
	}
	if o.dropped == 0 {
		o.log.Warn("Outbox full, dropping oldest", zap.Int("capacity", n))
	}
	o.dropped++
	o.slots[o.first] = msg
	o.first = (o.first + 1) % n
}

// take empties the outbox and returns its messages oldest first.
func (o *outbox) take() []pendingMsg {
	if o.size == 0 {
		return nil
	}
	if o.dropped > 0 {
		o.log.Warn("Messages lost while disconnected", zap.Int("dropped", o.dropped))
	}
	n := len(o.slots)
	out := make([]pendingMsg, 0, o.size)
	for i := 0; i < o.size; i++ {
		out = append(out, o.slots[(o.first+i)%n])
	}
	o.first, o.size, o.dropped = 0, 0, 0
	return out
}

func (o *outbox) len() int {
	return o.size
}
