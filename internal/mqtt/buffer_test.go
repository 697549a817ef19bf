package mqtt

import (
	"testing"

	"go.uber.org/zap"
)

func payloads(msgs []pendingMsg) []byte {
	var out []byte
	for _, m := range msgs {
		out = append(out, m.payload[0])
	}
	return out
}

func TestOutboxKeepsNewest(t *testing.T) {
	tests := []struct {
		name     string
		capacity int
		pushed   int
		want     []byte
		dropped  int
	}{
		{"empty", 4, 0, nil, 0},
		{"partial", 4, 3, []byte{0, 1, 2}, 0},
		{"full", 4, 4, []byte{0, 1, 2, 3}, 0},
		{"overflow", 4, 7, []byte{3, 4, 5, 6}, 3},
		{"wrapped twice", 2, 7, []byte{5, 6}, 5},
	}
	for _, tt := range tests {
		o := newOutbox(tt.capacity, zap.NewNop())
		for i := 0; i < tt.pushed; i++ {
			o.add(pendingMsg{topic: "t", payload: []byte{byte(i)}})
		}
		if o.dropped != tt.dropped {
			t.Errorf("%s: dropped = %d, want %d", tt.name, o.dropped, tt.dropped)
		}
		got := payloads(o.take())
		if string(got) != string(tt.want) {
			t.Errorf("%s: got %v, want %v", tt.name, got, tt.want)
		}
		if o.len() != 0 || o.dropped != 0 {
			t.Errorf("%s: take must empty the outbox", tt.name)
		}
	}
}

func TestOutboxReuseAfterTake(t *testing.T) {
	o := newOutbox(3, zap.NewNop())
	for i := 0; i < 5; i++ {
		o.add(pendingMsg{payload: []byte{byte(i)}})
	}
	o.take()

	o.add(pendingMsg{payload: []byte{10}})
	o.add(pendingMsg{payload: []byte{11}})
	if o.len() != 2 {
		t.Fatalf("len = %d, want 2", o.len())
	}
	if got := payloads(o.take()); string(got) != string([]byte{10, 11}) {
		t.Errorf("got %v", got)
	}
	if o.take() != nil {
		t.Error("second take must be empty")
	}
}

func TestOutboxPreservesFields(t *testing.T) {
	o := newOutbox(2, zap.NewNop())
	o.add(pendingMsg{
		topic:    TopicSystem,
		payload:  []byte(`{"system":{}}`),
		qos:      1,
		retained: true,
	})

	got := o.take()
	if len(got) != 1 {
		t.Fatalf("expected 1 message, got %d", len(got))
	}
	m := got[0]
	if m.topic != TopicSystem || string(m.payload) != `{"system":{}}` || m.qos != 1 || !m.retained {
		t.Errorf("got %+v", m)
	}
}
