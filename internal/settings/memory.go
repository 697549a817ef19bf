package settings

import (
	"sync"

	"github.com/sweeney/dcf-clock/internal/alarm"
)

// MemStore keeps the records in memory. It starts with the defaults.
type MemStore struct {
	mu         sync.Mutex
	brightness Brightness
	alarms     [alarm.Count]alarm.Setting

	// Saves counts successful Save calls.
	Saves int
	// SaveError, if set, will be returned by the Save methods.
	SaveError error
}

// NewMemStore returns a store holding the defaults.
func NewMemStore() *MemStore {
	return &MemStore{
		brightness: DefaultBrightness(),
		alarms:     alarm.Defaults(),
	}
}

func (m *MemStore) LoadBrightness() (Brightness, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.brightness, nil
}

func (m *MemStore) SaveBrightness(b Brightness) error {
	if err := b.validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveError != nil {
		return m.SaveError
	}
	m.brightness = b
	m.Saves++
	return nil
}

func (m *MemStore) LoadAlarm(n int) (alarm.Setting, error) {
	if err := checkSlot(n); err != nil {
		return alarm.Setting{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.alarms[n-1], nil
}

func (m *MemStore) SaveAlarm(n int, s alarm.Setting) error {
	if err := checkSlot(n); err != nil {
		return err
	}
	if err := s.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveError != nil {
		return m.SaveError
	}
	m.alarms[n-1] = s
	m.Saves++
	return nil
}
