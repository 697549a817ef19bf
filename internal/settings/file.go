package settings

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/pelletier/go-toml/v2"

	"github.com/sweeney/dcf-clock/internal/alarm"
	"github.com/sweeney/dcf-clock/internal/irq"
)

type fileRecord struct {
	Brightness Brightness      `toml:"brightness"`
	Alarms     []alarm.Setting `toml:"alarms"`
}

// FileStore keeps the records in a TOML file. A missing file yields the
// defaults; it is created on the first save.
type FileStore struct {
	path string
	mask *irq.Mask

	mu         sync.Mutex
	brightness Brightness
	alarms     [alarm.Count]alarm.Setting
}

// OpenFileStore loads path. Writes are done with the interrupt mask held.
func OpenFileStore(path string, mask *irq.Mask) (*FileStore, error) {
	s := &FileStore{
		path:       path,
		mask:       mask,
		brightness: DefaultBrightness(),
		alarms:     alarm.Defaults(),
	}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the settings file name.
func (s *FileStore) Path() string {
	return s.path
}

// Reload re-reads the file. On error the current records are kept.
func (s *FileStore) Reload() error {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read settings: %w", err)
	}

	rec := fileRecord{Brightness: DefaultBrightness()}
	if err := toml.NewDecoder(bytes.NewReader(raw)).DisallowUnknownFields().Decode(&rec); err != nil {
		return fmt.Errorf("decode settings %s: %w", s.path, err)
	}
	if err := rec.Brightness.validate(); err != nil {
		return fmt.Errorf("settings %s: %w", s.path, err)
	}
	if len(rec.Alarms) > alarm.Count {
		return fmt.Errorf("settings %s: %d alarms, at most %d", s.path, len(rec.Alarms), alarm.Count)
	}
	alarms := alarm.Defaults()
	for i, a := range rec.Alarms {
		if err := a.Validate(); err != nil {
			return fmt.Errorf("settings %s: alarm %d: %w", s.path, i+1, err)
		}
		alarms[i] = a
	}

	s.mu.Lock()
	s.brightness = rec.Brightness
	s.alarms = alarms
	s.mu.Unlock()
	return nil
}

func (s *FileStore) LoadBrightness() (Brightness, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.brightness, nil
}

func (s *FileStore) SaveBrightness(b Brightness) error {
	if err := b.validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.brightness
	s.brightness = b
	if err := s.write(); err != nil {
		s.brightness = prev
		return err
	}
	return nil
}

func (s *FileStore) LoadAlarm(n int) (alarm.Setting, error) {
	if err := checkSlot(n); err != nil {
		return alarm.Setting{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.alarms[n-1], nil
}

func (s *FileStore) SaveAlarm(n int, a alarm.Setting) error {
	if err := checkSlot(n); err != nil {
		return err
	}
	if err := a.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.alarms[n-1]
	s.alarms[n-1] = a
	if err := s.write(); err != nil {
		s.alarms[n-1] = prev
		return err
	}
	return nil
}

// write replaces the file atomically. Caller holds s.mu.
func (s *FileStore) write() error {
	rec := fileRecord{
		Brightness: s.brightness,
		Alarms:     s.alarms[:],
	}
	data, err := toml.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}

	tmp := filepath.Join(filepath.Dir(s.path), "."+filepath.Base(s.path)+".tmp")

	state := s.mask.Disable()
	defer s.mask.Restore(state)

	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace settings: %w", err)
	}
	return nil
}
