package session

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// FileStore persists sessions to a YAML file, one map entry per session id.
// The terminal client uses it as its local key-value session storage.
// Writes go through a temp file and rename, so the file is replaced whole.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore creates a FileStore at path. The file is created on first Save.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Load(_ context.Context, id string) (Values, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.read()
	if err != nil {
		return nil, err
	}
	if v, ok := all[id]; ok {
		return v, nil
	}
	return Values{}, nil
}

// Save ignores ttl; token expiry is enforced by the guard on load.
func (s *FileStore) Save(_ context.Context, id string, values Values, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.read()
	if errors.Is(err, ErrCorrupt) {
		// Overwrite what cannot be parsed.
		all = make(map[string]Values)
	} else if err != nil {
		return err
	}
	all[id] = copyValues(values)
	return s.write(all)
}

func (s *FileStore) Clear(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.read()
	if errors.Is(err, ErrCorrupt) {
		// A corrupt file is wiped rather than repaired.
		if rmErr := os.Remove(s.path); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
			return fmt.Errorf("remove session file: %w", rmErr)
		}
		return nil
	}
	if err != nil {
		return err
	}
	delete(all, id)
	if len(all) == 0 {
		if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("remove session file: %w", err)
		}
		return nil
	}
	return s.write(all)
}

func (s *FileStore) read() (map[string]Values, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return make(map[string]Values), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session file: %w", err)
	}

	all := make(map[string]Values)
	if err := yaml.Unmarshal(data, &all); err != nil {
		return nil, fmt.Errorf("%w: parse session file: %v", ErrCorrupt, err)
	}
	if all == nil {
		all = make(map[string]Values)
	}
	return all, nil
}

func (s *FileStore) write(all map[string]Values) error {
	data, err := yaml.Marshal(all)
	if err != nil {
		return fmt.Errorf("encode session file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".session-*")
	if err != nil {
		return fmt.Errorf("create temp session file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write session file: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod session file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close session file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace session file: %w", err)
	}
	return nil
}
