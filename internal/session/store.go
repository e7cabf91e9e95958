package session

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Persisted session keys. They are always written and cleared together.
const (
	KeyToken         = "token"
	KeyAuthenticated = "isAuthenticated"
	KeyUserID        = "userId"
	KeyUserRole      = "userRole"
	KeyUserType      = "userType"
	KeyUserName      = "userName"
)

// AllKeys lists every persisted session key.
var AllKeys = []string{KeyToken, KeyAuthenticated, KeyUserID, KeyUserRole, KeyUserType, KeyUserName}

// ErrCorrupt marks persisted state that cannot be parsed. Callers wipe it.
var ErrCorrupt = errors.New("session state is corrupt")

// Values is the raw string-valued session state.
type Values map[string]string

// Store persists session Values under an opaque session id.
// Save replaces the whole value set and Clear removes all of it; neither may
// leave a partially written session behind.
type Store interface {
	Load(ctx context.Context, id string) (Values, error)
	Save(ctx context.Context, id string, values Values, ttl time.Duration) error
	Clear(ctx context.Context, id string) error
}

// MemoryStore keeps sessions in process memory. Used when no redis is configured
// and in tests.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]memoryEntry
	now      func() time.Time
}

type memoryEntry struct {
	values  Values
	expires time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]memoryEntry), now: time.Now}
}

func (s *MemoryStore) Load(_ context.Context, id string) (Values, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.sessions[id]
	if !ok {
		return Values{}, nil
	}
	if !entry.expires.IsZero() && !s.now().Before(entry.expires) {
		delete(s.sessions, id)
		return Values{}, nil
	}
	return copyValues(entry.values), nil
}

func (s *MemoryStore) Save(_ context.Context, id string, values Values, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := memoryEntry{values: copyValues(values)}
	if ttl > 0 {
		entry.expires = s.now().Add(ttl)
	}
	s.sessions[id] = entry
	return nil
}

func (s *MemoryStore) Clear(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

func copyValues(in Values) Values {
	out := make(Values, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
