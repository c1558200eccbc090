// Package session provides server-side sessions referenced by a signed cookie.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rosterly/rosterly/internal/model"
)

// Data is the state persisted for one session.
type Data struct {
	UserID string       `json:"user_id,omitempty"`
	Flash  *model.Flash `json:"flash,omitempty"`
}

// IsEmpty reports whether there is nothing worth persisting.
func (d Data) IsEmpty() bool {
	return d.UserID == "" && d.Flash == nil
}

// Store persists session data by session ID.
type Store interface {
	// Load returns the data for id, or nil when the session does not exist or has expired.
	Load(ctx context.Context, id string) (*Data, error)
	// Save writes data for id with the given time-to-live.
	Save(ctx context.Context, id string, data Data, ttl time.Duration) error
	// Delete removes id. Deleting a missing session is not an error.
	Delete(ctx context.Context, id string) error
	// Ping checks backend connectivity.
	Ping(ctx context.Context) error
}

func encode(data Data) ([]byte, error) {
	b, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal session: %w", err)
	}
	return b, nil
}

func decode(b []byte) (*Data, error) {
	var data Data
	if err := json.Unmarshal(b, &data); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &data, nil
}

type memoryEntry struct {
	payload   []byte
	expiresAt time.Time
}

// MemoryStore keeps sessions in process memory. Sessions are lost on
// restart and are not shared between instances.
type MemoryStore struct {
	mu         sync.Mutex
	entries    map[string]memoryEntry
	now        func() time.Time
	maxEntries int
	nextSweep  time.Time
}

const (
	// DefaultMaxMemorySessions caps a MemoryStore. Saving a new session into a
	// full store evicts an arbitrary existing one.
	DefaultMaxMemorySessions = 100_000

	memorySweepInterval = time.Minute
)

// NewMemoryStore creates an empty MemoryStore holding at most
// DefaultMaxMemorySessions sessions.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries:    make(map[string]memoryEntry),
		now:        time.Now,
		maxEntries: DefaultMaxMemorySessions,
	}
}

// Load implements Store.
func (s *MemoryStore) Load(_ context.Context, id string) (*Data, error) {
	s.mu.Lock()
	entry, ok := s.entries[id]
	if ok && !s.now().Before(entry.expiresAt) {
		delete(s.entries, id)
		ok = false
	}
	s.mu.Unlock()

	if !ok {
		return nil, nil
	}
	return decode(entry.payload)
}

// Save implements Store.
func (s *MemoryStore) Save(_ context.Context, id string, data Data, ttl time.Duration) error {
	payload, err := encode(data)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if !now.Before(s.nextSweep) {
		s.sweep(now)
	}
	if _, exists := s.entries[id]; !exists && s.maxEntries > 0 && len(s.entries) >= s.maxEntries {
		for victim := range s.entries {
			if len(s.entries) < s.maxEntries {
				break
			}
			delete(s.entries, victim)
		}
	}
	s.entries[id] = memoryEntry{payload: payload, expiresAt: now.Add(ttl)}
	return nil
}

// sweep drops expired entries. The caller holds s.mu.
func (s *MemoryStore) sweep(now time.Time) {
	for id, entry := range s.entries {
		if !now.Before(entry.expiresAt) {
			delete(s.entries, id)
		}
	}
	s.nextSweep = now.Add(memorySweepInterval)
}

// Delete implements Store.
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
	return nil
}

// Ping implements Store.
func (s *MemoryStore) Ping(context.Context) error {
	return nil
}

// Len returns the number of stored sessions, expired ones included.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
