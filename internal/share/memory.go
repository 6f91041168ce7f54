package share

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// MemoryStore keeps snapshots in process memory. When full, the oldest
// snapshot is dropped.
type MemoryStore struct {
	mu         sync.RWMutex
	snapshots  map[string]*Snapshot
	order      []string
	maxEntries int
}

func NewMemoryStore(maxEntries int) *MemoryStore {
	return &MemoryStore{
		snapshots:  make(map[string]*Snapshot),
		maxEntries: maxEntries,
	}
}

func (s *MemoryStore) Save(_ context.Context, payload json.RawMessage) (string, error) {
	hash := Hash(payload)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.snapshots[hash]; ok {
		return hash, nil
	}
	if s.maxEntries > 0 && len(s.order) >= s.maxEntries {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.snapshots, oldest)
	}

	s.snapshots[hash] = &Snapshot{
		Hash:      hash,
		Payload:   append(json.RawMessage(nil), payload...),
		CreatedAt: time.Now().UTC(),
	}
	s.order = append(s.order, hash)
	return hash, nil
}

func (s *MemoryStore) Get(_ context.Context, hash string) (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.snapshots[hash]
	if !ok {
		return nil, ErrNotFound
	}
	return snap, nil
}
