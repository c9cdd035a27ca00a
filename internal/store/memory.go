package store

import (
	"context"
	"fmt"
	"sync"

	"music.mint/internal/models"
)

// Compile-time interface check
var _ Store = (*MemoryStore)(nil)

// MemoryStore keeps the encoded snapshot in memory. Records still pass
// through the JSON encoding so behaviour matches the durable stores.
type MemoryStore struct {
	snapshot    []byte
	quarantined [][]byte
	saves       int
	mu          sync.RWMutex
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// NewMemoryStoreFrom starts with raw snapshot bytes, as if loaded from disk.
func NewMemoryStoreFrom(snapshot []byte) *MemoryStore {
	return &MemoryStore{snapshot: append([]byte(nil), snapshot...)}
}

func (s *MemoryStore) Load(ctx context.Context) ([]*models.Mint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.snapshot == nil {
		return []*models.Mint{}, nil
	}
	return decode(s.snapshot)
}

func (s *MemoryStore) Save(ctx context.Context, mints []*models.Mint) error {
	data, err := encode(mints)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshot = data
	s.saves++
	return nil
}

// Quarantine keeps the current snapshot bytes aside and clears it.
func (s *MemoryStore) Quarantine(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.quarantined = append(s.quarantined, s.snapshot)
	s.snapshot = nil
	return fmt.Sprintf("memory:%d", len(s.quarantined)), nil
}

// Quarantined returns the snapshots moved aside so far.
func (s *MemoryStore) Quarantined() [][]byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([][]byte(nil), s.quarantined...)
}

// Saves reports how many snapshots have been written.
func (s *MemoryStore) Saves() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saves
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshot = nil
	return nil
}
