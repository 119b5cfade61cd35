package audittrail

import (
	"context"
	"sort"
	"sync"

	id "trustcore/pkg/domain"
)

// InMemoryStore keeps records per user. It only appends.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[id.UserID][]Record
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[id.UserID][]Record)}
}

func (s *InMemoryStore) Append(_ context.Context, r Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[r.UserID] = append(s.records[r.UserID], r.clone())
	return nil
}

func (s *InMemoryStore) ListByUser(_ context.Context, userID id.UserID) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Record, 0, len(s.records[userID]))
	for _, r := range s.records[userID] {
		out = append(out, r.clone())
	}
	sort.SliceStable(out, func(i, j int) bool { return newestFirst(out[i], out[j]) })
	return out, nil
}
