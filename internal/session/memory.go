package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is a mutex-guarded in-memory Store for dev and tests. It
// breaks the stateless-replica guarantee, so production runs use Redis.
type MemoryStore struct {
	mu      sync.Mutex
	code    string
	ts      float64
	present map[string]struct{}
}

// NewMemoryStore creates an empty, never-rotated store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{present: make(map[string]struct{})}
}

func (s *MemoryStore) SecretCode(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.code, nil
}

func (s *MemoryStore) SecretTimestamp(context.Context) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ts, nil
}

func (s *MemoryStore) Rotate(_ context.Context, code string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.code = code
	s.ts = float64(at.UnixNano()) / float64(time.Second)
	s.present = make(map[string]struct{})
	return nil
}

func (s *MemoryStore) AddPresent(_ context.Context, identity string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.present[identity] = struct{}{}
	return nil
}

func (s *MemoryStore) ListPresent(context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.present))
	for id := range s.present {
		out = append(out, id)
	}
	return out, nil
}
