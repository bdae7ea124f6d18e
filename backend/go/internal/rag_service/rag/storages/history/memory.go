package history

import (
	"context"
	"sync"

	"github.com/aimankahim/mcqsbank/backend/go/internal/rag_service/rag/interfaces"
)

// InMemoryStore is a thread-safe, in-memory implementation of the HistoryStore interface.
// It keeps at most maxTurns turns per conversation.
type InMemoryStore struct {
	mu       sync.RWMutex
	maxTurns int
	turns    map[string][]interfaces.Turn
}

// NewInMemoryStore creates a new instance of InMemoryStore.
func NewInMemoryStore(maxTurns int) *InMemoryStore {
	return &InMemoryStore{
		maxTurns: maxTurns,
		turns:    make(map[string][]interfaces.Turn),
	}
}

// Append adds turns to the end of the conversation.
func (s *InMemoryStore) Append(ctx context.Context, key string, turns ...interfaces.Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := append(s.turns[key], turns...)
	if s.maxTurns > 0 && len(all) > s.maxTurns {
		all = append([]interfaces.Turn(nil), all[len(all)-s.maxTurns:]...)
	}
	s.turns[key] = all
	return nil
}

// Recent returns the last n turns in chronological order.
func (s *InMemoryStore) Recent(ctx context.Context, key string, n int) ([]interfaces.Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.turns[key]
	if n > 0 && len(all) > n {
		all = all[len(all)-n:]
	}
	out := make([]interfaces.Turn, len(all))
	copy(out, all)
	return out, nil
}

// Clear forgets the conversation.
func (s *InMemoryStore) Clear(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.turns, key)
	return nil
}

// compile-time check to ensure InMemoryStore implements the HistoryStore interface
var _ interfaces.HistoryStore = (*InMemoryStore)(nil)
