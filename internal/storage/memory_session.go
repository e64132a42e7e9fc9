package storage

import (
	"context"
	"sync"

	"github.com/julianstephens/habitkeep/internal/models"
)

// MemorySessionStore keeps session lists in process memory. Lists are
// copied in and out so callers never share state with the store.
type MemorySessionStore struct {
	mu     sync.RWMutex
	lists  map[string]*models.HabitList
	policy models.OrderPolicy
}

func NewMemorySessionStore(policy models.OrderPolicy) *MemorySessionStore {
	return &MemorySessionStore{
		lists:  make(map[string]*models.HabitList),
		policy: policy,
	}
}

func (s *MemorySessionStore) Load(ctx context.Context, sessionID string) (*models.HabitList, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	list, ok := s.lists[sessionID]
	if !ok {
		return nil, nil
	}
	return list.Clone(), nil
}

func (s *MemorySessionStore) Save(ctx context.Context, sessionID string, list *models.HabitList) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if list == nil {
		return errNilList
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lists[sessionID] = list.Clone()
	return nil
}

func (s *MemorySessionStore) MergeAndSave(ctx context.Context, sessionID string, incoming *models.HabitList) (*models.HabitList, error) {
	return MergeAndSave[string](ctx, s, sessionID, incoming, s.policy)
}

// Delete forgets a session's list.
func (s *MemorySessionStore) Delete(ctx context.Context, sessionID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.lists, sessionID)
	return nil
}

func (s *MemorySessionStore) Close() error {
	return nil
}
