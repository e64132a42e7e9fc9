package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/julianstephens/habitkeep/internal/models"
)

var (
	// ErrPersistence marks failures of the storage medium itself (I/O, database, network)
	ErrPersistence = errors.New("persistence failure")
	// ErrCorruptData marks persisted payloads that exist but cannot be parsed
	ErrCorruptData = errors.New("corrupt persisted data")
)

// User identifies the owner of a durable habit list. Disk storage is keyed
// by Email, database storage by ID.
type User struct {
	ID    string
	Email string
}

func (u User) String() string {
	if u.Email != "" {
		return u.Email
	}
	return u.ID
}

// Store is the contract every backend satisfies for one kind of key.
//
// Load returns (nil, nil) when nothing has been saved for key yet; callers
// should start from a fresh list rather than treat it as an error. Save
// replaces the whole list; a failed Save leaves the previous list readable.
type Store[K any] interface {
	Load(ctx context.Context, key K) (*models.HabitList, error)
	Save(ctx context.Context, key K, list *models.HabitList) error
}

// UserStorage holds one durable list per user.
type UserStorage interface {
	Store[User]
	MergeAndSave(ctx context.Context, user User, incoming *models.HabitList) (*models.HabitList, error)
	Close() error
}

// SessionStorage holds one ephemeral list per client session.
type SessionStorage interface {
	Store[string]
	MergeAndSave(ctx context.Context, sessionID string, incoming *models.HabitList) (*models.HabitList, error)
	Delete(ctx context.Context, sessionID string) error
	Close() error
}

// MergeAndSave reconciles incoming with what is persisted under key and
// saves the result. With nothing persisted, incoming is saved and returned
// as is; otherwise the persisted list is the merge receiver.
func MergeAndSave[K any](ctx context.Context, s Store[K], key K, incoming *models.HabitList, policy models.OrderPolicy) (*models.HabitList, error) {
	current, err := s.Load(ctx, key)
	if err != nil {
		return nil, err
	}
	if current == nil {
		if err := s.Save(ctx, key, incoming); err != nil {
			return nil, err
		}
		return incoming, nil
	}

	merged, err := current.MergeWith(incoming, policy)
	if err != nil {
		return nil, fmt.Errorf("failed to merge habit lists: %w", err)
	}
	if err := s.Save(ctx, key, merged); err != nil {
		return nil, err
	}
	return merged, nil
}

// PersistenceError tags err as a medium failure while keeping the cause.
func PersistenceError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrPersistence, op, err)
}
