package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/julianstephens/habitkeep/internal/constants"
	"github.com/julianstephens/habitkeep/internal/models"
	"github.com/julianstephens/habitkeep/internal/storage"
)

// Client is the slice of the go-redis API the session store needs.
type Client interface {
	Get(ctx context.Context, key string) *goredis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *goredis.StatusCmd
	Del(ctx context.Context, keys ...string) *goredis.IntCmd
	Close() error
}

// SessionStore keeps each session's list as a JSON string that expires
// after ttl of inactivity.
type SessionStore struct {
	client Client
	ttl    time.Duration
	policy models.OrderPolicy
}

func NewSessionStore(client Client, ttl time.Duration, policy models.OrderPolicy) *SessionStore {
	if ttl <= 0 {
		ttl = constants.DefaultSessionTTL
	}
	return &SessionStore{
		client: client,
		ttl:    ttl,
		policy: policy,
	}
}

// SessionKey is the Redis key holding a session's list.
func SessionKey(sessionID string) string {
	return constants.RedisSessionPrefix + sessionID
}

func (s *SessionStore) Load(ctx context.Context, sessionID string) (*models.HabitList, error) {
	data, err := s.client.Get(ctx, SessionKey(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}
		return nil, storage.PersistenceError("load session", err)
	}
	return storage.Decode(data)
}

func (s *SessionStore) Save(ctx context.Context, sessionID string, list *models.HabitList) error {
	if sessionID == "" {
		return fmt.Errorf("session id is required")
	}
	data, err := storage.Encode(list)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, SessionKey(sessionID), data, s.ttl).Err(); err != nil {
		return storage.PersistenceError("save session", err)
	}
	return nil
}

func (s *SessionStore) MergeAndSave(ctx context.Context, sessionID string, incoming *models.HabitList) (*models.HabitList, error) {
	return storage.MergeAndSave[string](ctx, s, sessionID, incoming, s.policy)
}

// Delete drops a session's list.
func (s *SessionStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, SessionKey(sessionID)).Err(); err != nil {
		return storage.PersistenceError("delete session", err)
	}
	return nil
}

func (s *SessionStore) Close() error {
	return s.client.Close()
}
