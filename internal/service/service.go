// Package service applies habit operations against the configured storage:
// it loads an owner's list, mutates it and saves it back, one caller per
// owner at a time.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/julianstephens/habitkeep/internal/backup"
	"github.com/julianstephens/habitkeep/internal/constants"
	"github.com/julianstephens/habitkeep/internal/logger"
	"github.com/julianstephens/habitkeep/internal/models"
	"github.com/julianstephens/habitkeep/internal/storage"
	"github.com/julianstephens/habitkeep/internal/transfer"
)

var (
	// ErrHabitNotFound is returned when an operation names an id the list does not hold
	ErrHabitNotFound = errors.New("habit not found")
	// ErrInvalidRequest is returned for malformed arguments outside the model's own checks
	ErrInvalidRequest = errors.New("invalid request")
	// ErrNoSessions is returned by session operations when no session storage is configured
	ErrNoSessions = errors.New("session storage not configured")
)

// Backuper snapshots a user's persisted list.
type Backuper interface {
	Backup(ctx context.Context, user storage.User) (string, error)
}

type Service struct {
	users    storage.UserStorage
	sessions storage.SessionStorage
	backups  Backuper
	locks    keyedMutex
	now      func() time.Time
	rng      *rand.Rand
}

type Option func(*Service)

// WithSessions enables the session operations.
func WithSessions(sessions storage.SessionStorage) Option {
	return func(s *Service) { s.sessions = sessions }
}

// WithBackups snapshots user data before imports.
func WithBackups(b Backuper) Option {
	return func(s *Service) { s.backups = b }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithRand seeds the demo list generator, for tests.
func WithRand(rng *rand.Rand) Option {
	return func(s *Service) { s.rng = rng }
}

func New(users storage.UserStorage, opts ...Option) *Service {
	s := &Service{
		users: users,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewPCG(uint64(s.now().UnixNano()), rand.Uint64()))
	}
	return s
}

func (s *Service) Today() models.Day {
	return models.DayOf(s.now())
}

// UserList returns the user's list, saving an empty one on first use.
func (s *Service) UserList(ctx context.Context, user storage.User) (*models.HabitList, error) {
	unlock := s.locks.lock(userKey(user))
	defer unlock()
	return s.loadOrCreate(ctx, user)
}

// UserHabit looks up one habit in the user's list.
func (s *Service) UserHabit(ctx context.Context, user storage.User, id string) (*models.Habit, error) {
	list, err := s.UserList(ctx, user)
	if err != nil {
		return nil, err
	}
	h, ok := list.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrHabitNotFound, id)
	}
	return h, nil
}

func (s *Service) loadOrCreate(ctx context.Context, user storage.User) (*models.HabitList, error) {
	list, err := s.users.Load(ctx, user)
	if err != nil {
		return nil, err
	}
	if list != nil {
		return list, nil
	}

	list, err = models.NewHabitList(nil, nil)
	if err != nil {
		return nil, err
	}
	if err := s.users.Save(ctx, user, list); err != nil {
		return nil, err
	}
	logger.Info("Created habit list", "user", user)
	return list, nil
}

// edit runs fn on the user's current list and saves the result. Edits
// replace the stored list rather than merging into it, so removals,
// unticks and renames stick.
func (s *Service) edit(ctx context.Context, user storage.User, fn func(*models.HabitList) error) (*models.HabitList, error) {
	unlock := s.locks.lock(userKey(user))
	defer unlock()

	list, err := s.loadOrCreate(ctx, user)
	if err != nil {
		return nil, err
	}
	if err := fn(list); err != nil {
		return nil, err
	}
	if err := s.users.Save(ctx, user, list); err != nil {
		return nil, err
	}
	return list, nil
}

// editHabit is edit for a single habit looked up by id.
func (s *Service) editHabit(ctx context.Context, user storage.User, id string, fn func(*models.Habit) error) (*models.Habit, error) {
	var target *models.Habit
	_, err := s.edit(ctx, user, func(list *models.HabitList) error {
		h, ok := list.Get(id)
		if !ok {
			return fmt.Errorf("%w: %s", ErrHabitNotFound, id)
		}
		target = h
		return fn(h)
	})
	if err != nil {
		return nil, err
	}
	return target, nil
}

func (s *Service) AddHabit(ctx context.Context, user storage.User, name string) (*models.Habit, error) {
	var added *models.Habit
	_, err := s.edit(ctx, user, func(list *models.HabitList) error {
		h, err := list.Add(name)
		added = h
		return err
	})
	if err != nil {
		return nil, err
	}
	logger.Info("Added habit", "user", user, "habit", added)
	return added, nil
}

func (s *Service) TickHabit(ctx context.Context, user storage.User, id string, day models.Day, done bool) (*models.Habit, error) {
	if !day.IsValid() {
		return nil, fmt.Errorf("%w %q", models.ErrInvalidDay, day)
	}
	return s.editHabit(ctx, user, id, func(h *models.Habit) error {
		h.Tick(day, done)
		return nil
	})
}

func (s *Service) RenameHabit(ctx context.Context, user storage.User, id, name string) (*models.Habit, error) {
	return s.editHabit(ctx, user, id, func(h *models.Habit) error {
		return h.Rename(name)
	})
}

func (s *Service) StarHabit(ctx context.Context, user storage.User, id string, star bool) (*models.Habit, error) {
	return s.editHabit(ctx, user, id, func(h *models.Habit) error {
		h.SetStar(star)
		return nil
	})
}

func (s *Service) SetHabitStatus(ctx context.Context, user storage.User, id string, status models.Status) (*models.Habit, error) {
	return s.editHabit(ctx, user, id, func(h *models.Habit) error {
		return h.SetStatus(status)
	})
}

// HabitUpdate carries the fields of a partial habit edit. Nil fields are
// left alone.
type HabitUpdate struct {
	Name   *string
	Star   *bool
	Status *models.Status
}

// UpdateHabit applies every present field of u in one edit. If any field is
// rejected nothing is saved.
func (s *Service) UpdateHabit(ctx context.Context, user storage.User, id string, u HabitUpdate) (*models.Habit, error) {
	return s.editHabit(ctx, user, id, func(h *models.Habit) error {
		if u.Name != nil {
			if err := h.Rename(*u.Name); err != nil {
				return err
			}
		}
		if u.Star != nil {
			h.SetStar(*u.Star)
		}
		if u.Status != nil {
			return h.SetStatus(*u.Status)
		}
		return nil
	})
}

// RemoveHabit deletes a habit outright. Removing an unknown id is a no-op.
func (s *Service) RemoveHabit(ctx context.Context, user storage.User, id string) error {
	_, err := s.edit(ctx, user, func(list *models.HabitList) error {
		list.RemoveByID(id)
		return nil
	})
	return err
}

func (s *Service) SetOrder(ctx context.Context, user storage.User, ids []string) (*models.HabitList, error) {
	return s.edit(ctx, user, func(list *models.HabitList) error {
		list.SetOrder(ids)
		return nil
	})
}

func (s *Service) MoveHabit(ctx context.Context, user storage.User, id string, index int) (*models.HabitList, error) {
	return s.edit(ctx, user, func(list *models.HabitList) error {
		if _, ok := list.Get(id); !ok {
			return fmt.Errorf("%w: %s", ErrHabitNotFound, id)
		}
		if err := list.Move(id, index); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
		}
		return nil
	})
}

// Sync merges a client's full list into the stored one.
func (s *Service) Sync(ctx context.Context, user storage.User, incoming *models.HabitList) (*models.HabitList, error) {
	if incoming == nil {
		return nil, fmt.Errorf("%w: no habit list given", ErrInvalidRequest)
	}
	unlock := s.locks.lock(userKey(user))
	defer unlock()
	return s.users.MergeAndSave(ctx, user, incoming)
}

// Import validates the payload, snapshots the current data, then merges
// the imported habits in. An invalid payload never touches storage.
func (s *Service) Import(ctx context.Context, user storage.User, r io.Reader) (*models.HabitList, error) {
	incoming, err := transfer.ParseImport(r)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.lock(userKey(user))
	defer unlock()

	s.backupBeforeImport(ctx, user)

	merged, err := s.users.MergeAndSave(ctx, user, incoming)
	if err != nil {
		return nil, err
	}
	logger.Info("Imported habits", "user", user, "imported", incoming.Len(), "total", merged.Len())
	return merged, nil
}

// backupBeforeImport never blocks the import; a failed snapshot is logged.
func (s *Service) backupBeforeImport(ctx context.Context, user storage.User) {
	if s.backups == nil {
		return
	}
	path, err := s.backups.Backup(ctx, user)
	switch {
	case errors.Is(err, backup.ErrNoSource):
		logger.Debug("No existing data to back up before import", "user", user)
	case err != nil:
		logger.Warn("Backup before import failed", "user", user, "error", err)
	default:
		logger.Info("Backed up habits before import", "user", user, "path", path)
	}
}

// Export writes the user's list as an export document and returns the
// suggested file name.
func (s *Service) Export(ctx context.Context, user storage.User, w io.Writer) (string, error) {
	list, err := s.UserList(ctx, user)
	if err != nil {
		return "", err
	}
	now := s.now()
	if err := transfer.Export(w, list, user.Email, now); err != nil {
		return "", err
	}
	return transfer.FileName(now), nil
}

// NewSessionID returns a fresh random session id.
func NewSessionID() string {
	return uuid.NewString()
}

// SessionList returns a session's list, seeding new sessions with the demo list.
func (s *Service) SessionList(ctx context.Context, sessionID string) (*models.HabitList, error) {
	if s.sessions == nil {
		return nil, ErrNoSessions
	}
	if sessionID == "" {
		return nil, fmt.Errorf("%w: session id is required", ErrInvalidRequest)
	}
	unlock := s.locks.lock("session:" + sessionID)
	defer unlock()

	list, err := s.sessions.Load(ctx, sessionID)
	if err != nil || list != nil {
		return list, err
	}

	list, err = s.DemoHabitList(constants.DemoHabitDays)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.Save(ctx, sessionID, list); err != nil {
		return nil, err
	}
	logger.Debug("Seeded session with demo habits", "session", sessionID)
	return list, nil
}

// SyncSession merges a client's list into the session's stored list.
func (s *Service) SyncSession(ctx context.Context, sessionID string, incoming *models.HabitList) (*models.HabitList, error) {
	if s.sessions == nil {
		return nil, ErrNoSessions
	}
	if sessionID == "" || incoming == nil {
		return nil, fmt.Errorf("%w: session id and habit list are required", ErrInvalidRequest)
	}
	unlock := s.locks.lock("session:" + sessionID)
	defer unlock()
	return s.sessions.MergeAndSave(ctx, sessionID, incoming)
}

func (s *Service) EndSession(ctx context.Context, sessionID string) error {
	if s.sessions == nil {
		return ErrNoSessions
	}
	unlock := s.locks.lock("session:" + sessionID)
	defer unlock()
	return s.sessions.Delete(ctx, sessionID)
}

func userKey(user storage.User) string {
	return "user:" + user.ID + "\x00" + user.Email
}
