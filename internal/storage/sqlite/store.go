package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/julianstephens/habitkeep/internal/logger"
	"github.com/julianstephens/habitkeep/internal/migration"
	"github.com/julianstephens/habitkeep/internal/models"
	"github.com/julianstephens/habitkeep/internal/storage"
	"github.com/julianstephens/habitkeep/migrations"
)

// Store keeps each user's list as one JSON row in habit_lists, keyed by user id.
type Store struct {
	path   string
	db     *sql.DB
	policy models.OrderPolicy
}

func New(path string, policy models.OrderPolicy) *Store {
	return &Store{
		path:   path,
		policy: policy,
	}
}

// Open creates the database file if needed and brings the schema up to date.
func (s *Store) Open(ctx context.Context) error {
	if s.db != nil {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return storage.PersistenceError("create database directory", err)
	}

	dsn := "file:" + s.path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return storage.PersistenceError("open database", err)
	}
	// one writer keeps SQLite from returning SQLITE_BUSY under rapid saves
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return storage.PersistenceError("open database", err)
	}
	s.db = db

	if err := s.runMigrations(ctx); err != nil {
		return storage.PersistenceError("run migrations", err)
	}
	return nil
}

func (s *Store) runMigrations(ctx context.Context) error {
	subFS, err := fs.Sub(migrations.FS, "sqlite")
	if err != nil {
		return fmt.Errorf("failed to access sqlite migrations: %w", err)
	}

	runner := migration.NewRunner(s.db, subFS, migration.SQLite)
	_, err = runner.ApplyMigrations(ctx, func(msg string) {
		logger.Debug(msg, "backend", "sqlite")
	})
	return err
}

func (s *Store) Load(ctx context.Context, user storage.User) (*models.HabitList, error) {
	if err := s.check(user); err != nil {
		return nil, err
	}

	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM habit_lists WHERE user_id = ?`, user.ID).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, storage.PersistenceError("load habit list", err)
	}

	return storage.Decode([]byte(data))
}

func (s *Store) Save(ctx context.Context, user storage.User, list *models.HabitList) error {
	if err := s.check(user); err != nil {
		return err
	}
	data, err := storage.Encode(list)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO habit_lists (user_id, email, data, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			email = excluded.email,
			data = excluded.data,
			updated_at = excluded.updated_at`,
		user.ID, user.Email, string(data), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return storage.PersistenceError("save habit list", err)
	}
	return nil
}

func (s *Store) MergeAndSave(ctx context.Context, user storage.User, incoming *models.HabitList) (*models.HabitList, error) {
	return storage.MergeAndSave[storage.User](ctx, s, user, incoming, s.policy)
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// DB returns the underlying connection, nil before Open.
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) Close() error {
	if s.db != nil {
		err := s.db.Close()
		s.db = nil
		return err
	}
	return nil
}

func (s *Store) check(user storage.User) error {
	if s.db == nil {
		return fmt.Errorf("sqlite storage not opened")
	}
	if strings.TrimSpace(user.ID) == "" {
		return fmt.Errorf("database storage needs a user id")
	}
	return nil
}
