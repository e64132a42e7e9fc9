package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/julianstephens/habitkeep/internal/models"
)

// DiskStore keeps one JSON file per user, named after the user's email.
//
// Writes go to a temp file in the same directory that is renamed over the
// previous file, so a reader sees either the old or the new list.
type DiskStore struct {
	dir    string
	policy models.OrderPolicy
}

func NewDiskStore(dir string, policy models.OrderPolicy) *DiskStore {
	return &DiskStore{dir: dir, policy: policy}
}

// Init creates the data directory.
func (s *DiskStore) Init() error {
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return PersistenceError("create data directory", err)
	}
	return nil
}

// Path returns the file holding user's list.
func (s *DiskStore) Path(user User) (string, error) {
	email := strings.TrimSpace(user.Email)
	if email == "" {
		return "", fmt.Errorf("disk storage needs a user email")
	}
	if strings.ContainsAny(email, `/\`) || email == "." || email == ".." {
		return "", fmt.Errorf("invalid email for file name: %q", email)
	}
	return filepath.Join(s.dir, email+".json"), nil
}

func (s *DiskStore) Load(ctx context.Context, user User) (*models.HabitList, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := s.Path(user)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, PersistenceError("read "+path, err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, fmt.Errorf("%w: %s is empty", ErrCorruptData, path)
	}

	return Decode(data)
}

func (s *DiskStore) Save(ctx context.Context, user User, list *models.HabitList) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.Path(user)
	if err != nil {
		return err
	}
	data, err := Encode(list)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return PersistenceError("create data directory", err)
	}
	return writeFileAtomic(path, data)
}

func (s *DiskStore) MergeAndSave(ctx context.Context, user User, incoming *models.HabitList) (*models.HabitList, error) {
	return MergeAndSave[User](ctx, s, user, incoming, s.policy)
}

func (s *DiskStore) Close() error {
	return nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return PersistenceError("create temp file", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return PersistenceError("write "+tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return PersistenceError("sync "+tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return PersistenceError("close "+tmpName, err)
	}
	if err := os.Chmod(tmpName, 0600); err != nil {
		cleanup()
		return PersistenceError("chmod "+tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return PersistenceError("replace "+path, err)
	}
	return nil
}
