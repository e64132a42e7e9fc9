package backup

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/julianstephens/habitkeep/internal/constants"
	"github.com/julianstephens/habitkeep/internal/logger"
	"github.com/julianstephens/habitkeep/internal/storage"
)

// ErrNoSource is returned when the file to back up does not exist yet.
var ErrNoSource = errors.New("nothing to back up")

const (
	minuteFormat = "20060102-1504"
	secondFormat = "20060102-150405"
)

// BackupInfo contains information about a backup file
type BackupInfo struct {
	Path      string
	Timestamp time.Time
	Size      int64
}

// Manager snapshots one file: a SQLite database (.db) or a user's JSON
// list (.json). Backups are named <stem>-<timestamp><ext> so managers for
// different files can share a directory without rotating each other out.
type Manager struct {
	source    string
	backupDir string
	prefix    string
	suffix    string
	now       func() time.Time
}

// NewManager creates a manager for source. An empty backupDir means a
// "backups" directory next to source.
func NewManager(source, backupDir string) *Manager {
	if backupDir == "" {
		backupDir = filepath.Join(filepath.Dir(source), constants.BackupDirName)
	}
	suffix := filepath.Ext(source)
	stem := strings.TrimSuffix(filepath.Base(source), suffix)
	return &Manager{
		source:    source,
		backupDir: backupDir,
		prefix:    stem + "-",
		suffix:    suffix,
		now:       time.Now,
	}
}

// GetBackupDir returns the backup directory path
func (m *Manager) GetBackupDir() string {
	return m.backupDir
}

func (m *Manager) isDatabase() bool {
	return m.suffix == ".db"
}

// CreateBackup snapshots the source and rotates old backups.
func (m *Manager) CreateBackup() (string, error) {
	return m.createBackup(false)
}

// skipRotation keeps a pre-restore snapshot from rotating out the backup being restored
func (m *Manager) createBackup(skipRotation bool) (string, error) {
	if _, err := os.Stat(m.source); errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("%w: %s does not exist", ErrNoSource, m.source)
	}
	if err := os.MkdirAll(m.backupDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	backupPath, err := m.uniquePath()
	if err != nil {
		return "", err
	}

	if m.isDatabase() {
		err = backupDatabase(m.source, backupPath)
	} else {
		err = copyFile(m.source, backupPath)
	}
	if err != nil {
		return "", fmt.Errorf("failed to back up %s: %w", m.source, err)
	}

	if !skipRotation {
		if err := m.rotateBackups(); err != nil {
			logger.Warn("Failed to rotate old backups", "dir", m.backupDir, "error", err)
		}
	}
	return backupPath, nil
}

// uniquePath tries minute precision, then seconds, then a counter.
func (m *Manager) uniquePath() (string, error) {
	now := m.now()
	path := filepath.Join(m.backupDir, m.prefix+now.Format(minuteFormat)+m.suffix)
	if !exists(path) {
		return path, nil
	}

	stamp := now.Format(secondFormat)
	path = filepath.Join(m.backupDir, m.prefix+stamp+m.suffix)
	for counter := 1; exists(path); counter++ {
		if counter > 100 {
			return "", fmt.Errorf("failed to generate unique backup filename")
		}
		path = filepath.Join(m.backupDir, fmt.Sprintf("%s%s-%d%s", m.prefix, stamp, counter, m.suffix))
	}
	return path, nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// backupDatabase copies a live SQLite database with VACUUM INTO, falling
// back to a plain copy when the engine refuses.
func backupDatabase(src, dst string) error {
	db, err := sql.Open("sqlite", src+"?mode=ro")
	if err != nil {
		return fmt.Errorf("failed to open source database: %w", err)
	}
	defer db.Close()

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master").Scan(&count); err != nil {
		return fmt.Errorf("source database appears to be corrupted: %w", err)
	}

	if _, err := db.Exec("VACUUM INTO ?", dst); err != nil {
		db.Close()
		return copyFile(src, dst)
	}
	return nil
}

// ListBackups returns this manager's backups, newest first.
func (m *Manager) ListBackups() ([]BackupInfo, error) {
	entries, err := os.ReadDir(m.backupDir)
	if errors.Is(err, os.ErrNotExist) {
		return []BackupInfo{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read backup directory: %w", err)
	}

	backups := []BackupInfo{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, m.prefix) || !strings.HasSuffix(name, m.suffix) {
			continue
		}

		timestamp, ok := parseStamp(strings.TrimSuffix(strings.TrimPrefix(name, m.prefix), m.suffix))
		if !ok {
			continue
		}

		path := filepath.Join(m.backupDir, name)
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		backups = append(backups, BackupInfo{Path: path, Timestamp: timestamp, Size: info.Size()})
	}

	sort.SliceStable(backups, func(i, j int) bool {
		if backups[i].Timestamp.Equal(backups[j].Timestamp) {
			return backups[i].Path > backups[j].Path
		}
		return backups[i].Timestamp.After(backups[j].Timestamp)
	})
	return backups, nil
}

// parseStamp reads YYYYMMDD-HHMM or YYYYMMDD-HHMMSS with an optional -N counter.
func parseStamp(s string) (time.Time, bool) {
	if parts := strings.Split(s, "-"); len(parts) == 3 {
		s = parts[0] + "-" + parts[1]
	}
	for _, layout := range []string{minuteFormat, secondFormat} {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// rotateBackups removes backups beyond the retention limit
func (m *Manager) rotateBackups() error {
	backups, err := m.ListBackups()
	if err != nil {
		return err
	}
	for i := constants.MaxBackups; i < len(backups); i++ {
		if err := os.Remove(backups[i].Path); err != nil {
			return fmt.Errorf("failed to remove old backup %s: %w", backups[i].Path, err)
		}
	}
	return nil
}

// RestoreBackup verifies backupPath, snapshots the current source, then
// atomically replaces the source with the backup.
func (m *Manager) RestoreBackup(backupPath string) error {
	if !exists(backupPath) {
		return fmt.Errorf("backup file does not exist: %s", backupPath)
	}
	if err := m.verifyBackup(backupPath); err != nil {
		return fmt.Errorf("backup file is corrupted or invalid: %w", err)
	}

	if exists(m.source) {
		current, err := m.createBackup(true)
		if err != nil {
			return fmt.Errorf("failed to back up current data before restore: %w", err)
		}
		logger.Info("Backed up current data before restore", "path", current)
	}

	tempPath := m.source + ".restore.tmp"
	if err := copyFile(backupPath, tempPath); err != nil {
		return fmt.Errorf("failed to copy backup file: %w", err)
	}
	if err := os.Rename(tempPath, m.source); err != nil {
		if removeErr := os.Remove(tempPath); removeErr != nil {
			logger.Warn("Failed to remove temporary file", "path", tempPath, "error", removeErr)
		}
		return fmt.Errorf("failed to restore %s: %w", m.source, err)
	}
	return nil
}

func (m *Manager) verifyBackup(path string) error {
	if !m.isDatabase() {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		_, err = storage.Decode(data)
		return err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return err
	}
	defer db.Close()

	var count int
	return db.QueryRow("SELECT COUNT(*) FROM sqlite_master").Scan(&count)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := out.ReadFrom(in); err != nil {
		return err
	}
	return out.Sync()
}

// UserBackups snapshots the file holding a user's list before risky
// operations such as import.
type UserBackups struct {
	locate    func(storage.User) (string, error)
	backupDir string
}

// NewUserBackups backs up whatever file locate returns for a user.
func NewUserBackups(locate func(storage.User) (string, error), backupDir string) *UserBackups {
	return &UserBackups{locate: locate, backupDir: backupDir}
}

func (b *UserBackups) Manager(user storage.User) (*Manager, error) {
	source, err := b.locate(user)
	if err != nil {
		return nil, err
	}
	return NewManager(source, b.backupDir), nil
}

// Backup snapshots user's data. A user with nothing saved yet yields ErrNoSource.
func (b *UserBackups) Backup(ctx context.Context, user storage.User) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m, err := b.Manager(user)
	if err != nil {
		return "", err
	}
	return m.CreateBackup()
}
