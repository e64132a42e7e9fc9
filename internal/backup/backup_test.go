package backup

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/julianstephens/habitkeep/internal/constants"
	"github.com/julianstephens/habitkeep/internal/models"
	"github.com/julianstephens/habitkeep/internal/storage"
)

func setupTestDB(t *testing.T) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "habitkeep.db")
	db, err := sql.Open("sqlite", dbPath)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE habit_lists (user_id TEXT PRIMARY KEY, data TEXT)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO habit_lists VALUES ('1', '{"habits":[],"order":[]}')`)
	require.NoError(t, err)
	return dbPath
}

func setupUserFile(t *testing.T, names ...string) string {
	t.Helper()
	list, err := models.NewHabitList(nil, nil)
	require.NoError(t, err)
	for _, n := range names {
		_, err := list.Add(n)
		require.NoError(t, err)
	}
	data, err := storage.Encode(list)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "users", "me@example.com.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0700))
	require.NoError(t, os.WriteFile(path, data, 0600))
	return path
}

// fixedClock returns a clock that advances one second per call.
func fixedClock(start time.Time) func() time.Time {
	now := start
	return func() time.Time {
		now = now.Add(time.Second)
		return now
	}
}

func countRows(t *testing.T, path string) int {
	t.Helper()
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM habit_lists`).Scan(&n))
	return n
}

func TestCreateDatabaseBackup(t *testing.T) {
	dbPath := setupTestDB(t)
	mgr := NewManager(dbPath, "")

	backupPath, err := mgr.CreateBackup()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(filepath.Dir(dbPath), constants.BackupDirName), filepath.Dir(backupPath))
	assert.Regexp(t, `^habitkeep-\d{8}-\d{4}\.db$`, filepath.Base(backupPath))
	assert.Equal(t, 1, countRows(t, backupPath))
}

func TestCreateJSONBackup(t *testing.T) {
	path := setupUserFile(t, "Running")
	mgr := NewManager(path, "")

	backupPath, err := mgr.CreateBackup()
	require.NoError(t, err)
	assert.Regexp(t, `^me@example\.com-\d{8}-\d{4}\.json$`, filepath.Base(backupPath))

	data, err := os.ReadFile(backupPath)
	require.NoError(t, err)
	list, err := storage.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, 1, list.Len())
}

func TestBackupWithNoSource(t *testing.T) {
	mgr := NewManager(filepath.Join(t.TempDir(), "absent.db"), "")

	_, err := mgr.CreateBackup()
	assert.ErrorIs(t, err, ErrNoSource)
}

func TestUniqueBackupFilenames(t *testing.T) {
	dbPath := setupTestDB(t)
	mgr := NewManager(dbPath, "")
	frozen := time.Date(2024, 5, 1, 10, 30, 0, 0, time.Local)
	mgr.now = func() time.Time { return frozen }

	seen := map[string]bool{}
	for i := 0; i < 3; i++ {
		p, err := mgr.CreateBackup()
		require.NoError(t, err)
		assert.False(t, seen[p], "duplicate backup path %s", p)
		seen[p] = true
	}

	backups, err := mgr.ListBackups()
	require.NoError(t, err)
	assert.Len(t, backups, 3)
}

func TestBackupRotation(t *testing.T) {
	path := setupUserFile(t, "Running")
	mgr := NewManager(path, "")
	mgr.now = fixedClock(time.Date(2024, 1, 1, 8, 0, 0, 0, time.Local))

	for i := 0; i < constants.MaxBackups+3; i++ {
		_, err := mgr.CreateBackup()
		require.NoError(t, err)
	}

	backups, err := mgr.ListBackups()
	require.NoError(t, err)
	assert.Len(t, backups, constants.MaxBackups)
	for i := 1; i < len(backups); i++ {
		assert.False(t, backups[i].Timestamp.After(backups[i-1].Timestamp), "newest first")
	}
}

func TestListBackupsIgnoresOtherFiles(t *testing.T) {
	path := setupUserFile(t, "Running")
	mgr := NewManager(path, "")
	_, err := mgr.CreateBackup()
	require.NoError(t, err)

	dir := mgr.GetBackupDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "me@example.com-garbage.json"), []byte("{}"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other@example.com-20240101-1200.json"), []byte("{}"), 0600))

	backups, err := mgr.ListBackups()
	require.NoError(t, err)
	assert.Len(t, backups, 1)
}

func TestListBackupsMissingDir(t *testing.T) {
	mgr := NewManager(filepath.Join(t.TempDir(), "habitkeep.db"), "")

	backups, err := mgr.ListBackups()
	require.NoError(t, err)
	assert.Empty(t, backups)
}

func TestRestoreJSONBackup(t *testing.T) {
	path := setupUserFile(t, "Running")
	mgr := NewManager(path, "")
	mgr.now = fixedClock(time.Date(2024, 1, 1, 8, 0, 0, 0, time.Local))

	backupPath, err := mgr.CreateBackup()
	require.NoError(t, err)

	// overwrite the live file with a different list
	other := setupUserFile(t, "Read", "Write")
	data, err := os.ReadFile(other)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0600))

	require.NoError(t, mgr.RestoreBackup(backupPath))

	restored, err := os.ReadFile(path)
	require.NoError(t, err)
	list, err := storage.Decode(restored)
	require.NoError(t, err)
	assert.Equal(t, 1, list.Len())

	backups, err := mgr.ListBackups()
	require.NoError(t, err)
	assert.Len(t, backups, 2, "restore snapshots the current file first")
}

func TestRestoreRejectsCorruptBackup(t *testing.T) {
	dbPath := setupTestDB(t)
	mgr := NewManager(dbPath, "")
	bad := filepath.Join(t.TempDir(), "habitkeep-20240101-1200.db")
	require.NoError(t, os.WriteFile(bad, []byte("not a database"), 0600))

	assert.Error(t, mgr.RestoreBackup(bad))
	assert.Equal(t, 1, countRows(t, dbPath), "live database untouched")

	assert.Error(t, mgr.RestoreBackup(filepath.Join(t.TempDir(), "missing.db")))
}

func TestUserBackups(t *testing.T) {
	path := setupUserFile(t, "Running")
	dir := filepath.Join(t.TempDir(), "backups")
	b := NewUserBackups(func(u storage.User) (string, error) {
		if u.Email != "me@example.com" {
			return "", errors.New("unknown user")
		}
		return path, nil
	}, dir)

	got, err := b.Backup(context.Background(), storage.User{Email: "me@example.com"})
	require.NoError(t, err)
	assert.Equal(t, dir, filepath.Dir(got))

	_, err = b.Backup(context.Background(), storage.User{Email: "x@example.com"})
	assert.Error(t, err)
}

func TestParseStamp(t *testing.T) {
	for _, s := range []string{"20240101-1200", "20240101-120005", "20240101-120005-3"} {
		_, ok := parseStamp(s)
		assert.True(t, ok, s)
	}
	_, ok := parseStamp("yesterday")
	assert.False(t, ok)
}
