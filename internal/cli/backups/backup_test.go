package backups

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianstephens/habitkeep/internal/cli"
	"github.com/julianstephens/habitkeep/internal/config"
)

func newTestContext(t *testing.T, userStorage string) (*cli.Context, *bytes.Buffer) {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.DataDir = dir
	cfg.Storage.User = userStorage

	ctx := cli.NewContext(context.Background(), cfg, filepath.Join(dir, "config.yaml"))
	out := &bytes.Buffer{}
	ctx.Out = out
	ctx.Confirm = func(string, string) (bool, error) { return true, nil }
	t.Cleanup(func() { _ = ctx.Close() })
	return ctx, out
}

func addHabit(t *testing.T, ctx *cli.Context, name string) {
	t.Helper()
	svc, err := ctx.Service()
	require.NoError(t, err)
	_, err = svc.AddHabit(ctx.Ctx, ctx.User(), name)
	require.NoError(t, err)
}

func habitCount(t *testing.T, ctx *cli.Context) int {
	t.Helper()
	svc, err := ctx.Service()
	require.NoError(t, err)
	list, err := svc.UserList(ctx.Ctx, ctx.User())
	require.NoError(t, err)
	return list.Len()
}

func TestBackupNothingSaved(t *testing.T) {
	ctx, _ := newTestContext(t, config.UserStorageDisk)

	err := (&BackupCreateCmd{}).Run(ctx)
	assert.ErrorContains(t, err, "nothing to back up")
}

func TestBackupListEmpty(t *testing.T) {
	ctx, out := newTestContext(t, config.UserStorageDisk)

	require.NoError(t, (&BackupListCmd{}).Run(ctx))
	assert.Contains(t, out.String(), "No backups found.")
}

func TestBackupCreateListRestore(t *testing.T) {
	for _, backend := range []string{config.UserStorageDisk, config.UserStorageSQLite} {
		t.Run(backend, func(t *testing.T) {
			ctx, out := newTestContext(t, backend)
			addHabit(t, ctx, "Running")

			require.NoError(t, (&BackupCreateCmd{}).Run(ctx))
			assert.Contains(t, out.String(), "✓ Backup created:")

			out.Reset()
			require.NoError(t, (&BackupListCmd{}).Run(ctx))
			assert.Contains(t, out.String(), "Available backups (1 total")

			b, err := ctx.Backends(false)
			require.NoError(t, err)
			mgr, err := b.Backups.Manager(ctx.User())
			require.NoError(t, err)
			backups, err := mgr.ListBackups()
			require.NoError(t, err)
			require.Len(t, backups, 1)

			addHabit(t, ctx, "Clean")
			require.Equal(t, 2, habitCount(t, ctx))

			require.NoError(t, (&BackupRestoreCmd{BackupFile: filepath.Base(backups[0].Path)}).Run(ctx))
			assert.Contains(t, out.String(), "✓ Habits restored successfully!")
			assert.Equal(t, 1, habitCount(t, ctx))
		})
	}
}

func TestBackupRestoreCancelled(t *testing.T) {
	ctx, out := newTestContext(t, config.UserStorageDisk)
	addHabit(t, ctx, "Running")
	require.NoError(t, (&BackupCreateCmd{}).Run(ctx))

	ctx.Confirm = func(string, string) (bool, error) { return false, nil }
	b, err := ctx.Backends(false)
	require.NoError(t, err)
	mgr, err := b.Backups.Manager(ctx.User())
	require.NoError(t, err)
	backups, err := mgr.ListBackups()
	require.NoError(t, err)
	require.NotEmpty(t, backups)

	require.NoError(t, (&BackupRestoreCmd{BackupFile: backups[0].Path}).Run(ctx))
	assert.Contains(t, out.String(), "Restore cancelled.")
}

func TestBackupRestoreMissingFile(t *testing.T) {
	ctx, _ := newTestContext(t, config.UserStorageDisk)

	err := (&BackupRestoreCmd{BackupFile: "nope.json", Yes: true}).Run(ctx)
	assert.ErrorContains(t, err, "backup file not found")
}

