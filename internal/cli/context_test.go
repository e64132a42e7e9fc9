package cli

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianstephens/habitkeep/internal/app"
	"github.com/julianstephens/habitkeep/internal/config"
	"github.com/julianstephens/habitkeep/internal/storage"
)

func newTestContext(t *testing.T) (*Context, *int) {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.DataDir = dir

	ctx := NewContext(context.Background(), cfg, filepath.Join(dir, "config.yaml"))
	ctx.Out = &bytes.Buffer{}
	opens := 0
	ctx.Open = func(c context.Context, cfg *config.Config, withSessions bool) (*app.Backends, error) {
		opens++
		return app.Open(c, cfg, withSessions)
	}
	t.Cleanup(func() { _ = ctx.Close() })
	return ctx, &opens
}

func TestContextUser(t *testing.T) {
	ctx, _ := newTestContext(t)
	assert.Equal(t, storage.User{ID: "local", Email: "local@habitkeep"}, ctx.User())
}

func TestContextOpensLazilyOnce(t *testing.T) {
	ctx, opens := newTestContext(t)
	assert.Zero(t, *opens)

	svc, err := ctx.Service()
	require.NoError(t, err)
	again, err := ctx.Service()
	require.NoError(t, err)
	assert.Same(t, svc, again)
	assert.Equal(t, 1, *opens)

	b, err := ctx.Backends(false)
	require.NoError(t, err)
	assert.Nil(t, b.Sessions)
	assert.Equal(t, 1, *opens)
}

func TestContextReopensForSessions(t *testing.T) {
	ctx, opens := newTestContext(t)
	_, err := ctx.Backends(false)
	require.NoError(t, err)

	b, err := ctx.Backends(true)
	require.NoError(t, err)
	assert.NotNil(t, b.Sessions)
	assert.Equal(t, 2, *opens)

	_, err = ctx.Backends(false)
	require.NoError(t, err)
	assert.Equal(t, 2, *opens, "storage opened with sessions serves both")
}

func TestContextCloseAndOpenError(t *testing.T) {
	ctx, _ := newTestContext(t)
	require.NoError(t, ctx.Close())

	_, err := ctx.Service()
	require.NoError(t, err)
	require.NoError(t, ctx.Close())
	require.NoError(t, ctx.Close())

	ctx.Open = func(context.Context, *config.Config, bool) (*app.Backends, error) {
		return nil, errors.New("boom")
	}
	_, err = ctx.Service()
	assert.EqualError(t, err, "boom")
}
