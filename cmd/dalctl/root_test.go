package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	a := new(app)
	root := newRootCmd(a)
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := a.execute(context.Background(), root)
	assert.Nil(t, a.shutdown, "telemetry is flushed after every run")
	return out.String(), err
}

func useSQLite(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("TINYDAL_DATABASE_DRIVER", "sqlite")
	t.Setenv("TINYDAL_DATABASE_PATH", filepath.Join(dir, "dal.db"))
	t.Setenv("TINYDAL_LOG_LEVEL", "error")

	migrations := filepath.Join(dir, "migrations")
	require.NoError(t, os.Mkdir(migrations, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(migrations, "000001_items.up.sql"),
		[]byte("CREATE TABLE items (id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT NOT NULL);"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(migrations, "000001_items.down.sql"),
		[]byte("DROP TABLE items;"), 0o600))
	return migrations
}

func TestMigrateThenCheck(t *testing.T) {
	migrations := useSQLite(t)

	out, err := runCmd(t, "migrate", "--dir", migrations)
	require.NoError(t, err)
	assert.Contains(t, out, "migrations applied")

	// Reapplying is a no-op.
	_, err = runCmd(t, "migrate", "--dir", migrations)
	require.NoError(t, err)

	t.Setenv("TINYDAL_SESSION_TENANT_ID", "454")
	t.Setenv("TINYDAL_SESSION_ISOLATION", "serializable")
	out, err = runCmd(t, "check")
	require.NoError(t, err)
	assert.Contains(t, out, "ok driver=sqlite")
	assert.Contains(t, out, "tenant=454")
	assert.Contains(t, out, "isolation=serializable")
}

func TestCheckUnscoped(t *testing.T) {
	useSQLite(t)

	out, err := runCmd(t, "check")
	require.NoError(t, err)
	assert.Contains(t, out, "tenant=none")
	assert.Contains(t, out, "isolation=read_committed")
}

func TestMigrateMissingDir(t *testing.T) {
	useSQLite(t)

	_, err := runCmd(t, "migrate", "--dir", filepath.Join(t.TempDir(), "absent"))
	assert.ErrorContains(t, err, "migrations directory")
}

func TestInvalidConfig(t *testing.T) {
	useSQLite(t)
	t.Setenv("TINYDAL_SESSION_ISOLATION", "snapshot")

	_, err := runCmd(t, "check")
	assert.ErrorContains(t, err, "session.isolation")
}

func TestExecuteFlushesTelemetryOnFailure(t *testing.T) {
	flushed := 0
	a := &app{shutdown: func(context.Context) { flushed++ }}

	boom := errors.New("boom")
	cmd := &cobra.Command{
		Use:           "failing",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          func(*cobra.Command, []string) error { return boom },
	}
	cmd.SetArgs([]string{})

	assert.ErrorIs(t, a.execute(context.Background(), cmd), boom)
	assert.Equal(t, 1, flushed)

	a.close(context.Background())
	assert.Equal(t, 1, flushed, "shutdown runs once")
}
