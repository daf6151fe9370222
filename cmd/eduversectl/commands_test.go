package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/dalemusser/eduverse/internal/app/remotesync"
	"github.com/dalemusser/eduverse/internal/app/seed"
	"github.com/dalemusser/eduverse/internal/app/store/localcache"
	"github.com/dalemusser/eduverse/internal/domain/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// localOnly is the environment of a server that has no real remote settings.
var localOnly = map[string]string{
	"EDUVERSE_REMOTE_API_KEY":      "demo-api-key",
	"EDUVERSE_REMOTE_AUTH_DOMAIN":  "demo-project.firebaseapp.com",
	"EDUVERSE_REMOTE_DATABASE_URL": "",
	"EDUVERSE_REMOTE_PROJECT_ID":   "demo-project-id",
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return executeEnv(t, localOnly, args...)
}

func executeEnv(t *testing.T, env map[string]string, args ...string) (string, error) {
	t.Helper()
	for k, v := range env {
		t.Setenv(k, v)
	}
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func seededCache(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	c, err := localcache.Open(localcache.DefaultConfig(dir), zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, c.Save(seed.Snapshot()))
	require.NoError(t, c.Close())
	return dir
}

func TestDumpLocal(t *testing.T) {
	dir := seededCache(t)

	out, err := execute(t, "dump", "--local", "--cache", dir)
	require.NoError(t, err)

	var snap models.Snapshot
	require.NoError(t, json.Unmarshal([]byte(out), &snap))
	assert.Len(t, snap.Batches, 3)
	assert.Len(t, snap.Subjects, 7)
}

func TestStatusLocalOnly(t *testing.T) {
	dir := seededCache(t)

	out, err := execute(t, "status", "--cache", dir)
	require.NoError(t, err)

	var st storeStatus
	require.NoError(t, json.Unmarshal([]byte(out), &st))
	assert.Equal(t, remotesync.ModeLocal, st.Mode)
	assert.Nil(t, st.Remote)
	require.NotNil(t, st.Cache)
	assert.Equal(t, 3, st.Cache.Batches)
}

func TestResetRequiresConfirmation(t *testing.T) {
	_, err := execute(t, "reset", "--cache", t.TempDir())
	require.Error(t, err)

	out, err := execute(t, "reset", "--yes", "--cache", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "local cache reset to seed")
}

func TestMigrateNeedsRemote(t *testing.T) {
	_, err := execute(t, "migrate-local", "--cache", t.TempDir())
	assert.True(t, errors.Is(err, remotesync.ErrRemoteDisabled), "got %v", err)
}

// holdCache opens dir the way the running server does and keeps it open for
// the rest of the test.
func holdCache(t *testing.T, dir string) {
	t.Helper()
	c, err := localcache.Open(localcache.DefaultConfig(dir), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
}

func TestStatusWhileServerHoldsCache(t *testing.T) {
	dir := seededCache(t)
	holdCache(t, dir)

	out, err := execute(t, "status", "--cache", dir)
	require.NoError(t, err)

	var st storeStatus
	require.NoError(t, json.Unmarshal([]byte(out), &st))
	assert.Equal(t, remotesync.ModeLocal, st.Mode)
	assert.Nil(t, st.Cache)
	assert.Contains(t, st.CacheError, "in use by another process")
}

func TestWritesRefusedWhileServerHoldsCache(t *testing.T) {
	dir := seededCache(t)
	holdCache(t, dir)

	tests := [][]string{
		{"reset", "--yes"},
		{"migrate-local"},
		{"purge", "--yes"},
		{"dump", "--local"},
	}
	for _, args := range tests {
		t.Run(args[0], func(t *testing.T) {
			_, err := execute(t, append(args, "--cache", dir)...)
			require.Error(t, err)
			assert.True(t, errors.Is(err, localcache.ErrLocked), "got %v", err)
		})
	}

	_, err := execute(t, "reset", "--yes", "--cache", dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "POST /admin/api/reset")
}

func TestPlaceholderCredentialsStayLocal(t *testing.T) {
	env := map[string]string{}
	for k, v := range localOnly {
		env[k] = v
	}
	// An unreachable address: any remote call would fail the command.
	env["EDUVERSE_REMOTE_DATABASE_URL"] = "mongodb://127.0.0.1:1"

	out, err := executeEnv(t, env, "reset", "--yes", "--cache", t.TempDir(), "--timeout", "2s")
	require.NoError(t, err)
	assert.Contains(t, out, "local cache reset to seed")

	out, err = executeEnv(t, env, "status", "--cache", seededCache(t), "--timeout", "2s")
	require.NoError(t, err)
	var st storeStatus
	require.NoError(t, json.Unmarshal([]byte(out), &st))
	assert.Equal(t, remotesync.ModeLocal, st.Mode)
	assert.Empty(t, st.Location)
	assert.Nil(t, st.Remote)
}

func TestAppConfigMatchesServer(t *testing.T) {
	placeholder := globalOpts{
		apiKey:      "demo-api-key",
		authDomain:  "demo-project.firebaseapp.com",
		databaseURL: "mongodb://db.internal:27017",
		projectID:   "demo-project-id",
	}
	cfg := placeholder.appConfig()
	assert.False(t, cfg.RemoteConfigured())
	assert.Equal(t, "eduverse", cfg.DatabaseName())

	configured := globalOpts{
		apiKey:      "AIzaRealKey",
		authDomain:  "school.example.com",
		databaseURL: "mongodb://db.internal:27017",
		projectID:   "school-prod",
	}
	cfg = configured.appConfig()
	assert.True(t, cfg.RemoteConfigured())
	assert.Equal(t, "school-prod", cfg.DatabaseName())
}

func TestPurgeLocal(t *testing.T) {
	dir := seededCache(t)

	_, err := execute(t, "purge", "--cache", dir)
	require.Error(t, err, "purge needs --yes")

	out, err := execute(t, "purge", "--yes", "--cache", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "local cache removed")

	_, err = execute(t, "dump", "--local", "--cache", dir)
	assert.True(t, errors.Is(err, localcache.ErrEmpty), "got %v", err)
}
