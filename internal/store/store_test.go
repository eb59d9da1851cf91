package store_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coredex-source/Cryovex-Launcher/internal/exchange"
	"github.com/coredex-source/Cryovex-Launcher/internal/store"
)

var sample = store.Credentials{
	AccessToken:  "MC1",
	RefreshToken: "RT1",
	Username:     "Steve",
	UUID:         "UUID-1",
	SavedAt:      time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC),
}

func TestFromResult(t *testing.T) {
	now := time.Date(2026, 10, 1, 14, 0, 0, 0, time.FixedZone("CEST", 2*3600))
	creds := store.FromResult(exchange.Result{AccessToken: "MC1", RefreshToken: "RT1", Username: "Steve", UUID: "UUID-1"}, now)

	assert.Equal(t, "MC1", creds.AccessToken)
	assert.Equal(t, "RT1", creds.RefreshToken)
	assert.Equal(t, "Steve", creds.Username)
	assert.Equal(t, "UUID-1", creds.UUID)
	assert.Equal(t, time.UTC, creds.SavedAt.Location())
	assert.True(t, creds.SavedAt.Equal(now))
}

// exerciseStore runs the behaviour every driver shares.
func exerciseStore(t *testing.T, s store.Store) {
	t.Helper()
	ctx := context.Background()

	_, err := s.Load(ctx)
	require.ErrorIs(t, err, store.ErrNotFound)
	require.ErrorIs(t, s.Delete(ctx), store.ErrNotFound)

	require.NoError(t, s.Save(ctx, sample))
	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, sample.AccessToken, got.AccessToken)
	assert.Equal(t, sample.Username, got.Username)
	assert.True(t, sample.SavedAt.Equal(got.SavedAt))

	next := sample
	next.Username = "Alex"
	next.AccessToken = "MC2"
	require.NoError(t, s.Save(ctx, next))
	got, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Alex", got.Username)
	assert.Equal(t, "MC2", got.AccessToken)

	require.NoError(t, s.Delete(ctx))
	_, err = s.Load(ctx)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "auth.json")
	s := store.NewFileStore(path)
	defer s.Close()
	exerciseStore(t, s)
}

func TestFileStore_FormatAndPermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auth.json")
	s := store.NewFileStore(path)
	require.NoError(t, s.Save(context.Background(), sample))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &raw))
	for _, key := range []string{"access_token", "refresh_token", "username", "uuid", "saved_at"} {
		assert.Contains(t, raw, key)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestFileStore_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auth.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := store.NewFileStore(path).Load(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, store.ErrNotFound)
}

func TestMemoryStore(t *testing.T) {
	s := store.NewMemoryStore(0)
	defer s.Close()
	exerciseStore(t, s)
}

func TestMemoryStore_Expiry(t *testing.T) {
	s := store.NewMemoryStore(20 * time.Millisecond)
	defer s.Close()
	require.NoError(t, s.Save(context.Background(), sample))

	assert.Eventually(t, func() bool {
		_, err := s.Load(context.Background())
		return err == store.ErrNotFound
	}, time.Second, 10*time.Millisecond)
}
