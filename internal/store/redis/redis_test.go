package redis_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coredex-source/Cryovex-Launcher/internal/store"
	"github.com/coredex-source/Cryovex-Launcher/internal/store/redis"
)

// Needs a live server: CRYOVEX_TEST_REDIS_ADDR=127.0.0.1:6379 go test ./...
func TestStore(t *testing.T) {
	addr := os.Getenv("CRYOVEX_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("CRYOVEX_TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()

	s, err := redis.Dial(ctx, addr, "", 0, "cryovex:test:"+uuid.NewString()+":")
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Load(ctx)
	require.ErrorIs(t, err, store.ErrNotFound)

	creds := store.Credentials{
		AccessToken:  "MC1",
		RefreshToken: "RT1",
		Username:     "Steve",
		UUID:         "UUID-1",
		SavedAt:      time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, s.Save(ctx, creds))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, creds, *got)

	require.NoError(t, s.Delete(ctx))
	assert.ErrorIs(t, s.Delete(ctx), store.ErrNotFound)
}

func TestDial_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := redis.Dial(ctx, "127.0.0.1:1", "", 0, "x:")
	assert.Error(t, err)
}
