package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisTestStore(t *testing.T) *RedisStore {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	s, err := NewRedisStore(RedisConfig{Addr: addr, Prefix: "taiexcache-test-" + uuid.NewString()}, taipei)
	require.NoError(t, err)
	s.Now = func() time.Time { return time.Date(2024, 6, 5, 10, 0, 0, 0, taipei) }
	t.Cleanup(func() {
		s.ClearAll(context.Background())
		s.Close()
	})
	return s
}

func TestRedisStore_RoundTrip(t *testing.T) {
	s := newRedisTestStore(t)
	ctx := context.Background()

	_, err := s.Load(ctx, "TSE")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Save(ctx, "TSE", sampleRows()))
	rows, err := s.Load(ctx, "TSE")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 101.25, rows[1].MA5.Unwrap())
	assert.True(t, rows[0].MA5.IsNone())

	require.NoError(t, s.Clear(ctx, "TSE"))
	_, err = s.Load(ctx, "TSE")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStore_CorruptValue(t *testing.T) {
	s := newRedisTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.client.Set(ctx, s.key("OTC"), "{broken", 0).Err())

	_, err := s.Load(ctx, "OTC")
	assert.ErrorIs(t, err, ErrCorrupt)
	_, err = s.Load(ctx, "OTC")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStore_Ping(t *testing.T) {
	s := newRedisTestStore(t)
	var p Pinger = s
	assert.NoError(t, p.Ping(context.Background()))
}
