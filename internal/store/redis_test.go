package store

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// redisTestStore connects to a local Redis or skips the test. These tests
// exercise the real WATCH/MULTI path and need a live server.
func redisTestStore(t *testing.T) *RedisStore {
	t.Helper()

	s, err := NewRedisStore(&redis.Options{Addr: "localhost:6379"})
	if err != nil {
		t.Skipf("redis not available: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRedisStoreRoundTrip(t *testing.T) {
	s := redisTestStore(t)
	ctx := context.Background()

	id, err := s.Insert(ctx, newTestShare(2, time.Hour))
	require.NoError(t, err)
	t.Cleanup(func() { s.Delete(ctx, id) })

	meta, err := s.PeekMetadata(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, meta.ID)
	assert.Equal(t, 2, meta.MaxViews)
	assert.Equal(t, 0, meta.CurrentViews)

	result, err := s.AtomicConsume(ctx, id, noPassword)
	require.NoError(t, err)
	assert.Equal(t, "Y2lwaGVydGV4dA==", result.EncryptedContent)
	assert.Equal(t, 1, result.ViewsRemaining)

	result, err = s.AtomicConsume(ctx, id, noPassword)
	require.NoError(t, err)
	assert.Equal(t, 0, result.ViewsRemaining)

	_, err = s.AtomicConsume(ctx, id, noPassword)
	assert.ErrorIs(t, err, ErrNotFound, "exhausted record is deleted in the consuming transaction")
}

func TestRedisStoreInsertRejectsExpired(t *testing.T) {
	s := redisTestStore(t)

	_, err := s.Insert(context.Background(), newTestShare(1, -time.Minute))
	assert.ErrorIs(t, err, ErrExpired)
}

func TestRedisStoreWrongPasswordChargesNoView(t *testing.T) {
	s := redisTestStore(t)
	ctx := context.Background()

	share := newTestShare(1, time.Hour)
	share.RequirePassword = true
	share.PasswordHash = "$argon2id$stub"
	id, err := s.Insert(ctx, share)
	require.NoError(t, err)
	t.Cleanup(func() { s.Delete(ctx, id) })

	_, err = s.AtomicConsume(ctx, id, func(string) bool { return false })
	assert.ErrorIs(t, err, ErrInvalidPassword)

	meta, err := s.PeekMetadata(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 0, meta.CurrentViews)
}
