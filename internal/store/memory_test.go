package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zero.share/internal/models"
)

func newTestShare(maxViews int, ttl time.Duration) *models.Share {
	return &models.Share{
		Title:            "test",
		EncryptedContent: "Y2lwaGVydGV4dA==",
		IV:               "bm9uY2Vub25jZQ==",
		LinkType:         models.LinkTypeStandard,
		ExpiresAt:        time.Now().Add(ttl),
		MaxViews:         maxViews,
		CreatedAt:        time.Now(),
	}
}

func noPassword(string) bool { return true }

func TestMemoryStoreInsertAllocatesID(t *testing.T) {
	s := NewMemoryStore(time.Minute)
	defer s.Close()
	ctx := context.Background()

	id1, err := s.Insert(ctx, newTestShare(1, time.Hour))
	require.NoError(t, err)
	id2, err := s.Insert(ctx, newTestShare(1, time.Hour))
	require.NoError(t, err)

	assert.NotEmpty(t, id1)
	assert.NotEqual(t, id1, id2)
}

func TestMemoryStorePeekDoesNotConsume(t *testing.T) {
	s := NewMemoryStore(time.Minute)
	defer s.Close()
	ctx := context.Background()

	id, err := s.Insert(ctx, newTestShare(1, time.Hour))
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		meta, err := s.PeekMetadata(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, 0, meta.CurrentViews)
		assert.Equal(t, 1, meta.MaxViews)
	}

	// Still exactly one view available.
	_, err = s.AtomicConsume(ctx, id, noPassword)
	require.NoError(t, err)
}

func TestMemoryStoreBurnAfterReading(t *testing.T) {
	s := NewMemoryStore(time.Minute)
	defer s.Close()
	ctx := context.Background()

	share := newTestShare(1, time.Hour)
	share.EncryptedContent = "c2stbGl2ZS1hYmMxMjM="
	id, err := s.Insert(ctx, share)
	require.NoError(t, err)

	result, err := s.AtomicConsume(ctx, id, noPassword)
	require.NoError(t, err)
	assert.Equal(t, "c2stbGl2ZS1hYmMxMjM=", result.EncryptedContent)
	assert.Equal(t, 0, result.ViewsRemaining)

	// Second read: record must behave as nonexistent.
	_, err = s.AtomicConsume(ctx, id, noPassword)
	assert.ErrorIs(t, err, ErrExhausted)

	_, err = s.PeekMetadata(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreExpiredShare(t *testing.T) {
	s := NewMemoryStore(time.Minute)
	defer s.Close()
	ctx := context.Background()

	id, err := s.Insert(ctx, newTestShare(5, -time.Minute))
	require.NoError(t, err)

	_, err = s.AtomicConsume(ctx, id, noPassword)
	assert.ErrorIs(t, err, ErrExpired)

	// Opportunistically deleted on discovery.
	_, err = s.AtomicConsume(ctx, id, noPassword)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreUnlimitedViews(t *testing.T) {
	s := NewMemoryStore(time.Minute)
	defer s.Close()
	ctx := context.Background()

	id, err := s.Insert(ctx, newTestShare(0, time.Hour))
	require.NoError(t, err)

	for i := 1; i <= 50; i++ {
		result, err := s.AtomicConsume(ctx, id, noPassword)
		require.NoError(t, err)
		assert.Equal(t, -1, result.ViewsRemaining)
		assert.Equal(t, i, result.Metadata.CurrentViews, "counter still increments for observability")
	}
}

func TestMemoryStoreWrongPasswordChargesNoView(t *testing.T) {
	s := NewMemoryStore(time.Minute)
	defer s.Close()
	ctx := context.Background()

	share := newTestShare(1, time.Hour)
	share.RequirePassword = true
	share.PasswordHash = "$argon2id$stub"
	id, err := s.Insert(ctx, share)
	require.NoError(t, err)

	wrong := func(string) bool { return false }
	for i := 0; i < 3; i++ {
		_, err := s.AtomicConsume(ctx, id, wrong)
		assert.ErrorIs(t, err, ErrInvalidPassword)
	}

	// The correct password still gets the one budgeted reveal.
	result, err := s.AtomicConsume(ctx, id, func(hash string) bool {
		return hash == "$argon2id$stub"
	})
	require.NoError(t, err)
	assert.Equal(t, 0, result.ViewsRemaining)

	_, err = s.AtomicConsume(ctx, id, noPassword)
	assert.ErrorIs(t, err, ErrExhausted)
}

func TestMemoryStoreNilPasswordCheck(t *testing.T) {
	s := NewMemoryStore(time.Minute)
	defer s.Close()
	ctx := context.Background()

	share := newTestShare(1, time.Hour)
	share.RequirePassword = true
	share.PasswordHash = "$argon2id$stub"
	id, err := s.Insert(ctx, share)
	require.NoError(t, err)

	_, err = s.AtomicConsume(ctx, id, nil)
	assert.ErrorIs(t, err, ErrInvalidPassword)
}

// TestMemoryStoreConcurrentConsume is the central correctness property:
// N+k racers on a share with N views, exactly N winners.
func TestMemoryStoreConcurrentConsume(t *testing.T) {
	const (
		maxViews = 5
		racers   = 50
	)

	s := NewMemoryStore(time.Minute)
	defer s.Close()
	ctx := context.Background()

	id, err := s.Insert(ctx, newTestShare(maxViews, time.Hour))
	require.NoError(t, err)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		exhausted int
	)

	start := make(chan struct{})
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start

			_, err := s.AtomicConsume(ctx, id, noPassword)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errIsGoneish(err):
				exhausted++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}

	close(start)
	wg.Wait()

	assert.Equal(t, maxViews, succeeded, "exactly maxViews reveals")
	assert.Equal(t, racers-maxViews, exhausted)
}

// Late racers may find the record already deleted rather than exhausted;
// both mean the same thing to a caller.
func errIsGoneish(err error) bool {
	return err == ErrExhausted || err == ErrNotFound
}

func TestMemoryStoreDeleteIdempotent(t *testing.T) {
	s := NewMemoryStore(time.Minute)
	defer s.Close()
	ctx := context.Background()

	id, err := s.Insert(ctx, newTestShare(1, time.Hour))
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, id))
	require.NoError(t, s.Delete(ctx, id))

	_, err = s.PeekMetadata(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreCleanupReapsExpired(t *testing.T) {
	s := NewMemoryStore(10 * time.Millisecond)
	defer s.Close()
	ctx := context.Background()

	id, err := s.Insert(ctx, newTestShare(1, 20*time.Millisecond))
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		_, err := s.PeekMetadata(ctx, id)
		return err != nil
	}, time.Second, 10*time.Millisecond)
}
