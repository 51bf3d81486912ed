package store

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"zero.share/internal/crypto"
	"zero.share/internal/models"
)

var _ Store = (*RedisStore)(nil)

// consumeRetries bounds the optimistic-transaction retry loop. Conflicts
// past this are reported as ErrUnavailable so the caller can retry; the
// definitive outcomes (expired, exhausted, bad password) are never retried.
const consumeRetries = 3

// RedisStore persists shares as gob blobs with a key TTL derived from
// ExpiresAt, so Redis itself reaps expired records. Consumption runs as a
// WATCH/MULTI optimistic transaction per id.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(options *redis.Options) (*RedisStore, error) {
	client := redis.NewClient(options)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return &RedisStore{client: client}, nil
}

func (r *RedisStore) Insert(ctx context.Context, share *models.Share) (string, error) {
	ttl := time.Until(share.ExpiresAt)
	if ttl <= 0 {
		return "", ErrExpired
	}

	for i := 0; i < consumeRetries; i++ {
		id, err := crypto.GenerateID()
		if err != nil {
			return "", err
		}

		stored := *share
		stored.ID = id
		data, err := encodeShare(&stored)
		if err != nil {
			return "", err
		}

		ok, err := r.client.SetNX(ctx, shareKey(id), data, ttl).Result()
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		if ok {
			return id, nil
		}
		// id collision, allocate another
	}
	return "", ErrUnavailable
}

func (r *RedisStore) PeekMetadata(ctx context.Context, id string) (*models.Metadata, error) {
	data, err := r.client.Get(ctx, shareKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	share, err := decodeShare(data)
	if err != nil {
		return nil, err
	}

	// The TTL normally handles expiry; the explicit check covers clock skew
	// between writer and reader.
	if !time.Now().Before(share.ExpiresAt) {
		_ = r.Delete(ctx, id)
		return nil, ErrExpired
	}
	if share.MaxViews > 0 && share.CurrentViews >= share.MaxViews {
		_ = r.Delete(ctx, id)
		return nil, ErrExhausted
	}

	return share.Metadata(), nil
}

func (r *RedisStore) AtomicConsume(ctx context.Context, id string, check PasswordCheck) (*ConsumeResult, error) {
	key := shareKey(id)
	var result *ConsumeResult

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return ErrNotFound
			}
			return err
		}

		share, err := decodeShare(data)
		if err != nil {
			return err
		}

		if !time.Now().Before(share.ExpiresAt) {
			return ErrExpired
		}
		if share.MaxViews > 0 && share.CurrentViews >= share.MaxViews {
			return ErrExhausted
		}
		if share.RequirePassword && (check == nil || !check(share.PasswordHash)) {
			return ErrInvalidPassword
		}

		share.CurrentViews++
		result = &ConsumeResult{
			EncryptedContent: share.EncryptedContent,
			IV:               share.IV,
			Attachments:      share.Attachments,
			Metadata:         share.Metadata(),
			ViewsRemaining:   share.ViewsRemaining(),
		}

		newData, err := encodeShare(share)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if share.MaxViews > 0 && share.CurrentViews >= share.MaxViews {
				pipe.Del(ctx, key)
			} else {
				pipe.Set(ctx, key, newData, redis.KeepTTL)
			}
			return nil
		})
		return err
	}

	for i := 0; i < consumeRetries; i++ {
		err := r.client.Watch(ctx, txf, key)
		switch {
		case err == nil:
			return result, nil
		case errors.Is(err, redis.TxFailedErr):
			// Concurrent consumer touched the key; re-read and re-validate.
			continue
		case errors.Is(err, ErrExpired), errors.Is(err, ErrExhausted):
			_ = r.Delete(ctx, id)
			return nil, err
		case errors.Is(err, ErrNotFound), errors.Is(err, ErrInvalidPassword):
			return nil, err
		default:
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	}

	return nil, fmt.Errorf("%w: consume transaction kept conflicting", ErrUnavailable)
}

func (r *RedisStore) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, shareKey(id)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}

// Helpers

func shareKey(id string) string {
	return "share:" + id
}

func encodeShare(share *models.Share) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(share); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeShare(data []byte) (*models.Share, error) {
	var share models.Share
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&share); err != nil {
		return nil, err
	}
	return &share, nil
}
