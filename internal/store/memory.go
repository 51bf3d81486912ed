package store

import (
	"context"
	"sync"
	"time"

	"zero.share/internal/crypto"
	"zero.share/internal/models"
)

// Compile-time interface check
var _ Store = (*MemoryStore)(nil)

// MemoryStore keeps shares in a map guarded by a single mutex; the mutex is
// the transaction boundary for AtomicConsume. A background loop reaps
// expired records so abandoned shares do not linger until next access.
type MemoryStore struct {
	shares        map[string]*models.Share
	mu            sync.Mutex
	cleanupCancel context.CancelFunc
}

func NewMemoryStore(cleanupInterval time.Duration) *MemoryStore {
	ctx, cancel := context.WithCancel(context.Background())
	s := &MemoryStore{
		shares:        make(map[string]*models.Share),
		cleanupCancel: cancel,
	}
	go s.cleanupLoop(ctx, cleanupInterval)
	return s
}

func (s *MemoryStore) Insert(ctx context.Context, share *models.Share) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.shares == nil {
		return "", ErrUnavailable
	}

	for {
		id, err := crypto.GenerateID()
		if err != nil {
			return "", err
		}
		if _, taken := s.shares[id]; taken {
			continue // collision, new id
		}
		stored := *share
		stored.ID = id
		s.shares[id] = &stored
		return id, nil
	}
}

func (s *MemoryStore) PeekMetadata(ctx context.Context, id string) (*models.Metadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	share, ok := s.shares[id]
	if !ok {
		return nil, ErrNotFound
	}
	if !time.Now().Before(share.ExpiresAt) {
		delete(s.shares, id)
		return nil, ErrExpired
	}
	if share.MaxViews > 0 && share.CurrentViews >= share.MaxViews {
		delete(s.shares, id)
		return nil, ErrExhausted
	}
	return share.Metadata(), nil
}

// AtomicConsume holds the store mutex across the whole gate sequence, so a
// racing caller observes either the pre-increment or post-increment record,
// never anything in between.
func (s *MemoryStore) AtomicConsume(ctx context.Context, id string, check PasswordCheck) (*ConsumeResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	share, ok := s.shares[id]
	if !ok {
		return nil, ErrNotFound
	}

	if !time.Now().Before(share.ExpiresAt) {
		delete(s.shares, id)
		return nil, ErrExpired
	}

	if share.MaxViews > 0 && share.CurrentViews >= share.MaxViews {
		delete(s.shares, id)
		return nil, ErrExhausted
	}

	// Password failures charge no view; legitimate viewers are never locked
	// out by someone else's guesses against the same link.
	if share.RequirePassword && (check == nil || !check(share.PasswordHash)) {
		return nil, ErrInvalidPassword
	}

	share.CurrentViews++
	result := &ConsumeResult{
		EncryptedContent: share.EncryptedContent,
		IV:               share.IV,
		Attachments:      share.Attachments,
		Metadata:         share.Metadata(),
		ViewsRemaining:   share.ViewsRemaining(),
	}

	// Delete-on-exhaustion happens under the same lock so no later caller
	// can see a fully consumed record.
	if share.MaxViews > 0 && share.CurrentViews >= share.MaxViews {
		delete(s.shares, id)
	}

	return result, nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.shares, id)
	return nil
}

func (s *MemoryStore) Close() error {
	if s.cleanupCancel != nil {
		s.cleanupCancel()
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.shares = nil
	return nil
}

func (s *MemoryStore) cleanupLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.cleanup()
		}
	}
}

func (s *MemoryStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for id, share := range s.shares {
		expired := now.After(share.ExpiresAt)
		exhausted := share.MaxViews > 0 && share.CurrentViews >= share.MaxViews
		if expired || exhausted {
			delete(s.shares, id)
		}
	}
}
