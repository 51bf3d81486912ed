// Package store persists share records keyed by opaque id and owns the one
// concurrency-critical operation of the system: AtomicConsume.
package store

import (
	"context"
	"errors"

	"zero.share/internal/models"
)

var (
	ErrNotFound        = errors.New("share not found")
	ErrExpired         = errors.New("share has expired")
	ErrExhausted       = errors.New("share has reached maximum views")
	ErrInvalidPassword = errors.New("invalid password")

	// ErrUnavailable is a retryable infrastructure failure, never one of the
	// definitive outcomes above.
	ErrUnavailable = errors.New("storage unavailable")
)

// PasswordCheck verifies a supplied password against a stored hash. It is
// invoked inside the consume critical section, before any view is charged.
type PasswordCheck func(passwordHash string) bool

// ConsumeResult is one successful reveal: the ciphertext the caller will
// decrypt with the key it already holds, plus the post-increment metadata.
type ConsumeResult struct {
	EncryptedContent string
	IV               string
	Attachments      []models.Attachment
	Metadata         *models.Metadata

	// ViewsRemaining after this reveal; -1 when the share is unlimited.
	ViewsRemaining int
}

// Store is the persistence boundary for shares.
//
// Implementations must make AtomicConsume indivisible per id: of N+k
// concurrent callers racing on a share with N views left, exactly N succeed
// and the rest observe ErrExhausted. A failed password check must not
// consume a view. Expired and exhausted records are deleted as they are
// discovered; a deleted id is never reused (ids are random capabilities).
type Store interface {
	// Insert allocates a fresh unguessable id, persists the share under it,
	// and returns the id.
	Insert(ctx context.Context, share *models.Share) (string, error)

	// PeekMetadata returns the preview projection without consuming a view
	// and without requiring the password.
	PeekMetadata(ctx context.Context, id string) (*models.Metadata, error)

	// AtomicConsume runs the full gate sequence (exists, not expired, views
	// remaining, password) and on success increments the counter and
	// returns the ciphertext, deleting the record in the same critical
	// section when the increment exhausts a bounded share.
	AtomicConsume(ctx context.Context, id string, check PasswordCheck) (*ConsumeResult, error)

	// Delete removes a share. Idempotent.
	Delete(ctx context.Context, id string) error

	Close() error
}
