// Package share is the lifecycle state machine: it creates shares from
// already-encrypted content and gates consumption by expiry, view budget,
// and the optional access password.
package share

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"zero.share/internal/crypto"
	"zero.share/internal/models"
	"zero.share/internal/store"
)

var (
	// ErrEmptyContent rejects a create with no ciphertext before any
	// storage effect.
	ErrEmptyContent = errors.New("content is required")

	// ErrInvalidExpiration rejects any expiration outside the enumerated
	// option set. Options are never clamped.
	ErrInvalidExpiration = errors.New("invalid expiration option")

	// ErrInvalidInput covers the remaining create validation failures.
	ErrInvalidInput = errors.New("invalid input")

	// ErrGone is the uniform outcome for a share that is missing, expired,
	// or exhausted. Callers must not be able to tell which; all three mean
	// "this link is no longer valid".
	ErrGone = errors.New("share is no longer available")

	// ErrInvalidPassword stays distinct from ErrGone so the recipient can
	// retry. A failed attempt never consumes a view.
	ErrInvalidPassword = store.ErrInvalidPassword
)

// Limits bound what a single share may carry.
type Limits struct {
	MaxContentBytes    int
	MaxAttachments     int
	MaxAttachmentBytes int
	MaxViewsLimit      int
}

// Service orchestrates creation and consumption on top of a Store. It never
// sees plaintext or key material: content arrives encrypted and leaves
// encrypted.
type Service struct {
	store  store.Store
	limits Limits
	logger *slog.Logger
	now    func() time.Time
}

func NewService(s store.Store, limits Limits, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:  s,
		limits: limits,
		logger: logger,
		now:    time.Now,
	}
}

// CreateRequest carries everything the sender's device produced. The
// encryption key is conspicuously absent: it never crosses this boundary.
type CreateRequest struct {
	Title            string
	EncryptedContent string
	IV               string
	Attachments      []models.Attachment
	Expiration       string
	MaxViews         int
	Password         string
	LinkType         string
}

type CreateResult struct {
	ID        string
	ExpiresAt time.Time
	MaxViews  int
}

// Create validates the request, hashes the optional access password, and
// inserts the record. Validation failures happen before any storage effect.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*CreateResult, error) {
	if req.EncryptedContent == "" {
		return nil, ErrEmptyContent
	}
	if req.IV == "" {
		return nil, fmt.Errorf("%w: iv is required", ErrInvalidInput)
	}

	ttl, ok := models.ExpirationDuration(req.Expiration)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidExpiration, req.Expiration)
	}

	if req.MaxViews < 0 {
		return nil, fmt.Errorf("%w: max_views must be >= 0", ErrInvalidInput)
	}
	if s.limits.MaxViewsLimit > 0 && req.MaxViews > s.limits.MaxViewsLimit {
		return nil, fmt.Errorf("%w: max_views exceeds limit %d", ErrInvalidInput, s.limits.MaxViewsLimit)
	}
	if s.limits.MaxContentBytes > 0 && len(req.EncryptedContent) > s.limits.MaxContentBytes {
		return nil, fmt.Errorf("%w: content too large", ErrInvalidInput)
	}
	if s.limits.MaxAttachments > 0 && len(req.Attachments) > s.limits.MaxAttachments {
		return nil, fmt.Errorf("%w: too many attachments", ErrInvalidInput)
	}
	for _, a := range req.Attachments {
		if a.EncryptedContent == "" || a.IV == "" {
			return nil, fmt.Errorf("%w: attachment missing content or iv", ErrInvalidInput)
		}
		if s.limits.MaxAttachmentBytes > 0 && len(a.EncryptedContent) > s.limits.MaxAttachmentBytes {
			return nil, fmt.Errorf("%w: attachment too large", ErrInvalidInput)
		}
	}

	linkType := req.LinkType
	if linkType == "" {
		linkType = models.LinkTypeStandard
	}
	if linkType != models.LinkTypeStandard {
		return nil, fmt.Errorf("%w: unknown link type %q", ErrInvalidInput, linkType)
	}

	now := s.now()
	record := &models.Share{
		Title:            req.Title,
		EncryptedContent: req.EncryptedContent,
		IV:               req.IV,
		Attachments:      req.Attachments,
		LinkType:         linkType,
		ExpiresAt:        now.Add(ttl),
		MaxViews:         req.MaxViews,
		CreatedAt:        now,
	}

	if req.Password != "" {
		hash, err := crypto.HashPassword(req.Password)
		if err != nil {
			return nil, err
		}
		record.RequirePassword = true
		record.PasswordHash = hash
	}

	id, err := s.store.Insert(ctx, record)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "share created",
		"id", id,
		"expires_at", record.ExpiresAt,
		"max_views", record.MaxViews,
		"require_password", record.RequirePassword,
		"attachments", len(record.Attachments),
	)

	return &CreateResult{ID: id, ExpiresAt: record.ExpiresAt, MaxViews: record.MaxViews}, nil
}

// Consume performs one atomic reveal. Missing, expired, and exhausted
// shares all come back as ErrGone; only ErrInvalidPassword is distinct,
// and it leaves the view counter untouched.
func (s *Service) Consume(ctx context.Context, id, password string) (*store.ConsumeResult, error) {
	result, err := s.store.AtomicConsume(ctx, id, func(passwordHash string) bool {
		return crypto.VerifyPassword(password, passwordHash)
	})
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound),
			errors.Is(err, store.ErrExpired),
			errors.Is(err, store.ErrExhausted):
			return nil, ErrGone
		case errors.Is(err, store.ErrInvalidPassword):
			return nil, ErrInvalidPassword
		default:
			return nil, err
		}
	}

	s.logger.InfoContext(ctx, "share consumed",
		"id", id,
		"views_remaining", result.ViewsRemaining,
	)
	return result, nil
}

// Peek returns the non-consuming metadata projection, with the same uniform
// ErrGone collapse as Consume.
func (s *Service) Peek(ctx context.Context, id string) (*models.Metadata, error) {
	meta, err := s.store.PeekMetadata(ctx, id)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound),
			errors.Is(err, store.ErrExpired),
			errors.Is(err, store.ErrExhausted):
			return nil, ErrGone
		default:
			return nil, err
		}
	}
	return meta, nil
}
