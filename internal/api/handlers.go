package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"zero.share/internal/link"
	"zero.share/internal/models"
	"zero.share/internal/share"
	"zero.share/internal/store"
)

type Handler struct {
	shares *share.Service
	links  *link.Codec
	logger *slog.Logger
}

func NewHandler(shares *share.Service, links *link.Codec, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		shares: shares,
		links:  links,
		logger: logger,
	}
}

type CreateRequest struct {
	Title            string              `json:"title,omitempty"`
	EncryptedContent string              `json:"encrypted_content"`
	IV               string              `json:"iv"`
	Attachments      []models.Attachment `json:"attachments,omitempty"`
	Expiration       string              `json:"expiration"`
	MaxViews         int                 `json:"max_views"`
	Password         string              `json:"password,omitempty"`
	LinkType         string              `json:"link_type,omitempty"`
}

// CreateResponse deliberately has no place for the key: the URL it returns
// is fragment-less, and the sender appends "#<key>" on their own device.
type CreateResponse struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
	MaxViews  int       `json:"max_views"`
}

type RevealRequest struct {
	Password string `json:"password,omitempty"`
}

type RevealResponse struct {
	Title            string              `json:"title,omitempty"`
	EncryptedContent string              `json:"encrypted_content"`
	IV               string              `json:"iv"`
	Attachments      []models.Attachment `json:"attachments,omitempty"`
	ExpiresAt        time.Time           `json:"expires_at"`
	ViewsRemaining   int                 `json:"views_remaining"` // -1 = unlimited
}

type ErrorResponse struct {
	Error string `json:"error"`

	// Retryable marks infrastructure failures apart from definitive
	// rejections, so clients do not retry a dead link.
	Retryable bool `json:"retryable,omitempty"`
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.json(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) CreateShare(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.shares.Create(r.Context(), share.CreateRequest{
		Title:            req.Title,
		EncryptedContent: req.EncryptedContent,
		IV:               req.IV,
		Attachments:      req.Attachments,
		Expiration:       req.Expiration,
		MaxViews:         req.MaxViews,
		Password:         req.Password,
		LinkType:         req.LinkType,
	})
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.json(w, http.StatusCreated, CreateResponse{
		ID:        result.ID,
		URL:       h.links.ShareURL(result.ID),
		ExpiresAt: result.ExpiresAt,
		MaxViews:  result.MaxViews,
	})
}

// RevealShare is the consuming read. The password travels in the POST body,
// never in the query string, so it cannot land in access logs.
func (h *Handler) RevealShare(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req RevealRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.shares.Consume(r.Context(), id, req.Password)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.json(w, http.StatusOK, RevealResponse{
		Title:            result.Metadata.Title,
		EncryptedContent: result.EncryptedContent,
		IV:               result.IV,
		Attachments:      result.Attachments,
		ExpiresAt:        result.Metadata.ExpiresAt,
		ViewsRemaining:   result.ViewsRemaining,
	})
}

// GetMetadata is the non-consuming preview: no password, no view charged.
func (h *Handler) GetMetadata(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	meta, err := h.shares.Peek(r.Context(), id)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.json(w, http.StatusOK, meta)
}

func (h *Handler) json(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *Handler) error(w http.ResponseWriter, status int, message string) {
	h.json(w, status, ErrorResponse{Error: message})
}

// handleServiceError maps service outcomes to HTTP. Missing, expired, and
// exhausted shares share one message on purpose; the response must not leak
// which condition applied.
func (h *Handler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, share.ErrEmptyContent),
		errors.Is(err, share.ErrInvalidExpiration),
		errors.Is(err, share.ErrInvalidInput):
		h.error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, share.ErrGone):
		h.error(w, http.StatusNotFound, "this link is no longer valid")
	case errors.Is(err, share.ErrInvalidPassword):
		h.error(w, http.StatusForbidden, "invalid password")
	case errors.Is(err, store.ErrUnavailable):
		h.json(w, http.StatusServiceUnavailable, ErrorResponse{
			Error:     "temporarily unavailable, try again",
			Retryable: true,
		})
	default:
		h.logger.Error("internal error", "error", err)
		h.error(w, http.StatusInternalServerError, "internal error")
	}
}
