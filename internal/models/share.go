package models

import "time"

// LinkTypeStandard is the only link variant currently issued. The field
// exists so stored records stay forward-compatible with new link kinds.
const LinkTypeStandard = "standard"

// Share is the server-side record of one encrypted share. The server only
// ever sees ciphertext: EncryptedContent and the attachment blobs are
// produced on the sender's device, and the key that opens them travels in
// the link fragment, never through this process.
type Share struct {
	ID               string       `json:"id"`
	Title            string       `json:"title,omitempty"`
	EncryptedContent string       `json:"encrypted_content"`
	IV               string       `json:"iv"`
	Attachments      []Attachment `json:"attachments,omitempty"`
	LinkType         string       `json:"link_type"`
	ExpiresAt        time.Time    `json:"expires_at"`
	MaxViews         int          `json:"max_views"` // 0 = unlimited
	CurrentViews     int          `json:"current_views"`
	RequirePassword  bool         `json:"require_password"`
	PasswordHash     string       `json:"-"`
	CreatedAt        time.Time    `json:"created_at"`
}

// Attachment is an independently encrypted blob sharing the content key but
// carrying its own IV. An IV is never reused across blobs under one key.
type Attachment struct {
	Name             string `json:"name,omitempty"`
	EncryptedContent string `json:"encrypted_content"`
	IV               string `json:"iv"`
}

// Metadata is the non-consuming projection of a share, safe to show before
// the recipient commits to opening. It never includes ciphertext or the
// password hash.
type Metadata struct {
	ID              string    `json:"id"`
	Title           string    `json:"title,omitempty"`
	ExpiresAt       time.Time `json:"expires_at"`
	MaxViews        int       `json:"max_views"`
	CurrentViews    int       `json:"current_views"`
	RequirePassword bool      `json:"require_password"`
}

// Metadata returns the preview projection of s.
func (s *Share) Metadata() *Metadata {
	return &Metadata{
		ID:              s.ID,
		Title:           s.Title,
		ExpiresAt:       s.ExpiresAt,
		MaxViews:        s.MaxViews,
		CurrentViews:    s.CurrentViews,
		RequirePassword: s.RequirePassword,
	}
}

// ViewsRemaining reports how many reveals are left, or -1 for unlimited.
func (s *Share) ViewsRemaining() int {
	if s.MaxViews == 0 {
		return -1
	}
	return s.MaxViews - s.CurrentViews
}
