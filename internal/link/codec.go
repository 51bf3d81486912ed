// Package link formats and parses sharable links. The path segment carries
// the opaque share id; the URL fragment carries the exported key. Fragments
// never leave the browser, which is exactly why the key lives there: it can
// never reach server logs, caches, or handler code.
package link

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var (
	// ErrMissingKey means the link has no fragment, so the recipient holds
	// no decryption capability. Surfaced loudly instead of proceeding.
	ErrMissingKey = errors.New("link is missing its key fragment")

	ErrMalformedLink = errors.New("malformed link")
)

const viewPathPrefix = "/s/"

// Codec builds and parses share links against one base URL.
type Codec struct {
	baseURL string
}

func NewCodec(baseURL string) *Codec {
	return &Codec{baseURL: strings.TrimRight(baseURL, "/")}
}

// Parsed is the result of decomposing a share link.
type Parsed struct {
	ID          string
	ExportedKey string
}

// ShareURL is the server-visible part of a link: base URL plus id. This is
// all the server can ever build, since it never holds the key.
func (c *Codec) ShareURL(id string) string {
	return c.baseURL + viewPathPrefix + id
}

// Build assembles the full sharable link with the exported key as the
// fragment. Only code running on the sender's side can call this with a
// real key.
func (c *Codec) Build(id, exportedKey string) string {
	return c.ShareURL(id) + "#" + exportedKey
}

// Parse extracts the id and exported key from a link. A missing fragment is
// ErrMissingKey. If upstream transport mangled the link and introduced a
// secondary "#", the last segment is taken as the key; that fallback is
// defensive, not a contract.
func (c *Codec) Parse(raw string) (*Parsed, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedLink, err)
	}

	idx := strings.LastIndex(u.Path, viewPathPrefix)
	if idx < 0 {
		return nil, fmt.Errorf("%w: no share path segment", ErrMalformedLink)
	}
	id := u.Path[idx+len(viewPathPrefix):]
	if id == "" || strings.Contains(id, "/") {
		return nil, fmt.Errorf("%w: no share id", ErrMalformedLink)
	}

	fragment := u.Fragment
	if fragment == "" {
		return nil, ErrMissingKey
	}

	// Mangled links can arrive as .../s/<id>#...#<key>.
	if i := strings.LastIndex(fragment, "#"); i >= 0 {
		fragment = fragment[i+1:]
	}
	if fragment == "" {
		return nil, ErrMissingKey
	}

	return &Parsed{ID: id, ExportedKey: fragment}, nil
}
