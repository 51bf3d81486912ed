// Package crypto is the symmetric engine behind zero-knowledge shares:
// key generation and URL-fragment-safe export, AES-256-GCM authenticated
// encryption, and the access-password hashing for the server-side gate.
//
// The encryption key and the access password are independent secrets. The
// key is carried in the link fragment and is necessary and sufficient to
// decrypt; the password only gates whether the server hands out ciphertext.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
)

const (
	// KeySize is 32 bytes for AES-256.
	KeySize = 32

	idLength  = 16
	nonceSize = 12 // GCM standard nonce size

	passwordLength   = 20
	passwordAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz23456789"
)

var (
	// ErrEntropyUnavailable means the platform CSPRNG failed.
	ErrEntropyUnavailable = errors.New("secure randomness unavailable")

	// ErrMalformedKey means an exported key string has the wrong length or
	// alphabet and cannot be imported.
	ErrMalformedKey = errors.New("malformed key")

	// ErrIntegrityCheckFailed means the authentication tag did not verify:
	// wrong key, corrupted data, or tampering. They are indistinguishable.
	ErrIntegrityCheckFailed = errors.New("integrity check failed")
)

// Key is a 256-bit symmetric key. It exists only on the sender's and
// recipient's side of the trust boundary; the server never stores one.
type Key []byte

// GenerateKey produces a fresh random AES-256 key.
func GenerateKey() (Key, error) {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEntropyUnavailable, err)
	}
	return key, nil
}

// ExportKey serializes a key to a compact string safe to place in a URL
// fragment without percent-encoding. Deterministic and lossless.
func ExportKey(key Key) string {
	return base64.RawURLEncoding.EncodeToString(key)
}

// ImportKey is the inverse of ExportKey.
func ImportKey(s string) (Key, error) {
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedKey, err)
	}
	if len(raw) != KeySize {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrMalformedKey, len(raw), KeySize)
	}
	return raw, nil
}

// Encrypt seals plaintext under key with a fresh random IV. The ciphertext
// (including the GCM tag) and the IV are returned as separate base64
// strings, matching how they are stored and transported.
func Encrypt(plaintext string, key Key) (ciphertext, iv string, err error) {
	gcm, err := newGCM(key)
	if err != nil {
		return "", "", err
	}

	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrEntropyUnavailable, err)
	}

	sealed := gcm.Seal(nil, nonce, []byte(plaintext), nil)

	return base64.StdEncoding.EncodeToString(sealed),
		base64.StdEncoding.EncodeToString(nonce),
		nil
}

// Decrypt opens ciphertext produced by Encrypt. Any tag mismatch, from a
// wrong key as much as from a flipped bit, is ErrIntegrityCheckFailed.
func Decrypt(ciphertext string, key Key, iv string) (string, error) {
	sealed, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: invalid ciphertext encoding", ErrIntegrityCheckFailed)
	}
	nonce, err := base64.StdEncoding.DecodeString(iv)
	if err != nil {
		return "", fmt.Errorf("%w: invalid iv encoding", ErrIntegrityCheckFailed)
	}

	gcm, err := newGCM(key)
	if err != nil {
		return "", err
	}
	if len(nonce) != gcm.NonceSize() {
		return "", fmt.Errorf("%w: invalid iv length", ErrIntegrityCheckFailed)
	}

	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", ErrIntegrityCheckFailed
	}
	return string(plaintext), nil
}

// GenerateID allocates an unguessable identifier. Ids are capability
// tokens: 16 random bytes, URL-safe base64.
func GenerateID() (string, error) {
	raw := make([]byte, idLength)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("%w: %v", ErrEntropyUnavailable, err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// GenerateSecurePassword produces a random human-typeable password for the
// optional access gate. Unrelated to the encryption key. The alphabet
// avoids lookalike characters (0/O, 1/l/I).
func GenerateSecurePassword() (string, error) {
	out := make([]byte, passwordLength)
	raw := make([]byte, passwordLength)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("%w: %v", ErrEntropyUnavailable, err)
	}
	for i, b := range raw {
		out[i] = passwordAlphabet[int(b)%len(passwordAlphabet)]
	}
	return string(out), nil
}

func newGCM(key Key) (cipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: bad key length %d", ErrMalformedKey, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("cipher creation failed: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("GCM creation failed: %w", err)
	}
	return gcm, nil
}
