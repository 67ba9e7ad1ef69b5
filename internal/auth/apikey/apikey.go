// Package apikey guards the administrative endpoints (index reload, cache
// invalidation, document ingestion) with pre-shared keys. Only SHA-256
// digests of the keys are configured; raw keys are generated with
// crypto/rand and handed to operators once.
package apikey

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMissingKey = errors.New("missing api key")
	ErrInvalidKey = errors.New("invalid api key")
)

// Keyring holds the accepted key digests.
type Keyring struct {
	hashes [][]byte
}

// NewKeyring parses hex SHA-256 digests as produced by HashKey. An empty
// list yields a keyring with Enabled() == false.
func NewKeyring(hashes []string) (*Keyring, error) {
	k := &Keyring{}
	for i, h := range hashes {
		h = strings.TrimSpace(h)
		if h == "" {
			continue
		}
		raw, err := hex.DecodeString(h)
		if err != nil || len(raw) != sha256.Size {
			return nil, fmt.Errorf("admin key hash %d: not a hex sha256 digest", i)
		}
		k.hashes = append(k.hashes, raw)
	}
	return k, nil
}

// Enabled reports whether any key is configured.
func (k *Keyring) Enabled() bool {
	return k != nil && len(k.hashes) > 0
}

// Validate checks a raw key against every configured digest.
func (k *Keyring) Validate(rawKey string) error {
	if rawKey == "" {
		return ErrMissingKey
	}
	sum := sha256.Sum256([]byte(rawKey))
	match := 0
	for _, h := range k.hashes {
		match |= subtle.ConstantTimeCompare(sum[:], h)
	}
	if match == 0 {
		return ErrInvalidKey
	}
	return nil
}

// HashKey returns the SHA-256 hex digest of a raw key.
func HashKey(raw string) string {
	h := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(h[:])
}

// GenerateKey returns a random 32-byte key, hex encoded.
func GenerateKey() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("reading random bytes: %w", err)
	}
	return hex.EncodeToString(b), nil
}
