// Package identity derives the storage key for a user from the raw
// (email, phone) pair. The raw identifier never leaves the request.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

var ErrEmptySalt = errors.New("identity: hashing salt is required")

// Normalize lowercases and trims an identifier before hashing.
func Normalize(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

// Compose builds the client-side identifier for an email and phone pair.
func Compose(email, phone string) string {
	return strings.ToLower(strings.TrimSpace(email)) + "_" + strings.TrimSpace(phone)
}

type Hasher struct {
	salt string
}

func NewHasher(salt string) (*Hasher, error) {
	if salt == "" {
		return nil, ErrEmptySalt
	}
	return &Hasher{salt: salt}, nil
}

// Hash returns hex(sha256(Normalize(id) + salt)). Empty identifiers still hash;
// rejecting them is up to the caller.
func (h *Hasher) Hash(id string) string {
	sum := sha256.Sum256([]byte(Normalize(id) + h.salt))
	return hex.EncodeToString(sum[:])
}
