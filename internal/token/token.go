// Package token issues anonymous cart tokens and hashes them for storage.
package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/google/uuid"
)

var ErrEmptySecret = errors.New("token secret must not be empty")

// Hasher is a keyed one-way hash. Only hashes are persisted, so a leaked
// cart store does not let anyone present a valid token.
type Hasher struct {
	secret []byte
}

func NewHasher(secret string) (*Hasher, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	return &Hasher{secret: []byte(secret)}, nil
}

func (h *Hasher) Hash(raw string) string {
	mac := hmac.New(sha256.New, h.secret)
	mac.Write([]byte(raw))
	return hex.EncodeToString(mac.Sum(nil))
}

// Generate returns a new random anonymous token.
func Generate() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "") + strings.ReplaceAll(uuid.NewString(), "-", "")
}
