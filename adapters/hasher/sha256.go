package hasher

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/satriahrh/hal-voice/domain"
)

const fingerprintLen = 12

// New returns a domain.Hasher backed by SHA‑256.
func New() domain.Hasher { return sha256Hasher{} }

type sha256Hasher struct{}

func (h sha256Hasher) Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func (h sha256Hasher) Fingerprint(secret string) string {
	if secret == "" {
		return ""
	}
	return h.Hash([]byte(secret))[:fingerprintLen]
}
