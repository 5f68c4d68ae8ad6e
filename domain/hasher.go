package domain

// Hasher is the core port for any hashing strategy.
type Hasher interface {
	Hash(data []byte) string
	// Fingerprint identifies a secret in logs without revealing it.
	// An empty secret has an empty fingerprint.
	Fingerprint(secret string) string
}
