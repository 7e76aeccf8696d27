package identity

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// secretKeyBytes is the entropy of a generated secret key.
const secretKeyBytes = 32

// HashSecretKey derives the lookup hash stored in place of the raw key.
// Secret keys are random, so an unsalted fast hash is enough to keep them
// out of the database while still allowing an indexed equality lookup.
func HashSecretKey(secretKey string) []byte {
	sum := blake2b.Sum256([]byte(secretKey))
	return sum[:]
}

// GenerateSecretKey returns a new random hex-encoded secret key.
func GenerateSecretKey() (string, error) {
	b := make([]byte, secretKeyBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return hex.EncodeToString(b), nil
}
