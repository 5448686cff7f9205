package mnemonic

import (
	"crypto/sha256"
	"encoding/hex"
)

// ShortHash returns the first 8 hex characters of the SHA-256 of a
// sentence. Logs and checkpoints identify sentences by this hash so
// the plaintext never reaches routine output.
func ShortHash(sentence string) string {
	sum := sha256.Sum256([]byte(sentence))
	return hex.EncodeToString(sum[:4])
}
