package text

import (
	"crypto/sha256"
	"encoding/hex"
)

// Hash is the content identity used as the store key: lowercase hex SHA-256
// of the chunk text exactly as produced by the splitter.
func Hash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
