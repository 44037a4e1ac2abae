package extract

import (
	"crypto/sha256"
	"encoding/hex"
)

// Key addresses one cached extraction result. Scope names the level and Hash
// covers the document plus whatever narrows the request (topic, subtopic).
type Key struct {
	Scope string
	Hash  string
}

// HashOf is the hex sha256 of parts, separated so that ("ab", "c") and
// ("a", "bc") differ.
func HashOf(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
