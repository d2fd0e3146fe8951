package util

import (
	"crypto/rand"
	"encoding/hex"
)

// NewID returns 96 random bits as hex. Used for request ids and token ids.
func NewID() string {
	b := make([]byte, 12)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
