// utils/random.go
package utils

import (
	"crypto/rand"
	"encoding/base64"
)

// GenerateSecureToken returns a URL-safe random string with n bytes of
// entropy, suitable for single-use credentials.
func GenerateSecureToken(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic("failed to read random bytes")
	}
	return base64.RawURLEncoding.EncodeToString(b)
}
