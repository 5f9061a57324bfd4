// Package shortcode generates the random identifiers used for links,
// clicks, and accounts.
package shortcode

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	// Length of a generated code. 62^7 keeps collisions negligible at
	// this system's scale while staying short enough for a URL path.
	Length = 7
)

// Generate returns a new random alphanumeric code of Length characters.
func Generate() (string, error) {
	b := make([]byte, Length)
	for i := range b {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", fmt.Errorf("failed to generate short code: %w", err)
		}
		b[i] = charset[n.Int64()]
	}
	return string(b), nil
}
