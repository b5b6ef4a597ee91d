// Package idgen generates short link identifiers.
// Generators should be safe for concurrent use.
package idgen

import (
	"crypto/rand"
	"errors"
)

const (
	base62Chars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

	// DefaultLength is the identifier length used for new links.
	DefaultLength = 10
)

// Generator generates link identifiers. The output is URL-safe and
// collision-resistant, not collision-free: the store's conditional
// create is the authority on uniqueness.
type Generator interface {
	Generate(length int) (string, error)
}

// base62Generator implements Generator using base62 encoding over
// crypto/rand bytes. It is safe for concurrent use.
type base62Generator struct{}

// NewBase62 returns a new base62 identifier generator.
func NewBase62() Generator {
	return &base62Generator{}
}

// Generate generates a random base62 string of the given length.
func (g *base62Generator) Generate(length int) (string, error) {
	if length <= 0 {
		return "", errors.New("length must be positive")
	}

	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	for i := range b {
		b[i] = base62Chars[int(b[i])%len(base62Chars)]
	}

	return string(b), nil
}
