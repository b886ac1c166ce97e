package shortcode

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
)

const alphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

var base = big.NewInt(int64(len(alphabet)))

// DefaultLength gives 62^8 (about 2.18e14) possible codes
const DefaultLength = 8

var ErrInvalidLength = errors.New("short code length must be positive")

// Generator produces random URL-safe short codes
type Generator interface {
	Generate() (string, error)
}

// Random draws fixed-length base62 codes from crypto/rand
type Random struct {
	length int
}

// NewRandom creates a generator for codes of the given length
func NewRandom(length int) (*Random, error) {
	if length <= 0 {
		return nil, ErrInvalidLength
	}
	return &Random{length: length}, nil
}

// Generate returns a new code. Uniqueness is not checked here; the short URL
// store rejects duplicates and the caller retries.
func (g *Random) Generate() (string, error) {
	code := make([]byte, g.length)
	for i := range code {
		n, err := rand.Int(rand.Reader, base)
		if err != nil {
			return "", fmt.Errorf("read random: %w", err)
		}
		code[i] = alphabet[n.Int64()]
	}
	return string(code), nil
}

// Valid reports whether code uses only the base62 alphabet
func Valid(code string) bool {
	if code == "" {
		return false
	}
	for i := 0; i < len(code); i++ {
		if indexOf(code[i]) < 0 {
			return false
		}
	}
	return true
}

func indexOf(char byte) int {
	for i, c := range []byte(alphabet) {
		if c == char {
			return i
		}
	}
	return -1
}
