package jobs

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// MinRandomLength is the shortest random name or password ever produced.
const MinRandomLength = 5

const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// Generator produces random alphanumeric strings.
type Generator interface {
	String(length int) (string, error)
}

// CryptoGenerator draws characters from crypto/rand.
type CryptoGenerator struct{}

// String returns a random alphanumeric string of at least MinRandomLength characters.
func (CryptoGenerator) String(length int) (string, error) {
	if length < MinRandomLength {
		length = MinRandomLength
	}
	limit := big.NewInt(int64(len(alphabet)))
	buf := make([]byte, length)
	for i := range buf {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("random string: %w", err)
		}
		buf[i] = alphabet[n.Int64()]
	}
	return string(buf), nil
}
