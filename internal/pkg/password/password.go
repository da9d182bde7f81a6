// Package password hashes and checks user passwords with bcrypt. bcrypt
// embeds a random per-hash salt and compares digests in constant time.
package password

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// MaxLength is the longest password bcrypt accepts, in bytes.
const MaxLength = 72

var ErrTooLong = errors.New("password exceeds 72 bytes")

func Hash(plaintext string) (string, error) {
	return HashWithCost(plaintext, bcrypt.DefaultCost)
}

func HashWithCost(plaintext string, cost int) (string, error) {
	if len(plaintext) > MaxLength {
		return "", ErrTooLong
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Verify reports whether plaintext matches storedHash. A malformed hash never
// matches.
func Verify(plaintext, storedHash string) bool {
	if storedHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(plaintext)) == nil
}
