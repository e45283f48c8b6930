package checkout

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/alexedwards/argon2id"
)

// NewVerificationCode returns a 6-digit numeric confirmation code. Leading
// zeros are preserved.
func NewVerificationCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", fmt.Errorf("generate verification code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// HashVerificationCode hashes the plaintext code for storage. The plaintext
// itself never reaches the database.
func HashVerificationCode(code string) (string, error) {
	return argon2id.CreateHash(code, argon2id.DefaultParams)
}

// CompareVerificationCode reports whether code matches the stored hash.
func CompareVerificationCode(hash, code string) (bool, error) {
	return argon2id.ComparePasswordAndHash(code, hash)
}
