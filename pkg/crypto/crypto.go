package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"math/big"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword returns a bcrypt hash of the supplied password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword compares the hashed password with the plaintext candidate.
func VerifyPassword(hashedPassword, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password)) == nil
}

// GenerateToken returns a random URL-safe token of the requested byte length.
func GenerateToken(length int) (string, error) {
	buffer := make([]byte, length)
	if _, err := rand.Read(buffer); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buffer), nil
}

// GenerateNumericCode returns a uniformly random code with the requested
// number of digits, never starting with zero (e.g. 6 digits -> 100000-999999).
func GenerateNumericCode(digits int) (string, error) {
	if digits < 1 {
		return "", fmt.Errorf("crypto: invalid code length %d", digits)
	}

	low := big.NewInt(1)
	for i := 1; i < digits; i++ {
		low.Mul(low, big.NewInt(10))
	}
	span := new(big.Int).Mul(low, big.NewInt(9))

	n, err := rand.Int(rand.Reader, span)
	if err != nil {
		return "", err
	}

	return n.Add(n, low).String(), nil
}
