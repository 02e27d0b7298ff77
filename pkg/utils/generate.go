package utils

import (
	"crypto/rand"
	"math/big"
)

const confirmationAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// ConfirmationCodeLength is the size of a guest-facing confirmation code.
const ConfirmationCodeLength = 10

// GenerateConfirmationCode returns a random human-shareable code. Uniqueness
// is enforced by storage; callers retry on collision.
func GenerateConfirmationCode() (string, error) {
	max := big.NewInt(int64(len(confirmationAlphabet)))
	code := make([]byte, ConfirmationCodeLength)
	for i := range code {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		code[i] = confirmationAlphabet[n.Int64()]
	}
	return string(code), nil
}
