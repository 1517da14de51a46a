package util

import (
	"crypto/rand"
	"math/big"
)

// Unambiguous uppercase alphabet used for discount codes and
// temporary passwords (no 0/O or 1/I).
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// GenerateCode returns a random string of n characters from the code alphabet
func GenerateCode(n int) (string, error) {
	max := big.NewInt(int64(len(codeAlphabet)))
	b := make([]byte, n)
	for i := range b {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = codeAlphabet[idx.Int64()]
	}
	return string(b), nil
}

// GenerateTempPassword returns a random temporary password
func GenerateTempPassword() (string, error) {
	return GenerateCode(12)
}
