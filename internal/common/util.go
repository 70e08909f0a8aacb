package common

import (
	"crypto/rand"
	"encoding/hex"
)

// GenerateRandBytes returns size cryptographically random bytes. A failure of
// the system CSPRNG is fatal and non-retryable for callers, so the error must
// always be checked and propagated.
func GenerateRandBytes(size int) ([]byte, error) {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}

// MakeRandHexString generates a random hexadecimal string of the given size.
// The size parameter specifies the number of random bytes to generate before
// encoding, so the final string length is twice the size.
func MakeRandHexString(size int) (string, error) {
	b, err := GenerateRandBytes(size)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// WipeByteArray overwrites the contents of the provided byte slice with zeros.
// Used to remove secrets such as personal keys and derived keys from memory
// after use. A nil slice is a no-op.
func WipeByteArray(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
