package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"strings"

	"github.com/dmitrijs2005/hushkey/internal/common"
)

// Refresh tokens are two-part opaque values, "selector.verifier". The
// selector is the store's indexed lookup key and carries no secret; the
// verifier is the secret half and only its sha256 is persisted, so the
// store query is a point lookup and only the verifier comparison needs to
// be constant-time.
const (
	selectorBytes = 8
	verifierBytes = 32
	tokenSep      = "."
)

// RefreshToken is a freshly minted refresh token before storage. Token is the
// plaintext handed to the client; Selector and VerifierHash are what the
// store keeps.
type RefreshToken struct {
	Token        string
	Selector     string
	VerifierHash []byte
}

// NewRefreshToken draws a fresh selector.verifier pair from the CSPRNG.
func NewRefreshToken() (*RefreshToken, error) {
	selector, err := common.MakeRandHexString(selectorBytes)
	if err != nil {
		return nil, err
	}
	verifier, err := common.MakeRandHexString(verifierBytes)
	if err != nil {
		return nil, err
	}

	return &RefreshToken{
		Token:        selector + tokenSep + verifier,
		Selector:     selector,
		VerifierHash: HashVerifier(verifier),
	}, nil
}

// SplitRefreshToken breaks a presented token into its halves. Garbled tokens
// fail with common.ErrInvalidToken, indistinguishable from unknown ones.
func SplitRefreshToken(token string) (selector, verifier string, err error) {
	parts := strings.SplitN(token, tokenSep, 2)
	if len(parts) != 2 || len(parts[0]) != selectorBytes*2 || len(parts[1]) != verifierBytes*2 {
		return "", "", common.ErrInvalidToken
	}
	return parts[0], parts[1], nil
}

// HashVerifier is the one-way hash stored instead of the verifier.
func HashVerifier(verifier string) []byte {
	sum := sha256.Sum256([]byte(verifier))
	return sum[:]
}

// CheckVerifier compares a presented verifier against the stored hash in
// constant time.
func CheckVerifier(storedHash []byte, verifier string) bool {
	candidate := HashVerifier(verifier)
	return subtle.ConstantTimeCompare(storedHash, candidate) == 1
}
