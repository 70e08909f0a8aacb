// Package auth implements the two token kinds the credential service issues:
// short-lived self-contained JWT access tokens and long-lived opaque refresh
// tokens in selector.verifier form.
package auth

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/hushkey/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Claims carries the authenticated identity inside an access token.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

// GenerateAccessToken mints an HS256 JWT carrying {userID, email} with the
// given validity. Access tokens are stateless: the server keeps no record and
// cannot revoke one before its natural expiry.
func GenerateAccessToken(userID, email string, secretKey []byte, validity time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validity)),
		},
		UserID: userID,
		Email:  email,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}

	return tokenString, nil
}

// ParseAccessToken validates signature and expiry and returns the claims.
// All failures surface as common.ErrInvalidToken.
func ParseAccessToken(tokenString string, secretKey []byte) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secretKey, nil
	})
	if err != nil || !token.Valid {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}
