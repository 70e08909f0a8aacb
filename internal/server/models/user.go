// Package models holds the server-side persistence models.
package models

import "time"

// User is created once at signup. PasswordHash and Envelope are immutable
// afterwards; a future re-bootstrap flow would replace the envelope whole.
// Envelope carries the client's encoded encrypted-private-key envelope; the
// server stores it opaquely and never inspects or decrypts it.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	FullName     string
	Phone        string
	Country      string
	PublicKey    []byte
	Envelope     []byte
	CreatedAt    time.Time
}
