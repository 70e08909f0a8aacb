// Package users declares the server-side repository contract for user
// records.
package users

import (
	"context"

	"github.com/dmitrijs2005/hushkey/internal/server/models"
)

// Repository defines the operations the credential service needs from a user
// store. Email uniqueness is enforced by the store itself, not by a prior
// read, so concurrent signups with the same email cannot both insert.
type Repository interface {
	// Create persists a new user. A duplicate email returns
	// common.ErrEmailInUse.
	Create(ctx context.Context, user *models.User) (*models.User, error)

	// GetByEmail returns the user with the given email, or
	// common.ErrNotFound.
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	// GetByID returns the user with the given id, or common.ErrNotFound.
	GetByID(ctx context.Context, id string) (*models.User, error)
}
