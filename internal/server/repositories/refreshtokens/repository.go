// Package refreshtokens declares the server-side repository contract for
// refresh token rows.
package refreshtokens

import (
	"context"

	"github.com/dmitrijs2005/hushkey/internal/server/models"
)

// Repository defines operations for issuing, locating, and revoking refresh
// tokens. Lookup is by selector (an indexed point read); the secret half of
// the token never reaches the store in plaintext.
type Repository interface {
	// Create stores a new token row.
	Create(ctx context.Context, token *models.RefreshToken) error

	// FindBySelector returns the row for the given selector, revoked or not,
	// or common.ErrNotFound.
	FindBySelector(ctx context.Context, selector string) (*models.RefreshToken, error)

	// RevokeIfActive atomically flips revoked to true only if the row is
	// currently non-revoked, reporting whether this call won the flip. This
	// conditional write is the serialization point for concurrent refresh
	// calls racing on the same token.
	RevokeIfActive(ctx context.Context, selector string) (bool, error)

	// RevokeAllForUser revokes every active token of a user and returns how
	// many rows were affected.
	RevokeAllForUser(ctx context.Context, userID string) (int64, error)

	// DeleteExpired removes rows whose expiry has passed and returns how many
	// were deleted. Revocation history for live rows is retained.
	DeleteExpired(ctx context.Context) (int64, error)
}
