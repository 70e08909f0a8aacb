// Package refreshtokens provides a PostgreSQL-backed repository for refresh
// token rows used in the credential service's rotation flow.
package refreshtokens

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/hushkey/internal/common"
	"github.com/dmitrijs2005/hushkey/internal/dbx"
	"github.com/dmitrijs2005/hushkey/internal/server/models"
)

// PostgresRepository implements Repository over dbx.DBTX (satisfied by
// *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new token row.
func (r *PostgresRepository) Create(ctx context.Context, token *models.RefreshToken) error {
	query := `
		INSERT INTO refresh_tokens (id, user_id, selector, verifier_hash, expires_at, revoked)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	if _, err := r.db.ExecContext(ctx, query,
		token.ID, token.UserID, token.Selector, token.VerifierHash,
		token.ExpiresAt, token.Revoked); err != nil {
		return fmt.Errorf("%w: %v", common.ErrStorageUnavailable, err)
	}
	return nil
}

// FindBySelector returns the token row for the given selector.
// If not found, it returns common.ErrNotFound.
func (r *PostgresRepository) FindBySelector(ctx context.Context, selector string) (*models.RefreshToken, error) {
	query := `
		SELECT id, user_id, selector, verifier_hash, expires_at, revoked, created_at
		FROM refresh_tokens
		WHERE selector = $1
	`
	token := &models.RefreshToken{}
	err := r.db.QueryRowContext(ctx, query, selector).Scan(
		&token.ID, &token.UserID, &token.Selector, &token.VerifierHash,
		&token.ExpiresAt, &token.Revoked, &token.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", common.ErrStorageUnavailable, err)
	}
	return token, nil
}

// RevokeIfActive flips revoked to true only when it is currently false. The
// affected-row count tells whether this caller won; a concurrent caller on
// the same selector observes zero rows and loses.
func (r *PostgresRepository) RevokeIfActive(ctx context.Context, selector string) (bool, error) {
	query := `
		UPDATE refresh_tokens
		SET revoked = TRUE
		WHERE selector = $1 AND NOT revoked
	`
	res, err := r.db.ExecContext(ctx, query, selector)
	if err != nil {
		return false, fmt.Errorf("%w: %v", common.ErrStorageUnavailable, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%w: %v", common.ErrStorageUnavailable, err)
	}
	return affected == 1, nil
}

// RevokeAllForUser revokes every active token of the given user.
func (r *PostgresRepository) RevokeAllForUser(ctx context.Context, userID string) (int64, error) {
	query := `
		UPDATE refresh_tokens
		SET revoked = TRUE
		WHERE user_id = $1 AND NOT revoked
	`
	res, err := r.db.ExecContext(ctx, query, userID)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", common.ErrStorageUnavailable, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", common.ErrStorageUnavailable, err)
	}
	return affected, nil
}

// DeleteExpired removes rows past their expiry.
func (r *PostgresRepository) DeleteExpired(ctx context.Context) (int64, error) {
	query := `
		DELETE FROM refresh_tokens
		WHERE expires_at < now()
	`
	res, err := r.db.ExecContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", common.ErrStorageUnavailable, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", common.ErrStorageUnavailable, err)
	}
	return affected, nil
}
