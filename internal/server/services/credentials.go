// Package services contains server-side business logic. This file implements
// CredentialService: signup, login, token issuance, rotation, and revocation.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/hushkey/internal/common"
	"github.com/dmitrijs2005/hushkey/internal/cryptox"
	"github.com/dmitrijs2005/hushkey/internal/dbx"
	"github.com/dmitrijs2005/hushkey/internal/logging"
	"github.com/dmitrijs2005/hushkey/internal/server/auth"
	"github.com/dmitrijs2005/hushkey/internal/server/config"
	"github.com/dmitrijs2005/hushkey/internal/server/models"
	"github.com/dmitrijs2005/hushkey/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// SignupInput carries everything a new account needs. PublicKey and Envelope
// come from the client's vault bootstrap; the server stores both opaquely.
type SignupInput struct {
	Email     string
	Password  string
	FullName  string
	Phone     string
	Country   string
	PublicKey []byte
	Envelope  []byte
}

// CredentialService provides authentication-related operations:
//   - Signup: create a user and mint the first token pair
//   - Login: verify credentials and mint tokens
//   - Refresh: rotate refresh tokens and mint new access tokens
//   - Revoke / RevokeAll: invalidate sessions
//
// Every operation is an independent stateless request; the only
// serialization point is the store's conditional revoke during rotation.
type CredentialService struct {
	db         *sql.DB
	repos      repomanager.RepositoryManager
	logger     logging.Logger
	jwtSecret  []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	decoyHash  string
}

// NewCredentialService constructs a CredentialService from repositories and
// server config. The decoy hash is burned through the password verifier when
// a login hits an unknown email, so both rejection paths cost the same.
func NewCredentialService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, logger logging.Logger) (*CredentialService, error) {
	decoyPassword, err := common.GenerateRandBytes(32)
	if err != nil {
		return nil, err
	}
	decoyHash, err := cryptox.HashPassword(decoyPassword)
	if err != nil {
		return nil, err
	}
	common.WipeByteArray(decoyPassword)

	return &CredentialService{
		db:         db,
		repos:      m,
		logger:     logger.With("module", "credentials"),
		jwtSecret:  []byte(cfg.SecretKey),
		accessTTL:  cfg.AccessTokenTTL,
		refreshTTL: cfg.RefreshTokenTTL,
		decoyHash:  decoyHash,
	}, nil
}

// Signup creates a new user and issues the first token pair atomically:
// either the user row and its first refresh token both land, or neither
// does. Duplicate emails surface as common.ErrEmailInUse via the store's
// uniqueness constraint, so a concurrent duplicate signup cannot slip
// through a stale prior read.
func (s *CredentialService) Signup(ctx context.Context, in SignupInput) (*models.User, *TokenPair, error) {
	passwordHash, err := cryptox.HashPassword([]byte(in.Password))
	if err != nil {
		return nil, nil, common.ErrInternal
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Email:        in.Email,
		PasswordHash: passwordHash,
		FullName:     in.FullName,
		Phone:        in.Phone,
		Country:      in.Country,
		PublicKey:    in.PublicKey,
		Envelope:     in.Envelope,
	}

	var pair *TokenPair
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		created, err := s.repos.Users(tx).Create(ctx, user)
		if err != nil {
			return err
		}
		user = created

		pair, err = s.issueTokenPair(ctx, tx, user)
		return err
	})
	if err != nil {
		if errors.Is(err, common.ErrEmailInUse) || errors.Is(err, common.ErrStorageUnavailable) {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("signup: %w", err)
	}

	s.logger.Info(ctx, "user signed up", "user_id", user.ID)
	return user, pair, nil
}

// Login verifies email+password and mints a fresh token pair. Unknown email
// and wrong password are indistinguishable to the caller: both return
// common.ErrInvalidCredentials, and the unknown-email path still performs a
// full hash verification against a decoy so response cost does not give the
// difference away.
func (s *CredentialService) Login(ctx context.Context, email, password string) (*models.User, *TokenPair, error) {
	user, err := s.repos.Users(s.db).GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			_, _ = cryptox.VerifyPassword(s.decoyHash, []byte(password))
			return nil, nil, common.ErrInvalidCredentials
		}
		return nil, nil, err
	}

	ok, err := cryptox.VerifyPassword(user.PasswordHash, []byte(password))
	if err != nil {
		return nil, nil, common.ErrInternal
	}
	if !ok {
		return nil, nil, common.ErrInvalidCredentials
	}

	pair, err := s.issueTokenPair(ctx, s.db, user)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// Refresh rotates a refresh token: the presented token is located by its
// selector, checked in constant time against the stored verifier hash, and
// then, in a single transaction, conditionally revoked and replaced by a
// new row. Concurrent calls on the same token produce exactly one winner;
// the losers see common.ErrInvalidToken.
//
// A structurally valid token that matches an already-revoked row is a replay
// signal and is logged as a distinct audit event before being rejected.
func (s *CredentialService) Refresh(ctx context.Context, token string) (*TokenPair, error) {
	selector, verifier, err := auth.SplitRefreshToken(token)
	if err != nil {
		return nil, common.ErrInvalidToken
	}

	stored, err := s.repos.RefreshTokens(s.db).FindBySelector(ctx, selector)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrInvalidToken
		}
		return nil, err
	}

	if !auth.CheckVerifier(stored.VerifierHash, verifier) {
		return nil, common.ErrInvalidToken
	}
	if stored.Revoked {
		s.logger.Warn(ctx, "refresh token reuse detected",
			"event", "refresh_token_reuse", "user_id", stored.UserID, "token_id", stored.ID)
		return nil, common.ErrInvalidToken
	}
	if !stored.Active(time.Now()) {
		return nil, common.ErrInvalidToken
	}

	user, err := s.repos.Users(s.db).GetByID(ctx, stored.UserID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrInvalidToken
		}
		return nil, err
	}

	var pair *TokenPair
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		won, err := s.repos.RefreshTokens(tx).RevokeIfActive(ctx, selector)
		if err != nil {
			return err
		}
		if !won {
			return common.ErrInvalidToken
		}

		pair, err = s.issueTokenPair(ctx, tx, user)
		return err
	})
	if err != nil {
		return nil, err
	}

	return pair, nil
}

// Revoke marks the matching row revoked (logout). It is idempotent and
// reports whether a matching non-revoked row was found. Garbled or unknown
// tokens are not an error: there is simply nothing to revoke.
func (s *CredentialService) Revoke(ctx context.Context, token string) (bool, error) {
	selector, verifier, err := auth.SplitRefreshToken(token)
	if err != nil {
		return false, nil
	}

	stored, err := s.repos.RefreshTokens(s.db).FindBySelector(ctx, selector)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	if !auth.CheckVerifier(stored.VerifierHash, verifier) {
		return false, nil
	}

	return s.repos.RefreshTokens(s.db).RevokeIfActive(ctx, selector)
}

// RevokeAll revokes every active session of a user.
func (s *CredentialService) RevokeAll(ctx context.Context, userID string) (int64, error) {
	return s.repos.RefreshTokens(s.db).RevokeAllForUser(ctx, userID)
}

// GetUser returns a user by id, for authenticated profile reads.
func (s *CredentialService) GetUser(ctx context.Context, userID string) (*models.User, error) {
	return s.repos.Users(s.db).GetByID(ctx, userID)
}

// ParseAccessToken validates an access token against the service's secret.
func (s *CredentialService) ParseAccessToken(token string) (*auth.Claims, error) {
	return auth.ParseAccessToken(token, s.jwtSecret)
}

func (s *CredentialService) issueTokenPair(ctx context.Context, db dbx.DBTX, user *models.User) (*TokenPair, error) {
	access, err := auth.GenerateAccessToken(user.ID, user.Email, s.jwtSecret, s.accessTTL)
	if err != nil {
		return nil, common.ErrInternal
	}

	refresh, err := auth.NewRefreshToken()
	if err != nil {
		return nil, common.ErrInternal
	}

	row := &models.RefreshToken{
		ID:           uuid.NewString(),
		UserID:       user.ID,
		Selector:     refresh.Selector,
		VerifierHash: refresh.VerifierHash,
		ExpiresAt:    time.Now().Add(s.refreshTTL),
	}
	if err := s.repos.RefreshTokens(db).Create(ctx, row); err != nil {
		return nil, err
	}

	return &TokenPair{AccessToken: access, RefreshToken: refresh.Token}, nil
}
