// Package services holds client-side workflows that glue the API client to
// the local vault: account registration with a fresh keypair, and login with
// envelope unlock.
package services

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/dmitrijs2005/hushkey/internal/client/api"
	"github.com/dmitrijs2005/hushkey/internal/common"
	"github.com/dmitrijs2005/hushkey/internal/vault"
)

// apiClient is the surface of api.Client used here; tests substitute a stub.
type apiClient interface {
	Signup(ctx context.Context, req *api.SignupRequest) (*api.User, error)
	Login(ctx context.Context, email, password string) (*api.User, error)
	Refresh(ctx context.Context) error
	Logout(ctx context.Context) error
	Profile(ctx context.Context) (*api.User, error)
}

// Session is an unlocked client session. PrivateKey stays in memory only and
// must be wiped via Close when the session ends.
type Session struct {
	User       *api.User
	PrivateKey []byte
}

// Close wipes the private key.
func (s *Session) Close() {
	if s != nil {
		common.WipeByteArray(s.PrivateKey)
		s.PrivateKey = nil
	}
}

// RegisterInput carries the signup form fields.
type RegisterInput struct {
	Email    string
	Password string
	FullName string
	Phone    string
	Country  string
}

// AuthService implements the registration and login workflows.
type AuthService struct {
	api apiClient
}

// NewAuthService builds an AuthService on top of an API client.
func NewAuthService(client apiClient) *AuthService {
	return &AuthService{api: client}
}

// Register bootstraps a fresh vault, signs the account up with the resulting
// public key and envelope, and unlocks the new session locally.
//
// The returned personal secret is for one-time display to the user; the
// caller must wipe it after showing it. It is the only way to ever open the
// envelope again and is not recoverable by the server.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*Session, []byte, error) {
	boot, err := vault.Bootstrap(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("vault bootstrap: %w", err)
	}

	envelope, err := vault.Encode(boot.Envelope)
	if err != nil {
		common.WipeByteArray(boot.PersonalSecret)
		return nil, nil, err
	}

	user, err := s.api.Signup(ctx, &api.SignupRequest{
		Email:     in.Email,
		Password:  in.Password,
		FullName:  in.FullName,
		Phone:     in.Phone,
		Country:   in.Country,
		PublicKey: base64.StdEncoding.EncodeToString(boot.PublicKey),
		Envelope:  envelope,
	})
	if err != nil {
		common.WipeByteArray(boot.PersonalSecret)
		return nil, nil, err
	}

	privateKey, err := vault.Unlock(ctx, boot.Envelope, boot.PersonalSecret)
	if err != nil {
		common.WipeByteArray(boot.PersonalSecret)
		return nil, nil, err
	}

	return &Session{User: user, PrivateKey: privateKey}, boot.PersonalSecret, nil
}

// Login authenticates against the server and unlocks the envelope it returns
// with the personal secret. A wrong secret fails with
// common.ErrAuthenticationFailed after the server login already succeeded;
// the session cookies are set either way.
func (s *AuthService) Login(ctx context.Context, email, password string, personalSecret []byte) (*Session, error) {
	user, err := s.api.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}

	env, err := vault.Decode(user.Envelope)
	if err != nil {
		return nil, err
	}

	privateKey, err := vault.Unlock(ctx, env, personalSecret)
	if err != nil {
		return nil, err
	}

	return &Session{User: user, PrivateKey: privateKey}, nil
}

// Refresh rotates the session tokens.
func (s *AuthService) Refresh(ctx context.Context) error {
	return s.api.Refresh(ctx)
}

// Logout revokes the server session and wipes the local one.
func (s *AuthService) Logout(ctx context.Context, session *Session) error {
	session.Close()
	return s.api.Logout(ctx)
}

// Profile fetches the authenticated user.
func (s *AuthService) Profile(ctx context.Context) (*api.User, error) {
	return s.api.Profile(ctx)
}
