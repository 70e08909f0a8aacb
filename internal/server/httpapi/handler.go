// Package httpapi exposes the credential service over HTTP. Auth tokens
// travel in httpOnly cookies only; request and response bodies never contain
// a token value.
package httpapi

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/hushkey/internal/common"
	"github.com/dmitrijs2005/hushkey/internal/cryptox"
	"github.com/dmitrijs2005/hushkey/internal/logging"
	"github.com/dmitrijs2005/hushkey/internal/server/auth"
	"github.com/dmitrijs2005/hushkey/internal/server/models"
	"github.com/dmitrijs2005/hushkey/internal/server/services"
	"github.com/dmitrijs2005/hushkey/internal/vault"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Credentials is what the handlers need from the credential service.
type Credentials interface {
	Signup(ctx context.Context, in services.SignupInput) (*models.User, *services.TokenPair, error)
	Login(ctx context.Context, email, password string) (*models.User, *services.TokenPair, error)
	Refresh(ctx context.Context, token string) (*services.TokenPair, error)
	Revoke(ctx context.Context, token string) (bool, error)
	GetUser(ctx context.Context, userID string) (*models.User, error)
	ParseAccessToken(token string) (*auth.Claims, error)
}

// AuthHandler serves the /auth endpoints.
type AuthHandler struct {
	service Credentials
	cookies *CookieBinder
	logger  logging.Logger
}

// NewAuthHandler builds the auth endpoint handler.
func NewAuthHandler(service Credentials, cookies *CookieBinder, logger logging.Logger) *AuthHandler {
	return &AuthHandler{service: service, cookies: cookies, logger: logger.With("module", "httpapi")}
}

// SignupRequest is the JSON body for POST /api/v1/auth/signup. PublicKey is
// the base64 of the client's 32-byte public key; Envelope is the sealed key
// envelope produced by the client's vault bootstrap, stored verbatim.
type SignupRequest struct {
	Email     string          `json:"email" validate:"required,email,max=254"`
	Password  string          `json:"password" validate:"required,min=8,max=128"`
	FullName  string          `json:"full_name" validate:"omitempty,max=200"`
	Phone     string          `json:"phone" validate:"omitempty,max=20"`
	Country   string          `json:"country" validate:"omitempty,max=56"`
	PublicKey string          `json:"public_key" validate:"required"`
	Envelope  json.RawMessage `json:"envelope" validate:"required"`
}

// LoginRequest is the JSON body for POST /api/v1/auth/login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// UserResponse is the JSON shape of a user in signup, login, and profile
// responses. Envelope is echoed back so a client on a fresh device can
// unlock its keypair with the personal secret.
type UserResponse struct {
	ID        string          `json:"id"`
	Email     string          `json:"email"`
	FullName  string          `json:"full_name,omitempty"`
	Phone     string          `json:"phone,omitempty"`
	Country   string          `json:"country,omitempty"`
	PublicKey string          `json:"public_key"`
	Envelope  json.RawMessage `json:"envelope"`
	CreatedAt time.Time       `json:"created_at"`
}

func toUserResponse(user *models.User) *UserResponse {
	return &UserResponse{
		ID:        user.ID,
		Email:     user.Email,
		FullName:  user.FullName,
		Phone:     user.Phone,
		Country:   user.Country,
		PublicKey: base64.StdEncoding.EncodeToString(user.PublicKey),
		Envelope:  json.RawMessage(user.Envelope),
		CreatedAt: user.CreatedAt,
	}
}

// Signup handles POST /api/v1/auth/signup. The envelope is structurally
// validated here at the edge; past this point the server treats it as an
// opaque blob it can never decrypt.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "request validation failed")
		return
	}

	publicKey, err := base64.StdEncoding.DecodeString(req.PublicKey)
	if err != nil || len(publicKey) != cryptox.KeySize {
		writeError(w, http.StatusBadRequest, "invalid public key")
		return
	}
	if _, err := vault.Decode(req.Envelope); err != nil {
		writeError(w, http.StatusBadRequest, "invalid envelope")
		return
	}

	user, pair, err := h.service.Signup(r.Context(), services.SignupInput{
		Email:     req.Email,
		Password:  req.Password,
		FullName:  req.FullName,
		Phone:     req.Phone,
		Country:   req.Country,
		PublicKey: publicKey,
		Envelope:  []byte(req.Envelope),
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	h.cookies.Bind(w, pair)
	writeJSON(w, http.StatusCreated, toUserResponse(user))
}

// Login handles POST /api/v1/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "request validation failed")
		return
	}

	user, pair, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	h.cookies.Bind(w, pair)
	writeJSON(w, http.StatusOK, toUserResponse(user))
}

// Refresh handles POST /api/v1/auth/refresh. The refresh token comes from
// its cookie; a missing cookie is the same 401 as an invalid token.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(RefreshTokenCookie)
	if err != nil || cookie.Value == "" {
		writeError(w, http.StatusUnauthorized, "invalid token")
		return
	}

	pair, err := h.service.Refresh(r.Context(), cookie.Value)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	h.cookies.Bind(w, pair)
	writeJSON(w, http.StatusOK, map[string]string{"status": "refreshed"})
}

// Logout handles POST /api/v1/auth/logout. It revokes the presented refresh
// token if there is one and always clears both cookies, so logout succeeds
// even with a stale or absent session.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(RefreshTokenCookie); err == nil && cookie.Value != "" {
		if _, err := h.service.Revoke(r.Context(), cookie.Value); err != nil {
			h.writeServiceError(w, r, err)
			return
		}
	}

	h.cookies.Clear(w)
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

// Profile handles GET /api/v1/auth/profile for authenticated users.
func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	user, err := h.service.GetUser(r.Context(), claims.UserID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(user))
}

// writeServiceError maps service sentinels to statuses. Bodies stay opaque:
// 401 responses in particular say nothing about which check failed.
func (h *AuthHandler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, common.ErrEmailInUse):
		writeError(w, http.StatusConflict, "email already in use")
	case errors.Is(err, common.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, common.ErrInvalidToken):
		writeError(w, http.StatusUnauthorized, "invalid token")
	case errors.Is(err, common.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	default:
		h.logger.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
