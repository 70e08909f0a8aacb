// Package api is the HTTP client for the credential server. Auth state lives
// entirely in the cookie jar: the server sets httpOnly token cookies and the
// client simply replays them, so no token value is ever handled here.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/dmitrijs2005/hushkey/internal/common"
)

// Client talks to the credential server.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient builds a Client for the given base URL with a fresh cookie jar.
func NewClient(baseURL string, timeout time.Duration) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Jar: jar, Timeout: timeout},
	}, nil
}

// SignupRequest is the body for Signup. PublicKey is base64; Envelope is the
// sealed key envelope exactly as the vault produced it.
type SignupRequest struct {
	Email     string          `json:"email"`
	Password  string          `json:"password"`
	FullName  string          `json:"full_name,omitempty"`
	Phone     string          `json:"phone,omitempty"`
	Country   string          `json:"country,omitempty"`
	PublicKey string          `json:"public_key"`
	Envelope  json.RawMessage `json:"envelope"`
}

// User mirrors the server's user representation.
type User struct {
	ID        string          `json:"id"`
	Email     string          `json:"email"`
	FullName  string          `json:"full_name,omitempty"`
	Phone     string          `json:"phone,omitempty"`
	Country   string          `json:"country,omitempty"`
	PublicKey string          `json:"public_key"`
	Envelope  json.RawMessage `json:"envelope"`
	CreatedAt time.Time       `json:"created_at"`
}

// Signup creates an account. The returned session cookies land in the jar.
func (c *Client) Signup(ctx context.Context, req *SignupRequest) (*User, error) {
	var user User
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/auth/signup", req, &user, http.StatusCreated, common.ErrInvalidCredentials); err != nil {
		return nil, err
	}
	return &user, nil
}

// Login authenticates and stores the session cookies in the jar.
func (c *Client) Login(ctx context.Context, email, password string) (*User, error) {
	body := map[string]string{"email": email, "password": password}

	var user User
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/auth/login", body, &user, http.StatusOK, common.ErrInvalidCredentials); err != nil {
		return nil, err
	}
	return &user, nil
}

// Refresh rotates the session using the refresh cookie in the jar.
func (c *Client) Refresh(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodPost, "/api/v1/auth/refresh", nil, nil, http.StatusOK, common.ErrInvalidToken)
}

// Logout revokes the session server-side; the server clears the cookies.
func (c *Client) Logout(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodPost, "/api/v1/auth/logout", nil, nil, http.StatusOK, common.ErrInvalidToken)
}

// Profile fetches the authenticated user, including the stored envelope.
func (c *Client) Profile(ctx context.Context) (*User, error) {
	var user User
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/auth/profile", nil, &user, http.StatusOK, common.ErrInvalidToken); err != nil {
		return nil, err
	}
	return &user, nil
}

// unauthorized is the sentinel a 401 maps to for this call: invalid
// credentials on the password endpoints, invalid token on the session ones.
func (c *Client) doJSON(ctx context.Context, method, path string, in, out any, expect int, unauthorized error) error {
	var body *bytes.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", common.ErrServerUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != expect {
		return statusError(resp.StatusCode, unauthorized)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// statusError maps response codes back to the shared sentinels. Bodies are
// intentionally ignored: the server keeps them opaque and so do we.
func statusError(status int, unauthorized error) error {
	switch status {
	case http.StatusConflict:
		return common.ErrEmailInUse
	case http.StatusUnauthorized:
		return unauthorized
	case http.StatusBadRequest:
		return common.ErrFormat
	case http.StatusNotFound:
		return common.ErrNotFound
	default:
		return fmt.Errorf("%w: unexpected status %d", common.ErrInternal, status)
	}
}
