package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dmitrijs2005/hushkey/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(server.URL, 5*time.Second)
	require.NoError(t, err)
	return client, server
}

func TestLogin_StoresCookiesAndReplaysThem(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/auth/login", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "access_token", Value: "acc", Path: "/", HttpOnly: true})
		http.SetCookie(w, &http.Cookie{Name: "refresh_token", Value: "sel.ver", Path: "/", HttpOnly: true})
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "user-1", "email": "a@b.com"})
	})
	mux.HandleFunc("GET /api/v1/auth/profile", func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie("access_token")
		if err != nil || cookie.Value != "acc" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "user-1", "email": "a@b.com"})
	})

	client, _ := newTestClient(t, mux)
	ctx := context.Background()

	user, err := client.Login(ctx, "a@b.com", "Abcd1234!")
	require.NoError(t, err)
	assert.Equal(t, "user-1", user.ID)

	// The jar must replay the session cookie on the next call.
	profile, err := client.Profile(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", profile.Email)
}

func TestSignup_SendsBodyAndDecodesUser(t *testing.T) {
	var got SignupRequest
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/auth/signup", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "user-1", "email": got.Email})
	})

	client, _ := newTestClient(t, mux)

	user, err := client.Signup(context.Background(), &SignupRequest{
		Email:     "a@b.com",
		Password:  "Abcd1234!",
		PublicKey: "cHVi",
		Envelope:  json.RawMessage(`{"salt":"x"}`),
	})
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", user.Email)
	assert.Equal(t, "cHVi", got.PublicKey)
	assert.JSONEq(t, `{"salt":"x"}`, string(got.Envelope))
}

func TestErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		status int
		want   error
	}{
		{"conflict", http.StatusConflict, common.ErrEmailInUse},
		{"unauthorized", http.StatusUnauthorized, common.ErrInvalidCredentials},
		{"bad request", http.StatusBadRequest, common.ErrFormat},
		{"not found", http.StatusNotFound, common.ErrNotFound},
		{"server error", http.StatusInternalServerError, common.ErrInternal},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
			}))

			_, err := client.Login(context.Background(), "a@b.com", "pw")
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

// A 401 from a session endpoint means the token is gone, not that the
// password was wrong; the sentinels must not get conflated.
func TestErrorMapping_SessionEndpointsReturnInvalidToken(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	ctx := context.Background()

	err := client.Refresh(ctx)
	assert.ErrorIs(t, err, common.ErrInvalidToken)
	assert.NotErrorIs(t, err, common.ErrInvalidCredentials)

	_, err = client.Profile(ctx)
	assert.ErrorIs(t, err, common.ErrInvalidToken)

	err = client.Logout(ctx)
	assert.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestServerUnreachable(t *testing.T) {
	client, server := newTestClient(t, http.NewServeMux())
	server.Close()

	_, err := client.Login(context.Background(), "a@b.com", "pw")
	assert.ErrorIs(t, err, common.ErrServerUnreachable)
}

func TestLogoutAndRefresh(t *testing.T) {
	var refreshed, loggedOut bool
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		refreshed = true
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "refreshed"})
	})
	mux.HandleFunc("POST /api/v1/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		loggedOut = true
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "logged_out"})
	})

	client, _ := newTestClient(t, mux)
	ctx := context.Background()

	require.NoError(t, client.Refresh(ctx))
	require.NoError(t, client.Logout(ctx))
	assert.True(t, refreshed)
	assert.True(t, loggedOut)
}
