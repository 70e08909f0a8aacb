package httpapi

import (
	"net/http"
	"time"

	"github.com/dmitrijs2005/hushkey/internal/server/config"
	"github.com/dmitrijs2005/hushkey/internal/server/services"
)

// Cookie names shared with the client.
const (
	AccessTokenCookie  = "access_token"
	RefreshTokenCookie = "refresh_token"
)

// CookieBinder writes and clears the auth cookie pair. Tokens travel only in
// httpOnly cookies; response bodies never carry them.
type CookieBinder struct {
	secure     bool
	sameSite   http.SameSite
	domain     string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewCookieBinder builds a binder from server config. An unknown same_site
// value falls back to Lax.
func NewCookieBinder(cfg *config.Config) *CookieBinder {
	sameSite := http.SameSiteLaxMode
	switch cfg.Cookies.SameSite {
	case "strict":
		sameSite = http.SameSiteStrictMode
	case "none":
		sameSite = http.SameSiteNoneMode
	}

	return &CookieBinder{
		secure:     cfg.Cookies.Secure,
		sameSite:   sameSite,
		domain:     cfg.Cookies.Domain,
		accessTTL:  cfg.AccessTokenTTL,
		refreshTTL: cfg.RefreshTokenTTL,
	}
}

// Bind sets both auth cookies on the response.
func (b *CookieBinder) Bind(w http.ResponseWriter, pair *services.TokenPair) {
	http.SetCookie(w, b.cookie(AccessTokenCookie, pair.AccessToken, b.accessTTL))
	http.SetCookie(w, b.cookie(RefreshTokenCookie, pair.RefreshToken, b.refreshTTL))
}

// Clear expires both auth cookies.
func (b *CookieBinder) Clear(w http.ResponseWriter) {
	http.SetCookie(w, b.expired(AccessTokenCookie))
	http.SetCookie(w, b.expired(RefreshTokenCookie))
}

func (b *CookieBinder) cookie(name, value string, ttl time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   b.domain,
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   b.secure,
		SameSite: b.sameSite,
	}
}

func (b *CookieBinder) expired(name string) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Domain:   b.domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   b.secure,
		SameSite: b.sameSite,
	}
}
