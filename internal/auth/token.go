// Package auth locates the admin access token on a request.
package auth

import (
	"net/http"
	"strings"
)

// CookieName is the cookie the admin frontend stores its access token in.
const CookieName = "access_token"

const bearerScheme = "bearer"

// ExtractAccessToken prefers the cookie and falls back to an
// "Authorization: Bearer" header. The scheme is matched case-insensitively.
func ExtractAccessToken(r *http.Request) string {
	if cookie, err := r.Cookie(CookieName); err == nil {
		if v := strings.TrimSpace(cookie.Value); v != "" {
			return v
		}
	}

	scheme, token, ok := strings.Cut(strings.TrimSpace(r.Header.Get("Authorization")), " ")
	if !ok || !strings.EqualFold(scheme, bearerScheme) {
		return ""
	}
	return strings.TrimSpace(token)
}
