package auth

import (
	"net/http"
	"strings"

	"chat-relay/errors"
)

// CookieName is where the account surface stores the session token;
// browser clients send it back on the websocket handshake automatically.
const CookieName = "token"

// TokenFromRequest extracts the bearer credential from a request, checking
// the Authorization header first, then the session cookie, then a query
// parameter (browsers cannot set headers on websocket handshakes).
func TokenFromRequest(r *http.Request) (string, error) {
	if header := r.Header.Get("Authorization"); header != "" {
		token := strings.TrimPrefix(header, "Bearer ")
		if token != "" && token != header {
			return token, nil
		}
	}
	if cookie, err := r.Cookie(CookieName); err == nil && cookie.Value != "" {
		return cookie.Value, nil
	}
	if token := r.URL.Query().Get(CookieName); token != "" {
		return token, nil
	}
	return "", errors.ErrMissingToken
}
