package httpapi

import (
	"context"
	"encoding/json"
	"net/http"

	"chat-relay/auth"
	"chat-relay/domain/chat"
	"chat-relay/errors"
)

type contextKey string

const identityKey contextKey = "identity"

// IdentityFromContext returns the verified caller set by the auth
// middleware; the zero value means the request never went through it.
func IdentityFromContext(ctx context.Context) (chat.Identity, bool) {
	identity, ok := ctx.Value(identityKey).(chat.Identity)
	return identity, ok
}

// authenticate gates the history endpoints on a valid session token and
// injects the resolved identity into the request context.
func (a *API) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := auth.TokenFromRequest(r)
		if err != nil {
			errorResponse(w, errors.HTTPStatus(err), errors.Reason(err))
			return
		}

		identity, err := a.auth.VerifyCredential(r.Context(), token)
		if err != nil {
			errorResponse(w, errors.HTTPStatus(err), errors.Reason(err))
			return
		}

		ctx := context.WithValue(r.Context(), identityKey, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func errorResponse(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
