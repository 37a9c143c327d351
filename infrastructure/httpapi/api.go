// Package httpapi is the CRUD edge of the relay: account registration and
// login plus message history listings. The real-time surface lives in the
// ws package, mounted here under /ws.
package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"chat-relay/auth"
	"chat-relay/errors"
	"chat-relay/services"
)

type API struct {
	auth    services.IAuthService
	chats   services.IChatService
	gateway http.Handler
	log     *slog.Logger
}

func NewAPI(authService services.IAuthService, chats services.IChatService,
	gateway http.Handler, log *slog.Logger) *API {
	return &API{auth: authService, chats: chats, gateway: gateway, log: log}
}

func (a *API) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Post("/api/users/register", a.register)
	r.Post("/api/users/login", a.login)

	r.Group(func(r chi.Router) {
		r.Use(a.authenticate)
		r.Get("/api/messages", a.listPublic)
		r.Get("/api/messages/private", a.listPrivate)
	})

	r.Get("/ws", a.gateway.ServeHTTP)
	r.Get("/healthz", a.health)
	return r
}

func (a *API) register(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeCredentials(w, r)
	if !ok {
		return
	}

	token, identity, err := a.auth.Register(req.Username, req.Password)
	if err != nil {
		errorResponse(w, errors.HTTPStatus(err), errors.Reason(err))
		return
	}

	setSessionCookie(w, string(token))
	writeJSON(w, http.StatusCreated, map[string]any{
		"token": token,
		"user":  identity,
	})
}

func (a *API) login(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeCredentials(w, r)
	if !ok {
		return
	}

	token, identity, err := a.auth.Login(req.Username, req.Password)
	if err != nil {
		errorResponse(w, errors.HTTPStatus(err), errors.Reason(err))
		return
	}

	setSessionCookie(w, string(token))
	writeJSON(w, http.StatusOK, map[string]any{
		"token": token,
		"user":  identity,
	})
}

func (a *API) listPublic(w http.ResponseWriter, _ *http.Request) {
	messages, err := a.chats.ListPublic()
	if err != nil {
		a.log.Error("listing public messages failed", "error", err)
		errorResponse(w, http.StatusInternalServerError, "failed to fetch messages")
		return
	}
	writeJSON(w, http.StatusOK, messages)
}

func (a *API) listPrivate(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFromContext(r.Context())
	if !ok {
		errorResponse(w, http.StatusUnauthorized, "authentication required")
		return
	}

	messages, err := a.chats.ListPrivateFor(identity.ID)
	if err != nil {
		a.log.Error("listing private messages failed", "error", err)
		errorResponse(w, http.StatusInternalServerError, "failed to fetch messages")
		return
	}
	writeJSON(w, http.StatusOK, messages)
}

func (a *API) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func decodeCredentials(w http.ResponseWriter, r *http.Request) (auth.CredentialsRequest, bool) {
	var req auth.CredentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, http.StatusBadRequest, "invalid JSON body")
		return auth.CredentialsRequest{}, false
	}
	return req, true
}

func setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
