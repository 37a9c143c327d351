// Package ws is the session gateway: it authenticates websocket handshakes,
// registers the resulting connection with the relay, and runs one read and
// one write goroutine per connection.
package ws

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"chat-relay/auth"
	"chat-relay/services"
)

type Gateway struct {
	service     services.IChatService
	verifier    services.IAuthService
	log         *slog.Logger
	authTimeout time.Duration
	bufferSize  int
	upgrader    websocket.Upgrader
}

func NewGateway(service services.IChatService, verifier services.IAuthService,
	log *slog.Logger, authTimeout time.Duration, bufferSize int) *Gateway {
	return &Gateway{
		service:     service,
		verifier:    verifier,
		log:         log,
		authTimeout: authTimeout,
		bufferSize:  bufferSize,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Origin enforcement belongs to the fronting proxy; the
			// handshake is gated on the credential instead.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// ServeHTTP is the connect edge of the session state machine: extract the
// credential, verify it within the auth timeout, and only then upgrade.
// Any failure refuses the connection before a socket ever exists.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "websocket endpoint only accepts GET", http.StatusMethodNotAllowed)
		return
	}

	token, err := auth.TokenFromRequest(r)
	if err != nil {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}

	// A verifier that does not answer in time is an authentication
	// failure, not a hang.
	verifyCtx, cancel := context.WithTimeout(r.Context(), g.authTimeout)
	defer cancel()

	identity, err := g.verifier.VerifyCredential(verifyCtx, token)
	if err != nil {
		g.log.Warn("connection refused", "error", err)
		http.Error(w, "authentication failed", http.StatusUnauthorized)
		return
	}

	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.log.Warn("websocket upgrade failed", "error", err)
		return
	}

	client := newClient(conn, identity, g.service, g.bufferSize, g.log)
	g.service.Join(identity, client)
	g.log.Info("client connected", "user", identity.Username)

	go client.writePump()
	go client.readPump()
}
