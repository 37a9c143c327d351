package ws

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"chat-relay/auth"
	"chat-relay/repositories"
	rt "chat-relay/runtime"
	"chat-relay/services"
)

type relayFixture struct {
	server *httptest.Server
	auth   *services.AuthService
}

func newRelayFixture(t *testing.T) *relayFixture {
	t.Helper()

	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	log := slog.New(slog.DiscardHandler)
	users := repositories.NewUserRepository(db)
	messages := repositories.NewMessageRepository(db, log)
	tokens := auth.NewTokenManager("test-secret-used-only-here", time.Hour)
	authService := services.NewAuthService(users, tokens)

	registry := rt.NewRegistry()
	router := rt.NewRouter(registry, log, time.Second)
	chatService := services.NewChatService(messages, users, registry, router,
		nil, services.VoteScopeGlobal, 512, log)

	gateway := NewGateway(chatService, authService, log, 2*time.Second, 64)
	server := httptest.NewServer(gateway)
	t.Cleanup(server.Close)

	return &relayFixture{server: server, auth: authService}
}

// connect registers the username and opens an authenticated websocket.
func (f *relayFixture) connect(t *testing.T, username string) *websocket.Conn {
	t.Helper()

	token, _, err := f.auth.Register(username, "Str0ng&Secret!pass")
	require.NoError(t, err)

	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "?token=" + string(token)
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// warmup proves every connection is registered before the interesting
// traffic starts: the dial returns on the handshake, slightly before the
// server finishes wiring the client into the fan-out.
func (f *relayFixture) warmup(t *testing.T, sender *websocket.Conn, conns ...*websocket.Conn) {
	t.Helper()
	require.NoError(t, sender.WriteJSON(ClientFrame{Type: FramePostPublic, Content: "warmup"}))
	for _, conn := range conns {
		frame := readFrame(t, conn)
		require.Equal(t, "message_created", frame.Type)
	}
}

func readFrame(t *testing.T, conn *websocket.Conn) ServerFrame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))

	var frame ServerFrame
	require.NoError(t, conn.ReadJSON(&frame))
	return frame
}

func TestGateway_Refuses_Unauthenticated_Handshake(t *testing.T) {
	req := require.New(t)
	f := newRelayFixture(t)

	url := "ws" + strings.TrimPrefix(f.server.URL, "http")
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	req.Error(err)
	req.NotNil(resp)
	defer resp.Body.Close()
	req.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func TestGateway_Refuses_Bad_Token(t *testing.T) {
	req := require.New(t)
	f := newRelayFixture(t)

	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "?token=garbage"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	req.Error(err)
	req.NotNil(resp)
	defer resp.Body.Close()
	req.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func TestGateway_Public_Message_Reaches_All_Connections(t *testing.T) {
	req := require.New(t)
	f := newRelayFixture(t)

	alice := f.connect(t, "alice")
	bob := f.connect(t, "bob")
	f.warmup(t, alice, alice, bob)

	req.NoError(alice.WriteJSON(ClientFrame{Type: FramePostPublic, Content: "hello room"}))

	for _, conn := range []*websocket.Conn{alice, bob} {
		frame := readFrame(t, conn)
		req.Equal("message_created", frame.Type)
		req.NotNil(frame.Message)
		req.Equal("hello room", frame.Message.Content)
		req.Equal("alice", frame.Message.Author.Username)
		req.Empty(frame.Message.Recipients)
	}
}

func TestGateway_Vote_Updates_Fan_Out(t *testing.T) {
	req := require.New(t)
	f := newRelayFixture(t)

	alice := f.connect(t, "alice")
	bob := f.connect(t, "bob")
	f.warmup(t, alice, alice, bob)

	req.NoError(alice.WriteJSON(ClientFrame{Type: FramePostPublic, Content: "vote on me"}))
	created := readFrame(t, alice)
	req.Equal("message_created", created.Type)
	_ = readFrame(t, bob)

	req.NoError(bob.WriteJSON(ClientFrame{
		Type:      FrameVote,
		MessageID: created.Message.ID.String(),
		Verdict:   "upvote",
	}))

	for _, conn := range []*websocket.Conn{alice, bob} {
		frame := readFrame(t, conn)
		req.Equal("message_updated", frame.Type)
		req.NotNil(frame.Message)
		req.Equal(1, frame.Message.Upvotes)
	}
}

func TestGateway_Rejections_Go_Back_To_The_Sender_Only(t *testing.T) {
	req := require.New(t)
	f := newRelayFixture(t)

	alice := f.connect(t, "alice")
	bob := f.connect(t, "bob")
	f.warmup(t, alice, alice, bob)

	// Unknown frame type
	req.NoError(alice.WriteJSON(ClientFrame{Type: "shout", Content: "hey"}))
	frame := readFrame(t, alice)
	req.Equal("error", frame.Type)
	req.Equal("malformed event", frame.Reason)

	// Unknown private recipient
	req.NoError(alice.WriteJSON(ClientFrame{
		Type:       FramePostPrivate,
		Content:    "anyone?",
		Recipients: []string{"ghost"},
	}))
	frame = readFrame(t, alice)
	req.Equal("error", frame.Type)
	req.Contains(frame.Reason, "recipients not found")

	// Bob's connection stayed quiet through both rejections
	req.NoError(bob.SetReadDeadline(time.Now().Add(300 * time.Millisecond)))
	var stray ServerFrame
	req.Error(bob.ReadJSON(&stray))
}

func TestGateway_Private_Message_Skips_Outsiders(t *testing.T) {
	req := require.New(t)
	f := newRelayFixture(t)

	alice := f.connect(t, "alice")
	bob := f.connect(t, "bob")
	carol := f.connect(t, "carol")
	f.warmup(t, alice, alice, bob, carol)

	req.NoError(alice.WriteJSON(ClientFrame{
		Type:       FramePostPrivate,
		Content:    "between us",
		Recipients: []string{"bob"},
	}))

	for _, conn := range []*websocket.Conn{alice, bob} {
		frame := readFrame(t, conn)
		req.Equal("message_created", frame.Type)
		req.Equal("between us", frame.Message.Content)
	}

	req.NoError(carol.SetReadDeadline(time.Now().Add(300 * time.Millisecond)))
	var stray ServerFrame
	req.Error(carol.ReadJSON(&stray))
}
