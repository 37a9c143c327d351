package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"chat-relay/domain/chat"
	"chat-relay/domain/event"
	"chat-relay/errors"
	"chat-relay/services"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingPeriod   = 54 * time.Second
	maxFrameSize = 1 << 16
)

// Client is one live authenticated connection. It is the registry's
// connection handle and the EventSink the router delivers into: outbound
// events land in the buffered send channel and the write pump drains it,
// so a slow reader never blocks the fan-out.
type Client struct {
	conn     *websocket.Conn
	identity chat.Identity
	send     chan []byte
	service  services.IChatService
	log      *slog.Logger
	ctx      context.Context
	cancel   context.CancelFunc
}

func newClient(conn *websocket.Conn, identity chat.Identity,
	service services.IChatService, bufferSize int, log *slog.Logger) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		conn:     conn,
		identity: identity,
		send:     make(chan []byte, bufferSize),
		service:  service,
		log:      log,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Consume implements contract.EventSink. It never blocks: when the buffer
// is full the event is dropped and the error is left to the router to log.
func (c *Client) Consume(_ context.Context, e event.DomainEvent) error {
	data, err := encodeEvent(e)
	if err != nil {
		return err
	}
	select {
	case <-c.ctx.Done():
		return fmt.Errorf("connection closed for %s", c.identity.Username)
	case c.send <- data:
		return nil
	default:
		return fmt.Errorf("send buffer full for %s", c.identity.Username)
	}
}

// readPump owns inbound traffic. On any read failure the connection is
// torn down: unregister first so the router stops selecting this sink,
// then cancel so the write pump exits.
func (c *Client) readPump() {
	defer func() {
		c.service.Leave(c)
		c.cancel()
		_ = c.conn.Close()
		c.log.Info("client disconnected", "user", c.identity.Username)
	}()

	c.conn.SetReadLimit(maxFrameSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure) {
				c.log.Warn("websocket read failed",
					"user", c.identity.Username, "error", err)
			}
			return
		}
		c.dispatch(raw)
	}
}

// dispatch routes one inbound frame into the chat service. The handling
// context is detached from the connection's lifetime: an in-flight vote
// still persists and broadcasts even if the voter drops right after
// emitting it.
func (c *Client) dispatch(raw []byte) {
	var frame ClientFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		c.sendError("malformed event")
		return
	}

	hctx := context.WithoutCancel(c.ctx)
	now := time.Now().UTC()

	var err error
	switch frame.Type {
	case FramePostPublic:
		_, err = c.service.PostPublic(hctx, chat.PostPublicCommand{
			Sender:    c.identity,
			Content:   frame.Content,
			CreatedAt: now,
		})
	case FramePostPrivate:
		_, err = c.service.PostPrivate(hctx, chat.PostPrivateCommand{
			Sender:     c.identity,
			Content:    frame.Content,
			Recipients: frame.Recipients,
			CreatedAt:  now,
		})
	case FrameVote:
		messageID, parseErr := uuid.Parse(frame.MessageID)
		if parseErr != nil {
			c.sendError("malformed event")
			return
		}
		_, err = c.service.Vote(hctx, chat.VoteCommand{
			Voter:     c.identity,
			MessageID: messageID,
			Verdict:   chat.Verdict(frame.Verdict),
		})
	default:
		c.sendError("malformed event")
		return
	}

	if err != nil {
		c.sendError(errors.Reason(err))
	}
}

// sendError pushes an error frame to this connection only; rejections are
// the sender's business, nobody else's.
func (c *Client) sendError(reason string) {
	if err := c.Consume(c.ctx, event.Error{Reason: reason}); err != nil {
		c.log.Warn("dropping error frame", "user", c.identity.Username, "error", err)
	}
}

// writePump owns outbound traffic and the keepalive pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-c.ctx.Done():
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case message := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.cancel()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.cancel()
				return
			}
		}
	}
}
