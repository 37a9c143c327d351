package ws

import (
	"encoding/json"
	"fmt"

	"chat-relay/domain/chat"
	"chat-relay/domain/event"
)

// Client → server frame types.
const (
	FramePostPublic  = "post_public"
	FramePostPrivate = "post_private"
	FrameVote        = "vote"
)

// ClientFrame is the inbound JSON envelope. Only the fields matching the
// declared type are read; the connection identity decides the sender.
type ClientFrame struct {
	Type       string   `json:"type"`
	Content    string   `json:"content,omitempty"`
	Recipients []string `json:"recipients,omitempty"`
	MessageID  string   `json:"message_id,omitempty"`
	Verdict    string   `json:"verdict,omitempty"`
}

// ServerFrame is the outbound JSON envelope, one of message_created,
// message_updated, or error.
type ServerFrame struct {
	Type    string        `json:"type"`
	Message *chat.Message `json:"message,omitempty"`
	Reason  string        `json:"reason,omitempty"`
}

// encodeEvent maps a domain event onto its wire frame.
func encodeEvent(e event.DomainEvent) ([]byte, error) {
	var frame ServerFrame
	switch evt := e.(type) {
	case event.MessageCreated:
		frame = ServerFrame{Type: event.KindMessageCreated, Message: &evt.Message}
	case event.MessageUpdated:
		frame = ServerFrame{Type: event.KindMessageUpdated, Message: &evt.Message}
	case event.Error:
		frame = ServerFrame{Type: event.KindError, Reason: evt.Reason}
	default:
		return nil, fmt.Errorf("unknown event kind %q", e.Kind())
	}
	return json.Marshal(frame)
}
