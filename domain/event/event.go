// Package event defines the outbound domain events fanned out to
// connected clients.
package event

import (
	"chat-relay/domain/chat"
)

// DomainEvent is anything the router can deliver to a connection sink.
type DomainEvent interface {
	Kind() string
}

const (
	KindMessageCreated = "message_created"
	KindMessageUpdated = "message_updated"
	KindError          = "error"
)

// MessageCreated announces a freshly persisted message. Persistence success
// is the commit point: this event only exists for messages the store accepted.
type MessageCreated struct {
	Message chat.Message
}

func (e MessageCreated) Kind() string { return KindMessageCreated }

// MessageUpdated announces new vote tallies for an existing message.
type MessageUpdated struct {
	Message chat.Message
}

func (e MessageUpdated) Kind() string { return KindMessageUpdated }

// Error is addressed to a single sender whose event was rejected.
type Error struct {
	Reason string
}

func (e Error) Kind() string { return KindError }
