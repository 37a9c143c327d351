//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"

	"chat-relay/domain/chat"
	"chat-relay/domain/event"
)

// EventSink is one live connection's inbox. Consume must not block the
// caller: implementations buffer and drop rather than stall the fan-out.
type EventSink interface {
	Consume(ctx context.Context, e event.DomainEvent) error
}

// Audience selects which connections receive an outbound event: everyone
// currently registered, or an explicit set of identity IDs.
type Audience struct {
	Everyone bool
	Members  []string
}

// Everybody addresses every registered connection.
func Everybody() Audience {
	return Audience{Everyone: true}
}

// Only addresses the given identities; offline ones are silently skipped.
func Only(identityIDs ...string) Audience {
	return Audience{Members: identityIDs}
}

// IRegistry is the bidirectional mapping between verified identities and
// their live connection sinks. A user may hold several simultaneous
// connections. All operations are total: there is nothing to fail.
type IRegistry interface {
	Register(identity chat.Identity, sink EventSink)
	Unregister(sink EventSink)
	SinksFor(identityID string) []EventSink
	AllSinks() []EventSink
	IsOnline(identityID string) bool
}

// IRouter decides which sinks receive an event and delivers best-effort:
// a failure on one sink never blocks or fails delivery to the others.
type IRouter interface {
	Route(ctx context.Context, e event.DomainEvent, audience Audience)
}

// Worker is a supervised unit of background work. It doesn't protect
// itself; the supervisor owns restarts and panic recovery.
type Worker interface {
	Run(ctx context.Context) error
}

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// GetWorkerName uses reflection to retrieve the type name of a worker for
// logging and supervision, avoiding a manual naming method on the interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}
