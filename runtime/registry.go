package runtime

import (
	"sync"

	"chat-relay/contract"
	"chat-relay/domain/chat"
)

type sinkSet map[contract.EventSink]struct{}

// Registry is the single owner of the identity ↔ connection mapping.
// It performs a two-way bookkeeping:
//  1. owners resolves a sink back to the identity holding it, so teardown
//     only needs the connection handle.
//  2. members groups every live sink of one identity, because a user may
//     be connected from several tabs at once.
//
// The registry is a cache of liveness only, never a source of truth for
// user existence. Handler code goes through the interface; the raw maps
// are never exposed.
type Registry struct {
	mu      sync.RWMutex
	owners  map[contract.EventSink]string
	members map[string]sinkSet
}

func NewRegistry() *Registry {
	return &Registry{
		owners:  make(map[contract.EventSink]string),
		members: make(map[string]sinkSet),
	}
}

// Register adds a connection sink to the identity's handle set.
// Registering the same sink twice is idempotent.
func (r *Registry) Register(identity chat.Identity, sink contract.EventSink) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.owners[sink] = identity.ID

	if _, ok := r.members[identity.ID]; !ok {
		r.members[identity.ID] = make(sinkSet)
	}
	r.members[identity.ID][sink] = struct{}{}
}

// Unregister removes a connection sink from whatever identity owns it;
// unknown sinks are a no-op. When the owner's last sink goes away the
// identity is dropped entirely, so no empty sets linger.
func (r *Registry) Unregister(sink contract.EventSink) {
	r.mu.Lock()
	defer r.mu.Unlock()

	identityID, ok := r.owners[sink]
	if !ok {
		return
	}
	delete(r.owners, sink)

	if sinks, ok := r.members[identityID]; ok {
		delete(sinks, sink)
		if len(sinks) == 0 {
			delete(r.members, identityID)
		}
	}
}

// SinksFor returns the identity's current live sinks, possibly none.
func (r *Registry) SinksFor(identityID string) []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sinks, ok := r.members[identityID]
	if !ok {
		return nil
	}
	out := make([]contract.EventSink, 0, len(sinks))
	for s := range sinks {
		out = append(out, s)
	}
	return out
}

// AllSinks returns every registered sink across all identities.
func (r *Registry) AllSinks() []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]contract.EventSink, 0, len(r.owners))
	for s := range r.owners {
		out = append(out, s)
	}
	return out
}

// IsOnline reports whether the identity holds at least one live connection.
func (r *Registry) IsOnline(identityID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.members[identityID]) > 0
}
