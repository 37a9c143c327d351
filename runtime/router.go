package runtime

import (
	"context"
	"log/slog"
	"time"

	"chat-relay/contract"
	"chat-relay/domain/event"
)

// Router fans an outbound event out to the connections selected by the
// audience. Delivery is fire-and-forget per sink: a slow, full, or broken
// connection is logged and skipped, and must never block or fail delivery
// to the others. Offline members of an explicit audience are silently
// dropped; best-effort-while-connected is the contract.
type Router struct {
	registry        contract.IRegistry
	log             *slog.Logger
	deliveryTimeout time.Duration
}

func NewRouter(registry contract.IRegistry, log *slog.Logger, deliveryTimeout time.Duration) *Router {
	return &Router{registry: registry, log: log, deliveryTimeout: deliveryTimeout}
}

func (r *Router) Route(ctx context.Context, e event.DomainEvent, audience contract.Audience) {
	for _, sink := range r.resolve(audience) {
		r.deliver(ctx, sink, e)
	}
}

// resolve turns an audience into concrete sinks. An identity appearing
// twice in an explicit audience is only counted once because the registry
// hands back each sink at most once per identity.
func (r *Router) resolve(audience contract.Audience) []contract.EventSink {
	if audience.Everyone {
		return r.registry.AllSinks()
	}
	seen := make(map[string]struct{}, len(audience.Members))
	var sinks []contract.EventSink
	for _, id := range audience.Members {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		sinks = append(sinks, r.registry.SinksFor(id)...)
	}
	return sinks
}

func (r *Router) deliver(ctx context.Context, sink contract.EventSink, e event.DomainEvent) {
	deliveryCtx, cancel := context.WithTimeout(ctx, r.deliveryTimeout)
	defer cancel()

	if err := sink.Consume(deliveryCtx, e); err != nil {
		// The failure concerns this one connection; the rest still deliver.
		r.log.Warn("dropping event for one connection",
			"kind", e.Kind(),
			"error", err)
	}
}
