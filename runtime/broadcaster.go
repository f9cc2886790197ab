package runtime

import (
	"chat-relay/contract"
	"chat-relay/domain/event"
	"chat-relay/observability"
	"context"
	"log/slog"
)

// Broadcaster pushes the full presence snapshot, never a diff, to every
// live connection. One registry mutation produces one broadcast; there is
// no batching or coalescing of rapid connect/disconnect bursts. Known
// limit: broadcast volume grows with connection churn times roster size.
type Broadcaster struct {
	log      *slog.Logger
	registry contract.IRegistry
	metrics  *observability.Metrics
}

func NewBroadcaster(log *slog.Logger, registry contract.IRegistry, metrics *observability.Metrics) *Broadcaster {
	return &Broadcaster{log: log, registry: registry, metrics: metrics}
}

// Announce takes the registry snapshot at this instant and delivers it
// whole to each registered sink. Delivery is best-effort; a slow or full
// connection drops the announcement rather than stalling the others.
func (b *Broadcaster) Announce(ctx context.Context) {
	names := b.registry.Snapshot()
	envelope, err := event.NewPresence(names)
	if err != nil {
		b.log.Error("presence envelope build failed", "error", err)
		return
	}

	for _, name := range names {
		sink, ok := b.registry.Lookup(name)
		if !ok {
			// Unregistered between snapshot and lookup; skip.
			continue
		}
		if err := sink.Consume(ctx, envelope); err != nil {
			b.log.Warn("presence push failed", "username", name, "error", err)
		}
	}

	if b.metrics != nil {
		b.metrics.PresenceBroadcasts.Inc()
		b.metrics.ConnectedClients.Set(float64(len(names)))
	}
}
