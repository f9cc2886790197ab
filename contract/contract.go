//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"chat-relay/domain"
	"chat-relay/domain/event"
	"context"

	"github.com/google/uuid"
)

// EventSink is the live end of one connection. Consume must not block
// longer than the context allows; a full connection buffer drops the
// event rather than stalling the caller.
type EventSink interface {
	Consume(ctx context.Context, e event.Envelope) error
	Close()
}

// IRegistry is the process-wide mapping from identity name to its live
// connection. At most one binding exists per name at any instant.
type IRegistry interface {
	Register(username string, sink EventSink)
	Unregister(username string)
	UnregisterIfCurrent(username string, sink EventSink)
	Lookup(username string) (EventSink, bool)
	Snapshot() []string
}

// IBroadcaster announces the full presence snapshot to every live
// connection after each registry mutation. Call sites mutating the
// registry are responsible for announcing; the registry itself does not.
type IBroadcaster interface {
	Announce(ctx context.Context)
}

// IdentityResolver is the read-only identity lookup consumed by the
// relay core. Absent identities are reported as errors.ErrIdentityNotFound.
type IdentityResolver interface {
	ByUsername(ctx context.Context, username string) (domain.Identity, error)
	ByID(ctx context.Context, id uuid.UUID) (domain.Identity, error)
}
