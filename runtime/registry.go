// Package runtime hosts the presence-aware relay core: the connection
// registry, the presence broadcaster and the persistence coordinator.
// It orchestrates the system without containing storage or transport logic.
package runtime

import (
	"chat-relay/contract"
	"log/slog"
	"sync"
)

// ReplacePolicy controls what happens to a prior connection when the same
// identity registers again. The source application silently dropped the
// stale binding; whether that was intended is ambiguous, so the behavior
// is an explicit policy instead of an assumption.
type ReplacePolicy string

const (
	// ReplaceDrop overwrites the binding and leaves the stale connection
	// to die on its own (source behavior).
	ReplaceDrop ReplacePolicy = "drop"
	// ReplaceClose overwrites the binding and closes the stale connection.
	ReplaceClose ReplacePolicy = "close"
)

// Registry is the only piece of shared mutable state in the core: the
// process-wide mapping from identity name to its live connection sink.
// All operations are total and serialized by one mutex; same-identity
// register/unregister cannot race.
type Registry struct {
	mu       sync.RWMutex
	log      *slog.Logger
	policy   ReplacePolicy
	sessions map[string]contract.EventSink
	order    []string
}

func NewRegistry(log *slog.Logger, policy ReplacePolicy) *Registry {
	if policy == "" {
		policy = ReplaceClose
	}
	return &Registry{
		log:      log,
		policy:   policy,
		sessions: make(map[string]contract.EventSink),
	}
}

// Register binds username -> sink, unconditionally replacing any prior
// binding for that name. At most one live connection per identity exists
// at any instant. Callers are expected to follow every Register with a
// broadcaster announce; the registry itself never announces.
func (r *Registry) Register(username string, sink contract.EventSink) {
	r.mu.Lock()
	prior, replaced := r.sessions[username]
	r.sessions[username] = sink
	if !replaced {
		r.order = append(r.order, username)
	}
	r.mu.Unlock()

	if replaced {
		r.log.Info("session replaced", "username", username, "policy", r.policy)
		if r.policy == ReplaceClose {
			prior.Close()
		}
	}
}

// Unregister removes the binding if present; no-op otherwise.
func (r *Registry) Unregister(username string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.remove(username)
}

// UnregisterIfCurrent removes the binding only if it still points at the
// given sink. A replaced session tearing down late must not evict its
// successor.
func (r *Registry) UnregisterIfCurrent(username string, sink contract.EventSink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if current, ok := r.sessions[username]; !ok || current != sink {
		return
	}
	r.remove(username)
}

func (r *Registry) remove(username string) {
	if _, ok := r.sessions[username]; !ok {
		return
	}
	delete(r.sessions, username)
	for i, name := range r.order {
		if name == username {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

func (r *Registry) Lookup(username string) (contract.EventSink, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sink, ok := r.sessions[username]
	return sink, ok
}

// Snapshot returns the exact set of currently registered identity names
// in insertion order. The order is deterministic per event so broadcasts
// are reproducible in tests.
func (r *Registry) Snapshot() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}
