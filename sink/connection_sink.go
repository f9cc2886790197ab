// Package sink bridges the relay core and individual transports. A sink
// owns the buffered channel feeding one connection's write pump.
package sink

import (
	"chat-relay/domain/event"
	"context"
	"sync"
)

// ConnectionSink decouples event producers (broadcaster, coordinator)
// from the transport write loop. Producers never block on a slow client:
// a full buffer drops the event.
type ConnectionSink struct {
	Events chan event.Envelope

	closeOnce sync.Once
	closed    chan struct{}
}

func NewConnectionSink(bufferSize int) *ConnectionSink {
	return &ConnectionSink{
		Events: make(chan event.Envelope, bufferSize),
		closed: make(chan struct{}),
	}
}

// Consume is called by the relay core. It hands the envelope to the
// connection's write pump, dropping on backpressure rather than stalling
// the registry or coordinator.
func (s *ConnectionSink) Consume(ctx context.Context, e event.Envelope) error {
	select {
	case <-s.closed:
		return context.Canceled
	case s.Events <- e:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		// Buffer full: best-effort delivery, the event is lost for this
		// connection only.
		return nil
	}
}

// Close marks the sink dead and wakes its write pump. Safe to call more
// than once; used by the registry's close-on-replace policy and by the
// transport on disconnect.
func (s *ConnectionSink) Close() {
	s.closeOnce.Do(func() {
		close(s.closed)
	})
}

// Done reports sink termination to the transport's write pump.
func (s *ConnectionSink) Done() <-chan struct{} {
	return s.closed
}
