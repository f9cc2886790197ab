package http

import (
	"chat-relay/auth"
	"chat-relay/contract"
	"chat-relay/domain/event"
	"chat-relay/internal/ratelimit"
	"chat-relay/runtime"
	"chat-relay/sink"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
)

// WsHandler serves the realtime channel. One connection binds one
// authenticated identity name for its whole lifetime: handshake ->
// register + announce -> event loop -> unregister + announce.
type WsHandler struct {
	log         *slog.Logger
	registry    contract.IRegistry
	broadcaster contract.IBroadcaster
	coordinator *runtime.Coordinator
	limiter     *ratelimit.MapLimiter
	bufferSize  int
}

func NewWsHandler(log *slog.Logger, registry contract.IRegistry,
	broadcaster contract.IBroadcaster, coordinator *runtime.Coordinator,
	limiter *ratelimit.MapLimiter, bufferSize int) *WsHandler {
	return &WsHandler{
		log:         log,
		registry:    registry,
		broadcaster: broadcaster,
		coordinator: coordinator,
		limiter:     limiter,
		bufferSize:  bufferSize,
	}
}

// Serve upgrades the request, binds the authenticated identity to a fresh
// sink and pumps events both ways until the client disconnects.
func (h *WsHandler) Serve(w http.ResponseWriter, r *http.Request) {
	username, ok := auth.CallerUsername(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.log.Warn("websocket accept failed", "username", username, "error", err)
		return
	}
	defer conn.Close(websocket.StatusInternalError, "connection teardown")

	ctx := r.Context()
	connSink := sink.NewConnectionSink(h.bufferSize)

	h.registry.Register(username, connSink)
	h.broadcaster.Announce(ctx)
	h.log.Info("client connected", "username", username)

	defer func() {
		connSink.Close()
		h.registry.UnregisterIfCurrent(username, connSink)
		h.broadcaster.Announce(context.WithoutCancel(ctx))
		h.log.Info("client disconnected", "username", username)
	}()

	// Write pump: drains the sink into the socket. On sink closure
	// (disconnect or session replacement) it closes the socket, which
	// also unblocks the read loop below.
	writeDone := make(chan struct{})
	go func() {
		defer close(writeDone)
		h.writePump(ctx, conn, connSink)
		conn.Close(websocket.StatusGoingAway, "session closed")
	}()

	h.readLoop(ctx, conn, username)

	connSink.Close()
	<-writeDone
}

func (h *WsHandler) writePump(ctx context.Context, conn *websocket.Conn, connSink *sink.ConnectionSink) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-connSink.Done():
			return
		case envelope := <-connSink.Events:
			payload, err := json.Marshal(envelope)
			if err != nil {
				h.log.Error("envelope marshal failed", "error", err)
				continue
			}
			writeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			err = conn.Write(writeCtx, websocket.MessageText, payload)
			cancel()
			if err != nil {
				h.log.Warn("websocket write failed", "error", err)
				return
			}
		}
	}
}

// readLoop handles inbound frames in arrival order until disconnect.
// Only sendMessage is accepted from clients; anything else is a protocol
// violation worth logging, not killing the connection over.
func (h *WsHandler) readLoop(ctx context.Context, conn *websocket.Conn, username string) {
	for {
		_, payload, err := conn.Read(ctx)
		if err != nil {
			return
		}

		var envelope event.Envelope
		if err := json.Unmarshal(payload, &envelope); err != nil {
			h.log.Warn("malformed frame dropped", "username", username, "error", err)
			continue
		}

		switch envelope.Event {
		case event.KindSendMessage:
			var cmd event.SendMessage
			if err := json.Unmarshal(envelope.Data, &cmd); err != nil {
				h.log.Warn("malformed sendMessage dropped", "username", username, "error", err)
				continue
			}
			// The handshake identity is authoritative; a client cannot
			// send on behalf of someone else.
			cmd.Sender = username

			if !h.limiter.Allow(username, time.Now()) {
				h.log.Warn("send rate limited", "username", username)
				continue
			}
			if _, err := h.coordinator.Send(ctx, cmd); err != nil {
				h.log.Warn("send rejected", "username", username, "error", err)
			}
		default:
			h.log.Warn("unexpected client event", "username", username, "event", envelope.Event)
		}
	}
}
