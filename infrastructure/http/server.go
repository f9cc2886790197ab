// Package http exposes the relay over its two boundaries: the realtime
// WebSocket channel and the synchronous request/response API consumed by
// the client UI.
package http

import (
	"chat-relay/auth"
	"chat-relay/errors"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server wires the handlers onto one mux. Transport mechanics stay here;
// all behavior lives in the services and the relay core.
type Server struct {
	log  *slog.Logger
	auth *AuthHandler
	chat *ChatHandler
	ws   *WsHandler
}

func NewServer(log *slog.Logger, authHandler *AuthHandler, chatHandler *ChatHandler, wsHandler *WsHandler) *Server {
	return &Server{log: log, auth: authHandler, chat: chatHandler, ws: wsHandler}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/auth/register", s.auth.Register)
	mux.HandleFunc("POST /api/v1/auth/login", s.auth.Login)
	mux.Handle("GET /api/v1/auth/profile", auth.Middleware(http.HandlerFunc(s.auth.Profile)))
	mux.Handle("GET /api/v1/auth/logout", auth.Middleware(http.HandlerFunc(s.auth.Logout)))

	mux.Handle("POST /api/v1/chats/users", auth.Middleware(http.HandlerFunc(s.chat.LoadConversationPartners)))
	mux.Handle("POST /api/v1/chats/messages", auth.Middleware(http.HandlerFunc(s.chat.LoadTranscript)))
	mux.Handle("POST /api/v1/chats/current", auth.Middleware(http.HandlerFunc(s.chat.LoadLatest)))

	mux.Handle("GET /ws", auth.Middleware(http.HandlerFunc(s.ws.Serve)))

	mux.Handle("GET /metrics", promhttp.Handler())
	return mux
}

// apiResponse mirrors the response shape the client UI expects.
type apiResponse struct {
	Data    any    `json:"data,omitempty"`
	Message string `json:"message"`
	Success bool   `json:"success"`
}

func writeJSON(w http.ResponseWriter, status int, response apiResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(response)
}

func writeError(w http.ResponseWriter, log *slog.Logger, err error) {
	status := errors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		log.Error("request failed", "error", err)
	}
	writeJSON(w, status, apiResponse{Message: err.Error(), Success: false})
}
