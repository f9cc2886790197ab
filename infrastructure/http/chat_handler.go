package http

import (
	"chat-relay/auth"
	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/services"
	"encoding/json"
	"log/slog"
	"net/http"
)

type ChatHandler struct {
	log     *slog.Logger
	service services.IChatService
}

func NewChatHandler(log *slog.Logger, service services.IChatService) *ChatHandler {
	return &ChatHandler{log: log, service: service}
}

type partnersRequest struct {
	ChatUsers []string `json:"chatUsers"`
}

type transcriptRequest struct {
	Sender   string `json:"sender"`
	Receiver string `json:"receiver"`
}

// LoadConversationPartners returns the caller's partner list: the known
// list echoed back when the client already has one, otherwise derived
// from history with a cold-start fallback.
func (h *ChatHandler) LoadConversationPartners(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.CallerUsername(r.Context())
	if !ok {
		writeError(w, h.log, errors.ErrUnauthorized)
		return
	}

	var request partnersRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		writeError(w, h.log, errors.ErrInvalidPayload)
		return
	}

	partners, err := h.service.LoadConversationPartners(r.Context(), caller, request.ChatUsers)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, apiResponse{
		Data:    partners,
		Message: "Chat users loaded successfully",
		Success: true,
	})
}

// LoadTranscript returns the full conversation between the two users,
// ascending by creation time.
func (h *ChatHandler) LoadTranscript(w http.ResponseWriter, r *http.Request) {
	request, ok := h.decodeTranscript(w, r)
	if !ok {
		return
	}

	messages, err := h.service.LoadTranscript(request.Sender, request.Receiver)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	if messages == nil {
		messages = []domain.Message{}
	}
	writeJSON(w, http.StatusOK, apiResponse{
		Data:    messages,
		Message: "Messages loaded successfully",
		Success: true,
	})
}

// LoadLatest returns the newest message of the conversation, used by the
// client for conversation-list previews.
func (h *ChatHandler) LoadLatest(w http.ResponseWriter, r *http.Request) {
	request, ok := h.decodeTranscript(w, r)
	if !ok {
		return
	}

	latest, err := h.service.LoadLatest(request.Sender, request.Receiver)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	if latest == nil {
		writeJSON(w, http.StatusOK, apiResponse{Message: "No messages found", Success: true})
		return
	}
	writeJSON(w, http.StatusOK, apiResponse{
		Data:    latest,
		Message: "Messages loaded successfully",
		Success: true,
	})
}

func (h *ChatHandler) decodeTranscript(w http.ResponseWriter, r *http.Request) (transcriptRequest, bool) {
	var request transcriptRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		writeError(w, h.log, errors.ErrInvalidPayload)
		return transcriptRequest{}, false
	}
	if request.Sender == "" || request.Receiver == "" {
		writeError(w, h.log, errors.ErrInvalidPayload)
		return transcriptRequest{}, false
	}
	return request, true
}
