package http

import (
	"chat-relay/auth"
	"chat-relay/errors"
	"chat-relay/repositories"
	"chat-relay/services"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
)

type AuthHandler struct {
	log     *slog.Logger
	service services.IAuthService
	users   repositories.IUserRepository
}

func NewAuthHandler(log *slog.Logger, service services.IAuthService, users repositories.IUserRepository) *AuthHandler {
	return &AuthHandler{log: log, service: service, users: users}
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var request registerRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		writeError(w, h.log, errors.ErrInvalidPayload)
		return
	}

	identity, token, err := h.service.Register(request.Username, request.Email, request.Password)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	setSessionCookie(w, r, string(token))
	writeJSON(w, http.StatusCreated, apiResponse{
		Data:    identity.Summary(),
		Message: "User created successfully",
		Success: true,
	})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var request loginRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		writeError(w, h.log, errors.ErrInvalidPayload)
		return
	}

	identity, token, err := h.service.Login(request.Email, request.Password)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	setSessionCookie(w, r, string(token))
	writeJSON(w, http.StatusOK, apiResponse{
		Data:    identity.Summary(),
		Message: "User logged in successfully",
		Success: true,
	})
}

func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	callerID, ok := auth.CallerID(r.Context())
	if !ok {
		writeError(w, h.log, errors.ErrUnauthorized)
		return
	}
	id, err := uuid.Parse(callerID)
	if err != nil {
		writeError(w, h.log, errors.ErrUnauthorized)
		return
	}

	identity, err := h.users.ByID(r.Context(), id)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, apiResponse{
		Data:    identity.Summary(),
		Message: "User profile",
		Success: true,
	})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, _ *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     "accesstoken",
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	writeJSON(w, http.StatusOK, apiResponse{Message: "User logged out", Success: true})
}

func setSessionCookie(w http.ResponseWriter, r *http.Request, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     "accesstoken",
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}
