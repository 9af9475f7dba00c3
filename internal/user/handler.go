package user

import (
	"encoding/json"
	"errors"
	"net/http"

	myMiddleware "buachat/internal/middleware"
	"buachat/internal/upload"

	"go.uber.org/zap"
)

// AvatarStorage stores an uploaded image and returns where it is served from.
type AvatarStorage interface {
	Limit(w http.ResponseWriter, r *http.Request)
	ReceiveImage(r *http.Request, field string) (*upload.File, error)
}

type Handler struct {
	Service *Service
	avatars AvatarStorage
	logger  *zap.Logger
}

func NewHandler(s *Service, avatars AvatarStorage, logger *zap.Logger) *Handler {
	return &Handler{Service: s, avatars: avatars, logger: logger}
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Malformed JSON", http.StatusBadRequest)
		return
	}

	res, err := h.Service.Register(r.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, ErrValidation):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, ErrUsernameTaken):
			http.Error(w, "Username already taken", http.StatusConflict)
		default:
			h.serverError(w, r, "register", err)
		}
		return
	}

	writeJSON(w, http.StatusCreated, res)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Malformed JSON", http.StatusBadRequest)
		return
	}

	res, err := h.Service.Login(r.Context(), &req)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			http.Error(w, "invalid credentials", http.StatusUnauthorized)
			return
		}
		h.serverError(w, r, "login", err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := myMiddleware.UserFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	h.avatars.Limit(w, r)
	f, err := h.avatars.ReceiveImage(r, "avatar")
	if err != nil {
		upload.WriteError(w, r, h.logger, err)
		return
	}

	if err := h.Service.UpdateAvatar(r.Context(), userID, f.URL); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			http.Error(w, "User not found", http.StatusNotFound)
			return
		}
		h.serverError(w, r, "update avatar", err)
		return
	}

	writeJSON(w, http.StatusOK, AvatarResponse{AvatarURL: f.URL})
}

func (h *Handler) serverError(w http.ResponseWriter, r *http.Request, op string, err error) {
	h.logger.Error(op+" failed",
		zap.String("request_id", myMiddleware.RequestID(r.Context())),
		zap.Error(err),
	)
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
