package upload

import (
	"encoding/json"
	"errors"
	"net/http"

	myMiddleware "buachat/internal/middleware"

	"go.uber.org/zap"
)

// multipart overhead allowed on top of the file limit
const formSlack = 1 << 20

type Handler struct {
	storage *Storage
	logger  *zap.Logger
}

func NewHandler(storage *Storage, logger *zap.Logger) *Handler {
	return &Handler{storage: storage, logger: logger}
}

// Upload stores a message attachment. The caller creates the message that
// references it in a separate request.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	h.storage.Limit(w, r)

	f, err := h.storage.Receive(r, "file")
	if err != nil {
		WriteError(w, r, h.logger, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(f)
}

// Limit wraps the request body in the storage size limit.
func (s *Storage) Limit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBytes+formSlack)
}

// WriteError maps upload errors onto HTTP responses.
func WriteError(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error) {
	switch {
	case errors.Is(err, ErrTooLarge):
		http.Error(w, err.Error(), http.StatusRequestEntityTooLarge)
	case errors.Is(err, ErrEmptyFile), errors.Is(err, ErrNotImage), errors.Is(err, ErrNoFile):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		logger.Error("upload failed", zap.String("request_id", myMiddleware.RequestID(r.Context())), zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}
