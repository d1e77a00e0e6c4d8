// internal/api/handlers.go
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	kaerrors "github.com/Melonai/ka/internal/errors"
	"github.com/Melonai/ka/internal/logging"
	"github.com/Melonai/ka/internal/repository"
	"github.com/Melonai/ka/internal/validation"
	shared "github.com/Melonai/ka/shared/types"

	"go.uber.org/zap"
)

// Handler serves one repository. Every action runs under mu, so requests and
// the watcher never interleave inside the metadata directory.
type Handler struct {
	mu     sync.Mutex
	repo   *repository.Repository
	logger *logging.Logger
	now    func() time.Time
}

func NewHandler(repo *repository.Repository, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Handler{repo: repo, logger: logger, now: time.Now}
}

// Routes registers every endpoint on a new mux.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /api/history", h.History)
	mux.HandleFunc("GET /api/status", h.Status)
	mux.HandleFunc("GET /api/files/{path...}", h.File)
	mux.HandleFunc("GET /api/diff/{path...}", h.Diff)
	mux.HandleFunc("POST /api/update", h.Update)
	mux.HandleFunc("POST /api/shift", h.Shift)
	return mux
}

// AutoUpdate records the working tree at the current time. The watcher calls it.
func (h *Handler) AutoUpdate() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	result, err := h.repo.Update(uint64(h.now().Unix()))
	if err != nil {
		return err
	}
	if len(result.AffectedFiles) > 0 {
		h.logger.Info("automatic update recorded",
			zap.Uint64("cursor", result.Cursor),
			zap.Strings("files", result.AffectedFiles))
	}
	return nil
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, shared.Health{
		Status:      "healthy",
		Root:        h.repo.Locations().Root,
		Initialized: h.repo.Initialized(),
	})
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	log, err := h.repo.Log()
	h.mu.Unlock()
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, log)
}

func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	entries, err := h.repo.Status()
	h.mu.Unlock()
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// File returns the path at ?cursor=N, or at the current cursor without one.
func (h *Handler) File(w http.ResponseWriter, r *http.Request) {
	path := r.PathValue("path")

	h.mu.Lock()
	defer h.mu.Unlock()

	var cursor uint64
	if raw := r.URL.Query().Get("cursor"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			h.writeError(w, r, kaerrors.ValidationError("invalid cursor", raw))
			return
		}
		cursor = parsed
	} else {
		log, err := h.repo.Log()
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		cursor = log.Cursor
	}

	version, err := h.repo.Show(path, cursor)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, version)
}

func (h *Handler) Diff(w http.ResponseWriter, r *http.Request) {
	path := r.PathValue("path")

	h.mu.Lock()
	result, err := h.repo.Diff(path)
	h.mu.Unlock()
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, shared.NewFileDiff(path, result))
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	req, err := validation.ValidateUpdateRequest(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	timestamp := req.Timestamp
	if timestamp == 0 {
		timestamp = uint64(h.now().Unix())
	}

	h.mu.Lock()
	result, err := h.repo.Update(timestamp)
	h.mu.Unlock()
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) Shift(w http.ResponseWriter, r *http.Request) {
	req, err := validation.ValidateShiftRequest(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.mu.Lock()
	result, err := h.repo.Shift(*req.Cursor)
	h.mu.Unlock()
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := kaerrors.StatusCode(err)
	body := shared.ErrorResponse{Type: "INTERNAL", Message: err.Error()}

	var e *kaerrors.Error
	if errors.As(err, &e) {
		body.Type = string(e.Type)
		body.Details = e.Details
	}

	if status >= http.StatusInternalServerError {
		h.logger.WithRequestID(r.Context()).Error("request failed", zap.Error(err))
	}
	writeJSON(w, status, body)
}
