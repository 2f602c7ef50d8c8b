package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/devnote/internal/service"
)

// SyncHandler triggers cloud sync by hand. Both routes answer 503 when sync
// is not configured.
type SyncHandler struct {
	notebooks *service.NotebookService
	logger    *slog.Logger
}

func NewSyncHandler(notebooks *service.NotebookService, logger *slog.Logger) *SyncHandler {
	return &SyncHandler{notebooks: notebooks, logger: logger}
}

type pushResponse struct {
	Status string `json:"status"`
}

type pullResponse struct {
	Found bool `json:"found"`
}

// HandlePush uploads the notebook now instead of waiting for the debounce.
//
// HTTP: POST /api/sync/push
func (h *SyncHandler) HandlePush(w http.ResponseWriter, r *http.Request) {
	owner, ok := requestOwner(w, r)
	if !ok {
		return
	}
	if err := h.notebooks.PushNow(r.Context(), owner); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pushResponse{Status: "pushed"})
}

// HandlePull replaces local data with the cloud copy. found is false when
// the cloud holds nothing for the owner; local data is then untouched.
//
// HTTP: POST /api/sync/pull
func (h *SyncHandler) HandlePull(w http.ResponseWriter, r *http.Request) {
	owner, ok := requestOwner(w, r)
	if !ok {
		return
	}
	found, err := h.notebooks.Pull(r.Context(), owner)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pullResponse{Found: found})
}
