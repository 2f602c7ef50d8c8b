package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/devnote/internal/model"
	"github.com/sakif/devnote/internal/service"
)

// ViewHandler serves the tag list and the list display mode.
type ViewHandler struct {
	notebooks *service.NotebookService
	logger    *slog.Logger
}

func NewViewHandler(notebooks *service.NotebookService, logger *slog.Logger) *ViewHandler {
	return &ViewHandler{notebooks: notebooks, logger: logger}
}

type viewModeBody struct {
	Mode string `json:"mode" validate:"required,oneof=compact detailed"`
}

// HandleTags returns every distinct tag.
//
// HTTP: GET /api/tags
func (h *ViewHandler) HandleTags(w http.ResponseWriter, r *http.Request) {
	owner, ok := requestOwner(w, r)
	if !ok {
		return
	}
	tags, err := h.notebooks.Tags(r.Context(), owner)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tags)
}

// HandleGetViewMode returns {"mode": "compact"|"detailed"}.
//
// HTTP: GET /api/view-mode
func (h *ViewHandler) HandleGetViewMode(w http.ResponseWriter, r *http.Request) {
	owner, ok := requestOwner(w, r)
	if !ok {
		return
	}
	mode, err := h.notebooks.ViewMode(r.Context(), owner)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewModeBody{Mode: string(mode)})
}

// HandleSetViewMode stores the display mode.
//
// HTTP: PUT /api/view-mode
func (h *ViewHandler) HandleSetViewMode(w http.ResponseWriter, r *http.Request) {
	owner, ok := requestOwner(w, r)
	if !ok {
		return
	}
	var req viewModeBody
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.notebooks.SetViewMode(r.Context(), owner, model.ViewMode(req.Mode)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}
