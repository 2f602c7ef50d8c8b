package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/devnote/internal/model"
	"github.com/sakif/devnote/internal/service"
)

// NoteHandler exposes note CRUD.
type NoteHandler struct {
	notebooks *service.NotebookService
	logger    *slog.Logger
}

func NewNoteHandler(notebooks *service.NotebookService, logger *slog.Logger) *NoteHandler {
	return &NoteHandler{notebooks: notebooks, logger: logger}
}

// createNoteRequest is the body of POST /api/notes. categoryId wins over
// category; with neither the note is uncategorized.
type createNoteRequest struct {
	Title      string   `json:"title" validate:"required,max=200"`
	Content    string   `json:"content"`
	Code       string   `json:"code"`
	Category   string   `json:"category" validate:"max=100"`
	CategoryID string   `json:"categoryId"`
	Tags       []string `json:"tags" validate:"max=50,dive,max=50"`
}

// updateNoteRequest is the body of PUT /api/notes/{id}; absent fields are
// left unchanged.
type updateNoteRequest struct {
	Title      *string  `json:"title" validate:"omitempty,max=200"`
	Content    *string  `json:"content"`
	Code       *string  `json:"code"`
	Category   *string  `json:"category" validate:"omitempty,max=100"`
	CategoryID string   `json:"categoryId"`
	Tags       []string `json:"tags" validate:"omitempty,max=50,dive,max=50"`
}

// HandleList returns the notes matching the query.
//
// HTTP: GET /api/notes?q=<search>&category=<id>&tag=<tag>
func (h *NoteHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	owner, ok := requestOwner(w, r)
	if !ok {
		return
	}
	query := r.URL.Query()
	notes, err := h.notebooks.ListNotes(r.Context(), owner, model.NoteQuery{
		SearchText: query.Get("q"),
		CategoryID: query.Get("category"),
		Tag:        query.Get("tag"),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, notes)
}

// HandleGet returns one note.
//
// HTTP: GET /api/notes/{id}
func (h *NoteHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	owner, ok := requestOwner(w, r)
	if !ok {
		return
	}
	note, err := h.notebooks.GetNote(r.Context(), owner, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// HandleCreate adds a note.
//
// HTTP: POST /api/notes
// REQUEST BODY: {"title": "...", "content": "...", "categoryId": "...", "tags": ["go"]}
func (h *NoteHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	owner, ok := requestOwner(w, r)
	if !ok {
		return
	}
	var req createNoteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	note, err := h.notebooks.CreateNote(r.Context(), owner, service.NoteInput{
		Title:      req.Title,
		Content:    req.Content,
		Code:       req.Code,
		Category:   req.Category,
		CategoryID: req.CategoryID,
		Tags:       req.Tags,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, note)
}

// HandleUpdate patches a note.
//
// HTTP: PUT /api/notes/{id}
func (h *NoteHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	owner, ok := requestOwner(w, r)
	if !ok {
		return
	}
	var req updateNoteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	patch := model.NotePatch{
		Title:    req.Title,
		Content:  req.Content,
		Code:     req.Code,
		Category: req.Category,
		Tags:     req.Tags,
	}
	note, err := h.notebooks.UpdateNote(r.Context(), owner, chi.URLParam(r, "id"), patch, req.CategoryID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// HandleDelete removes a note. Deleting a missing note still answers 204.
//
// HTTP: DELETE /api/notes/{id}
func (h *NoteHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	owner, ok := requestOwner(w, r)
	if !ok {
		return
	}
	if err := h.notebooks.DeleteNote(r.Context(), owner, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
