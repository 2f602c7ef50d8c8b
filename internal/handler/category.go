package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/devnote/internal/apperror"
	"github.com/sakif/devnote/internal/service"
)

// CategoryHandler exposes the category list, tree and mutations.
type CategoryHandler struct {
	notebooks *service.NotebookService
	logger    *slog.Logger
}

func NewCategoryHandler(notebooks *service.NotebookService, logger *slog.Logger) *CategoryHandler {
	return &CategoryHandler{notebooks: notebooks, logger: logger}
}

type createCategoryRequest struct {
	Name     string  `json:"name" validate:"required,max=100"`
	ParentID *string `json:"parentId"`
}

// updateCategoryRequest renames when name is present and moves when parentId
// is present; "parentId": null moves the category to the top level.
type updateCategoryRequest struct {
	Name     *string        `json:"name" validate:"omitempty,max=100"`
	ParentID optionalString `json:"parentId"`
}

type deleteCategoryResponse struct {
	NotesMoved int `json:"notesMoved"`
}

// HandleList returns all categories.
//
// HTTP: GET /api/categories
func (h *CategoryHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	owner, ok := requestOwner(w, r)
	if !ok {
		return
	}
	cats, err := h.notebooks.ListCategories(r.Context(), owner)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cats)
}

// HandleTree returns the category forest with note counts.
//
// HTTP: GET /api/categories/tree
func (h *CategoryHandler) HandleTree(w http.ResponseWriter, r *http.Request) {
	owner, ok := requestOwner(w, r)
	if !ok {
		return
	}
	tree, err := h.notebooks.CategoryTree(r.Context(), owner)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tree)
}

// HandleCreate adds a category.
//
// HTTP: POST /api/categories
// REQUEST BODY: {"name": "Go", "parentId": "cat_back"}
func (h *CategoryHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	owner, ok := requestOwner(w, r)
	if !ok {
		return
	}
	var req createCategoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	c, err := h.notebooks.CreateCategory(r.Context(), owner, req.Name, req.ParentID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// HandleUpdate renames and/or moves a category.
//
// HTTP: PUT /api/categories/{id}
// REQUEST BODY: {"name": "Server"} | {"parentId": "cat_dev"} | {"parentId": null}
func (h *CategoryHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	owner, ok := requestOwner(w, r)
	if !ok {
		return
	}
	var req updateCategoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Name == nil && !req.ParentID.Set {
		writeError(w, apperror.ValidationFailed("body", "name or parentId is required"))
		return
	}
	c, err := h.notebooks.UpdateCategory(r.Context(), owner, chi.URLParam(r, "id"), service.CategoryChange{
		Name:     req.Name,
		Move:     req.ParentID.Set,
		ParentID: req.ParentID.Value,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// HandleDelete removes a category and reports how many notes were moved.
//
// HTTP: DELETE /api/categories/{id}
func (h *CategoryHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	owner, ok := requestOwner(w, r)
	if !ok {
		return
	}
	moved, err := h.notebooks.DeleteCategory(r.Context(), owner, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, deleteCategoryResponse{NotesMoved: moved})
}
