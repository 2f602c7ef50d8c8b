package handler

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/sakif/devnote/internal/apperror"
	"github.com/sakif/devnote/internal/service"
)

// TransferHandler handles file import and HTML export.
type TransferHandler struct {
	transfers *service.TransferService
	maxUpload int64
	logger    *slog.Logger
}

// NewTransferHandler creates a TransferHandler accepting uploads of at most
// maxUpload bytes.
func NewTransferHandler(transfers *service.TransferService, maxUpload int64, logger *slog.Logger) *TransferHandler {
	return &TransferHandler{transfers: transfers, maxUpload: maxUpload, logger: logger}
}

// HandleImport stores an uploaded .html, .htm, .docx or .pdf file as a note.
//
// HTTP: POST /api/import (multipart/form-data, field "file")
func (h *TransferHandler) HandleImport(w http.ResponseWriter, r *http.Request) {
	owner, ok := requestOwner(w, r)
	if !ok {
		return
	}

	// Leave room for the multipart envelope around the file itself.
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload+1<<20)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, apperror.ValidationFailed("file",
				fmt.Sprintf("file must be %d MB or less", h.maxUpload>>20)))
			return
		}
		writeError(w, apperror.ValidationFailed("file", "expected a multipart form with a file field"))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, apperror.ValidationFailed("file", "file is required"))
		return
	}
	defer file.Close()

	if header.Size > h.maxUpload {
		writeError(w, apperror.ValidationFailed("file",
			fmt.Sprintf("file must be %d MB or less", h.maxUpload>>20)))
		return
	}
	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, fmt.Errorf("reading upload: %w", err))
		return
	}

	note, err := h.transfers.Import(r.Context(), owner, header.Filename, data)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, note)
}

// HandleExport downloads the notebook as one HTML page.
//
// HTTP: GET /api/export
func (h *TransferHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	owner, ok := requestOwner(w, r)
	if !ok {
		return
	}

	// Render into a buffer so a failure can still become a JSON error.
	var buf bytes.Buffer
	name, err := h.transfers.Export(r.Context(), owner, &buf)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.Warn("export download interrupted", slog.String("error", err.Error()))
	}
}
