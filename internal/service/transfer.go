package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/sakif/devnote/internal/apperror"
	"github.com/sakif/devnote/internal/document"
	"github.com/sakif/devnote/internal/export"
	"github.com/sakif/devnote/internal/model"
	"github.com/sakif/devnote/internal/normalize"
)

// ImportTag marks notes created from an uploaded file.
const ImportTag = "import"

// TransferService moves notebooks in and out: file import and HTML export.
type TransferService struct {
	notebooks  *NotebookService
	normalizer *normalize.Normalizer
	exporter   *export.Exporter
	logger     *slog.Logger
	now        func() time.Time
}

func NewTransferService(notebooks *NotebookService, normalizer *normalize.Normalizer, exporter *export.Exporter, logger *slog.Logger) *TransferService {
	return &TransferService{
		notebooks:  notebooks,
		normalizer: normalizer,
		exporter:   exporter,
		logger:     logger,
		now:        time.Now,
	}
}

// Import converts an uploaded file to Markdown and stores it as a new note
// titled "[Import] <file name>" in the uncategorized bucket.
func (s *TransferService) Import(ctx context.Context, owner, filename string, data []byte) (model.Note, error) {
	name := filepath.Base(strings.TrimSpace(filename))
	kind, err := document.KindOf(name)
	if err != nil {
		return model.Note{}, apperror.ValidationFailed("file",
			"unsupported file type: use .html, .htm, .docx or .pdf")
	}

	content, err := s.extract(kind, data)
	if err != nil {
		if errors.Is(err, document.ErrCorrupt) {
			return model.Note{}, apperror.ValidationFailed("file",
				fmt.Sprintf("could not read %s: the file is damaged or not a %s file", name, kind))
		}
		return model.Note{}, err
	}
	if strings.TrimSpace(content) == "" {
		return model.Note{}, apperror.ValidationFailed("file", "no content could be extracted from the file")
	}
	if err := validateBody(content, ""); err != nil {
		return model.Note{}, err
	}

	note, err := s.notebooks.addNote(ctx, owner, model.Note{
		Title:   "[Import] " + name,
		Content: content,
		Tags:    []string{ImportTag},
	})
	if err != nil {
		return model.Note{}, err
	}

	s.logger.Info("file imported",
		slog.String("owner", owner),
		slog.String("file", name),
		slog.String("kind", string(kind)),
		slog.Int("bytes", len(data)),
		slog.String("id", note.ID),
	)
	return note, nil
}

func (s *TransferService) extract(kind document.Kind, data []byte) (string, error) {
	switch kind {
	case document.KindHTML:
		return s.normalizer.HTML(string(data)), nil
	case document.KindDocx:
		html, err := document.DocxToHTML(data)
		if err != nil {
			return "", err
		}
		return s.normalizer.HTML(html), nil
	case document.KindPDF:
		return document.PDFText(data)
	}
	return "", document.ErrUnsupported
}

// Export writes the owner's notebook as an HTML page and returns the file
// name to offer for download.
func (s *TransferService) Export(ctx context.Context, owner string, w io.Writer) (string, error) {
	snap, err := s.notebooks.Snapshot(ctx, owner)
	if err != nil {
		return "", err
	}
	if err := s.exporter.Render(w, snap); err != nil {
		return "", err
	}
	s.logger.Info("notebook exported",
		slog.String("owner", owner),
		slog.Int("notes", len(snap.Notes)),
	)
	return export.FileName(s.now()), nil
}
