// Package document turns uploaded office documents into inputs for the
// normalizer: DOCX files become HTML, PDF files become plain text.
package document

import (
	"errors"
	"path/filepath"
	"strings"
)

// Kind is an importable file type.
type Kind string

const (
	KindHTML Kind = "html"
	KindDocx Kind = "docx"
	KindPDF  Kind = "pdf"
)

var (
	// ErrUnsupported is returned for file types that cannot be imported.
	ErrUnsupported = errors.New("document: unsupported file type")
	// ErrCorrupt is returned when a file has the right extension but cannot be read.
	ErrCorrupt = errors.New("document: unreadable file")
)

// KindOf picks the Kind from a file name's extension, case-insensitively.
func KindOf(filename string) (Kind, error) {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), ".")) {
	case "html", "htm":
		return KindHTML, nil
	case "docx":
		return KindDocx, nil
	case "pdf":
		return KindPDF, nil
	}
	return "", ErrUnsupported
}
