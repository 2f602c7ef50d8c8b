// Package repository defines the storage contracts used by the service layer.
//
// Notebook state is persisted the way the browser build kept it: one string
// value per key, scoped by owner. The service owns encoding; a repository only
// moves opaque values in and out.
package repository

import (
	"context"
)

// State keys. The "_v11" suffix is part of the persisted format; data written
// under these keys stays readable by older exports.
const (
	KeyNotes      = "devnote_data_v11"
	KeyCategories = "devnote_cats_v11"
	KeyViewMode   = "devnote_view_mode_v11"
)

// StateRepository stores per-owner key/value state.
type StateRepository interface {
	// Get returns apperror.ErrNotFound when the owner has no value for key.
	Get(ctx context.Context, owner, key string) (string, error)
	Put(ctx context.Context, owner, key, value string) error
	// PutAll writes every entry atomically.
	PutAll(ctx context.Context, owner string, entries map[string]string) error
	// Owners lists every owner with at least one stored key.
	Owners(ctx context.Context) ([]string, error)
}
