// Package cloudsync mirrors a notebook to a remote document store.
//
// A document is a JSON object addressed by a slash-separated path such as
// "users/<owner>". Writes either replace the document or merge into it; a
// merge overlays top-level fields and keeps the rest.
package cloudsync

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Document is a JSON object.
type Document map[string]any

// SetOptions controls a write.
type SetOptions struct {
	// Merge overlays the written fields onto the stored document instead of
	// replacing it.
	Merge bool
}

// DocumentStore is the remote side of sync.
type DocumentStore interface {
	// Get returns false when no document exists at path.
	Get(ctx context.Context, path string) (Document, bool, error)
	Set(ctx context.Context, path string, doc Document, opts SetOptions) error
}

// overlay returns base with every top-level field of doc applied.
func overlay(base, doc Document) Document {
	out := make(Document, len(base)+len(doc))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range doc {
		out[k] = v
	}
	return out
}

// MemoryStore is an in-process DocumentStore for tests and local runs.
// Documents are stored encoded, so callers never share values with it.
type MemoryStore struct {
	mu   sync.Mutex
	docs map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string][]byte)}
}

func (m *MemoryStore) Get(_ context.Context, path string) (Document, bool, error) {
	m.mu.Lock()
	raw, ok := m.docs[path]
	m.mu.Unlock()
	if !ok {
		return nil, false, nil
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, false, fmt.Errorf("cloudsync: decoding %s: %w", path, err)
	}
	return doc, true, nil
}

func (m *MemoryStore) Set(ctx context.Context, path string, doc Document, opts SetOptions) error {
	if opts.Merge {
		existing, ok, err := m.Get(ctx, path)
		if err != nil {
			return err
		}
		if ok {
			doc = overlay(existing, doc)
		}
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("cloudsync: encoding %s: %w", path, err)
	}
	m.mu.Lock()
	m.docs[path] = raw
	m.mu.Unlock()
	return nil
}
