// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (Business layer) → validates, enforces rules, orchestrates
//	Repository (Data layer)  → reads/writes to the database
//
// NotebookService keeps one notebook.Store per owner in memory. The first
// request for an owner loads it from the repository (seeding the welcome
// notebook when nothing is stored); every mutation writes the affected keys
// back before returning and then schedules a cloud push when sync is on.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/sakif/devnote/internal/apperror"
	"github.com/sakif/devnote/internal/model"
	"github.com/sakif/devnote/internal/notebook"
	"github.com/sakif/devnote/internal/repository"
)

// Validation limits.
const (
	MaxTitleLength    = 200
	MaxContentLength  = 1 << 20 // 1 MiB of Markdown
	MaxCodeLength     = 100000
	MaxCategoryLength = 100
)

// ErrSyncDisabled is returned by sync operations when no Syncer is configured.
var ErrSyncDisabled = errors.New("cloud sync is not configured")

// Syncer mirrors snapshots to the cloud. *cloudsync.Syncer implements it.
type Syncer interface {
	Push(ctx context.Context, owner string, snap model.Snapshot) error
	Pull(ctx context.Context, owner string) (model.Snapshot, bool, error)
	Schedule(owner string, snapshot func() (model.Snapshot, error))
}

// NoteInput is a note as submitted by a caller.
//
// CategoryID wins over Category when both are set. With neither, the note
// goes to the uncategorized bucket.
type NoteInput struct {
	Title      string
	Content    string
	Code       string
	Category   string
	CategoryID string
	Tags       []string
}

// NotebookService handles business logic for notes and categories.
type NotebookService struct {
	repo   repository.StateRepository
	opts   notebook.Options
	syncer Syncer
	logger *slog.Logger

	mu    sync.Mutex
	books map[string]*book
}

// book is one owner's cached notebook. mu serialises every operation on it;
// a nil store means "not loaded".
type book struct {
	mu    sync.Mutex
	store *notebook.Store
	view  model.ViewMode
}

// Option configures a NotebookService.
type Option func(*NotebookService)

// WithSyncer enables cloud sync.
func WithSyncer(sy Syncer) Option {
	return func(s *NotebookService) { s.syncer = sy }
}

// NewNotebookService creates a NotebookService.
func NewNotebookService(repo repository.StateRepository, opts notebook.Options, logger *slog.Logger, options ...Option) *NotebookService {
	if opts.Now == nil {
		opts.Now = notebook.DefaultOptions().Now
	}
	s := &NotebookService{
		repo:   repo,
		opts:   opts,
		logger: logger,
		books:  make(map[string]*book),
	}
	for _, o := range options {
		o(s)
	}
	return s
}

// SyncEnabled reports whether a Syncer is configured.
func (s *NotebookService) SyncEnabled() bool {
	return s.syncer != nil
}

// === LOADING & PERSISTENCE ===

// withBook runs fn with the owner's loaded notebook, holding its lock.
func (s *NotebookService) withBook(ctx context.Context, owner string, fn func(b *book) error) error {
	if owner == "" {
		return apperror.ValidationFailed("owner", "owner is required")
	}

	s.mu.Lock()
	b, ok := s.books[owner]
	if !ok {
		b = &book{}
		s.books[owner] = b
	}
	s.mu.Unlock()

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.store == nil {
		if err := s.load(ctx, owner, b); err != nil {
			return err
		}
	}
	return fn(b)
}

// load reads the three state keys. Each key falls back on its own: a missing
// or unreadable notes entry yields the welcome notes even when categories
// were stored. A brand-new owner gets the seed written back immediately.
func (s *NotebookService) load(ctx context.Context, owner string, b *book) error {
	seed := notebook.InitialSnapshot(s.opts.Now())
	snap := model.Snapshot{}
	fresh := true

	notesFound, err := s.readJSON(ctx, owner, repository.KeyNotes, &snap.Notes)
	if err != nil {
		return err
	}
	catsFound, err := s.readJSON(ctx, owner, repository.KeyCategories, &snap.Categories)
	if err != nil {
		return err
	}
	if !notesFound {
		snap.Notes = seed.Notes
	} else {
		fresh = false
	}
	if !catsFound {
		snap.Categories = seed.Categories
	} else {
		fresh = false
	}

	view := model.ViewCompact
	raw, err := s.repo.Get(ctx, owner, repository.KeyViewMode)
	switch {
	case err == nil && model.ViewMode(raw).Valid():
		view = model.ViewMode(raw)
	case err != nil && !errors.Is(err, apperror.ErrNotFound):
		return fmt.Errorf("loading view mode: %w", err)
	}

	b.store = notebook.New(s.opts, snap)
	b.view = view

	if fresh {
		if err := s.persist(ctx, owner, b); err != nil {
			b.store = nil
			return err
		}
		s.logger.Info("notebook seeded", slog.String("owner", owner))
	}
	return nil
}

// readJSON decodes one key into dst. Absent keys report false; corrupt ones
// are logged and also report false so the caller falls back to the seed.
func (s *NotebookService) readJSON(ctx context.Context, owner, key string, dst any) (bool, error) {
	raw, err := s.repo.Get(ctx, owner, key)
	if errors.Is(err, apperror.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("loading %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		s.logger.Warn("stored notebook state is unreadable, using defaults",
			slog.String("owner", owner),
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return false, nil
	}
	return true, nil
}

// persist writes notes and categories in one transaction. On failure the
// cached notebook is dropped so the next request reloads what is stored.
func (s *NotebookService) persist(ctx context.Context, owner string, b *book) error {
	snap := b.store.Snapshot()
	notes, err := json.Marshal(snap.Notes)
	if err != nil {
		return fmt.Errorf("encoding notes: %w", err)
	}
	cats, err := json.Marshal(snap.Categories)
	if err != nil {
		return fmt.Errorf("encoding categories: %w", err)
	}
	err = s.repo.PutAll(ctx, owner, map[string]string{
		repository.KeyNotes:      string(notes),
		repository.KeyCategories: string(cats),
		repository.KeyViewMode:   string(b.view),
	})
	if err != nil {
		b.store = nil
		s.logger.Error("failed to persist notebook",
			slog.String("owner", owner),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("saving notebook: %w", err)
	}
	return nil
}

// mutate runs fn and, if it succeeds, persists and schedules a sync.
func (s *NotebookService) mutate(ctx context.Context, owner string, fn func(st *notebook.Store) error) error {
	return s.withBook(ctx, owner, func(b *book) error {
		if err := fn(b.store); err != nil {
			return err
		}
		if err := s.persist(ctx, owner, b); err != nil {
			return err
		}
		s.scheduleSync(owner)
		return nil
	})
}

func (s *NotebookService) scheduleSync(owner string) {
	if s.syncer == nil {
		return
	}
	s.syncer.Schedule(owner, func() (model.Snapshot, error) {
		return s.Snapshot(context.Background(), owner)
	})
}

// Snapshot returns a copy of the owner's notebook.
func (s *NotebookService) Snapshot(ctx context.Context, owner string) (model.Snapshot, error) {
	var snap model.Snapshot
	err := s.withBook(ctx, owner, func(b *book) error {
		snap = b.store.Snapshot()
		return nil
	})
	return snap, err
}

// === NOTES ===

// ListNotes returns the notes selected by q, newest first.
func (s *NotebookService) ListNotes(ctx context.Context, owner string, q model.NoteQuery) ([]model.Note, error) {
	var notes []model.Note
	err := s.withBook(ctx, owner, func(b *book) error {
		notes = b.store.Filter(q)
		return nil
	})
	return notes, err
}

// GetNote returns one note or apperror.ErrNotFound.
func (s *NotebookService) GetNote(ctx context.Context, owner, id string) (model.Note, error) {
	var note model.Note
	err := s.withBook(ctx, owner, func(b *book) error {
		n, ok := b.store.Note(id)
		if !ok {
			return apperror.NotFound("note", id)
		}
		note = n
		return nil
	})
	return note, err
}

// CreateNote validates and prepends a new note.
func (s *NotebookService) CreateNote(ctx context.Context, owner string, in NoteInput) (model.Note, error) {
	in.Title = strings.TrimSpace(in.Title)
	if err := validateTitle(in.Title); err != nil {
		return model.Note{}, err
	}
	if err := validateBody(in.Content, in.Code); err != nil {
		return model.Note{}, err
	}

	var created model.Note
	err := s.mutate(ctx, owner, func(st *notebook.Store) error {
		category, err := resolveCategory(st, in.CategoryID, in.Category)
		if err != nil {
			return err
		}
		created = st.AddNote(model.Note{
			Title:    in.Title,
			Content:  in.Content,
			Code:     in.Code,
			Category: category,
			Tags:     in.Tags,
		})
		return nil
	})
	if err != nil {
		return model.Note{}, err
	}

	s.logger.Info("note created",
		slog.String("owner", owner),
		slog.String("id", created.ID),
		slog.String("category", created.Category),
	)
	return created, nil
}

// UpdateNote applies the non-nil fields of patch. An empty title is rejected.
// categoryID, when non-empty, replaces patch.Category with that category's name.
func (s *NotebookService) UpdateNote(ctx context.Context, owner, id string, patch model.NotePatch, categoryID string) (model.Note, error) {
	if patch.Title != nil {
		trimmed := strings.TrimSpace(*patch.Title)
		patch.Title = &trimmed
		if err := validateTitle(trimmed); err != nil {
			return model.Note{}, err
		}
	}
	if err := validateBody(deref(patch.Content), deref(patch.Code)); err != nil {
		return model.Note{}, err
	}

	var updated model.Note
	err := s.mutate(ctx, owner, func(st *notebook.Store) error {
		if categoryID != "" || patch.Category != nil {
			name := ""
			if patch.Category != nil {
				name = *patch.Category
			}
			category, err := resolveCategory(st, categoryID, name)
			if err != nil {
				return err
			}
			patch.Category = &category
		}
		n, ok := st.UpdateNote(id, patch)
		if !ok {
			return apperror.NotFound("note", id)
		}
		updated = n
		return nil
	})
	if err != nil {
		return model.Note{}, err
	}

	s.logger.Info("note updated", slog.String("owner", owner), slog.String("id", id))
	return updated, nil
}

// DeleteNote removes a note. Deleting a missing note succeeds.
func (s *NotebookService) DeleteNote(ctx context.Context, owner, id string) error {
	removed := false
	err := s.mutate(ctx, owner, func(st *notebook.Store) error {
		removed = st.DeleteNote(id)
		return nil
	})
	if err == nil && removed {
		s.logger.Info("note deleted", slog.String("owner", owner), slog.String("id", id))
	}
	return err
}

// addNote prepends a fully formed note; used by import.
func (s *NotebookService) addNote(ctx context.Context, owner string, n model.Note) (model.Note, error) {
	var created model.Note
	err := s.mutate(ctx, owner, func(st *notebook.Store) error {
		if n.Category == "" {
			n.Category = st.UncategorizedName()
		}
		created = st.AddNote(n)
		return nil
	})
	return created, err
}

// === VALIDATION ===

func validateTitle(title string) error {
	if title == "" {
		return apperror.ValidationFailed("title", "note title is required")
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return apperror.ValidationFailed("title",
			fmt.Sprintf("note title must be %d characters or less", MaxTitleLength))
	}
	return nil
}

func validateBody(content, code string) error {
	if len(content) > MaxContentLength {
		return apperror.ValidationFailed("content",
			fmt.Sprintf("content must be %d bytes or less", MaxContentLength))
	}
	if len(code) > MaxCodeLength {
		return apperror.ValidationFailed("code",
			fmt.Sprintf("code must be %d characters or less", MaxCodeLength))
	}
	return nil
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// resolveCategory picks the category name a note should carry.
func resolveCategory(st *notebook.Store, categoryID, name string) (string, error) {
	if categoryID != "" && categoryID != notebook.RootCategoryID {
		c, ok := st.Category(categoryID)
		if !ok {
			return "", apperror.ValidationFailed("categoryId",
				fmt.Sprintf("category %q does not exist", categoryID))
		}
		return c.Name, nil
	}
	if name = strings.TrimSpace(name); name != "" {
		return name, nil
	}
	return st.UncategorizedName(), nil
}

// === CATEGORIES ===

// ListCategories returns all categories in stored order.
func (s *NotebookService) ListCategories(ctx context.Context, owner string) ([]model.Category, error) {
	var cats []model.Category
	err := s.withBook(ctx, owner, func(b *book) error {
		cats = b.store.Categories()
		return nil
	})
	return cats, err
}

// CategoryTree returns the category forest with aggregate note counts.
func (s *NotebookService) CategoryTree(ctx context.Context, owner string) (model.CategoryTree, error) {
	var tree model.CategoryTree
	err := s.withBook(ctx, owner, func(b *book) error {
		tree = b.store.Tree()
		return nil
	})
	return tree, err
}

// CreateCategory adds a category under parentID (nil for top level).
func (s *NotebookService) CreateCategory(ctx context.Context, owner, name string, parentID *string) (model.Category, error) {
	if utf8.RuneCountInString(strings.TrimSpace(name)) > MaxCategoryLength {
		return model.Category{}, apperror.ValidationFailed("name",
			fmt.Sprintf("category name must be %d characters or less", MaxCategoryLength))
	}
	var created model.Category
	err := s.mutate(ctx, owner, func(st *notebook.Store) error {
		c, err := st.AddCategory(name, parentID)
		created = c
		return err
	})
	if err != nil {
		return model.Category{}, err
	}
	s.logger.Info("category created",
		slog.String("owner", owner),
		slog.String("id", created.ID),
		slog.String("name", created.Name),
	)
	return created, nil
}

// CategoryChange describes an update to one category. Rename applies first.
type CategoryChange struct {
	Name *string
	// Move is set when ParentID should be applied; a nil ParentID then means
	// "move to top level".
	Move     bool
	ParentID *string
}

// UpdateCategory renames and/or moves a category atomically: if either step
// fails nothing is saved.
func (s *NotebookService) UpdateCategory(ctx context.Context, owner, id string, change CategoryChange) (model.Category, error) {
	if change.Name != nil && utf8.RuneCountInString(strings.TrimSpace(*change.Name)) > MaxCategoryLength {
		return model.Category{}, apperror.ValidationFailed("name",
			fmt.Sprintf("category name must be %d characters or less", MaxCategoryLength))
	}

	var (
		updated model.Category
		touched int
	)
	err := s.withBook(ctx, owner, func(b *book) error {
		// Work on a copy so a failed move leaves a successful rename unapplied.
		work := notebook.New(s.opts, b.store.Snapshot())
		if change.Name != nil {
			n, err := work.RenameCategory(id, *change.Name)
			if err != nil {
				return err
			}
			touched = n
		}
		if change.Move {
			if err := work.MoveCategory(id, change.ParentID); err != nil {
				return err
			}
		}
		c, ok := work.Category(id)
		if !ok {
			return apperror.NotFound("category", id)
		}
		b.store = work
		if err := s.persist(ctx, owner, b); err != nil {
			return err
		}
		s.scheduleSync(owner)
		updated = c
		return nil
	})
	if err != nil {
		return model.Category{}, err
	}

	s.logger.Info("category updated",
		slog.String("owner", owner),
		slog.String("id", id),
		slog.String("name", updated.Name),
		slog.Int("notes_renamed", touched),
	)
	return updated, nil
}

// DeleteCategory removes a category and reports how many notes the orphan
// policy moved.
func (s *NotebookService) DeleteCategory(ctx context.Context, owner, id string) (int, error) {
	moved := 0
	err := s.mutate(ctx, owner, func(st *notebook.Store) error {
		n, err := st.DeleteCategory(id)
		moved = n
		return err
	})
	if err != nil {
		return 0, err
	}
	s.logger.Info("category deleted",
		slog.String("owner", owner),
		slog.String("id", id),
		slog.Int("notes_moved", moved),
	)
	return moved, nil
}

// === VIEWS ===

// Tags lists the distinct tags in ascending order.
func (s *NotebookService) Tags(ctx context.Context, owner string) ([]string, error) {
	var tags []string
	err := s.withBook(ctx, owner, func(b *book) error {
		tags = b.store.Tags()
		return nil
	})
	return tags, err
}

// ViewMode returns the owner's list display mode.
func (s *NotebookService) ViewMode(ctx context.Context, owner string) (model.ViewMode, error) {
	var mode model.ViewMode
	err := s.withBook(ctx, owner, func(b *book) error {
		mode = b.view
		return nil
	})
	return mode, err
}

// SetViewMode stores the display mode. It is not synced.
func (s *NotebookService) SetViewMode(ctx context.Context, owner string, mode model.ViewMode) error {
	if !mode.Valid() {
		return apperror.ValidationFailed("mode",
			fmt.Sprintf("view mode must be %q or %q", model.ViewCompact, model.ViewDetailed))
	}
	return s.withBook(ctx, owner, func(b *book) error {
		if err := s.repo.Put(ctx, owner, repository.KeyViewMode, string(mode)); err != nil {
			return fmt.Errorf("saving view mode: %w", err)
		}
		b.view = mode
		return nil
	})
}

// === SYNC ===

// PushNow sends the owner's notebook to the cloud immediately.
func (s *NotebookService) PushNow(ctx context.Context, owner string) error {
	if s.syncer == nil {
		return ErrSyncDisabled
	}
	snap, err := s.Snapshot(ctx, owner)
	if err != nil {
		return err
	}
	if err := s.syncer.Push(ctx, owner, snap); err != nil {
		return fmt.Errorf("pushing notebook: %w", err)
	}
	s.logger.Info("notebook pushed", slog.String("owner", owner))
	return nil
}

// Pull replaces the local notes and/or categories with the cloud copy. A
// field missing from the cloud document keeps its local value. It reports
// false when the cloud holds nothing for the owner.
func (s *NotebookService) Pull(ctx context.Context, owner string) (bool, error) {
	if s.syncer == nil {
		return false, ErrSyncDisabled
	}
	remote, ok, err := s.syncer.Pull(ctx, owner)
	if err != nil {
		return false, fmt.Errorf("pulling notebook: %w", err)
	}
	if !ok {
		return false, nil
	}

	err = s.withBook(ctx, owner, func(b *book) error {
		local := b.store.Snapshot()
		if remote.Notes != nil {
			local.Notes = remote.Notes
		}
		if remote.Categories != nil {
			local.Categories = remote.Categories
		}
		b.store = notebook.New(s.opts, local)
		return s.persist(ctx, owner, b)
	})
	if err != nil {
		return false, err
	}
	s.logger.Info("notebook pulled",
		slog.String("owner", owner),
		slog.Int("notes", len(remote.Notes)),
		slog.Int("categories", len(remote.Categories)),
	)
	return true, nil
}
