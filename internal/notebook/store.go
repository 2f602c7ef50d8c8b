// Package notebook holds the note/category state of one owner and the
// derived views over it: the category tree with aggregate counts, filtered
// note lists and the tag index.
//
// STATE OWNERSHIP:
// A Store has a single writer. It does no locking of its own; callers that
// share a Store between goroutines (the service layer) serialise access.
// Everything a Store hands out is a copy, so callers never alias its slices.
//
// The derived views are also exported as pure functions (BuildTree,
// FilterNotes, ListTags) over plain slices.
package notebook

import (
	"slices"
	"strings"
	"time"

	"github.com/jinzhu/copier"

	"github.com/sakif/devnote/internal/apperror"
	"github.com/sakif/devnote/internal/model"
)

// Store is an explicitly owned notebook.
type Store struct {
	opts       Options
	notes      []model.Note
	categories []model.Category
}

// New creates a Store from a snapshot. A stored "all" pseudo-category is
// dropped; it only ever existed as a UI row.
func New(opts Options, snap model.Snapshot) *Store {
	snap = cloneSnapshot(snap)
	s := &Store{
		opts:  opts.withDefaults(),
		notes: snap.Notes,
	}
	for _, c := range snap.Categories {
		if c.ID == RootCategoryID {
			continue
		}
		if c.ParentID != nil && (*c.ParentID == "" || *c.ParentID == RootCategoryID) {
			c.ParentID = nil
		}
		s.categories = append(s.categories, c)
	}
	if s.notes == nil {
		s.notes = []model.Note{}
	}
	if s.categories == nil {
		s.categories = []model.Category{}
	}
	return s
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() model.Snapshot {
	snap := cloneSnapshot(model.Snapshot{Notes: s.notes, Categories: s.categories})
	if snap.Notes == nil {
		snap.Notes = []model.Note{}
	}
	if snap.Categories == nil {
		snap.Categories = []model.Category{}
	}
	return snap
}

// Notes returns a copy of all notes, newest first.
func (s *Store) Notes() []model.Note {
	return s.Snapshot().Notes
}

// Categories returns a copy of all real categories.
func (s *Store) Categories() []model.Category {
	return s.Snapshot().Categories
}

// Note returns the note with the given id.
func (s *Store) Note(id string) (model.Note, bool) {
	i := s.noteIndex(id)
	if i < 0 {
		return model.Note{}, false
	}
	return cloneNote(s.notes[i]), true
}

// Category returns the category with the given id.
func (s *Store) Category(id string) (model.Category, bool) {
	i := s.categoryIndex(id)
	if i < 0 {
		return model.Category{}, false
	}
	c := s.categories[i]
	c.ParentID = clonePtr(c.ParentID)
	return c, true
}

// === NOTES ===

// AddNote prepends n, assigning an id and creation time when absent.
func (s *Store) AddNote(n model.Note) model.Note {
	if n.ID == "" {
		n.ID = s.opts.NewID()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = s.opts.Now()
	}
	n.Tags = NormalizeTags(n.Tags)
	s.notes = slices.Insert(s.notes, 0, n)
	return cloneNote(n)
}

// UpdateNote applies patch to the note with the given id. It reports whether
// the note exists; id and creation time never change.
func (s *Store) UpdateNote(id string, patch model.NotePatch) (model.Note, bool) {
	i := s.noteIndex(id)
	if i < 0 {
		return model.Note{}, false
	}
	n := &s.notes[i]
	if patch.Title != nil {
		n.Title = *patch.Title
	}
	if patch.Content != nil {
		n.Content = *patch.Content
	}
	if patch.Code != nil {
		n.Code = *patch.Code
	}
	if patch.Category != nil {
		n.Category = *patch.Category
	}
	if patch.Tags != nil {
		n.Tags = NormalizeTags(patch.Tags)
	}
	return cloneNote(*n), true
}

// DeleteNote removes the note with the given id. Deleting a missing note is
// a no-op; the result reports whether anything was removed.
func (s *Store) DeleteNote(id string) bool {
	i := s.noteIndex(id)
	if i < 0 {
		return false
	}
	s.notes = slices.Delete(s.notes, i, i+1)
	return true
}

// === CATEGORIES ===

// AddCategory creates a category. Names are unique case-insensitively.
// A nil parentID (or the root id) creates a top-level category.
func (s *Store) AddCategory(name string, parentID *string) (model.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Category{}, apperror.ValidationFailed("name", "category name is required")
	}
	if s.nameTaken(name, "") {
		return model.Category{}, apperror.AlreadyExists("category", "name", name)
	}
	parent, err := s.resolveParent(parentID)
	if err != nil {
		return model.Category{}, err
	}

	c := model.Category{ID: s.opts.NewID(), Name: name, ParentID: parent}
	s.categories = append(s.categories, c)
	c.ParentID = clonePtr(c.ParentID)
	return c, nil
}

// RenameCategory renames a category and rewrites the category of every note
// that carried the old name. Renaming to the current name is a no-op. It
// returns the number of notes rewritten.
func (s *Store) RenameCategory(id, newName string) (int, error) {
	if id == RootCategoryID {
		return 0, apperror.Forbidden("the root category cannot be renamed")
	}
	i := s.categoryIndex(id)
	if i < 0 {
		return 0, apperror.NotFound("category", id)
	}
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return 0, apperror.ValidationFailed("name", "category name is required")
	}
	oldName := s.categories[i].Name
	if newName == oldName {
		return 0, nil
	}
	if s.nameTaken(newName, id) {
		return 0, apperror.AlreadyExists("category", "name", newName)
	}

	moved := 0
	for j := range s.notes {
		if s.notes[j].Category == oldName {
			s.notes[j].Category = newName
			moved++
		}
	}
	s.categories[i].Name = newName
	return moved, nil
}

// MoveCategory re-parents a category. Moving a category under itself or one
// of its descendants is rejected.
func (s *Store) MoveCategory(id string, parentID *string) error {
	if id == RootCategoryID {
		return apperror.Forbidden("the root category cannot be moved")
	}
	i := s.categoryIndex(id)
	if i < 0 {
		return apperror.NotFound("category", id)
	}
	parent, err := s.resolveParent(parentID)
	if err != nil {
		return err
	}
	if parent != nil && slices.Contains(descendantIDs(s.categories, id), *parent) {
		return apperror.ValidationFailed("parentId",
			"a category cannot be moved under itself or one of its descendants")
	}
	s.categories[i].ParentID = parent
	return nil
}

// DeleteCategory removes a category. Its direct children move up to its
// parent. Notes naming it are kept or moved to the uncategorized bucket
// depending on the orphan policy; it returns how many notes were moved.
func (s *Store) DeleteCategory(id string) (int, error) {
	if id == RootCategoryID {
		return 0, apperror.Forbidden("the root category cannot be deleted")
	}
	i := s.categoryIndex(id)
	if i < 0 {
		return 0, apperror.NotFound("category", id)
	}
	deleted := s.categories[i]
	s.categories = slices.Delete(s.categories, i, i+1)

	for j := range s.categories {
		if p := s.categories[j].ParentID; p != nil && *p == id {
			s.categories[j].ParentID = clonePtr(deleted.ParentID)
		}
	}

	if s.opts.OrphanPolicy != OrphanUncategorized {
		return 0, nil
	}
	key := foldName(deleted.Name)
	moved := 0
	for j := range s.notes {
		if foldName(s.notes[j].Category) == key {
			s.notes[j].Category = s.opts.UncategorizedName
			moved++
		}
	}
	return moved, nil
}

// === VIEWS ===

// Tree returns the category forest with aggregate note counts.
func (s *Store) Tree() model.CategoryTree {
	return BuildTree(s.categories, s.notes, s.opts.UncategorizedName)
}

// Filter returns the notes selected by q.
func (s *Store) Filter(q model.NoteQuery) []model.Note {
	matched := FilterNotes(s.notes, s.categories, q)
	out := make([]model.Note, len(matched))
	for i, n := range matched {
		out[i] = cloneNote(n)
	}
	return out
}

// Tags returns every distinct tag, sorted.
func (s *Store) Tags() []string {
	return ListTags(s.notes)
}

// UncategorizedName is the bucket used for notes without a category.
func (s *Store) UncategorizedName() string {
	return s.opts.UncategorizedName
}

// === HELPERS ===

func (s *Store) noteIndex(id string) int {
	return slices.IndexFunc(s.notes, func(n model.Note) bool { return n.ID == id })
}

func (s *Store) categoryIndex(id string) int {
	return slices.IndexFunc(s.categories, func(c model.Category) bool { return c.ID == id })
}

// nameTaken reports whether another category (not exceptID) already uses name.
func (s *Store) nameTaken(name, exceptID string) bool {
	key := foldName(name)
	return slices.ContainsFunc(s.categories, func(c model.Category) bool {
		return c.ID != exceptID && foldName(c.Name) == key
	})
}

// resolveParent maps the root id and "" to top level and checks that any
// other parent exists.
func (s *Store) resolveParent(parentID *string) (*string, error) {
	if parentID == nil {
		return nil, nil
	}
	id := strings.TrimSpace(*parentID)
	if id == "" || id == RootCategoryID {
		return nil, nil
	}
	if s.categoryIndex(id) < 0 {
		return nil, apperror.NotFound("category", id)
	}
	return &id, nil
}

// NormalizeTags trims tags, drops empty ones and collapses duplicates,
// keeping first-seen order.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// SplitTags parses a comma-separated tag field.
func SplitTags(field string) []string {
	return NormalizeTags(strings.Split(field, ","))
}

// timeAsValue copies time.Time by value instead of walking its unexported fields.
var timeAsValue = copier.TypeConverter{
	SrcType: time.Time{},
	DstType: time.Time{},
	Fn:      func(src any) (any, error) { return src, nil },
}

func cloneSnapshot(src model.Snapshot) model.Snapshot {
	var dst model.Snapshot
	opt := copier.Option{DeepCopy: true, Converters: []copier.TypeConverter{timeAsValue}}
	if err := copier.CopyWithOption(&dst, &src, opt); err != nil {
		// copier only fails on mismatched kinds, which identical types never are.
		panic(err)
	}
	return dst
}

func cloneNote(n model.Note) model.Note {
	n.Tags = slices.Clone(n.Tags)
	return n
}

func clonePtr(p *string) *string {
	if p == nil {
		return nil
	}
	return strPtr(*p)
}

func strPtr(s string) *string {
	return &s
}
