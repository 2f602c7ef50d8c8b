package model

// Category is a node in the category forest.
// ParentID is nil for top-level categories.
type Category struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	ParentID *string `json:"parentId"`
}

// IsTopLevel reports whether the category has no parent.
func (c Category) IsTopLevel() bool {
	return c.ParentID == nil || *c.ParentID == ""
}

// CategoryNode is a category placed in the derived tree.
//
// DirectCount counts notes whose category name matches this node
// (case-insensitive); TotalCount adds the TotalCount of every child.
type CategoryNode struct {
	Category
	DirectCount int             `json:"directCount"`
	TotalCount  int             `json:"totalCount"`
	Children    []*CategoryNode `json:"children"`
}

// CategoryTree is the derived forest plus the number of notes overall.
type CategoryTree struct {
	Roots      []*CategoryNode `json:"roots"`
	TotalNotes int             `json:"totalNotes"`
}

// ViewMode is the persisted list presentation flag.
type ViewMode string

const (
	ViewCompact  ViewMode = "compact"
	ViewDetailed ViewMode = "detailed"
)

// Valid reports whether m is a known view mode.
func (m ViewMode) Valid() bool {
	return m == ViewCompact || m == ViewDetailed
}

// Snapshot is a self-contained copy of a notebook's state.
type Snapshot struct {
	Notes      []Note     `json:"snippets"`
	Categories []Category `json:"categories"`
}
