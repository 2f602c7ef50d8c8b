// Package model defines the data structures shared by the notebook layers.
//
// The JSON tags match the persisted layout (devnote_data_v11 /
// devnote_cats_v11), so a stored collection round-trips through these structs
// without a separate wire type.
package model

import "time"

// Note is a stored developer note.
//
// Category holds the category NAME, not its id. Renaming a category rewrites
// this field on every note that carried the old name.
type Note struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Code      string    `json:"code"`
	Category  string    `json:"category"`
	Tags      []string  `json:"tags"`
	CreatedAt time.Time `json:"createdAt"`
}

// HasTag reports whether tag is one of the note's tags (exact match).
func (n Note) HasTag(tag string) bool {
	for _, t := range n.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// NotePatch carries the mutable fields of a note. Nil fields are left as-is.
type NotePatch struct {
	Title    *string  `json:"title,omitempty"`
	Content  *string  `json:"content,omitempty"`
	Code     *string  `json:"code,omitempty"`
	Category *string  `json:"category,omitempty"`
	Tags     []string `json:"tags,omitempty"`
}

// NoteQuery selects notes for display.
//
// A non-empty SearchText makes the query global: CategoryID and Tag are ignored.
type NoteQuery struct {
	SearchText string
	CategoryID string
	Tag        string
}
