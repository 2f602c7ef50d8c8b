package notebook

import (
	"slices"
	"strings"

	"github.com/sakif/devnote/internal/model"
)

// FilterNotes selects notes for q, preserving their order.
//
// A non-empty search text is a global search over title, content and tags
// (case-insensitive); the category and tag filters are ignored. Otherwise
// the category filter keeps notes in the category or any descendant (names
// compared case-insensitively) and the tag filter keeps exact tag matches.
func FilterNotes(notes []model.Note, categories []model.Category, q model.NoteQuery) []model.Note {
	if needle := foldName(q.SearchText); needle != "" {
		return filter(notes, func(n model.Note) bool { return matchesSearch(n, needle) })
	}

	result := notes
	if q.CategoryID != "" && q.CategoryID != RootCategoryID {
		names := subtreeNames(categories, q.CategoryID)
		result = filter(result, func(n model.Note) bool { return names[foldName(n.Category)] })
	}
	if q.Tag != "" {
		result = filter(result, func(n model.Note) bool { return n.HasTag(q.Tag) })
	}
	return slices.Clone(result)
}

func matchesSearch(n model.Note, needle string) bool {
	if strings.Contains(foldName(n.Title), needle) || strings.Contains(foldName(n.Content), needle) {
		return true
	}
	return slices.ContainsFunc(n.Tags, func(t string) bool {
		return strings.Contains(foldName(t), needle)
	})
}

// subtreeNames returns the folded names of categoryID and its descendants.
// An unknown id yields an empty set.
func subtreeNames(categories []model.Category, categoryID string) map[string]bool {
	ids := descendantIDs(categories, categoryID)
	names := make(map[string]bool, len(ids))
	for _, c := range categories {
		if slices.Contains(ids, c.ID) {
			names[foldName(c.Name)] = true
		}
	}
	return names
}

func filter(notes []model.Note, keep func(model.Note) bool) []model.Note {
	out := make([]model.Note, 0, len(notes))
	for _, n := range notes {
		if keep(n) {
			out = append(out, n)
		}
	}
	return out
}

// ListTags returns the distinct tags across notes in ascending order.
func ListTags(notes []model.Note) []string {
	seen := make(map[string]bool)
	tags := []string{}
	for _, n := range notes {
		for _, t := range n.Tags {
			if !seen[t] {
				seen[t] = true
				tags = append(tags, t)
			}
		}
	}
	slices.Sort(tags)
	return tags
}
