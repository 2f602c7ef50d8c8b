package notebook

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"
	"golang.org/x/text/cases"
)

// RootCategoryID is the virtual "show everything" category. It is never
// stored, never a parent, and can be neither renamed nor deleted.
const RootCategoryID = "all"

// OrphanPolicy decides what happens to notes whose category is deleted.
type OrphanPolicy string

const (
	// OrphanKeep leaves the deleted category's name on its notes.
	OrphanKeep OrphanPolicy = "keep"
	// OrphanUncategorized moves those notes to Options.UncategorizedName.
	OrphanUncategorized OrphanPolicy = "uncategorized"
)

// ParseOrphanPolicy validates a policy read from configuration.
func ParseOrphanPolicy(s string) (OrphanPolicy, error) {
	switch p := OrphanPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case OrphanKeep, OrphanUncategorized:
		return p, nil
	case "":
		return OrphanKeep, nil
	}
	return "", fmt.Errorf("notebook: unknown orphan policy %q", s)
}

// Options configures a Store.
type Options struct {
	OrphanPolicy OrphanPolicy
	// UncategorizedName is the bucket for notes without a category.
	UncategorizedName string
	Now               func() time.Time
	NewID             func() string
}

// DefaultOptions keeps orphaned notes as they are and generates xid ids.
func DefaultOptions() Options {
	return Options{
		OrphanPolicy:      OrphanKeep,
		UncategorizedName: "Uncategorized",
		Now:               time.Now,
		NewID:             func() string { return xid.New().String() },
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.OrphanPolicy == "" {
		o.OrphanPolicy = d.OrphanPolicy
	}
	if strings.TrimSpace(o.UncategorizedName) == "" {
		o.UncategorizedName = d.UncategorizedName
	}
	if o.Now == nil {
		o.Now = d.Now
	}
	if o.NewID == nil {
		o.NewID = d.NewID
	}
	return o
}

// foldName is the key under which category names are compared: trimmed and
// Unicode case-folded. A Caser is not safe for concurrent use, so one is
// made per call.
func foldName(name string) string {
	return cases.Fold().String(strings.TrimSpace(name))
}
