package notebook

import (
	"time"

	"github.com/sakif/devnote/internal/model"
)

// InitialSnapshot is the notebook a new owner starts with.
func InitialSnapshot(now time.Time) model.Snapshot {
	return model.Snapshot{
		Notes: []model.Note{
			{
				ID:       "1",
				Title:    "Welcome to DevNote",
				Category: "Welcome",
				Content: "Paste rich text from a wiki page, a chat window or an IDE and it is stored as Markdown.\n\n" +
					"**Tips:**\n" +
					"- Categories nest; counts include every sub-category\n" +
					"- Search looks at titles, content and tags across all categories",
				Tags:      []string{"Tutorial"},
				CreatedAt: now,
			},
		},
		Categories: []model.Category{
			{ID: "cat_welcome", Name: "Welcome"},
			{ID: "cat_dev", Name: "Development"},
			{ID: "cat_front", Name: "Frontend", ParentID: strPtr("cat_dev")},
			{ID: "cat_back", Name: "Backend", ParentID: strPtr("cat_dev")},
		},
	}
}
