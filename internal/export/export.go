// Package export renders a notebook as one self-contained HTML page.
//
// Categories are listed in locale-aware alphabetical order, each with its
// notes in notebook order. Categories without notes are left out. Notes whose
// category matches no stored category are gathered under the uncategorized
// section at the end.
package export

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/gosimple/slug"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"
	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/sakif/devnote/internal/model"
)

// FileName is the download name for an export made at t.
func FileName(t time.Time) string {
	return "DevNote_Export_" + t.Format("2006-01-02") + ".html"
}

// Options configures an Exporter.
type Options struct {
	Title             string
	UncategorizedName string
	// Language drives the category sort order.
	Language language.Tag
}

// DefaultOptions sorts with the root collation.
func DefaultOptions() Options {
	return Options{
		Title:             "DevNote Export",
		UncategorizedName: "Uncategorized",
		Language:          language.Und,
	}
}

// Exporter renders snapshots. It is safe for concurrent use.
type Exporter struct {
	opts Options
	md   goldmark.Markdown
}

// New creates an Exporter. Raw HTML in note content is passed through so the
// normalizer's tables survive.
func New(opts Options) *Exporter {
	return &Exporter{
		opts: opts,
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(gmhtml.WithUnsafe()),
		),
	}
}

type page struct {
	Title    string
	Sections []section
}

type section struct {
	Anchor string
	Name   string
	Notes  []entry
}

type entry struct {
	Title   string
	Content template.HTML
	Code    string
}

// Render writes the export document for snap to w.
func (e *Exporter) Render(w io.Writer, snap model.Snapshot) error {
	p, err := e.build(snap)
	if err != nil {
		return err
	}
	if err := pageTemplate.Execute(w, p); err != nil {
		return fmt.Errorf("export: executing template: %w", err)
	}
	return nil
}

func (e *Exporter) build(snap model.Snapshot) (page, error) {
	fold := cases.Fold()
	byName := make(map[string][]model.Note)
	for _, n := range snap.Notes {
		key := fold.String(strings.TrimSpace(n.Category))
		byName[key] = append(byName[key], n)
	}

	cats := make([]model.Category, 0, len(snap.Categories))
	for _, c := range snap.Categories {
		if c.ID != "all" {
			cats = append(cats, c)
		}
	}
	// A Collator keeps internal buffers, so each render sorts with its own.
	col := collate.New(e.opts.Language, collate.IgnoreCase)
	col.Sort(categoryList(cats))

	p := page{Title: e.opts.Title}
	anchors := map[string]int{}
	for _, c := range cats {
		key := fold.String(strings.TrimSpace(c.Name))
		notes := byName[key]
		delete(byName, key)
		if len(notes) == 0 {
			continue
		}
		s, err := e.section(c.Name, notes, anchors)
		if err != nil {
			return page{}, err
		}
		p.Sections = append(p.Sections, s)
	}

	// Leftovers keep notebook order.
	var rest []model.Note
	for _, n := range snap.Notes {
		if _, ok := byName[fold.String(strings.TrimSpace(n.Category))]; ok {
			rest = append(rest, n)
		}
	}
	if len(rest) > 0 {
		s, err := e.section(e.opts.UncategorizedName, rest, anchors)
		if err != nil {
			return page{}, err
		}
		p.Sections = append(p.Sections, s)
	}
	return p, nil
}

// categoryList adapts a category slice to collate.Lister.
type categoryList []model.Category

func (l categoryList) Len() int           { return len(l) }
func (l categoryList) Swap(i, j int)      { l[i], l[j] = l[j], l[i] }
func (l categoryList) Bytes(i int) []byte { return []byte(l[i].Name) }

func (e *Exporter) section(name string, notes []model.Note, anchors map[string]int) (section, error) {
	s := section{Name: name, Anchor: anchor(name, anchors)}
	for _, n := range notes {
		var buf bytes.Buffer
		if err := e.md.Convert([]byte(n.Content), &buf); err != nil {
			return section{}, fmt.Errorf("export: rendering note %s: %w", n.ID, err)
		}
		s.Notes = append(s.Notes, entry{
			Title:   n.Title,
			Content: template.HTML(buf.String()),
			Code:    n.Code,
		})
	}
	return s, nil
}

// anchor returns a unique slug for a section heading.
func anchor(name string, used map[string]int) string {
	base := slug.Make(name)
	if base == "" {
		base = "category"
	}
	used[base]++
	if used[base] == 1 {
		return base
	}
	return base + "-" + strconv.Itoa(used[base])
}

var pageTemplate = template.Must(template.New("export").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body{font-family:sans-serif;max-width:960px;margin:0 auto;padding:0 16px;}
pre{background:#f4f5f7;padding:10px;overflow-x:auto;}
table{border-collapse:collapse;}
th,td{border:1px solid #dfe1e6;padding:4px 8px;}
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<nav><ul>
{{- range .Sections}}
<li><a href="#{{.Anchor}}">{{.Name}}</a> ({{len .Notes}})</li>
{{- end}}
</ul></nav>
{{- range .Sections}}
<h2 id="{{.Anchor}}">{{.Name}}</h2>
{{- range .Notes}}
<div class="note"><h3>{{.Title}}</h3><div>{{.Content}}</div>
{{- if .Code}}<div><strong>Code:</strong><pre>{{.Code}}</pre></div>{{end -}}
</div><hr/>
{{- end}}
{{- end}}
</body>
</html>
`))
