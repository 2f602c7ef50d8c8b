package normalize

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/marker"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/strikethrough"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"golang.org/x/net/html"
)

// Code is extracted before the library collapses whitespace and parked on a
// placeholder element until render time.
const (
	tagCodeBlock  = "devnote-code-block"
	tagInlineCode = "devnote-code"
	attrCode      = "data-code"
)

// priorityRules puts the paste rules ahead of the base plugin's node removal
// and of every commonmark renderer.
const priorityRules = converter.PriorityEarly - 10

// rule is one entry of the paste rule table. Rules are tried in order and the
// first whose match reports true owns the node. A rule either rewrites the
// tree before rendering (prepare) or renders the node itself (render).
type rule struct {
	name    string
	match   func(n *html.Node) bool
	prepare func(n *html.Node)
	render  func(ctx converter.Context, w converter.Writer, n *html.Node)
}

type rules struct {
	cfg   Config
	table []rule
}

func newRules(cfg Config) *rules {
	r := &rules{cfg: cfg}
	r.table = []rule{
		{name: "junk", match: isJunk, prepare: remove},
		{name: "gutter", match: isGutter, prepare: remove},
		{name: "code-block", match: isCodeBlock, prepare: park(tagCodeBlock)},
		{name: "inline-code", match: isInlineCode, prepare: park(tagInlineCode)},
		{name: "parked-code", match: isParkedCode, render: r.code},
		{name: "table", match: isTablePart, render: r.tablePart},
		{name: "task-item", match: isTaskItem, render: r.taskItem},
		{name: "heading", match: isHeading, render: r.heading},
		{name: "wrapper", match: isWrapper, render: r.unwrap},
		{name: "single-inline-child", match: hasSingleInlineChild, render: r.flatten},
	}
	return r
}

// newConverter builds the paste converter: the rule table on top of the
// library's commonmark rendering, which covers emphasis, links, images,
// lists, quotes and rules and escapes literal Markdown in text.
func newConverter(cfg Config) *converter.Converter {
	conv := converter.NewConverter(converter.WithPlugins(
		base.NewBasePlugin(),
		commonmark.NewCommonmarkPlugin(
			commonmark.WithEmDelimiter("_"),
			commonmark.WithHorizontalRule("---"),
			commonmark.WithListEndComment(false),
			commonmark.WithLinkEmptyHrefBehavior(commonmark.LinkBehaviorSkip),
			commonmark.WithLinkEmptyContentBehavior(commonmark.LinkBehaviorSkip),
		),
		strikethrough.NewStrikethroughPlugin(),
	))

	r := newRules(cfg)
	conv.Register.PreRenderer(r.prepare, priorityRules)
	conv.Register.Renderer(r.render, priorityRules)
	conv.Register.TagType(tagCodeBlock, converter.TagTypeBlock, priorityRules)
	conv.Register.TagType(tagInlineCode, converter.TagTypeInline, priorityRules)
	// The base plugin drops <input>; task items read their checkboxes.
	conv.Register.TagType("input", converter.TagTypeInline, priorityRules)
	return conv
}

// newFallbackConverter is the stock library conversion with GFM tables, used
// when the paste converter fails.
func newFallbackConverter() *converter.Converter {
	return converter.NewConverter(converter.WithPlugins(
		base.NewBasePlugin(),
		commonmark.NewCommonmarkPlugin(),
		table.NewTablePlugin(),
	))
}

func (r *rules) first(n *html.Node) (rule, bool) {
	if n.Type != html.ElementNode {
		return rule{}, false
	}
	for _, ru := range r.table {
		if ru.match(n) {
			return ru, true
		}
	}
	return rule{}, false
}

// prepare walks the tree top-down. A node owned by a prepare rule is rewritten
// and not descended into; every other node is descended into.
func (r *rules) prepare(_ converter.Context, doc *html.Node) {
	r.walk(doc)
}

func (r *rules) walk(n *html.Node) {
	for ch := n.FirstChild; ch != nil; {
		next := ch.NextSibling
		if ru, ok := r.first(ch); ok && ru.prepare != nil {
			ru.prepare(ch)
		} else {
			r.walk(ch)
		}
		ch = next
	}
}

func (r *rules) render(ctx converter.Context, w converter.Writer, n *html.Node) converter.RenderStatus {
	ru, ok := r.first(n)
	if !ok || ru.render == nil {
		return converter.RenderTryNext
	}
	ru.render(ctx, w, n)
	return converter.RenderSuccess
}

func remove(n *html.Node) {
	n.Parent.RemoveChild(n)
}

// park replaces a code node with a placeholder carrying its extracted text.
func park(tag string) func(n *html.Node) {
	return func(n *html.Node) {
		placeholder := &html.Node{
			Type: html.ElementNode,
			Data: tag,
			Attr: []html.Attribute{{Key: attrCode, Val: extractCode(n)}},
		}
		n.Parent.InsertBefore(placeholder, n)
		n.Parent.RemoveChild(n)
	}
}

// === CODE ===

// code emits nothing for empty code and a fenced block for multi-line code.
// Single-line blocks at or over the inline limit are fenced too; everything
// else becomes an inline span.
func (r *rules) code(_ converter.Context, w converter.Writer, n *html.Node) {
	code := attr(n, attrCode)
	switch {
	case code == "":
	case strings.Contains(code, "\n"),
		n.Data == tagCodeBlock && runeCount(code) >= r.cfg.InlineCodeMaxLength:
		w.WriteString(fencedBlock(code))
	default:
		w.WriteString(inlineSpan(code))
	}
}

// fencedBlock is fenced with the library's code newline marker between code
// lines, so blank lines inside the code survive newline trimming and list
// indentation reaches every line.
func fencedBlock(code string) string {
	fence := codeFence(code)
	body := strings.ReplaceAll(code, "\n", string(marker.BytesMarkerCodeBlockNewline))
	return "\n\n" + fence + "\n" + body + "\n" + fence + "\n\n"
}

// === TABLES ===

func (r *rules) tablePart(ctx converter.Context, w converter.Writer, n *html.Node) {
	switch n.Data {
	case "table":
		fmt.Fprintf(w, "\n\n<table class=%q>\n", r.cfg.TableClass)
		renderElements(ctx, w, n)
		w.WriteString("</table>\n\n")
	case "thead", "tbody", "tfoot":
		w.WriteString("<" + n.Data + ">\n")
		renderElements(ctx, w, n)
		w.WriteString("</" + n.Data + ">\n")
	case "tr":
		w.WriteString("<tr>")
		renderElements(ctx, w, n)
		w.WriteString("</tr>\n")
	case "th", "td", "caption":
		var buf bytes.Buffer
		ctx.RenderChildNodes(ctx, &buf, n)
		cell := strings.ReplaceAll(buf.String(), "**", "")
		cell = lineBreaks.ReplaceAllString(strings.TrimSpace(cell), "<br>")
		w.WriteString("<" + n.Data + spanAttrs(n) + ">" + cell + "</" + n.Data + ">")
	}
	// colgroup and col render nothing.
}

// renderElements renders only element children; whitespace between rows and
// cells is layout.
func renderElements(ctx converter.Context, w converter.Writer, n *html.Node) {
	for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
		if ch.Type == html.ElementNode {
			ctx.RenderNodes(ctx, w, ch)
		}
	}
}

func spanAttrs(n *html.Node) string {
	var b strings.Builder
	for _, key := range []string{"colspan", "rowspan"} {
		if v := attr(n, key); v != "" {
			if _, err := strconv.Atoi(v); err == nil {
				fmt.Fprintf(&b, " %s=%q", key, v)
			}
		}
	}
	return b.String()
}

// === LISTS ===

// taskItem writes "[x] content"; the list container supplies the marker and
// indents continuation lines. An item outside any list gets its own "- ".
func (r *rules) taskItem(ctx converter.Context, w converter.Writer, n *html.Node) {
	mark := " "
	if isChecked(n) {
		mark = "x"
	}
	var buf bytes.Buffer
	for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
		if !isCheckbox(ch) {
			ctx.RenderNodes(ctx, &buf, ch)
		}
	}
	content := blankLines.ReplaceAllString(strings.TrimSpace(buf.String()), "\n")

	if p := n.Parent; p == nil || (p.Data != "ul" && p.Data != "ol") {
		w.WriteString("\n\n- [" + mark + "] " + content + "\n\n")
		return
	}
	w.WriteString("[" + mark + "] " + content)
}

// === HEADINGS & WRAPPERS ===

func (r *rules) heading(ctx converter.Context, w converter.Writer, n *html.Node) {
	var buf bytes.Buffer
	ctx.RenderChildNodes(ctx, &buf, n)
	content := strings.TrimSpace(lineBreaks.ReplaceAllString(buf.String(), " "))
	if content == "" {
		return
	}
	level := int(n.Data[1] - '0')
	w.WriteString("\n\n" + strings.Repeat("#", level) + " " + content + "\n\n")
}

func (r *rules) unwrap(ctx converter.Context, w converter.Writer, n *html.Node) {
	for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
		if !isChrome(ch) {
			ctx.RenderNodes(ctx, w, ch)
		}
	}
}

func (r *rules) flatten(ctx converter.Context, w converter.Writer, n *html.Node) {
	for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
		if ch.Type != html.ElementNode {
			continue
		}
		var buf bytes.Buffer
		ctx.RenderNodes(ctx, &buf, ch)
		w.WriteString("\n" + strings.TrimSpace(buf.String()) + "\n")
		return
	}
}
