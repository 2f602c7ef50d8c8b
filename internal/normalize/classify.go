package normalize

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

var (
	lineBreaks = regexp.MustCompile(`[ \t]*\n+[ \t]*`)
	blankLines = regexp.MustCompile(`\n[ \t]*\n+`)
)

var junkTags = set("style", "script", "noscript", "meta", "button", "svg", "path",
	"head", "title", "link", "template", "iframe", "object")

var gutterClasses = set("gutter", "line-numbers-rows", "linenos", "lineno",
	"line-number", "linenumber", "rd-line-number", "hljs-ln-numbers")

var codeClasses = set("code-content", "code-block", "code", "syntaxhighlighter",
	"syntaxhighlighter-pre", "highlight", "codehilite", "sourcecode", "hljs", "prettyprint")

var codeContainerTags = set("div", "pre", "figure", "table")

var inlineCodeTags = set("code", "tt", "kbd", "samp")

var monoFonts = []string{"mono", "consolas", "courier", "menlo", "monaco"}

// codeBackgrounds are the inline-code background colours of common rich-text
// editors, normalised to lowercase without spaces.
var codeBackgrounds = set(
	"rgb(244,245,247)", "#f4f5f7", // Confluence
	"rgb(246,248,250)", "#f6f8fa", // GitHub
	"rgba(175,184,193,0.2)",
	"rgb(240,240,240)", "#f0f0f0",
	"rgb(245,245,245)", "#f5f5f5",
	"rgb(249,242,244)", "#f9f2f4", // Bootstrap
)

var wrapperClasses = set("content-wrapper", "wiki-content", "innercell", "inline-display",
	"display-inline", "anchor-link", "heading-anchor", "confluence-anchor-link",
	"code-toolbar", "code-block-wrapper", "code-editor", "cm-editor")

var chromeClasses = set("code-header", "code-block-header", "code-toolbar-header",
	"copy-code-button", "copy-button", "code-copy")

var codeLineTags = set("div", "p", "tr", "li", "td", "th", "pre",
	"h1", "h2", "h3", "h4", "h5", "h6")

var (
	lineClass      = set("line")
	codeSpanClass  = set("code")
	taskClasses    = set("task-list-item", "checklist-item")
	checkedClasses = set("checked", "is-checked")
	headingTags    = set("h1", "h2", "h3", "h4", "h5", "h6")
	tableTags      = set("table", "thead", "tbody", "tfoot", "tr", "th", "td", "caption", "colgroup", "col")
)

var inlineTags = set(tagInlineCode, "a", "code", "tt", "kbd", "samp", "span", "strong", "b", "em", "i",
	"del", "s", "strike", "img", "mark", "u", "sub", "sup", "abbr", "cite", "small")

func set(items ...string) map[string]bool {
	m := make(map[string]bool, len(items))
	for _, it := range items {
		m[it] = true
	}
	return m
}

func isElement(n *html.Node, tags map[string]bool) bool {
	return n.Type == html.ElementNode && tags[n.Data]
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if a.Key == key {
			return true
		}
	}
	return false
}

func classes(n *html.Node) []string {
	return strings.Fields(strings.ToLower(attr(n, "class")))
}

func hasClassIn(n *html.Node, names map[string]bool) bool {
	for _, c := range classes(n) {
		if names[c] {
			return true
		}
	}
	return false
}

// style returns the value of one inline CSS property, lowercased with
// whitespace removed.
func style(n *html.Node, property string) string {
	for _, decl := range strings.Split(attr(n, "style"), ";") {
		name, value, ok := strings.Cut(decl, ":")
		if !ok || !strings.EqualFold(strings.TrimSpace(name), property) {
			continue
		}
		return strings.ToLower(strings.Join(strings.Fields(value), ""))
	}
	return ""
}

// === PREDICATES ===

func isJunk(n *html.Node) bool {
	return isElement(n, junkTags)
}

// isGutter matches line-number columns. A bare "line" cell counts only when
// it holds nothing but digits.
func isGutter(n *html.Node) bool {
	if n.Type != html.ElementNode || n.Data == "pre" || hasCodeMarkup(n) {
		return false
	}
	if hasClassIn(n, gutterClasses) {
		return true
	}
	return n.Data == "td" && hasClassIn(n, lineClass) && isDigits(textContent(n))
}

func isDigits(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	for _, r := range s {
		if (r < '0' || r > '9') && r != '\n' && r != ' ' {
			return false
		}
	}
	return true
}

// isCodeBlock matches syntax-highlighted containers. A container holding
// editor chrome (a header bar, a copy button) is the editor's own wrapper and
// is left to the wrapper rule so the <pre> inside is converted once.
func isCodeBlock(n *html.Node) bool {
	if !isElement(n, codeContainerTags) {
		return false
	}
	if n.Data == "pre" {
		return true
	}
	return hasCodeMarkup(n) && !hasChromeDescendant(n)
}

func hasCodeMarkup(n *html.Node) bool {
	if hasAttr(n, "data-language") || hasAttr(n, "data-lang") {
		return true
	}
	for _, c := range classes(n) {
		if codeClasses[c] || strings.HasPrefix(c, "language-") || strings.HasPrefix(c, "lang-") {
			return true
		}
	}
	return false
}

func hasChromeDescendant(n *html.Node) bool {
	for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
		if isChrome(ch) || hasChromeDescendant(ch) {
			return true
		}
	}
	return false
}

func isChrome(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	switch n.Data {
	case "header", "button", "svg":
		return true
	}
	return hasClassIn(n, chromeClasses)
}

func isInlineCode(n *html.Node) bool {
	if isElement(n, inlineCodeTags) {
		return true
	}
	if n.Type != html.ElementNode || n.Data != "span" {
		return false
	}
	if hasClassIn(n, codeSpanClass) {
		return true
	}
	if font := style(n, "font-family"); font != "" {
		for _, mono := range monoFonts {
			if strings.Contains(font, mono) {
				return true
			}
		}
	}
	bg := style(n, "background-color")
	if bg == "" {
		bg = style(n, "background")
	}
	return codeBackgrounds[bg]
}

func isParkedCode(n *html.Node) bool {
	return n.Type == html.ElementNode && (n.Data == tagCodeBlock || n.Data == tagInlineCode)
}

func isTablePart(n *html.Node) bool {
	return isElement(n, tableTags)
}

func isTaskItem(n *html.Node) bool {
	if n.Type != html.ElementNode || n.Data != "li" {
		return false
	}
	if hasClassIn(n, taskClasses) || attr(n, "data-type") == "taskItem" {
		return true
	}
	return findCheckbox(n) != nil
}

// findCheckbox looks for a checkbox that belongs to this item, not to a
// nested list.
func findCheckbox(n *html.Node) *html.Node {
	for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
		if isCheckbox(ch) {
			return ch
		}
		if ch.Type == html.ElementNode && ch.Data != "ul" && ch.Data != "ol" {
			if cb := findCheckbox(ch); cb != nil {
				return cb
			}
		}
	}
	return nil
}

func isCheckbox(n *html.Node) bool {
	return n.Type == html.ElementNode && n.Data == "input" && strings.EqualFold(attr(n, "type"), "checkbox")
}

func isChecked(li *html.Node) bool {
	if v := attr(li, "data-checked"); v != "" {
		return v == "true"
	}
	if hasClassIn(li, checkedClasses) {
		return true
	}
	cb := findCheckbox(li)
	return cb != nil && hasAttr(cb, "checked")
}

func isHeading(n *html.Node) bool {
	return isElement(n, headingTags)
}

// isWrapper matches no-op containers and code containers that were refused
// by isCodeBlock because they carry editor chrome.
func isWrapper(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	if hasClassIn(n, wrapperClasses) {
		return true
	}
	return hasCodeMarkup(n) && hasChromeDescendant(n)
}

// hasSingleInlineChild matches a p or div whose only content is one inline element.
func hasSingleInlineChild(n *html.Node) bool {
	if n.Type != html.ElementNode || (n.Data != "p" && n.Data != "div") {
		return false
	}
	var only *html.Node
	for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
		switch ch.Type {
		case html.TextNode:
			if strings.TrimSpace(ch.Data) != "" {
				return false
			}
		case html.ElementNode:
			if only != nil {
				return false
			}
			only = ch
		}
	}
	return only != nil && inlineTags[only.Data]
}

func textContent(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
		b.WriteString(textContent(ch))
	}
	return b.String()
}
