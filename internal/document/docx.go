package document

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	docxBody = "word/document.xml"
	docxRels = "word/_rels/document.xml.rels"
)

// xnode is a generic WordprocessingML element. Names are matched on their
// local part only; every element of interest lives in the "w" namespace.
type xnode struct {
	XMLName xml.Name
	Attrs   []xml.Attr `xml:",any,attr"`
	Nodes   []xnode    `xml:",any"`
	Text    string     `xml:",chardata"`
}

func (n *xnode) child(local string) *xnode {
	for i := range n.Nodes {
		if n.Nodes[i].XMLName.Local == local {
			return &n.Nodes[i]
		}
	}
	return nil
}

func (n *xnode) attr(local string) string {
	for _, a := range n.Attrs {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

// on reads a boolean run property such as <w:b/> or <w:b w:val="0"/>.
func (n *xnode) on(local string) bool {
	p := n.child(local)
	if p == nil {
		return false
	}
	switch strings.ToLower(p.attr("val")) {
	case "0", "false", "off", "none":
		return false
	}
	return true
}

// DocxToHTML converts the main document part of a .docx file to HTML.
//
// Supported: paragraphs, headings (Title, Heading1-6), bulleted and numbered
// paragraphs (as one flat <ul>), bold, italic and strikethrough runs, line
// breaks, hyperlinks, tables with column spans, and paragraphs styled as code
// (merged into one <pre> per run of consecutive code paragraphs). Anything
// else contributes its text only.
func DocxToHTML(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	var doc xnode
	if err := readXML(zr, docxBody, &doc); err != nil {
		return "", err
	}
	links, err := readLinks(zr)
	if err != nil {
		return "", err
	}

	body := doc.child("body")
	if body == nil {
		return "", fmt.Errorf("%w: %s has no body", ErrCorrupt, docxBody)
	}

	b := &docxBuilder{links: links}
	root := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	b.blocks(root, body.Nodes)

	var out strings.Builder
	for ch := root.FirstChild; ch != nil; ch = ch.NextSibling {
		if err := html.Render(&out, ch); err != nil {
			return "", fmt.Errorf("document: rendering html: %w", err)
		}
	}
	return out.String(), nil
}

func readXML(zr *zip.Reader, name string, v any) error {
	f, err := zr.Open(name)
	if err != nil {
		return fmt.Errorf("%w: missing %s", ErrCorrupt, name)
	}
	defer f.Close()

	raw, err := io.ReadAll(f)
	if err != nil {
		return fmt.Errorf("%w: reading %s: %v", ErrCorrupt, name, err)
	}
	if err := xml.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: parsing %s: %v", ErrCorrupt, name, err)
	}
	return nil
}

// readLinks maps relationship ids to external hyperlink targets. The
// relationships part is optional.
func readLinks(zr *zip.Reader) (map[string]string, error) {
	links := map[string]string{}
	if _, err := zr.Open(docxRels); err != nil {
		return links, nil
	}
	var rels xnode
	if err := readXML(zr, docxRels, &rels); err != nil {
		return nil, err
	}
	for _, r := range rels.Nodes {
		if strings.HasSuffix(r.attr("Type"), "/hyperlink") {
			links[r.attr("Id")] = r.attr("Target")
		}
	}
	return links, nil
}

type docxBuilder struct {
	links map[string]string
}

// blocks appends the HTML for a sequence of body-level elements to parent.
// Consecutive list paragraphs share one <ul>; consecutive code paragraphs
// share one <pre>.
func (b *docxBuilder) blocks(parent *html.Node, nodes []xnode) {
	var list, pre *html.Node
	for i := range nodes {
		n := &nodes[i]
		switch n.XMLName.Local {
		case "p":
			style := paragraphStyle(n)
			switch {
			case isCodeStyle(style):
				list = nil
				if pre == nil {
					pre = element(atom.Pre)
					parent.AppendChild(pre)
				} else {
					pre.AppendChild(text("\n"))
				}
				pre.AppendChild(text(plainText(n)))
				continue
			case n.child("pPr") != nil && n.child("pPr").child("numPr") != nil:
				pre = nil
				if list == nil {
					list = element(atom.Ul)
					parent.AppendChild(list)
				}
				li := element(atom.Li)
				b.inline(li, n.Nodes)
				list.AppendChild(li)
				continue
			}
			list, pre = nil, nil
			p := element(headingAtom(style))
			b.inline(p, n.Nodes)
			if p.FirstChild != nil {
				parent.AppendChild(p)
			}
		case "tbl":
			list, pre = nil, nil
			parent.AppendChild(b.table(n))
		case "sdt":
			list, pre = nil, nil
			if content := n.child("sdtContent"); content != nil {
				b.blocks(parent, content.Nodes)
			}
		}
	}
}

func (b *docxBuilder) table(n *xnode) *html.Node {
	table := element(atom.Table)
	tbody := element(atom.Tbody)
	table.AppendChild(tbody)
	for i := range n.Nodes {
		row := &n.Nodes[i]
		if row.XMLName.Local != "tr" {
			continue
		}
		tr := element(atom.Tr)
		for j := range row.Nodes {
			cell := &row.Nodes[j]
			if cell.XMLName.Local != "tc" {
				continue
			}
			td := element(atom.Td)
			if pr := cell.child("tcPr"); pr != nil {
				if span := pr.child("gridSpan"); span != nil && span.attr("val") != "" {
					td.Attr = append(td.Attr, html.Attribute{Key: "colspan", Val: span.attr("val")})
				}
			}
			b.blocks(td, cell.Nodes)
			tr.AppendChild(td)
		}
		tbody.AppendChild(tr)
	}
	return table
}

// inline appends runs, hyperlinks and breaks of one paragraph to parent.
func (b *docxBuilder) inline(parent *html.Node, nodes []xnode) {
	for i := range nodes {
		n := &nodes[i]
		switch n.XMLName.Local {
		case "r":
			b.run(parent, n)
		case "hyperlink":
			target := b.links[n.attr("id")]
			if target == "" {
				b.inline(parent, n.Nodes)
				continue
			}
			a := element(atom.A)
			a.Attr = []html.Attribute{{Key: "href", Val: target}}
			b.inline(a, n.Nodes)
			parent.AppendChild(a)
		case "ins", "smartTag", "fldSimple":
			b.inline(parent, n.Nodes)
		}
	}
}

func (b *docxBuilder) run(parent *html.Node, r *xnode) {
	target := parent
	if pr := r.child("rPr"); pr != nil {
		for _, f := range []struct {
			prop string
			tag  atom.Atom
		}{
			{"b", atom.Strong},
			{"i", atom.Em},
			{"strike", atom.Del},
		} {
			if pr.on(f.prop) {
				el := element(f.tag)
				target.AppendChild(el)
				target = el
			}
		}
	}
	for i := range r.Nodes {
		switch n := &r.Nodes[i]; n.XMLName.Local {
		case "t":
			target.AppendChild(text(n.Text))
		case "tab":
			target.AppendChild(text("\t"))
		case "br", "cr":
			target.AppendChild(element(atom.Br))
		}
	}
}

func paragraphStyle(p *xnode) string {
	pr := p.child("pPr")
	if pr == nil {
		return ""
	}
	if s := pr.child("pStyle"); s != nil {
		return strings.ToLower(strings.ReplaceAll(s.attr("val"), " ", ""))
	}
	return ""
}

func isCodeStyle(style string) bool {
	return strings.Contains(style, "code") || style == "htmlpreformatted"
}

func headingAtom(style string) atom.Atom {
	switch style {
	case "title", "heading1":
		return atom.H1
	case "heading2":
		return atom.H2
	case "heading3":
		return atom.H3
	case "heading4":
		return atom.H4
	case "heading5":
		return atom.H5
	case "heading6":
		return atom.H6
	}
	return atom.P
}

// plainText collects a paragraph's text with breaks as newlines.
func plainText(n *xnode) string {
	var sb strings.Builder
	var walk func(*xnode)
	walk = func(n *xnode) {
		switch n.XMLName.Local {
		case "t":
			sb.WriteString(n.Text)
			return
		case "tab":
			sb.WriteString("\t")
			return
		case "br", "cr":
			sb.WriteString("\n")
			return
		case "pPr", "rPr":
			return
		}
		for i := range n.Nodes {
			walk(&n.Nodes[i])
		}
	}
	walk(n)
	return sb.String()
}

func element(a atom.Atom) *html.Node {
	return &html.Node{Type: html.ElementNode, Data: a.String(), DataAtom: a}
}

func text(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}
