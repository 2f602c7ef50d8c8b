package normalize

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// codeBuffer accumulates extracted code and remembers whether the last byte
// written was a newline.
type codeBuffer struct {
	b      strings.Builder
	atLine bool
}

func (cb *codeBuffer) write(s string) {
	if s == "" {
		return
	}
	cb.b.WriteString(s)
	cb.atLine = strings.HasSuffix(s, "\n")
}

// lineBreak starts a new line unless the buffer is empty or already at one.
func (cb *codeBuffer) lineBreak() {
	if cb.b.Len() > 0 && !cb.atLine {
		cb.write("\n")
	}
}

// extractCode walks a code container and returns its text. Block children
// and "line" elements start a new line, <br> inserts one, gutter cells and
// editor chrome are skipped.
func extractCode(n *html.Node) string {
	var cb codeBuffer
	walkCode(n, &cb)
	return cleanCode(cb.b.String())
}

func walkCode(n *html.Node, cb *codeBuffer) {
	for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
		switch ch.Type {
		case html.TextNode:
			cb.write(ch.Data)
		case html.ElementNode:
			if isJunk(ch) || isChrome(ch) || isGutter(ch) {
				continue
			}
			if ch.Data == "br" {
				cb.write("\n")
				continue
			}
			if codeLineTags[ch.Data] || hasClassIn(ch, lineClass) {
				cb.lineBreak()
			}
			walkCode(ch, cb)
		}
	}
}

func cleanCode(s string) string {
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.ReplaceAll(s, `\n`, "\n")
	s = strings.ReplaceAll(s, "\u00a0", " ")
	return strings.TrimSpace(s)
}

func runeCount(s string) int {
	return utf8.RuneCountInString(s)
}

// fenced wraps code in a backtick fence longer than any backtick run inside it.
func fenced(code string) string {
	fence := codeFence(code)
	return "\n\n" + fence + "\n" + code + "\n" + fence + "\n\n"
}

func codeFence(code string) string {
	return strings.Repeat("`", max(3, longestRun(code, '`')+1))
}

func inlineSpan(code string) string {
	return "`" + strings.ReplaceAll(code, "`", "\\`") + "`"
}

func longestRun(s string, r byte) int {
	longest, cur := 0, 0
	for i := 0; i < len(s); i++ {
		if s[i] == r {
			cur++
			longest = max(longest, cur)
			continue
		}
		cur = 0
	}
	return longest
}
