package normalize

import (
	"regexp"
	"strings"
)

// transformer rewrites a whole text. The wiki conversion is a fixed chain of
// transformers; later steps rely on earlier ones having run.
type transformer func(string) string

var wikiChain = []transformer{
	outsideMacros(wikiHeadings),
	outsideMacros(wikiBold),
	outsideMacros(wikiItalic),
	wikiCodeMacro,
	wikiNoformat,
	outsideFences(wikiMonospace),
	outsideFences(wikiPanels),
	outsideFences(wikiNumberedList),
	outsideFences(wikiHeaderRows),
	outsideFences(wikiRows),
}

func wikiToMarkdown(src string) string {
	md := strings.ReplaceAll(src, "\r\n", "\n")
	for _, t := range wikiChain {
		md = t(md)
	}
	md = strings.ReplaceAll(md, headingMark, "")
	return collapseBlankLines(md)
}

// headingMark prefixes converted headings while the chain runs so the
// numbered-list step never mistakes "# Title" for a "# item" line.
const headingMark = "\ue000"

var (
	wikiHeading    = regexp.MustCompile(`(?m)^h([1-6])\.[ \t]+(.*)$`)
	wikiBoldSpan   = regexp.MustCompile(`\*([^*\s](?:[^*\n]*[^*\s])?)\*`)
	wikiItalicSpan = regexp.MustCompile(`(^|[^\w])_([^_\n]+)_([^\w]|$)`)
	wikiCode       = regexp.MustCompile(`(?s)\{code(?::[^}]*)?\}(.*?)\{code\}`)
	wikiNoFormat   = regexp.MustCompile(`(?s)\{noformat(?::[^}]*)?\}(.*?)\{noformat\}`)
	wikiMono       = regexp.MustCompile(`\{\{([^}]+)\}\}`)
	wikiPanel      = regexp.MustCompile(`(?s)\{panel(?::[^}]*)?\}(.*?)\{panel\}`)
	wikiInfo       = regexp.MustCompile(`(?s)\{info(?::[^}]*)?\}(.*?)\{info\}`)
	wikiNote       = regexp.MustCompile(`(?s)\{note(?::[^}]*)?\}(.*?)\{note\}`)
	wikiNumbered   = regexp.MustCompile(`(?m)^#[ \t]+`)
	wikiHeaderRow  = regexp.MustCompile(`(?m)^\|\|(.*)\|\|[ \t]*$`)
	wikiRow        = regexp.MustCompile(`(?m)^\|(.*)\|[ \t]*$`)

	// wikiVerbatim matches the spans whose content must reach its own
	// rewrite step untouched.
	wikiVerbatim = regexp.MustCompile(`(?s)\{code(?::[^}]*)?\}.*?\{code\}|\{noformat(?::[^}]*)?\}.*?\{noformat\}|\{\{[^}]+\}\}`)
)

func wikiHeadings(s string) string {
	return wikiHeading.ReplaceAllStringFunc(s, func(m string) string {
		sub := wikiHeading.FindStringSubmatch(m)
		level := int(sub[1][0] - '0')
		return headingMark + strings.Repeat("#", level) + " " + strings.TrimSpace(sub[2])
	})
}

func wikiBold(s string) string {
	return wikiBoldSpan.ReplaceAllString(s, "**$1**")
}

// wikiItalic only rewrites underscores at word boundaries, so snake_case
// identifiers survive. Adjacent spans share a boundary character, hence the loop.
func wikiItalic(s string) string {
	for i := 0; i < 4; i++ {
		next := wikiItalicSpan.ReplaceAllString(s, "${1}*${2}*${3}")
		if next == s {
			break
		}
		s = next
	}
	return s
}

func wikiCodeMacro(s string) string {
	return wikiCode.ReplaceAllStringFunc(s, func(m string) string {
		return fencedMacro(wikiCode.FindStringSubmatch(m)[1])
	})
}

func wikiNoformat(s string) string {
	return wikiNoFormat.ReplaceAllStringFunc(s, func(m string) string {
		return fencedMacro(wikiNoFormat.FindStringSubmatch(m)[1])
	})
}

func fencedMacro(body string) string {
	body = strings.TrimRight(strings.TrimLeft(body, "\n"), " \t\n")
	return fenced(body)
}

func wikiMonospace(s string) string {
	return wikiMono.ReplaceAllStringFunc(s, func(m string) string {
		return inlineSpan(wikiMono.FindStringSubmatch(m)[1])
	})
}

func wikiPanels(s string) string {
	s = replaceBody(wikiPanel, s, "")
	s = replaceBody(wikiInfo, s, "[!NOTE]")
	return replaceBody(wikiNote, s, "[!IMPORTANT]")
}

func replaceBody(re *regexp.Regexp, s, marker string) string {
	return re.ReplaceAllStringFunc(s, func(m string) string {
		body := strings.TrimSpace(re.FindStringSubmatch(m)[1])
		lines := strings.Split(body, "\n")
		if marker != "" {
			lines = append([]string{marker}, lines...)
		}
		for i, line := range lines {
			lines[i] = strings.TrimRight("> "+line, " ")
		}
		return "\n\n" + strings.Join(lines, "\n") + "\n\n"
	})
}

func wikiNumberedList(s string) string {
	return wikiNumbered.ReplaceAllString(s, "1. ")
}

func wikiHeaderRows(s string) string {
	return wikiHeaderRow.ReplaceAllStringFunc(s, func(m string) string {
		cells := splitCells(wikiHeaderRow.FindStringSubmatch(m)[1], "||")
		return pipeRow(cells) + "\n|" + strings.Repeat("---|", len(cells))
	})
}

func wikiRows(s string) string {
	return wikiRow.ReplaceAllStringFunc(s, func(m string) string {
		content := wikiRow.FindStringSubmatch(m)[1]
		if strings.Contains(content, "---") {
			return m
		}
		return pipeRow(splitCells(content, "|"))
	})
}

func splitCells(content, sep string) []string {
	cells := strings.Split(content, sep)
	for i := range cells {
		cells[i] = strings.TrimSpace(cells[i])
	}
	return cells
}

func pipeRow(cells []string) string {
	return "| " + strings.Join(cells, " | ") + " |"
}

// outsideMacros applies t to the text between code, noformat and monospace
// macros.
func outsideMacros(t transformer) transformer {
	return func(s string) string {
		var b strings.Builder
		last := 0
		for _, loc := range wikiVerbatim.FindAllStringIndex(s, -1) {
			b.WriteString(t(s[last:loc[0]]))
			b.WriteString(s[loc[0]:loc[1]])
			last = loc[1]
		}
		b.WriteString(t(s[last:]))
		return b.String()
	}
}

// outsideFences applies t to every run of lines outside fenced code blocks.
func outsideFences(t transformer) transformer {
	return func(s string) string {
		lines := strings.Split(s, "\n")
		var out, run []string
		flush := func() {
			if len(run) > 0 {
				out = append(out, t(strings.Join(run, "\n")))
				run = run[:0]
			}
		}
		fence := ""
		for _, line := range lines {
			switch {
			case fence != "":
				out = append(out, line)
				if closesFence(line, fence) {
					fence = ""
				}
			case opensFence(line) != "":
				flush()
				fence = opensFence(line)
				out = append(out, line)
			default:
				run = append(run, line)
			}
		}
		flush()
		return strings.Join(out, "\n")
	}
}

// collapseBlankLines squeezes blank-line runs outside fences and trims
// surrounding newlines.
func collapseBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	fence := ""
	for _, line := range lines {
		switch {
		case fence != "":
			if closesFence(line, fence) {
				fence = ""
			}
		case opensFence(line) != "":
			fence = opensFence(line)
		case strings.TrimSpace(line) == "" && len(out) > 0 && out[len(out)-1] == "":
			continue
		case strings.TrimSpace(line) == "":
			line = ""
		}
		out = append(out, line)
	}
	return strings.Trim(strings.Join(out, "\n"), "\n")
}
