package normalize

import "strings"

// cleanup tidies rendered Markdown outside fenced blocks: whitespace-only
// lines become empty, runs of blank lines collapse to one, a single stray
// leading space is removed, and trailing spaces are trimmed except for the
// two that mark a <br> hard break. Fenced blocks are copied through untouched.
func cleanup(md string) string {
	lines := strings.Split(strings.ReplaceAll(md, "\r\n", "\n"), "\n")
	out := make([]string, 0, len(lines))
	fence := ""
	blank := false

	for _, line := range lines {
		if fence != "" {
			out = append(out, line)
			if closesFence(line, fence) {
				fence = ""
			}
			continue
		}
		if f := opensFence(line); f != "" {
			fence = f
			blank = false
			out = append(out, line)
			continue
		}

		trimmed := strings.TrimRight(line, " \t")
		if strings.HasSuffix(line, "  ") && strings.TrimSpace(trimmed) != "" {
			trimmed += "  "
		}
		line = trimmed
		if len(line) > 1 && line[0] == ' ' && line[1] != ' ' {
			line = line[1:]
		}

		if strings.TrimSpace(line) == "" {
			if blank || len(out) == 0 {
				continue
			}
			blank = true
			out = append(out, "")
			continue
		}
		blank = false
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

// opensFence returns the backtick run that opens a fenced block on line, or "".
func opensFence(line string) string {
	trimmed := strings.TrimLeft(line, " ")
	n := 0
	for n < len(trimmed) && trimmed[n] == '`' {
		n++
	}
	if n < 3 || strings.Contains(trimmed[n:], "`") {
		return ""
	}
	return trimmed[:n]
}

func closesFence(line, fence string) bool {
	trimmed := strings.TrimSpace(line)
	return len(trimmed) >= len(fence) && strings.Trim(trimmed, "`") == ""
}
