// Package braces checks curly-brace balance in JavaScript-like source.
//
// The scanner is lexical only. It skips line and block comments, quoted
// strings (', " and `) with backslash escapes, and regex literals, which it
// recognises heuristically: a slash that does not follow an identifier, a
// number or one of ) ] } < starts a regex that ends at the next unescaped
// slash on the same line. The last two keep JSX closing tags ("</p>",
// "{x} />") out of regex mode.
package braces

// Report is the outcome of one audit. Line numbers are 1-based.
type Report struct {
	Opens  int `json:"opens"`
	Closes int `json:"closes"`
	// Unclosed lists the line of every '{' that was never closed.
	Unclosed []int `json:"unclosed"`
	// Extra lists the line of every '}' that had no matching '{'.
	Extra []int `json:"extra"`
}

// Balanced reports whether every brace was matched.
func (r Report) Balanced() bool {
	return len(r.Unclosed) == 0 && len(r.Extra) == 0
}

type scanner struct {
	src  []rune
	pos  int
	line int
}

// Audit scans src and reports unmatched braces.
func Audit(src string) Report {
	s := &scanner{src: []rune(src), line: 1}
	r := Report{Unclosed: []int{}, Extra: []int{}}
	var stack []int

	for s.pos < len(s.src) {
		c := s.src[s.pos]
		switch {
		case c == '/' && s.peek(1) == '/':
			s.skipLineComment()
		case c == '/' && s.peek(1) == '*':
			s.skipBlockComment()
		case c == '"' || c == '\'' || c == '`':
			s.skipString(c)
		case c == '/' && s.regexAllowed():
			s.skipRegex()
		case c == '{':
			r.Opens++
			stack = append(stack, s.line)
			s.pos++
		case c == '}':
			r.Closes++
			if len(stack) == 0 {
				r.Extra = append(r.Extra, s.line)
			} else {
				stack = stack[:len(stack)-1]
			}
			s.pos++
		default:
			s.advance()
		}
	}
	r.Unclosed = append(r.Unclosed, stack...)
	return r
}

func (s *scanner) peek(offset int) rune {
	if i := s.pos + offset; i < len(s.src) {
		return s.src[i]
	}
	return 0
}

// advance moves past one rune, counting lines.
func (s *scanner) advance() {
	if s.src[s.pos] == '\n' {
		s.line++
	}
	s.pos++
}

func (s *scanner) skipLineComment() {
	for s.pos < len(s.src) && s.src[s.pos] != '\n' {
		s.pos++
	}
}

func (s *scanner) skipBlockComment() {
	s.pos += 2
	for s.pos < len(s.src) {
		if s.src[s.pos] == '*' && s.peek(1) == '/' {
			s.pos += 2
			return
		}
		s.advance()
	}
}

// skipString consumes a quoted string. Unterminated single- and double-quoted
// strings stop at the end of the line; template strings may span lines.
func (s *scanner) skipString(quote rune) {
	s.pos++
	for s.pos < len(s.src) {
		c := s.src[s.pos]
		switch {
		case c == '\\':
			s.pos++
			if s.pos < len(s.src) {
				s.advance()
			}
		case c == quote:
			s.pos++
			return
		case c == '\n' && quote != '`':
			return
		default:
			s.advance()
		}
	}
}

func (s *scanner) regexAllowed() bool {
	for i := s.pos - 1; i >= 0; i-- {
		c := s.src[i]
		if c == ' ' || c == '\t' {
			continue
		}
		return !slashIsOperator(c)
	}
	return true
}

func slashIsOperator(c rune) bool {
	return c == '_' || c == '$' || c == ')' || c == ']' || c == '}' || c == '<' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// skipRegex consumes a regex literal including character classes. If no
// closing slash is found on the line the slash is treated as an operator.
func (s *scanner) skipRegex() {
	start := s.pos
	i := s.pos + 1
	inClass := false
	for i < len(s.src) && s.src[i] != '\n' {
		switch c := s.src[i]; {
		case c == '\\':
			i++
		case c == '[':
			inClass = true
		case c == ']':
			inClass = false
		case c == '/' && !inClass:
			s.pos = i + 1
			return
		}
		i++
	}
	s.pos = start + 1
}
