// Package sqlguard inspects SQL text produced by the model before it reaches
// the database: it splits statements and applies the mutation policy.
package sqlguard

import (
	"strings"
	"unicode"
)

// Split breaks sqlText into statements at top-level semicolons. Semicolons
// inside string literals, quoted identifiers, dollar-quoted bodies and
// comments do not split. Statements that contain only whitespace or comments
// are dropped, so a trailing semicolon does not produce an empty statement.
// Returned statements are trimmed and carry no terminating semicolon.
func Split(sqlText string) []string {
	var (
		stmts []string
		start int
	)
	s := scanner{src: sqlText}
	for {
		end, ok := s.nextSemicolon()
		if !ok {
			break
		}
		if stmt := strings.TrimSpace(sqlText[start:end]); hasCode(stmt) {
			stmts = append(stmts, stmt)
		}
		start = end + 1
	}
	if stmt := strings.TrimSpace(sqlText[start:]); hasCode(stmt) {
		stmts = append(stmts, stmt)
	}
	return stmts
}

// FirstTerminator returns the index of the first top-level semicolon in
// sqlText, or -1.
func FirstTerminator(sqlText string) int {
	s := scanner{src: sqlText}
	end, ok := s.nextSemicolon()
	if !ok {
		return -1
	}
	return end
}

// FirstKeyword returns the upper-cased first word of a statement, skipping
// leading whitespace, comments and opening parentheses.
func FirstKeyword(stmt string) string {
	i := 0
	for i < len(stmt) {
		switch {
		case stmt[i] == '(' || isSpace(stmt[i]):
			i++
		case strings.HasPrefix(stmt[i:], "--"):
			i = skipLineComment(stmt, i)
		case strings.HasPrefix(stmt[i:], "/*"):
			i = skipBlockComment(stmt, i)
		default:
			j := i
			for j < len(stmt) && isWordByte(stmt[j]) {
				j++
			}
			return strings.ToUpper(stmt[i:j])
		}
	}
	return ""
}

// HasKeyword reports whether kw appears as a whole word in stmt outside
// literals, quoted identifiers, comments and parentheses. The match ignores
// case.
func HasKeyword(stmt, kw string) bool {
	depth := 0
	i := 0
	for i < len(stmt) {
		c := stmt[i]
		switch {
		case c == '(':
			depth++
			i++
		case c == ')':
			if depth > 0 {
				depth--
			}
			i++
		case c == '\'':
			escapes := i > 0 && (stmt[i-1] == 'E' || stmt[i-1] == 'e') &&
				(i < 2 || !isWordByte(stmt[i-2]))
			i = skipQuoted(stmt, i, '\'', escapes)
		case c == '"':
			i = skipQuoted(stmt, i, '"', false)
		case c == '$':
			i = skipDollar(stmt, i)
		case strings.HasPrefix(stmt[i:], "--"):
			i = skipLineComment(stmt, i)
		case strings.HasPrefix(stmt[i:], "/*"):
			i = skipBlockComment(stmt, i)
		case isWordByte(c) || c >= 0x80:
			j := i
			for j < len(stmt) && (isWordByte(stmt[j]) || stmt[j] >= 0x80 || stmt[j] == '$') {
				j++
			}
			if depth == 0 && strings.EqualFold(stmt[i:j], kw) {
				return true
			}
			i = j
		default:
			i++
		}
	}
	return false
}

// hasCode reports whether stmt has anything besides whitespace and comments.
func hasCode(stmt string) bool {
	return strings.TrimFunc(stripComments(stmt), unicode.IsSpace) != ""
}

func stripComments(stmt string) string {
	var b strings.Builder
	i := 0
	for i < len(stmt) {
		switch {
		case strings.HasPrefix(stmt[i:], "--"):
			i = skipLineComment(stmt, i)
		case strings.HasPrefix(stmt[i:], "/*"):
			i = skipBlockComment(stmt, i)
		default:
			b.WriteByte(stmt[i])
			i++
		}
	}
	return b.String()
}

type scanner struct {
	src string
	pos int
}

// nextSemicolon advances past the next top-level semicolon and returns its index.
func (s *scanner) nextSemicolon() (int, bool) {
	src := s.src
	for s.pos < len(src) {
		c := src[s.pos]
		switch {
		case c == ';':
			idx := s.pos
			s.pos++
			return idx, true
		case c == '\'':
			escapes := s.pos > 0 && (src[s.pos-1] == 'E' || src[s.pos-1] == 'e') &&
				(s.pos < 2 || !isWordByte(src[s.pos-2]))
			s.pos = skipQuoted(src, s.pos, '\'', escapes)
		case c == '"':
			s.pos = skipQuoted(src, s.pos, '"', false)
		case c == '$':
			s.pos = skipDollar(src, s.pos)
		case strings.HasPrefix(src[s.pos:], "--"):
			s.pos = skipLineComment(src, s.pos)
		case strings.HasPrefix(src[s.pos:], "/*"):
			s.pos = skipBlockComment(src, s.pos)
		default:
			s.pos++
		}
	}
	return 0, false
}

// skipQuoted returns the index just past the literal opened at i. A doubled
// quote is an escaped quote; with backslash escapes enabled, \x is skipped too.
func skipQuoted(src string, i int, quote byte, backslash bool) int {
	i++
	for i < len(src) {
		switch {
		case backslash && src[i] == '\\':
			i += 2
		case src[i] == quote:
			if i+1 < len(src) && src[i+1] == quote {
				i += 2
				continue
			}
			return i + 1
		default:
			i++
		}
	}
	return len(src)
}

// skipDollar handles $tag$ ... $tag$ bodies. A '$' that does not open a
// dollar quote (e.g. a $1 parameter) is skipped as a single byte.
func skipDollar(src string, i int) int {
	j := i + 1
	for j < len(src) && src[j] != '$' {
		if !isTagByte(src[j], j == i+1) {
			return i + 1
		}
		j++
	}
	if j >= len(src) {
		return i + 1
	}
	tag := src[i : j+1]
	end := strings.Index(src[j+1:], tag)
	if end < 0 {
		return len(src)
	}
	return j + 1 + end + len(tag)
}

func skipLineComment(src string, i int) int {
	end := strings.IndexByte(src[i:], '\n')
	if end < 0 {
		return len(src)
	}
	return i + end + 1
}

// skipBlockComment honours nesting, as PostgreSQL does.
func skipBlockComment(src string, i int) int {
	depth := 0
	for i < len(src) {
		switch {
		case strings.HasPrefix(src[i:], "/*"):
			depth++
			i += 2
		case strings.HasPrefix(src[i:], "*/"):
			depth--
			i += 2
			if depth == 0 {
				return i
			}
		default:
			i++
		}
	}
	return len(src)
}

func isTagByte(c byte, first bool) bool {
	if c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c >= 0x80 {
		return true
	}
	return !first && c >= '0' && c <= '9'
}

func isWordByte(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v'
}
