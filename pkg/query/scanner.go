package query

import "strings"

// codeMask marks the bytes of s that lie outside quoted literals and <iri>
// references. Every delimiter the parser cares about is ASCII, so scanning
// bytes is safe on UTF-8 input.
func codeMask(s string) []bool {
	mask := make([]bool, len(s))
	for i := 0; i < len(s); {
		c := s[i]
		if c == '"' || c == '\'' {
			i = closingQuote(s, i) + 1
			continue
		}
		if c == '<' {
			if end := iriEnd(s, i); end >= 0 {
				i = end + 1
				continue
			}
		}
		mask[i] = true
		i++
	}
	return mask
}

// closingQuote returns the index of the quote that closes the literal opened
// at s[start], or len(s)-1 when the literal runs to the end of input.
func closingQuote(s string, start int) int {
	q := s[start]
	for i := start + 1; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case q:
			return i
		}
	}
	return len(s) - 1
}

// iriEnd returns the index of the '>' closing an IRI opened at s[start], or
// -1 when the '<' is a comparison operator.
func iriEnd(s string, start int) int {
	for i := start + 1; i < len(s); i++ {
		switch s[i] {
		case '>':
			return i
		case ' ', '\t', '\n', '\r', '"', '\'', '<', '{', '}', '=':
			return -1
		}
	}
	return -1
}

func isNameByte(c byte) bool {
	return c == '_' || c == '?' || c == '$' || c == ':' ||
		('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9') ||
		c >= 0x80
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

// findKeyword returns the offset of the first whole-word, case-insensitive
// occurrence of kw at or after from that lies outside literals, or -1.
func findKeyword(s string, mask []bool, kw string, from int) int {
	for i := from; i+len(kw) <= len(s); i++ {
		if !mask[i] || !strings.EqualFold(s[i:i+len(kw)], kw) {
			continue
		}
		if i > 0 && isNameByte(s[i-1]) {
			continue
		}
		if end := i + len(kw); end < len(s) && isNameByte(s[end]) {
			continue
		}
		return i
	}
	return -1
}

// nextCode returns the index of the first non-space code byte at or after
// from, or -1.
func nextCode(s string, mask []bool, from int) int {
	for i := from; i < len(s); i++ {
		if mask[i] && !isSpace(s[i]) {
			return i
		}
	}
	return -1
}

// matchClose returns the index of the bracket that balances the '{' or '('
// at s[open], or -1 when the input ends first.
func matchClose(s string, mask []bool, open int) int {
	opener := s[open]
	closer := byte('}')
	if opener == '(' {
		closer = ')'
	}

	depth := 0
	for i := open; i < len(s); i++ {
		if !mask[i] {
			continue
		}
		switch s[i] {
		case opener:
			depth++
		case closer:
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// splitOutside splits s on sep wherever sep is not inside a literal or IRI.
func splitOutside(s string, sep byte) []string {
	mask := codeMask(s)

	var parts []string
	start := 0
	for i := 0; i < len(s); i++ {
		if mask[i] && s[i] == sep {
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	return append(parts, s[start:])
}

// tokenize splits a pattern on whitespace, keeping literals and IRIs whole.
func tokenize(s string) []string {
	mask := codeMask(s)

	var tokens []string
	start := -1
	for i := 0; i < len(s); i++ {
		if mask[i] && isSpace(s[i]) {
			if start >= 0 {
				tokens = append(tokens, s[start:i])
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		tokens = append(tokens, s[start:])
	}
	return tokens
}

// cutSpan removes s[start:end] and leaves a space so neighbouring tokens
// stay separated.
func cutSpan(s string, start, end int) string {
	return s[:start] + " " + s[end:]
}

// Incomplete reports whether text opens more braces or parentheses than it
// closes outside literals, or ends inside a literal. Interactive front ends
// use it to keep reading lines.
func Incomplete(text string) bool {
	mask := codeMask(text)
	depth := 0
	for i := 0; i < len(text); i++ {
		if !mask[i] {
			continue
		}
		switch text[i] {
		case '{', '(':
			depth++
		case '}', ')':
			depth--
		}
	}
	if depth > 0 {
		return true
	}

	// An unterminated literal swallows the rest of the input.
	for i := 0; i < len(text); i++ {
		if mask[i] || (text[i] != '"' && text[i] != '\'') {
			continue
		}
		end := closingQuote(text, i)
		if end == len(text)-1 && (end == i || text[end] != text[i]) {
			return true
		}
		i = end
	}
	return false
}
