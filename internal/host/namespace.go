package host

import (
	"fmt"
	"strings"

	"github.com/roach88/commonjs/internal/jsengine"
)

// ParseNamespace splits a script property path into its segments.
//
// Accepted forms are dotted identifiers and quoted bracket accessors, in
// any mix:
//
//	arith
//	foo.arith
//	foo["arith"]
//	foo['arith-util'].fns
//
// Anything else (expressions, empty segments, unterminated brackets) is
// rejected.
func ParseNamespace(s string) ([]string, error) {
	if s == "" {
		return nil, fmt.Errorf("empty namespace")
	}

	var segs []string
	i := 0
	expectIdent := true

	for i < len(s) {
		switch {
		case s[i] == '.':
			if expectIdent {
				return nil, fmt.Errorf("namespace %q: empty segment at offset %d", s, i)
			}
			expectIdent = true
			i++

		case s[i] == '[':
			if expectIdent && len(segs) == 0 {
				return nil, fmt.Errorf("namespace %q: must start with an identifier", s)
			}
			if expectIdent {
				return nil, fmt.Errorf("namespace %q: unexpected '[' at offset %d", s, i)
			}
			key, n, err := parseBracket(s[i:])
			if err != nil {
				return nil, fmt.Errorf("namespace %q: %w", s, err)
			}
			segs = append(segs, key)
			i += n

		default:
			if !expectIdent {
				return nil, fmt.Errorf("namespace %q: unexpected %q at offset %d", s, s[i], i)
			}
			end := i
			for end < len(s) && s[end] != '.' && s[end] != '[' {
				end++
			}
			ident := s[i:end]
			if !jsengine.IsIdentifier(ident) {
				return nil, fmt.Errorf("namespace %q: invalid identifier %q", s, ident)
			}
			segs = append(segs, ident)
			expectIdent = false
			i = end
		}
	}

	if expectIdent {
		return nil, fmt.Errorf("namespace %q: trailing '.'", s)
	}
	return segs, nil
}

// parseBracket reads a ["key"] or ['key'] accessor at the start of s and
// returns the key and the number of bytes consumed.
func parseBracket(s string) (string, int, error) {
	if len(s) < 4 {
		return "", 0, fmt.Errorf("unterminated accessor %q", s)
	}
	quote := s[1]
	if quote != '"' && quote != '\'' {
		return "", 0, fmt.Errorf("accessor %q must use a quoted key", s)
	}
	end := strings.IndexByte(s[2:], quote)
	if end < 0 {
		return "", 0, fmt.Errorf("unterminated accessor %q", s)
	}
	key := s[2 : 2+end]
	closeAt := 2 + end + 1
	if closeAt >= len(s) || s[closeAt] != ']' {
		return "", 0, fmt.Errorf("unterminated accessor %q", s)
	}
	if key == "" {
		return "", 0, fmt.Errorf("empty accessor key")
	}
	if strings.ContainsAny(key, "\\\n") {
		return "", 0, fmt.Errorf("accessor key %q contains escapes", key)
	}
	return key, closeAt + 1, nil
}
