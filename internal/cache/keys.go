package cache

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMissingParam = errors.New("missing key parameter")
	ErrBadPattern   = errors.New("malformed key pattern")
)

// Args are the named parameters substituted into a key pattern.
type Args map[string]any

func (a Args) CacheArgs() Args {
	return a
}

// Binder exposes the named parameters of a call for key building.
type Binder interface {
	CacheArgs() Args
}

// FormatKey replaces every {name} placeholder in pattern with the matching
// value from args. Text outside placeholders, glob characters included, is
// copied verbatim.
func FormatKey(pattern string, args Args) (string, error) {
	var b strings.Builder
	b.Grow(len(pattern) + 32)

	rest := pattern
	for {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			if strings.IndexByte(rest, '}') >= 0 {
				return "", fmt.Errorf("%w: unmatched '}' in %q", ErrBadPattern, pattern)
			}
			b.WriteString(rest)
			return b.String(), nil
		}

		if strings.IndexByte(rest[:open], '}') >= 0 {
			return "", fmt.Errorf("%w: unmatched '}' in %q", ErrBadPattern, pattern)
		}
		b.WriteString(rest[:open])

		end := strings.IndexByte(rest[open:], '}')
		if end < 0 {
			return "", fmt.Errorf("%w: unclosed '{' in %q", ErrBadPattern, pattern)
		}

		name := rest[open+1 : open+end]
		if name == "" || strings.ContainsRune(name, '{') {
			return "", fmt.Errorf("%w: bad placeholder in %q", ErrBadPattern, pattern)
		}

		val, ok := args[name]
		if !ok || val == nil {
			return "", fmt.Errorf("%w: %q", ErrMissingParam, name)
		}
		fmt.Fprint(&b, val)

		rest = rest[open+end+1:]
	}
}

// EscapeGlob quotes the characters SCAN MATCH treats as wildcards so s only
// ever matches itself.
func EscapeGlob(s string) string {
	if !strings.ContainsAny(s, `*?[]\`) {
		return s
	}

	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
