package textedit

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// FindMatches returns the 1-based line numbers on which the pattern occurs.
// The result is computed eagerly; line numbers stay valid for follow-up
// range operations as long as the content is unchanged.
func FindMatches(content, pattern string, useRegex, caseSensitive bool) ([]int, error) {
	match, err := newMatcher(pattern, useRegex, caseSensitive)
	if err != nil {
		return nil, err
	}

	var lines []int
	for i, line := range parse(content).lines {
		if match(line) {
			lines = append(lines, i+1)
		}
	}
	return lines, nil
}

func newMatcher(pattern string, useRegex, caseSensitive bool) (func(string) bool, error) {
	if useRegex {
		re, err := compilePattern(pattern, caseSensitive)
		if err != nil {
			return nil, err
		}
		return re.MatchString, nil
	}
	if caseSensitive {
		return func(line string) bool { return strings.Contains(line, pattern) }, nil
	}
	lower := strings.ToLower(pattern)
	return func(line string) bool {
		return strings.Contains(strings.ToLower(line), lower)
	}, nil
}

// newSubstituter builds a per-line substitution function for PatternReplace.
func newSubstituter(pattern, replacement string, useRegex, caseSensitive bool) (func(string) string, error) {
	if useRegex {
		re, err := compilePattern(pattern, caseSensitive)
		if err != nil {
			return nil, err
		}
		return func(line string) string {
			return re.ReplaceAllString(line, replacement)
		}, nil
	}
	if caseSensitive {
		return func(line string) string {
			return strings.ReplaceAll(line, pattern, replacement)
		}, nil
	}
	return func(line string) string {
		return replaceAllFold(line, pattern, replacement)
	}, nil
}

func compilePattern(pattern string, caseSensitive bool) (*regexp.Regexp, error) {
	expr := pattern
	if !caseSensitive {
		expr = "(?i)" + expr
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("compiling pattern %q: %w", pattern, err)
	}
	return re, nil
}

// replaceAllFold replaces every case-insensitive occurrence of old with new,
// preserving the unmatched text exactly. Matching folds rune by rune so that
// runes whose byte length changes under lowercasing never shift offsets.
func replaceAllFold(s, old, new string) string {
	if old == "" {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); {
		if n, ok := foldPrefixLen(s[i:], old); ok {
			b.WriteString(new)
			i += n
			continue
		}
		_, size := utf8.DecodeRuneInString(s[i:])
		b.WriteString(s[i : i+size])
		i += size
	}
	return b.String()
}

// foldPrefixLen reports whether s starts with a case-insensitive match of
// target, returning the byte length of the matched prefix within s.
func foldPrefixLen(s, target string) (int, bool) {
	i := 0
	for _, tr := range target {
		if i >= len(s) {
			return 0, false
		}
		sr, size := utf8.DecodeRuneInString(s[i:])
		if sr != tr && unicode.ToLower(sr) != unicode.ToLower(tr) {
			return 0, false
		}
		i += size
	}
	return i, true
}
