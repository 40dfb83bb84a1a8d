package fsio

import (
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// ProtectMatcher checks file paths against a set of protected-path
// patterns. Patterns without '/' match against the file's basename
// only. Patterns with '/' match against the full absolute path, with
// '**' available for spanning directories.
type ProtectMatcher struct {
	patterns []protectPattern
}

type protectPattern struct {
	pattern   string
	matchPath bool // true = match against full path; false = match against basename only
}

// NewProtectMatcher creates a ProtectMatcher from raw pattern strings.
// Blank lines and lines starting with '#' are skipped.
func NewProtectMatcher(rawPatterns []string) *ProtectMatcher {
	var patterns []protectPattern
	for _, raw := range rawPatterns {
		raw = strings.TrimSpace(raw)
		if raw == "" || strings.HasPrefix(raw, "#") {
			continue
		}
		patterns = append(patterns, protectPattern{
			pattern:   raw,
			matchPath: strings.Contains(raw, "/"),
		})
	}
	return &ProtectMatcher{patterns: patterns}
}

// Match reports whether the given path is protected.
func (m *ProtectMatcher) Match(path string) bool {
	if len(m.patterns) == 0 {
		return false
	}

	normalized := filepath.ToSlash(path)
	basename := filepath.Base(path)

	for _, p := range m.patterns {
		var matched bool
		var err error
		if p.matchPath {
			matched, err = doublestar.Match(p.pattern, normalized)
		} else {
			matched, err = doublestar.Match(p.pattern, basename)
		}
		if err != nil {
			// Bad pattern, skip rather than refuse everything.
			continue
		}
		if matched {
			return true
		}
	}
	return false
}
