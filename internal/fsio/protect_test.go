package fsio

import (
	"testing"
)

func TestNewProtectMatcher(t *testing.T) {
	t.Run("skips blank lines and comments", func(t *testing.T) {
		t.Parallel()
		m := NewProtectMatcher([]string{"", "  ", "# comment", "*.lock"})
		if len(m.patterns) != 1 {
			t.Fatalf("expected 1 pattern, got %d", len(m.patterns))
		}
		if m.patterns[0].pattern != "*.lock" {
			t.Errorf("expected *.lock, got %s", m.patterns[0].pattern)
		}
	})

	t.Run("classifies path vs basename patterns", func(t *testing.T) {
		t.Parallel()
		m := NewProtectMatcher([]string{"*.lock", "/etc/**"})
		if m.patterns[0].matchPath {
			t.Error("*.lock should not be a path pattern")
		}
		if !m.patterns[1].matchPath {
			t.Error("/etc/** should be a path pattern")
		}
	})
}

func TestProtectMatcher_Match(t *testing.T) {
	tests := []struct {
		name     string
		patterns []string
		path     string
		want     bool
	}{
		{
			name:     "basename glob matches anywhere",
			patterns: []string{"*.lock"},
			path:     "/home/user/project/go.lock",
			want:     true,
		},
		{
			name:     "basename glob does not match other extension",
			patterns: []string{"*.lock"},
			path:     "/home/user/project/go.mod",
			want:     false,
		},
		{
			name:     "exact basename",
			patterns: []string{".env"},
			path:     "/srv/app/.env",
			want:     true,
		},
		{
			name:     "path pattern with doublestar",
			patterns: []string{"/etc/**"},
			path:     "/etc/ssh/sshd_config",
			want:     true,
		},
		{
			name:     "path pattern outside tree",
			patterns: []string{"/etc/**"},
			path:     "/home/user/etc-notes.txt",
			want:     false,
		},
		{
			name:     "doublestar spans directories mid-pattern",
			patterns: []string{"/home/**/secrets/*"},
			path:     "/home/user/a/b/secrets/key.pem",
			want:     true,
		},
		{
			name:     "no patterns matches nothing",
			patterns: nil,
			path:     "/anything",
			want:     false,
		},
		{
			name:     "multiple patterns second matches",
			patterns: []string{"*.lock", "*.pem"},
			path:     "/tmp/key.pem",
			want:     true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m := NewProtectMatcher(tt.patterns)
			got := m.Match(tt.path)
			if got != tt.want {
				t.Errorf("Match(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}
