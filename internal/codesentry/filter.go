package codesentry

import (
	"github.com/bmatcuk/doublestar/v4"

	"github.com/colonyops/codesentry/internal/core/hosting"
)

// Filter hides listing entries whose repository path matches any of its
// doublestar patterns.
type Filter struct {
	patterns []string
}

// NewFilter creates a filter. Invalid patterns never match; config
// validation reports them.
func NewFilter(patterns []string) Filter {
	return Filter{patterns: patterns}
}

// Hidden reports whether path matches a pattern.
func (f Filter) Hidden(path string) bool {
	for _, p := range f.patterns {
		if ok, err := doublestar.Match(p, path); err == nil && ok {
			return true
		}
	}
	return false
}

// Apply returns the visible entries, preserving order.
func (f Filter) Apply(entries []hosting.TreeEntry) []hosting.TreeEntry {
	if len(f.patterns) == 0 {
		return entries
	}
	out := make([]hosting.TreeEntry, 0, len(entries))
	for _, e := range entries {
		if !f.Hidden(e.Path) {
			out = append(out, e)
		}
	}
	return out
}
