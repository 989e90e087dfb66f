// Package hierarchy builds heading paths and optionally repairs heading
// levels through an external Corrector.
package hierarchy

import (
	"github.com/dgallion1/mdchunk/internal/doctree"
)

// Stack tracks the open headings while walking a document in order.
// Skipped levels are not synthesized: "# A" followed by "### C" yields the
// path A > C.
type Stack struct {
	// TitleLimit truncates heading texts to this many runes (0 disables).
	TitleLimit int

	entries []doctree.Heading
}

// Push closes every open heading at level or deeper, opens the new one and
// returns a copy of the resulting path.
func (s *Stack) Push(level int, title string) doctree.HeadingPath {
	for len(s.entries) > 0 && s.entries[len(s.entries)-1].Level >= level {
		s.entries = s.entries[:len(s.entries)-1]
	}
	s.entries = append(s.entries, doctree.Heading{Level: level, Text: truncate(title, s.TitleLimit)})
	return s.Path()
}

// Path returns a copy of the open headings, root first.
func (s *Stack) Path() doctree.HeadingPath {
	return doctree.HeadingPath(s.entries).Clone()
}

func truncate(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	n := 0
	for i := range s {
		if n == limit {
			return s[:i]
		}
		n++
	}
	return s
}

// Headings lists what the corrector is asked about, in document order: every
// heading block and every short paragraph that may be an unmarked heading.
func Headings(blocks []doctree.Block) []doctree.Heading {
	var out []doctree.Heading
	for _, b := range blocks {
		if h, ok := target(b); ok {
			out = append(out, h)
		}
	}
	return out
}
