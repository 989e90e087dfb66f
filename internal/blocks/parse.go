// Package blocks scans normalized Markdown into an ordered sequence of
// heading, atomic and content blocks.
package blocks

import (
	"regexp"
	"strings"

	"github.com/dgallion1/mdchunk/internal/doctree"
)

// Parse splits text into blocks. The blocks partition text exactly:
// concatenating their Text fields in order reproduces the input.
func Parse(text string) []doctree.Block {
	if text == "" {
		return nil
	}
	s := newScanner(text)
	s.run()
	return s.blocks
}

type scanner struct {
	text    string
	lines   []string
	offsets []int // byte offset of each line in text

	blocks   []doctree.Block
	para     strings.Builder
	paraOpen bool
	lead     string // blank lines seen before the first block
}

func newScanner(text string) *scanner {
	lines := strings.SplitAfter(text, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	offsets := make([]int, len(lines))
	off := 0
	for i, l := range lines {
		offsets[i] = off
		off += len(l)
	}
	return &scanner{text: text, lines: lines, offsets: offsets}
}

func (s *scanner) run() {
	for i := 0; i < len(s.lines); {
		line := s.lines[i]

		if isBlank(line) {
			s.blank(line)
			i++
			continue
		}

		// Atomic regions win over everything else, so headings inside a
		// formula or a table are absorbed.
		if n, kind := s.atomicAt(i); n > 0 {
			s.flushPara()
			s.emit(doctree.Block{
				Kind:   doctree.KindAtomic,
				Text:   s.join(i, n),
				Atomic: kind,
			})
			i += n
			continue
		}

		if n := fenceAt(s.lines, i); n > 0 {
			s.flushPara()
			s.emit(doctree.Block{Kind: doctree.KindContent, Text: s.join(i, n)})
			i += n
			continue
		}

		if level, title, ok := ParseHeading(line); ok {
			s.flushPara()
			s.emit(doctree.Block{
				Kind:  doctree.KindHeading,
				Text:  line,
				Level: level,
				Title: title,
			})
			i++
			continue
		}

		if !s.paraOpen {
			s.flushPara()
			s.paraOpen = true
		}
		s.para.WriteString(line)
		i++
	}
	s.flushPara()

	// Document of blank lines only.
	if s.lead != "" {
		s.blocks = append(s.blocks, doctree.Block{Kind: doctree.KindContent, Text: s.lead})
		s.lead = ""
	}
}

func (s *scanner) atomicAt(i int) (int, string) {
	if n := mathAt(s.lines, i); n > 0 {
		return n, doctree.AtomicMath
	}
	if n := s.htmlTableAt(i); n > 0 {
		return n, doctree.AtomicHTMLTable
	}
	if n := pipeTableAt(s.lines, i); n > 0 {
		return n, doctree.AtomicPipeTable
	}
	return 0, ""
}

// blank attaches a blank line to whatever precedes it.
func (s *scanner) blank(line string) {
	switch {
	case s.para.Len() > 0:
		s.para.WriteString(line)
		s.paraOpen = false
	case len(s.blocks) > 0:
		s.blocks[len(s.blocks)-1].Text += line
	default:
		s.lead += line
	}
}

func (s *scanner) flushPara() {
	if s.para.Len() > 0 {
		s.emit(doctree.Block{Kind: doctree.KindContent, Text: s.para.String()})
		s.para.Reset()
	}
	s.paraOpen = false
}

func (s *scanner) emit(b doctree.Block) {
	if s.lead != "" {
		b.Text = s.lead + b.Text
		s.lead = ""
	}
	s.blocks = append(s.blocks, b)
}

// join returns lines [i, i+n) as one string.
func (s *scanner) join(i, n int) string {
	end := len(s.text)
	if i+n < len(s.lines) {
		end = s.offsets[i+n]
	}
	return s.text[s.offsets[i]:end]
}

func isBlank(line string) bool {
	return strings.TrimSpace(line) == ""
}

var headingRe = regexp.MustCompile(`^(#{1,6})[ \t]+(.*)$`)

// ParseHeading recognizes an ATX heading line. A closing run of '#' is
// dropped from the title; a heading with an empty title is not a heading.
func ParseHeading(line string) (level int, title string, ok bool) {
	m := headingRe.FindStringSubmatch(strings.TrimRight(line, "\n"))
	if m == nil {
		return 0, "", false
	}
	title = strings.TrimSpace(m[2])
	if trimmed := strings.TrimRight(title, "#"); trimmed != title {
		if trimmed == "" || strings.HasSuffix(trimmed, " ") || strings.HasSuffix(trimmed, "\t") {
			title = strings.TrimSpace(trimmed)
		}
	}
	if title == "" {
		return 0, "", false
	}
	return len(m[1]), title, true
}

// fenceAt returns the number of lines of a terminated code fence starting at
// line i, or 0. Fences are content, but their lines are never headings.
func fenceAt(lines []string, i int) int {
	line := strings.TrimRight(lines[i], "\n")
	t := strings.TrimLeft(line, " ")
	if len(line)-len(t) > 3 {
		return 0
	}
	marker := fenceMarker(t)
	if marker == "" {
		return 0
	}
	for j := i + 1; j < len(lines); j++ {
		c := strings.TrimSpace(lines[j])
		if strings.HasPrefix(c, marker) && strings.Trim(c, marker[:1]) == "" {
			return j - i + 1
		}
	}
	return 0
}

func fenceMarker(t string) string {
	for _, ch := range []byte{'`', '~'} {
		n := 0
		for n < len(t) && t[n] == ch {
			n++
		}
		if n >= 3 {
			return t[:n]
		}
	}
	return ""
}
