package blocks

import (
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
	"golang.org/x/net/html"
)

// mathAt returns the number of lines of a display formula opened at line i
// ("$$" or "\["), or 0 when the line opens nothing or the formula is never
// closed.
func mathAt(lines []string, i int) int {
	t := strings.TrimSpace(lines[i])
	var closer string
	switch {
	case strings.HasPrefix(t, "$$"):
		closer = "$$"
	case strings.HasPrefix(t, `\[`):
		closer = `\]`
	default:
		return 0
	}
	if strings.Contains(t[2:], closer) {
		return 1
	}
	for j := i + 1; j < len(lines); j++ {
		if strings.Contains(lines[j], closer) {
			return j - i + 1
		}
	}
	return 0
}

var tableOpenRe = regexp.MustCompile(`(?i)^<table[\s>]`)

// htmlTableAt returns the number of lines spanned by an HTML table opened at
// line i, up to and including the line holding its matching </table>.
func (s *scanner) htmlTableAt(i int) int {
	t := strings.TrimLeft(s.lines[i], " \t")
	if !tableOpenRe.MatchString(t) {
		return 0
	}
	start := s.offsets[i]
	end := htmlTableEnd(s.text[start:])
	if end < 0 {
		return 0
	}
	last := start + end - 1
	j := i
	for j+1 < len(s.lines) && s.offsets[j+1] <= last {
		j++
	}
	return j - i + 1
}

// htmlTableEnd returns the byte offset just past the </table> that closes the
// first table in src, honouring nested tables. It returns -1 when the table
// is never closed.
func htmlTableEnd(src string) int {
	z := html.NewTokenizer(strings.NewReader(src))
	depth := 0
	offset := 0
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			return -1
		}
		offset += len(z.Raw())

		switch tt {
		case html.StartTagToken:
			if name, _ := z.TagName(); string(name) == "table" {
				depth++
			}
		case html.EndTagToken:
			if name, _ := z.TagName(); string(name) == "table" {
				depth--
				if depth == 0 {
					return offset
				}
			}
		}
	}
}

var delimiterRowRe = regexp.MustCompile(`^\|?(\s*:?-+:?\s*\|)*\s*:?-+:?\s*\|?$`)

// pipeTableAt returns the number of lines of a GFM pipe table whose header
// row is line i. The candidate rows are confirmed with goldmark's table
// extension so that header/delimiter mismatches stay plain content.
func pipeTableAt(lines []string, i int) int {
	if i+1 >= len(lines) || !isPipeRow(lines[i]) {
		return 0
	}
	delim := strings.TrimSpace(lines[i+1])
	if !strings.Contains(delim, "|") || !delimiterRowRe.MatchString(delim) {
		return 0
	}
	j := i + 2
	for j < len(lines) && isPipeRow(lines[j]) && !interruptsTable(lines[j]) {
		j++
	}
	if !isTable(strings.Join(lines[i:j], "")) {
		return 0
	}
	return j - i
}

// interruptsTable reports whether line opens a block that ends a table
// even though it contains a pipe.
func interruptsTable(line string) bool {
	if _, _, ok := ParseHeading(line); ok {
		return true
	}
	t := strings.TrimLeft(line, " ")
	return len(line)-len(t) <= 3 && (fenceMarker(t) != "" || strings.HasPrefix(t, ">"))
}

func isPipeRow(line string) bool {
	t := strings.TrimSpace(line)
	return t != "" && strings.Contains(t, "|")
}

func isTable(src string) bool {
	md := goldmark.New(goldmark.WithExtensions(extension.Table))
	doc := md.Parser().Parse(text.NewReader([]byte(src)))
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		if n.Kind() == extast.KindTable {
			return true
		}
	}
	return false
}
