package doctree

import (
	"strings"
)

// DocTree is the root of a document loaded from a non-Markdown source.
type DocTree struct {
	Title    string     // Document title (from metadata or filename)
	Children []*DocNode // Top-level sections
}

// DocNode is a recursive section in the document tree.
type DocNode struct {
	Title    string     // Section heading (empty for leaf text)
	Text     string     // Markdown body of this node (may be empty for container nodes)
	Children []*DocNode // Subsections
}

// Markdown renders the tree as Markdown. Each titled node becomes an ATX
// heading whose level is its depth, capped at 6.
func (t *DocTree) Markdown() string {
	var sb strings.Builder
	for _, child := range t.Children {
		renderNode(&sb, child, 1)
	}
	return sb.String()
}

func renderNode(sb *strings.Builder, n *DocNode, depth int) {
	next := depth
	if n.Title != "" {
		level := min(depth, MaxHeadingLevel)
		writeParagraph(sb, strings.Repeat("#", level)+" "+oneLine(n.Title))
		next = depth + 1
	}
	if t := strings.TrimSpace(n.Text); t != "" {
		writeParagraph(sb, t)
	}
	for _, child := range n.Children {
		renderNode(sb, child, next)
	}
}

func writeParagraph(sb *strings.Builder, s string) {
	if sb.Len() > 0 {
		sb.WriteString("\n")
	}
	sb.WriteString(s)
	sb.WriteString("\n")
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
