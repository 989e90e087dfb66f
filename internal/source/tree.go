package source

import (
	"strings"

	"github.com/dgallion1/mdchunk/internal/doctree"
)

type stackEntry struct {
	node  *doctree.DocNode
	level int
}

// treeBuilder nests sections by heading level for the structured loaders.
type treeBuilder struct {
	root  *doctree.DocNode
	stack []stackEntry
}

func newTreeBuilder() *treeBuilder {
	root := &doctree.DocNode{}
	return &treeBuilder{root: root, stack: []stackEntry{{node: root}}}
}

// heading opens a section, closing every open section at level or deeper.
func (b *treeBuilder) heading(level int, title string) {
	if title == "" {
		return
	}
	node := &doctree.DocNode{Title: title}
	for len(b.stack) > 1 && b.stack[len(b.stack)-1].level >= level {
		b.stack = b.stack[:len(b.stack)-1]
	}
	parent := b.stack[len(b.stack)-1].node
	parent.Children = append(parent.Children, node)
	b.stack = append(b.stack, stackEntry{node: node, level: level})
}

// paragraph appends text to the innermost open section.
func (b *treeBuilder) paragraph(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	top := b.stack[len(b.stack)-1].node
	if top.Text != "" {
		top.Text += "\n\n" + text
	} else {
		top.Text = text
	}
}

// children returns the top-level sections, with text that preceded the
// first heading as an untitled leading node.
func (b *treeBuilder) children() []*doctree.DocNode {
	if b.root.Text == "" {
		return b.root.Children
	}
	lead := &doctree.DocNode{Text: b.root.Text}
	return append([]*doctree.DocNode{lead}, b.root.Children...)
}
