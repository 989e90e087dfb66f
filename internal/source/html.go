package source

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"

	"github.com/dgallion1/mdchunk/internal/doctree"
)

// HTMLLoader turns h1-h6 into Markdown headings and keeps tables as raw
// HTML so the chunker treats them as atomic blocks.
type HTMLLoader struct{}

func (l *HTMLLoader) Load(r io.Reader, filename string) (Document, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return Document{}, fmt.Errorf("parse html: %w", err)
	}

	tree := &doctree.DocTree{Title: baseTitle(filename)}
	if title := findTitle(doc); title != "" {
		tree.Title = title
	}

	b := newTreeBuilder()
	var walk func(*html.Node) error
	walk = func(n *html.Node) error {
		if n.Type == html.ElementNode {
			if level := headingLevel(n.Data); level > 0 {
				b.heading(level, textContent(n))
				return nil
			}

			switch n.Data {
			case "script", "style", "nav", "footer", "header", "title", "head":
				return nil
			case "table":
				var sb strings.Builder
				if err := html.Render(&sb, n); err != nil {
					return fmt.Errorf("render table: %w", err)
				}
				b.paragraph(sb.String())
				return nil
			case "pre":
				b.paragraph("```\n" + strings.Trim(rawText(n), "\n") + "\n```")
				return nil
			case "p", "li", "blockquote", "dt", "dd", "figcaption":
				b.paragraph(textContent(n))
				return nil
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if err := walk(c); err != nil {
				return err
			}
		}
		return nil
	}

	root := findBody(doc)
	if root == nil {
		root = doc
	}
	if err := walk(root); err != nil {
		return Document{}, err
	}
	tree.Children = b.children()

	return Document{Title: tree.Title, Markdown: tree.Markdown()}, nil
}

func headingLevel(tag string) int {
	if len(tag) == 2 && tag[0] == 'h' && tag[1] >= '1' && tag[1] <= '6' {
		return int(tag[1] - '0')
	}
	return 0
}

// textContent collapses the node's text onto one line.
func textContent(n *html.Node) string {
	return strings.Join(strings.Fields(rawText(n)), " ")
}

func rawText(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return buf.String()
}

func findTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "title" {
		return textContent(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := findTitle(c); t != "" {
			return t
		}
	}
	return ""
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "body" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}
