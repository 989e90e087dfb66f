package chunker

import (
	"strings"

	"github.com/dgallion1/mdchunk/internal/doctree"
)

// WithMetadata prefixes body with the metadata header for title and path.
// The Title line is omitted when title is empty.
func WithMetadata(title string, path doctree.HeadingPath, body string) string {
	var sb strings.Builder
	sb.WriteString("<metadata>\n")
	if title != "" {
		sb.WriteString("<Title>")
		sb.WriteString(title)
		sb.WriteString("</Title>\n")
	}
	sb.WriteString("<Headings>")
	sb.WriteString(path.String())
	sb.WriteString("</Headings>\n")
	sb.WriteString("</metadata>\n\n")
	sb.WriteString(body)
	return sb.String()
}
