package corrector

import (
	"fmt"
	"strings"

	"github.com/dgallion1/mdchunk/internal/doctree"
)

const SystemPrompt = "You are a document structure expert. Analyze heading hierarchies and correct heading levels to reflect proper document structure."

const instructions = `Please return a JSON array with corrected levels. Each item must have:
- "index": the heading number (1-based)
- "level": the corrected heading level
  - 1-6 for real headings (H1-H6)
  - 7 when the line is NOT a heading (a sentence fragment, a formula reference, a bare number like "(1)", a lead-in phrase ending in a colon)
- "title": the original title, unchanged

Return exactly one item per heading, in the same order. Adjacent headings at the same level must share the same parent, and a heading may be at most one level deeper than the heading before it.

Example:
[
  {"index": 1, "level": 1, "title": "Introduction"},
  {"index": 2, "level": 2, "title": "Background"},
  {"index": 3, "level": 7, "title": "where:"},
  {"index": 4, "level": 2, "title": "Objectives"}
]

Respond with ONLY the JSON array, no other text.`

// BuildPrompt lists the headings, numbered from 1 with their current "#"
// markers (or [Potential] for candidates), followed by the answer format.
func BuildPrompt(headings []doctree.Heading) string {
	var sb strings.Builder
	sb.WriteString("I have a markdown document with the following headings. Their levels were produced by a document converter and are often wrong. ")
	sb.WriteString("Lines marked [Potential] are short single-line paragraphs that may be headings the converter did not mark.\n\n")
	sb.WriteString("Analyze the content and semantic relationships of these headings, then assign heading levels that reflect the real document structure.\n\n")
	sb.WriteString("Current headings:\n")
	for i, h := range headings {
		marker := strings.Repeat("#", h.Level)
		if h.Candidate {
			marker = "[Potential]"
		}
		fmt.Fprintf(&sb, "%d. %s %s\n", i+1, marker, h.Text)
	}
	sb.WriteString("\n")
	sb.WriteString(instructions)
	return sb.String()
}
