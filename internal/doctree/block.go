package doctree

import "strings"

// Heading levels accepted by the engine.
const (
	MinHeadingLevel = 1
	MaxHeadingLevel = 6
)

// BlockKind classifies a parsed block.
type BlockKind int

const (
	KindContent BlockKind = iota
	KindHeading
	KindAtomic
)

func (k BlockKind) String() string {
	switch k {
	case KindHeading:
		return "heading"
	case KindAtomic:
		return "atomic"
	default:
		return "content"
	}
}

// Atomic block flavours.
const (
	AtomicPipeTable = "pipe_table"
	AtomicHTMLTable = "html_table"
	AtomicMath      = "math"
)

// Block is one contiguous span of the normalized document.
// Concatenating the Text of every block in order yields the document.
type Block struct {
	Kind   BlockKind
	Text   string // Exact source span, including line terminators
	Level  int    // Heading level (headings only)
	Title  string // Heading text without markers (headings only)
	Atomic string // Atomic flavour (atomic blocks only)
}

// IsHeading reports whether b is a heading block.
func (b Block) IsHeading() bool { return b.Kind == KindHeading }

// Heading is one entry of a heading path. Candidate marks a plain paragraph
// offered to the corrector as a possible heading; path entries never set it.
type Heading struct {
	Level     int    `json:"level"`
	Text      string `json:"text"`
	Candidate bool   `json:"candidate,omitempty"`
}

// HeadingPath is the lineage from the document root to a heading.
// Levels strictly increase from root to leaf.
type HeadingPath []Heading

// String renders the path as "A > B > C".
func (p HeadingPath) String() string {
	return strings.Join(p.Titles(), " > ")
}

// Titles returns the heading texts, root first.
func (p HeadingPath) Titles() []string {
	if len(p) == 0 {
		return nil
	}
	out := make([]string, len(p))
	for i, h := range p {
		out[i] = h.Text
	}
	return out
}

// HasPrefix reports whether prefix is a leading sub-path of p.
func (p HeadingPath) HasPrefix(prefix HeadingPath) bool {
	if len(prefix) > len(p) {
		return false
	}
	for i := range prefix {
		if p[i] != prefix[i] {
			return false
		}
	}
	return true
}

// Clone returns an independent copy of p.
func (p HeadingPath) Clone() HeadingPath {
	if len(p) == 0 {
		return nil
	}
	out := make(HeadingPath, len(p))
	copy(out, p)
	return out
}

// Segment is a run of blocks that share one heading path.
type Segment struct {
	Path   HeadingPath
	Blocks []Block
}

// Chunk is a sized text segment with structural context, ready for retrieval.
type Chunk struct {
	Index   int         // Sequence number within document
	Path    HeadingPath // Heading lineage of the owning segment
	Content string      // Chunk body, without metadata
}
