package chunker

import (
	"github.com/dgallion1/mdchunk/internal/doctree"
	"github.com/dgallion1/mdchunk/internal/hierarchy"
)

// Segment cuts blocks at every heading of level <= headingLevel. Each segment
// carries the heading path in effect at the heading that opened it; blocks
// before the first qualifying heading form a segment with an empty path.
//
// A segment holding nothing but headings is folded into the next segment when
// the next path extends its own, so "# A\n## B\ntext" is one segment under
// A > B rather than a heading-only fragment followed by the text.
func Segment(blocks []doctree.Block, headingLevel, titleLimit int) []doctree.Segment {
	stack := hierarchy.Stack{TitleLimit: titleLimit}
	var segments []doctree.Segment
	var cur *doctree.Segment

	for _, b := range blocks {
		if b.IsHeading() {
			path := stack.Push(b.Level, b.Title)
			if b.Level <= headingLevel {
				if cur != nil {
					segments = append(segments, *cur)
				}
				cur = &doctree.Segment{Path: path}
			}
		}
		if cur == nil {
			cur = &doctree.Segment{}
		}
		cur.Blocks = append(cur.Blocks, b)
	}
	if cur != nil {
		segments = append(segments, *cur)
	}
	return fold(segments)
}

func fold(segments []doctree.Segment) []doctree.Segment {
	out := make([]doctree.Segment, 0, len(segments))
	var pending []doctree.Block
	var pendingPath doctree.HeadingPath

	for i, seg := range segments {
		if pending != nil {
			if seg.Path.HasPrefix(pendingPath) {
				seg.Blocks = append(pending, seg.Blocks...)
			} else {
				out = append(out, doctree.Segment{Path: pendingPath, Blocks: pending})
			}
			pending, pendingPath = nil, nil
		}
		if hollow(seg) && i+1 < len(segments) {
			pending, pendingPath = seg.Blocks, seg.Path
			continue
		}
		out = append(out, seg)
	}
	return out
}

func hollow(seg doctree.Segment) bool {
	if len(seg.Path) == 0 {
		return false
	}
	for _, b := range seg.Blocks {
		if !b.IsHeading() {
			return false
		}
	}
	return true
}
