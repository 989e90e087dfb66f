package chunker

import (
	"strings"
	"testing"

	"github.com/dgallion1/mdchunk/internal/blocks"
	"github.com/dgallion1/mdchunk/internal/doctree"
)

func paths(segments []doctree.Segment) []string {
	out := make([]string, len(segments))
	for i, s := range segments {
		out[i] = s.Path.String()
	}
	return out
}

func segmentText(seg doctree.Segment) string {
	var sb strings.Builder
	for _, b := range seg.Blocks {
		sb.WriteString(b.Text)
	}
	return sb.String()
}

func assertPaths(t *testing.T, segments []doctree.Segment, want ...string) {
	t.Helper()
	got := paths(segments)
	if len(got) != len(want) {
		t.Fatalf("expected paths %q, got %q", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected paths %q, got %q", want, got)
		}
	}
}

func TestSegment_Preamble(t *testing.T) {
	segs := Segment(blocks.Parse("intro\n\n# A\nbody\n"), 3, 0)
	assertPaths(t, segs, "", "A")
	if segmentText(segs[0]) != "intro\n\n" {
		t.Errorf("unexpected preamble %q", segmentText(segs[0]))
	}
}

func TestSegment_DeepHeadingsStayInside(t *testing.T) {
	segs := Segment(blocks.Parse("# A\ntext\n#### Deep\nmore\n## B\nend\n"), 2, 0)
	assertPaths(t, segs, "A", "A > B")
	if len(segs[0].Blocks) != 4 {
		t.Errorf("expected deep heading inside the first segment, got %d blocks", len(segs[0].Blocks))
	}
}

func TestSegment_FoldsHeadingOnlySegments(t *testing.T) {
	segs := Segment(blocks.Parse("# A\n## B\n### C\ncontent"), 3, 0)
	assertPaths(t, segs, "A > B > C")
	if segmentText(segs[0]) != "# A\n## B\n### C\ncontent" {
		t.Errorf("expected folded headings to keep their text, got %q", segmentText(segs[0]))
	}
}

func TestSegment_KeepsUnrelatedHeadingOnlySegment(t *testing.T) {
	segs := Segment(blocks.Parse("## B\n# C\ntext\n"), 3, 0)
	assertPaths(t, segs, "B", "C")
}

func TestSegment_GapInLevels(t *testing.T) {
	segs := Segment(blocks.Parse("# A\nx\n### C\ny\n"), 3, 0)
	assertPaths(t, segs, "A", "A > C")
	if segs[1].Path[1].Level != 3 {
		t.Errorf("expected gap to be kept, got level %d", segs[1].Path[1].Level)
	}
}

func TestSegment_TitleLimit(t *testing.T) {
	segs := Segment(blocks.Parse("# Introduction\ntext\n"), 3, 5)
	assertPaths(t, segs, "Intro")
}
