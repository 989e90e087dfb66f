package blocks

import (
	"strings"
	"testing"

	"github.com/dgallion1/mdchunk/internal/doctree"
)

func concat(blocks []doctree.Block) string {
	var sb strings.Builder
	for _, b := range blocks {
		sb.WriteString(b.Text)
	}
	return sb.String()
}

func kinds(blocks []doctree.Block) []doctree.BlockKind {
	out := make([]doctree.BlockKind, len(blocks))
	for i, b := range blocks {
		out[i] = b.Kind
	}
	return out
}

func assertKinds(t *testing.T, blocks []doctree.Block, want ...doctree.BlockKind) {
	t.Helper()
	got := kinds(blocks)
	if len(got) != len(want) {
		t.Fatalf("expected kinds %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected kinds %v, got %v", want, got)
		}
	}
}

func TestParse_HeadingsAndParagraphs(t *testing.T) {
	input := "# Title\n\nIntro text.\nStill intro.\n\n## Section A\nBody A.\n"
	blocks := Parse(input)

	assertKinds(t, blocks,
		doctree.KindHeading, doctree.KindContent, doctree.KindHeading, doctree.KindContent)

	if blocks[0].Level != 1 || blocks[0].Title != "Title" {
		t.Errorf("expected level 1 %q, got level %d %q", "Title", blocks[0].Level, blocks[0].Title)
	}
	if blocks[0].Text != "# Title\n\n" {
		t.Errorf("expected blank line attached to heading, got %q", blocks[0].Text)
	}
	if blocks[1].Text != "Intro text.\nStill intro.\n\n" {
		t.Errorf("unexpected paragraph text %q", blocks[1].Text)
	}
	if blocks[2].Level != 2 || blocks[2].Title != "Section A" {
		t.Errorf("expected level 2 %q, got level %d %q", "Section A", blocks[2].Level, blocks[2].Title)
	}
	if got := concat(blocks); got != input {
		t.Errorf("blocks do not reproduce input:\n%q\n%q", input, got)
	}
}

func TestParse_ParagraphsSplitOnBlankLines(t *testing.T) {
	blocks := Parse("one\n\ntwo\n\n\nthree")
	assertKinds(t, blocks, doctree.KindContent, doctree.KindContent, doctree.KindContent)
	if blocks[2].Text != "three" {
		t.Errorf("expected %q, got %q", "three", blocks[2].Text)
	}
}

func TestParse_LeadingBlankLinesJoinFirstBlock(t *testing.T) {
	blocks := Parse("\n\n# A\ntext")
	assertKinds(t, blocks, doctree.KindHeading, doctree.KindContent)
	if blocks[0].Text != "\n\n# A\n" {
		t.Errorf("expected leading blanks on heading, got %q", blocks[0].Text)
	}
}

func TestParse_BlankOnlyDocument(t *testing.T) {
	blocks := Parse("\n  \n")
	assertKinds(t, blocks, doctree.KindContent)
	if blocks[0].Text != "\n  \n" {
		t.Errorf("expected blank text preserved, got %q", blocks[0].Text)
	}
}

func TestParseHeading(t *testing.T) {
	tests := []struct {
		line  string
		level int
		title string
		ok    bool
	}{
		{"# A", 1, "A", true},
		{"###### Six\n", 6, "Six", true},
		{"####### Seven", 0, "", false},
		{"#hashtag", 0, "", false},
		{"## Closed ##", 2, "Closed", true},
		{"## C#", 2, "C#", true},
		{"#\tTabbed", 1, "Tabbed", true},
		{"# ", 0, "", false},
		{" # Indented", 0, "", false},
	}
	for _, tt := range tests {
		level, title, ok := ParseHeading(tt.line)
		if ok != tt.ok || level != tt.level || title != tt.title {
			t.Errorf("ParseHeading(%q) = (%d, %q, %v), expected (%d, %q, %v)",
				tt.line, level, title, ok, tt.level, tt.title, tt.ok)
		}
	}
}

func TestParse_PipeTableIsAtomic(t *testing.T) {
	input := "Before.\n\n| a | b |\n|---|:-:|\n| 1 | 2 |\n| # not heading | 3 |\n\nAfter.\n"
	blocks := Parse(input)

	assertKinds(t, blocks, doctree.KindContent, doctree.KindAtomic, doctree.KindContent)
	if blocks[1].Atomic != doctree.AtomicPipeTable {
		t.Errorf("expected pipe table, got %q", blocks[1].Atomic)
	}
	if !strings.Contains(blocks[1].Text, "# not heading") {
		t.Errorf("expected table to absorb heading-like row, got %q", blocks[1].Text)
	}
	if got := concat(blocks); got != input {
		t.Errorf("blocks do not reproduce input")
	}
}

func TestParse_PipeTableEndsAtHeading(t *testing.T) {
	input := "| a | b |\n|---|---|\n| 1 | 2 |\n# H | x\ntext\n"
	blocks := Parse(input)

	assertKinds(t, blocks, doctree.KindAtomic, doctree.KindHeading, doctree.KindContent)
	if blocks[0].Text != "| a | b |\n|---|---|\n| 1 | 2 |\n" {
		t.Errorf("expected table to stop before the heading, got %q", blocks[0].Text)
	}
	if blocks[1].Level != 1 || blocks[1].Title != "H | x" {
		t.Errorf("expected heading %q, got %+v", "H | x", blocks[1])
	}
	if got := concat(blocks); got != input {
		t.Errorf("blocks do not reproduce input")
	}
}

func TestParse_PipeTableColumnMismatchIsContent(t *testing.T) {
	blocks := Parse("| a | b | c |\n|---|---|\n| 1 | 2 | 3 |\n")
	for _, b := range blocks {
		if b.Kind == doctree.KindAtomic {
			t.Fatalf("expected no atomic block for malformed table, got %q", b.Text)
		}
	}
}

func TestParse_DisplayMath(t *testing.T) {
	input := "Energy:\n\n$$\nE = mc^2\n# not a heading\n$$\n\nDone.\n"
	blocks := Parse(input)

	assertKinds(t, blocks, doctree.KindContent, doctree.KindAtomic, doctree.KindContent)
	if blocks[1].Atomic != doctree.AtomicMath {
		t.Errorf("expected math block, got %q", blocks[1].Atomic)
	}
	if blocks[1].Text != "$$\nE = mc^2\n# not a heading\n$$\n\n" {
		t.Errorf("unexpected math text %q", blocks[1].Text)
	}
}

func TestParse_SingleLineAndBracketMath(t *testing.T) {
	blocks := Parse("$$a+b$$\n\\[\nx\n\\]\n")
	assertKinds(t, blocks, doctree.KindAtomic, doctree.KindAtomic)
}

func TestParse_UnterminatedMathIsContent(t *testing.T) {
	input := "$$\nx + y\n# Heading\ntext\n"
	blocks := Parse(input)

	assertKinds(t, blocks, doctree.KindContent, doctree.KindHeading, doctree.KindContent)
	if got := concat(blocks); got != input {
		t.Errorf("blocks do not reproduce input")
	}
}

func TestParse_HTMLTableWithNesting(t *testing.T) {
	input := "<table>\n<tr><td>\n<table><tr><td>inner</td></tr></table>\n</td></tr>\n# inside\n</table>\ntail\n"
	blocks := Parse(input)

	assertKinds(t, blocks, doctree.KindAtomic, doctree.KindContent)
	if blocks[0].Atomic != doctree.AtomicHTMLTable {
		t.Errorf("expected html table, got %q", blocks[0].Atomic)
	}
	if !strings.HasSuffix(blocks[0].Text, "</table>\n") {
		t.Errorf("expected table to end at outer close tag, got %q", blocks[0].Text)
	}
	if blocks[1].Text != "tail\n" {
		t.Errorf("expected %q, got %q", "tail\n", blocks[1].Text)
	}
}

func TestParse_UnterminatedHTMLTableIsContent(t *testing.T) {
	blocks := Parse("<table>\n<tr><td>x</td></tr>\n# Next\n")
	assertKinds(t, blocks, doctree.KindContent, doctree.KindHeading)
}

func TestParse_FencedCodeHidesHeadings(t *testing.T) {
	input := "```bash\n# install\nmake\n```\n# Real\n"
	blocks := Parse(input)

	assertKinds(t, blocks, doctree.KindContent, doctree.KindHeading)
	if blocks[1].Title != "Real" {
		t.Errorf("expected heading %q, got %q", "Real", blocks[1].Title)
	}
}

func TestParse_Empty(t *testing.T) {
	if blocks := Parse(""); len(blocks) != 0 {
		t.Errorf("expected no blocks, got %d", len(blocks))
	}
}

func TestParse_Lossless(t *testing.T) {
	inputs := []string{
		"no trailing newline",
		"# H\n\n\n| x | y |\n| - | - |\n| 1 | 2 |\n",
		"text\n$$\nunclosed\n\n## H2\nmore\n\n",
		"<table><tr><td>a</td></tr></table>\n\n```\ncode\n```",
	}
	for _, in := range inputs {
		if got := concat(Parse(in)); got != in {
			t.Errorf("expected lossless parse of %q, got %q", in, got)
		}
	}
}
