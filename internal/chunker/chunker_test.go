package chunker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/dgallion1/mdchunk/internal/blocks"
	"github.com/dgallion1/mdchunk/internal/doctree"
	"github.com/dgallion1/mdchunk/internal/hierarchy"
	"github.com/dgallion1/mdchunk/internal/preprocess"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func plainOptions() Options {
	opts := DefaultOptions()
	opts.AddMetadata = false
	return opts
}

func fixedCorrector(levels ...int) CorrectorFactory {
	return func(string, string, string) hierarchy.Corrector {
		return hierarchy.CorrectorFunc(func(context.Context, []doctree.Heading) ([]int, error) {
			return levels, nil
		})
	}
}

func pipeTable(rows int) string {
	var sb strings.Builder
	sb.WriteString("| name | value |\n|------|-------|\n")
	for i := 0; i < rows; i++ {
		sb.WriteString("| " + strings.Repeat("a", 40) + " | 1 |\n")
	}
	return sb.String()
}

func mixedDocument() string {
	return "Preamble before any heading.\n\n" +
		"# Guide\n\nIntro paragraph.\n\n" +
		"## Install\n" + strings.Repeat("Run the installer and follow the prompts. ", 80) + "\n\n" +
		"### Linux\n```sh\n# not a heading\nmake install\n```\n\n" +
		"## Reference\n" + pipeTable(60) + "\n" +
		"$$\nE = mc^2\n$$\n\n" +
		"#### Deep detail\n" + strings.Repeat("行文字", 900) + "\n"
}

func bodies(chunks []doctree.Chunk) string {
	var sb strings.Builder
	for _, c := range chunks {
		sb.WriteString(c.Content)
	}
	return sb.String()
}

func TestEngine_HeadingPathScenario(t *testing.T) {
	chunks, err := New(nil, quietLogger()).Chunk(context.Background(), "# A\n## B\n### C\ncontent", plainOptions())
	if err != nil {
		t.Fatalf("chunk: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if got := chunks[0].Path.String(); got != "A > B > C" {
		t.Errorf("expected path %q, got %q", "A > B > C", got)
	}
}

func TestEngine_OversizedSegmentScenario(t *testing.T) {
	input := "# Title\n## A\nshort text\n## B\n" + strings.Repeat("x", 3000)
	opts := plainOptions()
	opts.HeadingLevel = 2

	got, err := New(nil, quietLogger()).Chunk(context.Background(), input, opts)
	if err != nil {
		t.Fatalf("chunk: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(got))
	}

	wantPaths := []string{"Title > A", "Title > B", "Title > B"}
	for i, want := range wantPaths {
		if p := got[i].Path.String(); p != want {
			t.Errorf("chunk %d: expected path %q, got %q", i, want, p)
		}
		if n := utf8.RuneCountInString(got[i].Content); n > 2000 {
			t.Errorf("chunk %d: %d runes exceeds limit", i, n)
		}
	}
	if got[0].Content != "# Title\n## A\nshort text\n" {
		t.Errorf("unexpected first chunk %q", got[0].Content)
	}
	if got[1].Content != "## B\n"+strings.Repeat("x", 1995) {
		t.Errorf("expected second chunk to fill the limit, got %d runes", utf8.RuneCountInString(got[1].Content))
	}
	if got[2].Content != strings.Repeat("x", 1005) {
		t.Errorf("expected third chunk of 1005 runes, got %d", utf8.RuneCountInString(got[2].Content))
	}
	if bodies(got) != input {
		t.Error("expected chunks to reproduce the input without overlap")
	}
}

func TestEngine_Lossless(t *testing.T) {
	inputs := []string{
		mixedDocument(),
		"no headings at all\n\njust text",
		"# Only a heading",
		"\n\n\n# Leading blanks\n\nbody\n\n\n",
	}
	variants := []Options{plainOptions(), func() Options {
		o := plainOptions()
		o.HeadingLevel = 1
		o.RemoveExtraSpaces = true
		return o
	}()}

	e := New(nil, quietLogger())
	for _, opts := range variants {
		for _, in := range inputs {
			chunks, err := e.Chunk(context.Background(), in, opts)
			if err != nil {
				t.Fatalf("chunk: %v", err)
			}
			want := preprocess.Run(in, preprocess.Options{RemoveExtraSpaces: opts.RemoveExtraSpaces})
			if got := bodies(chunks); got != want {
				t.Errorf("expected lossless reconstruction for %.30q", in)
			}
			for i, c := range chunks {
				if c.Index != i {
					t.Errorf("chunk %d: expected index %d, got %d", i, i, c.Index)
				}
			}
		}
	}
}

func TestEngine_SizeBound(t *testing.T) {
	chunks, err := New(nil, quietLogger()).Chunk(context.Background(), mixedDocument(), plainOptions())
	if err != nil {
		t.Fatalf("chunk: %v", err)
	}
	for i, c := range chunks {
		if utf8.RuneCountInString(c.Content) <= 2000 {
			continue
		}
		b := blocks.Parse(c.Content)
		if len(b) != 1 || b[0].Kind != doctree.KindAtomic {
			t.Errorf("chunk %d exceeds the limit without being a single atomic block", i)
		}
	}
}

func TestEngine_TableStaysWhole(t *testing.T) {
	table := pipeTable(60)
	if utf8.RuneCountInString(table) <= 2000 {
		t.Fatalf("test table too small: %d", len(table))
	}
	input := "Intro.\n\n" + table + "\nAfter.\n"

	chunks, err := New(nil, quietLogger()).Chunk(context.Background(), input, plainOptions())
	if err != nil {
		t.Fatalf("chunk: %v", err)
	}
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	if chunks[1].Content != table+"\n" {
		t.Errorf("expected the table alone in one chunk")
	}
	for i, c := range chunks {
		if i != 1 && strings.Contains(c.Content, "| name |") {
			t.Errorf("chunk %d holds part of the table", i)
		}
	}
}

func TestEngine_Deterministic(t *testing.T) {
	e := New(nil, quietLogger())
	opts := DefaultOptions()
	opts.FileTitle = "guide.md"

	first, err := e.Run(context.Background(), mixedDocument(), opts)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	for n := 0; n < 3; n++ {
		again, err := e.Run(context.Background(), mixedDocument(), opts)
		if err != nil {
			t.Fatalf("run: %v", err)
		}
		if strings.Join(again, "\x00") != strings.Join(first, "\x00") {
			t.Fatal("expected identical output across runs")
		}
	}
}

func TestEngine_MetadataToggle(t *testing.T) {
	e := New(nil, quietLogger())
	on := DefaultOptions()
	on.FileTitle = "Manual"
	off := on
	off.AddMetadata = false

	with, err := e.Run(context.Background(), mixedDocument(), on)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	without, err := e.Run(context.Background(), mixedDocument(), off)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(with) != len(without) {
		t.Fatalf("expected same chunk count, got %d and %d", len(with), len(without))
	}
	for i := range with {
		if !strings.HasPrefix(with[i], "<metadata>\n<Title>Manual</Title>\n<Headings>") {
			t.Errorf("chunk %d: missing header, got %.60q", i, with[i])
		}
		if stripMetadata(with[i]) != without[i] {
			t.Errorf("chunk %d: bodies differ", i)
		}
	}
}

// stripMetadata returns the body of a chunk rendered by WithMetadata.
func stripMetadata(s string) string {
	const open, end = "<metadata>\n", "</metadata>\n\n"
	if !strings.HasPrefix(s, open) {
		return s
	}
	if i := strings.Index(s, end); i >= 0 {
		return s[i+len(end):]
	}
	return s
}

func TestWithMetadata(t *testing.T) {
	path := doctree.HeadingPath{{Level: 1, Text: "A"}, {Level: 3, Text: "C"}}
	got := WithMetadata("", path, "body")
	want := "<metadata>\n<Headings>A > C</Headings>\n</metadata>\n\nbody"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestEngine_CorrectorTimeoutFallsBack(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	slow := func(string, string, string) hierarchy.Corrector {
		return hierarchy.CorrectorFunc(func(context.Context, []doctree.Heading) ([]int, error) {
			<-release
			return nil, nil
		})
	}

	input := "# A\n### B\ntext\n## C\nmore\n"
	base, err := New(nil, quietLogger()).Chunk(context.Background(), input, plainOptions())
	if err != nil {
		t.Fatalf("chunk: %v", err)
	}

	opts := plainOptions()
	opts.EnableLLM = true
	opts.LLMAPIBase = "http://llm.invalid/v1"
	opts.LLMTimeout = 20 * time.Millisecond
	got, err := New(slow, quietLogger()).Chunk(context.Background(), input, opts)
	if err != nil {
		t.Fatalf("expected no error on corrector timeout, got %v", err)
	}

	if len(got) != len(base) {
		t.Fatalf("expected %d chunks, got %d", len(base), len(got))
	}
	for i := range base {
		if got[i].Path.String() != base[i].Path.String() || got[i].Content != base[i].Content {
			t.Errorf("chunk %d differs from uncorrected output", i)
		}
	}
}

func TestEngine_CorrectorRepairsLevels(t *testing.T) {
	opts := plainOptions()
	opts.HeadingLevel = 2
	opts.EnableLLM = true
	opts.LLMAPIBase = "https://llm.example.com/v1"

	chunks, err := New(fixedCorrector(1, 2), quietLogger()).Chunk(context.Background(), "# A\n### B\nSome text.\n", opts)
	if err != nil {
		t.Fatalf("chunk: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if p := chunks[0].Path; p.String() != "A > B" || p[1].Level != 2 {
		t.Errorf("expected corrected path A > B at level 2, got %+v", p)
	}
	if chunks[0].Content != "# A\n### B\nSome text.\n" {
		t.Errorf("expected source text untouched, got %q", chunks[0].Content)
	}
}

func TestEngine_CorrectorDemotesHeading(t *testing.T) {
	input := "# A\n# (1)\nBody text.\n"
	opts := plainOptions()
	opts.EnableLLM = true
	opts.LLMAPIBase = "https://llm.example.com/v1"

	chunks, err := New(fixedCorrector(1, hierarchy.NotHeading), quietLogger()).Chunk(context.Background(), input, opts)
	if err != nil {
		t.Fatalf("chunk: %v", err)
	}
	if len(chunks) != 1 || chunks[0].Path.String() != "A" {
		t.Fatalf("expected one chunk under A, got %+v", chunks)
	}
}

func TestEngine_CorrectorPromotesCandidate(t *testing.T) {
	var seen []doctree.Heading
	factory := func(string, string, string) hierarchy.Corrector {
		return hierarchy.CorrectorFunc(func(_ context.Context, h []doctree.Heading) ([]int, error) {
			seen = h
			return []int{1, 2}, nil
		})
	}
	input := "# Manual\n\nInstallation\n\nRun the installer.\n"
	opts := plainOptions()
	opts.HeadingLevel = 2
	opts.EnableLLM = true
	opts.LLMAPIBase = "https://llm.example.com/v1"

	chunks, err := New(factory, quietLogger()).Chunk(context.Background(), input, opts)
	if err != nil {
		t.Fatalf("chunk: %v", err)
	}
	if len(seen) != 2 || !seen[1].Candidate || seen[1].Text != "Installation" {
		t.Fatalf("expected the short paragraph to be offered as a candidate, got %+v", seen)
	}
	if len(chunks) != 1 || chunks[0].Path.String() != "Manual > Installation" {
		t.Fatalf("expected one chunk under Manual > Installation, got %+v", chunks)
	}
	if chunks[0].Content != input {
		t.Errorf("expected source text untouched, got %q", chunks[0].Content)
	}
}

func TestEngine_LLMDisabledIgnoresCorrector(t *testing.T) {
	called := false
	factory := func(string, string, string) hierarchy.Corrector {
		called = true
		return nil
	}
	if _, err := New(factory, quietLogger()).Chunk(context.Background(), "# A\n", plainOptions()); err != nil {
		t.Fatalf("chunk: %v", err)
	}
	if called {
		t.Error("expected no corrector when enhancement is off")
	}
}

func TestEngine_ConfigErrors(t *testing.T) {
	tests := []struct {
		name  string
		field string
		edit  func(*Options)
	}{
		{"level too low", "heading_level", func(o *Options) { o.HeadingLevel = 0 }},
		{"level too high", "heading_level", func(o *Options) { o.HeadingLevel = 7 }},
		{"llm without base", "llm_api_base", func(o *Options) { o.EnableLLM = true }},
		{"llm bad scheme", "llm_api_base", func(o *Options) {
			o.EnableLLM = true
			o.LLMAPIBase = "ftp://example.com"
		}},
		{"overlap", "overlap", func(o *Options) { o.Limits.Overlap = 100 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			tt.edit(&opts)
			_, err := New(nil, quietLogger()).Run(context.Background(), "# A\ntext", opts)
			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected *ConfigError, got %v", err)
			}
			if cfgErr.Field != tt.field {
				t.Errorf("expected field %q, got %q", tt.field, cfgErr.Field)
			}
		})
	}
}

func TestEngine_ConfigErrorWinsOverInputError(t *testing.T) {
	opts := DefaultOptions()
	opts.HeadingLevel = 9
	_, err := New(nil, quietLogger()).Run(context.Background(), "", opts)
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected *ConfigError, got %v", err)
	}
}

func TestEngine_InputErrors(t *testing.T) {
	// The last three only become empty once normalized.
	for _, in := range []string{"", "   \n\t", `\n\n`, "\x00\x01", "\ufeff"} {
		_, err := New(nil, quietLogger()).Run(context.Background(), in, DefaultOptions())
		var inErr *InputError
		if !errors.As(err, &inErr) {
			t.Errorf("input %q: expected *InputError, got %v", in, err)
		}
	}
}

func TestEngine_LiteralNewlines(t *testing.T) {
	chunks, err := New(nil, quietLogger()).Chunk(context.Background(), `# A\n## B\ntext`, plainOptions())
	if err != nil {
		t.Fatalf("chunk: %v", err)
	}
	if len(chunks) != 1 || chunks[0].Path.String() != "A > B" {
		t.Fatalf("expected escaped newlines to be expanded, got %+v", chunks)
	}
}
