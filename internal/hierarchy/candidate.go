package hierarchy

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dgallion1/mdchunk/internal/doctree"
)

// Limits for a paragraph to pass as an unmarked heading.
const (
	candidateMaxWords = 20
	candidateMaxHan   = 30 // runes, for lines containing Han characters
)

var (
	sentenceEndRe = regexp.MustCompile(`[。；、.;]$`)
	leadInRe      = regexp.MustCompile(`[：:]$`)
	shortClauseRe = regexp.MustCompile(`^.{0,5}[，,]\s*$`)
	bareNumberRe  = regexp.MustCompile(`^[(（]?\d+[)）]?\s*$`)
)

// candidateTitle reports whether a content block looks like a heading the
// converter failed to mark: a short single-line paragraph. Sentences,
// lead-ins, bare numbers, dot leaders and formulas are rejected.
func candidateTitle(b doctree.Block) (string, bool) {
	if b.Kind != doctree.KindContent {
		return "", false
	}
	line := strings.TrimSpace(b.Text)
	if line == "" || strings.Contains(line, "\n") || strings.HasPrefix(line, "#") {
		return "", false
	}

	switch {
	case sentenceEndRe.MatchString(line),
		leadInRe.MatchString(line),
		shortClauseRe.MatchString(line),
		bareNumberRe.MatchString(line):
		return "", false
	case strings.Count(line, ".") > 3 || strings.Count(line, "．") > 2:
		return "", false
	case strings.Count(line, "$") >= 2 || strings.Count(line, `\`) > 2:
		return "", false
	}

	if strings.ContainsFunc(line, func(r rune) bool { return unicode.Is(unicode.Han, r) }) {
		return line, utf8.RuneCountInString(line) <= candidateMaxHan
	}
	n := len(strings.Fields(line))
	return line, n >= 1 && n <= candidateMaxWords
}

// target returns the corrector entry for b: heading blocks with their level,
// heading candidates at level 1.
func target(b doctree.Block) (doctree.Heading, bool) {
	if b.IsHeading() {
		return doctree.Heading{Level: b.Level, Text: b.Title}, true
	}
	if title, ok := candidateTitle(b); ok {
		return doctree.Heading{Level: doctree.MinHeadingLevel, Text: title, Candidate: true}, true
	}
	return doctree.Heading{}, false
}
