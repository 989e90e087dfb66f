// Package preprocess normalizes raw Markdown before it is parsed into blocks.
package preprocess

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Options toggles the optional cleaning steps.
type Options struct {
	RemoveExtraSpaces bool
	RemoveURLsEmails  bool
}

// Run returns the normalized document. Escape expansion, line ending
// normalization, control character removal and artifact cleanup always run;
// the remaining steps follow opts. Run never fails: text it does not
// understand is left as is.
func Run(text string, opts Options) string {
	text = escapes.Replace(text)
	text = strings.Map(dropInvalid, text)
	text = norm.NFC.String(text)

	// URLs go first so that whitespace collapsing cleans up the gaps they leave.
	if opts.RemoveURLsEmails {
		text = RemoveURLsAndEmails(text)
	}
	if opts.RemoveExtraSpaces {
		text = CollapseWhitespace(text)
	}
	return CleanArtifacts(text)
}

var escapes = strings.NewReplacer(
	`\n`, "\n",
	"\r\n", "\n",
	"\r", "\n",
)

func dropInvalid(r rune) rune {
	switch {
	case r == '\t' || r == '\n':
		return r
	case r < 0x20 || r == 0x7f:
		return -1
	case r == '\ufffe' || r == '\ufeff':
		return -1
	}
	return r
}

var (
	// Display math, HTML tables and inline math keep their spacing.
	protectedRe = regexp.MustCompile(`(?is)\$\$.*?\$\$|<table\b.*?</table\s*>|\$[^$\n]+\$`)

	spaceRunRe      = regexp.MustCompile(`[\t\f\v \x{00a0}\x{1680}\x{180e}\x{2000}-\x{200a}\x{202f}\x{205f}\x{3000}]{2,}`)
	trailingSpaceRe = regexp.MustCompile(`[ \t]+\n`)
	blankRunRe      = regexp.MustCompile(`\n{3,}`)
)

// CollapseWhitespace folds runs of horizontal whitespace into one space,
// strips trailing spaces and limits blank runs to a single empty line.
// Line breaks survive, so headings and table rows stay on their own lines.
func CollapseWhitespace(text string) string {
	return mapUnprotected(text, protectedRe, func(s string) string {
		s = spaceRunRe.ReplaceAllString(s, " ")
		s = trailingSpaceRe.ReplaceAllString(s, "\n")
		return blankRunRe.ReplaceAllString(s, "\n\n")
	})
}

var (
	imageRe = regexp.MustCompile(`!\[[^\]\n]*\]\([^)\s]+\)`)
	emailRe = regexp.MustCompile(`[a-zA-Z0-9_.+-]+@[a-zA-Z0-9-]+\.[a-zA-Z0-9.-]+`)
	urlRe   = regexp.MustCompile(`https?://[^\s)]+`)
)

// RemoveURLsAndEmails deletes email addresses and http(s) URLs. URLs inside
// Markdown image syntax are kept so images still resolve.
func RemoveURLsAndEmails(text string) string {
	return mapUnprotected(text, imageRe, func(s string) string {
		s = emailRe.ReplaceAllString(s, "")
		return urlRe.ReplaceAllString(s, "")
	})
}

// mapUnprotected applies fn to every part of text not matched by protect.
func mapUnprotected(text string, protect *regexp.Regexp, fn func(string) string) string {
	locs := protect.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return fn(text)
	}

	var sb strings.Builder
	sb.Grow(len(text))
	last := 0
	for _, loc := range locs {
		sb.WriteString(fn(text[last:loc[0]]))
		sb.WriteString(text[loc[0]:loc[1]])
		last = loc[1]
	}
	sb.WriteString(fn(text[last:]))
	return sb.String()
}

var (
	// Code fences and atomic regions are left alone.
	verbatimRe = regexp.MustCompile("(?is)```.*?```|~~~.*?~~~|\\$\\$.*?\\$\\$|<table\\b.*?</table\\s*>")

	pageNumberRe = regexp.MustCompile(`^\d{1,3}\n$`)
	dotLeaderRe  = regexp.MustCompile(`\.{5,}`)
)

// CleanArtifacts removes document converter leftovers: page numbers standing
// on their own line just before a blank line, and table of contents dot
// leaders of five or more dots.
func CleanArtifacts(text string) string {
	return mapUnprotected(text, verbatimRe, func(s string) string {
		return dotLeaderRe.ReplaceAllString(dropPageNumbers(s), "")
	})
}

func dropPageNumbers(s string) string {
	lines := strings.SplitAfter(s, "\n")
	out := make([]string, 0, len(lines))
	for i, l := range lines {
		if i > 0 && i+1 < len(lines) && lines[i+1] == "\n" && pageNumberRe.MatchString(l) {
			continue
		}
		out = append(out, l)
	}
	return strings.Join(out, "")
}
