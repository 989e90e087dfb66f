package chunker

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dgallion1/mdchunk/internal/doctree"
)

// packer greedily fills chunk bodies of at most max runes.
type packer struct {
	max    int
	buf    strings.Builder
	n      int
	bodies []string
}

func (p *packer) flush() {
	if p.n == 0 {
		return
	}
	p.bodies = append(p.bodies, p.buf.String())
	p.buf.Reset()
	p.n = 0
}

func (p *packer) add(s string, n int) {
	p.buf.WriteString(s)
	p.n += n
}

// Split packs the blocks of one segment into chunk bodies of at most
// maxRunes runes. An atomic block longer than maxRunes becomes a chunk of its own and is
// never cut. Other blocks longer than the room left are cut at the best
// boundary available. Concatenating the bodies yields the blocks' text.
func Split(blocks []doctree.Block, maxRunes int) []string {
	p := &packer{max: maxRunes}
	for _, b := range blocks {
		n := utf8.RuneCountInString(b.Text)
		switch {
		case p.n+n <= maxRunes:
			p.add(b.Text, n)
		case b.Kind == doctree.KindAtomic:
			p.flush()
			p.add(b.Text, n)
			if n > maxRunes {
				p.flush()
			}
		case n <= maxRunes:
			p.flush()
			p.add(b.Text, n)
		default:
			p.cutInto(b.Text, n)
		}
	}
	p.flush()
	return p.bodies
}

// cutInto appends an oversized text, flushing each time the buffer fills.
func (p *packer) cutInto(s string, n int) {
	for {
		room := p.max - p.n
		if n <= room {
			p.add(s, n)
			return
		}
		if room == 0 || room < p.max/4 {
			p.flush()
			continue
		}
		at := cut(s, room)
		head := s[:at]
		hn := utf8.RuneCountInString(head)
		p.add(head, hn)
		p.flush()
		s, n = s[at:], n-hn
	}
}

// cut returns a byte offset in (0, len(s)) at which to split s so that the
// head holds at most budget runes. It prefers, in order, the end of a line,
// the end of a sentence and any whitespace, as long as the boundary falls in
// the second half of the window; otherwise it cuts at the rune boundary. The
// tail keeps at least one non-space rune whenever s has one past its first
// rune.
func cut(s string, budget int) int {
	limit := runeOffset(s, budget)
	if last := lastNonSpace(s); last > 0 && last < limit {
		limit = last
	}
	window := s[:limit]
	floor := len(window) / 2

	if i := strings.LastIndexByte(window, '\n'); i >= 0 && i+1 > floor {
		return i + 1
	}
	if i := sentenceEnd(s, limit); i > floor {
		return i
	}
	if i := lastSpace(window); i > floor {
		return i
	}
	return limit
}

// runeOffset returns the byte offset just past the first n runes of s.
func runeOffset(s string, n int) int {
	for i := range s {
		if n == 0 {
			return i
		}
		n--
	}
	return len(s)
}

func lastNonSpace(s string) int {
	for i := len(s); i > 0; {
		r, size := utf8.DecodeLastRuneInString(s[:i])
		i -= size
		if !unicode.IsSpace(r) {
			return i
		}
	}
	return 0
}

func lastSpace(window string) int {
	for i := len(window); i > 0; {
		r, size := utf8.DecodeLastRuneInString(window[:i])
		if unicode.IsSpace(r) {
			return i
		}
		i -= size
	}
	return 0
}

// sentenceEnd returns the offset just past the last sentence terminator in
// s[:limit]. Latin terminators must be followed by whitespace, which is kept
// on the head; CJK terminators stand alone.
func sentenceEnd(s string, limit int) int {
	best := 0
	for i, r := range s[:limit] {
		end := i + utf8.RuneLen(r)
		switch r {
		case '。', '！', '？':
			best = end
		case '.', '!', '?':
			next, size := utf8.DecodeRuneInString(s[end:])
			if size > 0 && unicode.IsSpace(next) && end+size <= limit {
				best = end + size
			}
		}
	}
	return best
}
