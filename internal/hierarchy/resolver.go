package hierarchy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgallion1/mdchunk/internal/doctree"
)

// NotHeading is the corrected level that demotes a heading to plain content.
const NotHeading = 7

// Corrector proposes corrected levels for a document's headings. The result
// must hold exactly one level per input heading, in the same order. Entries
// marked Candidate are plain paragraphs; NotHeading leaves them as text.
type Corrector interface {
	Correct(ctx context.Context, headings []doctree.Heading) ([]int, error)
}

// CorrectorFunc adapts an ordinary function to the Corrector interface.
type CorrectorFunc func(ctx context.Context, headings []doctree.Heading) ([]int, error)

func (f CorrectorFunc) Correct(ctx context.Context, headings []doctree.Heading) ([]int, error) {
	return f(ctx, headings)
}

// Rejection reasons for a corrector response.
var (
	ErrLevelCount = errors.New("corrected level count mismatch")
	ErrLevelRange = errors.New("corrected level out of range")
	ErrLevelSkip  = errors.New("corrected levels skip a depth")
)

// DefaultTimeout bounds a correction round-trip when none is configured.
const DefaultTimeout = 60 * time.Second

// Resolver applies corrector output to a block sequence. Every failure is
// absorbed: the original levels are kept and the pipeline carries on.
type Resolver struct {
	corrector Corrector
	timeout   time.Duration
	log       *slog.Logger
}

func NewResolver(c Corrector, timeout time.Duration, log *slog.Logger) *Resolver {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = slog.Default()
	}
	return &Resolver{corrector: c, timeout: timeout, log: log}
}

type correction struct {
	levels []int
	err    error
}

// Resolve returns blocks with corrected heading levels, or blocks unchanged
// when there is nothing to correct or the correction fails.
func (r *Resolver) Resolve(ctx context.Context, blocks []doctree.Block) []doctree.Block {
	headings := Headings(blocks)
	if r.corrector == nil || len(headings) == 0 {
		return blocks
	}

	start := time.Now()
	levels, err := r.call(ctx, headings)
	if err == nil {
		err = Validate(levels, len(headings))
	}
	if err != nil {
		r.log.Warn("heading correction failed, keeping original levels",
			"headings", len(headings),
			"duration_ms", time.Since(start).Milliseconds(),
			"error", err,
		)
		return blocks
	}

	corrected := Apply(blocks, levels)
	changed, promoted := countChanged(headings, levels)
	r.log.Info("heading levels corrected",
		"headings", len(headings),
		"changed", changed,
		"promoted", promoted,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return corrected
}

// call runs the corrector under the resolver timeout. The wait is bounded even
// when the corrector ignores its context.
func (r *Resolver) call(ctx context.Context, headings []doctree.Heading) ([]int, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	done := make(chan correction, 1)
	go func() {
		levels, err := r.corrector.Correct(ctx, headings)
		done <- correction{levels: levels, err: err}
	}()

	select {
	case res := <-done:
		return res.levels, res.err
	case <-ctx.Done():
		return nil, fmt.Errorf("heading corrector: %w", ctx.Err())
	}
}

// Validate checks corrector output for n headings: one level each, every
// level within 1-6 or NotHeading, and no kept heading deeper than one level
// below its predecessor.
func Validate(levels []int, n int) error {
	if len(levels) != n {
		return fmt.Errorf("%w: got %d, expected %d", ErrLevelCount, len(levels), n)
	}
	prev := 0
	for i, lvl := range levels {
		if lvl == NotHeading {
			continue
		}
		if lvl < doctree.MinHeadingLevel || lvl > doctree.MaxHeadingLevel {
			return fmt.Errorf("%w: heading %d has level %d", ErrLevelRange, i+1, lvl)
		}
		if prev > 0 && lvl > prev+1 {
			return fmt.Errorf("%w: heading %d goes from level %d to %d", ErrLevelSkip, i+1, prev, lvl)
		}
		prev = lvl
	}
	return nil
}

// Apply returns a copy of blocks with the levels of Headings(blocks)
// replaced by levels, in order. Headings corrected to NotHeading become
// content; candidates given a real level become headings. Block text is
// never rewritten.
func Apply(blocks []doctree.Block, levels []int) []doctree.Block {
	out := make([]doctree.Block, len(blocks))
	copy(out, blocks)
	h := 0
	for i := range out {
		t, ok := target(out[i])
		if !ok {
			continue
		}
		if h >= len(levels) {
			break
		}
		lvl := levels[h]
		h++
		switch {
		case t.Candidate && lvl == NotHeading:
			// stays text
		case t.Candidate:
			out[i].Kind = doctree.KindHeading
			out[i].Level = lvl
			out[i].Title = t.Text
		case lvl == NotHeading:
			out[i].Kind = doctree.KindContent
			out[i].Level = 0
			out[i].Title = ""
		default:
			out[i].Level = lvl
		}
	}
	return out
}

func countChanged(headings []doctree.Heading, levels []int) (changed, promoted int) {
	for i, h := range headings {
		switch {
		case h.Candidate && levels[i] != NotHeading:
			promoted++
		case !h.Candidate && levels[i] != h.Level:
			changed++
		}
	}
	return changed, promoted
}
