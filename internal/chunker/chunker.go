// Package chunker turns Markdown into bounded-size chunks tagged with their
// heading lineage.
package chunker

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/dgallion1/mdchunk/internal/blocks"
	"github.com/dgallion1/mdchunk/internal/doctree"
	"github.com/dgallion1/mdchunk/internal/hierarchy"
	"github.com/dgallion1/mdchunk/internal/preprocess"
)

// CorrectorFactory builds the heading corrector for one invocation.
type CorrectorFactory func(apiBase, apiKey, model string) hierarchy.Corrector

// Engine runs the chunking pipeline. It holds no per-document state and is
// safe for concurrent use.
type Engine struct {
	correctors CorrectorFactory
	log        *slog.Logger
}

// New returns an Engine. A nil factory disables heading correction even when
// an invocation asks for it.
func New(correctors CorrectorFactory, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{correctors: correctors, log: log}
}

// Chunk runs every stage on input and returns the chunks with bare bodies.
func (e *Engine) Chunk(ctx context.Context, input string, opts Options) ([]doctree.Chunk, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(input) == "" {
		return nil, &InputError{Reason: "must not be empty"}
	}

	start := time.Now()
	text := preprocess.Run(input, preprocess.Options{
		RemoveExtraSpaces: opts.RemoveExtraSpaces,
		RemoveURLsEmails:  opts.RemoveURLsEmails,
	})
	if strings.TrimSpace(text) == "" {
		return nil, &InputError{Reason: "empty after normalization"}
	}

	parsed := blocks.Parse(text)
	if opts.EnableLLM {
		parsed = e.correct(ctx, parsed, opts)
	}

	segments := Segment(parsed, opts.HeadingLevel, opts.HeadingTitleLimit)

	var chunks []doctree.Chunk
	for _, seg := range segments {
		for _, body := range Split(seg.Blocks, opts.Limits.MaxChunkSize) {
			chunks = append(chunks, doctree.Chunk{
				Index:   len(chunks),
				Path:    seg.Path,
				Content: body,
			})
		}
	}

	e.log.Debug("document chunked",
		"title", opts.FileTitle,
		"blocks", len(parsed),
		"segments", len(segments),
		"chunks", len(chunks),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return chunks, nil
}

// Run chunks input and renders each chunk, with its metadata header when
// opts.AddMetadata is set.
func (e *Engine) Run(ctx context.Context, input string, opts Options) ([]string, error) {
	chunks, err := e.Chunk(ctx, input, opts)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(chunks))
	for i, c := range chunks {
		if opts.AddMetadata {
			out[i] = WithMetadata(opts.FileTitle, c.Path, c.Content)
		} else {
			out[i] = c.Content
		}
	}
	return out, nil
}

func (e *Engine) correct(ctx context.Context, parsed []doctree.Block, opts Options) []doctree.Block {
	if e.correctors == nil {
		e.log.Warn("heading correction requested but no corrector is configured")
		return parsed
	}
	model := opts.LLMModel
	if model == "" {
		model = DefaultOptions().LLMModel
	}
	c := e.correctors(opts.LLMAPIBase, opts.LLMAPIKey, model)
	log := e.log.With("llm_model", model, "title", opts.FileTitle)
	return hierarchy.NewResolver(c, opts.LLMTimeout, log).Resolve(ctx, parsed)
}
