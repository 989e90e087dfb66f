package chunker

import (
	"net/url"
	"strings"
	"time"

	"github.com/dgallion1/mdchunk/internal/doctree"
)

// Limits are the fixed technical constants of the engine.
type Limits struct {
	MaxChunkSize int // Chunk body ceiling, in runes.
	Overlap      int // Characters shared by consecutive chunks. Only 0 is supported.
}

func DefaultLimits() Limits {
	return Limits{MaxChunkSize: 2000, Overlap: 0}
}

// Options are the per-invocation parameters. The JSON names match the
// invocation parameter names accepted over HTTP.
type Options struct {
	FileTitle         string `json:"file_title"`
	HeadingLevel      int    `json:"heading_level"`
	AddMetadata       bool   `json:"add_metadata"`
	RemoveExtraSpaces bool   `json:"remove_extra_spaces"`
	RemoveURLsEmails  bool   `json:"remove_urls_emails"`

	EnableLLM  bool          `json:"enable_llm_enhancement"`
	LLMAPIBase string        `json:"llm_api_base"`
	LLMAPIKey  string        `json:"llm_api_key"`
	LLMModel   string        `json:"llm_model"`
	LLMTimeout time.Duration `json:"-"`

	// HeadingTitleLimit truncates heading texts in paths (runes, 0 = off).
	HeadingTitleLimit int `json:"heading_title_limit"`

	Limits Limits `json:"-"`
}

func DefaultOptions() Options {
	return Options{
		HeadingLevel: 3,
		AddMetadata:  true,
		LLMModel:     "gpt-3.5-turbo",
		Limits:       DefaultLimits(),
	}
}

// Validate checks the options before any chunking work starts.
func (o Options) Validate() error {
	if o.HeadingLevel < doctree.MinHeadingLevel || o.HeadingLevel > doctree.MaxHeadingLevel {
		return &ConfigError{Field: "heading_level", Reason: "must be between 1 and 6"}
	}
	if o.EnableLLM {
		if strings.TrimSpace(o.LLMAPIBase) == "" {
			return &ConfigError{Field: "llm_api_base", Reason: "required when enable_llm_enhancement is set"}
		}
		u, err := url.Parse(strings.TrimSpace(o.LLMAPIBase))
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return &ConfigError{Field: "llm_api_base", Reason: "must be an http or https URL"}
		}
	}
	if o.Limits.MaxChunkSize <= 0 {
		return &ConfigError{Field: "max_chunk_size", Reason: "must be positive"}
	}
	if o.Limits.Overlap != 0 {
		return &ConfigError{Field: "overlap", Reason: "only 0 is supported"}
	}
	if o.HeadingTitleLimit < 0 {
		return &ConfigError{Field: "heading_title_limit", Reason: "must not be negative"}
	}
	return nil
}
