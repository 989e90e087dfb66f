// Package corrector asks an OpenAI-compatible chat completions endpoint to
// repair heading levels.
package corrector

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/dgallion1/mdchunk/internal/doctree"
	"github.com/dgallion1/mdchunk/internal/hierarchy"
)

const completionsPath = "/chat/completions"

var _ hierarchy.Corrector = (*Client)(nil)

// Client corrects heading levels through one endpoint, model and key. The
// breaker, limiter and stats are shared with every Client on the same
// endpoint.
type Client struct {
	endpoint   string
	apiKey     string
	model      string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	limiter    *rate.Limiter
	stats      *Stats
}

// Endpoint returns the chat completions URL for an API base, without
// doubling a path the base already ends in.
func Endpoint(base string) string {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if strings.HasSuffix(base, completionsPath) {
		return base
	}
	return base + completionsPath
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

type levelItem struct {
	Index int    `json:"index"`
	Level int    `json:"level"`
	Title string `json:"title"`
}

// Correct sends every heading in one request and returns the proposed
// levels in heading order.
func (c *Client) Correct(ctx context.Context, headings []doctree.Heading) ([]int, error) {
	// An open breaker fails fast, before spending a rate token.
	if c.breaker.State() == gobreaker.StateOpen {
		return nil, fmt.Errorf("corrector %s: %w", c.endpoint, gobreaker.ErrOpenState)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	start := time.Now()
	out, err := c.breaker.Execute(func() (interface{}, error) {
		return c.complete(ctx, BuildPrompt(headings))
	})
	ms := time.Since(start).Milliseconds()
	if err != nil {
		// Calls the breaker refused never reached the endpoint.
		if !errors.Is(err, gobreaker.ErrOpenState) && !errors.Is(err, gobreaker.ErrTooManyRequests) {
			c.stats.RecordFailure(ms)
		}
		return nil, fmt.Errorf("corrector %s: %w", c.endpoint, err)
	}

	levels, err := parseLevels(out.(string))
	if err != nil {
		c.stats.RecordFailure(ms)
		return nil, err
	}
	c.stats.Record(ms)
	return levels, nil
}

func (c *Client) complete(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: SystemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: 0.1,
		MaxTokens:   8192,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat completions: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", &APIError{StatusCode: resp.StatusCode, Message: string(respBody)}
	}

	var apiResp chatResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if apiResp.Error != nil {
		return "", fmt.Errorf("chat completions error: %s: %s", apiResp.Error.Type, apiResp.Error.Message)
	}
	if len(apiResp.Choices) == 0 {
		return "", errors.New("empty response from chat completions")
	}
	return apiResp.Choices[0].Message.Content, nil
}

// parseLevels reads the model's JSON array, fenced or not. Items are ordered
// by their index when the indices number them 1..n, else by position.
func parseLevels(content string) ([]int, error) {
	raw := extractArray(content)
	var items []levelItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, fmt.Errorf("parse levels json: %w (raw: %s)", err, truncate(raw, 200))
	}
	if indexed(items) {
		slices.SortFunc(items, func(a, b levelItem) int { return a.Index - b.Index })
	}
	levels := make([]int, len(items))
	for i, it := range items {
		levels[i] = it.Level
	}
	return levels, nil
}

func indexed(items []levelItem) bool {
	seen := make([]bool, len(items)+1)
	for _, it := range items {
		if it.Index < 1 || it.Index > len(items) || seen[it.Index] {
			return false
		}
		seen[it.Index] = true
	}
	return true
}

var codeBlockRe = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

func stripCodeBlock(s string) string {
	s = strings.TrimSpace(s)
	if m := codeBlockRe.FindStringSubmatch(s); len(m) > 1 {
		return m[1]
	}
	return s
}

func extractArray(s string) string {
	s = stripCodeBlock(s)
	start := strings.IndexByte(s, '[')
	end := strings.LastIndexByte(s, ']')
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return s
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// APIError is a non-200 answer from the completions endpoint.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("chat completions status %d: %s", e.StatusCode, truncate(e.Message, 200))
}

// Transient reports whether the failure lies with the endpoint (rate limited
// or a server error) rather than with the request.
func (e *APIError) Transient() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}
