package context

import (
	"fmt"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/pkoukk/tiktoken-go"
)

// Engine keeps free-text context values within a token budget.
type Engine struct {
	tokenizer *tiktoken.Tiktoken
	maxTokens int
	itemLimit int
}

// New creates a budget engine. model selects the tokenizer (e.g. "gpt-4"),
// maxTokens bounds the combined size of list values such as announcements
// and itemLimit bounds any single free-text value.
func New(model string, maxTokens, itemLimit int) (*Engine, error) {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		// Fallback to cl100k_base for unknown models
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, fmt.Errorf("get tokenizer: %w", err)
		}
	}
	return &Engine{
		tokenizer: enc,
		maxTokens: maxTokens,
		itemLimit: itemLimit,
	}, nil
}

// countTokens returns the token count for a string.
func (e *Engine) countTokens(text string) int {
	return len(e.tokenizer.Encode(text, nil, nil))
}

// Trim cuts text to at most n tokens, marking the cut with an ellipsis.
func (e *Engine) Trim(text string, n int) string {
	if e == nil || n <= 0 {
		return text
	}
	tokens := e.tokenizer.Encode(text, nil, nil)
	if len(tokens) <= n {
		return text
	}
	return strings.TrimSpace(e.tokenizer.Decode(tokens[:n])) + "…"
}

// text normalises one free-text value: portal HTML becomes markdown and
// the result is trimmed to the per-item limit.
func (e *Engine) text(s string) string {
	s = normalizeHTML(s)
	if e == nil {
		return s
	}
	return e.Trim(s, e.itemLimit)
}

// fit returns how many leading items of sizes fit in the list budget. At
// least one item is always kept.
func (e *Engine) fit(items []string) int {
	if e == nil || e.maxTokens <= 0 {
		return len(items)
	}
	used := 0
	for i, item := range items {
		used += e.countTokens(item)
		if used > e.maxTokens && i > 0 {
			return i
		}
	}
	return len(items)
}

// normalizeHTML converts scraped announcement HTML into markdown. Plain
// text passes through unchanged.
func normalizeHTML(s string) string {
	s = strings.TrimSpace(s)
	if !strings.Contains(s, "<") || !strings.Contains(s, ">") {
		return s
	}
	md, err := htmltomarkdown.ConvertString(s)
	if err != nil {
		return s
	}
	return strings.TrimSpace(md)
}
