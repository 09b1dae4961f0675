// Package llm wires the batch translator to concrete LLM providers. Every
// provider speaks the same Request/Response shape; provider-specific wire
// formats (chat messages, content blocks, candidates) are confined to each
// client file.
package llm

import "context"

// Request is one translation call: a system instruction plus the rendered
// user prompt (stanzas, context, instructions) built by
// internal/translator.
type Request struct {
	System    string
	User      string
	MaxTokens int
}

// Response is the raw text returned by the provider, before
// internal/translator parses it into per-line translations.
type Response struct {
	Text string
}

// Client is implemented by every provider adapter (and by
// internal/translator's loopback test doubles).
type Client interface {
	Provider() string
	Model() string
	Complete(ctx context.Context, req Request) (Response, error)
}
