package translator

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/mgpai22/subtrans/internal/llm"
)

// LoopbackClient is a deterministic llm.Client test double: it parses the
// stanzas out of the request it was sent and echoes each original back as
// its own "translation", prefixed so tests can tell a translated line from
// an untouched one. Its only error is the context's, once the context is
// done.
type LoopbackClient struct {
	prefix string
}

func NewLoopbackClient() *LoopbackClient { return &LoopbackClient{prefix: ">> "} }

func (c *LoopbackClient) Provider() string { return "loopback" }
func (c *LoopbackClient) Model() string    { return "loopback-echo" }

func (c *LoopbackClient) Complete(ctx context.Context, req llm.Request) (llm.Response, error) {
	if err := ctx.Err(); err != nil {
		return llm.Response{}, err
	}
	return llm.Response{Text: echoStanzas(req.User, c.prefix)}, nil
}

// FlakyClient wraps a LoopbackClient and drops the last stanza's
// Translation> block on the first call for a given batch, returning a
// complete response on every subsequent call. It reproduces the
// misalignment-then-repair scenario in spec.md §8 scenario 3.
type FlakyClient struct {
	inner *LoopbackClient

	mu    sync.Mutex
	calls map[string]int
}

func NewFlakyClient() *FlakyClient {
	return &FlakyClient{inner: NewLoopbackClient(), calls: map[string]int{}}
}

func (c *FlakyClient) Provider() string { return c.inner.Provider() }
func (c *FlakyClient) Model() string    { return c.inner.Model() }

func (c *FlakyClient) Complete(ctx context.Context, req llm.Request) (llm.Response, error) {
	resp, err := c.inner.Complete(ctx, req)
	if err != nil {
		return resp, err
	}

	key := stanzaKey(req.User)
	c.mu.Lock()
	n := c.calls[key]
	c.calls[key] = n + 1
	c.mu.Unlock()

	if n == 0 {
		resp.Text = dropLastTranslation(resp.Text)
	}
	return resp, nil
}

// echoStanzas walks the #N / Original> stanzas in prompt and renders a
// matching #N / Translation> response for each.
func echoStanzas(prompt, prefix string) string {
	markers := stanzaMarkerRe.FindAllStringSubmatchIndex(prompt, -1)
	var sb strings.Builder

	for i, m := range markers {
		number := prompt[m[2]:m[3]]
		stanzaEnd := len(prompt)
		if i+1 < len(markers) {
			stanzaEnd = markers[i+1][0]
		}
		stanza := prompt[m[1]:stanzaEnd]
		original := extractOriginal(stanza)

		if i > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "#%s\nOriginal>\n%s\nTranslation>\n%s%s", number, original, prefix, original)
	}

	return sb.String()
}

// stanzaKey identifies a prompt by the line numbers it carries, so a
// repair retry (same batch, different retry-note prefix) maps to the
// same key as the original attempt.
func stanzaKey(prompt string) string {
	markers := stanzaMarkerRe.FindAllString(prompt, -1)
	return strings.Join(markers, ",")
}

const originalMarker = "Original>"

func extractOriginal(stanza string) string {
	idx := strings.Index(stanza, originalMarker)
	if idx == -1 {
		return ""
	}
	body := stanza[idx+len(originalMarker):]
	if end := strings.Index(body, "Translation>"); end >= 0 {
		body = body[:end]
	}
	return strings.TrimSpace(body)
}

// dropLastTranslation removes the final stanza's Translation> body,
// simulating a truncated provider response.
func dropLastTranslation(text string) string {
	markers := stanzaMarkerRe.FindAllStringIndex(text, -1)
	if len(markers) == 0 {
		return text
	}
	last := markers[len(markers)-1]
	head := text[:last[0]]
	tail := text[last[0]:]

	if idx := translationMarkerRe.FindStringIndex(tail); idx != nil {
		tail = tail[:idx[0]] + "Translation>"
	}
	return head + tail
}
