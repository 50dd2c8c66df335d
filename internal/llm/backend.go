// Package llm provides the chat backend abstraction and the concrete
// REST clients for the Anthropic and Gemini APIs. Backends translate
// the shared message format into their own wire formats; callers never
// touch provider-specific JSON.
package llm

import (
	"context"

	"dataassist/internal/types"
)

// Backend is one LLM provider. Implementations must be safe for
// concurrent use.
type Backend interface {
	// Name returns a short provider identifier used in logs and errors.
	Name() string

	// Call sends one chat request and returns the parsed response.
	Call(ctx context.Context, req Request) (*Response, error)

	// SupportsTools reports whether the backend accepts tool definitions.
	SupportsTools() bool

	// SupportsVision reports whether the backend accepts image parts.
	SupportsVision() bool
}

// Request is a provider-neutral chat request.
type Request struct {
	System    string
	Messages  []types.Message
	Tools     []types.ToolDefinition
	MaxTokens int
}

// Response is a provider-neutral chat response.
type Response struct {
	TextBlocks []string
	ToolCalls  []types.ToolCall
	StopReason string
	Usage      Usage
}

// Usage carries token accounting when the provider reports it.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// Text joins the response text blocks into one string.
func (r *Response) Text() string {
	out := ""
	for _, b := range r.TextBlocks {
		if out != "" {
			out += "\n"
		}
		out += b
	}
	return out
}
