package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"dataassist/internal/config"
	"dataassist/internal/derr"
	"dataassist/internal/logging"
	"dataassist/internal/types"
)

const anthropicVersion = "2023-06-01"

// AnthropicBackend speaks the Anthropic Messages API directly. It is
// the primary backend: tools and vision both supported.
type AnthropicBackend struct {
	apiKey      string
	baseURL     string
	model       string
	httpClient  *http.Client
	mu          sync.Mutex
	lastRequest time.Time
}

// NewAnthropicBackend builds the primary backend from config. A missing
// API key is a configuration error, caught at construction rather than
// on the first call.
func NewAnthropicBackend(cfg config.BackendConfig, timeout time.Duration) (*AnthropicBackend, error) {
	if cfg.APIKey == "" {
		return nil, derr.NewConfigurationError("llm.primary.api_key", "set ANTHROPIC_API_KEY or llm.primary.api_key in config")
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.anthropic.com/v1"
	}
	return &AnthropicBackend{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      cfg.Model,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// Name implements Backend.
func (b *AnthropicBackend) Name() string { return "anthropic" }

// SupportsTools implements Backend.
func (b *AnthropicBackend) SupportsTools() bool { return true }

// SupportsVision implements Backend.
func (b *AnthropicBackend) SupportsVision() bool { return true }

// ====== Wire format ======

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system,omitempty"`
	Messages  []anthropicMessage `json:"messages"`
	Tools     []anthropicTool    `json:"tools,omitempty"`
}

type anthropicMessage struct {
	Role    string           `json:"role"`
	Content []anthropicBlock `json:"content"`
}

type anthropicBlock struct {
	Type   string                 `json:"type"`
	Text   string                 `json:"text,omitempty"`
	Source *anthropicImageSource  `json:"source,omitempty"`
	ID     string                 `json:"id,omitempty"`
	Name   string                 `json:"name,omitempty"`
	Input  map[string]interface{} `json:"input,omitempty"`
}

type anthropicImageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type anthropicTool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"input_schema"`
}

type anthropicResponse struct {
	Content    []anthropicBlock `json:"content"`
	StopReason string           `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Call implements Backend.
func (b *AnthropicBackend) Call(ctx context.Context, req Request) (*Response, error) {
	// Auto-apply timeout if context has no deadline
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.httpClient.Timeout)
		defer cancel()
	}

	startTime := time.Now()
	logging.APIDebug("[Anthropic] Call: model=%s messages=%d tools=%d", b.model, len(req.Messages), len(req.Tools))

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}

	wireReq := anthropicRequest{
		Model:     b.model,
		MaxTokens: maxTokens,
		System:    req.System,
		Messages:  toAnthropicMessages(req.Messages),
	}
	for _, t := range req.Tools {
		wireReq.Tools = append(wireReq.Tools, anthropicTool{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: t.InputSchema,
		})
	}

	// Rate limiting
	b.mu.Lock()
	elapsed := time.Since(b.lastRequest)
	if elapsed < 100*time.Millisecond {
		time.Sleep(100*time.Millisecond - elapsed)
	}
	b.lastRequest = time.Now()
	b.mu.Unlock()

	jsonData, err := json.Marshal(wireReq)
	if err != nil {
		return nil, derr.NewBackendError(b.Name(), fmt.Errorf("failed to marshal request: %w", err))
	}

	// Retry loop for rate limits and transient transport errors
	maxRetries := 3
	var lastErr error
	for i := 0; i <= maxRetries; i++ {
		if i > 0 {
			time.Sleep(time.Duration(1<<uint(i-1)) * time.Second)
		}

		httpReq, err := http.NewRequestWithContext(ctx, "POST", b.baseURL+"/messages", bytes.NewReader(jsonData))
		if err != nil {
			return nil, derr.NewBackendError(b.Name(), fmt.Errorf("failed to create request: %w", err))
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("x-api-key", b.apiKey)
		httpReq.Header.Set("anthropic-version", anthropicVersion)

		resp, err := b.httpClient.Do(httpReq)
		if err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("failed to read response: %w", err)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("rate limit exceeded (429)")
			continue
		}
		if resp.StatusCode != http.StatusOK {
			logging.Get(logging.CategoryAPI).Error("[Anthropic] Call: API returned status %d: %s", resp.StatusCode, string(body))
			return nil, derr.NewBackendError(b.Name(), fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body)))
		}

		var wireResp anthropicResponse
		if err := json.Unmarshal(body, &wireResp); err != nil {
			return nil, derr.NewBackendError(b.Name(), fmt.Errorf("failed to parse response: %w", err))
		}
		if wireResp.Error != nil {
			return nil, derr.NewBackendError(b.Name(), fmt.Errorf("API error: %s", wireResp.Error.Message))
		}

		result := &Response{
			StopReason: wireResp.StopReason,
			Usage: Usage{
				InputTokens:  wireResp.Usage.InputTokens,
				OutputTokens: wireResp.Usage.OutputTokens,
			},
		}
		for _, block := range wireResp.Content {
			switch block.Type {
			case "text":
				if trimmed := strings.TrimSpace(block.Text); trimmed != "" {
					result.TextBlocks = append(result.TextBlocks, trimmed)
				}
			case "tool_use":
				result.ToolCalls = append(result.ToolCalls, types.ToolCall{
					ID:    block.ID,
					Name:  block.Name,
					Input: block.Input,
				})
			}
		}

		logging.API("[Anthropic] Call: completed in %v text_blocks=%d tool_calls=%d stop_reason=%s",
			time.Since(startTime), len(result.TextBlocks), len(result.ToolCalls), result.StopReason)
		return result, nil
	}

	logging.Get(logging.CategoryAPI).Error("[Anthropic] Call: max retries exceeded after %v: %v", time.Since(startTime), lastErr)
	return nil, derr.NewBackendError(b.Name(), fmt.Errorf("max retries exceeded: %w", lastErr))
}

func toAnthropicMessages(messages []types.Message) []anthropicMessage {
	out := make([]anthropicMessage, 0, len(messages))
	for _, m := range messages {
		wire := anthropicMessage{Role: string(m.Role)}
		for _, p := range m.Parts {
			switch p.Type {
			case types.PartText:
				wire.Content = append(wire.Content, anthropicBlock{Type: "text", Text: p.Text})
			case types.PartImage:
				wire.Content = append(wire.Content, anthropicBlock{
					Type: "image",
					Source: &anthropicImageSource{
						Type:      "base64",
						MediaType: p.MediaType,
						Data:      p.Data,
					},
				})
			}
		}
		if len(wire.Content) == 0 {
			continue
		}
		out = append(out, wire)
	}
	return out
}
