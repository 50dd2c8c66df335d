package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"dataassist/internal/config"
	"dataassist/internal/derr"
	"dataassist/internal/logging"
	"dataassist/internal/types"
)

// GeminiBackend speaks the Gemini generateContent REST API. It is the
// fast secondary backend: text only, no tools, no vision. Image parts
// are dropped with a warning rather than rejected, so a caller that
// routed a visual request here by mistake still gets a text answer.
type GeminiBackend struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewGeminiBackend builds the secondary backend from config.
func NewGeminiBackend(cfg config.BackendConfig, timeout time.Duration) (*GeminiBackend, error) {
	if cfg.APIKey == "" {
		return nil, derr.NewConfigurationError("llm.secondary.api_key", "set GEMINI_API_KEY or llm.secondary.api_key in config")
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	return &GeminiBackend{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      cfg.Model,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// Name implements Backend.
func (b *GeminiBackend) Name() string { return "gemini" }

// SupportsTools implements Backend.
func (b *GeminiBackend) SupportsTools() bool { return false }

// SupportsVision implements Backend.
func (b *GeminiBackend) SupportsVision() bool { return false }

// ====== Wire format ======

type geminiRequest struct {
	SystemInstruction *geminiContent  `json:"system_instruction,omitempty"`
	Contents          []geminiContent `json:"contents"`
	GenerationConfig  geminiGenConfig `json:"generationConfig"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenConfig struct {
	MaxOutputTokens int `json:"maxOutputTokens,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
	} `json:"usageMetadata"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Call implements Backend. Tool definitions in the request are an error
// here: the router must never send tool requests to the secondary.
func (b *GeminiBackend) Call(ctx context.Context, req Request) (*Response, error) {
	if len(req.Tools) > 0 {
		return nil, derr.NewBackendError(b.Name(), fmt.Errorf("tools are not supported by the secondary backend"))
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.httpClient.Timeout)
		defer cancel()
	}

	startTime := time.Now()
	logging.APIDebug("[Gemini] Call: model=%s messages=%d", b.model, len(req.Messages))

	wireReq := geminiRequest{
		Contents: b.toGeminiContents(req.Messages),
		GenerationConfig: geminiGenConfig{
			MaxOutputTokens: req.MaxTokens,
		},
	}
	if req.System != "" {
		wireReq.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: req.System}}}
	}

	jsonData, err := json.Marshal(wireReq)
	if err != nil {
		return nil, derr.NewBackendError(b.Name(), fmt.Errorf("failed to marshal request: %w", err))
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", b.baseURL, b.model, b.apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, derr.NewBackendError(b.Name(), fmt.Errorf("failed to create request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := b.httpClient.Do(httpReq)
	if err != nil {
		return nil, derr.NewBackendError(b.Name(), fmt.Errorf("request failed: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, derr.NewBackendError(b.Name(), fmt.Errorf("failed to read response: %w", err))
	}
	if resp.StatusCode != http.StatusOK {
		logging.Get(logging.CategoryAPI).Error("[Gemini] Call: API returned status %d: %s", resp.StatusCode, string(body))
		return nil, derr.NewBackendError(b.Name(), fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body)))
	}

	var wireResp geminiResponse
	if err := json.Unmarshal(body, &wireResp); err != nil {
		return nil, derr.NewBackendError(b.Name(), fmt.Errorf("failed to parse response: %w", err))
	}
	if wireResp.Error != nil {
		return nil, derr.NewBackendError(b.Name(), fmt.Errorf("API error %d: %s", wireResp.Error.Code, wireResp.Error.Message))
	}
	if len(wireResp.Candidates) == 0 {
		return nil, derr.NewBackendError(b.Name(), fmt.Errorf("no candidates returned"))
	}

	candidate := wireResp.Candidates[0]
	result := &Response{
		StopReason: strings.ToLower(candidate.FinishReason),
		Usage: Usage{
			InputTokens:  wireResp.UsageMetadata.PromptTokenCount,
			OutputTokens: wireResp.UsageMetadata.CandidatesTokenCount,
		},
	}
	for _, part := range candidate.Content.Parts {
		if trimmed := strings.TrimSpace(part.Text); trimmed != "" {
			result.TextBlocks = append(result.TextBlocks, trimmed)
		}
	}

	logging.API("[Gemini] Call: completed in %v text_blocks=%d finish_reason=%s",
		time.Since(startTime), len(result.TextBlocks), result.StopReason)
	return result, nil
}

func (b *GeminiBackend) toGeminiContents(messages []types.Message) []geminiContent {
	out := make([]geminiContent, 0, len(messages))
	for _, m := range messages {
		// Gemini uses "model" where the shared format says assistant.
		role := "user"
		if m.Role == types.RoleAssistant {
			role = "model"
		}
		content := geminiContent{Role: role}
		dropped := 0
		for _, p := range m.Parts {
			switch p.Type {
			case types.PartText:
				content.Parts = append(content.Parts, geminiPart{Text: p.Text})
			case types.PartImage:
				dropped++
			}
		}
		if dropped > 0 {
			logging.Get(logging.CategoryAPI).Warn("[Gemini] toGeminiContents: dropped %d image part(s), backend is text-only", dropped)
		}
		if len(content.Parts) == 0 {
			continue
		}
		out = append(out, content)
	}
	return out
}
